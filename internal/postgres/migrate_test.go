package postgres

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(mustSub(migrations, "migrations"), "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_init.sql", "00002_seed_categories.sql"}, files)

	for _, f := range files {
		b, err := fs.ReadFile(migrations, "migrations/"+f)
		require.NoError(t, err)
		s := string(b)
		assert.True(t, strings.HasPrefix(s, "-- +goose Up"), f)
		assert.Contains(t, s, "-- +goose Down", f)
	}
}

func TestInitSchemaConstraints(t *testing.T) {
	b, err := fs.ReadFile(migrations, "migrations/00001_init.sql")
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, "CONSTRAINT orders_user_idempotency_key UNIQUE (user_id, idempotency_key)")
	assert.Contains(t, s, "UNIQUE (user_id, address1, zip, country)")
	assert.Contains(t, s, "CHECK (stock >= 0)")
}
