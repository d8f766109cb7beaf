package users

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/stretchr/testify/assert"
)

// A zero Repo has no pool, so these only pass if no query is sent.
func TestRepo_MalformedIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	r := &Repo{}

	_, err := r.ByID(ctx, "u1")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(r.SetRole(ctx, "u1", auth.RoleAdmin)))
}
