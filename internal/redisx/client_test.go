package redisx

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaim_OnlyFirstWins(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := New(mr.Addr())
	ctx := context.Background()
	key := fmt.Sprintf(KeyDedup, "inventory", "evt-1")

	won, err := Claim(ctx, rdb, key, "1", TTLDedup)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = Claim(ctx, rdb, key, "1", TTLDedup)
	require.NoError(t, err)
	assert.False(t, won)

	ok, err := Exists(ctx, rdb, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, TTLDedup, mr.TTL(key))
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	require.NoError(t, rdb.Close())

	mr.Close()
	_, err = Connect(context.Background(), mr.Addr())
	assert.Error(t, err)
}
