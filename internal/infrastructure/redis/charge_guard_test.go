package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeGuard(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := New(addr, "", 0, 0)
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	require.NoError(t, rdb.Ping(ctx).Err())

	g := NewChargeGuard(rdb, 0)
	orderID := uuid.NewString()

	ok, err := g.Acquire(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Acquire(ctx, orderID)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must see the held marker")

	require.NoError(t, g.Release(ctx, orderID))
	ok, err = g.Acquire(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, g.Release(ctx, orderID))
}
