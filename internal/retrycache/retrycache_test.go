// SPDX-License-Identifier: MIT

package retrycache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCounter(t *testing.T) {
	c := NewMemoryCounter()
	ctx := context.Background()

	n, err := c.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = c.Incr(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = c.Incr(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, c.Reset(ctx, "m1"))
	n, err = c.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, c.Close())
}

// setupMiniRedis creates a test Redis server using miniredis.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCounter) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	counter := &RedisCounter{
		client: client,
		ttl:    time.Hour,
		logger: zerolog.Nop(),
	}

	return mr, counter
}

func TestRedisCounterIncrGet(t *testing.T) {
	mr, c := setupMiniRedis(t)
	defer mr.Close()
	ctx := context.Background()

	n, err := c.Incr(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = c.Incr(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = c.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = c.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRedisCounterReset(t *testing.T) {
	mr, c := setupMiniRedis(t)
	defer mr.Close()
	ctx := context.Background()

	_, err := c.Incr(ctx, "m1")
	require.NoError(t, err)
	require.NoError(t, c.Reset(ctx, "m1"))

	n, err := c.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRedisCounterTTL(t *testing.T) {
	mr, c := setupMiniRedis(t)
	defer mr.Close()
	ctx := context.Background()

	_, err := c.Incr(ctx, "m1")
	require.NoError(t, err)

	// Counter expires once the TTL elapses.
	mr.FastForward(2 * time.Hour)

	n, err := c.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
