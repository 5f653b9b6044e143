package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := NewClient(&Config{Address: mr.Addr(), PoolSize: 10})
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestNewClient(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewClient(nil)
		assert.Error(t, err)
	})

	t.Run("applies pool default", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		defer mr.Close()

		config := &Config{Address: mr.Addr()}
		client, err := NewClient(config)
		require.NoError(t, err)
		defer client.Close()

		assert.Equal(t, 10, config.PoolSize)
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		_, err = NewClient(&Config{Address: addr})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})
}

func TestClient_Health(t *testing.T) {
	client, mr := setupTestRedis(t)

	assert.NoError(t, client.Health())

	mr.Close()
	assert.Error(t, client.Health())
}

func TestClient_CheckRateLimit(t *testing.T) {
	client, _ := setupTestRedis(t)

	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return current }

	ctx := context.Background()
	key := "ratelimit:complaints:10.0.0.1"
	limit := 3
	window := 10 * time.Second

	for i := 0; i < limit; i++ {
		allowed, count, err := client.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed, "hit %d", i+1)
		assert.Equal(t, i, count)
	}

	allowed, count, err := client.CheckRateLimit(ctx, key, limit, window)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, limit, count)

	t.Run("other keys are independent", func(t *testing.T) {
		allowed, _, err := client.CheckRateLimit(ctx, "ratelimit:complaints:10.0.0.2", limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("window slides", func(t *testing.T) {
		current = current.Add(window + time.Second)

		allowed, count, err := client.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 0, count)
	})
}

func TestClient_CheckRateLimit_ConcurrentHitsAllCount(t *testing.T) {
	client, _ := setupTestRedis(t)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := client.CheckRateLimit(ctx, "burst", 100, time.Minute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, count, err := client.CheckRateLimit(ctx, "burst", 100, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}

func TestClient_CheckRateLimit_ServerDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	_, _, err := client.CheckRateLimit(context.Background(), "key", 10, time.Minute)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check rate limit")
}
