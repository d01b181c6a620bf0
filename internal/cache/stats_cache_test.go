package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

type snapshot struct {
	Total int `json:"total"`
}

func TestStatsCacheRoundtrip(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewStatsCache(client, time.Minute)
	ctx := context.Background()

	var missed snapshot
	assert.ErrorIs(t, c.Get(ctx, "dashboard:all", &missed), ErrMiss)

	require.NoError(t, c.Set(ctx, "dashboard:all", snapshot{Total: 7}))
	assert.True(t, mr.Exists("stats:dashboard:all"))

	var got snapshot
	require.NoError(t, c.Get(ctx, "dashboard:all", &got))
	assert.Equal(t, 7, got.Total)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "dashboard:all", &got), ErrMiss)
}

func TestStatsCacheInvalidate(t *testing.T) {
	_, client := setupTestRedis(t)
	c := NewStatsCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "dashboard:all", snapshot{Total: 3}))
	require.NoError(t, c.Invalidate(ctx, "dashboard:all"))

	var got snapshot
	assert.ErrorIs(t, c.Get(ctx, "dashboard:all", &got), ErrMiss)
}

func TestStatsCacheDisabled(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		cache *StatsCache
	}{
		{"zero ttl", NewStatsCache(client, 0)},
		{"nil client", NewStatsCache(nil, time.Minute)},
		{"nil cache", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.cache.Enabled())
			assert.NoError(t, tt.cache.Set(ctx, "k", snapshot{Total: 1}))
			var got snapshot
			assert.ErrorIs(t, tt.cache.Get(ctx, "k", &got), ErrMiss)
			assert.NoError(t, tt.cache.Invalidate(ctx, "k"))
		})
	}
}
