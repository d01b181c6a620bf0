// Package cache holds the Redis-backed dashboard stats cache. Caching is an
// explicit trade-off: it introduces a read-after-write staleness window, so
// it ships disabled (TTL zero) unless a deployment opts in.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when no cached value exists.
var ErrMiss = errors.New("cache: miss")

// StatsCache stores serialized dashboard snapshots keyed by scope.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache builds a cache. A nil client or non-positive ttl yields a
// disabled cache: Get always misses and Set is a no-op.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

// Enabled reports whether the cache will serve hits.
func (c *StatsCache) Enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Get unmarshals the cached snapshot for key into dest.
func (c *StatsCache) Get(ctx context.Context, key string, dest any) error {
	if !c.Enabled() {
		return ErrMiss
	}
	raw, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Set stores the snapshot for key with the configured TTL.
func (c *StatsCache) Set(ctx context.Context, key string, value any) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(key), raw, c.ttl).Err()
}

// Invalidate drops the snapshot for key.
func (c *StatsCache) Invalidate(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Del(ctx, cacheKey(key)).Err()
}

func cacheKey(key string) string {
	return "stats:" + key
}
