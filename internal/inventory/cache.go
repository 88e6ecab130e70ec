package inventory

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const countKeyPrefix = "stock:count:"

// CountCache is a read-through Redis cache for display stock counts. It is
// advisory only: the settlement path never consults it, and it is invalidated
// after a purchase commits. All operations fail open without Redis.
type CountCache struct {
	cache *redis.Client
	ttl   time.Duration
}

// NewCountCache builds a count cache; a nil client disables caching.
func NewCountCache(cache *redis.Client, ttl time.Duration) *CountCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CountCache{cache: cache, ttl: ttl}
}

// Get returns the cached count and whether it was present.
func (c *CountCache) Get(ctx context.Context, productID uuid.UUID) (int, bool) {
	if c == nil || c.cache == nil {
		return 0, false
	}
	raw, err := c.cache.Get(ctx, countKeyPrefix+productID.String()).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Set stores the count with the configured TTL.
func (c *CountCache) Set(ctx context.Context, productID uuid.UUID, n int) {
	if c == nil || c.cache == nil {
		return
	}
	_ = c.cache.Set(ctx, countKeyPrefix+productID.String(), strconv.Itoa(n), c.ttl).Err()
}

// Invalidate drops the cached count. Called strictly after a commit that
// changed the pool.
func (c *CountCache) Invalidate(ctx context.Context, productID uuid.UUID) {
	if c == nil || c.cache == nil {
		return
	}
	_ = c.cache.Del(ctx, countKeyPrefix+productID.String()).Err()
}
