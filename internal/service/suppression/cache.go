package suppression

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/ses-pipeline/internal/pkg/logger"
)

const cacheKeyPrefix = "suppression:"

// Cache is a Redis-backed read cache for suppression checks. Both positive
// and negative answers are cached so the send path's hot loop avoids the
// database. Cache failures degrade to a miss.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache wraps a Redis client. A non-positive ttl defaults to 5 minutes.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// Get returns the cached answer for an address and whether one was present.
func (c *Cache) Get(ctx context.Context, email string) (suppressed, ok bool) {
	val, err := c.rdb.Get(ctx, cacheKeyPrefix+email).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Debug("suppression cache read failed", "error", err.Error())
		}
		return false, false
	}
	return val == "1", true
}

// Set stores the answer for an address.
func (c *Cache) Set(ctx context.Context, email string, suppressed bool) {
	val := "0"
	if suppressed {
		val = "1"
	}
	if err := c.rdb.Set(ctx, cacheKeyPrefix+email, val, c.ttl).Err(); err != nil {
		logger.Debug("suppression cache write failed", "error", err.Error())
	}
}
