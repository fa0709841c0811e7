package marketcache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the distributed-deployment TTL backend, grounded on
// alanyoungcy-polymarketbot's MarketCache
// (internal/cache/redis/market_cache.go): plain key/value with Redis's
// own expiry rather than the hash+token-index scheme that repo uses
// for market lookups, since here a single opaque provider key is
// sufficient.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.rdb.Set(ctx, key, value, ttl)
}

func (c *RedisCache) Clear(ctx context.Context, key string) {
	c.rdb.Del(ctx, key)
}

// Ping verifies connectivity, mirroring Client.Ping in the grounding repo.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
