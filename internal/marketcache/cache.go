// Package marketcache implements the Market Feed Cache (C5): a
// provider-keyed TTL cache consulted before every outbound provider
// call, generalizing the teacher's TTL cache
// (internal/data/cache.TTLCache) from a symbol-only key to
// "provider:endpoint:symbol".
package marketcache

import (
	"context"
	"time"
)

// Key builds the cache key for one provider call.
func Key(provider, endpoint, symbol string) string {
	return provider + ":" + endpoint + ":" + symbol
}

// Cache is the contract both backends satisfy. Get returns the cached
// bytes and true on a fresh hit; false otherwise (miss or expired).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Clear(ctx context.Context, key string)
}
