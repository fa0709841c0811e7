package marketcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	defer c.Stop()
	ctx := context.Background()

	key := Key("options", "chain", "BTC-USD")
	c.Set(ctx, key, []byte("payload"), time.Minute)

	val, ok := c.Get(ctx, key)
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), val)
}

func TestMemoryCache_ExpiredMiss(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	defer c.Stop()
	ctx := context.Background()

	key := Key("analytics", "atr14", "ETH-USD")
	c.Set(ctx, key, []byte("stale"), -time.Second)

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	defer c.Stop()
	ctx := context.Background()

	key := Key("liquidity", "book", "BTC-USD")
	c.Set(ctx, key, []byte("x"), time.Minute)
	c.Clear(ctx, key)

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)
}

func TestMemoryCache_SweepEvictsExpired(t *testing.T) {
	c := NewMemoryCache(20 * time.Millisecond)
	defer c.Stop()
	ctx := context.Background()

	key := Key("options", "chain", "BTC-USD")
	c.Set(ctx, key, []byte("payload"), time.Millisecond)

	time.Sleep(80 * time.Millisecond)

	c.mu.RLock()
	_, stillThere := c.entries[key]
	c.mu.RUnlock()
	assert.False(t, stillThere)
}
