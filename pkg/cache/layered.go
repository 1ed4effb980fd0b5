package cache

import (
	"context"
	"time"
)

// LayeredCache reads through L1 (memory) into L2 (Redis) and writes through
// both. L2 errors on read degrade to a miss rather than failing the lookup.
type LayeredCache struct {
	l1 *MemoryCache
	l2 Service
}

// NewLayeredCache combines a memory front with a shared backing tier.
func NewLayeredCache(l1 *MemoryCache, l2 Service) *LayeredCache {
	return &LayeredCache{l1: l1, l2: l2}
}

func (c *LayeredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, _ := c.l1.Get(ctx, key); ok {
		return v, true, nil
	}
	v, ok, err := c.l2.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = c.l1.Set(ctx, key, v, 0)
	return v, true, nil
}

func (c *LayeredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l2.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.l1.Set(ctx, key, value, ttl)
}

func (c *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = c.l1.Delete(ctx, keys...)
	return c.l2.Delete(ctx, keys...)
}

func (c *LayeredCache) Purge(ctx context.Context) error {
	_ = c.l1.Purge(ctx)
	return c.l2.Purge(ctx)
}

func (c *LayeredCache) Close() error {
	_ = c.l1.Close()
	return c.l2.Close()
}

var _ Service = (*LayeredCache)(nil)
