// Package cache provides the byte-oriented cache layers used for prediction
// responses: an in-process LRU, an optional Redis tier, and a layered
// combination of both.
package cache

import (
	"context"
	"time"
)

// Service defines cache operations. Values are opaque bytes; callers own
// the encoding.
type Service interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Purge(ctx context.Context) error
	Close() error
}
