package cache

import (
	"context"
	"time"
)

// Cache is a read-through JSON cache. Invalidate drops every entry at once.
type Cache interface {
	// Get decodes the cached value for key into dest and reports whether it was present.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}
