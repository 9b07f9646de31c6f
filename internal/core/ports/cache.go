package ports

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired,
// letting callers tell a miss apart from a backend outage.
var ErrCacheMiss = errors.New("cache: key not found")

// CacheService defines the interface for a cache system.
type CacheService interface {
	// Get retrieves a value from the cache, unmarshalling it into the
	// 'dest' pointer. A missing or expired key yields ErrCacheMiss.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores a value in the cache with a TTL.
	// The implementation should marshal the value.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error
}
