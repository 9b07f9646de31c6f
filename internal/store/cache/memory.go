package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/light-merlin-dark/aia/internal/core/ports"
)

type item struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is the default in-process cache. Entries are lazily
// expired on read.
type MemoryCache struct {
	items map[string]item
	mu    sync.RWMutex
}

func NewMemoryCache() ports.CacheService {
	return &MemoryCache{
		items: make(map[string]item),
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists {
		return ports.ErrCacheMiss
	}

	// Lazy expiry: an expired entry is a miss.
	if time.Now().After(item.expiresAt) {
		return ports.ErrCacheMiss
	}

	return json.Unmarshal(item.value, dest)
}

func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.items[key] = item{
		value:     data,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}
