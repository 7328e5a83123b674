package cache

import (
	"context"
	"sync"
	"time"
)

// Entry represents a cached value with expiration
type Entry struct {
	Value     []byte
	ExpiresAt time.Time
}

// Cache is a simple in-memory cache with TTL. It is the fallback when Redis is not configured.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*Entry
	now   func() time.Time
}

// New creates a new cache
func New() *Cache {
	return &Cache{items: map[string]*Entry{}, now: time.Now}
}

// Set stores a value in the cache with a given TTL
func (c *Cache) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &Entry{
		Value:     append([]byte(nil), value...),
		ExpiresAt: c.now().Add(ttl),
	}
}

// Get retrieves a value from the cache if it hasn't expired
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, exists := c.items[key]
	if !exists {
		return nil, false
	}
	if !c.now().Before(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Value, true
}

// Fetch is Get with the context-aware signature shared with the Redis client
func (c *Cache) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.Get(key)
	return v, ok, nil
}

// Put is Set with the context-aware signature shared with the Redis client
func (c *Cache) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.Set(key, value, ttl)
	return nil
}
