package cache

import (
	"context"
	"sync"
	"time"
)

// memoryCache is a bounded in-process Cache. When full it evicts the entry
// closest to expiry.
type memoryCache struct {
	items    map[string]memoryItem
	maxItems int
	mu       sync.RWMutex
}

type memoryItem struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryCache creates an in-memory cache holding at most maxItems entries.
// A non-positive maxItems means unbounded.
func NewMemoryCache(maxItems int) Cache {
	return &memoryCache{
		items:    make(map[string]memoryItem),
		maxItems: maxItems,
	}
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

// Get retrieves a value, dropping it if it has expired
func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return nil, nil
	}

	if item.expired(time.Now()) {
		c.mu.Lock()
		// Double-check after acquiring write lock
		if current, ok := c.items[key]; ok && current.expired(time.Now()) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, nil
	}

	return item.data, nil
}

// Set stores a value. A non-positive expiration keeps it until evicted.
func (c *memoryCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.maxItems > 0 && len(c.items) >= c.maxItems {
		c.evictLocked()
	}

	item := memoryItem{data: value}
	if expiration > 0 {
		item.expiresAt = time.Now().Add(expiration)
	}
	c.items[key] = item

	return nil
}

// Delete removes a key
func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// Exists checks for a live key
func (c *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	return exists && !item.expired(time.Now()), nil
}

// Close drops all entries
func (c *memoryCache) Close() error {
	c.mu.Lock()
	c.items = make(map[string]memoryItem)
	c.mu.Unlock()
	return nil
}

// Health always succeeds for the in-memory cache
func (c *memoryCache) Health(ctx context.Context) error {
	return nil
}

// evictLocked removes expired entries, or failing that the entry expiring
// soonest. Entries without expiry are evicted last. Caller holds c.mu.
func (c *memoryCache) evictLocked() {
	now := time.Now()
	oldestKey := ""
	var oldest time.Time

	for k, item := range c.items {
		if item.expired(now) {
			delete(c.items, k)
			continue
		}
		if oldestKey == "" {
			oldestKey, oldest = k, item.expiresAt
			continue
		}
		if item.expiresAt.IsZero() {
			continue
		}
		if oldest.IsZero() || item.expiresAt.Before(oldest) {
			oldestKey, oldest = k, item.expiresAt
		}
	}

	if len(c.items) < c.maxItems {
		return
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
