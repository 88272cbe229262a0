package committee

import (
	"context"
	"sync"
	"time"
)

// ListCache is an in-memory TTL cache of one collection, used by the public
// read endpoints so each page view does not fetch from the object store.
type ListCache[T any] struct {
	mu      sync.RWMutex
	items   []T
	fetched time.Time
	ttl     time.Duration
	load    func(context.Context) []T
	now     func() time.Time
}

// NewListCache creates a ListCache filled by load. A ttl of zero or less
// disables caching.
func NewListCache[T any](load func(context.Context) []T, ttl time.Duration) *ListCache[T] {
	return &ListCache[T]{load: load, ttl: ttl, now: time.Now}
}

func (c *ListCache[T]) valid() bool {
	return c.items != nil && c.ttl > 0 && c.now().Sub(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *ListCache[T]) Invalidate() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Get returns the cached collection, reloading it when stale. Callers must
// not modify the returned slice.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *ListCache[T]) Get(ctx context.Context) []T {
	c.mu.RLock()
	if c.valid() {
		items := c.items
		c.mu.RUnlock()
		return items
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.items
	}
	items := c.load(ctx)
	if items == nil {
		items = []T{}
	}
	c.items = items
	c.fetched = c.now()
	return items
}
