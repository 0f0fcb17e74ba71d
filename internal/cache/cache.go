// Package cache holds short-lived responses in process.
package cache

import (
	"sync"
	"time"
)

const defaultMaxEntries = 1024

// Cache is a TTL map with a size cap. When full, expired entries go first,
// then the entry closest to expiry.
type Cache[V any] struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	items      map[string]entry[V]
	now        func() time.Time
}

type entry[V any] struct {
	val       V
	expiresAt time.Time
}

// New builds a cache; non-positive arguments pick the defaults (5s, 1024).
func New[V any](ttl time.Duration, maxEntries int) *Cache[V] {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	return &Cache[V]{
		ttl:        ttl,
		maxEntries: maxEntries,
		items:      make(map[string]entry[V]),
		now:        time.Now,
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V

	e, ok := c.items[key]
	if !ok {
		return zero, false
	}

	if !c.now().Before(e.expiresAt) {
		delete(c.items, key)
		return zero, false
	}

	return e.val, true
}

func (c *Cache[V]) Set(key string, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxEntries {
		c.evictLocked(now)
	}

	c.items[key] = entry[V]{val: val, expiresAt: now.Add(c.ttl)}
}

// Clear drops every entry. Writes call it; list pages overlap too much to
// invalidate one by one.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]entry[V])
	c.mu.Unlock()
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

func (c *Cache[V]) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
	)

	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			continue
		}

		if oldestKey == "" || e.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.expiresAt
		}
	}

	if len(c.items) >= c.maxEntries && oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
