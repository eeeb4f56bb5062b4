// Package cache memoizes extraction results keyed by request fingerprints.
package cache

import (
	"sync"
	"time"
)

// Entry holds a cached result with its expiry instant.
type entry struct {
	expiry time.Time
	value  any
}

// Cache is a thread-safe TTL cache for extraction results.
// Entries expire lazily: a stale entry is removed on the lookup that
// discovers it, so no background sweeper is required.
type Cache struct {
	now        func() time.Time
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int // 0 means unbounded
	mu         sync.RWMutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock injects a clock for deterministic expiry tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithMaxEntries bounds the cache size. When full, the entry closest to
// expiry is evicted to make room.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		c.maxEntries = n
	}
}

// New creates a cache with the specified TTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a result if it exists and hasn't expired.
// An expired entry is treated as absent and removed.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if c.now().After(e.expiry) {
		c.mu.Lock()
		// Re-check under the write lock; a fresher Put may have replaced it.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expiry) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.value, true
}

// Put stores a result under key with the configured TTL.
// Concurrent puts on the same key are last-write-wins.
func (c *Cache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictOldest()
		}
	}

	c.entries[key] = entry{
		value:  value,
		expiry: c.now().Add(c.ttl),
	}
}

// evictOldest removes the entry closest to expiry. Caller holds the lock.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestExpiry time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.expiry.Before(oldestExpiry) {
			oldestKey = k
			oldestExpiry = e.expiry
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// ClearExpired removes all stale entries.
func (c *Cache) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len returns the number of entries, including any not yet expired lazily.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
