package topicgate

import (
	"sync"
	"time"
)

// verdictCache is a bounded in-memory TTL cache of classification verdicts.
type verdictCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	allow     bool
	expiresAt time.Time
}

const defaultCacheTTL = 10 * time.Minute

func newVerdictCache(maxSize int, ttl time.Duration) *verdictCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &verdictCache{
		entries: make(map[string]cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *verdictCache) get(key string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return false, false
	}
	return e.allow, true
}

func (c *verdictCache) set(key string, allow bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = cacheEntry{allow: allow, expiresAt: c.now().Add(c.ttl)}
}

func (c *verdictCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldest drops the entry closest to expiry. Caller holds mu.
func (c *verdictCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true

	for key, e := range c.entries {
		if first || e.expiresAt.Before(oldest) {
			oldestKey = key
			oldest = e.expiresAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
