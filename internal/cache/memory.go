package cache

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache holds model responses for the life of the process.
// Stored bytes are copied in and out so a caller decoding a response
// can never corrupt the entry other workers read.
type MemoryCache struct {
	items  *gocache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryCache creates a memory cache whose entries live for ttl.
// A non-positive ttl defaults to one hour.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryCache{
		items: gocache.New(ttl, cleanupInterval(ttl)),
	}
}

// cleanupInterval sweeps twice per TTL, bounded to [1m, 10m]
func cleanupInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/2, time.Minute), 10*time.Minute)
}

// Get returns a copy of the stored response
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := c.items.Get(key)
	if !found {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return clone(val.([]byte)), true
}

// Set stores a copy of value. A zero ttl uses the cache's default.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.items.Set(key, clone(value), ttl)
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) error {
	c.items.Delete(key)
	return nil
}

// Stats reports lookups served since the cache was created
func (c *MemoryCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.items.ItemCount(),
	}
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
