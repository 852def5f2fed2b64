package resilience

import (
	"sync"
	"time"

	"github.com/stanza-ai/stanza/pkg/models"
)

// ResponseCache is a bounded FIFO-with-TTL cache mapping request
// fingerprints to the last successful response payload.
//
// It is deliberately not an LRU: eviction follows insertion order, so an
// infrequently used but still valid fingerprint is not starved by hot
// keys. TTL expiry removes an entry from the fresh hit path (Get) but the
// payload stays readable through PeekStale until it is overwritten or the
// entry-count bound evicts it; that is what lets the client serve "what we
// have" while the endpoint is down.
//
// All methods are safe for concurrent use and atomic with respect to each
// other.
type ResponseCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	order      []string // fingerprints in insertion order, oldest first
	maxEntries int
	ttl        time.Duration

	hits      int64
	misses    int64
	staleHits int64
	evictions int64
}

type cacheEntry struct {
	payload  []byte
	storedAt time.Time
}

// NewResponseCache creates a cache bounded to maxEntries with the given
// fresh-read TTL.
func NewResponseCache(maxEntries int, ttl time.Duration) *ResponseCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &ResponseCache{
		entries:    make(map[string]*cacheEntry, maxEntries),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get returns the payload for a fingerprint if it is present and fresh.
// Expired entries miss here but remain reachable through PeekStale.
func (c *ResponseCache) Get(fingerprint string) ([]byte, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fingerprint]
	if !ok || time.Since(entry.storedAt) > c.ttl {
		c.misses++
		return nil, time.Time{}, false
	}
	c.hits++
	return entry.payload, entry.storedAt, true
}

// PeekStale returns the last stored payload even if it has expired. Only
// the degraded path uses it; the normal hit path never does.
func (c *ResponseCache) PeekStale(fingerprint string) ([]byte, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fingerprint]
	if !ok {
		return nil, time.Time{}, false
	}
	c.staleHits++
	return entry.payload, entry.storedAt, true
}

// Put inserts or overwrites the payload for a fingerprint. When the bound
// would be exceeded, the least-recently-inserted entry is evicted first.
func (c *ResponseCache) Put(fingerprint string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[fingerprint]; ok {
		// Overwrite counts as a fresh insertion for eviction order.
		c.removeFromOrder(fingerprint)
	} else if len(c.entries) >= c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		c.evictions++
	}

	c.entries[fingerprint] = &cacheEntry{payload: payload, storedAt: time.Now()}
	c.order = append(c.order, fingerprint)
}

// Clear drops all entries.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry, c.maxEntries)
	c.order = nil
}

// Stats returns cache performance counters.
func (c *ResponseCache) Stats() models.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.CacheStats{
		Entries:   int64(len(c.entries)),
		Hits:      c.hits,
		Misses:    c.misses,
		StaleHits: c.staleHits,
		Evictions: c.evictions,
	}
}

func (c *ResponseCache) removeFromOrder(fingerprint string) {
	for i, fp := range c.order {
		if fp == fingerprint {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
