// Package cache provides an in-process LRU cache for retrieval results.
// Entries expire on a TTL and an index generation counter, so callers
// can invalidate everything after an ingestion run.
//
// The cache only pays off in long-lived processes serving repeated
// queries (the library embedded in a service). The one-shot CLI wires
// it for configuration parity; a single query per process never hits.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"docrag/internal/domain"
)

// QueryCache caches retrieval results keyed by (query, k).
type QueryCache struct {
	mu       sync.RWMutex
	entries  map[string]*cacheEntry
	order    []string
	maxSize  int
	ttl      time.Duration
	indexGen uint64
}

type cacheEntry struct {
	results   []domain.ScoredChunk
	timestamp time.Time
	indexGen  uint64
}

// NewQueryCache creates a cache holding at most maxSize entries, each
// valid for ttl.
func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(query string, k int) string {
	data := []byte(query)
	data = append(data, byte(k>>8), byte(k))
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

// Get returns the cached results for a query, if present, fresh, and
// from the current index generation.
func (c *QueryCache) Get(query string, k int) ([]domain.ScoredChunk, bool) {
	c.mu.RLock()
	key := cacheKey(query, k)
	entry, exists := c.entries[key]
	currentGen := c.indexGen
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if time.Since(entry.timestamp) > c.ttl || entry.indexGen != currentGen {
		c.mu.Lock()
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.moveToEnd(key)
	c.mu.Unlock()

	return entry.results, true
}

// Put stores results for a query, evicting the least recently used
// entry when full.
func (c *QueryCache) Put(query string, k int, results []domain.ScoredChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, k)

	if _, exists := c.entries[key]; exists {
		c.entries[key] = &cacheEntry{
			results:   results,
			timestamp: time.Now(),
			indexGen:  c.indexGen,
		}
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &cacheEntry{
		results:   results,
		timestamp: time.Now(),
		indexGen:  c.indexGen,
	}
	c.order = append(c.order, key)
}

// Invalidate drops every entry and bumps the index generation, so
// results cached before an ingestion run are never served after it.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
	c.indexGen++
}

// Size returns the number of live entries.
func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Retriever is the retrieval surface the cache wraps.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}

// CachedRetriever serves repeated queries from the cache, consulting
// the underlying retriever only on a miss. Errors are never cached.
type CachedRetriever struct {
	retriever Retriever
	cache     *QueryCache
}

// NewCachedRetriever wraps a retriever with a cache.
func NewCachedRetriever(retriever Retriever, cache *QueryCache) *CachedRetriever {
	return &CachedRetriever{retriever: retriever, cache: cache}
}

func (r *CachedRetriever) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if results, hit := r.cache.Get(query, k); hit {
		return results, nil
	}

	results, err := r.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}

	r.cache.Put(query, k, results)
	return results, nil
}
