package fonts

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of measurements kept by NewCache(0).
const DefaultCacheSize = 4096

// cacheKey identifies one measurement.
type cacheKey struct {
	font string
	text string
	size float64
}

// Cache is a bounded LRU of string widths. It is safe for concurrent use.
type Cache struct {
	lru *lru.Cache[cacheKey, float64]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates a cache holding at most max entries.
func NewCache(max int) *Cache {
	if max <= 0 {
		max = DefaultCacheSize
	}
	// New only fails for a non-positive size
	l, _ := lru.New[cacheKey, float64](max)
	return &Cache{lru: l}
}

// Get returns a cached width and marks it recently used.
func (c *Cache) Get(font, text string, size float64) (float64, bool) {
	w, ok := c.lru.Get(cacheKey{font, text, size})
	if !ok {
		c.misses.Add(1)
		return 0, false
	}
	c.hits.Add(1)
	return w, true
}

// Put stores a width, evicting the least recently used entry when full.
func (c *Cache) Put(font, text string, size, width float64) {
	c.lru.Add(cacheKey{font, text, size}, width)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int { return c.lru.Len() }

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
