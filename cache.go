package boltpage

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// RenderCache is a bounded least-recently-used map from Fingerprint to
// rendered HTML. Get promotes on hit, Put evicts the least-recently-used
// entry past capacity, and InvalidatePath removes every entry for a path in
// one step.
//
// The non-locking simplelru core is wrapped with a single mutex so the bulk
// invalidation is atomic with respect to concurrent Get/Put; an entry is
// never partially visible.
type RenderCache struct {
	mu  sync.Mutex
	lru *simplelru.LRU[Fingerprint, string]
}

// NewRenderCache creates a cache bounded to capacity entries. Non-positive
// capacities fall back to DefaultCacheCapacity.
func NewRenderCache(capacity int) *RenderCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	// Error is only possible for non-positive sizes, which are clamped above.
	lru, _ := simplelru.NewLRU[Fingerprint, string](capacity, nil)
	return &RenderCache{lru: lru}
}

// Get returns the HTML stored for fp and promotes it to most-recently-used.
func (c *RenderCache) Get(fp Fingerprint) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(fp)
}

// Put inserts or overwrites the entry for fp, evicting the
// least-recently-used entry if capacity is exceeded.
func (c *RenderCache) Put(fp Fingerprint, html string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(fp, html)
}

// InvalidatePath removes every entry whose fingerprint path matches,
// regardless of theme or stale size/time.
func (c *RenderCache) InvalidatePath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.lru.Keys() {
		if key.Path == path {
			c.lru.Remove(key)
		}
	}
}

// Len reports the number of cached entries.
func (c *RenderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
