// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize bounds how many rendered messages are kept. Older
// messages scrolled out of use are evicted first and re-render on demand.
const DefaultCacheSize = 512

// Cache memoizes displayables per message. An entry is reused only while
// the message content, width and theme generation are unchanged; any
// change re-renders the message in place.
//
// Thread-safety: the underlying LRU is synchronized; counters are atomic.
type Cache struct {
	entries *lru.Cache
	hits    atomic.Uint64
	misses  atomic.Uint64
}

type cacheEntry struct {
	hash  string
	width int
	gen   uint64
	disp  Displayable
}

// NewCache creates an empty cache holding up to DefaultCacheSize messages.
func NewCache() *Cache {
	return NewCacheSize(DefaultCacheSize)
}

// NewCacheSize creates an empty cache holding up to size messages.
// Non-positive sizes fall back to DefaultCacheSize.
func NewCacheSize(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only fails for non-positive sizes.
	entries, _ := lru.New(size)
	return &Cache{entries: entries}
}

// Get returns the cached displayable for id if it still matches.
func (c *Cache) Get(id, content string, width int, gen uint64) (Displayable, bool) {
	v, ok := c.entries.Get(id)
	if ok {
		e := v.(cacheEntry)
		if e.width == width && e.gen == gen && e.hash == hashContent(content) {
			c.hits.Add(1)
			return e.disp, true
		}
	}
	c.misses.Add(1)
	return Displayable{}, false
}

// Put stores a displayable, replacing any previous render of id.
func (c *Cache) Put(id, content string, width int, gen uint64, d Displayable) {
	c.entries.Add(id, cacheEntry{hash: hashContent(content), width: width, gen: gen, disp: d})
}

// Len returns the number of cached messages.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Reset drops every entry. Counters are kept.
func (c *Cache) Reset() {
	c.entries.Purge()
}

// Stats returns (hits, misses, hit rate %).
func (c *Cache) Stats() (hits, misses uint64, rate float64) {
	hits, misses = c.hits.Load(), c.misses.Load()
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total) * 100.0
	}
	return
}

// hashContent computes a SHA-256 hash of the content for change detection.
func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
