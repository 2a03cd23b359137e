// Package cache implements the tile service's storage tiers: an
// in-process LRU for encoded tiles (L1), an entry-bounded cache for
// decoded grids, and a Redis-backed shared tile cache (L2).
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Entry is one cached encoded tile.
type Entry struct {
	Bytes       []byte
	ContentType string
	ETag        string
	ProducedAt  time.Time
}

// TileCache is the L1 in-process tile cache: a size-bounded LRU with a
// per-entry admission cap and a TTL ceiling.
type TileCache struct {
	lru      *lru.Cache[string, Entry]
	maxBytes int
	ttl      time.Duration
}

// NewTileCache builds an L1 cache holding up to entries tiles. Values
// larger than maxBytes are not admitted; ttl bounds entry age (0 means
// no TTL).
func NewTileCache(entries, maxBytes int, ttl time.Duration) (*TileCache, error) {
	l, err := lru.New[string, Entry](entries)
	if err != nil {
		return nil, err
	}
	return &TileCache{lru: l, maxBytes: maxBytes, ttl: ttl}, nil
}

// Get returns the cached entry for a fingerprint.
func (c *TileCache) Get(fingerprint string) (Entry, bool) {
	e, ok := c.lru.Get(fingerprint)
	if !ok {
		return Entry{}, false
	}
	if c.ttl > 0 && time.Since(e.ProducedAt) > c.ttl {
		c.lru.Remove(fingerprint)
		return Entry{}, false
	}
	return e, true
}

// Put admits an entry unless it exceeds the per-entry cap.
func (c *TileCache) Put(fingerprint string, e Entry) {
	if c.maxBytes > 0 && len(e.Bytes) > c.maxBytes {
		return
	}
	c.lru.Add(fingerprint, e)
}

// Remove evicts a fingerprint.
func (c *TileCache) Remove(fingerprint string) {
	c.lru.Remove(fingerprint)
}

// Len returns the number of cached tiles.
func (c *TileCache) Len() int {
	return c.lru.Len()
}
