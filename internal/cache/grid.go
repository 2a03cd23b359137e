package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/driftline/stratus/grib2"
)

// GridCache caches decoded grids keyed by dataset id - NOT by tile.
// One decoded grid serves every tile cut from it, so the win per entry
// is large and so is the footprint (megabytes of float32); the cache is
// therefore bounded by entry count rather than bytes.
type GridCache struct {
	lru *lru.Cache[string, *grib2.Field]
}

// NewGridCache builds a grid cache holding up to entries decoded grids.
func NewGridCache(entries int) (*GridCache, error) {
	l, err := lru.New[string, *grib2.Field](entries)
	if err != nil {
		return nil, err
	}
	return &GridCache{lru: l}, nil
}

// Get returns the decoded grid for a dataset id.
func (c *GridCache) Get(datasetID string) (*grib2.Field, bool) {
	return c.lru.Get(datasetID)
}

// Put stores a decoded grid.
func (c *GridCache) Put(datasetID string, f *grib2.Field) {
	c.lru.Add(datasetID, f)
}

// Len returns the number of cached grids.
func (c *GridCache) Len() int {
	return c.lru.Len()
}
