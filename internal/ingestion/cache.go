package ingestion

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cartograph/carto/internal/record"
)

// DefaultCacheSize bounds the number of cached parse results.
const DefaultCacheSize = 4096

// ParseCache memoizes parse results across pipeline runs. The key is
// path plus content hash, so an edited file misses and a renamed file
// with identical content still misses (its record carries the path).
// Cached records hold raw module imports; import resolution happens
// per run, after the full path set is known.
type ParseCache struct {
	lru *lru.Cache[string, *record.FileRecord]
}

// NewParseCache creates a cache bounded to size entries.
func NewParseCache(size int) (*ParseCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	inner, err := lru.New[string, *record.FileRecord](size)
	if err != nil {
		return nil, err
	}
	return &ParseCache{lru: inner}, nil
}

// Get returns the cached record for the entry, if present.
func (c *ParseCache) Get(entry FileEntry) (*record.FileRecord, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(cacheKey(entry))
}

// Put stores a parse result. The record must not be mutated afterwards;
// consumers that rewrite imports work on a copy.
func (c *ParseCache) Put(entry FileEntry, rec *record.FileRecord) {
	if c == nil {
		return
	}
	c.lru.Add(cacheKey(entry), rec)
}

// Len returns the number of cached records.
func (c *ParseCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func cacheKey(entry FileEntry) string {
	return entry.RelPath + "@" + entry.SHA256
}
