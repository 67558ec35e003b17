package fspath

import (
	"os"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
)

// DefaultCacheSize is the entry capacity used by New.
const DefaultCacheSize = 1024

// Cache maps the case-folded form of a path to the exact, case-correct path
// last verified on disk. Entries are validated on every Get by re-statting
// the stored path; entries whose target has vanished are evicted at that
// point rather than proactively, so a deleted file costs exactly one wasted
// stat before its entry is gone.
type Cache struct {
	fs  afero.Fs
	lru *lru.Cache[string, string]

	hits      atomic.Uint64
	misses    atomic.Uint64
	stale     atomic.Uint64
	evictions atomic.Uint64
}

// Stats is a snapshot of the cache counters.
type Stats struct {
	Hits      uint64 // Get returned a validated entry
	Misses    uint64 // Get found no entry for the folded key
	Stale     uint64 // Get found an entry whose target no longer stats
	Evictions uint64 // entries dropped by the LRU capacity bound
}

// NewCache creates a cache of at most capacity entries, validating entries
// against fsys. A capacity of zero or less falls back to DefaultCacheSize.
func NewCache(fsys afero.Fs, capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	l, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{fs: fsys, lru: l}, nil
}

// Insert stores path under its case-folded key, evicting the least recently
// used entry if the cache is full. Reinserting an equal key replaces the
// stored path and refreshes its recency.
func (c *Cache) Insert(path string) {
	if evicted := c.lru.Add(foldPath(path), path); evicted {
		c.evictions.Add(1)
	}
}

// Get looks up the case-folded form of path. On a hit the stored exact path
// is re-statted; if the stat fails the entry is evicted and Get reports a
// miss, so a hit always comes with fresh metadata for a path that existed a
// moment ago. A hit bumps the entry's recency.
func (c *Cache) Get(path string) (string, os.FileInfo, bool) {
	key := foldPath(path)
	exact, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return "", nil, false
	}
	fi, err := c.fs.Stat(exact)
	if err != nil {
		c.lru.Remove(key)
		c.stale.Add(1)
		return "", nil, false
	}
	c.hits.Add(1)
	return exact, fi, true
}

// Len returns the number of cached paths.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Stale:     c.stale.Load(),
		Evictions: c.evictions.Load(),
	}
}

// foldPath lowercases the textual form of a path. Paths that are not valid
// UTF-8 fold to themselves, so they bypass case-insensitive matching and
// only ever match their own exact bytes.
func foldPath(path string) string {
	if !utf8.ValidString(path) {
		return path
	}
	return strings.ToLower(path)
}
