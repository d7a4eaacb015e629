// Package cache provides the bounded LRU read cache that fronts search.
// Entries hold full ranked result sets keyed by a deterministic query
// signature; any mutation of the record set invalidates everything.
package cache

import (
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/coalton-labs/memvault/internal/search"
)

// DefaultMaxEntries bounds the number of cached result sets.
const DefaultMaxEntries = 1000

// ReadCache is a bounded LRU over ranked search results.
type ReadCache struct {
	entries *lru.Cache[string, []search.Result]
	hits    int
	misses  int
}

// New creates a read cache. A non-positive size falls back to the
// default.
func New(maxEntries int) (*ReadCache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	entries, err := lru.New[string, []search.Result](maxEntries)
	if err != nil {
		return nil, err
	}
	return &ReadCache{entries: entries}, nil
}

// Key builds the deterministic signature for a search call. Every
// parameter that affects the result set participates, so two
// semantically identical calls hit the same entry.
func Key(query string, limit int, category string, tags []string, minScore float64, useDecay bool) string {
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	return fmt.Sprintf("q=%s|limit=%d|cat=%s|tags=%s|min=%g|decay=%t",
		strings.ToLower(strings.TrimSpace(query)), limit, category,
		strings.Join(sorted, ","), minScore, useDecay)
}

// Get returns the cached result set for a key, or a miss.
func (c *ReadCache) Get(key string) ([]search.Result, bool) {
	results, ok := c.entries.Get(key)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return results, ok
}

// Put stores a result set, evicting the least-recently-used entry when
// over capacity.
func (c *ReadCache) Put(key string, results []search.Result) {
	c.entries.Add(key, results)
}

// Invalidate clears the entire cache. Called by every mutating
// operation before it returns.
func (c *ReadCache) Invalidate() {
	c.entries.Purge()
}

// Len returns the number of cached result sets.
func (c *ReadCache) Len() int {
	return c.entries.Len()
}

// HitRate reports the fraction of lookups served from the cache.
func (c *ReadCache) HitRate() float64 {
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}
