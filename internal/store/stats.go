package store

import (
	"github.com/coalton-labs/memvault/internal/access"
	"github.com/coalton-labs/memvault/internal/search"
	"github.com/coalton-labs/memvault/internal/shard"
)

// Stats is a point-in-time snapshot of the store's state across all
// layers: live set, shard index, journal, caches, and access tracking.
type Stats struct {
	Workspace  string         `json:"workspace"`
	Records    int            `json:"records"`
	Categories map[string]int `json:"categories"`
	Types      map[string]int `json:"types"`

	Shards shard.IndexStats `json:"shards"`
	Search search.Stats     `json:"search"`

	WALPending   int   `json:"wal_pending"`
	WALSizeBytes int64 `json:"wal_size_bytes"`

	CacheEntries int     `json:"cache_entries"`
	CacheHitRate float64 `json:"cache_hit_rate"`

	HotRecords []access.HashCount `json:"hot_records"`
}

// Stats collects diagnostics from every layer.
func (e *Engine) Stats() Stats {
	st := Stats{
		Workspace:    e.workspace,
		Records:      len(e.records),
		Categories:   map[string]int{},
		Types:        map[string]int{},
		Shards:       e.shards.Index().Stats(),
		Search:       e.searcher.IndexStats(),
		WALPending:   e.journal.PendingCount(),
		WALSizeBytes: e.journal.SizeBytes(),
		CacheEntries: e.results.Len(),
		CacheHitRate: e.results.HitRate(),
		HotRecords:   e.accesses.Top(5),
	}
	for _, rec := range e.records {
		st.Categories[rec.Category]++
		st.Types[string(rec.Type)]++
	}
	return st
}
