// Package access persists per-record access counts and converts them
// into a bounded search boost for frequently retrieved records.
package access

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/coalton-labs/memvault/internal/fsutil"
)

const (
	countsFilename = "access_counts.json"

	// Boost range and saturation point: the multiplier grows linearly
	// from 1.0 to 1.5 and saturates at hotThreshold accesses.
	boostMin     = 1.0
	boostMax     = 1.5
	hotThreshold = 10
)

// Tracker records how often each record (by identity hash) is retrieved.
// Counts live at <workspace>/access_counts.json as a flat JSON object and
// are rewritten atomically on Save.
type Tracker struct {
	path   string
	counts map[string]int
}

// NewTracker loads existing counts; missing or corrupt data degrades to
// an empty tracker.
func NewTracker(workspace string) *Tracker {
	t := &Tracker{
		path:   filepath.Join(workspace, countsFilename),
		counts: map[string]int{},
	}
	raw, err := os.ReadFile(t.path)
	if err != nil {
		return t
	}
	var counts map[string]int
	if err := json.Unmarshal(raw, &counts); err != nil || counts == nil {
		return t
	}
	t.counts = counts
	return t
}

// Record increments the access count for a record hash.
func (t *Tracker) Record(hash string) {
	t.counts[hash]++
}

// Count returns the current access count for a record hash.
func (t *Tracker) Count(hash string) int {
	return t.counts[hash]
}

// Boost returns a score multiplier in [1.0, 1.5] scaled linearly by
// access count up to the saturation point.
func (t *Tracker) Boost(hash string) float64 {
	count := t.counts[hash]
	if count <= 0 {
		return boostMin
	}
	ratio := float64(count) / hotThreshold
	if ratio > 1 {
		ratio = 1
	}
	return boostMin + ratio*(boostMax-boostMin)
}

// Top returns the n hottest (hash, count) pairs, hottest first.
func (t *Tracker) Top(n int) []HashCount {
	pairs := make([]HashCount, 0, len(t.counts))
	for h, c := range t.counts {
		pairs = append(pairs, HashCount{Hash: h, Count: c})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		return pairs[i].Hash < pairs[j].Hash
	})
	if n < len(pairs) {
		pairs = pairs[:n]
	}
	return pairs
}

// HashCount is one entry of the hot list.
type HashCount struct {
	Hash  string `json:"hash"`
	Count int    `json:"count"`
}

// Len returns the number of tracked records.
func (t *Tracker) Len() int {
	return len(t.counts)
}

// Save rewrites the counts file atomically.
func (t *Tracker) Save() error {
	return fsutil.WriteJSONAtomic(t.path, t.counts)
}
