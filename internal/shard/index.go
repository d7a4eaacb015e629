package shard

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coalton-labs/memvault/internal/fsutil"
	"github.com/coalton-labs/memvault/internal/model"
)

const (
	indexFilename = "memory_index.json"
	formatVersion = "0.4.0"
)

var topicWordRe = regexp.MustCompile(`\w{3,}`)

// Entry summarizes one shard: record count, created-date span, topic set,
// and byte size. The index is a cache over the shard files and is always
// rebuildable from them.
type Entry struct {
	Count      int
	FirstEntry string
	LastEntry  string
	Topics     map[string]struct{}
	SizeBytes  int64
}

// Index tracks per-shard summary metadata in one compact file.
type Index struct {
	path    string
	entries map[Key]*Entry
	logger  logrus.FieldLogger
}

type indexEntryWire struct {
	DateKey    string   `json:"date_key"`
	TopicKey   string   `json:"topic_key"`
	Filename   string   `json:"filename"`
	Count      int      `json:"count"`
	FirstEntry string   `json:"first_entry"`
	LastEntry  string   `json:"last_entry"`
	Topics     []string `json:"topics"`
	SizeBytes  int64    `json:"size_bytes"`
}

type indexWire struct {
	Version     string           `json:"version"`
	UpdatedAt   string           `json:"updated_at"`
	TotalShards int              `json:"total_shards"`
	Shards      []indexEntryWire `json:"shards"`
}

// NewIndex loads the shard index from the workspace, degrading to an
// empty index on missing or corrupt data.
func NewIndex(workspace string, logger logrus.FieldLogger) *Index {
	idx := &Index{
		path:    filepath.Join(workspace, indexFilename),
		entries: make(map[Key]*Entry),
		logger:  logger,
	}
	idx.load()
	return idx
}

// Path returns the index file location.
func (idx *Index) Path() string {
	return idx.path
}

func (idx *Index) load() {
	raw, err := os.ReadFile(idx.path)
	if err != nil {
		return
	}
	var wire indexWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		idx.logger.WithError(err).Warn("corrupt shard index, starting empty")
		return
	}
	for _, e := range wire.Shards {
		topics := make(map[string]struct{}, len(e.Topics))
		for _, t := range e.Topics {
			topics[t] = struct{}{}
		}
		idx.entries[Key{DateKey: e.DateKey, TopicKey: e.TopicKey}] = &Entry{
			Count:      e.Count,
			FirstEntry: e.FirstEntry,
			LastEntry:  e.LastEntry,
			Topics:     topics,
			SizeBytes:  e.SizeBytes,
		}
	}
}

// Save writes the index atomically.
func (idx *Index) Save() error {
	wire := indexWire{
		Version:     formatVersion,
		UpdatedAt:   time.Now().Format(time.RFC3339Nano),
		TotalShards: len(idx.entries),
		Shards:      make([]indexEntryWire, 0, len(idx.entries)),
	}
	for _, key := range idx.sortedKeys() {
		e := idx.entries[key]
		topics := make([]string, 0, len(e.Topics))
		for t := range e.Topics {
			topics = append(topics, t)
		}
		sort.Strings(topics)
		wire.Shards = append(wire.Shards, indexEntryWire{
			DateKey:    key.DateKey,
			TopicKey:   key.TopicKey,
			Filename:   key.Filename(),
			Count:      e.Count,
			FirstEntry: e.FirstEntry,
			LastEntry:  e.LastEntry,
			Topics:     topics,
			SizeBytes:  e.SizeBytes,
		})
	}
	return fsutil.WriteJSONAtomic(idx.path, wire)
}

// SetShard registers or refreshes a shard's summary from its records.
func (idx *Index) SetShard(key Key, records []*model.Record) {
	if len(records) == 0 {
		delete(idx.entries, key)
		return
	}
	topics := make(map[string]struct{})
	for _, rec := range records {
		for _, tag := range rec.Tags {
			topics[tag] = struct{}{}
		}
		if rec.Category != "" {
			topics[rec.Category] = struct{}{}
		}
	}
	prev := idx.entries[key]
	entry := &Entry{
		Count:      len(records),
		FirstEntry: records[0].Created.Format(time.RFC3339Nano),
		LastEntry:  records[len(records)-1].Created.Format(time.RFC3339Nano),
		Topics:     topics,
	}
	if prev != nil {
		entry.SizeBytes = prev.SizeBytes
	}
	idx.entries[key] = entry
}

// SetSize records a shard's on-disk byte size.
func (idx *Index) SetSize(key Key, size int64) {
	if e, ok := idx.entries[key]; ok {
		e.SizeBytes = size
	}
}

// Remove drops a shard from the index.
func (idx *Index) Remove(key Key) {
	delete(idx.entries, key)
}

// Keys returns all shard keys, newest date bucket first.
func (idx *Index) Keys() []Key {
	return idx.sortedKeys()
}

// Entry returns the summary for a shard key, or nil.
func (idx *Index) Entry(key Key) *Entry {
	return idx.entries[key]
}

// Len returns the number of indexed shards.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// FindCandidates narrows which shards are worth opening for a query. A
// shard qualifies when its topic set intersects the query's derived
// keywords; general shards and queries with no usable keywords always
// qualify. Date range bounds are compared at month granularity.
func (idx *Index) FindCandidates(query string, dateFrom, dateTo, topicFilter string) []Key {
	queryWords := make(map[string]struct{})
	for _, w := range topicWordRe.FindAllString(strings.ToLower(query), -1) {
		queryWords[w] = struct{}{}
	}

	var candidates []Key
	for key, entry := range idx.entries {
		if dateFrom != "" && key.DateKey < monthKey(dateFrom) {
			continue
		}
		if dateTo != "" && key.DateKey > monthKey(dateTo) {
			continue
		}
		if topicFilter != "" && !strings.Contains(key.TopicKey, strings.ToLower(topicFilter)) {
			continue
		}

		if intersectsTopics(queryWords, entry.Topics) {
			candidates = append(candidates, key)
		} else if key.TopicKey == "general" || len(queryWords) == 0 {
			candidates = append(candidates, key)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DateKey != candidates[j].DateKey {
			return candidates[i].DateKey > candidates[j].DateKey
		}
		return candidates[i].TopicKey > candidates[j].TopicKey
	})
	return candidates
}

// Stats summarizes the index for diagnostics.
func (idx *Index) Stats() IndexStats {
	stats := IndexStats{
		DateDistribution:  map[string]int{},
		TopicDistribution: map[string]int{},
	}
	for key, e := range idx.entries {
		stats.TotalShards++
		stats.TotalRecords += e.Count
		stats.TotalSizeBytes += e.SizeBytes
		stats.DateDistribution[key.DateKey] += e.Count
		stats.TopicDistribution[key.TopicKey] += e.Count
	}
	return stats
}

// IndexStats aggregates shard metadata for stats reporting.
type IndexStats struct {
	TotalShards       int            `json:"total_shards"`
	TotalRecords      int            `json:"total_records"`
	TotalSizeBytes    int64          `json:"total_size_bytes"`
	DateDistribution  map[string]int `json:"date_distribution"`
	TopicDistribution map[string]int `json:"topic_distribution"`
}

func (idx *Index) sortedKeys() []Key {
	keys := make([]Key, 0, len(idx.entries))
	for k := range idx.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].DateKey != keys[j].DateKey {
			return keys[i].DateKey > keys[j].DateKey
		}
		return keys[i].TopicKey < keys[j].TopicKey
	})
	return keys
}

func intersectsTopics(queryWords map[string]struct{}, topics map[string]struct{}) bool {
	for t := range topics {
		if _, ok := queryWords[strings.ToLower(t)]; ok {
			return true
		}
	}
	return false
}

// monthKey truncates a YYYY-MM-DD date string to month granularity.
func monthKey(date string) string {
	if len(date) > 7 {
		return date[:7]
	}
	return date
}
