package shard

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/coalton-labs/memvault/internal/fsutil"
	"github.com/coalton-labs/memvault/internal/model"
)

const (
	shardsDirName = "shards"

	// DefaultCacheShards bounds the shard read cache.
	DefaultCacheShards = 10
	// DefaultLoadLimit caps LoadAll when the caller passes no limit.
	DefaultLoadLimit = 10000
)

// shardWire is the pinned on-disk shard format.
type shardWire struct {
	ShardKey string          `json:"shard_key"`
	DateKey  string          `json:"date_key"`
	TopicKey string          `json:"topic_key"`
	Version  string          `json:"version"`
	SavedAt  string          `json:"saved_at"`
	Count    int             `json:"count"`
	Memories []*model.Record `json:"memories"`
}

// Manager partitions records into shard files and reads them back,
// keeping the N most recently read shards in a bounded cache.
type Manager struct {
	shardsDir string
	index     *Index
	cache     *lru.Cache[Key, []*model.Record]
	logger    logrus.FieldLogger
}

// NewManager creates a shard manager rooted at workspace.
func NewManager(workspace string, cacheShards int, logger logrus.FieldLogger) (*Manager, error) {
	if cacheShards <= 0 {
		cacheShards = DefaultCacheShards
	}
	shardsDir := filepath.Join(workspace, shardsDirName)
	if err := os.MkdirAll(shardsDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create shards dir %s", shardsDir)
	}
	cache, err := lru.New[Key, []*model.Record](cacheShards)
	if err != nil {
		return nil, errors.Wrap(err, "create shard cache")
	}
	return &Manager{
		shardsDir: shardsDir,
		index:     NewIndex(workspace, logger),
		cache:     cache,
		logger:    logger,
	}, nil
}

// Index exposes the shard index.
func (m *Manager) Index() *Index {
	return m.index
}

// Partition groups records by their derived shard key.
func (m *Manager) Partition(records []*model.Record) map[Key][]*model.Record {
	groups := make(map[Key][]*model.Record)
	for _, rec := range records {
		key := KeyFor(rec)
		groups[key] = append(groups[key], rec)
	}
	return groups
}

// WriteShard serializes one shard atomically and refreshes its index
// entry, including the actual on-disk size.
func (m *Manager) WriteShard(key Key, records []*model.Record) error {
	wire := shardWire{
		ShardKey: key.String(),
		DateKey:  key.DateKey,
		TopicKey: key.TopicKey,
		Version:  formatVersion,
		SavedAt:  time.Now().Format(time.RFC3339Nano),
		Count:    len(records),
		Memories: records,
	}
	path := filepath.Join(m.shardsDir, key.Filename())
	if err := fsutil.WriteJSONAtomic(path, wire); err != nil {
		return errors.Wrapf(err, "write shard %s", key)
	}

	m.index.SetShard(key, records)
	if info, err := os.Stat(path); err == nil {
		m.index.SetSize(key, info.Size())
	}
	m.cache.Add(key, records)
	return nil
}

// ReadShard loads one shard's records. A missing or corrupt shard file is
// treated as an empty shard, never as a fatal error.
func (m *Manager) ReadShard(key Key) []*model.Record {
	if cached, ok := m.cache.Get(key); ok {
		return cached
	}

	path := filepath.Join(m.shardsDir, key.Filename())
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.WithError(err).WithField("shard", key.String()).Warn("unreadable shard, treating as empty")
		}
		return nil
	}
	var wire shardWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		m.logger.WithError(err).WithField("shard", key.String()).Warn("corrupt shard, treating as empty")
		return nil
	}

	m.cache.Add(key, wire.Memories)
	return wire.Memories
}

// LoadAll concatenates all shards, newest date bucket first, up to the
// safety cap. Hitting the cap logs a warning instead of silently
// truncating.
func (m *Manager) LoadAll(limit int) []*model.Record {
	if limit <= 0 {
		limit = DefaultLoadLimit
	}
	var all []*model.Record
	for _, key := range m.index.Keys() {
		all = append(all, m.ReadShard(key)...)
		if len(all) >= limit {
			m.logger.WithFields(logrus.Fields{
				"limit":  limit,
				"loaded": len(all),
			}).Warn("record load cap reached, older shards skipped")
			return all[:limit]
		}
	}
	return all
}

// FindCandidates narrows which shards are worth opening for a query.
func (m *Manager) FindCandidates(query, dateFrom, dateTo, topicFilter string) []Key {
	return m.index.FindCandidates(query, dateFrom, dateTo, topicFilter)
}

// RemoveShard deletes a shard file and its index entry.
func (m *Manager) RemoveShard(key Key) error {
	path := filepath.Join(m.shardsDir, key.Filename())
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove shard %s", key)
	}
	m.index.Remove(key)
	m.cache.Remove(key)
	return nil
}

// RebuildIndex reconstructs the index purely from the shard files. The
// index is advisory; the shard files are the source of truth.
func (m *Manager) RebuildIndex() error {
	entries, err := os.ReadDir(m.shardsDir)
	if err != nil {
		return errors.Wrapf(err, "scan shards dir %s", m.shardsDir)
	}

	m.index.entries = make(map[Key]*Entry)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "shard_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(m.shardsDir, name))
		if err != nil {
			m.logger.WithError(err).WithField("file", name).Warn("skipping unreadable shard during rebuild")
			continue
		}
		var wire shardWire
		if err := json.Unmarshal(raw, &wire); err != nil {
			m.logger.WithError(err).WithField("file", name).Warn("skipping corrupt shard during rebuild")
			continue
		}
		key := Key{DateKey: wire.DateKey, TopicKey: wire.TopicKey}
		m.index.SetShard(key, wire.Memories)
		m.index.SetSize(key, int64(len(raw)))
	}
	return m.index.Save()
}

// InvalidateCache drops all cached shards.
func (m *Manager) InvalidateCache() {
	m.cache.Purge()
}
