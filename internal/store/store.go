// Package store wires sharded persistence, the write-ahead log, decay
// scoring, ranked search, and the read cache into one storage engine.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/coalton-labs/memvault/internal/access"
	"github.com/coalton-labs/memvault/internal/cache"
	"github.com/coalton-labs/memvault/internal/config"
	"github.com/coalton-labs/memvault/internal/decay"
	"github.com/coalton-labs/memvault/internal/lock"
	"github.com/coalton-labs/memvault/internal/model"
	"github.com/coalton-labs/memvault/internal/search"
	"github.com/coalton-labs/memvault/internal/shard"
	"github.com/coalton-labs/memvault/internal/wal"
)

const legacyFilename = "memory_metadata.json"

// Priority classifies how much an ingest line is worth keeping. Noise
// lines are dropped before they become records.
type Priority int

// Gate priorities, highest first.
const (
	PriorityHigh Priority = iota
	PriorityNormal
	PriorityLow
	PriorityNoise
)

// IngestGate filters raw lines before they become records. A nil gate
// admits everything.
type IngestGate interface {
	Classify(line string) Priority
}

// SentimentAnalyzer scores record content with label weights. A nil
// analyzer leaves sentiment empty.
type SentimentAnalyzer interface {
	Analyze(text string) map[string]float64
}

// Store is the engine's operation surface.
type Store interface {
	Ingest(p IngestParams) (int, error)
	Search(p SearchParams) ([]search.Result, error)
	Flush() error
	Compact() (CompactResult, error)
	Close() error
}

// Engine owns the in-memory record set, the single source of truth
// between load and flush. One Engine per goroutine; cross-process
// coordination happens through the flush lock on disk.
type Engine struct {
	workspace string
	cfg       config.Config
	logger    logrus.FieldLogger

	records []*model.Record
	hashes  map[string]struct{}

	decay     *decay.Engine
	searcher  *search.Engine
	shards    *shard.Manager
	journal   *wal.Log
	results   *cache.ReadCache
	accesses  *access.Tracker
	flushLock *lock.DirLock

	sentiment SentimentAnalyzer
	gate      IngestGate
}

var _ Store = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithConfig overrides the default configuration.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithSentiment plugs in a sentiment analyzer applied at ingest time.
func WithSentiment(s SentimentAnalyzer) Option {
	return func(e *Engine) { e.sentiment = s }
}

// WithGate plugs in an input-priority gate applied at ingest time.
func WithGate(g IngestGate) Option {
	return func(e *Engine) { e.gate = g }
}

// Open loads (or creates) a store rooted at workspace: shards are read
// up to the load cap, pending journal entries are replayed idempotently,
// and the search index is built over the resulting live set.
func Open(workspace string, opts ...Option) (*Engine, error) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve workspace %s", workspace)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create workspace %s", abs)
	}

	defaultLogger := logrus.New()
	defaultLogger.SetLevel(logrus.WarnLevel)

	e := &Engine{
		workspace: abs,
		cfg:       config.Default(),
		logger:    defaultLogger,
		hashes:    map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg.Normalize()

	e.decay = decay.NewEngine(e.cfg.HalfLifeDays, e.cfg.ArchiveThreshold, e.cfg.ReinforceBoost, e.cfg.MaxScore)
	e.searcher = search.NewEngine()
	e.journal = wal.New(abs, e.cfg.FlushInterval, e.cfg.WALMaxBytes, e.logger)
	e.accesses = access.NewTracker(abs)

	e.shards, err = shard.NewManager(abs, e.cfg.ShardCacheShards, e.logger)
	if err != nil {
		return nil, err
	}
	e.results, err = cache.New(e.cfg.CacheEntries)
	if err != nil {
		return nil, errors.Wrap(err, "create read cache")
	}
	e.flushLock = lock.New(e.shards.Index().Path(), e.logger,
		lock.WithTimeout(e.cfg.LockTimeout), lock.WithStaleAfter(e.cfg.LockStaleAfter))

	e.load()
	e.replayWAL()
	e.searcher.BuildIndex(e.records)
	return e, nil
}

// load fills the live set from shards, falling back to the legacy
// single-file layout when no shards exist yet.
func (e *Engine) load() {
	e.records = e.shards.LoadAll(e.cfg.LoadLimit)
	if len(e.records) == 0 {
		e.records = e.loadLegacy()
	}
	for _, rec := range e.records {
		e.hashes[rec.Hash] = struct{}{}
	}
	if len(e.records) > 0 {
		e.logger.WithField("records", len(e.records)).Debug("loaded live set")
	}
}

// loadLegacy reads the pre-sharding single-file format. Best effort:
// missing or corrupt data degrades to empty.
func (e *Engine) loadLegacy() []*model.Record {
	raw, err := os.ReadFile(filepath.Join(e.workspace, legacyFilename))
	if err != nil {
		return nil
	}
	var wire struct {
		Memories []*model.Record `json:"memories"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		e.logger.WithError(err).Warn("corrupt legacy store, ignoring")
		return nil
	}
	return wire.Memories
}

// replayWAL merges pending journal entries into the live set. Entries
// whose identity hash is already present are skipped, so replay stays
// idempotent across repeated crash recoveries.
func (e *Engine) replayWAL() {
	pending := e.journal.LoadPending()
	replayed := 0
	for _, rec := range pending {
		if _, ok := e.hashes[rec.Hash]; ok {
			continue
		}
		e.records = append(e.records, rec)
		e.hashes[rec.Hash] = struct{}{}
		replayed++
	}
	if len(pending) > 0 {
		e.logger.WithFields(logrus.Fields{
			"pending":  len(pending),
			"replayed": replayed,
		}).Info("replayed write-ahead log")
	}
}

// Close releases any lock still held by this instance.
func (e *Engine) Close() error {
	e.flushLock.Release()
	return nil
}

// Workspace returns the store's root directory.
func (e *Engine) Workspace() string {
	return e.workspace
}

// IndexPath returns the shard index file location. The registry watches
// its mtime to detect writes from other processes.
func (e *Engine) IndexPath() string {
	return e.shards.Index().Path()
}

// Len returns the live record count.
func (e *Engine) Len() int {
	return len(e.records)
}

// Get returns the live record with the given identity hash.
func (e *Engine) Get(hash string) (*model.Record, bool) {
	for _, rec := range e.records {
		if rec.Hash == hash {
			return rec, true
		}
	}
	return nil, false
}

// WALPendingCount exposes the journal's in-process pending-write counter.
func (e *Engine) WALPendingCount() int {
	return e.journal.PendingCount()
}
