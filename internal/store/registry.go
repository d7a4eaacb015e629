package store

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/coalton-labs/memvault/internal/version"
)

// Registry hands out one Engine per workspace and reopens an engine when
// another process has flushed since it was loaded. External writes are
// detected by version-checking the shard index file. Long-lived callers
// go through the registry instead of holding an Engine across other
// processes' writes.
type Registry struct {
	mu      sync.Mutex
	logger  logrus.FieldLogger
	opts    []Option
	tracker *version.Tracker
	entries map[string]*registryEntry
}

type registryEntry struct {
	engine *Engine
	index  version.FileVersion
	seen   bool // index file existed when the snapshot was taken
}

// NewRegistry creates a registry. The options are applied to every
// engine it opens.
func NewRegistry(logger logrus.FieldLogger, opts ...Option) *Registry {
	return &Registry{
		logger:  logger,
		opts:    append([]Option{WithLogger(logger)}, opts...),
		tracker: version.NewTracker(false),
		entries: map[string]*registryEntry{},
	}
}

// Get returns the engine for a workspace, opening or reopening it as
// needed.
func (r *Registry) Get(workspace string) (*Engine, error) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[abs]; ok {
		if r.fresh(entry) {
			return entry.engine, nil
		}
		r.logger.WithField("workspace", abs).Debug("shard index changed on disk, reopening")
		entry.engine.Close()
		delete(r.entries, abs)
	}

	engine, err := Open(abs, r.opts...)
	if err != nil {
		return nil, err
	}
	entry := &registryEntry{engine: engine}
	if snap, err := r.tracker.Snapshot(engine.IndexPath()); err == nil {
		entry.index = snap
		entry.seen = true
	}
	r.entries[abs] = entry
	return engine, nil
}

// fresh reports whether the engine's view of the workspace still matches
// the shard index on disk.
func (r *Registry) fresh(entry *registryEntry) bool {
	if !entry.seen {
		// No index existed at open time; any index now means a flush
		// happened elsewhere.
		_, err := os.Stat(entry.engine.IndexPath())
		return err != nil
	}
	return r.tracker.Check(entry.index) == nil
}

// Close closes every open engine.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ws, entry := range r.entries {
		entry.engine.Close()
		delete(r.entries, ws)
	}
}
