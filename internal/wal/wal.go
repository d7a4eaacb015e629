// Package wal implements the append-only write-ahead log that makes
// ingestion durable before shard persistence.
package wal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/coalton-labs/memvault/internal/model"
)

const (
	walDir      = ".wal"
	walFilename = "pending.jsonl"

	// DefaultFlushInterval is the append count that triggers auto-flush.
	DefaultFlushInterval = 50
	// DefaultMaxSizeBytes is the journal size that triggers auto-flush.
	DefaultMaxSizeBytes = 1_000_000
)

// Log is the append-only journal. One serialized record per line, no
// header or footer. The pending-write counter is in-process only;
// pending count checks never re-scan the file.
type Log struct {
	path          string
	flushInterval int
	maxSizeBytes  int64
	writeCount    int
	logger        logrus.FieldLogger
}

// New creates a write-ahead log rooted at workspace. Zero thresholds fall
// back to the defaults.
func New(workspace string, flushInterval int, maxSizeBytes int64, logger logrus.FieldLogger) *Log {
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	if maxSizeBytes <= 0 {
		maxSizeBytes = DefaultMaxSizeBytes
	}
	return &Log{
		path:          filepath.Join(workspace, walDir, walFilename),
		flushInterval: flushInterval,
		maxSizeBytes:  maxSizeBytes,
		logger:        logger,
	}
}

// Append serializes one record and appends it as a JSON line. The record
// is durable once Append returns.
func (l *Log) Append(rec *model.Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal wal entry")
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return errors.Wrap(err, "create wal dir")
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open wal")
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return errors.Wrap(err, "append wal entry")
	}
	if err := f.Sync(); err != nil {
		return errors.Wrap(err, "sync wal")
	}
	l.writeCount++
	return nil
}

// LoadPending reads the journal and returns all valid entries in append
// order. Lines that fail to parse (partial writes from a crash mid-append)
// are skipped so replay never blocks startup. The pending counter is reset
// to the number of valid entries found.
func (l *Log) LoadPending() []*model.Record {
	f, err := os.Open(l.path)
	if err != nil {
		l.writeCount = 0
		return nil
	}
	defer f.Close()

	var entries []*model.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec model.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			l.logger.WithError(err).Debug("skipping corrupt wal line")
			continue
		}
		entries = append(entries, &rec)
	}
	if err := scanner.Err(); err != nil {
		l.logger.WithError(err).Warn("wal read stopped early")
	}
	l.writeCount = len(entries)
	return entries
}

// Clear deletes the journal and resets the pending counter. Call only
// after the pending entries are safely reflected in shard storage.
func (l *Log) Clear() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "clear wal")
	}
	l.writeCount = 0
	return nil
}

// PendingCount returns the in-process pending-write counter. O(1), no
// file I/O.
func (l *Log) PendingCount() int {
	return l.writeCount
}

// SizeBytes returns the journal's current size on disk.
func (l *Log) SizeBytes() int64 {
	info, err := os.Stat(l.path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// ShouldFlush reports whether either flush threshold has been reached.
func (l *Log) ShouldFlush() bool {
	return l.writeCount >= l.flushInterval || l.SizeBytes() >= l.maxSizeBytes
}

// Exists reports whether the journal file is present on disk.
func (l *Log) Exists() bool {
	_, err := os.Stat(l.path)
	return err == nil
}
