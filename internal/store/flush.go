package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/coalton-labs/memvault/internal/model"
)

const archiveFilename = "archive.jsonl"

// Flush persists the full live set to shards under the cross-process
// lock, prunes shards that no longer correspond to any live record, and
// clears the journal. The journal is only cleared after every shard
// write succeeded; a crash mid-flush leaves it intact for replay.
func (e *Engine) Flush() error {
	if _, err := e.flushLock.Acquire(true); err != nil {
		return err
	}
	defer e.flushLock.Release()

	groups := e.shards.Partition(e.records)
	for key, recs := range groups {
		if err := e.shards.WriteShard(key, recs); err != nil {
			return err
		}
	}
	// Records removed or re-sharded since the last flush leave orphan
	// shard files behind; reloading those would resurrect them.
	for _, key := range e.shards.Index().Keys() {
		if _, ok := groups[key]; ok {
			continue
		}
		if err := e.shards.RemoveShard(key); err != nil {
			return err
		}
	}
	if err := e.shards.Index().Save(); err != nil {
		return err
	}
	if err := e.accesses.Save(); err != nil {
		return errors.Wrap(err, "save access counts")
	}
	if err := e.journal.Clear(); err != nil {
		return err
	}

	e.logger.WithFields(logrus.Fields{
		"records": len(e.records),
		"shards":  len(groups),
	}).Debug("flushed live set")
	return nil
}

// CompactResult reports what compaction changed.
type CompactResult struct {
	Before     int `json:"before"`
	Duplicates int `json:"duplicates_removed"`
	Archived   int `json:"archived"`
	After      int `json:"after"`
}

// Compact removes duplicate records, sweeps fully decayed records into
// the archive file, and rewrites shard storage from the compacted set.
// Archived records are appended to archive.jsonl, never deleted outright.
func (e *Engine) Compact() (CompactResult, error) {
	res := CompactResult{Before: len(e.records)}
	now := time.Now()

	seen := make(map[string]struct{}, len(e.records))
	var kept, archived []*model.Record
	for _, rec := range e.records {
		if _, dup := seen[rec.Hash]; dup {
			res.Duplicates++
			continue
		}
		seen[rec.Hash] = struct{}{}
		if e.decay.ShouldArchive(rec, now) {
			archived = append(archived, rec)
			continue
		}
		kept = append(kept, rec)
	}

	if len(archived) > 0 {
		if err := e.appendArchive(archived); err != nil {
			return res, err
		}
		res.Archived = len(archived)
	}

	e.records = kept
	e.hashes = make(map[string]struct{}, len(kept))
	for _, rec := range kept {
		e.hashes[rec.Hash] = struct{}{}
	}
	res.After = len(kept)

	e.results.Invalidate()
	e.shards.InvalidateCache()
	e.searcher.BuildIndex(e.records)
	if err := e.Flush(); err != nil {
		return res, err
	}

	e.logger.WithFields(logrus.Fields{
		"duplicates": res.Duplicates,
		"archived":   res.Archived,
		"after":      res.After,
	}).Info("compacted store")
	return res, nil
}

// appendArchive appends records to the archive file, one JSON line each.
func (e *Engine) appendArchive(records []*model.Record) error {
	path := filepath.Join(e.workspace, archiveFilename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open archive")
	}
	defer f.Close()

	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return errors.Wrap(err, "marshal archive record")
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			return errors.Wrap(err, "append archive record")
		}
	}
	return f.Sync()
}
