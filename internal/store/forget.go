package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/coalton-labs/memvault/internal/fsutil"
	"github.com/coalton-labs/memvault/internal/model"
)

const (
	auditFilename = "memory_audit.json"
	auditKeepMax  = 500
)

// auditEntry records one forgetting operation for later review.
type auditEntry struct {
	ID         string   `json:"id"`
	Operation  string   `json:"operation"`
	Timestamp  string   `json:"timestamp"`
	Count      int      `json:"count"`
	Hashes     []string `json:"hashes"`
	Sources    []string `json:"sources"`
	Categories []string `json:"categories"`
}

// ForgetTopic removes every record whose content or tags mention the
// topic. Returns the number of records forgotten.
func (e *Engine) ForgetTopic(topic string) (int, error) {
	needle := strings.ToLower(strings.TrimSpace(topic))
	if needle == "" {
		return 0, errors.New("empty topic")
	}
	return e.forget("forget_topic", func(rec *model.Record) bool {
		if strings.Contains(strings.ToLower(rec.Content), needle) {
			return true
		}
		for _, tag := range rec.Tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				return true
			}
		}
		return false
	})
}

// ForgetBefore removes every record created before the given date
// (YYYY-MM-DD). Returns the number of records forgotten.
func (e *Engine) ForgetBefore(date string) (int, error) {
	cutoff, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, errors.Wrapf(err, "parse date %s", date)
	}
	return e.forget("forget_before", func(rec *model.Record) bool {
		return rec.Created.Before(cutoff)
	})
}

// Purge removes one record by its exact identity hash.
func (e *Engine) Purge(hash string) (int, error) {
	if hash == "" {
		return 0, errors.New("empty hash")
	}
	return e.forget("purge", func(rec *model.Record) bool {
		return rec.Hash == hash
	})
}

// forget removes all records matching the predicate, strips dangling
// references to them from survivors, writes an audit entry, and flushes
// so the removal is durable immediately.
func (e *Engine) forget(operation string, match func(*model.Record) bool) (int, error) {
	var kept, forgotten []*model.Record
	for _, rec := range e.records {
		if match(rec) {
			forgotten = append(forgotten, rec)
			continue
		}
		kept = append(kept, rec)
	}
	if len(forgotten) == 0 {
		return 0, nil
	}

	gone := make(map[string]struct{}, len(forgotten))
	for _, rec := range forgotten {
		gone[rec.Hash] = struct{}{}
	}
	for _, rec := range kept {
		rec.Related = withoutHashes(rec.Related, gone)
	}

	e.records = kept
	e.hashes = make(map[string]struct{}, len(kept))
	for _, rec := range kept {
		e.hashes[rec.Hash] = struct{}{}
	}

	if err := e.appendAudit(operation, forgotten); err != nil {
		return 0, err
	}
	e.results.Invalidate()
	e.searcher.BuildIndex(e.records)
	if err := e.Flush(); err != nil {
		return len(forgotten), err
	}

	e.logger.WithFields(logrus.Fields{
		"operation": operation,
		"forgotten": len(forgotten),
	}).Info("forgot records")
	return len(forgotten), nil
}

// appendAudit logs what was forgotten, keeping the newest entries.
func (e *Engine) appendAudit(operation string, forgotten []*model.Record) error {
	path := filepath.Join(e.workspace, auditFilename)

	var entries []auditEntry
	if raw, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(raw, &entries); err != nil {
			e.logger.WithError(err).Warn("corrupt audit log, starting fresh")
			entries = nil
		}
	}

	entry := auditEntry{
		ID:        ulid.Make().String(),
		Operation: operation,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Count:     len(forgotten),
	}
	sources := map[string]struct{}{}
	categories := map[string]struct{}{}
	for _, rec := range forgotten {
		entry.Hashes = append(entry.Hashes, rec.Hash)
		sources[rec.Source] = struct{}{}
		categories[rec.Category] = struct{}{}
	}
	entry.Sources = sortedKeys(sources)
	entry.Categories = sortedKeys(categories)

	entries = append(entries, entry)
	if len(entries) > auditKeepMax {
		entries = entries[len(entries)-auditKeepMax:]
	}
	return fsutil.WriteJSONAtomic(path, entries)
}

// AuditLog returns the recorded forgetting operations, oldest first.
func (e *Engine) AuditLog() ([]map[string]interface{}, error) {
	raw, err := os.ReadFile(filepath.Join(e.workspace, auditFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read audit log")
	}
	var entries []map[string]interface{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrap(err, "parse audit log")
	}
	return entries, nil
}

func withoutHashes(hashes []string, gone map[string]struct{}) []string {
	out := hashes[:0]
	for _, h := range hashes {
		if _, ok := gone[h]; !ok {
			out = append(out, h)
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
