package store

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/coalton-labs/memvault/internal/model"
)

// Export writes the live set to w as JSON lines, one record per line,
// in live-set order. Returns the number of records written.
func (e *Engine) Export(w io.Writer) (int, error) {
	bw := bufio.NewWriter(w)
	for i, rec := range e.records {
		line, err := json.Marshal(rec)
		if err != nil {
			return i, errors.Wrap(err, "marshal record")
		}
		if _, err := bw.Write(append(line, '\n')); err != nil {
			return i, errors.Wrap(err, "write record")
		}
	}
	return len(e.records), bw.Flush()
}

// Import reads JSON lines from r and merges them into the live set.
// Records whose identity hash is already present are skipped; accepted
// records go through the journal like any other write. Returns the
// number of records added.
func (e *Engine) Import(r io.Reader) (int, error) {
	added := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec model.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return added, errors.Wrap(err, "parse import line")
		}
		if _, ok := e.hashes[rec.Hash]; ok {
			continue
		}
		if err := e.journal.Append(&rec); err != nil {
			return added, errors.Wrap(err, "journal imported record")
		}
		e.records = append(e.records, &rec)
		e.hashes[rec.Hash] = struct{}{}
		added++

		if e.journal.ShouldFlush() {
			if err := e.Flush(); err != nil {
				return added, errors.Wrap(err, "auto-flush during import")
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return added, errors.Wrap(err, "read import stream")
	}

	if added > 0 {
		e.results.Invalidate()
		e.searcher.BuildIndex(e.records)
	}
	return added, nil
}
