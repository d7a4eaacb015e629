package store

import (
	"github.com/pkg/errors"

	"github.com/coalton-labs/memvault/internal/model"
)

// Link creates a bidirectional relation between two records by identity
// hash. Linking is idempotent.
func (e *Engine) Link(hashA, hashB string) error {
	if hashA == hashB {
		return errors.New("cannot link a record to itself")
	}
	a, ok := e.Get(hashA)
	if !ok {
		return errors.Errorf("record not found: %s", hashA)
	}
	b, ok := e.Get(hashB)
	if !ok {
		return errors.Errorf("record not found: %s", hashB)
	}

	a.Related = appendUnique(a.Related, b.Hash)
	b.Related = appendUnique(b.Related, a.Hash)
	e.results.Invalidate()
	return nil
}

// Unlink removes the relation between two records, in both directions.
func (e *Engine) Unlink(hashA, hashB string) error {
	a, ok := e.Get(hashA)
	if !ok {
		return errors.Errorf("record not found: %s", hashA)
	}
	b, ok := e.Get(hashB)
	if !ok {
		return errors.Errorf("record not found: %s", hashB)
	}

	a.Related = withoutHashes(a.Related, map[string]struct{}{b.Hash: {}})
	b.Related = withoutHashes(b.Related, map[string]struct{}{a.Hash: {}})
	e.results.Invalidate()
	return nil
}

// RelatedTo returns the live records linked to the given hash. Dangling
// references to records no longer live are skipped.
func (e *Engine) RelatedTo(hash string) ([]*model.Record, error) {
	rec, ok := e.Get(hash)
	if !ok {
		return nil, errors.Errorf("record not found: %s", hash)
	}
	var related []*model.Record
	for _, h := range rec.Related {
		if r, ok := e.Get(h); ok {
			related = append(related, r)
		}
	}
	return related, nil
}

func appendUnique(hashes []string, hash string) []string {
	for _, h := range hashes {
		if h == hash {
			return hashes
		}
	}
	return append(hashes, hash)
}
