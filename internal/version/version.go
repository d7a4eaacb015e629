// Package version provides optimistic conflict detection for
// read-modify-write cycles on shared files. It is the lighter-weight
// alternative to the advisory lock for read-heavy, write-rare files.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/coalton-labs/memvault/internal/fsutil"
)

// DefaultMaxRetries bounds SafeUpdate retry attempts.
const DefaultMaxRetries = 3

// ConflictError reports that a file changed between snapshot and check.
// It carries the expected and observed state for diagnostics.
type ConflictError struct {
	Path          string
	ExpectedMTime time.Time
	ActualMTime   time.Time
	ExpectedSize  int64
	ActualSize    int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict detected on %s: modified since last read (expected mtime=%s size=%d, actual mtime=%s size=%d)",
		filepath.Base(e.Path), e.ExpectedMTime.Format(time.RFC3339Nano), e.ExpectedSize,
		e.ActualMTime.Format(time.RFC3339Nano), e.ActualSize)
}

// FileVersion is a snapshot of a file's physical state. Equality of
// (mtime, size) is the default unchanged test; the content digest is an
// opt-in stronger check for mtime/size collisions.
type FileVersion struct {
	Path        string
	MTime       time.Time
	Size        int64
	ContentHash string
	TakenAt     time.Time
}

// Tracker snapshots and checks file versions.
type Tracker struct {
	useContentHash bool
}

// NewTracker creates a tracker. With useContentHash the snapshot also
// records a SHA-256 digest of the file contents.
func NewTracker(useContentHash bool) *Tracker {
	return &Tracker{useContentHash: useContentHash}
}

// Snapshot captures the file's current mtime, size, and optional digest.
func (t *Tracker) Snapshot(path string) (FileVersion, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileVersion{}, errors.Wrapf(err, "stat %s", path)
	}
	v := FileVersion{
		Path:    path,
		MTime:   info.ModTime(),
		Size:    info.Size(),
		TakenAt: time.Now(),
	}
	if t.useContentHash {
		data, err := os.ReadFile(path)
		if err != nil {
			return FileVersion{}, errors.Wrapf(err, "read %s", path)
		}
		sum := sha256.Sum256(data)
		v.ContentHash = hex.EncodeToString(sum[:])
	}
	return v, nil
}

// Check returns a ConflictError if the file's current state differs from
// the snapshot, or if the file no longer exists.
func (t *Tracker) Check(v FileVersion) error {
	info, err := os.Stat(v.Path)
	if err != nil {
		return &ConflictError{Path: v.Path, ExpectedMTime: v.MTime, ExpectedSize: v.Size}
	}
	if !info.ModTime().Equal(v.MTime) || info.Size() != v.Size {
		return &ConflictError{
			Path:          v.Path,
			ExpectedMTime: v.MTime,
			ActualMTime:   info.ModTime(),
			ExpectedSize:  v.Size,
			ActualSize:    info.Size(),
		}
	}
	if t.useContentHash && v.ContentHash != "" {
		data, err := os.ReadFile(v.Path)
		if err != nil {
			return errors.Wrapf(err, "read %s", v.Path)
		}
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != v.ContentHash {
			return &ConflictError{
				Path:          v.Path,
				ExpectedMTime: v.MTime,
				ActualMTime:   info.ModTime(),
				ExpectedSize:  v.Size,
				ActualSize:    info.Size(),
			}
		}
	}
	return nil
}

// SafeUpdate runs a read-modify-write cycle with bounded retries. On each
// attempt it snapshots the file, reads it, applies modify, re-checks the
// snapshot, and writes atomically only if no concurrent change happened.
// When all retries are exhausted the last ConflictError surfaces.
func (t *Tracker) SafeUpdate(path string, modify func([]byte) ([]byte, error), maxRetries int) ([]byte, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	var result []byte
	attempt := func() error {
		snap, err := t.Snapshot(path)
		if err != nil {
			return backoff.Permanent(err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return backoff.Permanent(errors.Wrapf(err, "read %s", path))
		}
		modified, err := modify(data)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := t.Check(snap); err != nil {
			var conflict *ConflictError
			if errors.As(err, &conflict) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		if err := fsutil.WriteFileAtomic(path, modified, 0o644); err != nil {
			return backoff.Permanent(err)
		}
		result = modified
		return nil
	}

	bo := backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(backoff.WithInitialInterval(10*time.Millisecond)),
		uint64(maxRetries),
	)
	if err := backoff.Retry(attempt, bo); err != nil {
		return nil, err
	}
	return result, nil
}
