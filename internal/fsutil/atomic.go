// Package fsutil provides crash-safe file write helpers.
package fsutil

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// WriteFileAtomic writes data to path via a temporary file in the same
// directory followed by an atomic rename. A reader never observes a
// half-written file; on failure the previous contents are left intact.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return errors.Wrapf(err, "write temp file %s", tmpPath)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return errors.Wrapf(err, "sync temp file %s", tmpPath)
	}
	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return errors.Wrapf(err, "chmod temp file %s", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "close temp file %s", tmpPath)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "rename %s -> %s", tmpPath, path)
	}

	syncDir(dir)
	return nil
}

// WriteJSONAtomic marshals v with two-space indentation and writes it
// atomically.
func WriteJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshal %s", path)
	}
	return WriteFileAtomic(path, data, 0o644)
}

// syncDir makes the rename itself crash-consistent. Best effort: some
// filesystems reject directory fsync.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}
