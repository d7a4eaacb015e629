package version

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSnapshotCheck_Unchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	writeFile(t, path, `{"count": 1}`)

	tr := NewTracker(false)
	snap, err := tr.Snapshot(path)
	require.NoError(t, err)
	require.NoError(t, tr.Check(snap))
}

func TestCheck_DetectsModification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	writeFile(t, path, `{"count": 1}`)

	tr := NewTracker(false)
	snap, err := tr.Snapshot(path)
	require.NoError(t, err)

	writeFile(t, path, `{"count": 222}`)
	err = tr.Check(snap)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, path, conflict.Path)
	require.Equal(t, snap.Size, conflict.ExpectedSize)
}

func TestCheck_DetectsDeletion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	writeFile(t, path, `{}`)

	tr := NewTracker(false)
	snap, err := tr.Snapshot(path)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	var conflict *ConflictError
	require.ErrorAs(t, tr.Check(snap), &conflict)
}

func TestCheck_ContentHashCatchesSameSizeRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	writeFile(t, path, `{"v": "aa"}`)

	tr := NewTracker(true)
	snap, err := tr.Snapshot(path)
	require.NoError(t, err)

	// Same byte length, same forced mtime: only the digest can tell.
	writeFile(t, path, `{"v": "bb"}`)
	require.NoError(t, os.Chtimes(path, snap.MTime, snap.MTime))

	var conflict *ConflictError
	require.ErrorAs(t, tr.Check(snap), &conflict)
}

func TestSafeUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	writeFile(t, path, `{"count": 1}`)

	tr := NewTracker(false)
	out, err := tr.SafeUpdate(path, func(data []byte) ([]byte, error) {
		var state struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, err
		}
		state.Count++
		return json.Marshal(state)
	}, 3)
	require.NoError(t, err)
	require.JSONEq(t, `{"count": 2}`, string(out))

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"count": 2}`, string(onDisk))
}

func TestSafeUpdate_RetriesThenSucceeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	writeFile(t, path, `{"count": 0}`)

	tr := NewTracker(false)
	interfered := false
	_, err := tr.SafeUpdate(path, func(data []byte) ([]byte, error) {
		if !interfered {
			// Simulate a concurrent writer between read and check.
			interfered = true
			writeFile(t, path, `{"count": 100}`)
			// Force a visible mtime change even on coarse clocks.
			old := time.Now().Add(-time.Minute)
			require.NoError(t, os.Chtimes(path, old, old))
		}
		return []byte(`{"count": 1}`), nil
	}, 3)
	require.NoError(t, err)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"count": 1}`, string(onDisk))
}
