package access

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordAndBoost(t *testing.T) {
	tr := NewTracker(t.TempDir())

	require.Equal(t, 1.0, tr.Boost("cold"))

	tr.Record("warm")
	require.InDelta(t, 1.05, tr.Boost("warm"), 1e-9)

	for i := 0; i < 4; i++ {
		tr.Record("warm")
	}
	require.InDelta(t, 1.25, tr.Boost("warm"), 1e-9)

	// Saturates at the hot threshold.
	for i := 0; i < 50; i++ {
		tr.Record("hot")
	}
	require.Equal(t, 1.5, tr.Boost("hot"))
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	tr := NewTracker(dir)
	tr.Record("abc123def456")
	tr.Record("abc123def456")
	require.NoError(t, tr.Save())

	reloaded := NewTracker(dir)
	require.Equal(t, 2, reloaded.Count("abc123def456"))
	require.Equal(t, 1, reloaded.Len())
}

func TestCorruptCountsDegradeToEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "access_counts.json"), []byte("{broken"), 0o644))

	tr := NewTracker(dir)
	require.Equal(t, 0, tr.Len())
	require.Equal(t, 0, tr.Count("anything"))
}

func TestTop(t *testing.T) {
	tr := NewTracker(t.TempDir())
	for i := 0; i < 3; i++ {
		tr.Record("third")
	}
	for i := 0; i < 7; i++ {
		tr.Record("first")
	}
	for i := 0; i < 5; i++ {
		tr.Record("second")
	}

	top := tr.Top(2)
	require.Len(t, top, 2)
	require.Equal(t, "first", top[0].Hash)
	require.Equal(t, 7, top[0].Count)
	require.Equal(t, "second", top[1].Hash)
}
