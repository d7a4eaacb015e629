package store

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func TestRegistry_ReusesEngine(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(testLogger())
	defer reg.Close()

	a, err := reg.Get(dir)
	require.NoError(t, err)
	b, err := reg.Get(dir)
	require.NoError(t, err)
	require.Same(t, a, b)
}

func TestRegistry_ReopensAfterExternalWrite(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(testLogger())
	defer reg.Close()

	first, err := reg.Get(dir)
	require.NoError(t, err)
	require.Equal(t, 0, first.Len())

	// A second process ingests and flushes to the same workspace.
	other := newTestEngine(t, dir)
	seedCorpus(t, other)
	// Make sure the index mtime moves even on coarse-grained filesystems.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, other.Flush())

	refreshed, err := reg.Get(dir)
	require.NoError(t, err)
	require.NotSame(t, first, refreshed)
	require.Equal(t, 4, refreshed.Len())
}

func TestRegistry_SeparateWorkspaces(t *testing.T) {
	reg := NewRegistry(testLogger())
	defer reg.Close()

	a, err := reg.Get(t.TempDir())
	require.NoError(t, err)
	b, err := reg.Get(t.TempDir())
	require.NoError(t, err)
	require.NotSame(t, a, b)
}
