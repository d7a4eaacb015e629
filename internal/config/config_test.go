package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)
	require.Equal(t, 7.0, cfg.HalfLifeDays)
	require.Equal(t, 0.25, cfg.ReinforceBoost)
	require.Equal(t, 50, cfg.FlushInterval)
	require.Equal(t, 30*time.Second, cfg.LockTimeout)
	require.Contains(t, cfg.TagTerms, "deployment")
}

func TestLoad_WorkspaceFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "half_life_days: 14\nflush_interval: 3\ntag_terms:\n  - patents\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	require.Equal(t, 14.0, cfg.HalfLifeDays)
	require.Equal(t, 3, cfg.FlushInterval)
	require.Equal(t, []string{"patents"}, cfg.TagTerms)
	// Untouched fields keep their defaults.
	require.Equal(t, int64(1_000_000), cfg.WALMaxBytes)
}

func TestLoad_ExplicitMissingFileIsError(t *testing.T) {
	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidYAMLIsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(":\n\t- broken"), 0o644))
	_, err := Load(dir, "")
	require.Error(t, err)
}

func TestNormalize(t *testing.T) {
	cfg := Config{HalfLifeDays: -1, FlushInterval: 0}
	cfg.Normalize()
	require.Equal(t, 7.0, cfg.HalfLifeDays)
	require.Equal(t, 0.25, cfg.ReinforceBoost)
	require.Equal(t, 50, cfg.FlushInterval)
}
