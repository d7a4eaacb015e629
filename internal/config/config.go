// Package config loads store configuration from an optional YAML file
// layered over code defaults.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// defaultTagTerms are auto-tagged when they appear in ingested content.
var defaultTagTerms = []string{
	"web3", "ethereum", "postgresql", "optimization", "cost",
	"revenue", "security", "deployment", "production", "testing",
}

// Config holds every tunable of the store. Zero values are replaced by
// defaults in Normalize.
type Config struct {
	HalfLifeDays     float64 `yaml:"half_life_days"`
	ArchiveThreshold float64 `yaml:"archive_threshold"`
	ReinforceBoost   float64 `yaml:"reinforce_boost"`
	MaxScore         float64 `yaml:"max_score"`

	FlushInterval int   `yaml:"flush_interval"`
	WALMaxBytes   int64 `yaml:"wal_max_bytes"`

	CacheEntries     int `yaml:"cache_entries"`
	ShardCacheShards int `yaml:"shard_cache_shards"`
	LoadLimit        int `yaml:"load_limit"`

	LockTimeout    time.Duration `yaml:"lock_timeout"`
	LockStaleAfter time.Duration `yaml:"lock_stale_after"`

	TagTerms []string `yaml:"tag_terms"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HalfLifeDays:     7.0,
		ArchiveThreshold: 0.15,
		ReinforceBoost:   0.25,
		MaxScore:         2.0,
		FlushInterval:    50,
		WALMaxBytes:      1_000_000,
		CacheEntries:     1000,
		ShardCacheShards: 10,
		LoadLimit:        10000,
		LockTimeout:      30 * time.Second,
		LockStaleAfter:   5 * time.Minute,
		TagTerms:         append([]string(nil), defaultTagTerms...),
	}
}

// Load reads the config file at path over the defaults. An empty path
// falls back to <workspace>/config.yaml; a missing file yields the
// defaults, while an unparseable file is a configuration error.
func Load(workspace, path string) (Config, error) {
	explicit := path != ""
	if path == "" {
		path = filepath.Join(workspace, "config.yaml")
	}

	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize replaces zero or negative values with defaults.
func (c *Config) Normalize() {
	def := Default()
	if c.HalfLifeDays <= 0 {
		c.HalfLifeDays = def.HalfLifeDays
	}
	if c.ArchiveThreshold <= 0 {
		c.ArchiveThreshold = def.ArchiveThreshold
	}
	if c.ReinforceBoost <= 0 {
		c.ReinforceBoost = def.ReinforceBoost
	}
	if c.MaxScore <= 0 {
		c.MaxScore = def.MaxScore
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = def.FlushInterval
	}
	if c.WALMaxBytes <= 0 {
		c.WALMaxBytes = def.WALMaxBytes
	}
	if c.CacheEntries <= 0 {
		c.CacheEntries = def.CacheEntries
	}
	if c.ShardCacheShards <= 0 {
		c.ShardCacheShards = def.ShardCacheShards
	}
	if c.LoadLimit <= 0 {
		c.LoadLimit = def.LoadLimit
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = def.LockTimeout
	}
	if c.LockStaleAfter <= 0 {
		c.LockStaleAfter = def.LockStaleAfter
	}
	if len(c.TagTerms) == 0 {
		c.TagTerms = def.TagTerms
	}
}
