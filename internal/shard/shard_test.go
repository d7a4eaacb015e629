package shard

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/coalton-labs/memvault/internal/model"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func record(t *testing.T, content, category string, tags ...string) *model.Record {
	t.Helper()
	rec := model.New(content, "notes", 1, category)
	rec.Tags = tags
	return rec
}

func TestKeyFor(t *testing.T) {
	rec := record(t, "postgresql tuning notes for production", "database")
	rec.Created = time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)

	key := KeyFor(rec)
	require.Equal(t, "2026-02", key.DateKey)
	require.Equal(t, "database", key.TopicKey)
	require.Equal(t, "shard_2026-02_database.json", key.Filename())

	// General category falls back to the first meaningful tag.
	tagged := record(t, "deployment went fine", "general", "@alice", "ok", "deployment")
	tagged.Created = rec.Created
	require.Equal(t, "deployment", KeyFor(tagged).TopicKey)

	// No usable tag at all lands in the general bucket.
	bare := record(t, "nothing remarkable happened today", "")
	bare.Created = rec.Created
	require.Equal(t, "general", KeyFor(bare).TopicKey)
}

func TestWriteReadShard(t *testing.T) {
	m, err := NewManager(t.TempDir(), 0, testLogger())
	require.NoError(t, err)

	recs := []*model.Record{
		record(t, "patent filed for search ranking method", "legal"),
		record(t, "second legal note about the filing", "legal"),
	}
	key := KeyFor(recs[0])
	require.NoError(t, m.WriteShard(key, recs))

	// Bypass the cache to prove the on-disk round trip.
	m.InvalidateCache()
	got := m.ReadShard(key)
	require.Len(t, got, 2)
	require.Equal(t, recs[0].Hash, got[0].Hash)
	require.Equal(t, recs[0].Content, got[0].Content)

	entry := m.Index().Entry(key)
	require.NotNil(t, entry)
	require.Equal(t, 2, entry.Count)
	require.Greater(t, entry.SizeBytes, int64(0))
	require.Contains(t, entry.Topics, "legal")
}

func TestReadShard_MissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, 0, testLogger())
	require.NoError(t, err)

	require.Empty(t, m.ReadShard(Key{DateKey: "2026-01", TopicKey: "ghost"}))

	key := Key{DateKey: "2026-01", TopicKey: "broken"}
	path := filepath.Join(dir, "shards", key.Filename())
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	require.Empty(t, m.ReadShard(key))
}

func TestPartition(t *testing.T) {
	m, err := NewManager(t.TempDir(), 0, testLogger())
	require.NoError(t, err)

	jan := record(t, "january note about databases", "database")
	jan.Created = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	feb := record(t, "february note about databases", "database")
	feb.Created = time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	febGeneral := record(t, "february note with no category", "")
	febGeneral.Created = feb.Created

	groups := m.Partition([]*model.Record{jan, feb, febGeneral})
	require.Len(t, groups, 3)
	require.Len(t, groups[Key{DateKey: "2026-01", TopicKey: "database"}], 1)
	require.Len(t, groups[Key{DateKey: "2026-02", TopicKey: "database"}], 1)
	require.Len(t, groups[Key{DateKey: "2026-02", TopicKey: "general"}], 1)
}

func TestFindCandidates(t *testing.T) {
	m, err := NewManager(t.TempDir(), 0, testLogger())
	require.NoError(t, err)

	db := record(t, "postgresql index bloat fix", "database", "postgresql")
	db.Created = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	legal := record(t, "patent filed for ranking", "legal", "patent")
	legal.Created = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	misc := record(t, "weather was nice", "")
	misc.Created = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.WriteShard(KeyFor(db), []*model.Record{db}))
	require.NoError(t, m.WriteShard(KeyFor(legal), []*model.Record{legal}))
	require.NoError(t, m.WriteShard(KeyFor(misc), []*model.Record{misc}))

	// Topic intersection plus the always-included general shard.
	keys := m.FindCandidates("patent filing", "", "", "")
	require.Len(t, keys, 2)
	topicKeys := []string{keys[0].TopicKey, keys[1].TopicKey}
	require.Contains(t, topicKeys, "legal")
	require.Contains(t, topicKeys, "general")

	// Date range narrows at month granularity.
	keys = m.FindCandidates("postgresql", "2026-02-01", "2026-02-28", "")
	require.Len(t, keys, 1)
	require.Equal(t, "database", keys[0].TopicKey)

	// No usable keywords: every shard is a candidate.
	keys = m.FindCandidates("", "", "", "")
	require.Len(t, keys, 3)
}

func TestLoadAll_CapsAtLimit(t *testing.T) {
	m, err := NewManager(t.TempDir(), 0, testLogger())
	require.NoError(t, err)

	var recs []*model.Record
	for i := 0; i < 5; i++ {
		rec := model.New("record number with enough content to matter", "gen", i, "bulk")
		rec.Created = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		recs = append(recs, rec)
	}
	require.NoError(t, m.WriteShard(KeyFor(recs[0]), recs))

	require.Len(t, m.LoadAll(3), 3)
	require.Len(t, m.LoadAll(0), 5)
}

func TestRebuildIndex(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, 0, testLogger())
	require.NoError(t, err)

	rec := record(t, "rebuild me from the shard file", "ops", "deployment")
	rec.Created = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.WriteShard(KeyFor(rec), []*model.Record{rec}))
	require.NoError(t, m.Index().Save())

	// Delete the index file; the shard files alone must reconstruct it.
	require.NoError(t, os.Remove(m.Index().Path()))

	fresh, err := NewManager(dir, 0, testLogger())
	require.NoError(t, err)
	require.Equal(t, 0, fresh.Index().Len())
	require.NoError(t, fresh.RebuildIndex())
	require.Equal(t, 1, fresh.Index().Len())

	entry := fresh.Index().Entry(Key{DateKey: "2026-04", TopicKey: "ops"})
	require.NotNil(t, entry)
	require.Equal(t, 1, entry.Count)
}

func TestRemoveShard(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, 0, testLogger())
	require.NoError(t, err)

	rec := record(t, "temporary shard that will be pruned", "tmp")
	key := KeyFor(rec)
	require.NoError(t, m.WriteShard(key, []*model.Record{rec}))
	require.NoError(t, m.RemoveShard(key))

	require.Nil(t, m.Index().Entry(key))
	require.NoFileExists(t, filepath.Join(dir, "shards", key.Filename()))
	require.Empty(t, m.ReadShard(key))
}
