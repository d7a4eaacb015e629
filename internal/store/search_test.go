package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const corpusNotes = `Filed the provisional patent application for the streaming codec last week.
The patent lawyer asked for prior art references by end of month.
Quarterly revenue projections were revised upward after the pricing change.
Database migration for the billing service completed without downtime.
`

func seedCorpus(t *testing.T, e *Engine) {
	t.Helper()
	added, err := e.Ingest(IngestParams{Content: corpusNotes, Source: "journal.md"})
	require.NoError(t, err)
	require.Equal(t, 4, added)
}

func TestSearch_RanksRelevantFirst(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	seedCorpus(t, e)

	hits, err := e.Search(SearchParams{Query: "patent application"})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.Contains(t, hits[0].Record.Content, "patent")
	require.Equal(t, 1.0, hits[0].Relevance)
	for _, hit := range hits {
		require.NotContains(t, hit.Record.Content, "billing")
	}
}

func TestSearch_LimitAndCategoryFilter(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	seedCorpus(t, e)
	_, err := e.Ingest(IngestParams{
		Content:  "Separate patent discussion tracked in the legal workstream notes.",
		Source:   "legal.md",
		Category: "legal",
	})
	require.NoError(t, err)

	hits, err := e.Search(SearchParams{Query: "patent", Limit: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	legal, err := e.Search(SearchParams{Query: "patent", Category: "legal"})
	require.NoError(t, err)
	require.Len(t, legal, 1)
	require.Equal(t, "legal", legal[0].Record.Category)
}

func TestSearch_ReinforcesOnMissOnly(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	seedCorpus(t, e)

	hits, err := e.Search(SearchParams{Query: "revenue projections"})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	top := hits[0].Record
	require.Equal(t, 1, top.AccessCount)

	// Identical query is served from the cache and must not reinforce
	// again.
	cached, err := e.Search(SearchParams{Query: "Revenue Projections "})
	require.NoError(t, err)
	require.Equal(t, len(hits), len(cached))
	require.Equal(t, 1, top.AccessCount)
}

func TestSearch_CacheInvalidatedByIngest(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	seedCorpus(t, e)

	before, err := e.Search(SearchParams{Query: "revenue"})
	require.NoError(t, err)
	require.Len(t, before, 1)

	_, err = e.Ingest(IngestParams{
		Content: "Revenue share agreement signed with the distribution partner.",
		Source:  "deals.md",
	})
	require.NoError(t, err)

	after, err := e.Search(SearchParams{Query: "revenue"})
	require.NoError(t, err)
	require.Len(t, after, 2)
}

func TestSearch_AccessBoostBreaksTies(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	_, err := e.Ingest(IngestParams{
		Content: "Pipeline alert thresholds tuned for the ingestion cluster.\nPipeline alert thresholds tuned for the metrics cluster.",
		Source:  "runbook.md",
	})
	require.NoError(t, err)

	recs := e.List(ListParams{})
	require.Len(t, recs, 2)
	hot := recs[0]
	for i := 0; i < 10; i++ {
		e.accesses.Record(hot.Hash)
	}

	hits, err := e.Search(SearchParams{Query: "pipeline alert thresholds"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, hot.Hash, hits[0].Record.Hash)
}

func TestSearch_TagFilter(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	_, err := e.Ingest(IngestParams{
		Content: "Deployment checklist reviewed before the production release.\nDeployment retrospective notes captured after the incident.",
		Source:  "ops.md",
	})
	require.NoError(t, err)

	all, err := e.Search(SearchParams{Query: "deployment"})
	require.NoError(t, err)
	require.Len(t, all, 2)

	// Only the first line mentions production, so only it carries the tag.
	tagged, err := e.Search(SearchParams{Query: "deployment", Tags: []string{"production"}})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	require.Contains(t, tagged[0].Record.Tags, "production")

	none, err := e.Search(SearchParams{Query: "deployment", Tags: []string{"production", "ethereum"}})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestList_Filters(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	seedCorpus(t, e)

	require.Len(t, e.List(ListParams{Source: "journal"}), 4)
	require.Empty(t, e.List(ListParams{Source: "elsewhere"}))
	require.Len(t, e.List(ListParams{Limit: 2}), 2)
}
