package store

import (
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coalton-labs/memvault/internal/cache"
	"github.com/coalton-labs/memvault/internal/model"
	"github.com/coalton-labs/memvault/internal/search"
)

// SearchParams holds parameters for a ranked search.
type SearchParams struct {
	Query    string
	Limit    int
	Category string
	Tags     []string
	MinScore float64
	NoDecay  bool
}

// Search returns the top ranked records for a query. Results are served
// from the read cache when the same logical query was answered since the
// last mutation; on a miss the live set is scored, re-ranked by access
// frequency, truncated, and the surviving records are reinforced.
func (e *Engine) Search(p SearchParams) ([]search.Result, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	key := cache.Key(p.Query, limit, p.Category, p.Tags, p.MinScore, !p.NoDecay)
	if hits, ok := e.results.Get(key); ok {
		e.logger.WithField("query", p.Query).Debug("search served from cache")
		return hits, nil
	}

	var decayFn search.DecayFunc
	if !p.NoDecay {
		now := time.Now()
		decayFn = func(rec *model.Record) float64 {
			return e.decay.Score(rec, now)
		}
	}

	hits := e.searcher.Score(search.Params{
		Query:    p.Query,
		Category: p.Category,
		MinScore: p.MinScore,
		Decay:    decayFn,
	}, e.records)
	if len(p.Tags) > 0 {
		filtered := hits[:0]
		for _, hit := range hits {
			if hasAllTags(hit.Record, p.Tags) {
				filtered = append(filtered, hit)
			}
		}
		hits = filtered
	}

	// Frequently accessed records get a bounded multiplier before the
	// limit is applied, so a hot record can displace a marginally
	// better-matching cold one.
	for i := range hits {
		hits[i].Score *= e.accesses.Boost(hits[i].Record.Hash)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	for _, hit := range hits {
		e.decay.Reinforce(hit.Record)
		e.accesses.Record(hit.Record.Hash)
	}

	e.results.Put(key, hits)
	e.logger.WithFields(logrus.Fields{
		"query": p.Query,
		"hits":  len(hits),
	}).Debug("search scored live set")
	return hits, nil
}

// hasAllTags reports whether the record carries every requested tag.
func hasAllTags(rec *model.Record, tags []string) bool {
	for _, want := range tags {
		found := false
		for _, have := range rec.Tags {
			if strings.EqualFold(have, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ListParams holds filters for a plain listing.
type ListParams struct {
	Category string
	Source   string
	Limit    int
}

// List returns live records matching the filters, newest first.
func (e *Engine) List(p ListParams) []*model.Record {
	var out []*model.Record
	for _, rec := range e.records {
		if p.Category != "" && rec.Category != p.Category {
			continue
		}
		if p.Source != "" && !strings.Contains(rec.Source, p.Source) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Created.After(out[j].Created)
	})
	if p.Limit > 0 && len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out
}
