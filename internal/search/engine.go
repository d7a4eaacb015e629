// Package search implements ranked lexical retrieval over the live
// record set using BM25-style scoring with optional decay weighting.
package search

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/coalton-labs/memvault/internal/model"
)

// BM25 parameters: k1 controls term-frequency saturation, b controls
// document-length normalization.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75

	// DefaultMinScore drops results with negligible normalized relevance.
	DefaultMinScore = 0.01

	phraseBoost = 1.5
	tagBoost    = 1.2
	sourceBoost = 1.1
)

// DecayFunc maps a record to its current decay score.
type DecayFunc func(*model.Record) float64

// Result is one ranked hit. Score is the raw BM25-derived value;
// Relevance is normalized to [0,1] against the top score of the result
// set.
type Result struct {
	Record       *model.Record `json:"record"`
	Score        float64       `json:"score"`
	Relevance    float64       `json:"relevance"`
	MatchedTerms []string      `json:"matched_terms"`
	Explanation  string        `json:"explanation"`
}

// Params controls one search call.
type Params struct {
	Query    string
	Category string
	MinScore float64
	Decay    DecayFunc // nil disables decay weighting
}

// Engine holds the corpus term statistics: per-term document frequency,
// smoothed IDF weights, and the average document length. There is no
// inverted index; candidates are scored directly.
type Engine struct {
	k1 float64
	b  float64

	docCount  int
	avgDocLen float64
	docFreqs  map[string]int
	idf       map[string]float64
}

// NewEngine creates a search engine with the default BM25 parameters.
func NewEngine() *Engine {
	return &Engine{
		k1:       DefaultK1,
		b:        DefaultB,
		docFreqs: map[string]int{},
		idf:      map[string]float64{},
	}
}

// BuildIndex recomputes the corpus statistics. Must be called whenever
// the corpus size changes; Score also rebuilds lazily on a size mismatch.
func (e *Engine) BuildIndex(records []*model.Record) {
	e.docCount = len(records)
	e.docFreqs = make(map[string]int, len(records)*8)
	e.idf = make(map[string]float64, len(records)*8)

	totalLen := 0
	for _, rec := range records {
		tokens := tokenize(rec.Content)
		totalLen += len(tokens)
		seen := make(map[string]struct{}, len(tokens))
		for _, term := range tokens {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			e.docFreqs[term]++
		}
	}

	n := e.docCount
	if n == 0 {
		n = 1
	}
	e.avgDocLen = float64(totalLen) / float64(n)

	for term, df := range e.docFreqs {
		// Smoothed BM25 IDF.
		e.idf[term] = math.Log((float64(e.docCount)-float64(df)+0.5)/(float64(df)+0.5) + 1.0)
	}
}

// Score ranks the candidate records against the query. Results are
// sorted by raw score descending, normalized to the top score, and
// filtered by the minimum relevance threshold. No truncation happens
// here; the caller re-ranks with the access boost before applying its
// limit.
func (e *Engine) Score(params Params, records []*model.Record) []Result {
	queryTokens := tokenize(params.Query)
	if len(queryTokens) == 0 {
		return nil
	}
	if e.docCount == 0 || e.docCount != len(records) {
		e.BuildIndex(records)
	}
	minScore := params.MinScore
	if minScore <= 0 {
		minScore = DefaultMinScore
	}

	queryLower := strings.ToLower(params.Query)
	var results []Result
	maxScore := 0.0

	for _, rec := range records {
		if params.Category != "" && rec.Category != params.Category {
			continue
		}
		score, matched := e.scoreRecord(rec, queryTokens, queryLower)
		if score <= 0 {
			continue
		}
		if params.Decay != nil {
			// Decay modulates 30-100% of the lexical score.
			score *= 0.3 + 0.7*params.Decay(rec)
		}
		if score > maxScore {
			maxScore = score
		}
		results = append(results, Result{Record: rec, Score: score, MatchedTerms: matched})
	}
	if maxScore <= 0 {
		return nil
	}

	filtered := results[:0]
	for _, r := range results {
		r.Relevance = math.Round(r.Score/maxScore*10000) / 10000
		if r.Relevance < minScore {
			continue
		}
		r.Explanation = explain(r)
		filtered = append(filtered, r)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})
	return filtered
}

// Stats describes the current index for diagnostics.
type Stats struct {
	DocCount  int     `json:"doc_count"`
	AvgDocLen float64 `json:"avg_doc_len"`
	VocabSize int     `json:"vocab_size"`
}

// IndexStats returns the current corpus statistics.
func (e *Engine) IndexStats() Stats {
	return Stats{
		DocCount:  e.docCount,
		AvgDocLen: math.Round(e.avgDocLen*10) / 10,
		VocabSize: len(e.docFreqs),
	}
}

func (e *Engine) scoreRecord(rec *model.Record, queryTokens []string, queryLower string) (float64, []string) {
	contentTokens := tokenize(rec.Content)
	docLen := float64(len(contentTokens))

	tf := make(map[string]int, len(contentTokens))
	for _, tok := range contentTokens {
		tf[tok]++
	}

	avg := e.avgDocLen
	if avg <= 0 {
		avg = 1
	}

	score := 0.0
	var matched []string
	for _, term := range queryTokens {
		freq := tf[term]
		if freq == 0 {
			continue
		}
		matched = append(matched, term)

		idf, ok := e.idf[term]
		if !ok {
			idf = 1.0
		}
		// Saturating term frequency, normalized by document length
		// relative to the corpus average.
		tfNorm := (float64(freq) * (e.k1 + 1)) /
			(float64(freq) + e.k1*(1-e.b+e.b*docLen/avg))
		score += idf * tfNorm
	}

	// Exact phrase bonus: the raw query appears verbatim in the content.
	contentLower := strings.ToLower(rec.Content)
	if len(queryTokens) > 1 && strings.Contains(contentLower, queryLower) {
		score *= phraseBoost
	}

	if len(rec.Tags) > 0 {
		tagText := strings.ToLower(strings.Join(rec.Tags, " "))
		for _, term := range queryTokens {
			if strings.Contains(tagText, term) {
				score *= tagBoost
				matched = append(matched, "tag:"+term)
			}
		}
	}
	if rec.Source != "" {
		sourceLower := strings.ToLower(rec.Source)
		for _, term := range queryTokens {
			if strings.Contains(sourceLower, term) {
				score *= sourceBoost
			}
		}
	}

	return score, matched
}

func explain(r Result) string {
	return fmt.Sprintf("matched: %s | raw=%.3f | relevance=%.2f",
		strings.Join(r.MatchedTerms, ", "), r.Score, r.Relevance)
}
