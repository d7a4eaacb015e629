// Package decay computes time-decayed importance scores and applies
// reinforcement when records are accessed.
package decay

import (
	"math"
	"time"

	"github.com/coalton-labs/memvault/internal/model"
)

// Tunables. Callers override via the Engine constructor.
const (
	DefaultHalfLifeDays     = 7.0
	DefaultArchiveThreshold = 0.15
	DefaultReinforceBoost   = 0.25
	DefaultMaxScore         = 2.0
)

// Engine applies an Ebbinghaus-style forgetting curve. The effective
// half-life is the base half-life scaled by the record type's decay
// multiplier, so mistakes fade ten times slower than episodic notes.
type Engine struct {
	halfLifeDays     float64
	archiveThreshold float64
	reinforceBoost   float64
	maxScore         float64
}

// NewEngine creates a decay engine. Non-positive arguments fall back to
// the defaults.
func NewEngine(halfLifeDays, archiveThreshold, reinforceBoost, maxScore float64) *Engine {
	if halfLifeDays <= 0 {
		halfLifeDays = DefaultHalfLifeDays
	}
	if archiveThreshold <= 0 {
		archiveThreshold = DefaultArchiveThreshold
	}
	if reinforceBoost <= 0 {
		reinforceBoost = DefaultReinforceBoost
	}
	if maxScore <= 0 {
		maxScore = DefaultMaxScore
	}
	return &Engine{
		halfLifeDays:     halfLifeDays,
		archiveThreshold: archiveThreshold,
		reinforceBoost:   reinforceBoost,
		maxScore:         maxScore,
	}
}

// Score returns the record's current strength at the given instant:
// importance decayed at the effective half-life, plus a secondary term
// proportional to the access count decaying at twice that half-life.
// Rounded to 4 decimals and capped at the configured maximum.
func (e *Engine) Score(rec *model.Record, now time.Time) float64 {
	ageDays := now.Sub(rec.Created).Seconds() / 86400
	if ageDays < 0.001 {
		ageDays = 0.001
	}

	halfLife := e.EffectiveHalfLife(rec)
	base := rec.Importance * math.Pow(2, -ageDays/halfLife)
	reinforcement := float64(rec.AccessCount) * e.reinforceBoost * math.Pow(2, -ageDays/(halfLife*2))

	score := base + reinforcement
	if score > e.maxScore {
		score = e.maxScore
	}
	return math.Round(score*10000) / 10000
}

// Reinforce boosts a record on access: the access count increments, the
// last-accessed stamp updates, and importance is nudged upward by a
// diminishing amount capped at the maximum score.
func (e *Engine) Reinforce(rec *model.Record) {
	rec.AccessCount++
	rec.LastAccessed = time.Now().UTC()
	rec.Importance += 0.1 / (1 + float64(rec.AccessCount)*0.1)
	if rec.Importance > e.maxScore {
		rec.Importance = e.maxScore
	}
}

// ShouldArchive reports whether the record decayed below the archive
// threshold. Decay never deletes; archival is an explicit operation.
func (e *Engine) ShouldArchive(rec *model.Record, now time.Time) bool {
	return e.Score(rec, now) < e.archiveThreshold
}

// EffectiveHalfLife returns the half-life in days for a record, including
// the type multiplier.
func (e *Engine) EffectiveHalfLife(rec *model.Record) float64 {
	return e.halfLifeDays * rec.DecayMultiplier()
}
