package store

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	outcomesFilename = "outcomes.jsonl"

	// Importance multipliers applied by retrieval feedback. Good feedback
	// is capped at 1.0 so feedback alone never pushes a record into
	// reinforcement territory; bad feedback floors at 0.0.
	goodImportanceMult = 1.2
	badImportanceMult  = 0.8
)

// Outcome grades how useful a set of retrieved records turned out to be.
type Outcome string

// Valid feedback outcomes.
const (
	OutcomeGood    Outcome = "good"
	OutcomeBad     Outcome = "bad"
	OutcomeNeutral Outcome = "neutral"
)

// ParseOutcome validates an outcome name.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(strings.ToLower(s)); o {
	case OutcomeGood, OutcomeBad, OutcomeNeutral:
		return o, nil
	default:
		return "", errors.Errorf("outcome must be good, bad, or neutral, got %q", s)
	}
}

// feedbackEvent is one line of the outcome log.
type feedbackEvent struct {
	TS        float64  `json:"ts"`
	EventType string   `json:"event_type"`
	MemoryIDs []string `json:"memory_ids"`
	Outcome   string   `json:"outcome"`
	Affected  int      `json:"affected"`
}

// Feedback applies a retrieval outcome to the listed records: good
// feedback multiplies importance upward, bad downward, neutral leaves it
// alone. Hashes that match nothing live are counted out. The event is
// appended to the outcome log either way, and the read cache is
// invalidated because scoring state changed. Returns the number of
// records mutated.
func (e *Engine) Feedback(hashes []string, outcome string) (int, error) {
	o, err := ParseOutcome(outcome)
	if err != nil {
		return 0, err
	}

	wanted := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		wanted[h] = struct{}{}
	}

	mutated := 0
	for _, rec := range e.records {
		if _, ok := wanted[rec.Hash]; !ok {
			continue
		}
		switch o {
		case OutcomeGood:
			rec.Importance *= goodImportanceMult
			if rec.Importance > 1.0 {
				rec.Importance = 1.0
			}
		case OutcomeBad:
			rec.Importance *= badImportanceMult
			if rec.Importance < 0 {
				rec.Importance = 0
			}
		}
		mutated++
	}

	e.appendOutcome(feedbackEvent{
		TS:        float64(time.Now().UnixNano()) / float64(time.Second),
		EventType: "retrieval",
		MemoryIDs: hashes,
		Outcome:   string(o),
		Affected:  mutated,
	})
	if mutated > 0 {
		e.results.Invalidate()
	}

	e.logger.WithFields(logrus.Fields{
		"outcome": o,
		"mutated": mutated,
	}).Debug("recorded retrieval feedback")
	return mutated, nil
}

// appendOutcome appends one event to the outcome log. Best effort: the
// in-memory mutation already happened, so a log write failure only warns.
func (e *Engine) appendOutcome(event feedbackEvent) {
	line, err := json.Marshal(event)
	if err != nil {
		e.logger.WithError(err).Warn("could not encode feedback event")
		return
	}
	path := filepath.Join(e.workspace, outcomesFilename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		e.logger.WithError(err).Warn("could not open outcome log")
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		e.logger.WithError(err).Warn("could not append feedback event")
	}
}

// FeedbackHistory returns up to limit events from the outcome log, most
// recent first. Corrupt lines are skipped.
func (e *Engine) FeedbackHistory(limit int) ([]map[string]interface{}, error) {
	if limit <= 0 {
		limit = 1000
	}
	f, err := os.Open(filepath.Join(e.workspace, outcomesFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read outcome log")
	}
	defer f.Close()

	var events []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event map[string]interface{}
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan outcome log")
	}

	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// FeedbackStats aggregates the outcome log.
type FeedbackStats struct {
	Total   int `json:"total"`
	Good    int `json:"good"`
	Bad     int `json:"bad"`
	Neutral int `json:"neutral"`
}

// FeedbackStats counts recorded outcomes.
func (e *Engine) FeedbackStats() (FeedbackStats, error) {
	events, err := e.FeedbackHistory(10000)
	if err != nil {
		return FeedbackStats{}, err
	}
	stats := FeedbackStats{Total: len(events)}
	for _, event := range events {
		switch event["outcome"] {
		case string(OutcomeGood):
			stats.Good++
		case string(OutcomeBad):
			stats.Bad++
		case string(OutcomeNeutral):
			stats.Neutral++
		}
	}
	return stats, nil
}
