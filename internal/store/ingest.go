package store

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/coalton-labs/memvault/internal/model"
)

// minLineLen is the shortest trimmed line worth keeping as a record.
const minLineLen = 15

var mentionRe = regexp.MustCompile(`@\w+`)

// IngestParams holds parameters for ingesting raw content.
type IngestParams struct {
	Content  string
	Source   string
	Category string
	Type     string
	TypeMeta *model.TypeConfig
}

// Ingest splits content into lines and turns each substantial line into
// a record. Every accepted record is journaled before it joins the live
// set, so an ingest that returned is durable even if the process dies
// before the next flush. Returns the number of records added.
func (e *Engine) Ingest(p IngestParams) (int, error) {
	recType, err := model.ParseType(p.Type, p.TypeMeta)
	if err != nil {
		return 0, err
	}

	added := 0
	for i, line := range strings.Split(p.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) < minLineLen || strings.HasPrefix(trimmed, "```") || trimmed == "---" {
			continue
		}
		if e.gate != nil && e.gate.Classify(trimmed) == PriorityNoise {
			continue
		}

		rec := model.New(trimmed, p.Source, i+1, p.Category)
		if _, ok := e.hashes[rec.Hash]; ok {
			continue
		}
		rec.Type = recType
		if recType == model.TypeCustom {
			rec.TypeMeta = p.TypeMeta
		}
		rec.Tags = e.extractTags(trimmed)
		if e.sentiment != nil {
			rec.Sentiment = e.sentiment.Analyze(trimmed)
		}

		if err := e.journal.Append(rec); err != nil {
			return added, errors.Wrap(err, "journal record")
		}
		e.records = append(e.records, rec)
		e.hashes[rec.Hash] = struct{}{}
		added++

		// Checked per append, not per batch, so a large ingest cannot
		// overshoot the journal thresholds.
		if e.journal.ShouldFlush() {
			if err := e.Flush(); err != nil {
				return added, errors.Wrap(err, "auto-flush during ingest")
			}
		}
	}

	if added > 0 {
		e.results.Invalidate()
		e.searcher.BuildIndex(e.records)
		e.logger.WithFields(logrus.Fields{
			"source": p.Source,
			"added":  added,
		}).Debug("ingested records")
	}
	return added, nil
}

// IngestFile reads one file and ingests it with the file path as source.
func (e *Engine) IngestFile(path, category string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrapf(err, "read %s", path)
	}
	return e.Ingest(IngestParams{Content: string(raw), Source: path, Category: category})
}

// IngestDirectory ingests every file under dir matching the glob
// pattern. Unreadable files are skipped with a warning.
func (e *Engine) IngestDirectory(dir, pattern, category string) (int, error) {
	if pattern == "" {
		pattern = "*.md"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0, errors.Wrapf(err, "glob %s", pattern)
	}

	total := 0
	for _, path := range matches {
		added, err := e.IngestFile(path, category)
		if err != nil {
			e.logger.WithError(err).WithField("file", path).Warn("skipping unreadable file")
			continue
		}
		total += added
	}
	return total, nil
}

// extractTags derives tags from a line: configured tag terms that appear
// in it, plus any @mentions.
func (e *Engine) extractTags(line string) []string {
	lower := strings.ToLower(line)
	var tags []string
	for _, term := range e.cfg.TagTerms {
		if strings.Contains(lower, term) {
			tags = append(tags, term)
		}
	}
	tags = append(tags, mentionRe.FindAllString(line, -1)...)
	return tags
}
