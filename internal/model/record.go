// Package model defines the core record data types.
package model

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// hashPrefixLen is the number of leading content characters that
// participate in the identity hash.
const hashPrefixLen = 100

// Record represents a stored memory record: immutable identity plus
// mutable scoring state. The identity hash is the sole deduplication
// key and never changes for the life of the record.
type Record struct {
	Hash         string
	Content      string
	Source       string
	Line         int
	Category     string
	Created      time.Time
	LastAccessed time.Time
	AccessCount  int
	Importance   float64
	Confidence   float64
	Sentiment    map[string]float64
	Tags         []string
	Related      []string
	Type         RecordType
	TypeMeta     *TypeConfig // overrides, set only for TypeCustom
}

// New creates a record with its identity hash derived from source,
// line, and content prefix.
func New(content, source string, line int, category string) *Record {
	if category == "" {
		category = "general"
	}
	now := time.Now().UTC()
	return &Record{
		Hash:         IdentityHash(source, line, content),
		Content:      content,
		Source:       source,
		Line:         line,
		Category:     category,
		Created:      now,
		LastAccessed: now,
		Importance:   1.0,
		Confidence:   0.5,
		Type:         TypeEpisodic,
	}
}

// IdentityHash derives the stable dedup key for a record. Only the first
// 100 characters of content participate: two records sharing source, line,
// and content prefix collide and are treated as the same record.
func IdentityHash(source string, line int, content string) string {
	prefix := content
	if runes := []rune(content); len(runes) > hashPrefixLen {
		prefix = string(runes[:hashPrefixLen])
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%d:%s", source, line, prefix)))
	return hex.EncodeToString(sum[:])[:12]
}

// recordWire is the serialized form. Field order and names are part of the
// on-disk contract; memory_type and type_metadata are omitted for default
// (episodic) records to keep common records compact.
type recordWire struct {
	Hash         string             `json:"hash"`
	Content      string             `json:"content"`
	Source       string             `json:"source"`
	Line         int                `json:"line"`
	Category     string             `json:"category"`
	Created      string             `json:"created"`
	LastAccessed string             `json:"last_accessed"`
	AccessCount  int                `json:"access_count"`
	Importance   float64            `json:"importance"`
	Confidence   float64            `json:"confidence"`
	Sentiment    map[string]float64 `json:"sentiment"`
	Tags         []string           `json:"tags"`
	Related      []string           `json:"related"`
	Type         string             `json:"memory_type,omitempty"`
	TypeMeta     *TypeConfig        `json:"type_metadata,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r *Record) MarshalJSON() ([]byte, error) {
	w := recordWire{
		Hash:         r.Hash,
		Content:      r.Content,
		Source:       r.Source,
		Line:         r.Line,
		Category:     r.Category,
		Created:      r.Created.Format(time.RFC3339Nano),
		LastAccessed: r.LastAccessed.Format(time.RFC3339Nano),
		AccessCount:  r.AccessCount,
		Importance:   round4(r.Importance),
		Confidence:   round4(r.Confidence),
		Sentiment:    r.Sentiment,
		Tags:         r.Tags,
		Related:      r.Related,
	}
	if w.Sentiment == nil {
		w.Sentiment = map[string]float64{}
	}
	if w.Tags == nil {
		w.Tags = []string{}
	}
	if w.Related == nil {
		w.Related = []string{}
	}
	if r.Type != "" && r.Type != TypeEpisodic {
		w.Type = string(r.Type)
		if r.Type == TypeCustom {
			w.TypeMeta = r.TypeMeta
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler. The stored hash is kept as-is
// and never recomputed, so round-tripping preserves identity exactly.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w recordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	created, err := parseTime(w.Created)
	if err != nil {
		return fmt.Errorf("parse created: %w", err)
	}
	accessed, err := parseTime(w.LastAccessed)
	if err != nil {
		accessed = created
	}
	r.Hash = w.Hash
	r.Content = w.Content
	r.Source = w.Source
	r.Line = w.Line
	r.Category = w.Category
	r.Created = created
	r.LastAccessed = accessed
	r.AccessCount = w.AccessCount
	r.Importance = w.Importance
	r.Confidence = w.Confidence
	r.Sentiment = w.Sentiment
	r.Tags = w.Tags
	r.Related = w.Related
	r.Type = TypeEpisodic
	if w.Type != "" {
		r.Type = RecordType(w.Type)
	}
	r.TypeMeta = w.TypeMeta
	if r.Category == "" {
		r.Category = "general"
	}
	if r.Importance == 0 && w.AccessCount == 0 {
		r.Importance = 1.0
	}
	if r.Hash == "" {
		r.Hash = IdentityHash(r.Source, r.Line, r.Content)
	}
	return nil
}

// parseTime accepts RFC 3339 timestamps with or without a zone offset;
// older stores wrote zone-less local timestamps.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05.999999999", s)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
