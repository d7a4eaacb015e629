package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestIdentityHash_Stable(t *testing.T) {
	a := IdentityHash("notes", 3, "Patent filed for memory decay algorithm")
	b := IdentityHash("notes", 3, "Patent filed for memory decay algorithm")
	if a != b {
		t.Fatalf("hash not deterministic: %s vs %s", a, b)
	}
	if len(a) != 12 {
		t.Fatalf("expected 12-char hash, got %q", a)
	}
	if IdentityHash("notes", 4, "Patent filed for memory decay algorithm") == a {
		t.Fatal("line must participate in the hash")
	}
	if IdentityHash("other", 3, "Patent filed for memory decay algorithm") == a {
		t.Fatal("source must participate in the hash")
	}
}

func TestIdentityHash_PrefixCollision(t *testing.T) {
	// Only the first 100 characters participate: long records sharing a
	// prefix, source, and line collide and dedupe against each other.
	prefix := strings.Repeat("x", 100)
	a := IdentityHash("src", 1, prefix+" first tail")
	b := IdentityHash("src", 1, prefix+" second tail")
	if a != b {
		t.Fatalf("expected prefix collision, got %s vs %s", a, b)
	}
}

func TestRecord_RoundTrip(t *testing.T) {
	r := New("Revenue grew 12% this quarter", "notes", 2, "business")
	r.Tags = []string{"revenue"}
	r.AccessCount = 3
	r.Importance = 1.23456

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}

	var got Record
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Hash != r.Hash {
		t.Fatalf("hash changed across round trip: %s vs %s", got.Hash, r.Hash)
	}
	if got.Content != r.Content || got.Source != r.Source {
		t.Fatalf("content/source changed: %+v", got)
	}
	if !got.Created.Equal(r.Created) {
		t.Fatalf("created changed: %v vs %v", got.Created, r.Created)
	}
	if got.Importance != 1.2346 {
		t.Fatalf("expected importance rounded to 4 decimals, got %v", got.Importance)
	}
}

func TestRecord_DefaultTypeOmitted(t *testing.T) {
	b, err := json.Marshal(New("some plain episodic content here", "s", 1, ""))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "memory_type") {
		t.Fatalf("episodic records must omit memory_type: %s", b)
	}

	m := New("MISTAKE: deployed on friday", "s", 2, "")
	m.Type = TypeMistake
	b, _ = json.Marshal(m)
	if !strings.Contains(string(b), `"memory_type":"mistake"`) {
		t.Fatalf("non-default type must serialize: %s", b)
	}
}

func TestTypeConfig_Resolution(t *testing.T) {
	r := New("c", "s", 1, "")
	r.Type = TypeMistake
	cfg := r.TypeConfig()
	if cfg.DecayMultiplier != 10.0 || cfg.ImportanceBoost != 2.0 {
		t.Fatalf("unexpected mistake config: %+v", cfg)
	}

	r.Type = TypeCustom
	r.TypeMeta = &TypeConfig{DecayMultiplier: 5.0}
	cfg = r.TypeConfig()
	if cfg.DecayMultiplier != 5.0 {
		t.Fatalf("custom override not applied: %+v", cfg)
	}
	if cfg.ImportanceBoost != 1.0 || cfg.RecallPriority != 0.5 {
		t.Fatalf("unset custom fields must inherit episodic defaults: %+v", cfg)
	}

	r.Type = RecordType("bogus")
	if r.TypeConfig().DecayMultiplier != 1.0 {
		t.Fatal("unknown types must fall back to episodic defaults")
	}
}

func TestParseType(t *testing.T) {
	if _, err := ParseType("mistake", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseType("custom", nil); err == nil {
		t.Fatal("custom without overrides must be rejected")
	}
	if _, err := ParseType("bogus", nil); err == nil {
		t.Fatal("unknown type must be rejected")
	}
	tt, err := ParseType("", nil)
	if err != nil || tt != TypeEpisodic {
		t.Fatalf("empty type must default to episodic, got %v, %v", tt, err)
	}
}

func TestParseTime_LegacyLayout(t *testing.T) {
	got, err := parseTime("2026-02-15T10:30:00.123456")
	if err != nil {
		t.Fatal(err)
	}
	if got.Year() != 2026 || got.Month() != time.February {
		t.Fatalf("unexpected parse result: %v", got)
	}
}
