package model

import "fmt"

// RecordType selects decay and recall behavior for a record.
type RecordType string

// Canonical record types. TypeCustom carries caller-supplied overrides in
// the record's TypeMeta instead of a fixed table entry.
const (
	TypeEpisodic   RecordType = "episodic"
	TypeFact       RecordType = "fact"
	TypePreference RecordType = "preference"
	TypeProcedure  RecordType = "procedure"
	TypeMistake    RecordType = "mistake"
	TypeCustom     RecordType = "custom"
)

// TypeConfig fixes how a record type decays and ranks. A zero field on a
// custom override means "inherit the episodic default".
type TypeConfig struct {
	DecayMultiplier float64 `json:"decay_multiplier,omitempty"`
	ImportanceBoost float64 `json:"importance_boost,omitempty"`
	RecallPriority  float64 `json:"recall_priority,omitempty"`
}

var typeConfigs = map[RecordType]TypeConfig{
	TypeEpisodic:   {DecayMultiplier: 1.0, ImportanceBoost: 1.0, RecallPriority: 0.5},
	TypeFact:       {DecayMultiplier: 1.0, ImportanceBoost: 1.2, RecallPriority: 0.7},
	TypePreference: {DecayMultiplier: 3.0, ImportanceBoost: 1.2, RecallPriority: 0.7},
	TypeProcedure:  {DecayMultiplier: 3.0, ImportanceBoost: 1.3, RecallPriority: 0.75},
	TypeMistake:    {DecayMultiplier: 10.0, ImportanceBoost: 2.0, RecallPriority: 1.0},
}

// ParseType validates a record type name. Custom types require overrides.
func ParseType(s string, meta *TypeConfig) (RecordType, error) {
	if s == "" {
		return TypeEpisodic, nil
	}
	t := RecordType(s)
	if _, ok := typeConfigs[t]; ok {
		return t, nil
	}
	if t == TypeCustom {
		if meta == nil {
			return "", fmt.Errorf("custom record type requires overrides")
		}
		return t, nil
	}
	return "", fmt.Errorf("unknown record type %q", s)
}

// TypeConfig resolves the effective type configuration for a record.
// Unknown types fall back to the episodic defaults.
func (r *Record) TypeConfig() TypeConfig {
	if r.Type == TypeCustom {
		cfg := typeConfigs[TypeEpisodic]
		if m := r.TypeMeta; m != nil {
			if m.DecayMultiplier > 0 {
				cfg.DecayMultiplier = m.DecayMultiplier
			}
			if m.ImportanceBoost > 0 {
				cfg.ImportanceBoost = m.ImportanceBoost
			}
			if m.RecallPriority > 0 {
				cfg.RecallPriority = m.RecallPriority
			}
		}
		return cfg
	}
	if cfg, ok := typeConfigs[r.Type]; ok {
		return cfg
	}
	return typeConfigs[TypeEpisodic]
}

// DecayMultiplier is a shorthand for the effective half-life scaling.
func (r *Record) DecayMultiplier() float64 {
	return r.TypeConfig().DecayMultiplier
}
