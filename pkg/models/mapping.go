package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntityType identifies which catalog table a raw imported value resolves
// against.
type EntityType string

const (
	EntityTypeMaterial EntityType = "material"
	EntityTypeCategory EntityType = "category"
	EntityTypeEcoClaim EntityType = "eco_claim"
)

// Valid reports whether the entity type is one of the known catalog types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeMaterial, EntityTypeCategory, EntityTypeEcoClaim:
		return true
	}
	return false
}

// ParseEntityType converts a string into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}

// Match types reported on a MappingResult.
const (
	MatchTypeExact = "exact"
	MatchTypeFuzzy = "fuzzy"
	MatchTypeNone  = "none"
)

// MappingResult is the outcome of a single resolution call. It is never
// persisted.
type MappingResult struct {
	TargetID   *uuid.UUID `json:"target_id,omitempty"`
	Found      bool       `json:"found"`
	Confidence int        `json:"confidence"` // 0-100
	MatchType  string     `json:"match_type"` // exact | fuzzy | none
}

// UnmappedValue describes a distinct raw value that could not be resolved
// within one detection batch. RawValue keeps the original casing for display;
// deduplication folds case and whitespace.
type UnmappedValue struct {
	EntityType   EntityType `json:"entity_type"`
	RawValue     string     `json:"raw_value"`
	SourceColumn string     `json:"source_column"`
	Occurrences  int        `json:"occurrences"`
}

// FuzzyMatchResult is a single suggestion produced for human review.
type FuzzyMatchResult struct {
	TargetID     uuid.UUID `json:"target_id"`
	MatchedValue string    `json:"matched_value"`
	Similarity   int       `json:"similarity"` // 0-100
}

// ValueMapping is a durable record linking a raw imported string to a
// canonical catalog entity id. Rows are created idempotently on first
// successful catalog match and never overwritten.
type ValueMapping struct {
	ID           uuid.UUID  `json:"id"`
	BrandID      uuid.UUID  `json:"brand_id"`
	SourceColumn string     `json:"source_column"`
	RawValue     string     `json:"raw_value"`
	EntityType   EntityType `json:"entity_type"`
	TargetID     uuid.UUID  `json:"target_id"`
	CreatedAt    time.Time  `json:"created_at"`
}
