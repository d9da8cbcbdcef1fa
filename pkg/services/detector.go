package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/tracewear/passport-engine/pkg/mapping"
	"github.com/tracewear/passport-engine/pkg/models"
)

// dedupKey identifies a distinct raw value within one detection batch.
// Folding makes "Cotton", "cotton" and " COTTON " one value.
type dedupKey struct {
	entityType models.EntityType
	column     string
	folded     string
}

func (s *valueMappingService) Detect(ctx context.Context, brandID uuid.UUID, rows []models.ImportRow, columns models.ColumnMapping) ([]*models.UnmappedValue, error) {
	// Presence in seen means the value was already resolved once this batch;
	// a nil entry means it resolved fine and only needs skipping.
	seen := make(map[dedupKey]*models.UnmappedValue)
	var unmapped []*models.UnmappedValue

	// Stable column order keeps resolver compound calls deterministic.
	cols := make([]string, 0, len(columns))
	for col := range columns {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, row := range rows {
		for _, col := range cols {
			entityType := columns[col]
			value, ok := row[col]
			if !ok {
				continue
			}
			record, err := s.detectOne(ctx, brandID, entityType, col, value, seen)
			if err != nil {
				return nil, err
			}
			if record != nil && record.Occurrences == 1 {
				unmapped = append(unmapped, record)
			}
		}
	}

	sortUnmapped(unmapped)
	return unmapped, nil
}

func (s *valueMappingService) DetectForType(ctx context.Context, brandID uuid.UUID, values []string, entityType models.EntityType, sourceColumn string) ([]*models.UnmappedValue, error) {
	if !entityType.Valid() {
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}

	seen := make(map[dedupKey]*models.UnmappedValue)
	var unmapped []*models.UnmappedValue

	for _, value := range values {
		record, err := s.detectOne(ctx, brandID, entityType, sourceColumn, value, seen)
		if err != nil {
			return nil, err
		}
		if record != nil && record.Occurrences == 1 {
			unmapped = append(unmapped, record)
		}
	}

	sortUnmapped(unmapped)
	return unmapped, nil
}

// detectOne processes a single cell. The resolver runs at most once per
// distinct folded value; repeats only bump the occurrence count.
func (s *valueMappingService) detectOne(ctx context.Context, brandID uuid.UUID, entityType models.EntityType, column, value string, seen map[dedupKey]*models.UnmappedValue) (*models.UnmappedValue, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	key := dedupKey{entityType: entityType, column: column, folded: mapping.Fold(value)}
	if record, done := seen[key]; done {
		if record != nil {
			record.Occurrences++
		}
		return record, nil
	}

	result, err := s.Resolve(ctx, brandID, entityType, value, column)
	if err != nil {
		return nil, err
	}
	if result.Found {
		seen[key] = nil
		return nil, nil
	}

	record := &models.UnmappedValue{
		EntityType:   entityType,
		RawValue:     trimmed,
		SourceColumn: column,
		Occurrences:  1,
	}
	seen[key] = record
	return record, nil
}

// sortUnmapped orders most frequent first, with raw value as tiebreaker so
// output is stable.
func sortUnmapped(values []*models.UnmappedValue) {
	sort.SliceStable(values, func(i, j int) bool {
		if values[i].Occurrences != values[j].Occurrences {
			return values[i].Occurrences > values[j].Occurrences
		}
		return values[i].RawValue < values[j].RawValue
	})
}

// canonicalForm normalizes a value and collapses known synonyms to their
// canonical key.
func (s *valueMappingService) canonicalForm(value string) string {
	if canonical, ok := s.synonyms.Resolve(value); ok {
		return mapping.Normalize(canonical)
	}
	return mapping.Normalize(value)
}

func (s *valueMappingService) Suggest(ctx context.Context, brandID uuid.UUID, unmapped *models.UnmappedValue) ([]*models.FuzzyMatchResult, error) {
	desc, ok := entityDescriptors[unmapped.EntityType]
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", unmapped.EntityType)
	}

	candidates, err := desc.Candidates(ctx, s.deps, brandID)
	if err != nil {
		return nil, fmt.Errorf("loading catalog candidates: %w", err)
	}

	// Each candidate is scored on the plain normalized forms and again with
	// both sides folded through the synonym table, keeping the higher score.
	// Synonym folding lets a known variant score like the canonical form it
	// maps to ("elastane" against a "Spandex" catalog entry is a 100), but
	// it can only ever widen the result set: a near-miss on the raw spelling
	// ("teel" against "Teal") still counts even when the candidate's
	// canonical form is a distant string.
	plainTarget := mapping.Normalize(unmapped.RawValue)
	canonicalTarget := s.canonicalForm(unmapped.RawValue)

	var results []*models.FuzzyMatchResult
	for _, candidate := range candidates {
		score := mapping.Similarity(plainTarget, mapping.Normalize(candidate.Name))
		if canonical := mapping.Similarity(canonicalTarget, s.canonicalForm(candidate.Name)); canonical > score {
			score = canonical
		}
		if score < s.cfg.FuzzyThreshold {
			continue
		}
		results = append(results, &models.FuzzyMatchResult{
			TargetID:     candidate.ID,
			MatchedValue: candidate.Name,
			Similarity:   score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].MatchedValue < results[j].MatchedValue
	})
	if len(results) > s.cfg.MaxSuggestions {
		results = results[:s.cfg.MaxSuggestions]
	}
	return results, nil
}
