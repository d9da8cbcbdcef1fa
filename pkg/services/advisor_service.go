package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tracewear/passport-engine/pkg/llm"
	"github.com/tracewear/passport-engine/pkg/models"
)

// AdvisorRecommendation is the advisor's opinion on which fuzzy candidate, if
// any, an unmapped value should map to. It is advisory only: nothing is
// written until a reviewer confirms.
type AdvisorRecommendation struct {
	// MatchedValue names the recommended candidate, or is empty when the
	// advisor recommends creating a new catalog entry instead.
	MatchedValue string `json:"matched_value"`
	Rationale    string `json:"rationale"`
}

// AdvisorService asks an LLM to pick among fuzzy candidates when string
// similarity alone is inconclusive.
type AdvisorService interface {
	// Recommend returns the advisor's pick for the unmapped value. The
	// candidates must come from a prior Suggest call; the advisor never
	// introduces targets of its own.
	Recommend(ctx context.Context, unmapped *models.UnmappedValue, candidates []*models.FuzzyMatchResult) (*AdvisorRecommendation, error)
}

const advisorSystemMessage = `You review product data mappings for apparel ` +
	`digital product passports. Given a raw imported value and candidate ` +
	`catalog entries, pick the candidate that denotes the same real-world ` +
	`concept, or none if no candidate does. Respond with JSON only: ` +
	`{"matched_value": "<candidate or empty>", "rationale": "<one sentence>"}`

type advisorService struct {
	client llm.LLMClient
	logger *zap.Logger
}

// NewAdvisorService creates a new AdvisorService.
func NewAdvisorService(client llm.LLMClient, logger *zap.Logger) AdvisorService {
	return &advisorService{
		client: client,
		logger: logger.Named("advisor"),
	}
}

var _ AdvisorService = (*advisorService)(nil)

func (s *advisorService) Recommend(ctx context.Context, unmapped *models.UnmappedValue, candidates []*models.FuzzyMatchResult) (*AdvisorRecommendation, error) {
	if len(candidates) == 0 {
		return &AdvisorRecommendation{Rationale: "no candidates to choose from"}, nil
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Imported %s value: %q (column %q)\n\nCandidates:\n",
		unmapped.EntityType, unmapped.RawValue, unmapped.SourceColumn)
	for _, c := range candidates {
		fmt.Fprintf(&prompt, "- %q (similarity %d)\n", c.MatchedValue, c.Similarity)
	}

	raw, err := s.client.GenerateResponse(ctx, prompt.String(), advisorSystemMessage, 0.1)
	if err != nil {
		return nil, fmt.Errorf("advisor request: %w", err)
	}

	rec, err := parseRecommendation(raw)
	if err != nil {
		s.logger.Warn("Advisor returned unparseable response",
			zap.String("entity_type", string(unmapped.EntityType)),
			zap.Error(err))
		return nil, err
	}

	// Guard against hallucinated targets.
	if rec.MatchedValue != "" && !containsCandidate(candidates, rec.MatchedValue) {
		s.logger.Warn("Advisor recommended a value outside the candidate list",
			zap.String("recommended", rec.MatchedValue))
		return nil, fmt.Errorf("advisor recommended unknown candidate %q", rec.MatchedValue)
	}

	return rec, nil
}

// parseRecommendation tolerates a markdown code fence around the JSON body.
func parseRecommendation(raw string) (*AdvisorRecommendation, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	var rec AdvisorRecommendation
	if err := json.Unmarshal([]byte(strings.TrimSpace(cleaned)), &rec); err != nil {
		return nil, fmt.Errorf("parsing advisor response: %w", err)
	}
	return &rec, nil
}

func containsCandidate(candidates []*models.FuzzyMatchResult, value string) bool {
	for _, c := range candidates {
		if strings.EqualFold(c.MatchedValue, value) {
			return true
		}
	}
	return false
}
