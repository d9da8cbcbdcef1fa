package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tracewear/passport-engine/pkg/models"
)

type mockLLMClient struct {
	response string
	err      error
	prompts  []string
}

func (m *mockLLMClient) GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.response, m.err
}

func (m *mockLLMClient) GetModel() string { return "test-model" }

func advisorCandidates() []*models.FuzzyMatchResult {
	return []*models.FuzzyMatchResult{
		{TargetID: uuid.New(), MatchedValue: "Organic Cotton", Similarity: 78},
		{TargetID: uuid.New(), MatchedValue: "Cotton", Similarity: 65},
	}
}

func TestAdvisorRecommend(t *testing.T) {
	client := &mockLLMClient{
		response: `{"matched_value": "Organic Cotton", "rationale": "GOTS cotton is organic cotton."}`,
	}
	svc := NewAdvisorService(client, zap.NewNop())

	rec, err := svc.Recommend(context.Background(), &models.UnmappedValue{
		EntityType:   models.EntityTypeMaterial,
		RawValue:     "GOTS cotton",
		SourceColumn: "material_1_name",
	}, advisorCandidates())
	require.NoError(t, err)
	assert.Equal(t, "Organic Cotton", rec.MatchedValue)
	assert.NotEmpty(t, rec.Rationale)

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "GOTS cotton")
	assert.Contains(t, client.prompts[0], "Organic Cotton")
}

func TestAdvisorRecommendStripsCodeFence(t *testing.T) {
	client := &mockLLMClient{
		response: "```json\n{\"matched_value\": \"Cotton\", \"rationale\": \"same fiber\"}\n```",
	}
	svc := NewAdvisorService(client, zap.NewNop())

	rec, err := svc.Recommend(context.Background(), &models.UnmappedValue{
		EntityType: models.EntityTypeMaterial,
		RawValue:   "Cotton fibre",
	}, advisorCandidates())
	require.NoError(t, err)
	assert.Equal(t, "Cotton", rec.MatchedValue)
}

func TestAdvisorRejectsHallucinatedCandidate(t *testing.T) {
	client := &mockLLMClient{
		response: `{"matched_value": "Bamboo Silk", "rationale": "sounds nice"}`,
	}
	svc := NewAdvisorService(client, zap.NewNop())

	_, err := svc.Recommend(context.Background(), &models.UnmappedValue{
		EntityType: models.EntityTypeMaterial,
		RawValue:   "Cotton fibre",
	}, advisorCandidates())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bamboo Silk")
}

func TestAdvisorNoCandidates(t *testing.T) {
	client := &mockLLMClient{}
	svc := NewAdvisorService(client, zap.NewNop())

	rec, err := svc.Recommend(context.Background(), &models.UnmappedValue{
		EntityType: models.EntityTypeCategory,
		RawValue:   "Gowns",
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, rec.MatchedValue)
	require.Len(t, client.prompts, 0, "no request without candidates")
}

func TestAdvisorRequestError(t *testing.T) {
	client := &mockLLMClient{err: errors.New("upstream unavailable")}
	svc := NewAdvisorService(client, zap.NewNop())

	_, err := svc.Recommend(context.Background(), &models.UnmappedValue{
		EntityType: models.EntityTypeMaterial,
		RawValue:   "Cotton",
	}, advisorCandidates())
	require.Error(t, err)
}
