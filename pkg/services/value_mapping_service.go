package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tracewear/passport-engine/pkg/config"
	"github.com/tracewear/passport-engine/pkg/mapping"
	"github.com/tracewear/passport-engine/pkg/models"
	"github.com/tracewear/passport-engine/pkg/repositories"
)

// ValueMappingService resolves raw imported values to catalog entity ids,
// detects unmapped values in import batches, and produces fuzzy suggestions
// for human review.
//
// The resolution ladder performs exact (case/whitespace-insensitive) matching
// only: cache, then persisted mapping, then direct catalog lookup. Fuzzy
// matching is never applied automatically; it is surfaced separately via
// Suggest so a reviewer confirms every non-exact mapping.
type ValueMappingService interface {
	// Resolve runs the resolution ladder for a raw value against the given
	// catalog entity type. Storage read errors propagate; the write of a
	// newly discovered mapping is best-effort.
	Resolve(ctx context.Context, brandID uuid.UUID, entityType models.EntityType, rawValue, sourceColumn string) (*models.MappingResult, error)

	// ResolveMaterial, ResolveCategory, and ResolveEcoClaim are convenience
	// wrappers over Resolve for the three catalog types.
	ResolveMaterial(ctx context.Context, brandID uuid.UUID, rawValue, sourceColumn string) (*models.MappingResult, error)
	ResolveCategory(ctx context.Context, brandID uuid.UUID, rawValue, sourceColumn string) (*models.MappingResult, error)
	ResolveEcoClaim(ctx context.Context, brandID uuid.UUID, rawValue, sourceColumn string) (*models.MappingResult, error)

	// AutoCreateEcoClaim creates a brand eco-claim from raw import text.
	// Values that fail the input-safety check are silently ineligible.
	// Returns nil when nothing was created; creation failures are logged
	// and suppressed.
	AutoCreateEcoClaim(ctx context.Context, brandID uuid.UUID, claimText string) (*uuid.UUID, error)

	// Detect scans a batch of import rows and aggregates distinct unmapped
	// raw values per column with occurrence counts, calling the resolver
	// once per distinct value.
	Detect(ctx context.Context, brandID uuid.UUID, rows []models.ImportRow, columns models.ColumnMapping) ([]*models.UnmappedValue, error)

	// DetectForType is the single-column variant of Detect.
	DetectForType(ctx context.Context, brandID uuid.UUID, values []string, entityType models.EntityType, sourceColumn string) ([]*models.UnmappedValue, error)

	// Suggest returns the top fuzzy matches for an unmapped value, for human
	// review only.
	Suggest(ctx context.Context, brandID uuid.UUID, unmapped *models.UnmappedValue) ([]*models.FuzzyMatchResult, error)

	// ResolveSynonym checks the static synonym table.
	ResolveSynonym(value string) (string, bool)

	// Cache maintenance, exposed for the admin endpoints.
	CacheStats() mapping.CacheStats
	SweepCache() int
	ClearCache()
}

// catalogCandidate is one catalog row considered during lookup or suggestion.
type catalogCandidate struct {
	ID   uuid.UUID
	Name string
}

// resolverDeps bundles the repositories the descriptor closures work against.
type resolverDeps struct {
	materials  repositories.MaterialRepository
	categories repositories.CategoryRepository
	ecoClaims  repositories.EcoClaimRepository
}

// entityDescriptor parameterizes the resolution ladder per catalog type, so
// one ladder serves materials, categories, and eco-claims.
type entityDescriptor struct {
	// BrandScoped is false for the shared category taxonomy.
	BrandScoped bool

	// Lookup finds a catalog row by exact (case/whitespace-insensitive) name.
	Lookup func(ctx context.Context, deps resolverDeps, brandID uuid.UUID, value string) (uuid.UUID, bool, error)

	// Candidates returns every catalog row of the type, for fuzzy suggestion.
	Candidates func(ctx context.Context, deps resolverDeps, brandID uuid.UUID) ([]catalogCandidate, error)
}

var entityDescriptors = map[models.EntityType]entityDescriptor{
	models.EntityTypeMaterial: {
		BrandScoped: true,
		Lookup: func(ctx context.Context, deps resolverDeps, brandID uuid.UUID, value string) (uuid.UUID, bool, error) {
			m, err := deps.materials.GetByName(ctx, brandID, value)
			if err != nil || m == nil {
				return uuid.Nil, false, err
			}
			return m.ID, true, nil
		},
		Candidates: func(ctx context.Context, deps resolverDeps, brandID uuid.UUID) ([]catalogCandidate, error) {
			materials, err := deps.materials.GetByBrand(ctx, brandID)
			if err != nil {
				return nil, err
			}
			candidates := make([]catalogCandidate, 0, len(materials))
			for _, m := range materials {
				candidates = append(candidates, catalogCandidate{ID: m.ID, Name: m.Name})
			}
			return candidates, nil
		},
	},
	models.EntityTypeCategory: {
		BrandScoped: false,
		Lookup: func(ctx context.Context, deps resolverDeps, _ uuid.UUID, value string) (uuid.UUID, bool, error) {
			c, err := deps.categories.GetByName(ctx, value)
			if err != nil || c == nil {
				return uuid.Nil, false, err
			}
			return c.ID, true, nil
		},
		Candidates: func(ctx context.Context, deps resolverDeps, _ uuid.UUID) ([]catalogCandidate, error) {
			categories, err := deps.categories.GetAll(ctx)
			if err != nil {
				return nil, err
			}
			candidates := make([]catalogCandidate, 0, len(categories))
			for _, c := range categories {
				candidates = append(candidates, catalogCandidate{ID: c.ID, Name: c.Name})
			}
			return candidates, nil
		},
	},
	models.EntityTypeEcoClaim: {
		BrandScoped: true,
		Lookup: func(ctx context.Context, deps resolverDeps, brandID uuid.UUID, value string) (uuid.UUID, bool, error) {
			c, err := deps.ecoClaims.GetByClaim(ctx, brandID, value)
			if err != nil || c == nil {
				return uuid.Nil, false, err
			}
			return c.ID, true, nil
		},
		Candidates: func(ctx context.Context, deps resolverDeps, brandID uuid.UUID) ([]catalogCandidate, error) {
			claims, err := deps.ecoClaims.GetByBrand(ctx, brandID)
			if err != nil {
				return nil, err
			}
			candidates := make([]catalogCandidate, 0, len(claims))
			for _, c := range claims {
				candidates = append(candidates, catalogCandidate{ID: c.ID, Name: c.Claim})
			}
			return candidates, nil
		},
	},
}

type valueMappingService struct {
	deps     resolverDeps
	mappings repositories.ValueMappingRepository
	cache    *mapping.Cache
	synonyms *mapping.SynonymTable
	cfg      *config.MappingConfig
	logger   *zap.Logger
}

// NewValueMappingService creates a new ValueMappingService.
func NewValueMappingService(
	materialRepo repositories.MaterialRepository,
	categoryRepo repositories.CategoryRepository,
	ecoClaimRepo repositories.EcoClaimRepository,
	mappingRepo repositories.ValueMappingRepository,
	cache *mapping.Cache,
	synonyms *mapping.SynonymTable,
	cfg *config.MappingConfig,
	logger *zap.Logger,
) ValueMappingService {
	return &valueMappingService{
		deps: resolverDeps{
			materials:  materialRepo,
			categories: categoryRepo,
			ecoClaims:  ecoClaimRepo,
		},
		mappings: mappingRepo,
		cache:    cache,
		synonyms: synonyms,
		cfg:      cfg,
		logger:   logger.Named("value-mapping"),
	}
}

var _ ValueMappingService = (*valueMappingService)(nil)

func notFoundResult() *models.MappingResult {
	return &models.MappingResult{Found: false, Confidence: 0, MatchType: models.MatchTypeNone}
}

func exactResult(targetID uuid.UUID) *models.MappingResult {
	return &models.MappingResult{
		TargetID:   &targetID,
		Found:      true,
		Confidence: 100,
		MatchType:  models.MatchTypeExact,
	}
}

func (s *valueMappingService) Resolve(ctx context.Context, brandID uuid.UUID, entityType models.EntityType, rawValue, sourceColumn string) (*models.MappingResult, error) {
	desc, ok := entityDescriptors[entityType]
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}

	// Trim only: casing is preserved for storage so the review UI shows the
	// value as imported.
	trimmed := strings.TrimSpace(rawValue)
	if trimmed == "" {
		return notFoundResult(), nil
	}

	// Rung 1: in-process cache.
	if targetID, hit := s.cache.Get(brandID, sourceColumn, trimmed); hit {
		return exactResult(targetID), nil
	}

	// Rung 2: persisted value-mapping table.
	vm, err := s.mappings.Get(ctx, brandID, sourceColumn, trimmed)
	if err != nil {
		return nil, fmt.Errorf("value mapping lookup: %w", err)
	}
	if vm != nil {
		s.cache.Put(brandID, sourceColumn, trimmed, vm.TargetID)
		return exactResult(vm.TargetID), nil
	}

	// Rung 3: direct catalog lookup.
	targetID, found, err := desc.Lookup(ctx, s.deps, brandID, trimmed)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}
	if !found {
		return notFoundResult(), nil
	}

	// The catalog confirmed the match; persisting the shortcut mapping is
	// best-effort and must not fail the resolution.
	if err := s.mappings.CreateIdempotent(ctx, &models.ValueMapping{
		BrandID:      brandID,
		SourceColumn: sourceColumn,
		RawValue:     trimmed,
		EntityType:   entityType,
		TargetID:     targetID,
	}); err != nil {
		s.logger.Warn("Failed to persist discovered value mapping",
			zap.String("brand_id", brandID.String()),
			zap.String("source_column", sourceColumn),
			zap.String("entity_type", string(entityType)),
			zap.Error(err))
	}

	s.cache.Put(brandID, sourceColumn, trimmed, targetID)
	return exactResult(targetID), nil
}

func (s *valueMappingService) ResolveMaterial(ctx context.Context, brandID uuid.UUID, rawValue, sourceColumn string) (*models.MappingResult, error) {
	return s.Resolve(ctx, brandID, models.EntityTypeMaterial, rawValue, sourceColumn)
}

func (s *valueMappingService) ResolveCategory(ctx context.Context, brandID uuid.UUID, rawValue, sourceColumn string) (*models.MappingResult, error) {
	return s.Resolve(ctx, brandID, models.EntityTypeCategory, rawValue, sourceColumn)
}

func (s *valueMappingService) ResolveEcoClaim(ctx context.Context, brandID uuid.UUID, rawValue, sourceColumn string) (*models.MappingResult, error) {
	return s.Resolve(ctx, brandID, models.EntityTypeEcoClaim, rawValue, sourceColumn)
}

func (s *valueMappingService) AutoCreateEcoClaim(ctx context.Context, brandID uuid.UUID, claimText string) (*uuid.UUID, error) {
	if rejection := mapping.CheckValueSafety(claimText, s.cfg.MaxValueLength); rejection != nil {
		s.logger.Warn("Eco claim text rejected by safety check",
			zap.String("brand_id", brandID.String()),
			zap.String("reason", rejection.Reason))
		return nil, nil
	}

	claim := &models.EcoClaim{
		BrandID: brandID,
		Claim:   strings.TrimSpace(claimText),
	}
	if err := s.deps.ecoClaims.Create(ctx, claim); err != nil {
		// Auto-creation is a convenience; failure must not break the import.
		s.logger.Error("Failed to auto-create eco claim",
			zap.String("brand_id", brandID.String()),
			zap.Error(err))
		return nil, nil
	}

	return &claim.ID, nil
}

func (s *valueMappingService) ResolveSynonym(value string) (string, bool) {
	return s.synonyms.Resolve(value)
}

func (s *valueMappingService) CacheStats() mapping.CacheStats {
	return s.cache.Stats()
}

func (s *valueMappingService) SweepCache() int {
	return s.cache.Sweep()
}

func (s *valueMappingService) ClearCache() {
	s.cache.Clear()
}
