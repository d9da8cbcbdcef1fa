package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tracewear/passport-engine/pkg/apperrors"
	"github.com/tracewear/passport-engine/pkg/mapping"
	"github.com/tracewear/passport-engine/pkg/models"
	"github.com/tracewear/passport-engine/pkg/repositories"
)

// CatalogService manages catalog entities: brand materials and eco-claims,
// and the shared category taxonomy.
type CatalogService interface {
	ListMaterials(ctx context.Context, brandID uuid.UUID) ([]*models.Material, error)
	CreateMaterial(ctx context.Context, material *models.Material) error
	DeleteMaterial(ctx context.Context, materialID uuid.UUID) error

	ListCategories(ctx context.Context) ([]*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error

	ListEcoClaims(ctx context.Context, brandID uuid.UUID) ([]*models.EcoClaim, error)
	CreateEcoClaim(ctx context.Context, claim *models.EcoClaim) error
	// AutoCreateEcoClaim runs the import-path creation with its safety
	// checks; a nil id with nil error means the text was rejected.
	AutoCreateEcoClaim(ctx context.Context, brandID uuid.UUID, claimText string) (*uuid.UUID, error)
	DeleteEcoClaim(ctx context.Context, claimID uuid.UUID) error

	ListValueMappings(ctx context.Context, brandID uuid.UUID) ([]*models.ValueMapping, error)
}

type catalogService struct {
	materials  repositories.MaterialRepository
	categories repositories.CategoryRepository
	ecoClaims  repositories.EcoClaimRepository
	valueMaps  repositories.ValueMappingRepository
	mappings   ValueMappingService
	logger     *zap.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	materialRepo repositories.MaterialRepository,
	categoryRepo repositories.CategoryRepository,
	ecoClaimRepo repositories.EcoClaimRepository,
	valueMappingRepo repositories.ValueMappingRepository,
	mappingService ValueMappingService,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		materials:  materialRepo,
		categories: categoryRepo,
		ecoClaims:  ecoClaimRepo,
		valueMaps:  valueMappingRepo,
		mappings:   mappingService,
		logger:     logger.Named("catalog"),
	}
}

var _ CatalogService = (*catalogService)(nil)

func (s *catalogService) ListMaterials(ctx context.Context, brandID uuid.UUID) ([]*models.Material, error) {
	return s.materials.GetByBrand(ctx, brandID)
}

func (s *catalogService) CreateMaterial(ctx context.Context, material *models.Material) error {
	if strings.TrimSpace(material.Name) == "" {
		return fmt.Errorf("%w: material name is required", apperrors.ErrInvalidEntity)
	}

	existing, err := s.materials.GetByName(ctx, material.BrandID, material.Name)
	if err != nil {
		return fmt.Errorf("failed to check for existing material: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: material %q already exists", apperrors.ErrConflict, existing.Name)
	}

	return s.materials.Create(ctx, material)
}

func (s *catalogService) DeleteMaterial(ctx context.Context, materialID uuid.UUID) error {
	return s.materials.Delete(ctx, materialID)
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return s.categories.GetAll(ctx)
}

func (s *catalogService) CreateCategory(ctx context.Context, category *models.Category) error {
	if strings.TrimSpace(category.Name) == "" {
		return fmt.Errorf("%w: category name is required", apperrors.ErrInvalidEntity)
	}

	existing, err := s.categories.GetByName(ctx, category.Name)
	if err != nil {
		return fmt.Errorf("failed to check for existing category: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: category %q already exists", apperrors.ErrConflict, existing.Name)
	}

	if category.ParentID != nil {
		parent, err := s.categories.GetByID(ctx, *category.ParentID)
		if err != nil {
			return fmt.Errorf("failed to load parent category: %w", err)
		}
		if parent == nil {
			return fmt.Errorf("%w: parent category not found", apperrors.ErrInvalidEntity)
		}
	}

	return s.categories.Create(ctx, category)
}

func (s *catalogService) ListEcoClaims(ctx context.Context, brandID uuid.UUID) ([]*models.EcoClaim, error) {
	return s.ecoClaims.GetByBrand(ctx, brandID)
}

func (s *catalogService) CreateEcoClaim(ctx context.Context, claim *models.EcoClaim) error {
	if strings.TrimSpace(claim.Claim) == "" {
		return fmt.Errorf("%w: claim text is required", apperrors.ErrInvalidEntity)
	}
	if rejection := mapping.CheckValueSafety(claim.Claim, 0); rejection != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrUnsafeValue, rejection.Reason)
	}

	existing, err := s.ecoClaims.GetByClaim(ctx, claim.BrandID, claim.Claim)
	if err != nil {
		return fmt.Errorf("failed to check for existing claim: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: eco claim %q already exists", apperrors.ErrConflict, existing.Claim)
	}

	return s.ecoClaims.Create(ctx, claim)
}

func (s *catalogService) AutoCreateEcoClaim(ctx context.Context, brandID uuid.UUID, claimText string) (*uuid.UUID, error) {
	return s.mappings.AutoCreateEcoClaim(ctx, brandID, claimText)
}

func (s *catalogService) DeleteEcoClaim(ctx context.Context, claimID uuid.UUID) error {
	return s.ecoClaims.Delete(ctx, claimID)
}

func (s *catalogService) ListValueMappings(ctx context.Context, brandID uuid.UUID) ([]*models.ValueMapping, error) {
	return s.valueMaps.GetByBrand(ctx, brandID)
}
