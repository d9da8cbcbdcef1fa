package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tracewear/passport-engine/pkg/apperrors"
	"github.com/tracewear/passport-engine/pkg/database"
	"github.com/tracewear/passport-engine/pkg/models"
)

// MaterialRepository provides data access for brand catalog materials.
type MaterialRepository interface {
	Create(ctx context.Context, material *models.Material) error
	GetByBrand(ctx context.Context, brandID uuid.UUID) ([]*models.Material, error)
	// GetByName looks up a material by case-insensitive, whitespace-trimmed
	// name equality. Returns nil, nil when no material matches.
	GetByName(ctx context.Context, brandID uuid.UUID, name string) (*models.Material, error)
	GetByID(ctx context.Context, materialID uuid.UUID) (*models.Material, error)
	Delete(ctx context.Context, materialID uuid.UUID) error
}

type materialRepository struct{}

// NewMaterialRepository creates a new MaterialRepository.
func NewMaterialRepository() MaterialRepository {
	return &materialRepository{}
}

var _ MaterialRepository = (*materialRepository)(nil)

func (r *materialRepository) Create(ctx context.Context, material *models.Material) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	now := time.Now()

	query := `
		INSERT INTO passport_materials (brand_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := scope.Conn.QueryRow(ctx, query,
		material.BrandID,
		material.Name,
		material.Description,
		now,
		now,
	).Scan(&material.ID, &material.CreatedAt, &material.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create material: %w", err)
	}

	return nil
}

func (r *materialRepository) GetByBrand(ctx context.Context, brandID uuid.UUID) ([]*models.Material, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, brand_id, name, description, created_at, updated_at
		FROM passport_materials
		WHERE brand_id = $1
		ORDER BY name`

	rows, err := scope.Conn.Query(ctx, query, brandID)
	if err != nil {
		return nil, fmt.Errorf("failed to query materials: %w", err)
	}
	defer rows.Close()

	var materials []*models.Material
	for rows.Next() {
		material, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		materials = append(materials, material)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating materials: %w", err)
	}

	return materials, nil
}

func (r *materialRepository) GetByName(ctx context.Context, brandID uuid.UUID, name string) (*models.Material, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, brand_id, name, description, created_at, updated_at
		FROM passport_materials
		WHERE brand_id = $1 AND lower(btrim(name)) = lower(btrim($2))
		LIMIT 1`

	row := scope.Conn.QueryRow(ctx, query, brandID, name)
	material, err := scanMaterial(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // No material with this name
		}
		return nil, err
	}

	return material, nil
}

func (r *materialRepository) GetByID(ctx context.Context, materialID uuid.UUID) (*models.Material, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, brand_id, name, description, created_at, updated_at
		FROM passport_materials
		WHERE id = $1`

	row := scope.Conn.QueryRow(ctx, query, materialID)
	material, err := scanMaterial(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return material, nil
}

func (r *materialRepository) Delete(ctx context.Context, materialID uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	result, err := scope.Conn.Exec(ctx, `DELETE FROM passport_materials WHERE id = $1`, materialID)
	if err != nil {
		return fmt.Errorf("failed to delete material: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func scanMaterial(row pgx.Row) (*models.Material, error) {
	var m models.Material
	var description *string

	err := row.Scan(
		&m.ID,
		&m.BrandID,
		&m.Name,
		&description,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan material: %w", err)
	}

	if description != nil {
		m.Description = *description
	}

	return &m, nil
}
