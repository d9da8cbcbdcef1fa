package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tracewear/passport-engine/pkg/database"
	"github.com/tracewear/passport-engine/pkg/models"
)

// ValueMappingRepository provides data access for persisted value mappings.
// A mapping is the durable shortcut from (brand, source column, raw value) to
// a catalog entity id, created on first successful catalog match.
type ValueMappingRepository interface {
	// Get looks up a mapping by case-insensitive, whitespace-trimmed raw
	// value. Returns nil, nil when no mapping exists.
	Get(ctx context.Context, brandID uuid.UUID, sourceColumn, rawValue string) (*models.ValueMapping, error)

	// CreateIdempotent inserts a mapping, ignoring the insert when a
	// concurrent writer already created the same key. Existing rows are
	// never overwritten.
	CreateIdempotent(ctx context.Context, vm *models.ValueMapping) error

	GetByBrand(ctx context.Context, brandID uuid.UUID) ([]*models.ValueMapping, error)
}

type valueMappingRepository struct{}

// NewValueMappingRepository creates a new ValueMappingRepository.
func NewValueMappingRepository() ValueMappingRepository {
	return &valueMappingRepository{}
}

var _ ValueMappingRepository = (*valueMappingRepository)(nil)

func (r *valueMappingRepository) Get(ctx context.Context, brandID uuid.UUID, sourceColumn, rawValue string) (*models.ValueMapping, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, brand_id, source_column, raw_value, entity_type, target_id, created_at
		FROM passport_value_mappings
		WHERE brand_id = $1
		  AND source_column = $2
		  AND lower(btrim(raw_value)) = lower(btrim($3))
		LIMIT 1`

	row := scope.Conn.QueryRow(ctx, query, brandID, sourceColumn, rawValue)
	vm, err := scanValueMapping(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // No mapping for this value
		}
		return nil, err
	}

	return vm, nil
}

func (r *valueMappingRepository) CreateIdempotent(ctx context.Context, vm *models.ValueMapping) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	if vm.CreatedAt.IsZero() {
		vm.CreatedAt = time.Now()
	}

	// The conflict target matches the unique expression index on
	// (brand_id, source_column, lower(btrim(raw_value))). Concurrent
	// resolvers racing on the same value both succeed; one row survives.
	query := `
		INSERT INTO passport_value_mappings (brand_id, source_column, raw_value, entity_type, target_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (brand_id, source_column, lower(btrim(raw_value))) DO NOTHING`

	_, err := scope.Conn.Exec(ctx, query,
		vm.BrandID,
		vm.SourceColumn,
		vm.RawValue,
		string(vm.EntityType),
		vm.TargetID,
		vm.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create value mapping: %w", err)
	}

	return nil
}

func (r *valueMappingRepository) GetByBrand(ctx context.Context, brandID uuid.UUID) ([]*models.ValueMapping, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, brand_id, source_column, raw_value, entity_type, target_id, created_at
		FROM passport_value_mappings
		WHERE brand_id = $1
		ORDER BY source_column, raw_value`

	rows, err := scope.Conn.Query(ctx, query, brandID)
	if err != nil {
		return nil, fmt.Errorf("failed to query value mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*models.ValueMapping
	for rows.Next() {
		vm, err := scanValueMapping(rows)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, vm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating value mappings: %w", err)
	}

	return mappings, nil
}

func scanValueMapping(row pgx.Row) (*models.ValueMapping, error) {
	var vm models.ValueMapping
	var entityType string

	err := row.Scan(
		&vm.ID,
		&vm.BrandID,
		&vm.SourceColumn,
		&vm.RawValue,
		&entityType,
		&vm.TargetID,
		&vm.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan value mapping: %w", err)
	}

	vm.EntityType = models.EntityType(entityType)
	return &vm, nil
}
