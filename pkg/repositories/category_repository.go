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

// CategoryRepository provides data access to the shared product taxonomy.
// Categories are global: none of these operations are brand-scoped.
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetAll(ctx context.Context) ([]*models.Category, error)
	// GetByName looks up a category by case-insensitive, whitespace-trimmed
	// name equality. Returns nil, nil when no category matches.
	GetByName(ctx context.Context, name string) (*models.Category, error)
	GetByID(ctx context.Context, categoryID uuid.UUID) (*models.Category, error)
}

type categoryRepository struct{}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository() CategoryRepository {
	return &categoryRepository{}
}

var _ CategoryRepository = (*categoryRepository)(nil)

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	now := time.Now()

	query := `
		INSERT INTO passport_categories (parent_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := scope.Conn.QueryRow(ctx, query,
		category.ParentID,
		category.Name,
		now,
		now,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

func (r *categoryRepository) GetAll(ctx context.Context) ([]*models.Category, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, parent_id, name, created_at, updated_at
		FROM passport_categories
		ORDER BY name`

	rows, err := scope.Conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

func (r *categoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, parent_id, name, created_at, updated_at
		FROM passport_categories
		WHERE lower(btrim(name)) = lower(btrim($1))
		LIMIT 1`

	row := scope.Conn.QueryRow(ctx, query, name)
	category, err := scanCategory(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // No category with this name
		}
		return nil, err
	}

	return category, nil
}

func (r *categoryRepository) GetByID(ctx context.Context, categoryID uuid.UUID) (*models.Category, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, parent_id, name, created_at, updated_at
		FROM passport_categories
		WHERE id = $1`

	row := scope.Conn.QueryRow(ctx, query, categoryID)
	category, err := scanCategory(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return category, nil
}

func scanCategory(row pgx.Row) (*models.Category, error) {
	var c models.Category

	err := row.Scan(
		&c.ID,
		&c.ParentID,
		&c.Name,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}

	return &c, nil
}
