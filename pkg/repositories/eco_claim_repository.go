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

// EcoClaimRepository provides data access for brand sustainability claims.
type EcoClaimRepository interface {
	Create(ctx context.Context, claim *models.EcoClaim) error
	GetByBrand(ctx context.Context, brandID uuid.UUID) ([]*models.EcoClaim, error)
	// GetByClaim looks up a claim by case-insensitive, whitespace-trimmed
	// text equality. Returns nil, nil when no claim matches.
	GetByClaim(ctx context.Context, brandID uuid.UUID, claim string) (*models.EcoClaim, error)
	GetByID(ctx context.Context, claimID uuid.UUID) (*models.EcoClaim, error)
	Delete(ctx context.Context, claimID uuid.UUID) error
}

type ecoClaimRepository struct{}

// NewEcoClaimRepository creates a new EcoClaimRepository.
func NewEcoClaimRepository() EcoClaimRepository {
	return &ecoClaimRepository{}
}

var _ EcoClaimRepository = (*ecoClaimRepository)(nil)

func (r *ecoClaimRepository) Create(ctx context.Context, claim *models.EcoClaim) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	now := time.Now()

	query := `
		INSERT INTO passport_eco_claims (brand_id, claim, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := scope.Conn.QueryRow(ctx, query,
		claim.BrandID,
		claim.Claim,
		claim.Verified,
		now,
		now,
	).Scan(&claim.ID, &claim.CreatedAt, &claim.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create eco claim: %w", err)
	}

	return nil
}

func (r *ecoClaimRepository) GetByBrand(ctx context.Context, brandID uuid.UUID) ([]*models.EcoClaim, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, brand_id, claim, verified, created_at, updated_at
		FROM passport_eco_claims
		WHERE brand_id = $1
		ORDER BY claim`

	rows, err := scope.Conn.Query(ctx, query, brandID)
	if err != nil {
		return nil, fmt.Errorf("failed to query eco claims: %w", err)
	}
	defer rows.Close()

	var claims []*models.EcoClaim
	for rows.Next() {
		claim, err := scanEcoClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating eco claims: %w", err)
	}

	return claims, nil
}

func (r *ecoClaimRepository) GetByClaim(ctx context.Context, brandID uuid.UUID, claimText string) (*models.EcoClaim, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, brand_id, claim, verified, created_at, updated_at
		FROM passport_eco_claims
		WHERE brand_id = $1 AND lower(btrim(claim)) = lower(btrim($2))
		LIMIT 1`

	row := scope.Conn.QueryRow(ctx, query, brandID, claimText)
	claim, err := scanEcoClaim(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // No claim with this text
		}
		return nil, err
	}

	return claim, nil
}

func (r *ecoClaimRepository) GetByID(ctx context.Context, claimID uuid.UUID) (*models.EcoClaim, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, brand_id, claim, verified, created_at, updated_at
		FROM passport_eco_claims
		WHERE id = $1`

	row := scope.Conn.QueryRow(ctx, query, claimID)
	claim, err := scanEcoClaim(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return claim, nil
}

func (r *ecoClaimRepository) Delete(ctx context.Context, claimID uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	result, err := scope.Conn.Exec(ctx, `DELETE FROM passport_eco_claims WHERE id = $1`, claimID)
	if err != nil {
		return fmt.Errorf("failed to delete eco claim: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func scanEcoClaim(row pgx.Row) (*models.EcoClaim, error) {
	var c models.EcoClaim

	err := row.Scan(
		&c.ID,
		&c.BrandID,
		&c.Claim,
		&c.Verified,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan eco claim: %w", err)
	}

	return &c, nil
}
