package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tracewear/passport-engine/pkg/apperrors"
	"github.com/tracewear/passport-engine/pkg/models"
)

func newCatalogFixture(t *testing.T) (CatalogService, *serviceFixture) {
	t.Helper()
	f := newServiceFixture(t)
	svc := NewCatalogService(
		f.materials, f.categories, f.ecoClaims, f.mappings,
		f.service, zap.NewNop())
	return svc, f
}

func TestCreateEcoClaim(t *testing.T) {
	svc, _ := newCatalogFixture(t)

	err := svc.CreateEcoClaim(context.Background(), &models.EcoClaim{
		BrandID: uuid.New(),
		Claim:   "GOTS Certified",
	})
	require.NoError(t, err)
}

func TestCreateEcoClaimRejectsUnsafeText(t *testing.T) {
	svc, f := newCatalogFixture(t)

	err := svc.CreateEcoClaim(context.Background(), &models.EcoClaim{
		BrandID: uuid.New(),
		Claim:   "Recycled' OR '1'='1",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnsafeValue))
	assert.Empty(t, f.ecoClaims.claims, "rejected text must not reach storage")
}

func TestCreateEcoClaimRejectsDuplicate(t *testing.T) {
	svc, f := newCatalogFixture(t)
	brandID := uuid.New()
	f.ecoClaims.claims = append(f.ecoClaims.claims,
		&models.EcoClaim{ID: uuid.New(), BrandID: brandID, Claim: "Fair Trade"})

	err := svc.CreateEcoClaim(context.Background(), &models.EcoClaim{
		BrandID: brandID,
		Claim:   "Fair Trade",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}
