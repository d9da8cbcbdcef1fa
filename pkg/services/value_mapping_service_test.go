package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tracewear/passport-engine/pkg/config"
	"github.com/tracewear/passport-engine/pkg/mapping"
	"github.com/tracewear/passport-engine/pkg/models"
)

type mockMaterialRepo struct {
	materials   []*models.Material
	getByNameFn func(ctx context.Context, brandID uuid.UUID, name string) (*models.Material, error)
	nameLookups int
}

func (m *mockMaterialRepo) Create(ctx context.Context, material *models.Material) error {
	material.ID = uuid.New()
	m.materials = append(m.materials, material)
	return nil
}

func (m *mockMaterialRepo) GetByBrand(ctx context.Context, brandID uuid.UUID) ([]*models.Material, error) {
	return m.materials, nil
}

func (m *mockMaterialRepo) GetByName(ctx context.Context, brandID uuid.UUID, name string) (*models.Material, error) {
	m.nameLookups++
	if m.getByNameFn != nil {
		return m.getByNameFn(ctx, brandID, name)
	}
	for _, mat := range m.materials {
		if strings.EqualFold(strings.TrimSpace(name), mat.Name) {
			return mat, nil
		}
	}
	return nil, nil
}

func (m *mockMaterialRepo) GetByID(ctx context.Context, materialID uuid.UUID) (*models.Material, error) {
	return nil, nil
}

func (m *mockMaterialRepo) Delete(ctx context.Context, materialID uuid.UUID) error {
	return nil
}

type mockCategoryRepo struct {
	categories []*models.Category
}

func (m *mockCategoryRepo) Create(ctx context.Context, category *models.Category) error {
	category.ID = uuid.New()
	m.categories = append(m.categories, category)
	return nil
}

func (m *mockCategoryRepo) GetAll(ctx context.Context) ([]*models.Category, error) {
	return m.categories, nil
}

func (m *mockCategoryRepo) GetByName(ctx context.Context, name string) (*models.Category, error) {
	for _, c := range m.categories {
		if strings.EqualFold(strings.TrimSpace(name), c.Name) {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockCategoryRepo) GetByID(ctx context.Context, categoryID uuid.UUID) (*models.Category, error) {
	return nil, nil
}

type mockEcoClaimRepo struct {
	claims   []*models.EcoClaim
	createFn func(ctx context.Context, claim *models.EcoClaim) error
}

func (m *mockEcoClaimRepo) Create(ctx context.Context, claim *models.EcoClaim) error {
	if m.createFn != nil {
		return m.createFn(ctx, claim)
	}
	claim.ID = uuid.New()
	m.claims = append(m.claims, claim)
	return nil
}

func (m *mockEcoClaimRepo) GetByBrand(ctx context.Context, brandID uuid.UUID) ([]*models.EcoClaim, error) {
	return m.claims, nil
}

func (m *mockEcoClaimRepo) GetByClaim(ctx context.Context, brandID uuid.UUID, claim string) (*models.EcoClaim, error) {
	for _, c := range m.claims {
		if strings.EqualFold(strings.TrimSpace(claim), c.Claim) {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockEcoClaimRepo) GetByID(ctx context.Context, claimID uuid.UUID) (*models.EcoClaim, error) {
	return nil, nil
}

func (m *mockEcoClaimRepo) Delete(ctx context.Context, claimID uuid.UUID) error {
	return nil
}

type mockValueMappingRepo struct {
	mappings []*models.ValueMapping
	getFn    func(ctx context.Context, brandID uuid.UUID, sourceColumn, rawValue string) (*models.ValueMapping, error)
	createFn func(ctx context.Context, vm *models.ValueMapping) error
	inserts  int
}

func (m *mockValueMappingRepo) Get(ctx context.Context, brandID uuid.UUID, sourceColumn, rawValue string) (*models.ValueMapping, error) {
	if m.getFn != nil {
		return m.getFn(ctx, brandID, sourceColumn, rawValue)
	}
	for _, vm := range m.mappings {
		if vm.SourceColumn == sourceColumn && strings.EqualFold(strings.TrimSpace(rawValue), vm.RawValue) {
			return vm, nil
		}
	}
	return nil, nil
}

func (m *mockValueMappingRepo) CreateIdempotent(ctx context.Context, vm *models.ValueMapping) error {
	m.inserts++
	if m.createFn != nil {
		return m.createFn(ctx, vm)
	}
	vm.ID = uuid.New()
	m.mappings = append(m.mappings, vm)
	return nil
}

func (m *mockValueMappingRepo) GetByBrand(ctx context.Context, brandID uuid.UUID) ([]*models.ValueMapping, error) {
	return m.mappings, nil
}

type serviceFixture struct {
	service    ValueMappingService
	materials  *mockMaterialRepo
	categories *mockCategoryRepo
	ecoClaims  *mockEcoClaimRepo
	mappings   *mockValueMappingRepo
	cache      *mapping.Cache
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		materials:  &mockMaterialRepo{},
		categories: &mockCategoryRepo{},
		ecoClaims:  &mockEcoClaimRepo{},
		mappings:   &mockValueMappingRepo{},
		cache:      mapping.NewCache(time.Hour),
	}
	cfg := &config.MappingConfig{
		CacheTTLMinutes: 60,
		FuzzyThreshold:  60,
		MaxSuggestions:  5,
		MaxValueLength:  255,
	}
	f.service = NewValueMappingService(
		f.materials, f.categories, f.ecoClaims, f.mappings,
		f.cache, mapping.NewSynonymTable(nil), cfg, zap.NewNop())
	return f
}

func TestResolveBlankValue(t *testing.T) {
	f := newServiceFixture(t)
	brandID := uuid.New()

	for _, raw := range []string{"", "   ", "\t\n"} {
		result, err := f.service.ResolveMaterial(context.Background(), brandID, raw, "material_1_name")
		require.NoError(t, err)
		assert.False(t, result.Found)
		assert.Equal(t, 0, result.Confidence)
		assert.Equal(t, models.MatchTypeNone, result.MatchType)
	}
	assert.Equal(t, 0, f.materials.nameLookups, "blank values must not reach storage")
}

func TestResolveCatalogHitPersistsMapping(t *testing.T) {
	f := newServiceFixture(t)
	brandID := uuid.New()
	cotton := &models.Material{ID: uuid.New(), BrandID: brandID, Name: "Organic Cotton"}
	f.materials.materials = append(f.materials.materials, cotton)

	result, err := f.service.ResolveMaterial(context.Background(), brandID, "  organic cotton ", "material_1_name")
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, 100, result.Confidence)
	assert.Equal(t, models.MatchTypeExact, result.MatchType)
	require.NotNil(t, result.TargetID)
	assert.Equal(t, cotton.ID, *result.TargetID)

	require.Len(t, f.mappings.mappings, 1)
	vm := f.mappings.mappings[0]
	assert.Equal(t, "organic cotton", vm.RawValue)
	assert.Equal(t, models.EntityTypeMaterial, vm.EntityType)
	assert.Equal(t, cotton.ID, vm.TargetID)
}

func TestResolveServedFromCacheOnRepeat(t *testing.T) {
	f := newServiceFixture(t)
	brandID := uuid.New()
	f.materials.materials = append(f.materials.materials,
		&models.Material{ID: uuid.New(), BrandID: brandID, Name: "Linen"})

	_, err := f.service.ResolveMaterial(context.Background(), brandID, "Linen", "material_1_name")
	require.NoError(t, err)
	assert.Equal(t, 1, f.materials.nameLookups)

	// Case and whitespace variants hit the same cache entry.
	for _, raw := range []string{"Linen", "LINEN", " linen "} {
		result, err := f.service.ResolveMaterial(context.Background(), brandID, raw, "material_1_name")
		require.NoError(t, err)
		assert.True(t, result.Found)
	}
	assert.Equal(t, 1, f.materials.nameLookups, "repeats must be served from cache")
	assert.Equal(t, 1, f.mappings.inserts)
}

func TestResolvePersistedMappingFillsCache(t *testing.T) {
	f := newServiceFixture(t)
	brandID := uuid.New()
	targetID := uuid.New()
	f.mappings.mappings = append(f.mappings.mappings, &models.ValueMapping{
		ID:           uuid.New(),
		BrandID:      brandID,
		SourceColumn: "category",
		RawValue:     "dresses",
		EntityType:   models.EntityTypeCategory,
		TargetID:     targetID,
	})

	result, err := f.service.ResolveCategory(context.Background(), brandID, "Dresses", "category")
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, targetID, *result.TargetID)

	if _, hit := f.cache.Get(brandID, "category", "Dresses"); !hit {
		t.Fatal("expected persisted mapping to be cached")
	}
}

func TestResolveCacheWinsOverPersistedMapping(t *testing.T) {
	f := newServiceFixture(t)
	brandID := uuid.New()
	cachedID := uuid.New()
	persistedID := uuid.New()

	// The cache and the mapping table disagree about the same key. The cache
	// rung sits above the persisted rung, so its target id is served even
	// though the table holds another one.
	f.cache.Put(brandID, "category", "Dresses", cachedID)
	lookups := 0
	f.mappings.getFn = func(ctx context.Context, brandID uuid.UUID, sourceColumn, rawValue string) (*models.ValueMapping, error) {
		lookups++
		return &models.ValueMapping{
			ID:           uuid.New(),
			BrandID:      brandID,
			SourceColumn: sourceColumn,
			RawValue:     rawValue,
			EntityType:   models.EntityTypeCategory,
			TargetID:     persistedID,
		}, nil
	}

	result, err := f.service.ResolveCategory(context.Background(), brandID, "Dresses", "category")
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, cachedID, *result.TargetID)
	assert.Equal(t, models.MatchTypeExact, result.MatchType)
	assert.Equal(t, 0, lookups, "a cache hit short-circuits the mapping lookup")
}

func TestResolveNoMatch(t *testing.T) {
	f := newServiceFixture(t)

	result, err := f.service.ResolveEcoClaim(context.Background(), uuid.New(), "Woven by moonlight", "eco_claims")
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Equal(t, models.MatchTypeNone, result.MatchType)
	assert.Nil(t, result.TargetID)
	assert.Equal(t, 0, f.mappings.inserts, "misses must not write mappings")
}

func TestResolveReadErrorPropagates(t *testing.T) {
	f := newServiceFixture(t)
	f.mappings.getFn = func(ctx context.Context, brandID uuid.UUID, sourceColumn, rawValue string) (*models.ValueMapping, error) {
		return nil, errors.New("connection refused")
	}

	_, err := f.service.ResolveMaterial(context.Background(), uuid.New(), "Cotton", "material_1_name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestResolveMappingInsertFailureIsSuppressed(t *testing.T) {
	f := newServiceFixture(t)
	brandID := uuid.New()
	wool := &models.Material{ID: uuid.New(), BrandID: brandID, Name: "Wool"}
	f.materials.materials = append(f.materials.materials, wool)
	f.mappings.createFn = func(ctx context.Context, vm *models.ValueMapping) error {
		return errors.New("disk full")
	}

	result, err := f.service.ResolveMaterial(context.Background(), brandID, "Wool", "material_1_name")
	require.NoError(t, err, "mapping write failure must not fail resolution")
	assert.True(t, result.Found)
	assert.Equal(t, wool.ID, *result.TargetID)
}

func TestResolveCategoryIgnoresBrandScope(t *testing.T) {
	f := newServiceFixture(t)
	jackets := &models.Category{ID: uuid.New(), Name: "Jackets"}
	f.categories.categories = append(f.categories.categories, jackets)

	// Two different brands resolve the same shared category.
	for range 2 {
		result, err := f.service.ResolveCategory(context.Background(), uuid.New(), "jackets", "category")
		require.NoError(t, err)
		assert.True(t, result.Found)
		assert.Equal(t, jackets.ID, *result.TargetID)
	}
}

func TestResolveUnknownEntityType(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Resolve(context.Background(), uuid.New(), models.EntityType("color"), "Red", "colors")
	require.Error(t, err)
}

func TestAutoCreateEcoClaim(t *testing.T) {
	f := newServiceFixture(t)
	brandID := uuid.New()

	id, err := f.service.AutoCreateEcoClaim(context.Background(), brandID, "  GOTS Certified ")
	require.NoError(t, err)
	require.NotNil(t, id)
	require.Len(t, f.ecoClaims.claims, 1)
	assert.Equal(t, "GOTS Certified", f.ecoClaims.claims[0].Claim)
	assert.Equal(t, brandID, f.ecoClaims.claims[0].BrandID)
}

func TestAutoCreateEcoClaimRejectsUnsafeInput(t *testing.T) {
	f := newServiceFixture(t)

	id, err := f.service.AutoCreateEcoClaim(context.Background(), uuid.New(),
		"Recycled' OR '1'='1")
	require.NoError(t, err)
	assert.Nil(t, id)
	assert.Empty(t, f.ecoClaims.claims)

	id, err = f.service.AutoCreateEcoClaim(context.Background(), uuid.New(),
		strings.Repeat("a", 300))
	require.NoError(t, err)
	assert.Nil(t, id)
	assert.Empty(t, f.ecoClaims.claims)
}

func TestAutoCreateEcoClaimSuppressesWriteFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.ecoClaims.createFn = func(ctx context.Context, claim *models.EcoClaim) error {
		return errors.New("constraint violation")
	}

	id, err := f.service.AutoCreateEcoClaim(context.Background(), uuid.New(), "Fair Trade")
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestDetectAggregatesDistinctValues(t *testing.T) {
	f := newServiceFixture(t)
	brandID := uuid.New()
	f.materials.materials = append(f.materials.materials,
		&models.Material{ID: uuid.New(), BrandID: brandID, Name: "Cotton"})

	rows := []models.ImportRow{
		{"material_1_name": "Cotton", "category": "Gowns"},
		{"material_1_name": "Catton", "category": "Gowns"},
		{"material_1_name": " catton ", "category": ""},
		{"material_1_name": "CATTON", "category": "Capes"},
	}
	columns := models.ColumnMapping{
		"material_1_name": models.EntityTypeMaterial,
		"category":        models.EntityTypeCategory,
	}

	unmapped, err := f.service.Detect(context.Background(), brandID, rows, columns)
	require.NoError(t, err)
	require.Len(t, unmapped, 3)

	// Most frequent first.
	assert.Equal(t, "Catton", unmapped[0].RawValue)
	assert.Equal(t, 3, unmapped[0].Occurrences)
	assert.Equal(t, models.EntityTypeMaterial, unmapped[0].EntityType)
	assert.Equal(t, "Gowns", unmapped[1].RawValue)
	assert.Equal(t, 2, unmapped[1].Occurrences)
	assert.Equal(t, "Capes", unmapped[2].RawValue)
	assert.Equal(t, 1, unmapped[2].Occurrences)
}

func TestDetectResolvesEachDistinctValueOnce(t *testing.T) {
	f := newServiceFixture(t)
	brandID := uuid.New()

	values := []string{"Catton", "catton", "CATTON ", "Katoen"}
	unmapped, err := f.service.DetectForType(context.Background(), brandID, values,
		models.EntityTypeMaterial, "material_1_name")
	require.NoError(t, err)
	require.Len(t, unmapped, 2)
	assert.Equal(t, 3, unmapped[0].Occurrences)
	assert.Equal(t, 1, unmapped[1].Occurrences)
	assert.Equal(t, 2, f.materials.nameLookups, "one catalog lookup per distinct value")
}

func TestDetectSkipsBlankCells(t *testing.T) {
	f := newServiceFixture(t)

	unmapped, err := f.service.DetectForType(context.Background(), uuid.New(),
		[]string{"", "  ", "\t"}, models.EntityTypeCategory, "category")
	require.NoError(t, err)
	assert.Empty(t, unmapped)
}

func TestDetectPropagatesResolverError(t *testing.T) {
	f := newServiceFixture(t)
	f.mappings.getFn = func(ctx context.Context, brandID uuid.UUID, sourceColumn, rawValue string) (*models.ValueMapping, error) {
		return nil, errors.New("timeout")
	}

	_, err := f.service.DetectForType(context.Background(), uuid.New(),
		[]string{"Cotton"}, models.EntityTypeMaterial, "material_1_name")
	require.Error(t, err)
}

func TestSuggestRanksBySimilarity(t *testing.T) {
	f := newServiceFixture(t)
	brandID := uuid.New()
	cotton := &models.Material{ID: uuid.New(), BrandID: brandID, Name: "Cotton"}
	f.materials.materials = append(f.materials.materials,
		cotton,
		&models.Material{ID: uuid.New(), BrandID: brandID, Name: "Carbon Fiber"},
		&models.Material{ID: uuid.New(), BrandID: brandID, Name: "Polyester"},
	)

	results, err := f.service.Suggest(context.Background(), brandID, &models.UnmappedValue{
		EntityType:   models.EntityTypeMaterial,
		RawValue:     "Catton",
		SourceColumn: "material_1_name",
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "Cotton", results[0].MatchedValue)
	assert.Equal(t, cotton.ID, results[0].TargetID)
	assert.GreaterOrEqual(t, results[0].Similarity, 80)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Similarity, 60, "below-threshold candidates must be dropped")
	}
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Similarity, results[i-1].Similarity)
	}
}

func TestSuggestCapsResultCount(t *testing.T) {
	f := newServiceFixture(t)
	brandID := uuid.New()
	for _, name := range []string{"Shirt", "Shirts", "T-Shirt", "Skirt", "Shorts", "Short", "Sweatshirt"} {
		f.categories.categories = append(f.categories.categories,
			&models.Category{ID: uuid.New(), Name: name})
	}

	results, err := f.service.Suggest(context.Background(), brandID, &models.UnmappedValue{
		EntityType: models.EntityTypeCategory,
		RawValue:   "Shirt",
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 5)
}

func TestSuggestUsesSynonymCanonicalForm(t *testing.T) {
	f := newServiceFixture(t)
	brandID := uuid.New()
	spandex := &models.Material{ID: uuid.New(), BrandID: brandID, Name: "Spandex"}
	f.materials.materials = append(f.materials.materials, spandex)

	// "elastane" is a known synonym for spandex; the raw strings alone are
	// nothing alike.
	results, err := f.service.Suggest(context.Background(), brandID, &models.UnmappedValue{
		EntityType: models.EntityTypeMaterial,
		RawValue:   "Elastane",
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, spandex.ID, results[0].TargetID)
	assert.Equal(t, 100, results[0].Similarity)
}

func TestSuggestKeepsRawSpellingNearMiss(t *testing.T) {
	f := newServiceFixture(t)
	brandID := uuid.New()
	teal := &models.Material{ID: uuid.New(), BrandID: brandID, Name: "Teal"}
	f.materials.materials = append(f.materials.materials, teal)

	// "teal" collapses to "turquoise" in the synonym table, a distant string
	// from the typo "teel". The raw spellings are one edit apart, so the
	// candidate must still be suggested.
	results, err := f.service.Suggest(context.Background(), brandID, &models.UnmappedValue{
		EntityType:   models.EntityTypeMaterial,
		RawValue:     "teel",
		SourceColumn: "material_1_name",
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, teal.ID, results[0].TargetID)
	assert.Equal(t, 75, results[0].Similarity)
}

func TestCacheAdminOperations(t *testing.T) {
	f := newServiceFixture(t)
	brandID := uuid.New()
	f.materials.materials = append(f.materials.materials,
		&models.Material{ID: uuid.New(), BrandID: brandID, Name: "Hemp"})

	_, err := f.service.ResolveMaterial(context.Background(), brandID, "Hemp", "material_1_name")
	require.NoError(t, err)

	stats := f.service.CacheStats()
	assert.Equal(t, 1, stats.Size)

	assert.Equal(t, 0, f.service.SweepCache(), "unexpired entries survive a sweep")

	f.service.ClearCache()
	assert.Equal(t, 0, f.service.CacheStats().Size)
}
