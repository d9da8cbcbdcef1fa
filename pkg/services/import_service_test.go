package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/tracewear/passport-engine/pkg/apperrors"
	"github.com/tracewear/passport-engine/pkg/config"
	"github.com/tracewear/passport-engine/pkg/models"
)

func newImportFixture(t *testing.T) (ImportService, *serviceFixture) {
	t.Helper()
	f := newServiceFixture(t)
	cfg := &config.ImportConfig{MaxRows: 100}
	return NewImportService(f.service, cfg, zap.NewNop()), f
}

func TestParseCSV(t *testing.T) {
	svc, _ := newImportFixture(t)

	csvData := "Product_Name, Category ,material_1_name\n" +
		"Midi Dress,Dresses,Organic Cotton\n" +
		"Rain Shell,Jackets,Recycled Polyester\n"

	batch, err := svc.ParseCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, []string{"product_name", "category", "material_1_name"}, batch.Headers)
	require.Len(t, batch.Rows, 2)
	assert.Equal(t, "Midi Dress", batch.Rows[0]["product_name"])
	assert.Equal(t, "Recycled Polyester", batch.Rows[1]["material_1_name"])
}

func TestParseCSVRaggedRows(t *testing.T) {
	svc, _ := newImportFixture(t)

	batch, err := svc.ParseCSV(strings.NewReader("name,category\nShirt\n"))
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	assert.Equal(t, "Shirt", batch.Rows[0]["name"])
	_, ok := batch.Rows[0]["category"]
	assert.False(t, ok, "short rows leave trailing cells absent")
}

func TestParseCSVEmptyFile(t *testing.T) {
	svc, _ := newImportFixture(t)

	_, err := svc.ParseCSV(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header")
}

func TestParseCSVRowLimit(t *testing.T) {
	f := newServiceFixture(t)
	svc := NewImportService(f.service, &config.ImportConfig{MaxRows: 2}, zap.NewNop())

	csvData := "name\na\nb\nc\n"
	_, err := svc.ParseCSV(strings.NewReader(csvData))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrImportTooBig))
}

func TestParseXLSX(t *testing.T) {
	svc, _ := newImportFixture(t)

	x := excelize.NewFile()
	sheet := x.GetSheetName(0)
	require.NoError(t, x.SetSheetRow(sheet, "A1", &[]string{"Category", "eco_claims"}))
	require.NoError(t, x.SetSheetRow(sheet, "A2", &[]string{"Dresses", "GOTS Certified"}))
	require.NoError(t, x.SetSheetRow(sheet, "A3", &[]string{"Jackets", ""}))
	var buf bytes.Buffer
	require.NoError(t, x.Write(&buf))

	batch, err := svc.ParseXLSX(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"category", "eco_claims"}, batch.Headers)
	require.Len(t, batch.Rows, 2)
	assert.Equal(t, "Dresses", batch.Rows[0]["category"])
	assert.Equal(t, "GOTS Certified", batch.Rows[0]["eco_claims"])
}

type fakeConnector struct {
	batch   *models.ImportBatch
	pingErr error
	err     error
	queries []string
}

func (c *fakeConnector) Name() string { return "fake" }
func (c *fakeConnector) TestConnection(ctx context.Context) error { return c.pingErr }
func (c *fakeConnector) FetchRows(ctx context.Context, query string) (*models.ImportBatch, error) {
	c.queries = append(c.queries, query)
	return c.batch, c.err
}
func (c *fakeConnector) Close() error { return nil }

func TestPullFoldsSourceColumns(t *testing.T) {
	svc, _ := newImportFixture(t)
	conn := &fakeConnector{batch: &models.ImportBatch{
		Headers: []string{"Category", "Material_1_Name"},
		Rows: []models.ImportRow{
			{"Category": "Dresses", "Material_1_Name": "Organic Cotton"},
		},
	}}

	batch, err := svc.Pull(context.Background(), conn, "SELECT category, material_1_name FROM products")
	require.NoError(t, err)
	assert.Equal(t, []string{"category", "material_1_name"}, batch.Headers)
	require.Len(t, batch.Rows, 1)
	assert.Equal(t, "Dresses", batch.Rows[0]["category"])
	require.Len(t, conn.queries, 1)
}

func TestPullChecksConnectionFirst(t *testing.T) {
	svc, _ := newImportFixture(t)
	conn := &fakeConnector{pingErr: errors.New("connection refused")}

	_, err := svc.Pull(context.Background(), conn, "SELECT category FROM products")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
	assert.Empty(t, conn.queries, "an unreachable source must not be queried")
}

func TestPullRowLimit(t *testing.T) {
	f := newServiceFixture(t)
	svc := NewImportService(f.service, &config.ImportConfig{MaxRows: 1}, zap.NewNop())
	conn := &fakeConnector{batch: &models.ImportBatch{
		Headers: []string{"category"},
		Rows: []models.ImportRow{
			{"category": "Dresses"},
			{"category": "Jackets"},
		},
	}}

	_, err := svc.Pull(context.Background(), conn, "SELECT category FROM products")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrImportTooBig))
}

func TestDetectUnmappedRejectsUnknownColumn(t *testing.T) {
	svc, _ := newImportFixture(t)

	batch := &models.ImportBatch{Headers: []string{"category"}}
	_, err := svc.DetectUnmapped(context.Background(), uuid.New(), batch, models.ColumnMapping{
		"sizes": models.EntityTypeCategory,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not present")
}

func TestDetectUnmappedRejectsUnknownEntityType(t *testing.T) {
	svc, _ := newImportFixture(t)

	batch := &models.ImportBatch{Headers: []string{"colors"}}
	_, err := svc.DetectUnmapped(context.Background(), uuid.New(), batch, models.ColumnMapping{
		"colors": models.EntityType("color"),
	})
	require.Error(t, err)
}

func TestDetectUnmappedEndToEnd(t *testing.T) {
	svc, f := newImportFixture(t)
	brandID := uuid.New()
	f.categories.categories = append(f.categories.categories,
		&models.Category{ID: uuid.New(), Name: "Dresses"})

	csvData := "category\nDresses\nGowns\ngowns\n"
	batch, err := svc.ParseCSV(strings.NewReader(csvData))
	require.NoError(t, err)

	unmapped, err := svc.DetectUnmapped(context.Background(), brandID, batch, models.ColumnMapping{
		"category": models.EntityTypeCategory,
	})
	require.NoError(t, err)
	require.Len(t, unmapped, 1)
	assert.Equal(t, "Gowns", unmapped[0].RawValue)
	assert.Equal(t, 2, unmapped[0].Occurrences)
}
