package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/tracewear/passport-engine/pkg/adapters/connector"
	"github.com/tracewear/passport-engine/pkg/apperrors"
	"github.com/tracewear/passport-engine/pkg/config"
	"github.com/tracewear/passport-engine/pkg/models"
)

// ImportService parses uploaded product files into row batches and runs
// unmapped-value detection over them.
type ImportService interface {
	// ParseCSV reads a comma-separated file with a header row.
	ParseCSV(r io.Reader) (*models.ImportBatch, error)

	// ParseXLSX reads the first sheet of a spreadsheet with a header row.
	ParseXLSX(r io.Reader) (*models.ImportBatch, error)

	// Pull fetches product rows from an external source database and applies
	// the same header folding and row cap as file uploads.
	Pull(ctx context.Context, conn connector.Connector, query string) (*models.ImportBatch, error)

	// DetectUnmapped runs unmapped-value detection over a parsed batch using
	// the given column-to-entity-type assignment.
	DetectUnmapped(ctx context.Context, brandID uuid.UUID, batch *models.ImportBatch, columns models.ColumnMapping) ([]*models.UnmappedValue, error)
}

type importService struct {
	mappings ValueMappingService
	cfg      *config.ImportConfig
	logger   *zap.Logger
}

// NewImportService creates a new ImportService.
func NewImportService(mappings ValueMappingService, cfg *config.ImportConfig, logger *zap.Logger) ImportService {
	return &importService{
		mappings: mappings,
		cfg:      cfg,
		logger:   logger.Named("import"),
	}
}

var _ ImportService = (*importService)(nil)

func (s *importService) ParseCSV(r io.Reader) (*models.ImportBatch, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows are tolerated, missing cells stay absent
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	batch := &models.ImportBatch{Headers: normalizeHeaders(header)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(batch.Rows)+2, err)
		}
		if len(batch.Rows) >= s.cfg.MaxRows {
			return nil, fmt.Errorf("%w: more than %d rows", apperrors.ErrImportTooBig, s.cfg.MaxRows)
		}
		batch.Rows = append(batch.Rows, rowFromRecord(batch.Headers, record))
	}

	s.logger.Debug("Parsed CSV import",
		zap.Int("columns", len(batch.Headers)),
		zap.Int("rows", len(batch.Rows)))
	return batch, nil
}

func (s *importService) ParseXLSX(r io.Reader) (*models.ImportBatch, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			s.logger.Warn("Failed to close spreadsheet", zap.Error(closeErr))
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty sheet %q: missing header row", sheets[0])
	}
	if len(rows)-1 > s.cfg.MaxRows {
		return nil, fmt.Errorf("%w: more than %d rows", apperrors.ErrImportTooBig, s.cfg.MaxRows)
	}

	batch := &models.ImportBatch{Headers: normalizeHeaders(rows[0])}
	for _, record := range rows[1:] {
		batch.Rows = append(batch.Rows, rowFromRecord(batch.Headers, record))
	}

	s.logger.Debug("Parsed XLSX import",
		zap.String("sheet", sheets[0]),
		zap.Int("columns", len(batch.Headers)),
		zap.Int("rows", len(batch.Rows)))
	return batch, nil
}

func (s *importService) Pull(ctx context.Context, conn connector.Connector, query string) (*models.ImportBatch, error) {
	// A reachability check up front separates "source down" from "query
	// broken" in the error a caller sees.
	if err := conn.TestConnection(ctx); err != nil {
		return nil, fmt.Errorf("%s source unreachable: %w", conn.Name(), err)
	}

	fetched, err := conn.FetchRows(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to pull from %s source: %w", conn.Name(), err)
	}
	if len(fetched.Rows) > s.cfg.MaxRows {
		return nil, fmt.Errorf("%w: more than %d rows", apperrors.ErrImportTooBig, s.cfg.MaxRows)
	}

	// Source column names get the same folding as file headers so one
	// column mapping works for both paths.
	batch := &models.ImportBatch{Headers: normalizeHeaders(fetched.Headers)}
	for _, src := range fetched.Rows {
		row := make(models.ImportRow, len(src))
		for col, v := range src {
			row[strings.ToLower(strings.TrimSpace(col))] = v
		}
		batch.Rows = append(batch.Rows, row)
	}

	s.logger.Debug("Pulled source rows",
		zap.String("source", conn.Name()),
		zap.Int("columns", len(batch.Headers)),
		zap.Int("rows", len(batch.Rows)))
	return batch, nil
}

func (s *importService) DetectUnmapped(ctx context.Context, brandID uuid.UUID, batch *models.ImportBatch, columns models.ColumnMapping) ([]*models.UnmappedValue, error) {
	known := make(map[string]struct{}, len(batch.Headers))
	for _, h := range batch.Headers {
		known[h] = struct{}{}
	}

	// Column keys get the same folding as parsed headers, so callers can
	// name columns the way their file spells them.
	folded := make(models.ColumnMapping, len(columns))
	for col, entityType := range columns {
		if !entityType.Valid() {
			return nil, fmt.Errorf("column %q: unknown entity type %q", col, entityType)
		}
		key := strings.ToLower(strings.TrimSpace(col))
		if _, ok := known[key]; !ok {
			return nil, fmt.Errorf("column %q not present in import file", col)
		}
		folded[key] = entityType
	}

	return s.mappings.Detect(ctx, brandID, batch.Rows, folded)
}

// normalizeHeaders trims whitespace and lowercases header cells so column
// mappings are insensitive to export-tool quirks.
func normalizeHeaders(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

func rowFromRecord(headers []string, record []string) models.ImportRow {
	row := make(models.ImportRow, len(headers))
	for i, h := range headers {
		if h == "" || i >= len(record) {
			continue
		}
		row[h] = record[i]
	}
	return row
}
