package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tracewear/passport-engine/pkg/adapters/connector"
	"github.com/tracewear/passport-engine/pkg/apperrors"
	"github.com/tracewear/passport-engine/pkg/auth"
	"github.com/tracewear/passport-engine/pkg/config"
	"github.com/tracewear/passport-engine/pkg/models"
	"github.com/tracewear/passport-engine/pkg/services"
)

// ImportDetectResponse for POST /imports/detect
type ImportDetectResponse struct {
	Headers  []string                `json:"headers"`
	RowCount int                     `json:"row_count"`
	Unmapped []*models.UnmappedValue `json:"unmapped"`
}

// ImportHandler handles product file uploads. The upload is a multipart form
// with a "file" part (CSV or XLSX) and a "columns" part holding a JSON object
// mapping column headers to entity types.
type ImportHandler struct {
	importService services.ImportService
	cfg           *config.ImportConfig
	logger        *zap.Logger
}

// NewImportHandler creates a new import handler.
func NewImportHandler(importService services.ImportService, cfg *config.ImportConfig, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		cfg:           cfg,
		logger:        logger,
	}
}

// RegisterRoutes registers the import handler's routes on the given mux.
func (h *ImportHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	mux.HandleFunc("POST /api/brands/{bid}/imports/detect",
		authMiddleware.RequireAuthWithPathValidation("bid")(tenantMiddleware(h.Detect)))
	mux.HandleFunc("POST /api/brands/{bid}/imports/pull",
		authMiddleware.RequireAuthWithPathValidation("bid")(tenantMiddleware(h.Pull)))
}

// Detect handles POST /api/brands/{bid}/imports/detect: parse the uploaded
// file and report distinct unmapped values per mapped column.
func (h *ImportHandler) Detect(w http.ResponseWriter, r *http.Request) {
	brandID, ok := ParseBrandID(w, r, h.logger)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		h.writeError(w, http.StatusRequestEntityTooLarge, "upload_too_large", "Upload exceeds the size limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "missing_file", "Multipart part 'file' is required")
		return
	}
	defer file.Close()

	var columns models.ColumnMapping
	if err := json.Unmarshal([]byte(r.FormValue("columns")), &columns); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_columns", "Part 'columns' must be a JSON object mapping headers to entity types")
		return
	}
	if len(columns) == 0 {
		h.writeError(w, http.StatusBadRequest, "invalid_columns", "At least one column mapping is required")
		return
	}

	var batch *models.ImportBatch
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".csv":
		batch, err = h.importService.ParseCSV(file)
	case ".xlsx":
		batch, err = h.importService.ParseXLSX(file)
	default:
		h.writeError(w, http.StatusBadRequest, "unsupported_format", "Only .csv and .xlsx files are supported")
		return
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrImportTooBig) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "import_too_big", err.Error())
			return
		}
		h.logger.Warn("Failed to parse import file",
			zap.String("filename", header.Filename),
			zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "parse_failed", "Failed to parse import file")
		return
	}

	unmapped, err := h.importService.DetectUnmapped(r.Context(), brandID, batch, columns)
	if err != nil {
		h.logger.Error("Unmapped-value detection failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "detect_failed", "Failed to detect unmapped values")
		return
	}

	resp := ImportDetectResponse{
		Headers:  batch.Headers,
		RowCount: len(batch.Rows),
		Unmapped: unmapped,
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: resp}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// PullRequest for POST /imports/pull. Exactly one of Postgres or MSSQL must
// be set; credentials are used for this request only and never stored.
type PullRequest struct {
	Source   string               `json:"source"` // "postgres" or "mssql"
	Postgres *PostgresSource      `json:"postgres,omitempty"`
	MSSQL    *MSSQLSource         `json:"mssql,omitempty"`
	Query    string               `json:"query"`
	Columns  models.ColumnMapping `json:"columns"`
}

// PostgresSource describes an external PostgreSQL product database.
type PostgresSource struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// MSSQLSource describes an external SQL Server product database.
type MSSQLSource struct {
	Host                   string `json:"host"`
	Port                   int    `json:"port"`
	User                   string `json:"user"`
	Password               string `json:"password"`
	Database               string `json:"database"`
	Encrypt                bool   `json:"encrypt"`
	TrustServerCertificate bool   `json:"trust_server_certificate"`
}

// Pull handles POST /api/brands/{bid}/imports/pull: fetch product rows from
// an external source database and report unmapped values, without persisting
// the rows.
func (h *ImportHandler) Pull(w http.ResponseWriter, r *http.Request) {
	brandID, ok := ParseBrandID(w, r, h.logger)
	if !ok {
		return
	}

	var req PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		h.writeError(w, http.StatusBadRequest, "missing_query", "Field 'query' is required")
		return
	}
	if len(req.Columns) == 0 {
		h.writeError(w, http.StatusBadRequest, "invalid_columns", "At least one column mapping is required")
		return
	}

	conn, err := h.openConnector(r.Context(), &req)
	if err != nil {
		h.logger.Warn("Failed to open source connector",
			zap.String("source", req.Source),
			zap.Error(err))
		h.writeError(w, http.StatusBadGateway, "source_unavailable", "Failed to connect to the source database")
		return
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			h.logger.Warn("Failed to close source connector", zap.Error(closeErr))
		}
	}()

	batch, err := h.importService.Pull(r.Context(), conn, req.Query)
	if err != nil {
		if errors.Is(err, apperrors.ErrImportTooBig) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "import_too_big", err.Error())
			return
		}
		h.logger.Warn("Source pull failed",
			zap.String("source", req.Source),
			zap.Error(err))
		h.writeError(w, http.StatusBadGateway, "pull_failed", "Failed to fetch rows from the source database")
		return
	}

	unmapped, err := h.importService.DetectUnmapped(r.Context(), brandID, batch, req.Columns)
	if err != nil {
		h.logger.Error("Unmapped-value detection failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "detect_failed", "Failed to detect unmapped values")
		return
	}

	resp := ImportDetectResponse{
		Headers:  batch.Headers,
		RowCount: len(batch.Rows),
		Unmapped: unmapped,
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: resp}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *ImportHandler) openConnector(ctx context.Context, req *PullRequest) (connector.Connector, error) {
	switch req.Source {
	case "postgres":
		if req.Postgres == nil {
			return nil, errors.New("postgres source config is required")
		}
		return connector.NewPostgresConnector(ctx, &connector.PostgresConfig{
			Host:     req.Postgres.Host,
			Port:     req.Postgres.Port,
			User:     req.Postgres.User,
			Password: req.Postgres.Password,
			Database: req.Postgres.Database,
			SSLMode:  req.Postgres.SSLMode,
		}, h.logger)
	case "mssql":
		if req.MSSQL == nil {
			return nil, errors.New("mssql source config is required")
		}
		return connector.NewMSSQLConnector(ctx, &connector.MSSQLConfig{
			Host:                   req.MSSQL.Host,
			Port:                   req.MSSQL.Port,
			User:                   req.MSSQL.User,
			Password:               req.MSSQL.Password,
			Database:               req.MSSQL.Database,
			Encrypt:                req.MSSQL.Encrypt,
			TrustServerCertificate: req.MSSQL.TrustServerCertificate,
		}, h.logger)
	default:
		return nil, fmt.Errorf("unknown source %q", req.Source)
	}
}

func (h *ImportHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
