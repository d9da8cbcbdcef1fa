package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tracewear/passport-engine/pkg/apperrors"
	"github.com/tracewear/passport-engine/pkg/auth"
	"github.com/tracewear/passport-engine/pkg/models"
	"github.com/tracewear/passport-engine/pkg/services"
)

// CreateMaterialRequest for POST /materials
type CreateMaterialRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateCategoryRequest for POST /categories
type CreateCategoryRequest struct {
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

// CreateEcoClaimRequest for POST /eco-claims
type CreateEcoClaimRequest struct {
	Claim string `json:"claim"`
}

// CatalogHandler handles catalog entity HTTP requests: brand materials and
// eco-claims, plus the shared category taxonomy.
type CatalogHandler struct {
	catalogService services.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalogService services.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers the catalog handler's routes on the given mux.
func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	brandScoped := func(handler http.HandlerFunc) http.HandlerFunc {
		return authMiddleware.RequireAuthWithPathValidation("bid")(tenantMiddleware(handler))
	}

	mux.HandleFunc("GET /api/brands/{bid}/materials", brandScoped(h.ListMaterials))
	mux.HandleFunc("POST /api/brands/{bid}/materials", brandScoped(h.CreateMaterial))
	mux.HandleFunc("DELETE /api/brands/{bid}/materials/{id}", brandScoped(h.DeleteMaterial))

	mux.HandleFunc("GET /api/brands/{bid}/eco-claims", brandScoped(h.ListEcoClaims))
	mux.HandleFunc("POST /api/brands/{bid}/eco-claims", brandScoped(h.CreateEcoClaim))
	mux.HandleFunc("POST /api/brands/{bid}/eco-claims/auto", brandScoped(h.AutoCreateEcoClaim))
	mux.HandleFunc("DELETE /api/brands/{bid}/eco-claims/{id}", brandScoped(h.DeleteEcoClaim))

	// The category taxonomy is shared across brands; any authenticated user
	// may read it. Writes still need a tenant connection for auditing.
	mux.HandleFunc("GET /api/categories",
		authMiddleware.RequireAuth(tenantMiddleware(h.ListCategories)))
	mux.HandleFunc("POST /api/categories",
		authMiddleware.RequireAuth(tenantMiddleware(h.CreateCategory)))

	mux.HandleFunc("GET /api/brands/{bid}/value-mappings", brandScoped(h.ListValueMappings))
}

// ListMaterials handles GET /api/brands/{bid}/materials.
func (h *CatalogHandler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	brandID, ok := ParseBrandID(w, r, h.logger)
	if !ok {
		return
	}

	materials, err := h.catalogService.ListMaterials(r.Context(), brandID)
	if err != nil {
		h.logger.Error("Failed to list materials", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "list_failed", "Failed to list materials")
		return
	}
	h.writeData(w, materials)
}

// CreateMaterial handles POST /api/brands/{bid}/materials.
func (h *CatalogHandler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	brandID, ok := ParseBrandID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateMaterialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "missing_name", "Material name is required")
		return
	}

	material := &models.Material{
		BrandID:     brandID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	if err := h.catalogService.CreateMaterial(r.Context(), material); err != nil {
		h.logger.Error("Failed to create material", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "create_failed", "Failed to create material")
		return
	}
	h.writeData(w, material)
}

// DeleteMaterial handles DELETE /api/brands/{bid}/materials/{id}.
func (h *CatalogHandler) DeleteMaterial(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseBrandID(w, r, h.logger); !ok {
		return
	}
	id, ok := ParseEntityID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteMaterial(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete material", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "delete_failed", "Failed to delete material")
		return
	}
	h.writeData(w, map[string]string{"status": "deleted"})
}

// ListCategories handles GET /api/categories.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "list_failed", "Failed to list categories")
		return
	}
	h.writeData(w, categories)
}

// CreateCategory handles POST /api/categories.
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "missing_name", "Category name is required")
		return
	}

	category := &models.Category{
		Name:     strings.TrimSpace(req.Name),
		ParentID: req.ParentID,
	}
	if err := h.catalogService.CreateCategory(r.Context(), category); err != nil {
		h.logger.Error("Failed to create category", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "create_failed", "Failed to create category")
		return
	}
	h.writeData(w, category)
}

// ListEcoClaims handles GET /api/brands/{bid}/eco-claims.
func (h *CatalogHandler) ListEcoClaims(w http.ResponseWriter, r *http.Request) {
	brandID, ok := ParseBrandID(w, r, h.logger)
	if !ok {
		return
	}

	claims, err := h.catalogService.ListEcoClaims(r.Context(), brandID)
	if err != nil {
		h.logger.Error("Failed to list eco claims", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "list_failed", "Failed to list eco claims")
		return
	}
	h.writeData(w, claims)
}

// CreateEcoClaim handles POST /api/brands/{bid}/eco-claims.
func (h *CatalogHandler) CreateEcoClaim(w http.ResponseWriter, r *http.Request) {
	brandID, ok := ParseBrandID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateEcoClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Claim) == "" {
		h.writeError(w, http.StatusBadRequest, "missing_claim", "Claim text is required")
		return
	}

	claim := &models.EcoClaim{
		BrandID: brandID,
		Claim:   strings.TrimSpace(req.Claim),
	}
	if err := h.catalogService.CreateEcoClaim(r.Context(), claim); err != nil {
		if errors.Is(err, apperrors.ErrUnsafeValue) {
			h.writeError(w, http.StatusBadRequest, "unsafe_claim", "Claim text failed the safety check")
			return
		}
		h.logger.Error("Failed to create eco claim", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "create_failed", "Failed to create eco claim")
		return
	}
	h.writeData(w, claim)
}

// AutoCreateEcoClaim handles POST /api/brands/{bid}/eco-claims/auto. Unlike
// CreateEcoClaim, the text passes the import safety check first and a
// rejection is reported as such rather than as an error.
func (h *CatalogHandler) AutoCreateEcoClaim(w http.ResponseWriter, r *http.Request) {
	brandID, ok := ParseBrandID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateEcoClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	id, err := h.catalogService.AutoCreateEcoClaim(r.Context(), brandID, req.Claim)
	if err != nil {
		h.logger.Error("Failed to auto-create eco claim", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "create_failed", "Failed to auto-create eco claim")
		return
	}
	if id == nil {
		h.writeData(w, map[string]any{"created": false})
		return
	}
	h.writeData(w, map[string]any{"created": true, "id": id})
}

// DeleteEcoClaim handles DELETE /api/brands/{bid}/eco-claims/{id}.
func (h *CatalogHandler) DeleteEcoClaim(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseBrandID(w, r, h.logger); !ok {
		return
	}
	id, ok := ParseEntityID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteEcoClaim(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete eco claim", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "delete_failed", "Failed to delete eco claim")
		return
	}
	h.writeData(w, map[string]string{"status": "deleted"})
}

// ListValueMappings handles GET /api/brands/{bid}/value-mappings.
func (h *CatalogHandler) ListValueMappings(w http.ResponseWriter, r *http.Request) {
	brandID, ok := ParseBrandID(w, r, h.logger)
	if !ok {
		return
	}

	mappings, err := h.catalogService.ListValueMappings(r.Context(), brandID)
	if err != nil {
		h.logger.Error("Failed to list value mappings", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "list_failed", "Failed to list value mappings")
		return
	}
	h.writeData(w, mappings)
}

func (h *CatalogHandler) writeData(w http.ResponseWriter, data any) {
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *CatalogHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
