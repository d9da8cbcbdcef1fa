package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/tracewear/passport-engine/pkg/auth"
	"github.com/tracewear/passport-engine/pkg/models"
	"github.com/tracewear/passport-engine/pkg/services"
)

// TenantMiddleware opens a tenant-scoped database connection for the request.
type TenantMiddleware func(http.HandlerFunc) http.HandlerFunc

// ResolveRequest for POST /mappings/resolve
type ResolveRequest struct {
	EntityType   string `json:"entity_type"`
	Value        string `json:"value"`
	SourceColumn string `json:"source_column"`
}

// DetectRequest for POST /mappings/detect
type DetectRequest struct {
	EntityType   string   `json:"entity_type"`
	SourceColumn string   `json:"source_column"`
	Values       []string `json:"values"`
}

// SuggestRequest for POST /mappings/suggest
type SuggestRequest struct {
	EntityType   string `json:"entity_type"`
	Value        string `json:"value"`
	SourceColumn string `json:"source_column"`
	// Advise asks the LLM advisor to pick among the suggestions. Ignored
	// when no advisor is configured.
	Advise bool `json:"advise,omitempty"`
}

// SuggestResponse for POST /mappings/suggest
type SuggestResponse struct {
	Suggestions []*models.FuzzyMatchResult      `json:"suggestions"`
	Synonym     string                          `json:"synonym,omitempty"`
	Advisor     *services.AdvisorRecommendation `json:"advisor,omitempty"`
}

// DetectResponse for POST /mappings/detect
type DetectResponse struct {
	Unmapped []*models.UnmappedValue `json:"unmapped"`
	Total    int                     `json:"total"`
}

// MappingsHandler handles value resolution, detection, and suggestion
// requests.
type MappingsHandler struct {
	mappingService services.ValueMappingService
	advisorService services.AdvisorService // nil when not configured
	logger         *zap.Logger
}

// NewMappingsHandler creates a new mappings handler. advisorService may be nil
// when no LLM endpoint is configured.
func NewMappingsHandler(
	mappingService services.ValueMappingService,
	advisorService services.AdvisorService,
	logger *zap.Logger,
) *MappingsHandler {
	return &MappingsHandler{
		mappingService: mappingService,
		advisorService: advisorService,
		logger:         logger,
	}
}

// RegisterRoutes registers the mappings handler's routes on the given mux.
func (h *MappingsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	base := "/api/brands/{bid}/mappings"

	mux.HandleFunc("POST "+base+"/resolve",
		authMiddleware.RequireAuthWithPathValidation("bid")(tenantMiddleware(h.Resolve)))
	mux.HandleFunc("POST "+base+"/detect",
		authMiddleware.RequireAuthWithPathValidation("bid")(tenantMiddleware(h.Detect)))
	mux.HandleFunc("POST "+base+"/suggest",
		authMiddleware.RequireAuthWithPathValidation("bid")(tenantMiddleware(h.Suggest)))

	// Cache maintenance is process-local; no tenant connection needed.
	mux.HandleFunc("GET "+base+"/cache/stats",
		authMiddleware.RequireAuthWithPathValidation("bid")(h.CacheStats))
	mux.HandleFunc("POST "+base+"/cache/sweep",
		authMiddleware.RequireAuthWithPathValidation("bid")(h.CacheSweep))
	mux.HandleFunc("DELETE "+base+"/cache",
		authMiddleware.RequireAuthWithPathValidation("bid")(h.CacheClear))

	mux.HandleFunc("GET /api/synonyms",
		authMiddleware.RequireAuth(h.Synonym))
}

// Resolve handles POST /api/brands/{bid}/mappings/resolve.
func (h *MappingsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	brandID, ok := ParseBrandID(w, r, h.logger)
	if !ok {
		return
	}

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	entityType, err := models.ParseEntityType(req.EntityType)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_entity_type", err.Error())
		return
	}

	result, err := h.mappingService.Resolve(r.Context(), brandID, entityType, req.Value, req.SourceColumn)
	if err != nil {
		h.logger.Error("Resolution failed",
			zap.String("entity_type", req.EntityType),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "resolve_failed", "Failed to resolve value")
		return
	}

	h.writeData(w, result)
}

// Detect handles POST /api/brands/{bid}/mappings/detect.
func (h *MappingsHandler) Detect(w http.ResponseWriter, r *http.Request) {
	brandID, ok := ParseBrandID(w, r, h.logger)
	if !ok {
		return
	}

	var req DetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	entityType, err := models.ParseEntityType(req.EntityType)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_entity_type", err.Error())
		return
	}

	unmapped, err := h.mappingService.DetectForType(r.Context(), brandID, req.Values, entityType, req.SourceColumn)
	if err != nil {
		h.logger.Error("Detection failed",
			zap.String("entity_type", req.EntityType),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "detect_failed", "Failed to detect unmapped values")
		return
	}

	h.writeData(w, DetectResponse{Unmapped: unmapped, Total: len(unmapped)})
}

// Suggest handles POST /api/brands/{bid}/mappings/suggest.
func (h *MappingsHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	brandID, ok := ParseBrandID(w, r, h.logger)
	if !ok {
		return
	}

	var req SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	entityType, err := models.ParseEntityType(req.EntityType)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_entity_type", err.Error())
		return
	}

	unmapped := &models.UnmappedValue{
		EntityType:   entityType,
		RawValue:     req.Value,
		SourceColumn: req.SourceColumn,
	}
	suggestions, err := h.mappingService.Suggest(r.Context(), brandID, unmapped)
	if err != nil {
		h.logger.Error("Suggestion failed",
			zap.String("entity_type", req.EntityType),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "suggest_failed", "Failed to compute suggestions")
		return
	}

	resp := SuggestResponse{Suggestions: suggestions}
	if canonical, ok := h.mappingService.ResolveSynonym(req.Value); ok {
		resp.Synonym = canonical
	}

	if req.Advise && h.advisorService != nil && len(suggestions) > 0 {
		rec, err := h.advisorService.Recommend(r.Context(), unmapped, suggestions)
		if err != nil {
			// Advice is best-effort; suggestions still go out.
			h.logger.Warn("Advisor failed", zap.Error(err))
		} else {
			resp.Advisor = rec
		}
	}

	h.writeData(w, resp)
}

// Synonym handles GET /api/synonyms?value=x.
func (h *MappingsHandler) Synonym(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("value")
	if value == "" {
		h.writeError(w, http.StatusBadRequest, "missing_value", "Query parameter 'value' is required")
		return
	}

	canonical, found := h.mappingService.ResolveSynonym(value)
	h.writeData(w, map[string]any{
		"value":     value,
		"canonical": canonical,
		"found":     found,
	})
}

// CacheStats handles GET /api/brands/{bid}/mappings/cache/stats.
func (h *MappingsHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, h.mappingService.CacheStats())
}

// CacheSweep handles POST /api/brands/{bid}/mappings/cache/sweep.
func (h *MappingsHandler) CacheSweep(w http.ResponseWriter, r *http.Request) {
	evicted := h.mappingService.SweepCache()
	h.writeData(w, map[string]int{"evicted": evicted})
}

// CacheClear handles DELETE /api/brands/{bid}/mappings/cache.
func (h *MappingsHandler) CacheClear(w http.ResponseWriter, r *http.Request) {
	h.mappingService.ClearCache()
	h.writeData(w, map[string]string{"status": "cleared"})
}

func (h *MappingsHandler) writeData(w http.ResponseWriter, data any) {
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *MappingsHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
