package database

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tracewear/passport-engine/pkg/auth"
)

// WithTenantContext creates middleware that sets up a brand-scoped DB connection.
// It runs AFTER auth middleware and uses the brand ID from JWT claims.
// The connection is automatically cleaned up after the handler returns.
func WithTenantContext(db *DB, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.GetClaims(r.Context())
			if !ok || claims.BrandID == "" {
				logger.Error("Missing brand context in claims")
				writeError(w, http.StatusInternalServerError, "internal_error", "Missing brand context")
				return
			}

			brandID, err := uuid.Parse(claims.BrandID)
			if err != nil {
				logger.Error("Invalid brand ID format in claims",
					zap.String("brand_id", claims.BrandID),
					zap.Error(err))
				writeError(w, http.StatusBadRequest, "invalid_brand_id", "Invalid brand ID format")
				return
			}

			scope, err := db.WithTenant(r.Context(), brandID)
			if err != nil {
				logger.Error("Failed to acquire tenant connection",
					zap.String("brand_id", brandID.String()),
					zap.Error(err))
				writeError(w, http.StatusInternalServerError, "database_error", "Database connection error")
				return
			}
			defer scope.Close()

			ctx := SetTenantScope(r.Context(), scope)
			next(w, r.WithContext(ctx))
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
