// Package auth provides JWT-based authentication for passport-engine.
// Tokens are issued by the account service and validated against its JWKS
// endpoints.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Claims represents the JWT claims structure issued by the account service.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, etc.)
// and adds custom claims for brand context.
type Claims struct {
	jwt.RegisteredClaims
	BrandID string   `json:"bid,omitempty"`   // Brand UUID
	Email   string   `json:"email,omitempty"` // User email address
	Roles   []string `json:"roles,omitempty"` // User roles within the brand
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// ExtractClaimsFromContext extracts brand ID and user ID from JWT claims in context.
// Returns an error if not authenticated or claims are invalid.
func ExtractClaimsFromContext(ctx context.Context) (uuid.UUID, string, error) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return uuid.Nil, "", fmt.Errorf("authentication required: no claims in context")
	}

	if claims.BrandID == "" {
		return uuid.Nil, "", fmt.Errorf("missing brand ID in JWT claims")
	}

	brandID, err := uuid.Parse(claims.BrandID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid brand ID format: %w", err)
	}

	userID := claims.Subject
	if userID == "" {
		return uuid.Nil, "", fmt.Errorf("missing user ID in JWT claims")
	}

	return brandID, userID, nil
}
