package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
	ErrMissingBrandID       = errors.New("missing brand ID in token")
	ErrBrandIDMismatch      = errors.New("brand ID mismatch between token and URL")
)

// AuthService defines the interface for authentication operations.
// This abstraction enables clean separation between HTTP handling
// and authentication logic, making both easier to test.
type AuthService interface {
	// ValidateRequest extracts and validates a Bearer JWT from the request.
	// Returns the validated claims, the raw token string, or an error.
	ValidateRequest(r *http.Request) (*Claims, string, error)

	// RequireBrandID validates that the claims contain a brand ID.
	RequireBrandID(claims *Claims) error

	// ValidateBrandIDMatch ensures the URL brand ID matches the token brand ID.
	// If urlBrandID is empty, validation is skipped.
	ValidateBrandIDMatch(claims *Claims, urlBrandID string) error
}

type authService struct {
	jwksClient TokenValidator
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService with the given JWKS client and logger.
func NewAuthService(jwksClient TokenValidator, logger *zap.Logger) AuthService {
	return &authService{
		jwksClient: jwksClient,
		logger:     logger,
	}
}

// ValidateRequest extracts and validates a JWT from the Authorization header.
func (s *authService) ValidateRequest(r *http.Request) (*Claims, string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		s.logger.Debug("No JWT found in request",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method))
		return nil, "", ErrMissingAuthorization
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		s.logger.Debug("Invalid Authorization header format",
			zap.String("path", r.URL.Path))
		return nil, "", ErrInvalidAuthFormat
	}
	tokenString := parts[1]

	claims, err := s.jwksClient.ValidateToken(tokenString)
	if err != nil {
		s.logger.Debug("JWT validation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path))
		return nil, "", err
	}

	return claims, tokenString, nil
}

// RequireBrandID validates that the claims contain a brand ID.
func (s *authService) RequireBrandID(claims *Claims) error {
	if claims.BrandID == "" {
		return ErrMissingBrandID
	}
	return nil
}

// ValidateBrandIDMatch ensures the URL brand ID matches the token brand ID.
func (s *authService) ValidateBrandIDMatch(claims *Claims, urlBrandID string) error {
	if urlBrandID != "" && claims.BrandID != urlBrandID {
		s.logger.Warn("Brand ID mismatch",
			zap.String("url_brand_id", urlBrandID),
			zap.String("token_brand_id", claims.BrandID))
		return ErrBrandIDMismatch
	}
	return nil
}

var _ AuthService = (*authService)(nil)
