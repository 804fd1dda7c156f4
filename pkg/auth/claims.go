// Package auth issues and validates the HS256 session tokens used by
// the editorial API, and provides the HTTP middleware that enforces them.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/delfino-cr/reglamento-engine/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing session claims.
	ClaimsKey contextKey = "claims"
	// ClientIPKey is the context key for the caller's IP address,
	// recorded on audit entries.
	ClientIPKey contextKey = "client_ip"
)

// Claims is the session token payload. Subject carries the user ID.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	FullName string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
}

// IsAdmin reports whether the session belongs to an administrator.
func (c *Claims) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// GetClaims retrieves session claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// UserIDFromContext extracts the authenticated user's ID from context.
// Returns uuid.Nil and false when unauthenticated or malformed.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, false
	}

	return userID, true
}

// RequireUserIDFromContext extracts the authenticated user's ID and
// errors when it is missing. Use where the caller identity is mandatory,
// such as audit attribution.
func RequireUserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ClientIPFromContext returns the caller's IP when the middleware
// recorded one, nil otherwise.
func ClientIPFromContext(ctx context.Context) *string {
	ip, ok := ctx.Value(ClientIPKey).(string)
	if !ok || ip == "" {
		return nil
	}
	return &ip
}
