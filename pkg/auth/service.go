package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/delfino-cr/reglamento-engine/pkg/apperrors"
	"github.com/delfino-cr/reglamento-engine/pkg/config"
	"github.com/delfino-cr/reglamento-engine/pkg/database"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
	"github.com/delfino-cr/reglamento-engine/pkg/repositories"
)

// SessionCookieName is the cookie carrying the session token for
// browser clients. API clients may send the same token as a bearer.
const SessionCookieName = "session"

// AuthService handles credentials login and session token validation.
type AuthService interface {
	// Login verifies the credentials and issues a session token.
	// Every failure mode returns ErrInvalidCredentials so callers
	// cannot probe which check rejected the attempt.
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	// ValidateToken parses and verifies a session token string.
	ValidateToken(tokenString string) (*Claims, error)
	// ValidateRequest extracts the token from the request (cookie or
	// Authorization bearer) and validates it.
	ValidateRequest(r *http.Request) (*Claims, error)
}

type authService struct {
	db     *database.DB
	users  repositories.UserRepository
	cfg    *config.AuthConfig
	logger *zap.Logger
}

// NewAuthService creates an AuthService backed by the user store.
func NewAuthService(db *database.DB, users repositories.UserRepository, cfg *config.AuthConfig, logger *zap.Logger) AuthService {
	return &authService{
		db:     db,
		users:  users,
		cfg:    cfg,
		logger: logger,
	}
}

var _ AuthService = (*authService)(nil)

func (s *authService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if !s.emailAllowed(email) {
		s.logger.Warn("Login attempt from disallowed domain", zap.String("email", email))
		return "", nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, s.db.Pool, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil, apperrors.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.IsActive {
		s.logger.Warn("Login attempt for inactive account", zap.String("email", email))
		return "", nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.Role))

	return token, user, nil
}

// emailAllowed enforces the account domain policy. The configured
// master email is exempt.
func (s *authService) emailAllowed(email string) bool {
	if s.cfg.MasterEmail != "" && email == strings.ToLower(s.cfg.MasterEmail) {
		return true
	}
	return strings.HasSuffix(email, "@"+s.cfg.AllowedEmailDomain)
}

func (s *authService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.SessionTTL())),
		},
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.SessionKey))
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.SessionKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}

func (s *authService) ValidateRequest(r *http.Request) (*Claims, error) {
	tokenString := extractToken(r)
	if tokenString == "" {
		return nil, fmt.Errorf("no session token in request")
	}
	return s.ValidateToken(tokenString)
}

// extractToken prefers the Authorization bearer header, falling back to
// the session cookie.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return after
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return ""
}
