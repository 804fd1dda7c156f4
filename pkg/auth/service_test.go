package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/delfino-cr/reglamento-engine/pkg/apperrors"
	"github.com/delfino-cr/reglamento-engine/pkg/config"
	"github.com/delfino-cr/reglamento-engine/pkg/database"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
)

// mockUserRepository is a configurable mock for auth tests.
type mockUserRepository struct {
	user   *models.User
	getErr error
}

func (m *mockUserRepository) Insert(ctx context.Context, q database.Querier, user *models.User) error {
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*models.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.user, nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, q database.Querier, email string) (*models.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.user, nil
}

func (m *mockUserRepository) Update(ctx context.Context, q database.Querier, user *models.User) error {
	return nil
}

func (m *mockUserRepository) List(ctx context.Context, q database.Querier) ([]*models.User, error) {
	return nil, nil
}

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		SessionKey:         "test-session-key",
		SessionTTLHours:    1,
		AllowedEmailDomain: "delfino.cr",
		MasterEmail:        "master@gmail.com",
	}
}

func testUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     "Test User",
		PasswordHash: string(hash),
		Role:         models.RoleEditor,
		IsActive:     true,
	}
}

func newTestAuthService(repo *mockUserRepository) AuthService {
	return NewAuthService(&database.DB{}, repo, testAuthConfig(), zap.NewNop())
}

func TestLogin_Success(t *testing.T) {
	user := testUser(t, "editor@delfino.cr", "secreto123")
	svc := newTestAuthService(&mockUserRepository{user: user})

	token, got, err := svc.Login(context.Background(), "editor@delfino.cr", "secreto123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
	if got.ID != user.ID {
		t.Errorf("expected user %v, got %v", user.ID, got.ID)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Subject != user.ID.String() {
		t.Errorf("expected subject %q, got %q", user.ID.String(), claims.Subject)
	}
	if claims.Role != models.RoleEditor {
		t.Errorf("expected role EDITOR, got %q", claims.Role)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	user := testUser(t, "editor@delfino.cr", "secreto123")
	svc := newTestAuthService(&mockUserRepository{user: user})

	_, _, err := svc.Login(context.Background(), "editor@delfino.cr", "wrong")
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	svc := newTestAuthService(&mockUserRepository{getErr: apperrors.ErrNotFound})

	_, _, err := svc.Login(context.Background(), "editor@delfino.cr", "secreto123")
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	user := testUser(t, "editor@delfino.cr", "secreto123")
	user.IsActive = false
	svc := newTestAuthService(&mockUserRepository{user: user})

	_, _, err := svc.Login(context.Background(), "editor@delfino.cr", "secreto123")
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_DisallowedDomain(t *testing.T) {
	user := testUser(t, "intruder@example.com", "secreto123")
	svc := newTestAuthService(&mockUserRepository{user: user})

	_, _, err := svc.Login(context.Background(), "intruder@example.com", "secreto123")
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_MasterEmailBypassesDomain(t *testing.T) {
	user := testUser(t, "master@gmail.com", "secreto123")
	user.Role = models.RoleAdmin
	svc := newTestAuthService(&mockUserRepository{user: user})

	token, _, err := svc.Login(context.Background(), "master@gmail.com", "secreto123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
}

func TestValidateToken_Tampered(t *testing.T) {
	user := testUser(t, "editor@delfino.cr", "secreto123")
	svc := newTestAuthService(&mockUserRepository{user: user})

	token, _, err := svc.Login(context.Background(), "editor@delfino.cr", "secreto123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if _, err := svc.ValidateToken(token + "x"); err == nil {
		t.Fatal("expected tampered token to fail validation")
	}
}

func TestValidateRequest_BearerAndCookie(t *testing.T) {
	user := testUser(t, "editor@delfino.cr", "secreto123")
	svc := newTestAuthService(&mockUserRepository{user: user})

	token, _, err := svc.Login(context.Background(), "editor@delfino.cr", "secreto123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	bearer := httptest.NewRequest(http.MethodGet, "/api/anotaciones", nil)
	bearer.Header.Set("Authorization", "Bearer "+token)
	if _, err := svc.ValidateRequest(bearer); err != nil {
		t.Errorf("bearer validation failed: %v", err)
	}

	withCookie := httptest.NewRequest(http.MethodGet, "/api/anotaciones", nil)
	withCookie.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	if _, err := svc.ValidateRequest(withCookie); err != nil {
		t.Errorf("cookie validation failed: %v", err)
	}

	bare := httptest.NewRequest(http.MethodGet, "/api/anotaciones", nil)
	if _, err := svc.ValidateRequest(bare); err == nil {
		t.Error("expected request without token to fail")
	}
}

func TestUserIDFromContext(t *testing.T) {
	userID := uuid.New()
	claims := &Claims{}
	claims.Subject = userID.String()

	ctx := context.WithValue(context.Background(), ClaimsKey, claims)

	got, ok := UserIDFromContext(ctx)
	if !ok {
		t.Fatal("expected user ID in context")
	}
	if got != userID {
		t.Errorf("expected %v, got %v", userID, got)
	}

	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Error("expected no user ID in empty context")
	}
}
