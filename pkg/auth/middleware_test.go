package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/delfino-cr/reglamento-engine/pkg/models"
)

func loginToken(t *testing.T, svc AuthService, email, password string) string {
	t.Helper()
	token, _, err := svc.Login(context.Background(), email, password)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return token
}

func TestRequireAuth_NoToken(t *testing.T) {
	svc := newTestAuthService(&mockUserRepository{})
	mw := NewMiddleware(svc, zap.NewNop())

	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run without a token")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/anotaciones", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuth_SetsClaims(t *testing.T) {
	user := testUser(t, "editor@delfino.cr", "secreto123")
	svc := newTestAuthService(&mockUserRepository{user: user})
	mw := NewMiddleware(svc, zap.NewNop())

	var gotClaims *Claims
	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = GetClaims(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/anotaciones", nil)
	req.Header.Set("Authorization", "Bearer "+loginToken(t, svc, user.Email, "secreto123"))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotClaims == nil {
		t.Fatal("expected claims in context")
	}
	if gotClaims.Subject != user.ID.String() {
		t.Errorf("expected subject %q, got %q", user.ID.String(), gotClaims.Subject)
	}
}

func TestRequireAdmin_EditorForbidden(t *testing.T) {
	user := testUser(t, "editor@delfino.cr", "secreto123")
	svc := newTestAuthService(&mockUserRepository{user: user})
	mw := NewMiddleware(svc, zap.NewNop())

	handler := mw.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run for an editor")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+loginToken(t, svc, user.Email, "secreto123"))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestRequireAdmin_AdminAllowed(t *testing.T) {
	user := testUser(t, "admin@delfino.cr", "secreto123")
	user.Role = models.RoleAdmin
	svc := newTestAuthService(&mockUserRepository{user: user})
	mw := NewMiddleware(svc, zap.NewNop())

	called := false
	handler := mw.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+loginToken(t, svc, user.Email, "secreto123"))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if !called {
		t.Error("expected handler to run for an admin")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := clientIP(req); got != "10.0.0.1" {
		t.Errorf("expected 10.0.0.1, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Errorf("expected forwarded address, got %q", got)
	}
}
