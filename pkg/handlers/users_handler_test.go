package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/delfino-cr/reglamento-engine/pkg/apperrors"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
	"github.com/delfino-cr/reglamento-engine/pkg/services"
)

type mockUserService struct {
	createFn func(ctx context.Context, input services.CreateUserInput) (*models.User, error)
	updateFn func(ctx context.Context, id uuid.UUID, input services.UpdateUserInput) (*models.User, error)
	toggleFn func(ctx context.Context, id uuid.UUID) (*models.User, error)
	listFn   func(ctx context.Context) ([]*models.User, error)
}

func (m *mockUserService) Create(ctx context.Context, input services.CreateUserInput) (*models.User, error) {
	return m.createFn(ctx, input)
}

func (m *mockUserService) Update(ctx context.Context, id uuid.UUID, input services.UpdateUserInput) (*models.User, error) {
	return m.updateFn(ctx, id, input)
}

func (m *mockUserService) ToggleActive(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.toggleFn(ctx, id)
}

func (m *mockUserService) List(ctx context.Context) ([]*models.User, error) {
	return m.listFn(ctx)
}

func TestUserList_EmptyIsArray(t *testing.T) {
	svc := &mockUserService{
		listFn: func(ctx context.Context) ([]*models.User, error) { return nil, nil },
	}
	h := NewUserHandler(svc, zap.NewNop())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestUserList_HidesPasswordHash(t *testing.T) {
	svc := &mockUserService{
		listFn: func(ctx context.Context) ([]*models.User, error) {
			return []*models.User{{
				ID:           uuid.New(),
				Email:        "editor@delfino.cr",
				FullName:     "Editor",
				PasswordHash: "$2a$12$secret",
				Role:         models.RoleEditor,
				IsActive:     true,
			}}, nil
		},
	}
	h := NewUserHandler(svc, zap.NewNop())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.NotContains(t, rec.Body.String(), "passwordHash")
}

func TestUserCreate_Success(t *testing.T) {
	svc := &mockUserService{
		createFn: func(ctx context.Context, input services.CreateUserInput) (*models.User, error) {
			assert.Equal(t, "nuevo@delfino.cr", input.Email)
			return &models.User{
				ID:       uuid.New(),
				Email:    input.Email,
				FullName: input.FullName,
				Role:     input.Role,
				IsActive: true,
			}, nil
		},
	}
	h := NewUserHandler(svc, zap.NewNop())

	body := `{"email":"nuevo@delfino.cr","fullName":"Nuevo","password":"secreto123","role":"EDITOR"}`
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestUserCreate_ValidationIssues(t *testing.T) {
	svc := &mockUserService{
		createFn: func(ctx context.Context, input services.CreateUserInput) (*models.User, error) {
			return nil, apperrors.NewValidation("email", "email domain not allowed").
				Add("password", "must be at least 8 characters")
		},
	}
	h := NewUserHandler(svc, zap.NewNop())

	body := `{"email":"x@example.com","fullName":"X","password":"short","role":"EDITOR"}`
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp validationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Issues, 2)
}

func TestUserUpdate_MasterProtected(t *testing.T) {
	svc := &mockUserService{
		updateFn: func(ctx context.Context, id uuid.UUID, input services.UpdateUserInput) (*models.User, error) {
			return nil, apperrors.ErrMasterUserProtected
		},
	}
	h := NewUserHandler(svc, zap.NewNop())

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodPut, "/api/users/"+id, strings.NewReader(`{"fullName":"Otro"}`))
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot be modified")
}

func TestUserUpdate_BadID(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPut, "/api/users/abc", strings.NewReader(`{}`))
	req.SetPathValue("id", "abc")
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserToggleActive(t *testing.T) {
	userID := uuid.New()
	svc := &mockUserService{
		toggleFn: func(ctx context.Context, id uuid.UUID) (*models.User, error) {
			assert.Equal(t, userID, id)
			return &models.User{ID: id, IsActive: false}, nil
		},
	}
	h := NewUserHandler(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodPatch, "/api/users/"+userID.String(), nil)
	req.SetPathValue("id", userID.String())
	rec := httptest.NewRecorder()
	h.ToggleActive(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isActive":false`)
}
