package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/delfino-cr/reglamento-engine/pkg/auth"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
	"github.com/delfino-cr/reglamento-engine/pkg/services"
)

// CreateUserRequest for POST /api/users.
type CreateUserRequest struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateUserRequest for PUT /api/users/{id}. Absent fields stay
// untouched.
type UpdateUserRequest struct {
	FullName *string `json:"fullName,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// UserHandler handles account management requests. Every route
// requires the ADMIN role.
type UserHandler struct {
	users  services.UserService
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users services.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// RegisterRoutes registers the user management routes on the given mux.
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/users", authMiddleware.RequireAdmin(h.List))
	mux.HandleFunc("POST /api/users", authMiddleware.RequireAdmin(h.Create))
	mux.HandleFunc("PUT /api/users/{id}", authMiddleware.RequireAdmin(h.Update))
	mux.HandleFunc("PATCH /api/users/{id}", authMiddleware.RequireAdmin(h.ToggleActive))
}

// List handles GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}

	h.write(w, http.StatusOK, users)
}

// Create handles POST /api/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	user, err := h.users.Create(r.Context(), services.CreateUserInput{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusCreated, user)
}

// Update handles PUT /api/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	user, err := h.users.Update(r.Context(), id, services.UpdateUserInput{
		FullName: req.FullName,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusOK, user)
}

// ToggleActive handles PATCH /api/users/{id}
func (h *UserHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	user, err := h.users.ToggleActive(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusOK, user)
}

func (h *UserHandler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if writeErr := ErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid user ID"); writeErr != nil {
			h.logger.Error("Failed to write error response", zap.Error(writeErr))
		}
		return uuid.Nil, false
	}
	return id, true
}

func (h *UserHandler) write(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, data); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
