package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/delfino-cr/reglamento-engine/pkg/auth"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
	"github.com/delfino-cr/reglamento-engine/pkg/repositories"
	"github.com/delfino-cr/reglamento-engine/pkg/services"
)

// AuditHandler serves the read-only audit log. ADMIN only.
type AuditHandler struct {
	audit  services.AuditService
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(audit services.AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: logger,
	}
}

// RegisterRoutes registers the audit routes on the given mux.
func (h *AuditHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/audit", authMiddleware.RequireAdmin(h.List))
}

// List handles GET /api/audit?limit=&entityType=&userId=
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.AuditFilter{
		EntityType: r.URL.Query().Get("entityType"),
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			if writeErr := ErrorResponse(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer"); writeErr != nil {
				h.logger.Error("Failed to write error response", zap.Error(writeErr))
			}
			return
		}
		filter.Limit = limit
	}

	if raw := r.URL.Query().Get("userId"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			if writeErr := ErrorResponse(w, http.StatusBadRequest, "bad_request", "userId must be a valid UUID"); writeErr != nil {
				h.logger.Error("Failed to write error response", zap.Error(writeErr))
			}
			return
		}
		filter.UserID = userID
	}

	entries, err := h.audit.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []*models.AuditLogEntry{}
	}

	if err := WriteJSON(w, http.StatusOK, entries); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
