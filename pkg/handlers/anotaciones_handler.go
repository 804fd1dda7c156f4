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

// CreateAnotacionRequest for POST /api/anotaciones.
type CreateAnotacionRequest struct {
	ArticuloID      int      `json:"articuloId"`
	TipoAnotacionID int      `json:"tipoAnotacionId"`
	Contenido       string   `json:"contenido"`
	Orden           int      `json:"orden"`
	EsVisible       *bool    `json:"esVisible,omitempty"`
	FuenteIA        bool     `json:"fuenteIA,omitempty"`
	ReferenciaIDs   []string `json:"referenciaIds,omitempty"`
}

// UpdateAnotacionRequest for PUT /api/anotaciones/{id}. Absent fields
// stay untouched; a present referenciaIds replaces the whole link set.
type UpdateAnotacionRequest struct {
	TipoAnotacionID *int      `json:"tipoAnotacionId,omitempty"`
	Contenido       *string   `json:"contenido,omitempty"`
	Orden           *int      `json:"orden,omitempty"`
	EsVisible       *bool     `json:"esVisible,omitempty"`
	ReferenciaIDs   *[]string `json:"referenciaIds,omitempty"`
}

// PatchAnotacionRequest for PATCH /api/anotaciones/{id}.
type PatchAnotacionRequest struct {
	EsAprobada *bool `json:"esAprobada,omitempty"`
	EsVisible  *bool `json:"esVisible,omitempty"`
}

// BulkApproveRequest for POST /api/anotaciones/bulk-approve.
type BulkApproveRequest struct {
	IDs []string `json:"ids"`
}

// AnotacionHandler handles annotation HTTP requests.
type AnotacionHandler struct {
	anotaciones services.AnotacionService
	logger      *zap.Logger
}

// NewAnotacionHandler creates a new AnotacionHandler.
func NewAnotacionHandler(anotaciones services.AnotacionService, logger *zap.Logger) *AnotacionHandler {
	return &AnotacionHandler{
		anotaciones: anotaciones,
		logger:      logger,
	}
}

// RegisterRoutes registers the annotation routes on the given mux.
func (h *AnotacionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/anotaciones", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /api/anotaciones", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("POST /api/anotaciones/bulk-approve", authMiddleware.RequireAuth(h.BulkApprove))
	mux.HandleFunc("GET /api/anotaciones/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT /api/anotaciones/{id}", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("PATCH /api/anotaciones/{id}", authMiddleware.RequireAuth(h.Patch))
	mux.HandleFunc("DELETE /api/anotaciones/{id}", authMiddleware.RequireAuth(h.Delete))
}

// List handles GET /api/anotaciones?articuloId=&estado=
func (h *AnotacionHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.AnotacionFilter{}

	if raw := r.URL.Query().Get("articuloId"); raw != "" {
		articuloID, err := strconv.Atoi(raw)
		if err != nil {
			h.badRequest(w, "articuloId must be an integer")
			return
		}
		filter.ArticuloID = articuloID
	}

	if estado := r.URL.Query().Get("estado"); estado != "" {
		if estado != "pendiente" {
			h.badRequest(w, "estado must be 'pendiente'")
			return
		}
		filter.SoloPendientes = true
	}

	anotaciones, err := h.anotaciones.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if anotaciones == nil {
		anotaciones = []*models.Anotacion{}
	}

	h.write(w, http.StatusOK, anotaciones)
}

// Get handles GET /api/anotaciones/{id}
func (h *AnotacionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	anotacion, err := h.anotaciones.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusOK, anotacion)
}

// Create handles POST /api/anotaciones
func (h *AnotacionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAnotacionRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	refIDs, ok := h.parseReferenciaIDs(w, req.ReferenciaIDs)
	if !ok {
		return
	}

	anotacion, err := h.anotaciones.Create(r.Context(), services.CreateAnotacionInput{
		ArticuloID:      req.ArticuloID,
		TipoAnotacionID: req.TipoAnotacionID,
		Contenido:       req.Contenido,
		Orden:           req.Orden,
		EsVisible:       req.EsVisible,
		FuenteIA:        req.FuenteIA,
		ReferenciaIDs:   refIDs,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusCreated, anotacion)
}

// Update handles PUT /api/anotaciones/{id}
func (h *AnotacionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req UpdateAnotacionRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	input := services.UpdateAnotacionInput{
		TipoAnotacionID: req.TipoAnotacionID,
		Contenido:       req.Contenido,
		Orden:           req.Orden,
		EsVisible:       req.EsVisible,
	}

	if req.ReferenciaIDs != nil {
		refIDs, ok := h.parseReferenciaIDs(w, *req.ReferenciaIDs)
		if !ok {
			return
		}
		input.ReferenciaIDs = &refIDs
	}

	anotacion, err := h.anotaciones.Update(r.Context(), id, input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusOK, anotacion)
}

// Patch handles PATCH /api/anotaciones/{id} for the review actions.
func (h *AnotacionHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req PatchAnotacionRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	switch {
	case req.EsAprobada != nil:
		anotacion, err := h.anotaciones.SetApproval(r.Context(), id, *req.EsAprobada)
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		h.write(w, http.StatusOK, anotacion)
	case req.EsVisible != nil:
		anotacion, err := h.anotaciones.SetVisibility(r.Context(), id, *req.EsVisible)
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		h.write(w, http.StatusOK, anotacion)
	default:
		h.badRequest(w, "provide esAprobada or esVisible")
	}
}

// Delete handles DELETE /api/anotaciones/{id}
func (h *AnotacionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.anotaciones.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusOK, map[string]bool{"success": true})
}

// BulkApprove handles POST /api/anotaciones/bulk-approve
func (h *AnotacionHandler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	var req BulkApproveRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.badRequest(w, "ids must be valid UUIDs")
			return
		}
		ids = append(ids, id)
	}

	count, err := h.anotaciones.BulkApprove(r.Context(), ids)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusOK, map[string]int64{"approved": count})
}

func (h *AnotacionHandler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.badRequest(w, "Invalid anotacion ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *AnotacionHandler) parseReferenciaIDs(w http.ResponseWriter, raw []string) ([]uuid.UUID, bool) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			h.badRequest(w, "referenciaIds must be valid UUIDs")
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func (h *AnotacionHandler) badRequest(w http.ResponseWriter, message string) {
	if err := ErrorResponse(w, http.StatusBadRequest, "bad_request", message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func (h *AnotacionHandler) write(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, data); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
