package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/delfino-cr/reglamento-engine/pkg/auth"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
	"github.com/delfino-cr/reglamento-engine/pkg/services"
)

// ReferenciaRequest is the full payload for POST and PUT. Empty URL
// strings store as NULL.
type ReferenciaRequest struct {
	TipoReferenciaID int    `json:"tipoReferenciaId"`
	Numero           string `json:"numero"`
	Titulo           string `json:"titulo,omitempty"`
	URLPrincipal     string `json:"urlPrincipal,omitempty"`
	URLNexus         string `json:"urlNexus,omitempty"`
	URLCatalogo      string `json:"urlCatalogo,omitempty"`
	URLRepositorio   string `json:"urlRepositorio,omitempty"`
	EsVerificada     bool   `json:"esVerificada,omitempty"`
}

// LinkArticlesRequest for POST /api/referencias/{id}/link-articles-contexto.
type LinkArticlesRequest struct {
	ArticuloNumeros []string `json:"articuloNumeros"`
}

// ReferenciaHandler handles reference catalog HTTP requests.
type ReferenciaHandler struct {
	referencias services.ReferenciaService
	logger      *zap.Logger
}

// NewReferenciaHandler creates a new ReferenciaHandler.
func NewReferenciaHandler(referencias services.ReferenciaService, logger *zap.Logger) *ReferenciaHandler {
	return &ReferenciaHandler{
		referencias: referencias,
		logger:      logger,
	}
}

// RegisterRoutes registers the reference routes on the given mux.
func (h *ReferenciaHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/referencias", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /api/referencias", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/referencias/tipos", authMiddleware.RequireAuth(h.ListTipos))
	mux.HandleFunc("GET /api/referencias/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT /api/referencias/{id}", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("DELETE /api/referencias/{id}", authMiddleware.RequireAuth(h.Delete))
	mux.HandleFunc("POST /api/referencias/{id}/link-articles-contexto", authMiddleware.RequireAuth(h.LinkArticles))
}

// List handles GET /api/referencias
func (h *ReferenciaHandler) List(w http.ResponseWriter, r *http.Request) {
	referencias, err := h.referencias.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if referencias == nil {
		referencias = []*models.Referencia{}
	}

	h.write(w, http.StatusOK, referencias)
}

// ListTipos handles GET /api/referencias/tipos
func (h *ReferenciaHandler) ListTipos(w http.ResponseWriter, r *http.Request) {
	tipos, err := h.referencias.ListTipos(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if tipos == nil {
		tipos = []*models.TipoReferencia{}
	}

	h.write(w, http.StatusOK, tipos)
}

// Get handles GET /api/referencias/{id}
func (h *ReferenciaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	referencia, err := h.referencias.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusOK, referencia)
}

// Create handles POST /api/referencias
func (h *ReferenciaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ReferenciaRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	referencia, err := h.referencias.Create(r.Context(), req.toInput())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusCreated, referencia)
}

// Update handles PUT /api/referencias/{id}
func (h *ReferenciaHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req ReferenciaRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	referencia, err := h.referencias.Update(r.Context(), id, req.toInput())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusOK, referencia)
}

// Delete handles DELETE /api/referencias/{id}
func (h *ReferenciaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.referencias.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusOK, map[string]bool{"success": true})
}

// LinkArticles handles POST /api/referencias/{id}/link-articles-contexto
func (h *ReferenciaHandler) LinkArticles(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req LinkArticlesRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	if len(req.ArticuloNumeros) == 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "bad_request", "articuloNumeros must not be empty"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	created, err := h.referencias.LinkArticlesContexto(r.Context(), id, req.ArticuloNumeros)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusOK, map[string]int{"created": created})
}

func (r ReferenciaRequest) toInput() services.ReferenciaInput {
	return services.ReferenciaInput{
		TipoReferenciaID: r.TipoReferenciaID,
		Numero:           r.Numero,
		Titulo:           r.Titulo,
		URLPrincipal:     r.URLPrincipal,
		URLNexus:         r.URLNexus,
		URLCatalogo:      r.URLCatalogo,
		URLRepositorio:   r.URLRepositorio,
		EsVerificada:     r.EsVerificada,
	}
}

func (h *ReferenciaHandler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if writeErr := ErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid referencia ID"); writeErr != nil {
			h.logger.Error("Failed to write error response", zap.Error(writeErr))
		}
		return uuid.Nil, false
	}
	return id, true
}

func (h *ReferenciaHandler) write(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, data); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
