package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/delfino-cr/reglamento-engine/pkg/models"
	"github.com/delfino-cr/reglamento-engine/pkg/services"
)

// ArticuloHandler serves the read-only article API the public pages
// consume. No authentication: the regulation text is public.
type ArticuloHandler struct {
	articulos services.ArticuloService
	logger    *zap.Logger
}

// NewArticuloHandler creates a new ArticuloHandler.
func NewArticuloHandler(articulos services.ArticuloService, logger *zap.Logger) *ArticuloHandler {
	return &ArticuloHandler{
		articulos: articulos,
		logger:    logger,
	}
}

// RegisterRoutes registers the article routes on the given mux.
func (h *ArticuloHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/articulos", h.List)
	mux.HandleFunc("GET /api/articulos/{numero}", h.Get)
	mux.HandleFunc("GET /api/tipos-anotacion", h.ListTipos)
}

// List handles GET /api/articulos?todos=true
func (h *ArticuloHandler) List(w http.ResponseWriter, r *http.Request) {
	soloVigentes := r.URL.Query().Get("todos") != "true"

	articulos, err := h.articulos.List(r.Context(), soloVigentes)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if articulos == nil {
		articulos = []*models.Articulo{}
	}

	h.write(w, http.StatusOK, articulos)
}

// Get handles GET /api/articulos/{numero} with the publishable
// annotations attached.
func (h *ArticuloHandler) Get(w http.ResponseWriter, r *http.Request) {
	numero := r.PathValue("numero")

	articulo, err := h.articulos.GetByNumero(r.Context(), numero)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusOK, articulo)
}

// ListTipos handles GET /api/tipos-anotacion
func (h *ArticuloHandler) ListTipos(w http.ResponseWriter, r *http.Request) {
	tipos, err := h.articulos.ListTiposAnotacion(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if tipos == nil {
		tipos = []*models.TipoAnotacion{}
	}

	h.write(w, http.StatusOK, tipos)
}

func (h *ArticuloHandler) write(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, data); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
