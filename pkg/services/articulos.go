package services

import (
	"context"

	"github.com/delfino-cr/reglamento-engine/pkg/database"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
	"github.com/delfino-cr/reglamento-engine/pkg/repositories"
)

// ArticuloService is the read side the public article pages consume.
// Articles are seeded offline and never mutated through the API.
type ArticuloService interface {
	List(ctx context.Context, soloVigentes bool) ([]*models.Articulo, error)
	// GetByNumero returns the article with its publishable annotations
	// (human-authored or approved, and visible) and their references.
	GetByNumero(ctx context.Context, numero string) (*models.Articulo, error)
	ListTiposAnotacion(ctx context.Context) ([]*models.TipoAnotacion, error)
}

type articuloService struct {
	db         *database.DB
	articulos  repositories.ArticuloRepository
	anotacions repositories.AnotacionRepository
	tipos      repositories.TipoRepository
}

// NewArticuloService creates a new ArticuloService.
func NewArticuloService(
	db *database.DB,
	articulos repositories.ArticuloRepository,
	anotacions repositories.AnotacionRepository,
	tipos repositories.TipoRepository,
) ArticuloService {
	return &articuloService{
		db:         db,
		articulos:  articulos,
		anotacions: anotacions,
		tipos:      tipos,
	}
}

var _ ArticuloService = (*articuloService)(nil)

func (s *articuloService) List(ctx context.Context, soloVigentes bool) ([]*models.Articulo, error) {
	return s.articulos.List(ctx, s.db.Pool, soloVigentes)
}

func (s *articuloService) GetByNumero(ctx context.Context, numero string) (*models.Articulo, error) {
	articulo, err := s.articulos.GetByNumero(ctx, s.db.Pool, numero)
	if err != nil {
		return nil, err
	}

	anotaciones, err := s.anotacions.List(ctx, s.db.Pool, repositories.AnotacionFilter{
		ArticuloID:      articulo.ID,
		SoloPublicables: true,
	})
	if err != nil {
		return nil, err
	}

	for _, a := range anotaciones {
		links, err := s.anotacions.ListReferences(ctx, s.db.Pool, a.ID)
		if err != nil {
			return nil, err
		}
		a.Referencias = links
	}

	articulo.Anotaciones = anotaciones
	return articulo, nil
}

func (s *articuloService) ListTiposAnotacion(ctx context.Context) ([]*models.TipoAnotacion, error) {
	return s.tipos.ListTiposAnotacion(ctx, s.db.Pool)
}
