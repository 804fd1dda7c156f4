package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/delfino-cr/reglamento-engine/pkg/apperrors"
	"github.com/delfino-cr/reglamento-engine/pkg/database"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
)

// ArticuloRepository provides data access for regulation articles.
// Articles are seeded offline; the API only reads them.
type ArticuloRepository interface {
	GetByID(ctx context.Context, q database.Querier, id int) (*models.Articulo, error)
	GetByNumero(ctx context.Context, q database.Querier, numero string) (*models.Articulo, error)
	List(ctx context.Context, q database.Querier, soloVigentes bool) ([]*models.Articulo, error)
	Exists(ctx context.Context, q database.Querier, id int) (bool, error)
	// Upsert inserts or refreshes an article by numero. Used by the
	// offline seeder only.
	Upsert(ctx context.Context, q database.Querier, articulo *models.Articulo) error
}

type articuloRepository struct{}

// NewArticuloRepository creates a new ArticuloRepository.
func NewArticuloRepository() ArticuloRepository {
	return &articuloRepository{}
}

var _ ArticuloRepository = (*articuloRepository)(nil)

const articuloColumns = `id, numero, nombre, texto_legal, orden, es_vigente, created_at, updated_at`

func scanArticulo(row pgx.Row) (*models.Articulo, error) {
	var a models.Articulo
	err := row.Scan(
		&a.ID,
		&a.Numero,
		&a.Nombre,
		&a.TextoLegal,
		&a.Orden,
		&a.EsVigente,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan articulo: %w", err)
	}
	return &a, nil
}

func (r *articuloRepository) GetByID(ctx context.Context, q database.Querier, id int) (*models.Articulo, error) {
	query := `SELECT ` + articuloColumns + ` FROM articulos WHERE id = $1`
	return scanArticulo(q.QueryRow(ctx, query, id))
}

func (r *articuloRepository) GetByNumero(ctx context.Context, q database.Querier, numero string) (*models.Articulo, error) {
	query := `SELECT ` + articuloColumns + ` FROM articulos WHERE numero = $1`
	return scanArticulo(q.QueryRow(ctx, query, numero))
}

func (r *articuloRepository) List(ctx context.Context, q database.Querier, soloVigentes bool) ([]*models.Articulo, error) {
	query := `SELECT ` + articuloColumns + ` FROM articulos`
	if soloVigentes {
		query += ` WHERE es_vigente`
	}
	query += ` ORDER BY orden`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query articulos: %w", err)
	}
	defer rows.Close()

	var articulos []*models.Articulo
	for rows.Next() {
		a, err := scanArticulo(rows)
		if err != nil {
			return nil, err
		}
		articulos = append(articulos, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articulos: %w", err)
	}

	return articulos, nil
}

func (r *articuloRepository) Exists(ctx context.Context, q database.Querier, id int) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM articulos WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check articulo existence: %w", err)
	}
	return exists, nil
}

func (r *articuloRepository) Upsert(ctx context.Context, q database.Querier, articulo *models.Articulo) error {
	now := time.Now()

	query := `
		INSERT INTO articulos (numero, nombre, texto_legal, orden, es_vigente, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (numero) DO UPDATE
		SET nombre = EXCLUDED.nombre,
		    texto_legal = EXCLUDED.texto_legal,
		    orden = EXCLUDED.orden,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at`

	err := q.QueryRow(ctx, query,
		articulo.Numero,
		articulo.Nombre,
		articulo.TextoLegal,
		articulo.Orden,
		articulo.EsVigente,
		now,
	).Scan(&articulo.ID, &articulo.CreatedAt, &articulo.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert articulo %q: %w", articulo.Numero, err)
	}

	return nil
}
