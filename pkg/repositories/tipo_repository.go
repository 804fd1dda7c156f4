package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/delfino-cr/reglamento-engine/pkg/apperrors"
	"github.com/delfino-cr/reglamento-engine/pkg/database"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
)

// TipoRepository provides lookups over the seeded reference data
// (annotation and reference categories).
type TipoRepository interface {
	AnotacionTipoExists(ctx context.Context, q database.Querier, id int) (bool, error)
	ReferenciaTipoExists(ctx context.Context, q database.Querier, id int) (bool, error)
	GetTipoAnotacionByNombre(ctx context.Context, q database.Querier, nombre string) (*models.TipoAnotacion, error)
	ListTiposAnotacion(ctx context.Context, q database.Querier) ([]*models.TipoAnotacion, error)
	ListTiposReferencia(ctx context.Context, q database.Querier) ([]*models.TipoReferencia, error)
}

type tipoRepository struct{}

// NewTipoRepository creates a new TipoRepository.
func NewTipoRepository() TipoRepository {
	return &tipoRepository{}
}

var _ TipoRepository = (*tipoRepository)(nil)

func (r *tipoRepository) AnotacionTipoExists(ctx context.Context, q database.Querier, id int) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tipos_anotacion WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check tipo_anotacion existence: %w", err)
	}
	return exists, nil
}

func (r *tipoRepository) ReferenciaTipoExists(ctx context.Context, q database.Querier, id int) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tipos_referencia WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check tipo_referencia existence: %w", err)
	}
	return exists, nil
}

func (r *tipoRepository) GetTipoAnotacionByNombre(ctx context.Context, q database.Querier, nombre string) (*models.TipoAnotacion, error) {
	var tipo models.TipoAnotacion
	err := q.QueryRow(ctx,
		`SELECT id, nombre, color_hex, icono FROM tipos_anotacion WHERE nombre = $1`, nombre,
	).Scan(&tipo.ID, &tipo.Nombre, &tipo.ColorHex, &tipo.Icono)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tipo_anotacion %q: %w", nombre, err)
	}
	return &tipo, nil
}

func (r *tipoRepository) ListTiposAnotacion(ctx context.Context, q database.Querier) ([]*models.TipoAnotacion, error) {
	rows, err := q.Query(ctx, `SELECT id, nombre, color_hex, icono FROM tipos_anotacion ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tipos_anotacion: %w", err)
	}
	defer rows.Close()

	var tipos []*models.TipoAnotacion
	for rows.Next() {
		var tipo models.TipoAnotacion
		if err := rows.Scan(&tipo.ID, &tipo.Nombre, &tipo.ColorHex, &tipo.Icono); err != nil {
			return nil, fmt.Errorf("failed to scan tipo_anotacion: %w", err)
		}
		tipos = append(tipos, &tipo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tipos_anotacion: %w", err)
	}

	return tipos, nil
}

func (r *tipoRepository) ListTiposReferencia(ctx context.Context, q database.Querier) ([]*models.TipoReferencia, error) {
	rows, err := q.Query(ctx, `SELECT id, nombre, descripcion FROM tipos_referencia ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tipos_referencia: %w", err)
	}
	defer rows.Close()

	var tipos []*models.TipoReferencia
	for rows.Next() {
		var tipo models.TipoReferencia
		if err := rows.Scan(&tipo.ID, &tipo.Nombre, &tipo.Descripcion); err != nil {
			return nil, fmt.Errorf("failed to scan tipo_referencia: %w", err)
		}
		tipos = append(tipos, &tipo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tipos_referencia: %w", err)
	}

	return tipos, nil
}
