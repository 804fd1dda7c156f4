package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/delfino-cr/reglamento-engine/pkg/apperrors"
	"github.com/delfino-cr/reglamento-engine/pkg/database"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
)

// AnotacionFilter narrows List queries.
type AnotacionFilter struct {
	// ArticuloID restricts to one article when non-zero.
	ArticuloID int
	// SoloPendientes restricts to the review queue:
	// fuente_ia AND NOT es_aprobada AND es_visible.
	SoloPendientes bool
	// SoloPublicables restricts to publishable rows:
	// es_visible AND (NOT fuente_ia OR es_aprobada).
	SoloPublicables bool
}

// AnotacionRepository provides data access for annotations and their
// reference links. Mutating methods take a Querier so the service layer
// can compose them with the audit write in one transaction.
type AnotacionRepository interface {
	Insert(ctx context.Context, q database.Querier, a *models.Anotacion) error
	GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*models.Anotacion, error)
	// Update writes the mutable scalar columns of the given row.
	Update(ctx context.Context, q database.Querier, a *models.Anotacion) error
	Delete(ctx context.Context, q database.Querier, id uuid.UUID) error
	List(ctx context.Context, q database.Querier, filter AnotacionFilter) ([]*models.Anotacion, error)

	// ReplaceReferences deletes the annotation's link set and inserts
	// the given ids with orden = 1-based input position.
	ReplaceReferences(ctx context.Context, q database.Querier, anotacionID uuid.UUID, referenciaIDs []uuid.UUID) error
	ListReferences(ctx context.Context, q database.Querier, anotacionID uuid.UUID) ([]*models.AnotacionReferencia, error)

	// BulkApprove approves the ids still matching fuente_ia AND NOT
	// es_aprobada, stamping the approver. Returns the rows updated.
	BulkApprove(ctx context.Context, q database.Querier, ids []uuid.UUID, aprobadorID uuid.UUID, when time.Time) (int64, error)

	// MaxOrden returns the highest annotation orden for an article, 0
	// when the article has none.
	MaxOrden(ctx context.Context, q database.Querier, articuloID int) (int, error)
	// HasLinkToReferencia reports whether any annotation of the article
	// already cites the reference.
	HasLinkToReferencia(ctx context.Context, q database.Querier, articuloID int, referenciaID uuid.UUID) (bool, error)
}

type anotacionRepository struct{}

// NewAnotacionRepository creates a new AnotacionRepository.
func NewAnotacionRepository() AnotacionRepository {
	return &anotacionRepository{}
}

var _ AnotacionRepository = (*anotacionRepository)(nil)

const anotacionColumns = `a.id, a.articulo_id, a.tipo_anotacion_id, a.contenido, a.orden,
	a.es_visible, a.es_aprobada, a.fuente_ia,
	a.created_by_id, a.updated_by_id, a.aprobado_por_id, a.fecha_aprobacion,
	a.created_at, a.updated_at,
	t.id, t.nombre, t.color_hex, t.icono`

func scanAnotacion(row pgx.Row) (*models.Anotacion, error) {
	var a models.Anotacion
	var tipo models.TipoAnotacion

	err := row.Scan(
		&a.ID,
		&a.ArticuloID,
		&a.TipoAnotacionID,
		&a.Contenido,
		&a.Orden,
		&a.EsVisible,
		&a.EsAprobada,
		&a.FuenteIA,
		&a.CreatedByID,
		&a.UpdatedByID,
		&a.AprobadoPorID,
		&a.FechaAprobacion,
		&a.CreatedAt,
		&a.UpdatedAt,
		&tipo.ID,
		&tipo.Nombre,
		&tipo.ColorHex,
		&tipo.Icono,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan anotacion: %w", err)
	}

	a.TipoAnotacion = &tipo
	return &a, nil
}

func (r *anotacionRepository) Insert(ctx context.Context, q database.Querier, a *models.Anotacion) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `
		INSERT INTO anotaciones (
			id, articulo_id, tipo_anotacion_id, contenido, orden,
			es_visible, es_aprobada, fuente_ia,
			created_by_id, updated_by_id, aprobado_por_id, fecha_aprobacion,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := q.Exec(ctx, query,
		a.ID,
		a.ArticuloID,
		a.TipoAnotacionID,
		a.Contenido,
		a.Orden,
		a.EsVisible,
		a.EsAprobada,
		a.FuenteIA,
		a.CreatedByID,
		a.UpdatedByID,
		a.AprobadoPorID,
		a.FechaAprobacion,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert anotacion: %w", err)
	}

	return nil
}

func (r *anotacionRepository) GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*models.Anotacion, error) {
	query := `
		SELECT ` + anotacionColumns + `
		FROM anotaciones a
		JOIN tipos_anotacion t ON t.id = a.tipo_anotacion_id
		WHERE a.id = $1`

	return scanAnotacion(q.QueryRow(ctx, query, id))
}

func (r *anotacionRepository) Update(ctx context.Context, q database.Querier, a *models.Anotacion) error {
	a.UpdatedAt = time.Now()

	query := `
		UPDATE anotaciones
		SET tipo_anotacion_id = $1,
		    contenido = $2,
		    orden = $3,
		    es_visible = $4,
		    es_aprobada = $5,
		    updated_by_id = $6,
		    aprobado_por_id = $7,
		    fecha_aprobacion = $8,
		    updated_at = $9
		WHERE id = $10`

	result, err := q.Exec(ctx, query,
		a.TipoAnotacionID,
		a.Contenido,
		a.Orden,
		a.EsVisible,
		a.EsAprobada,
		a.UpdatedByID,
		a.AprobadoPorID,
		a.FechaAprobacion,
		a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update anotacion: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *anotacionRepository) Delete(ctx context.Context, q database.Querier, id uuid.UUID) error {
	// anotacion_referencias rows go with it (ON DELETE CASCADE).
	result, err := q.Exec(ctx, `DELETE FROM anotaciones WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete anotacion: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *anotacionRepository) List(ctx context.Context, q database.Querier, filter AnotacionFilter) ([]*models.Anotacion, error) {
	query := `
		SELECT ` + anotacionColumns + `
		FROM anotaciones a
		JOIN tipos_anotacion t ON t.id = a.tipo_anotacion_id
		WHERE 1=1`

	var args []any
	if filter.ArticuloID != 0 {
		args = append(args, filter.ArticuloID)
		query += fmt.Sprintf(" AND a.articulo_id = $%d", len(args))
	}
	if filter.SoloPendientes {
		query += ` AND a.fuente_ia AND NOT a.es_aprobada AND a.es_visible`
	}
	if filter.SoloPublicables {
		query += ` AND a.es_visible AND (NOT a.fuente_ia OR a.es_aprobada)`
	}
	query += ` ORDER BY a.articulo_id, a.orden, a.updated_at`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query anotaciones: %w", err)
	}
	defer rows.Close()

	var anotaciones []*models.Anotacion
	for rows.Next() {
		a, err := scanAnotacion(rows)
		if err != nil {
			return nil, err
		}
		anotaciones = append(anotaciones, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating anotaciones: %w", err)
	}

	return anotaciones, nil
}

func (r *anotacionRepository) ReplaceReferences(ctx context.Context, q database.Querier, anotacionID uuid.UUID, referenciaIDs []uuid.UUID) error {
	if _, err := q.Exec(ctx, `DELETE FROM anotacion_referencias WHERE anotacion_id = $1`, anotacionID); err != nil {
		return fmt.Errorf("failed to clear anotacion references: %w", err)
	}

	for idx, refID := range referenciaIDs {
		_, err := q.Exec(ctx,
			`INSERT INTO anotacion_referencias (anotacion_id, referencia_id, orden) VALUES ($1, $2, $3)`,
			anotacionID, refID, idx+1,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("referencia %s: %w", refID, apperrors.ErrNotFound)
			}
			return fmt.Errorf("failed to insert anotacion reference: %w", err)
		}
	}

	return nil
}

func (r *anotacionRepository) ListReferences(ctx context.Context, q database.Querier, anotacionID uuid.UUID) ([]*models.AnotacionReferencia, error) {
	query := `
		SELECT ar.anotacion_id, ar.referencia_id, ar.orden, ` + referenciaColumns + `
		FROM anotacion_referencias ar
		JOIN referencias r ON r.id = ar.referencia_id
		JOIN tipos_referencia t ON t.id = r.tipo_referencia_id
		WHERE ar.anotacion_id = $1
		ORDER BY ar.orden`

	rows, err := q.Query(ctx, query, anotacionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query anotacion references: %w", err)
	}
	defer rows.Close()

	var links []*models.AnotacionReferencia
	for rows.Next() {
		var link models.AnotacionReferencia
		var ref models.Referencia
		var tipo models.TipoReferencia

		err := rows.Scan(
			&link.AnotacionID,
			&link.ReferenciaID,
			&link.Orden,
			&ref.ID,
			&ref.TipoReferenciaID,
			&ref.Numero,
			&ref.Titulo,
			&ref.URLPrincipal,
			&ref.URLNexus,
			&ref.URLCatalogo,
			&ref.URLRepositorio,
			&ref.EsVerificada,
			&ref.VerificadoPorID,
			&ref.FechaVerificacion,
			&ref.CreatedAt,
			&ref.UpdatedAt,
			&tipo.ID,
			&tipo.Nombre,
			&tipo.Descripcion,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan anotacion reference: %w", err)
		}

		ref.TipoReferencia = &tipo
		link.Referencia = &ref
		links = append(links, &link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating anotacion references: %w", err)
	}

	return links, nil
}

func (r *anotacionRepository) BulkApprove(ctx context.Context, q database.Querier, ids []uuid.UUID, aprobadorID uuid.UUID, when time.Time) (int64, error) {
	query := `
		UPDATE anotaciones
		SET es_aprobada = TRUE,
		    aprobado_por_id = $1,
		    fecha_aprobacion = $2,
		    updated_at = $2
		WHERE id = ANY($3) AND fuente_ia AND NOT es_aprobada`

	result, err := q.Exec(ctx, query, aprobadorID, when, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk approve anotaciones: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *anotacionRepository) MaxOrden(ctx context.Context, q database.Querier, articuloID int) (int, error) {
	var maxOrden int
	err := q.QueryRow(ctx,
		`SELECT COALESCE(MAX(orden), 0) FROM anotaciones WHERE articulo_id = $1`, articuloID,
	).Scan(&maxOrden)
	if err != nil {
		return 0, fmt.Errorf("failed to get max orden: %w", err)
	}
	return maxOrden, nil
}

func (r *anotacionRepository) HasLinkToReferencia(ctx context.Context, q database.Querier, articuloID int, referenciaID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM anotaciones a
			JOIN anotacion_referencias ar ON ar.anotacion_id = a.id
			WHERE a.articulo_id = $1 AND ar.referencia_id = $2
		)`, articuloID, referenciaID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check reference link: %w", err)
	}
	return exists, nil
}
