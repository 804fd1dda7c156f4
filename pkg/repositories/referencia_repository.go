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

// ReferenciaRepository provides data access for external citations.
type ReferenciaRepository interface {
	// Insert creates a reference. Returns ErrConflict when
	// (tipo_referencia_id, numero) already exists.
	Insert(ctx context.Context, q database.Querier, ref *models.Referencia) error
	GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*models.Referencia, error)
	// Update writes all mutable columns of the given row.
	Update(ctx context.Context, q database.Querier, ref *models.Referencia) error
	Delete(ctx context.Context, q database.Querier, id uuid.UUID) error
	// List returns all references with their type joined, ordered by
	// type then numero.
	List(ctx context.Context, q database.Querier) ([]*models.Referencia, error)
	Exists(ctx context.Context, q database.Querier, id uuid.UUID) (bool, error)
}

type referenciaRepository struct{}

// NewReferenciaRepository creates a new ReferenciaRepository.
func NewReferenciaRepository() ReferenciaRepository {
	return &referenciaRepository{}
}

var _ ReferenciaRepository = (*referenciaRepository)(nil)

const referenciaColumns = `r.id, r.tipo_referencia_id, r.numero, r.titulo,
	r.url_principal, r.url_nexus, r.url_catalogo, r.url_repositorio,
	r.es_verificada, r.verificado_por_id, r.fecha_verificacion,
	r.created_at, r.updated_at,
	t.id, t.nombre, t.descripcion`

func scanReferencia(row pgx.Row) (*models.Referencia, error) {
	var ref models.Referencia
	var tipo models.TipoReferencia

	err := row.Scan(
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
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan referencia: %w", err)
	}

	ref.TipoReferencia = &tipo
	return &ref, nil
}

func (r *referenciaRepository) Insert(ctx context.Context, q database.Querier, ref *models.Referencia) error {
	if ref.ID == uuid.Nil {
		ref.ID = uuid.New()
	}
	now := time.Now()
	ref.CreatedAt = now
	ref.UpdatedAt = now

	query := `
		INSERT INTO referencias (
			id, tipo_referencia_id, numero, titulo,
			url_principal, url_nexus, url_catalogo, url_repositorio,
			es_verificada, verificado_por_id, fecha_verificacion,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := q.Exec(ctx, query,
		ref.ID,
		ref.TipoReferenciaID,
		ref.Numero,
		ref.Titulo,
		ref.URLPrincipal,
		ref.URLNexus,
		ref.URLCatalogo,
		ref.URLRepositorio,
		ref.EsVerificada,
		ref.VerificadoPorID,
		ref.FechaVerificacion,
		ref.CreatedAt,
		ref.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("referencia %q already exists for this type: %w", ref.Numero, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to insert referencia: %w", err)
	}

	return nil
}

func (r *referenciaRepository) GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*models.Referencia, error) {
	query := `
		SELECT ` + referenciaColumns + `
		FROM referencias r
		JOIN tipos_referencia t ON t.id = r.tipo_referencia_id
		WHERE r.id = $1`

	return scanReferencia(q.QueryRow(ctx, query, id))
}

func (r *referenciaRepository) Update(ctx context.Context, q database.Querier, ref *models.Referencia) error {
	ref.UpdatedAt = time.Now()

	query := `
		UPDATE referencias
		SET tipo_referencia_id = $1,
		    numero = $2,
		    titulo = $3,
		    url_principal = $4,
		    url_nexus = $5,
		    url_catalogo = $6,
		    url_repositorio = $7,
		    es_verificada = $8,
		    verificado_por_id = $9,
		    fecha_verificacion = $10,
		    updated_at = $11
		WHERE id = $12`

	result, err := q.Exec(ctx, query,
		ref.TipoReferenciaID,
		ref.Numero,
		ref.Titulo,
		ref.URLPrincipal,
		ref.URLNexus,
		ref.URLCatalogo,
		ref.URLRepositorio,
		ref.EsVerificada,
		ref.VerificadoPorID,
		ref.FechaVerificacion,
		ref.UpdatedAt,
		ref.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("referencia %q already exists for this type: %w", ref.Numero, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to update referencia: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *referenciaRepository) Delete(ctx context.Context, q database.Querier, id uuid.UUID) error {
	result, err := q.Exec(ctx, `DELETE FROM referencias WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete referencia: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *referenciaRepository) List(ctx context.Context, q database.Querier) ([]*models.Referencia, error) {
	query := `
		SELECT ` + referenciaColumns + `
		FROM referencias r
		JOIN tipos_referencia t ON t.id = r.tipo_referencia_id
		ORDER BY r.tipo_referencia_id, r.numero`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query referencias: %w", err)
	}
	defer rows.Close()

	var refs []*models.Referencia
	for rows.Next() {
		ref, err := scanReferencia(rows)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating referencias: %w", err)
	}

	return refs, nil
}

func (r *referenciaRepository) Exists(ctx context.Context, q database.Querier, id uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM referencias WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check referencia existence: %w", err)
	}
	return exists, nil
}
