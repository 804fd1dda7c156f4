package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/delfino-cr/reglamento-engine/pkg/apperrors"
	"github.com/delfino-cr/reglamento-engine/pkg/auth"
	"github.com/delfino-cr/reglamento-engine/pkg/database"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
	"github.com/delfino-cr/reglamento-engine/pkg/repositories"
)

// ReferenciaInput carries the full reference payload. Create and Update
// both take the whole row (PUT semantics); empty URL strings store as
// NULL.
type ReferenciaInput struct {
	TipoReferenciaID int
	Numero           string
	Titulo           string
	URLPrincipal     string
	URLNexus         string
	URLCatalogo      string
	URLRepositorio   string
	EsVerificada     bool
}

// ReferenciaService manages the external citation catalog and the
// bulk context-linking flow that attaches a citation to many articles.
type ReferenciaService interface {
	Create(ctx context.Context, input ReferenciaInput) (*models.Referencia, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Referencia, error)
	Update(ctx context.Context, id uuid.UUID, input ReferenciaInput) (*models.Referencia, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*models.Referencia, error)
	ListTipos(ctx context.Context) ([]*models.TipoReferencia, error)

	// LinkArticlesContexto creates one pre-approved "Contexto"
	// annotation citing the reference on each named article, skipping
	// articles that are missing or already cite it. Returns how many
	// annotations were created.
	LinkArticlesContexto(ctx context.Context, referenciaID uuid.UUID, articuloNumeros []string) (int, error)
}

type referenciaService struct {
	db         *database.DB
	refs       repositories.ReferenciaRepository
	tipos      repositories.TipoRepository
	articulos  repositories.ArticuloRepository
	anotacions repositories.AnotacionRepository
	audit      repositories.AuditRepository
	logger     *zap.Logger
}

// NewReferenciaService creates a new ReferenciaService.
func NewReferenciaService(
	db *database.DB,
	refs repositories.ReferenciaRepository,
	tipos repositories.TipoRepository,
	articulos repositories.ArticuloRepository,
	anotacions repositories.AnotacionRepository,
	audit repositories.AuditRepository,
	logger *zap.Logger,
) ReferenciaService {
	return &referenciaService{
		db:         db,
		refs:       refs,
		tipos:      tipos,
		articulos:  articulos,
		anotacions: anotacions,
		audit:      audit,
		logger:     logger,
	}
}

var _ ReferenciaService = (*referenciaService)(nil)

func (s *referenciaService) Create(ctx context.Context, input ReferenciaInput) (*models.Referencia, error) {
	actorID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}

	ref := s.buildRow(input, actorID, nil)

	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.refs.Insert(ctx, tx, ref); err != nil {
			return err
		}

		entry := newAuditEntry(ctx, actorID, models.AuditActionCreate, models.AuditEntityReferencias, ref.ID.String())
		entry.NewValues = referenciaAuditValues(ref)
		return s.audit.Create(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Created referencia",
		zap.String("referencia_id", ref.ID.String()),
		zap.String("numero", ref.Numero))

	return s.refs.GetByID(ctx, s.db.Pool, ref.ID)
}

func (s *referenciaService) validate(ctx context.Context, input ReferenciaInput) error {
	verr := &apperrors.ValidationError{}

	if strings.TrimSpace(input.Numero) == "" {
		verr.Add("numero", "must not be empty")
	}

	exists, err := s.tipos.ReferenciaTipoExists(ctx, s.db.Pool, input.TipoReferenciaID)
	if err != nil {
		return err
	}
	if !exists {
		verr.Add("tipoReferenciaId", fmt.Sprintf("tipo %d does not exist", input.TipoReferenciaID))
	}

	if verr.HasIssues() {
		return verr
	}
	return nil
}

// buildRow maps an input onto a row, stamping the verifier only when
// verification is newly granted. existing is nil on create.
func (s *referenciaService) buildRow(input ReferenciaInput, actorID uuid.UUID, existing *models.Referencia) *models.Referencia {
	ref := &models.Referencia{
		TipoReferenciaID: input.TipoReferenciaID,
		Numero:           input.Numero,
		Titulo:           nilIfEmpty(input.Titulo),
		URLPrincipal:     nilIfEmpty(input.URLPrincipal),
		URLNexus:         nilIfEmpty(input.URLNexus),
		URLCatalogo:      nilIfEmpty(input.URLCatalogo),
		URLRepositorio:   nilIfEmpty(input.URLRepositorio),
		EsVerificada:     input.EsVerificada,
	}

	if existing != nil {
		ref.ID = existing.ID
		ref.CreatedAt = existing.CreatedAt
	}

	if input.EsVerificada {
		if existing != nil && existing.EsVerificada {
			// Already verified, keep the original verifier.
			ref.VerificadoPorID = existing.VerificadoPorID
			ref.FechaVerificacion = existing.FechaVerificacion
		} else {
			now := time.Now()
			ref.VerificadoPorID = &actorID
			ref.FechaVerificacion = &now
		}
	}

	return ref
}

func (s *referenciaService) GetByID(ctx context.Context, id uuid.UUID) (*models.Referencia, error) {
	return s.refs.GetByID(ctx, s.db.Pool, id)
}

func (s *referenciaService) Update(ctx context.Context, id uuid.UUID, input ReferenciaInput) (*models.Referencia, error) {
	actorID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.refs.GetByID(ctx, s.db.Pool, id)
	if err != nil {
		return nil, err
	}

	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}

	updated := s.buildRow(input, actorID, existing)
	previous, changed := referenciaDiff(existing, updated)

	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.refs.Update(ctx, tx, updated); err != nil {
			return err
		}

		entry := newAuditEntry(ctx, actorID, models.AuditActionUpdate, models.AuditEntityReferencias, id.String())
		entry.PreviousValues = previous
		entry.NewValues = referenciaAuditValues(updated)
		entry.ChangedFields = changed
		return s.audit.Create(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	return s.refs.GetByID(ctx, s.db.Pool, id)
}

func (s *referenciaService) Delete(ctx context.Context, id uuid.UUID) error {
	actorID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return err
	}

	existing, err := s.refs.GetByID(ctx, s.db.Pool, id)
	if err != nil {
		return err
	}

	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.refs.Delete(ctx, tx, id); err != nil {
			return err
		}

		entry := newAuditEntry(ctx, actorID, models.AuditActionDelete, models.AuditEntityReferencias, id.String())
		entry.PreviousValues = map[string]any{
			"tipoReferenciaId": existing.TipoReferenciaID,
			"numero":           existing.Numero,
			"titulo":           existing.Titulo,
		}
		return s.audit.Create(ctx, tx, entry)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Deleted referencia", zap.String("referencia_id", id.String()))
	return nil
}

func (s *referenciaService) List(ctx context.Context) ([]*models.Referencia, error) {
	return s.refs.List(ctx, s.db.Pool)
}

func (s *referenciaService) ListTipos(ctx context.Context) ([]*models.TipoReferencia, error) {
	return s.tipos.ListTiposReferencia(ctx, s.db.Pool)
}

func (s *referenciaService) LinkArticlesContexto(ctx context.Context, referenciaID uuid.UUID, articuloNumeros []string) (int, error) {
	actorID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return 0, err
	}

	ref, err := s.refs.GetByID(ctx, s.db.Pool, referenciaID)
	if err != nil {
		return 0, err
	}

	tipoContexto, err := s.tipos.GetTipoAnotacionByNombre(ctx, s.db.Pool, models.TipoContextoNombre)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve contexto tipo: %w", err)
	}

	created := 0
	for _, numero := range articuloNumeros {
		articulo, err := s.articulos.GetByNumero(ctx, s.db.Pool, numero)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				s.logger.Warn("Skipping unknown articulo during context linking",
					zap.String("numero", numero))
				continue
			}
			return created, err
		}

		linked, err := s.anotacions.HasLinkToReferencia(ctx, s.db.Pool, articulo.ID, referenciaID)
		if err != nil {
			return created, err
		}
		if linked {
			continue
		}

		if err := s.createContextoAnotacion(ctx, actorID, ref, tipoContexto, articulo); err != nil {
			return created, err
		}
		created++
	}

	s.logger.Info("Linked referencia to articles",
		zap.String("referencia_id", referenciaID.String()),
		zap.Int("requested", len(articuloNumeros)),
		zap.Int("created", created))

	return created, nil
}

func (s *referenciaService) createContextoAnotacion(
	ctx context.Context,
	actorID uuid.UUID,
	ref *models.Referencia,
	tipoContexto *models.TipoAnotacion,
	articulo *models.Articulo,
) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		maxOrden, err := s.anotacions.MaxOrden(ctx, tx, articulo.ID)
		if err != nil {
			return err
		}

		now := time.Now()
		anotacion := &models.Anotacion{
			ArticuloID:      articulo.ID,
			TipoAnotacionID: tipoContexto.ID,
			Contenido:       contextoContenido(ref),
			Orden:           maxOrden + 1,
			EsVisible:       true,
			EsAprobada:      true,
			CreatedByID:     actorID,
			AprobadoPorID:   &actorID,
			FechaAprobacion: &now,
		}

		if err := s.anotacions.Insert(ctx, tx, anotacion); err != nil {
			return err
		}

		if err := s.anotacions.ReplaceReferences(ctx, tx, anotacion.ID, []uuid.UUID{ref.ID}); err != nil {
			return err
		}

		entry := newAuditEntry(ctx, actorID, models.AuditActionCreate, models.AuditEntityAnotaciones, anotacion.ID.String())
		entry.NewValues = anotacionAuditValues(anotacion, []uuid.UUID{ref.ID})
		return s.audit.Create(ctx, tx, entry)
	})
}

// contextoContenido renders the canned annotation body for a citation.
func contextoContenido(ref *models.Referencia) string {
	tipoNombre := ""
	if ref.TipoReferencia != nil {
		tipoNombre = ref.TipoReferencia.Nombre
	}

	contenido := fmt.Sprintf("<p><strong>%s: %s</strong></p>", tipoNombre, ref.Numero)
	if ref.Titulo != nil && *ref.Titulo != "" {
		contenido += fmt.Sprintf("<p>%s</p>", *ref.Titulo)
	}
	return contenido
}

func referenciaAuditValues(ref *models.Referencia) map[string]any {
	return map[string]any{
		"tipoReferenciaId": ref.TipoReferenciaID,
		"numero":           ref.Numero,
		"titulo":           ref.Titulo,
		"urlPrincipal":     ref.URLPrincipal,
		"urlNexus":         ref.URLNexus,
		"urlCatalogo":      ref.URLCatalogo,
		"urlRepositorio":   ref.URLRepositorio,
		"esVerificada":     ref.EsVerificada,
	}
}

// referenciaDiff returns the previous values of the fields that changed
// and their names, in audit payload shape.
func referenciaDiff(before, after *models.Referencia) (map[string]any, []string) {
	previous := map[string]any{}
	var changed []string

	record := func(field string, value any) {
		previous[field] = value
		changed = append(changed, field)
	}

	if before.TipoReferenciaID != after.TipoReferenciaID {
		record("tipoReferenciaId", before.TipoReferenciaID)
	}
	if before.Numero != after.Numero {
		record("numero", before.Numero)
	}
	if !equalStringPtr(before.Titulo, after.Titulo) {
		record("titulo", before.Titulo)
	}
	if !equalStringPtr(before.URLPrincipal, after.URLPrincipal) {
		record("urlPrincipal", before.URLPrincipal)
	}
	if !equalStringPtr(before.URLNexus, after.URLNexus) {
		record("urlNexus", before.URLNexus)
	}
	if !equalStringPtr(before.URLCatalogo, after.URLCatalogo) {
		record("urlCatalogo", before.URLCatalogo)
	}
	if !equalStringPtr(before.URLRepositorio, after.URLRepositorio) {
		record("urlRepositorio", before.URLRepositorio)
	}
	if before.EsVerificada != after.EsVerificada {
		record("esVerificada", before.EsVerificada)
	}

	return previous, changed
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func nilIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
