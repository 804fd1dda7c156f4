package services

import (
	"context"
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

// CreateAnotacionInput carries the fields accepted when creating an
// annotation. EsVisible defaults to true when nil.
type CreateAnotacionInput struct {
	ArticuloID      int
	TipoAnotacionID int
	Contenido       string
	Orden           int
	EsVisible       *bool
	FuenteIA        bool
	ReferenciaIDs   []uuid.UUID
}

// UpdateAnotacionInput carries a partial update. Nil fields stay
// untouched; a non-nil ReferenciaIDs replaces the whole link set.
type UpdateAnotacionInput struct {
	TipoAnotacionID *int
	Contenido       *string
	Orden           *int
	EsVisible       *bool
	ReferenciaIDs   *[]uuid.UUID
}

// AnotacionService implements the annotation workflow: authoring,
// review of AI-sourced entries, and the audit trail every mutation
// leaves behind. Each mutation and its audit entry commit in one
// transaction.
type AnotacionService interface {
	Create(ctx context.Context, input CreateAnotacionInput) (*models.Anotacion, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Anotacion, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateAnotacionInput) (*models.Anotacion, error)
	SetApproval(ctx context.Context, id uuid.UUID, aprobada bool) (*models.Anotacion, error)
	SetVisibility(ctx context.Context, id uuid.UUID, visible bool) (*models.Anotacion, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// BulkApprove approves every id still pending review and returns
	// how many rows changed. A repeat call returns 0.
	BulkApprove(ctx context.Context, ids []uuid.UUID) (int64, error)
	List(ctx context.Context, filter repositories.AnotacionFilter) ([]*models.Anotacion, error)
}

type anotacionService struct {
	db         *database.DB
	anotacions repositories.AnotacionRepository
	articulos  repositories.ArticuloRepository
	tipos      repositories.TipoRepository
	refs       repositories.ReferenciaRepository
	audit      repositories.AuditRepository
	logger     *zap.Logger
}

// NewAnotacionService creates a new AnotacionService.
func NewAnotacionService(
	db *database.DB,
	anotacions repositories.AnotacionRepository,
	articulos repositories.ArticuloRepository,
	tipos repositories.TipoRepository,
	refs repositories.ReferenciaRepository,
	audit repositories.AuditRepository,
	logger *zap.Logger,
) AnotacionService {
	return &anotacionService{
		db:         db,
		anotacions: anotacions,
		articulos:  articulos,
		tipos:      tipos,
		refs:       refs,
		audit:      audit,
		logger:     logger,
	}
}

var _ AnotacionService = (*anotacionService)(nil)

func (s *anotacionService) Create(ctx context.Context, input CreateAnotacionInput) (*models.Anotacion, error) {
	actorID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validateCreate(ctx, input); err != nil {
		return nil, err
	}

	esVisible := true
	if input.EsVisible != nil {
		esVisible = *input.EsVisible
	}

	anotacion := &models.Anotacion{
		ArticuloID:      input.ArticuloID,
		TipoAnotacionID: input.TipoAnotacionID,
		Contenido:       input.Contenido,
		Orden:           input.Orden,
		EsVisible:       esVisible,
		FuenteIA:        input.FuenteIA,
		CreatedByID:     actorID,
	}

	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.anotacions.Insert(ctx, tx, anotacion); err != nil {
			return err
		}

		if len(input.ReferenciaIDs) > 0 {
			if err := s.anotacions.ReplaceReferences(ctx, tx, anotacion.ID, input.ReferenciaIDs); err != nil {
				return err
			}
		}

		entry := newAuditEntry(ctx, actorID, models.AuditActionCreate, models.AuditEntityAnotaciones, anotacion.ID.String())
		entry.NewValues = anotacionAuditValues(anotacion, input.ReferenciaIDs)
		return s.audit.Create(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Created anotacion",
		zap.String("anotacion_id", anotacion.ID.String()),
		zap.Int("articulo_id", anotacion.ArticuloID))

	return s.loadWithReferences(ctx, anotacion.ID)
}

func (s *anotacionService) validateCreate(ctx context.Context, input CreateAnotacionInput) error {
	verr := &apperrors.ValidationError{}

	if strings.TrimSpace(input.Contenido) == "" {
		verr.Add("contenido", "must not be empty")
	}

	exists, err := s.articulos.Exists(ctx, s.db.Pool, input.ArticuloID)
	if err != nil {
		return err
	}
	if !exists {
		verr.Add("articuloId", fmt.Sprintf("articulo %d does not exist", input.ArticuloID))
	}

	tipoExists, err := s.tipos.AnotacionTipoExists(ctx, s.db.Pool, input.TipoAnotacionID)
	if err != nil {
		return err
	}
	if !tipoExists {
		verr.Add("tipoAnotacionId", fmt.Sprintf("tipo %d does not exist", input.TipoAnotacionID))
	}

	if err := s.validateReferencias(ctx, input.ReferenciaIDs, verr); err != nil {
		return err
	}

	if verr.HasIssues() {
		return verr
	}
	return nil
}

func (s *anotacionService) validateReferencias(ctx context.Context, ids []uuid.UUID, verr *apperrors.ValidationError) error {
	for _, refID := range ids {
		exists, err := s.refs.Exists(ctx, s.db.Pool, refID)
		if err != nil {
			return err
		}
		if !exists {
			verr.Add("referenciaIds", fmt.Sprintf("referencia %s does not exist", refID))
		}
	}
	return nil
}

func (s *anotacionService) GetByID(ctx context.Context, id uuid.UUID) (*models.Anotacion, error) {
	return s.loadWithReferences(ctx, id)
}

func (s *anotacionService) Update(ctx context.Context, id uuid.UUID, input UpdateAnotacionInput) (*models.Anotacion, error) {
	actorID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.anotacions.GetByID(ctx, s.db.Pool, id)
	if err != nil {
		return nil, err
	}

	verr := &apperrors.ValidationError{}
	previous := map[string]any{}
	var changed []string

	if input.TipoAnotacionID != nil && *input.TipoAnotacionID != existing.TipoAnotacionID {
		tipoExists, err := s.tipos.AnotacionTipoExists(ctx, s.db.Pool, *input.TipoAnotacionID)
		if err != nil {
			return nil, err
		}
		if !tipoExists {
			verr.Add("tipoAnotacionId", fmt.Sprintf("tipo %d does not exist", *input.TipoAnotacionID))
		} else {
			previous["tipoAnotacionId"] = existing.TipoAnotacionID
			existing.TipoAnotacionID = *input.TipoAnotacionID
			changed = append(changed, "tipoAnotacionId")
		}
	}

	if input.Contenido != nil && *input.Contenido != existing.Contenido {
		if strings.TrimSpace(*input.Contenido) == "" {
			verr.Add("contenido", "must not be empty")
		} else {
			previous["contenido"] = existing.Contenido
			existing.Contenido = *input.Contenido
			changed = append(changed, "contenido")
		}
	}

	if input.Orden != nil && *input.Orden != existing.Orden {
		previous["orden"] = existing.Orden
		existing.Orden = *input.Orden
		changed = append(changed, "orden")
	}

	if input.EsVisible != nil && *input.EsVisible != existing.EsVisible {
		previous["esVisible"] = existing.EsVisible
		existing.EsVisible = *input.EsVisible
		changed = append(changed, "esVisible")
	}

	if input.ReferenciaIDs != nil {
		if err := s.validateReferencias(ctx, *input.ReferenciaIDs, verr); err != nil {
			return nil, err
		}
	}

	if verr.HasIssues() {
		return nil, verr
	}

	existing.UpdatedByID = &actorID

	var newRefIDs []uuid.UUID
	if input.ReferenciaIDs != nil {
		newRefIDs = *input.ReferenciaIDs
		changed = append(changed, "referencias")
	}

	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.anotacions.Update(ctx, tx, existing); err != nil {
			return err
		}

		if input.ReferenciaIDs != nil {
			if err := s.anotacions.ReplaceReferences(ctx, tx, existing.ID, newRefIDs); err != nil {
				return err
			}
		}

		entry := newAuditEntry(ctx, actorID, models.AuditActionUpdate, models.AuditEntityAnotaciones, existing.ID.String())
		entry.PreviousValues = previous
		entry.NewValues = anotacionAuditValues(existing, newRefIDs)
		entry.ChangedFields = changed
		return s.audit.Create(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	return s.loadWithReferences(ctx, existing.ID)
}

func (s *anotacionService) SetApproval(ctx context.Context, id uuid.UUID, aprobada bool) (*models.Anotacion, error) {
	actorID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.anotacions.GetByID(ctx, s.db.Pool, id)
	if err != nil {
		return nil, err
	}

	previous := map[string]any{"esAprobada": existing.EsAprobada}

	existing.EsAprobada = aprobada
	existing.UpdatedByID = &actorID
	if aprobada {
		now := time.Now()
		existing.AprobadoPorID = &actorID
		existing.FechaAprobacion = &now
	} else {
		existing.AprobadoPorID = nil
		existing.FechaAprobacion = nil
	}

	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.anotacions.Update(ctx, tx, existing); err != nil {
			return err
		}

		entry := newAuditEntry(ctx, actorID, models.AuditActionUpdate, models.AuditEntityAnotaciones, existing.ID.String())
		entry.PreviousValues = previous
		entry.NewValues = map[string]any{"esAprobada": aprobada}
		entry.ChangedFields = []string{"esAprobada"}
		return s.audit.Create(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Set anotacion approval",
		zap.String("anotacion_id", id.String()),
		zap.Bool("aprobada", aprobada))

	return s.loadWithReferences(ctx, id)
}

func (s *anotacionService) SetVisibility(ctx context.Context, id uuid.UUID, visible bool) (*models.Anotacion, error) {
	actorID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.anotacions.GetByID(ctx, s.db.Pool, id)
	if err != nil {
		return nil, err
	}

	previous := map[string]any{"esVisible": existing.EsVisible}

	existing.EsVisible = visible
	existing.UpdatedByID = &actorID

	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.anotacions.Update(ctx, tx, existing); err != nil {
			return err
		}

		entry := newAuditEntry(ctx, actorID, models.AuditActionUpdate, models.AuditEntityAnotaciones, existing.ID.String())
		entry.PreviousValues = previous
		entry.NewValues = map[string]any{"esVisible": visible}
		entry.ChangedFields = []string{"esVisible"}
		return s.audit.Create(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	return s.loadWithReferences(ctx, id)
}

func (s *anotacionService) Delete(ctx context.Context, id uuid.UUID) error {
	actorID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return err
	}

	// Look the row up first so a missing id returns NotFound without
	// leaving an audit entry behind.
	existing, err := s.anotacions.GetByID(ctx, s.db.Pool, id)
	if err != nil {
		return err
	}

	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.anotacions.Delete(ctx, tx, id); err != nil {
			return err
		}

		entry := newAuditEntry(ctx, actorID, models.AuditActionDelete, models.AuditEntityAnotaciones, id.String())
		entry.PreviousValues = map[string]any{
			"articuloId":      existing.ArticuloID,
			"tipoAnotacionId": existing.TipoAnotacionID,
			"contenido":       existing.Contenido,
			"orden":           existing.Orden,
		}
		return s.audit.Create(ctx, tx, entry)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Deleted anotacion", zap.String("anotacion_id", id.String()))
	return nil
}

func (s *anotacionService) BulkApprove(ctx context.Context, ids []uuid.UUID) (int64, error) {
	actorID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return 0, err
	}

	if len(ids) == 0 {
		return 0, apperrors.NewValidation("ids", "must not be empty")
	}

	var count int64
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		count, err = s.anotacions.BulkApprove(ctx, tx, ids, actorID, time.Now())
		if err != nil {
			return err
		}

		// Nothing matched means nothing changed; skip the audit entry.
		if count == 0 {
			return nil
		}

		idStrings := make([]string, 0, len(ids))
		for _, id := range ids {
			idStrings = append(idStrings, id.String())
		}

		entry := newAuditEntry(ctx, actorID, models.AuditActionBulkApprove, models.AuditEntityAnotaciones, models.AuditEntityIDBulk)
		entry.NewValues = map[string]any{
			"ids":   idStrings,
			"count": count,
		}
		return s.audit.Create(ctx, tx, entry)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Bulk approved anotaciones",
		zap.Int("requested", len(ids)),
		zap.Int64("approved", count))

	return count, nil
}

func (s *anotacionService) List(ctx context.Context, filter repositories.AnotacionFilter) ([]*models.Anotacion, error) {
	anotaciones, err := s.anotacions.List(ctx, s.db.Pool, filter)
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

	return anotaciones, nil
}

func (s *anotacionService) loadWithReferences(ctx context.Context, id uuid.UUID) (*models.Anotacion, error) {
	anotacion, err := s.anotacions.GetByID(ctx, s.db.Pool, id)
	if err != nil {
		return nil, err
	}

	links, err := s.anotacions.ListReferences(ctx, s.db.Pool, id)
	if err != nil {
		return nil, err
	}
	anotacion.Referencias = links

	return anotacion, nil
}

// anotacionAuditValues flattens the row into the audit payload shape.
func anotacionAuditValues(a *models.Anotacion, referenciaIDs []uuid.UUID) map[string]any {
	values := map[string]any{
		"articuloId":      a.ArticuloID,
		"tipoAnotacionId": a.TipoAnotacionID,
		"contenido":       a.Contenido,
		"orden":           a.Orden,
		"esVisible":       a.EsVisible,
		"esAprobada":      a.EsAprobada,
		"fuenteIA":        a.FuenteIA,
	}
	if len(referenciaIDs) > 0 {
		ids := make([]string, 0, len(referenciaIDs))
		for _, id := range referenciaIDs {
			ids = append(ids, id.String())
		}
		values["referenciaIds"] = ids
	}
	return values
}
