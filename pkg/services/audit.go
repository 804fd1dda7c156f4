package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/delfino-cr/reglamento-engine/pkg/auth"
	"github.com/delfino-cr/reglamento-engine/pkg/database"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
	"github.com/delfino-cr/reglamento-engine/pkg/repositories"
)

// AuditService exposes the read side of the audit log. Writes happen
// inside the mutating services' transactions, never through here.
type AuditService interface {
	List(ctx context.Context, filter repositories.AuditFilter) ([]*models.AuditLogEntry, error)
}

type auditService struct {
	db    *database.DB
	audit repositories.AuditRepository
}

// NewAuditService creates a new AuditService.
func NewAuditService(db *database.DB, audit repositories.AuditRepository) AuditService {
	return &auditService{db: db, audit: audit}
}

var _ AuditService = (*auditService)(nil)

func (s *auditService) List(ctx context.Context, filter repositories.AuditFilter) ([]*models.AuditLogEntry, error) {
	return s.audit.List(ctx, s.db.Pool, filter)
}

// newAuditEntry builds the common envelope for an audit record,
// attributing it to the actor and the request's client IP.
func newAuditEntry(ctx context.Context, actorID uuid.UUID, action, entityType, entityID string) *models.AuditLogEntry {
	return &models.AuditLogEntry{
		UserID:     actorID,
		ActionType: action,
		EntityType: entityType,
		EntityID:   entityID,
		IPAddress:  auth.ClientIPFromContext(ctx),
	}
}
