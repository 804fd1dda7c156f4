package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit action kinds.
const (
	AuditActionCreate      = "CREATE"
	AuditActionUpdate      = "UPDATE"
	AuditActionDelete      = "DELETE"
	AuditActionBulkApprove = "BULK_APPROVE"
)

// Audit entity types.
const (
	AuditEntityAnotaciones = "anotaciones"
	AuditEntityReferencias = "referencias"
	AuditEntityUsers       = "users"
)

// AuditEntityIDBulk is the synthetic entity id recorded for batch
// operations that touch many rows under one entry.
const AuditEntityIDBulk = "bulk"

// AuditLogEntry is one append-only record of an administrative
// mutation. Entries are written in the same transaction as the
// mutation they describe and are never updated or deleted.
type AuditLogEntry struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"userId"`
	ActionType     string         `json:"actionType"`
	EntityType     string         `json:"entityType"`
	EntityID       string         `json:"entityId"` // uuid string, or "bulk"
	PreviousValues map[string]any `json:"previousValues,omitempty"`
	NewValues      map[string]any `json:"newValues,omitempty"`
	ChangedFields  []string       `json:"changedFields,omitempty"`
	IPAddress      *string        `json:"ipAddress,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}
