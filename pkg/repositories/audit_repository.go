package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/delfino-cr/reglamento-engine/pkg/database"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
)

// AuditFilter narrows audit log queries.
type AuditFilter struct {
	Limit      int
	EntityType string
	UserID     uuid.UUID
}

// AuditRepository provides data access for the append-only audit log.
// Create takes a Querier so the entry commits in the same transaction
// as the mutation it records.
type AuditRepository interface {
	Create(ctx context.Context, q database.Querier, entry *models.AuditLogEntry) error
	// List returns entries newest-first, optionally filtered.
	List(ctx context.Context, q database.Querier, filter AuditFilter) ([]*models.AuditLogEntry, error)
}

type auditRepository struct{}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository() AuditRepository {
	return &auditRepository{}
}

var _ AuditRepository = (*auditRepository)(nil)

func (r *auditRepository) Create(ctx context.Context, q database.Querier, entry *models.AuditLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()

	previousJSON, err := marshalNullable(entry.PreviousValues)
	if err != nil {
		return fmt.Errorf("failed to marshal previous_values: %w", err)
	}
	newJSON, err := marshalNullable(entry.NewValues)
	if err != nil {
		return fmt.Errorf("failed to marshal new_values: %w", err)
	}
	var changedJSON []byte
	if len(entry.ChangedFields) > 0 {
		changedJSON, err = json.Marshal(entry.ChangedFields)
		if err != nil {
			return fmt.Errorf("failed to marshal changed_fields: %w", err)
		}
	}

	query := `
		INSERT INTO audit_log (
			id, user_id, action_type, entity_type, entity_id,
			previous_values, new_values, changed_fields, ip_address, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = q.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.ActionType,
		entry.EntityType,
		entry.EntityID,
		previousJSON,
		newJSON,
		changedJSON,
		entry.IPAddress,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}

	return nil
}

func (r *auditRepository) List(ctx context.Context, q database.Querier, filter AuditFilter) ([]*models.AuditLogEntry, error) {
	query := `
		SELECT id, user_id, action_type, entity_type, entity_id,
		       previous_values, new_values, changed_fields, ip_address, created_at
		FROM audit_log
		WHERE 1=1`

	var args []any
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filter.UserID != uuid.Nil {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditLogEntry
	for rows.Next() {
		entry, err := scanAuditLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log entries: %w", err)
	}

	return entries, nil
}

func scanAuditLogEntry(row pgx.Row) (*models.AuditLogEntry, error) {
	var entry models.AuditLogEntry
	var previousJSON, newJSON, changedJSON []byte

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.ActionType,
		&entry.EntityType,
		&entry.EntityID,
		&previousJSON,
		&newJSON,
		&changedJSON,
		&entry.IPAddress,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit log entry: %w", err)
	}

	if err := unmarshalNullable(previousJSON, &entry.PreviousValues); err != nil {
		return nil, fmt.Errorf("failed to unmarshal previous_values: %w", err)
	}
	if err := unmarshalNullable(newJSON, &entry.NewValues); err != nil {
		return nil, fmt.Errorf("failed to unmarshal new_values: %w", err)
	}
	if len(changedJSON) > 0 && string(changedJSON) != "null" {
		if err := json.Unmarshal(changedJSON, &entry.ChangedFields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal changed_fields: %w", err)
		}
	}

	return &entry, nil
}

func marshalNullable(values map[string]any) ([]byte, error) {
	if len(values) == 0 {
		return nil, nil
	}
	return json.Marshal(values)
}

func unmarshalNullable[T any](data []byte, dst *T) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, dst)
}
