// internal/repository/audit.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"creative-funding/internal/common/errors"
	"creative-funding/internal/models"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// AuditLog is append-only.
type AuditLog struct {
	db *sql.DB
}

func NewAuditLog(db *sql.DB) *AuditLog {
	return &AuditLog{db: db}
}

func (r *AuditLog) Append(ctx context.Context, entry *models.AuditEntry) error {
	if err := insertAudit(ctx, r.db, entry); err != nil {
		return errors.NewPersistenceError("append audit entry", err)
	}
	return nil
}

// ListForEntity returns entries for one entity, newest first.
func (r *AuditLog) ListForEntity(ctx context.Context, entityType, entityID string) ([]*models.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, entity_type, entity_id, action, actor_id, details, created_at
		FROM audit_log WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at DESC`,
		entityType, entityID,
	)
	if err != nil {
		return nil, errors.NewPersistenceError("list audit entries", err)
	}
	defer rows.Close()

	entries := make([]*models.AuditEntry, 0)
	for rows.Next() {
		var (
			entry   models.AuditEntry
			details []byte
		)
		if err := rows.Scan(&entry.ID, &entry.EntityType, &entry.EntityID, &entry.Action, &entry.ActorID, &details, &entry.CreatedAt); err != nil {
			return nil, errors.NewPersistenceError("list audit entries", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, errors.NewPersistenceError("list audit entries", err)
			}
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistenceError("list audit entries", err)
	}
	return entries, nil
}

func insertAudit(ctx context.Context, db execer, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	details := entry.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO audit_log (id, entity_type, entity_id, action, actor_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.EntityType, entry.EntityID, entry.Action, entry.ActorID, string(payload), entry.CreatedAt,
	)
	return err
}
