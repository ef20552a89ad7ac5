package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ID       uuid.UUID
	ActorID  uuid.UUID
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (id, actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))`, uuid.New(), log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, nullTime(log.At))
	return err
}

// List returns recent entries, newest first, optionally filtered by entity.
func (l *AuditLogger) List(ctx context.Context, entity, entityID string, limit int) ([]AuditLog, error) {
	if l == nil {
		return nil, errors.New("audit logger not initialised")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := l.pool.Query(ctx, `SELECT id, actor_id, action, entity, entity_id, meta, occurred_at
FROM audit_logs
WHERE ($1 = '' OR entity = $1) AND ($2 = '' OR entity_id = $2)
ORDER BY occurred_at DESC
LIMIT $3`, entity, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []AuditLog
	for rows.Next() {
		var entry AuditLog
		var metaJSON []byte
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.Entity, &entry.EntityID, &metaJSON, &entry.At); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &entry.Meta)
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

// Cleanup removes entries older than retention.
func (l *AuditLogger) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if l == nil {
		return nil
	}
	cutoff := time.Now().Add(-olderThan)
	_, err := l.pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
	return err
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
