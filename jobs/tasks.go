package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskExpiryScan walks stock batches looking for near-expiry stock.
	TaskExpiryScan = "inventory:expiry_scan"
	// TaskAuditCleanup prunes aged audit log and idempotency rows.
	TaskAuditCleanup = "audit:cleanup"
)

// ExpiryScanPayload configures the expiry scan window.
type ExpiryScanPayload struct {
	WithinDays int `json:"withinDays"`
}

// NewExpiryScanTask constructs the expiry scan task.
func NewExpiryScanTask(withinDays int) (*asynq.Task, error) {
	data, err := json.Marshal(ExpiryScanPayload{WithinDays: withinDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpiryScan, data), nil
}

// AuditCleanupPayload configures retention for the cleanup task.
type AuditCleanupPayload struct {
	RetentionDays int `json:"retentionDays"`
}

// NewAuditCleanupTask constructs the audit cleanup task.
func NewAuditCleanupTask(retentionDays int) (*asynq.Task, error) {
	data, err := json.Marshal(AuditCleanupPayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditCleanup, data), nil
}
