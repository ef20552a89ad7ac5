package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// AuditCleanupJob prunes aged audit log entries and spent idempotency keys.
type AuditCleanupJob struct {
	Audit       *shared.AuditLogger
	Idempotency *shared.IdempotencyStore
	Logger      *slog.Logger
}

// NewAuditCleanupJob initialises the cleanup handler.
func NewAuditCleanupJob(audit *shared.AuditLogger, idempotency *shared.IdempotencyStore, logger *slog.Logger) *AuditCleanupJob {
	return &AuditCleanupJob{Audit: audit, Idempotency: idempotency, Logger: logger}
}

// Handle executes the cleanup.
func (j *AuditCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("audit cleanup: handler not configured")
	}
	var payload AuditCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetentionDays <= 0 {
		payload.RetentionDays = 365
	}
	retention := time.Duration(payload.RetentionDays) * 24 * time.Hour

	logger := j.logger().With(slog.Int("retention_days", payload.RetentionDays))
	if err := j.Audit.Cleanup(ctx, retention); err != nil {
		logger.Error("audit cleanup failed", slog.Any("error", err))
		return err
	}
	// Idempotency keys only guard short replay windows, keep them a month.
	if err := j.Idempotency.Cleanup(ctx, 30*24*time.Hour); err != nil {
		logger.Error("idempotency cleanup failed", slog.Any("error", err))
		return err
	}
	logger.Info("completed audit cleanup")
	return nil
}

func (j *AuditCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAuditCleanup))
	}
	return slog.Default().With(slog.String("job", TaskAuditCleanup))
}
