package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmacore-erp/pharmacore/internal/app"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
	"github.com/pharmacore-erp/pharmacore/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	expiryJob := jobs.NewExpiryScanJob(pool, logger)
	cleanupJob := jobs.NewAuditCleanupJob(shared.NewAuditLogger(pool), shared.NewIdempotencyStore(pool), logger)

	expiryTask, err := jobs.NewExpiryScanTask(30)
	if err != nil {
		logger.Error("build expiry scan task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewAuditCleanupTask(365)
	if err != nil {
		logger.Error("build audit cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskExpiryScan, Handler: expiryJob.Handle},
			{Type: jobs.TaskAuditCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 * * * *", Task: expiryTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 2 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
