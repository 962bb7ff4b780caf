package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/ovenline-erp/ovenline-erp/internal/app"
	jobmetrics "github.com/ovenline-erp/ovenline-erp/internal/jobs"
	"github.com/ovenline-erp/ovenline-erp/internal/platform/cache"
	"github.com/ovenline-erp/ovenline-erp/internal/platform/db"
	"github.com/ovenline-erp/ovenline-erp/internal/realtime"
	"github.com/ovenline-erp/ovenline-erp/internal/shared"
	"github.com/ovenline-erp/ovenline-erp/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	broadcaster := realtime.NewBroadcaster(redisClient, logger)
	metrics := jobmetrics.NewMetrics(nil)

	retentionTask, err := jobs.NewRetentionSweepTask(jobs.RetentionPayload{
		IdempotencyDays: cfg.IdempotencyRetentionDays,
		AuditDays:       cfg.AuditRetentionDays,
	})
	if err != nil {
		logger.Error("build retention task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRetentionSweep, Handler: jobs.NewRetentionHandler(idempotencyStore, auditLogger, metrics, logger)},
			{Type: jobs.TaskLowStockScan, Handler: jobs.NewLowStockHandler(pool, broadcaster, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.RetentionCron, Task: retentionTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.LowStockCron, Task: jobs.NewLowStockScanTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
}
