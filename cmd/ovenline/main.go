package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/ovenline-erp/ovenline-erp/internal/app"
	"github.com/ovenline-erp/ovenline-erp/internal/catalog"
	"github.com/ovenline-erp/ovenline-erp/internal/observability"
	"github.com/ovenline-erp/ovenline-erp/internal/platform/cache"
	"github.com/ovenline-erp/ovenline-erp/internal/platform/db"
	"github.com/ovenline-erp/ovenline-erp/internal/rbac"
	"github.com/ovenline-erp/ovenline-erp/internal/realtime"
	"github.com/ovenline-erp/ovenline-erp/internal/receiving"
	"github.com/ovenline-erp/ovenline-erp/internal/shared"
	"github.com/ovenline-erp/ovenline-erp/internal/suppliers"
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
	metrics := observability.NewMetrics()

	rbacMiddleware := rbac.Middleware{
		StaffTokenHash:   cfg.StaffTokenHash,
		ManagerTokenHash: cfg.ManagerTokenHash,
		Logger:           logger,
	}

	receivingRepo := receiving.NewRepository(pool)
	receivingService := receiving.NewService(receivingRepo, broadcaster, auditLogger, idempotencyStore)
	receivingHandler := receiving.NewHandler(logger, receivingService, rbacMiddleware, metrics)

	catalogService := catalog.NewService(catalog.NewRepository(pool))
	catalogHandler := catalog.NewHandler(logger, catalogService, rbacMiddleware)

	suppliersService := suppliers.NewService(suppliers.NewRepository(pool))
	suppliersHandler := suppliers.NewHandler(logger, suppliersService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		ReceivingHandler: receivingHandler,
		CatalogHandler:   catalogHandler,
		SuppliersHandler: suppliersHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
