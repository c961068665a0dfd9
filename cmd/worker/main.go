package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/keystone-erp/keystone/internal/app"
	"github.com/keystone-erp/keystone/internal/integration"
	jobmetrics "github.com/keystone-erp/keystone/internal/jobs"
	"github.com/keystone-erp/keystone/internal/ledger/journals"
	"github.com/keystone-erp/keystone/internal/ledger/periods"
	"github.com/keystone-erp/keystone/internal/ledger/reports"
	"github.com/keystone-erp/keystone/internal/platform/cache"
	"github.com/keystone-erp/keystone/internal/platform/db"
	"github.com/keystone-erp/keystone/internal/shared"
	"github.com/keystone-erp/keystone/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)

	journalsRepo := journals.NewRepository(pool)
	journalsService := journals.NewService(journalsRepo, auditLogger)

	periodsRepo := periods.NewRepository(pool)
	reportsRepo := reports.NewRepository(pool)
	reportsService := reports.NewService(reportsRepo, periodsRepo, redisClient, auditLogger)

	mappings := integration.NewMappingRepository(pool)
	hooks := integration.NewHooks(logger, journalsService, mappings)

	metrics := jobmetrics.NewMetrics(nil)
	integrity := jobs.NewIntegrityChecker(pool, logger, metrics)
	warmer := jobs.NewTrialBalanceWarmer(pool, reportsService, logger, metrics)

	warmupTask, err := jobs.NewTrialBalanceWarmupTask(jobs.WarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	var cron []jobs.CronRegistration
	if cfg.IntegrityCron != "" {
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.IntegrityCron,
			Task:    jobs.NewLedgerIntegrityTask(),
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}
	if cfg.WarmupCron != "" {
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.WarmupCron,
			Task:    warmupTask,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerIntegrity, Handler: integrity.Handler()},
			{Type: jobs.TaskTrialBalanceWarmup, Handler: warmer.Handler()},
			{Type: jobs.TaskInvoicePosted, Handler: jobs.HandleInvoicePosted(hooks)},
			{Type: jobs.TaskPaymentReceived, Handler: jobs.HandlePaymentReceived(hooks)},
			{Type: jobs.TaskInventoryAdjusted, Handler: jobs.HandleInventoryAdjusted(hooks)},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
