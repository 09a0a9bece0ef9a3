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

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
	"github.com/odyssey-erp/odyssey-hrm/internal/app"
	"github.com/odyssey-erp/odyssey-hrm/internal/observability"
	"github.com/odyssey-erp/odyssey-hrm/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-hrm/internal/shared"
	"github.com/odyssey-erp/odyssey-hrm/jobs"
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

	engine := access.NewEngine(access.DefaultCatalog())
	sessionManager := shared.NewSessionManager(redisClient, engine, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	metrics := observability.NewMetrics()

	refreshJob := jobs.NewSessionRefreshJob(sessionManager, logger, metrics.Jobs())
	sweepJob := &jobs.SessionSweepJob{Sessions: sessionManager, Logger: logger, Metrics: metrics.Jobs()}

	var cron []jobs.CronRegistration
	if cfg.SessionSweepCron != "" {
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.SessionSweepCron,
			Task:    jobs.NewSessionSweepTask(),
			Options: []asynq.Option{asynq.MaxRetry(1), asynq.Queue(jobs.QueueDefault)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSessionRefresh, Handler: refreshJob.Handle},
			{Type: jobs.TaskSessionSweep, Handler: sweepJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("starting worker metrics server", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
