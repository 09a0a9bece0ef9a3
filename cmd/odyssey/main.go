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

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
	"github.com/odyssey-erp/odyssey-hrm/internal/app"
	"github.com/odyssey-erp/odyssey-hrm/internal/audit"
	audithttp "github.com/odyssey-erp/odyssey-hrm/internal/audit/http"
	"github.com/odyssey-erp/odyssey-hrm/internal/auth"
	"github.com/odyssey-erp/odyssey-hrm/internal/observability"
	"github.com/odyssey-erp/odyssey-hrm/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-hrm/internal/platform/db"
	"github.com/odyssey-erp/odyssey-hrm/internal/rbac"
	"github.com/odyssey-erp/odyssey-hrm/internal/shared"
	"github.com/odyssey-erp/odyssey-hrm/internal/users"
	"github.com/odyssey-erp/odyssey-hrm/jobs"
)

func main() {
	if len(os.Args) > 1 {
		os.Exit(runCommand(os.Args[1:]))
	}

	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, MinConns: cfg.PGMinConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()
	if err := db.EnsureSchema(ctx, dbpool); err != nil {
		logger.Error("ensure schema", slog.Any("error", err))
		os.Exit(1)
	}

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
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()
	rbacMiddleware := rbac.Middleware{Engine: engine, Logger: logger, Metrics: metrics}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	var refresher users.SessionRefresher = users.DirectRefresher{Sessions: sessionManager}
	if !cfg.JobsInline {
		jobClient, err := jobs.NewClient(redisOpts)
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		refresher = jobClient
	}

	authService := auth.NewService(auth.NewRepository(dbpool), engine)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, auditLogger)
	var tokenManager *shared.TokenManager
	if cfg.TokenSecret != "" {
		tokenManager = shared.NewTokenManager(sessionManager, cfg.TokenSecret, cfg.TokenTTL)
		authHandler.WithTokens(tokenManager)
	}

	usersService := users.NewService(users.NewRepository(dbpool, engine), engine, auditLogger, refresher, logger)
	usersHandler := users.NewHandler(logger, usersService, sessionManager, rbacMiddleware)

	auditHandler := audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)), rbacMiddleware)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		TokenManager:   tokenManager,
		AuthHandler:    authHandler,
		UsersHandler:   usersHandler,
		CatalogHandler: rbac.NewCatalogHandler(engine, rbacMiddleware),
		AuditHandler:   auditHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Bool("jobs_inline", cfg.JobsInline))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
