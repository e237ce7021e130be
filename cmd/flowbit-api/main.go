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

	"github.com/flowbit/flowbit/internal/analytics"
	"github.com/flowbit/flowbit/internal/api"
	"github.com/flowbit/flowbit/internal/api/uistatic"
	"github.com/flowbit/flowbit/internal/config"
	"github.com/flowbit/flowbit/internal/intent"
	"github.com/flowbit/flowbit/internal/observability"
	"github.com/flowbit/flowbit/internal/query/sqldb"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", slog.Any("error", err))
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv("flowbit-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	db, err := sqldb.Open(cfg.Database)
	if err != nil {
		logger.Error("failed to open database", slog.String("driver", cfg.Database.Driver), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// The server still starts without a database; /v1/ready reports it.
	if err := sqldb.Ping(context.Background(), db); err != nil {
		logger.Warn("database not reachable at startup", slog.Any("error", err))
	}

	executor := sqldb.NewExecutor(db, cfg.Query)
	deps := api.Dependencies{
		Logger:   logger,
		Resolver: intent.NewResolver(intent.DefaultCatalog()),
		Executor: executor,
		Reports:  analytics.NewService(executor),
		Readiness: api.CombineReadinessChecks(
			api.CheckDatabaseConfig(cfg),
			api.CheckDatabase(db),
		),
		DependencyTimeout: 2 * time.Second,
	}
	if cfg.UI.Enabled {
		deps.UI = uistatic.Handler()
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address), slog.String("driver", cfg.Database.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
