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

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/medicalexcom/avidiatech-app-sub005/internal/bulk"
	"github.com/medicalexcom/avidiatech-app-sub005/pkg/backoff"
	"github.com/medicalexcom/avidiatech-app-sub005/pkg/db"
	"github.com/medicalexcom/avidiatech-app-sub005/pkg/health"
	"github.com/medicalexcom/avidiatech-app-sub005/pkg/logger"
	"github.com/medicalexcom/avidiatech-app-sub005/pkg/queue"
)

const shutdownTimeout = 30 * time.Second

type workerConfig struct {
	DB     db.Config
	Bulk   bulk.Config
	Sentry logger.SentryConfig

	// Probe endpoint for orchestrator liveness and readiness checks.
	HealthAddr string `env:"HEALTH_ADDR" envDefault:":8081"`
}

func main() {
	// Missing .env is fine; production injects real environment variables.
	_ = godotenv.Load()

	var cfg workerConfig
	if err := env.Parse(&cfg); err != nil {
		slog.Error("failed to parse configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.NewWithSentry(cfg.Sentry)

	if err := run(cfg, log); err != nil {
		log.Error("worker exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg workerConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	closeDB := db.Shutdown(pool)
	defer func() { _ = closeDB(context.Background()) }()

	if err := db.Migrate(ctx, pool, bulk.Migrations, cfg.DB.MigrationsTable, log); err != nil {
		return err
	}
	if err := migrateQueueSchema(ctx, pool); err != nil {
		return err
	}

	store := bulk.NewPGStore(pool)
	policy := backoff.Policy{
		BaseDelay:   cfg.Bulk.BackoffBaseDelay,
		MaxAttempts: cfg.Bulk.MaxAttempts,
	}

	// Insert-only client for the fan-out task. The manager's own enqueue path
	// validates task names against the local registry, which would create a
	// construction cycle here; item messages are routed by name on the worker
	// side anyway.
	enq, err := queue.NewEnqueuer(pool, queue.WithEnqueuerLogger(log))
	if err != nil {
		return err
	}

	fanOut := bulk.NewFanOutTask(store, enq, policy, cfg.Bulk.ItemConcurrency, log)
	itemTask := bulk.NewItemTask(store, newFetchProcessor(log), policy, cfg.Bulk.AttemptTimeout, log)
	sweeper := bulk.NewSweepTask(store, cfg.Bulk.SweepAfter, cfg.Bulk.SweepLimit, log)

	manager, err := queue.NewManager(pool,
		queue.WithTask(fanOut),
		queue.WithTask(itemTask),
		queue.WithScheduledTask(sweeper),
		queue.WithQueue(bulk.QueueMaster, 1),
		queue.WithQueue(bulk.QueueItems, cfg.Bulk.ItemConcurrency),
		queue.WithRetryPolicy(backoff.NewRiverRetryPolicy(policy)),
		queue.WithLogger(log),
	)
	if err != nil {
		return err
	}

	if err := manager.Start(ctx); err != nil {
		return err
	}

	probes := newProbeServer(cfg.HealthAddr, health.Checks{
		"postgres": db.Healthcheck(pool),
		"queue":    queue.Healthcheck(manager),
	}, log)
	go func() {
		if err := probes.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("probe server failed", slog.Any("error", err))
		}
	}()

	log.InfoContext(ctx, "bulk worker started",
		slog.Int("item_concurrency", cfg.Bulk.ItemConcurrency),
		slog.Int("max_attempts", cfg.Bulk.MaxAttempts),
		slog.String("health_addr", cfg.HealthAddr),
	)

	<-ctx.Done()
	log.Info("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := probes.Shutdown(stopCtx); err != nil {
		log.Warn("probe server shutdown failed", slog.Any("error", err))
	}
	return manager.Stop(stopCtx)
}

func newProbeServer(addr string, checks health.Checks, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", health.LivenessHandler())
	mux.HandleFunc("/health/ready", health.ReadinessHandler(checks, health.WithLogger(log)))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// migrateQueueSchema applies River's schema migrations so deploys do not
// depend on the river CLI.
func migrateQueueSchema(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return err
	}
	_, err = migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	return err
}
