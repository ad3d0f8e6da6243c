package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/telavo/activation-backend/internal/cleanup"
	"github.com/telavo/activation-backend/internal/orders"
	"github.com/telavo/activation-backend/pkg/config"
	"github.com/telavo/activation-backend/pkg/db"
	"github.com/telavo/activation-backend/pkg/docstore"
	"github.com/telavo/activation-backend/pkg/logger"
	"github.com/telavo/activation-backend/pkg/metrics"
	"github.com/telavo/activation-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cleanup-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cleanup-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	store, err := docstore.NewGormStore(dbClient.DB(), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build document store", err)
		os.Exit(1)
	}

	wizardMetrics := metrics.NewWizardMetrics(prometheus.DefaultRegisterer)

	persister, err := orders.NewStepPersister(store, logg, wizardMetrics, cfg.Docstore.OpTimeout)
	if err != nil {
		logg.Error(context.Background(), "failed to create step persister", err)
		os.Exit(1)
	}

	queue, err := cleanup.NewQueue(redisClient, cfg.App.Env)
	if err != nil {
		logg.Error(context.Background(), "failed to create cleanup queue", err)
		os.Exit(1)
	}

	worker, err := cleanup.NewWorker(queue, persister, logg, wizardMetrics, cleanup.WorkerConfig{
		PollInterval: cfg.Cleanup.PollInterval,
		MaxAttempts:  cfg.Cleanup.MaxAttempts,
		BaseBackoff:  cfg.Cleanup.BaseBackoff,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cleanup worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logg.Info(logg.WithField(ctx, "env", cfg.App.Env), "starting cleanup worker")
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logg.Error(ctx, "cleanup worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cleanup worker shut down")
}
