package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/telavo/activation-backend/api/routes"
	"github.com/telavo/activation-backend/internal/catalog"
	"github.com/telavo/activation-backend/internal/cleanup"
	"github.com/telavo/activation-backend/internal/orders"
	"github.com/telavo/activation-backend/internal/profiles"
	"github.com/telavo/activation-backend/pkg/config"
	"github.com/telavo/activation-backend/pkg/db"
	"github.com/telavo/activation-backend/pkg/docstore"
	"github.com/telavo/activation-backend/pkg/logger"
	"github.com/telavo/activation-backend/pkg/metrics"
	"github.com/telavo/activation-backend/pkg/migrate"
	"github.com/telavo/activation-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

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

	catalogSvc, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logg.Error(context.Background(), "failed to load catalog", err)
		os.Exit(1)
	}

	wizardMetrics := metrics.NewWizardMetrics(prometheus.DefaultRegisterer)

	persister, err := orders.NewStepPersister(store, logg, wizardMetrics, cfg.Docstore.OpTimeout)
	if err != nil {
		logg.Error(context.Background(), "failed to create step persister", err)
		os.Exit(1)
	}

	profileSvc, err := profiles.NewService(store, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create profiles service", err)
		os.Exit(1)
	}

	cleanupQueue, err := cleanup.NewQueue(redisClient, cfg.App.Env)
	if err != nil {
		logg.Error(context.Background(), "failed to create cleanup queue", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(persister, profileSvc, catalogSvc, cleanupQueue, logg, wizardMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Orders:   ordersSvc,
			Profiles: profileSvc,
			Catalog:  catalogSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
