package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/telavo/activation-backend/pkg/config"
	"github.com/telavo/activation-backend/pkg/db"
	"github.com/telavo/activation-backend/pkg/logger"
	"github.com/telavo/activation-backend/pkg/migrate"
)

// Usage: migrate <goose-command> [args], e.g. `migrate up`, `migrate down`,
// `migrate status`.
func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	command := "up"
	args := []string{}
	if len(os.Args) > 1 {
		command = os.Args[1]
		args = os.Args[2:]
	}

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

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(context.Background(), "failed to access sql handle", err)
		os.Exit(1)
	}

	ctx := logg.WithField(context.Background(), "command", command)
	if err := migrate.Run(ctx, sqlDB, migrate.DefaultDir, command, args...); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration complete")
}
