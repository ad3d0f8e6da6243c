package controllers

import (
	"net/http"

	"github.com/telavo/activation-backend/api/responses"
	"github.com/telavo/activation-backend/pkg/config"
	"github.com/telavo/activation-backend/pkg/db"
	"github.com/telavo/activation-backend/pkg/logger"
	pkgredis "github.com/telavo/activation-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Telavo-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP pkgredis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Telavo-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				checks["db"] = "down"
				healthy = false
				logg.Error(r.Context(), "readiness db ping failed", err)
			} else {
				checks["db"] = "up"
			}
		}
		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				checks["redis"] = "down"
				healthy = false
				logg.Error(r.Context(), "readiness redis ping failed", err)
			} else {
				checks["redis"] = "up"
			}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		responses.WriteSuccessStatus(w, status, map[string]any{"status": "ready", "checks": checks})
	}
}
