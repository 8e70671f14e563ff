package controllers

import (
	"net/http"

	"github.com/angelmondragon/mystore-sync/api/responses"
	"github.com/angelmondragon/mystore-sync/pkg/config"
	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
	"github.com/angelmondragon/mystore-sync/pkg/localdb"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
	"github.com/angelmondragon/mystore-sync/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MyStore-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the local cache and, when wired, redis.
func HealthReady(cfg *config.Config, db *localdb.Client, cache redis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MyStore-Env", cfg.App.Env)

		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "local cache unavailable"))
				return
			}
		}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "redis unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
