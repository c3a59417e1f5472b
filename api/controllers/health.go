package controllers

import (
	"context"
	"net/http"

	"github.com/yvoloshin/paylink-backend/api/responses"
	"github.com/yvoloshin/paylink-backend/pkg/config"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
	"github.com/yvoloshin/paylink-backend/pkg/logger"
)

// Probe checks one backing dependency for readiness.
type Probe func(ctx context.Context) error

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Paylink-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, probes map[string]Probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Paylink-Env", cfg.App.Env)
		for name, probe := range probes {
			if probe == nil {
				continue
			}
			if err := probe(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
