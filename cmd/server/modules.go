package main

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JaimeStill/osprey/internal/api"
	"github.com/JaimeStill/osprey/internal/config"
	"github.com/JaimeStill/osprey/internal/infrastructure"
	"github.com/JaimeStill/osprey/pkg/module"
)

// newRouter mounts the API module behind the native health, readiness and
// metrics endpoints.
func newRouter(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Router, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	router := module.NewRouter()
	router.HandleNative("GET /healthz", healthz)
	router.HandleNative("GET /readyz", readyz(infra))
	router.HandleNative("GET /metrics", promhttp.Handler().ServeHTTP)
	router.Mount(apiModule)

	return router, nil
}

func writeStatus(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz reports 503 with the pending subsystems until startup completes,
// and 503 when the database stops answering pings.
func readyz(infra *infrastructure.Infrastructure) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			writeStatus(w, http.StatusServiceUnavailable, map[string]any{
				"status":  "not ready",
				"pending": infra.Lifecycle.Pending(),
			})
			return
		}
		if err := infra.Database.Ping(r.Context()); err != nil {
			infra.Logger.Warn("readiness ping failed", "error", err)
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
			return
		}
		writeStatus(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
