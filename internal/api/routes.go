package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/osprey/internal/config"
	"github.com/JaimeStill/osprey/internal/qc"
	"github.com/JaimeStill/osprey/pkg/openapi"
	"github.com/JaimeStill/osprey/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, cfg *config.Config, domain *Domain, logger *slog.Logger) error {
	groups := []routes.Group{
		domain.QC.Handler().Routes(),
	}

	spec, err := buildSpec(cfg, groups)
	if err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(spec))

	patterns := routes.Register(mux, groups...)
	logger.Debug("api routes registered", "count", len(patterns), "patterns", patterns)
	return nil
}

func buildSpec(cfg *config.Config, groups []routes.Group) ([]byte, error) {
	spec := openapi.FromConfig(&cfg.API.OpenAPI, cfg.Version)
	spec.AddServer(cfg.API.BasePath)
	spec.Components.AddSchemas(qc.Schemas())

	if err := routes.Document(spec, groups...); err != nil {
		return nil, err
	}
	return openapi.MarshalJSON(spec)
}
