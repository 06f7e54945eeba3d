package main

import (
	"context"
	"fmt"

	"github.com/JaimeStill/osprey/internal/config"
	"github.com/JaimeStill/osprey/internal/infrastructure"
)

// Server owns the shared infrastructure and the HTTP listener in front of it.
type Server struct {
	cfg   *config.Config
	infra *infrastructure.Infrastructure
	http  *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg, nil)
	if err != nil {
		return nil, err
	}

	router, err := newRouter(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:   cfg,
		infra: infra,
		http:  newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Run starts every subsystem, blocks until ctx is cancelled, then shuts
// down within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	logger := s.infra.Logger
	timeout := s.cfg.ShutdownTimeoutDuration()

	if err := s.infra.Start(); err != nil {
		return fmt.Errorf("start infrastructure: %w", err)
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		if serr := s.infra.Lifecycle.Shutdown(timeout); serr != nil {
			logger.Error("shutdown after failed start", "error", serr)
		}
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		if pending := s.infra.Lifecycle.Pending(); len(pending) > 0 {
			logger.Warn("startup finished with subsystems not ready", "pending", pending)
			return
		}
		logger.Info("all subsystems ready")
	}()

	<-ctx.Done()

	logger.Info("initiating shutdown", "timeout", timeout)
	if err := s.infra.Lifecycle.Shutdown(timeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
