// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/sentinel/internal/config"
	"github.com/JaimeStill/sentinel/internal/infrastructure"
	"github.com/JaimeStill/sentinel/pkg/lifecycle"
	"github.com/JaimeStill/sentinel/pkg/middleware"
	"github.com/JaimeStill/sentinel/pkg/module"
)

// API is the mounted HTTP module paired with the domain systems behind it.
type API struct {
	*module.Module
	Domain *Domain
}

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*API, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(cfg, runtime)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	if err := registerRoutes(mux, domain, cfg, runtime); err != nil {
		return nil, fmt.Errorf("openapi spec: %w", err)
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.RequestID())
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	if !cfg.Metrics.Disabled {
		m.Use(middleware.Observe(runtime.Metrics.ObserveRequest))
	}

	return &API{Module: m, Domain: domain}, nil
}

// Start registers the domain systems with the lifecycle coordinator.
func (a *API) Start(lc *lifecycle.Coordinator) error {
	return a.Domain.Start(lc)
}
