package main

import (
	"encoding/json"
	"net/http"

	"github.com/JaimeStill/sentinel/internal/api"
	"github.com/JaimeStill/sentinel/internal/config"
	"github.com/JaimeStill/sentinel/internal/infrastructure"
	"github.com/JaimeStill/sentinel/pkg/lifecycle"
	"github.com/JaimeStill/sentinel/pkg/module"
)

// Modules holds the mounted HTTP modules.
type Modules struct {
	API *api.API
}

// NewModules builds every module from the shared infrastructure.
func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

// Mount attaches every module to router.
func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API.Module)
}

// Start registers module systems with the lifecycle coordinator.
func (m *Modules) Start(lc *lifecycle.Coordinator) error {
	return m.API.Start(lc)
}

func buildRouter(infra *infrastructure.Infrastructure, cfg *config.Config) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]any{"status": "ok"})
	}))

	router.HandleNative("GET /readyz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pending := infra.Lifecycle.Pending(); len(pending) > 0 {
			writeStatus(w, http.StatusServiceUnavailable, map[string]any{
				"status":  "not ready",
				"pending": pending,
			})
			return
		}
		writeStatus(w, http.StatusOK, map[string]any{"status": "ready"})
	}))

	if !cfg.Metrics.Disabled {
		router.HandleNative("GET /metrics", infra.Metrics.Handler())
	}

	return router
}

func writeStatus(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
