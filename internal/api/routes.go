package api

import (
	"net/http"

	"github.com/JaimeStill/sentinel/internal/config"
	"github.com/JaimeStill/sentinel/internal/feed"
	"github.com/JaimeStill/sentinel/pkg/openapi"
	"github.com/JaimeStill/sentinel/pkg/routes"
)

func routeGroups(domain *Domain, cfg *config.Config, runtime *Runtime) []routes.Group {
	stream := feed.NewHandler(
		domain.Feed,
		domain.Identity,
		feed.StreamConfig{
			PingInterval: cfg.Feed.PingIntervalDuration(),
			WriteTimeout: cfg.Feed.WriteTimeoutDuration(),
		},
		runtime.Logger,
	)

	return []routes.Group{
		domain.Identity.Handler().Routes(),
		domain.Detection.Handler().Routes(),
		domain.Capture.Handler().Routes(),
		domain.Violations.Handler(int64(cfg.API.MaxUploadSize)).Routes(),
		stream.Routes(),
	}
}

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) error {
	groups := routeGroups(domain, cfg, runtime)
	routes.Register(mux, groups...)

	spec := openapi.NewSpec(&cfg.API.OpenAPI, cfg.Version)
	routes.Describe(spec, cfg.API.BasePath, groups...)

	specBytes, err := openapi.MarshalJSON(spec)
	if err != nil {
		return err
	}
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(specBytes))

	return nil
}
