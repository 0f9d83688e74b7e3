package api

import (
	"fmt"

	"github.com/JaimeStill/sentinel/internal/capture"
	"github.com/JaimeStill/sentinel/internal/config"
	"github.com/JaimeStill/sentinel/internal/detection"
	"github.com/JaimeStill/sentinel/internal/events"
	"github.com/JaimeStill/sentinel/internal/feed"
	"github.com/JaimeStill/sentinel/internal/identity"
	"github.com/JaimeStill/sentinel/internal/metrics"
	"github.com/JaimeStill/sentinel/internal/violations"
	"github.com/JaimeStill/sentinel/pkg/lifecycle"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Detection  detection.System
	Identity   identity.System
	Violations violations.System
	Feed       *feed.Hub
	Capture    capture.System

	// Events is nil when no broker is configured.
	Events *events.Emitter

	metrics *metrics.Metrics
}

// NewDomain creates all domain systems from the API runtime and wires the
// change notifications between them. Database listeners are registered here,
// so NewDomain must run before the infrastructure is started.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	appID := cfg.Identity.AppID

	catalog, err := detection.LoadCatalog(cfg.Detection.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("detection catalog: %w", err)
	}

	detectionSystem := detection.New(
		catalog,
		detection.NewGenerator(nil),
		cfg.Detection.Probability,
		cfg.Detection.IntervalDuration(),
		runtime.Logger,
	)

	identitySystem := identity.New(
		identity.Config{
			AppID:   appID,
			Token:   cfg.Identity.AuthToken,
			Timeout: cfg.Identity.TimeoutDuration(),
		},
		newVerifier(cfg, runtime),
		identity.NewSessionStore(runtime.Database.Connection()),
		runtime.Logger,
	)

	violationsSystem := violations.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
		appID,
	)

	hub := feed.NewHub(
		violationsSystem,
		feed.Limits{Default: cfg.Feed.Limit, Max: cfg.Feed.MaxLimit},
		runtime.Logger,
	)
	hub.Listen(runtime.Database, cfg.Feed.Channel, appID)
	violationsSystem.OnChange(hub.Notify)
	hub.OnPush(runtime.Metrics.ObservePush)
	runtime.Metrics.TrackSubscribers(hub.Subscribers)

	captureSystem := capture.New(
		detectionSystem,
		identitySystem,
		violationsSystem,
		violations.Site{
			Location: cfg.Site.Location,
			GPS:      violations.GPS{Lat: cfg.Site.Lat, Lon: cfg.Site.Lon},
		},
		nil,
		runtime.Logger,
	)
	captureSystem.Observe(runtime.Metrics)

	var emitter *events.Emitter
	if cfg.Events.Enabled() {
		emitter = events.New(
			events.Config{
				Broker:         cfg.Events.Broker,
				ClientID:       cfg.Events.ClientID,
				TopicPrefix:    cfg.Events.TopicPrefix,
				QoS:            byte(cfg.Events.QoS),
				Username:       cfg.Events.Username,
				Password:       cfg.Events.Password,
				ConnectTimeout: cfg.Events.ConnectTimeoutDuration(),
			},
			appID,
			runtime.Logger,
		)
		captureSystem.Observe(emitter)
	}

	return &Domain{
		Detection:  detectionSystem,
		Identity:   identitySystem,
		Violations: violationsSystem,
		Feed:       hub,
		Capture:    captureSystem,
		Events:     emitter,
		metrics:    runtime.Metrics,
	}, nil
}

// Start registers every domain system with the lifecycle coordinator.
func (d *Domain) Start(lc *lifecycle.Coordinator) error {
	if err := d.Identity.Start(lc); err != nil {
		return fmt.Errorf("identity start failed: %w", err)
	}
	if err := d.Detection.Start(lc); err != nil {
		return fmt.Errorf("detection start failed: %w", err)
	}
	if err := d.Feed.Start(lc); err != nil {
		return fmt.Errorf("feed start failed: %w", err)
	}
	if d.Events != nil {
		if err := d.Events.Start(lc); err != nil {
			return fmt.Errorf("events start failed: %w", err)
		}
	}

	lc.OnStartup(func() {
		if session, err := d.Identity.Establish(lc.Context()); err == nil {
			d.metrics.IdentityEstablished(string(session.Method))
		}
	})
	return nil
}

func newVerifier(cfg *config.Config, runtime *Runtime) identity.TokenVerifier {
	if cfg.Identity.AuthToken == "" {
		return nil
	}

	svc, err := identity.ParseServiceConfig(cfg.Identity.ServiceConfig)
	if err != nil {
		runtime.Logger.Warn("token sign-in disabled", "error", err)
		return nil
	}
	return identity.NewOIDCVerifier(*svc)
}
