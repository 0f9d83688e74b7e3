package detection

import (
	"log/slog"
	"sync"
	"time"

	"github.com/JaimeStill/sentinel/pkg/lifecycle"
)

// System owns the detector's tick loop and the most recent active set.
type System interface {
	Handler() *Handler

	// Catalog returns the catalog the detector samples from.
	Catalog() Catalog
	// Current returns the active set from the most recent draw.
	Current() ActiveSet
	// Tick forces a fresh draw and returns it.
	Tick() ActiveSet
	// Start registers the tick loop with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type monitor struct {
	catalog     Catalog
	generator   *Generator
	probability float64
	interval    time.Duration
	logger      *slog.Logger

	mu      sync.RWMutex
	current ActiveSet
}

// New creates a detection System. No draw happens until Start or Tick.
func New(
	catalog Catalog,
	generator *Generator,
	probability float64,
	interval time.Duration,
	logger *slog.Logger,
) System {
	return &monitor{
		catalog:     catalog,
		generator:   generator,
		probability: probability,
		interval:    interval,
		logger:      logger.With("system", "detection"),
		current:     ActiveSet{},
	}
}

func (m *monitor) Handler() *Handler {
	return NewHandler(m, m.logger)
}

func (m *monitor) Catalog() Catalog {
	return m.catalog
}

func (m *monitor) Current() ActiveSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *monitor) Tick() ActiveSet {
	active := m.generator.Generate(m.catalog, m.probability)

	m.mu.Lock()
	m.current = active
	m.mu.Unlock()

	return active
}

func (m *monitor) Start(lc *lifecycle.Coordinator) error {
	m.logger.Info(
		"starting detector",
		"candidates", len(m.catalog),
		"probability", m.probability,
		"interval", m.interval,
	)

	m.Tick()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-lc.Context().Done():
				return
			case <-ticker.C:
				m.Tick()
			}
		}
	}()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		<-done
		m.logger.Info("detector stopped")
	})

	return nil
}
