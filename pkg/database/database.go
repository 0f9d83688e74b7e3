// Package database provides PostgreSQL connection management with lifecycle coordination
// and LISTEN/NOTIFY change notifications.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/sentinel/pkg/lifecycle"
)

// NotifyFunc receives the payload of a notification delivered on a listened channel.
type NotifyFunc func(payload string)

// ErrorFunc receives a listener failure. The listener reconnects afterwards.
type ErrorFunc func(err error)

// System manages database connections, channel listeners, and lifecycle coordination.
type System interface {
	// Connection returns the underlying database connection pool.
	Connection() *sql.DB
	// Listen registers fn for notifications on channel and onErr for
	// connection failures. Listeners registered before Start are connected
	// during startup.
	Listen(channel string, fn NotifyFunc, onErr ErrorFunc)
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type database struct {
	conn        *sql.DB
	dsn         string
	logger      *slog.Logger
	connTimeout time.Duration

	mu        sync.Mutex
	listeners map[string][]subscriber
}

// New creates a database system with the given configuration.
// It calls sql.Open to validate the DSN and configure pool parameters,
// but does not establish a connection until Start is called.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	db, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn:        db,
		dsn:         cfg.Dsn(),
		logger:      logger.With("system", "database"),
		connTimeout: cfg.ConnTimeoutDuration(),
		listeners:   make(map[string][]subscriber),
	}, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Listen(channel string, fn NotifyFunc, onErr ErrorFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[channel] = append(d.listeners[channel], subscriber{notify: fn, onErr: onErr})
}

func (d *database) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("starting database connection")

	lc.OnStartup(func() {
		pingCtx, cancel := context.WithTimeout(lc.Context(), d.connTimeout)
		defer cancel()

		if err := d.conn.PingContext(pingCtx); err != nil {
			d.logger.Error("database ping failed", "error", err)
			return
		}

		d.logger.Info("database connection established")
	})

	d.mu.Lock()
	for channel, subs := range d.listeners {
		l := newListener(d.dsn, channel, subs, d.logger)
		go l.run(lc.Context(), d.connTimeout)
	}
	d.mu.Unlock()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		d.logger.Info("closing database connection")

		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}

		d.logger.Info("database connection closed")
	})

	return nil
}
