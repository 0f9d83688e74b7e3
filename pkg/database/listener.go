package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	listenRetryMin = time.Second
	listenRetryMax = 30 * time.Second
)

// listener holds a dedicated pgx connection subscribed to a single channel.
// Pooled database/sql connections cannot hold LISTEN state, so each channel
// gets its own native connection.
type listener struct {
	dsn     string
	channel string
	subs    []subscriber
	logger  *slog.Logger
}

type subscriber struct {
	notify NotifyFunc
	onErr  ErrorFunc
}

func newListener(dsn, channel string, subs []subscriber, logger *slog.Logger) *listener {
	return &listener{
		dsn:     dsn,
		channel: channel,
		subs:    subs,
		logger:  logger.With("channel", channel),
	}
}

// run keeps a LISTEN session open until ctx is cancelled. Every failure is
// reported to the error callbacks and followed by a reconnect with backoff.
// A session that opens after a failure delivers an empty payload, since
// notifications sent while disconnected are lost.
func (l *listener) run(ctx context.Context, connTimeout time.Duration) {
	delay := listenRetryMin
	recovering := false

	for {
		err := l.session(ctx, connTimeout, func() {
			delay = listenRetryMin
			if recovering {
				recovering = false
				l.dispatch("")
			}
		})
		if ctx.Err() != nil {
			l.logger.Info("listener stopped")
			return
		}

		l.logger.Error("listener failed", "error", err, "retry", delay)
		l.fail(err)
		recovering = true

		select {
		case <-ctx.Done():
			l.logger.Info("listener stopped")
			return
		case <-time.After(delay):
		}
		delay = min(delay*2, listenRetryMax)
	}
}

func (l *listener) session(ctx context.Context, connTimeout time.Duration, opened func()) error {
	connectCtx, cancel := context.WithTimeout(ctx, connTimeout)
	conn, err := pgx.Connect(connectCtx, l.dsn)
	cancel()
	if err != nil {
		return fmt.Errorf("listener connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	l.logger.Info("listening for notifications")
	opened()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		l.dispatch(n.Payload)
	}
}

func (l *listener) dispatch(payload string) {
	for _, s := range l.subs {
		s.notify(payload)
	}
}

func (l *listener) fail(err error) {
	for _, s := range l.subs {
		if s.onErr != nil {
			s.onErr(err)
		}
	}
}
