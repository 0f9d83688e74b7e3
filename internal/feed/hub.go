// Package feed maintains live subscriptions to the most recent evidence
// records. Every change to the collection re-runs the bounded query and
// pushes the full ordered snapshot to each subscriber.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/JaimeStill/sentinel/internal/violations"
	"github.com/JaimeStill/sentinel/pkg/database"
	"github.com/JaimeStill/sentinel/pkg/lifecycle"
)

// Source runs the feed's standing query.
type Source interface {
	Recent(ctx context.Context, limit int) ([]violations.Record, error)
}

// RenderFunc receives each full snapshot, newest first.
type RenderFunc func(records []violations.Record)

// ErrorFunc receives the error that ended a subscription.
type ErrorFunc func(err error)

// PushFunc observes a completed refresh delivered to n subscribers.
type PushFunc func(n int)

// Limits bounds subscription window sizes.
type Limits struct {
	Default int
	Max     int
}

// Clamp returns limit bounded to [1, Max], substituting Default for
// non-positive values.
func (l Limits) Clamp(limit int) int {
	if limit <= 0 {
		limit = l.Default
	}
	return min(max(limit, 1), l.Max)
}

// Hub fans refreshed snapshots out to subscriptions. Notifications are
// coalesced: any number of Notify calls during a refresh trigger at most one
// further refresh.
type Hub struct {
	source Source
	limits Limits
	logger *slog.Logger
	dirty  chan struct{}

	// changes counts Notify calls so Subscribe can detect a change that
	// raced its first query.
	changes atomic.Uint64

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	onPush []PushFunc
}

// NewHub creates a Hub over source. Run or Start must be called for
// notifications to produce pushes.
func NewHub(source Source, limits Limits, logger *slog.Logger) *Hub {
	return &Hub{
		source: source,
		limits: limits,
		logger: logger.With("system", "feed"),
		dirty:  make(chan struct{}, 1),
		subs:   make(map[*Subscription]struct{}),
	}
}

// Limits returns the hub's window bounds.
func (h *Hub) Limits() Limits {
	return h.limits
}

// OnPush registers fn to observe each refresh.
func (h *Hub) OnPush(fn PushFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPush = append(h.onPush, fn)
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Subscribe registers a subscription, runs the standing query once, queues
// the result for render, and returns a handle that receives every later
// snapshot until it is closed or ctx is cancelled. A change notified while
// the first query runs triggers one more refresh. An error from the first
// query is returned directly and no subscription is kept.
func (h *Hub) Subscribe(
	ctx context.Context,
	limit int,
	render RenderFunc,
	onError ErrorFunc,
) (*Subscription, error) {
	limit = h.limits.Clamp(limit)

	sub := newSubscription(ctx, h, limit, render, onError)
	seen := h.changes.Load()

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	records, err := h.source.Recent(ctx, limit)
	if err != nil {
		h.remove(sub)
		sub.release()
		return nil, err
	}

	sub.deliver(records)
	go sub.run()

	if h.changes.Load() != seen {
		h.Notify()
	}

	h.logger.Debug("subscription opened", "limit", limit)
	return sub, nil
}

// Notify schedules a refresh. It never blocks.
func (h *Hub) Notify() {
	h.changes.Add(1)
	select {
	case h.dirty <- struct{}{}:
	default:
	}
}

// Listen routes database notifications on channel to Notify. Payloads name
// the app whose records changed; other apps are ignored. A listener failure
// ends every open subscription with that error, since changes made by other
// writers can no longer reach them.
func (h *Hub) Listen(db database.System, channel, appID string) {
	db.Listen(
		channel,
		func(payload string) {
			if payload == "" || payload == appID {
				h.Notify()
			}
		},
		h.FailAll,
	)
}

// FailAll ends every open subscription with err.
func (h *Hub) FailAll(err error) {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	if len(subs) > 0 {
		h.logger.Error("feed source failed", "error", err, "subscribers", len(subs))
	}
	for _, s := range subs {
		s.fail(err)
	}
}

// Run processes notifications until ctx is done, then closes every open
// subscription.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-h.dirty:
			h.refresh(ctx)
		}
	}
}

// Start runs the hub under the lifecycle coordinator.
func (h *Hub) Start(lc *lifecycle.Coordinator) error {
	h.logger.Info("starting feed hub", "default_limit", h.limits.Default, "max_limit", h.limits.Max)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Run(lc.Context())
	}()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		<-done
		h.logger.Info("feed hub stopped")
	})

	return nil
}

func (h *Hub) refresh(ctx context.Context) {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	widest := 0
	for s := range h.subs {
		subs = append(subs, s)
		widest = max(widest, s.limit)
	}
	observers := h.onPush
	h.mu.Unlock()

	if len(subs) == 0 {
		return
	}

	records, err := h.source.Recent(ctx, widest)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		h.logger.Error("feed refresh failed", "error", err, "subscribers", len(subs))
		for _, s := range subs {
			s.fail(err)
		}
		return
	}

	for _, s := range subs {
		s.deliver(records[:min(s.limit, len(records))])
	}

	for _, fn := range observers {
		fn(len(subs))
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}
