package feed

import (
	"context"
	"sync"

	"github.com/JaimeStill/sentinel/internal/violations"
)

// Subscription is a cancellable handle on a live feed. Snapshots are
// delivered on a dedicated goroutine; a newer snapshot replaces one that
// has not yet been rendered.
type Subscription struct {
	hub     *Hub
	limit   int
	render  RenderFunc
	onError ErrorFunc

	ctx     context.Context
	cancel  context.CancelFunc
	mailbox chan []violations.Record
	done    chan struct{}

	mu  sync.Mutex
	err error
}

func newSubscription(
	parent context.Context,
	hub *Hub,
	limit int,
	render RenderFunc,
	onError ErrorFunc,
) *Subscription {
	ctx, cancel := context.WithCancel(parent)
	return &Subscription{
		hub:     hub,
		limit:   limit,
		render:  render,
		onError: onError,
		ctx:     ctx,
		cancel:  cancel,
		mailbox: make(chan []violations.Record, 1),
		done:    make(chan struct{}),
	}
}

// Limit returns the subscription's window size.
func (s *Subscription) Limit() int {
	return s.limit
}

// Close stops delivery. It is safe to call more than once and from within
// a render callback. Done reports when release has finished.
func (s *Subscription) Close() {
	s.cancel()
}

// Done is closed once the subscription has been released from its hub and
// will make no further callbacks.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the subscription, if any.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) deliver(records []violations.Record) {
	select {
	case s.mailbox <- records:
		return
	default:
	}

	select {
	case <-s.mailbox:
	default:
	}

	select {
	case s.mailbox <- records:
	default:
	}
}

// release ends a subscription whose run loop never started.
func (s *Subscription) release() {
	s.cancel()
	close(s.done)
}

func (s *Subscription) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.cancel()
}

func (s *Subscription) run() {
	defer close(s.done)
	defer s.hub.remove(s)

	for {
		select {
		case <-s.ctx.Done():
			if err := s.Err(); err != nil && s.onError != nil {
				s.onError(err)
			}
			return
		case records := <-s.mailbox:
			if s.ctx.Err() != nil {
				continue
			}
			s.render(records)
		}
	}
}
