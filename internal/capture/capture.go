// Package capture runs the capture flow: take the detector's active set,
// build an evidence record, append it under the session identity, and
// report the outcome to registered observers.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/JaimeStill/sentinel/internal/detection"
	"github.com/JaimeStill/sentinel/internal/identity"
	"github.com/JaimeStill/sentinel/internal/violations"
)

// Outcome classifies a capture attempt.
type Outcome string

const (
	OutcomeRecorded        Outcome = "recorded"
	OutcomeNotReady        Outcome = "not_ready"
	OutcomeNothingToRecord Outcome = "nothing_to_record"
	OutcomeFailed          Outcome = "failed"
)

// Status maps the outcome to its HTTP status code.
func (o Outcome) Status() int {
	switch o {
	case OutcomeRecorded:
		return http.StatusCreated
	case OutcomeNotReady:
		return http.StatusServiceUnavailable
	case OutcomeNothingToRecord:
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

// Result reports one capture attempt.
type Result struct {
	OK      bool               `json:"ok"`
	Outcome Outcome            `json:"outcome"`
	Message string             `json:"message"`
	Record  *violations.Record `json:"record,omitempty"`
}

// Observer is notified after every capture attempt.
type Observer interface {
	OnCaptureResult(Result)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Result)

func (f ObserverFunc) OnCaptureResult(r Result) { f(r) }

// Detector supplies the active detection set.
type Detector interface {
	Current() detection.ActiveSet
}

// Sessions supplies the established identity.
type Sessions interface {
	Session() (identity.Session, bool)
}

// Recorder appends built records.
type Recorder interface {
	Append(ctx context.Context, rec violations.Record, session identity.Session) (*violations.Record, error)
}

// System runs captures and exposes them over HTTP.
type System interface {
	Handler() *Handler
	Capture(ctx context.Context) Result
	Observe(o Observer)
}

type service struct {
	detector Detector
	sessions Sessions
	recorder Recorder
	site     violations.Site
	now      func() time.Time
	logger   *slog.Logger

	mu        sync.RWMutex
	observers []Observer
}

// New creates a capture System. A nil now uses time.Now.
func New(
	detector Detector,
	sessions Sessions,
	recorder Recorder,
	site violations.Site,
	now func() time.Time,
	logger *slog.Logger,
) System {
	if now == nil {
		now = time.Now
	}
	return &service{
		detector: detector,
		sessions: sessions,
		recorder: recorder,
		site:     site,
		now:      now,
		logger:   logger.With("system", "capture"),
	}
}

func (s *service) Handler() *Handler {
	return NewHandler(s, s.logger)
}

func (s *service) Observe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *service) Capture(ctx context.Context) Result {
	result := s.capture(ctx)

	s.mu.RLock()
	observers := s.observers
	s.mu.RUnlock()

	for _, o := range observers {
		o.OnCaptureResult(result)
	}
	return result
}

func (s *service) capture(ctx context.Context) Result {
	session, ok := s.sessions.Session()
	if !ok || !session.Ready {
		s.logger.Warn("capture refused", "reason", "identity not ready")
		return Result{Outcome: OutcomeNotReady, Message: "identity not ready"}
	}

	rec, err := violations.Build(s.detector.Current(), s.now(), s.site)
	if err != nil {
		s.logger.Info("capture refused", "reason", err)
		return Result{Outcome: OutcomeNothingToRecord, Message: "nothing to record"}
	}

	saved, err := s.recorder.Append(ctx, rec, session)
	if err != nil {
		if errors.Is(err, violations.ErrIdentityNotReady) {
			return Result{Outcome: OutcomeNotReady, Message: "identity not ready"}
		}
		s.logger.Error("capture failed", "error", err)
		return Result{Outcome: OutcomeFailed, Message: "failed to record evidence: " + err.Error()}
	}

	return Result{
		OK:      true,
		Outcome: OutcomeRecorded,
		Message: "evidence recorded",
		Record:  saved,
	}
}
