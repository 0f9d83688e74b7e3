package capture_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/JaimeStill/sentinel/internal/capture"
	"github.com/JaimeStill/sentinel/internal/detection"
	"github.com/JaimeStill/sentinel/internal/feed"
	"github.com/JaimeStill/sentinel/internal/identity"
	"github.com/JaimeStill/sentinel/internal/violations"
	"github.com/JaimeStill/sentinel/pkg/routes"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var site = violations.Site{
	Location: "Main St & 5th Ave Intersection",
	GPS:      violations.GPS{Lat: 40.7128, Lon: -74.0060},
}

var captureTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func fixedNow() time.Time { return captureTime }

type staticDetector detection.ActiveSet

func (d staticDetector) Current() detection.ActiveSet { return detection.ActiveSet(d) }

type staticSessions struct {
	session identity.Session
	ok      bool
}

func (s staticSessions) Session() (identity.Session, bool) { return s.session, s.ok }

var readySession = staticSessions{
	session: identity.Session{ID: "user-1", Method: identity.MethodAnonymous, Ready: true},
	ok:      true,
}

// store is an in-memory collection acting as both gateway and feed source.
type store struct {
	mu      sync.Mutex
	records []violations.Record
	appends int
	err     error
	hub     *feed.Hub
}

func (s *store) Append(_ context.Context, rec violations.Record, session identity.Session) (*violations.Record, error) {
	s.mu.Lock()
	s.appends++
	if s.err != nil {
		s.mu.Unlock()
		return nil, s.err
	}

	ts := captureTime.Add(time.Duration(len(s.records)+1) * time.Second)
	rec.ID = uuid.New()
	rec.Timestamp = &ts
	rec.RecordedByUserID = session.ID
	rec.Status = violations.StatusPendingReview
	s.records = append(s.records, rec)
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.Notify()
	}
	return &rec, nil
}

func (s *store) Recent(_ context.Context, limit int) ([]violations.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.records)
	slices.Reverse(out)
	return out[:min(limit, len(out))], nil
}

func (s *store) appendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appends
}

// scripted yields a fixed sequence of Float64 draws.
type scripted struct {
	vals []float64
	i    int
}

func (s *scripted) Uint64() uint64 {
	f := s.vals[s.i%len(s.vals)]
	s.i++
	return uint64(f * (1 << 53))
}

func abcd() detection.Catalog {
	return detection.Catalog{
		{Label: "A", DisplayClass: "a", Region: detection.Region{X: 10, Y: 10, Width: 20, Height: 20}},
		{Label: "B", DisplayClass: "b", Region: detection.Region{X: 40, Y: 10, Width: 20, Height: 20}},
		{Label: "C", DisplayClass: "c", Region: detection.Region{X: 10, Y: 50, Width: 20, Height: 20}},
		{Label: "D", DisplayClass: "d", Region: detection.Region{X: 70, Y: 70, Width: 20, Height: 20}},
	}
}

func TestCaptureScenarioAC(t *testing.T) {
	rng := rand.New(&scripted{vals: []float64{0.1, 0, 0, 0.9, 0.2, 0, 0, 0.95}})
	detector := detection.New(abcd(), detection.NewGenerator(rng), 0.7, time.Hour, discard())

	active := detector.Tick()
	if diff := cmp.Diff([]string{"A", "C"}, active.Labels()); diff != "" {
		t.Fatalf("generate (-want +got):\n%s", diff)
	}

	st := &store{}
	hub := feed.NewHub(st, feed.Limits{Default: 15, Max: 100}, discard())
	st.hub = hub

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	pushes := make(chan []violations.Record, 4)
	sub, err := hub.Subscribe(ctx, 15, func(r []violations.Record) { pushes <- r }, func(error) {})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	<-pushes

	svc := capture.New(detector, readySession, st, site, fixedNow, discard())

	result := svc.Capture(ctx)
	if !result.OK || result.Outcome != capture.OutcomeRecorded {
		t.Fatalf("capture failed: %+v", result)
	}
	if result.Message != "evidence recorded" {
		t.Errorf("message: got %q", result.Message)
	}
	if !result.Record.CaptureTimeLocal.Equal(captureTime) {
		t.Errorf("capture time: got %v", result.Record.CaptureTimeLocal)
	}

	select {
	case records := <-pushes:
		if len(records) != 1 {
			t.Fatalf("push size: got %d", len(records))
		}
		got := records[0]
		if diff := cmp.Diff([]string{"A", "C"}, got.ViolationTypes); diff != "" {
			t.Errorf("pushed types (-want +got):\n%s", diff)
		}
		if got.Status != violations.StatusPendingReview {
			t.Errorf("pushed status: got %s", got.Status)
		}
		if got.RecordedByUserID != "user-1" {
			t.Errorf("recorded by: got %s", got.RecordedByUserID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not push the appended record")
	}
}

func TestCaptureEmptySetNeverAppends(t *testing.T) {
	st := &store{}
	svc := capture.New(staticDetector{}, readySession, st, site, fixedNow, discard())

	var observed []capture.Result
	svc.Observe(capture.ObserverFunc(func(r capture.Result) { observed = append(observed, r) }))

	result := svc.Capture(context.Background())

	if result.OK || result.Outcome != capture.OutcomeNothingToRecord {
		t.Errorf("result: %+v", result)
	}
	if result.Message != "nothing to record" {
		t.Errorf("message: got %q", result.Message)
	}
	if st.appendCount() != 0 {
		t.Errorf("append called %d times", st.appendCount())
	}
	if len(observed) != 1 || observed[0].Outcome != capture.OutcomeNothingToRecord {
		t.Errorf("observers: %+v", observed)
	}
}

func TestCaptureIdentityNotReady(t *testing.T) {
	st := &store{}
	detector := staticDetector(abcd()[:1])
	svc := capture.New(detector, staticSessions{}, st, site, fixedNow, discard())

	result := svc.Capture(context.Background())

	if result.Outcome != capture.OutcomeNotReady || result.Message != "identity not ready" {
		t.Errorf("result: %+v", result)
	}
	if st.appendCount() != 0 {
		t.Error("append attempted without identity")
	}
}

func TestCaptureRemoteFailure(t *testing.T) {
	st := &store{err: errors.New("write rejected")}
	svc := capture.New(staticDetector(abcd()[:2]), readySession, st, site, fixedNow, discard())

	result := svc.Capture(context.Background())

	if result.OK || result.Outcome != capture.OutcomeFailed {
		t.Errorf("result: %+v", result)
	}
	if result.Message != "failed to record evidence: write rejected" {
		t.Errorf("message: got %q", result.Message)
	}
	if st.appendCount() != 1 {
		t.Errorf("append attempts: got %d, want exactly 1", st.appendCount())
	}
}

func TestCaptureLocalFallbackIdentity(t *testing.T) {
	failing := anonymousFunc(func(context.Context, string) (string, error) {
		return "", errors.New("anonymous sign-in disabled")
	})
	ids := identity.New(identity.Config{AppID: "app"}, nil, failing, discard())

	session, err := ids.Establish(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if session.Method != identity.MethodLocalFallback {
		t.Fatalf("method: got %s", session.Method)
	}

	st := &store{}
	svc := capture.New(staticDetector(abcd()[:1]), ids, st, site, fixedNow, discard())

	result := svc.Capture(context.Background())
	if !result.OK {
		t.Fatalf("capture failed: %+v", result)
	}
	if result.Record.RecordedByUserID != session.ID {
		t.Errorf("recorded by: got %s, want %s", result.Record.RecordedByUserID, session.ID)
	}
}

type anonymousFunc func(ctx context.Context, appID string) (string, error)

func (f anonymousFunc) SignIn(ctx context.Context, appID string) (string, error) {
	return f(ctx, appID)
}

func TestOutcomeStatus(t *testing.T) {
	tests := []struct {
		outcome capture.Outcome
		want    int
	}{
		{capture.OutcomeRecorded, http.StatusCreated},
		{capture.OutcomeNothingToRecord, http.StatusConflict},
		{capture.OutcomeNotReady, http.StatusServiceUnavailable},
		{capture.OutcomeFailed, http.StatusBadGateway},
	}

	for _, tt := range tests {
		if got := tt.outcome.Status(); got != tt.want {
			t.Errorf("%s.Status() = %d, want %d", tt.outcome, got, tt.want)
		}
	}
}

func TestHandlerCapture(t *testing.T) {
	tests := []struct {
		name     string
		detector staticDetector
		sessions staticSessions
		err      error
		code     int
	}{
		{"recorded", staticDetector(abcd()[:2]), readySession, nil, http.StatusCreated},
		{"nothing to record", staticDetector{}, readySession, nil, http.StatusConflict},
		{"not ready", staticDetector(abcd()[:2]), staticSessions{}, nil, http.StatusServiceUnavailable},
		{"remote failure", staticDetector(abcd()[:2]), readySession, errors.New("timeout"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := capture.New(tt.detector, tt.sessions, &store{err: tt.err}, site, fixedNow, discard())

			mux := http.NewServeMux()
			routes.Register(mux, svc.Handler().Routes())

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("POST", "/capture", nil))

			if rec.Code != tt.code {
				t.Errorf("status: got %d, want %d", rec.Code, tt.code)
			}

			var result capture.Result
			if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
				t.Fatal(err)
			}
			if result.OK != (tt.code == http.StatusCreated) {
				t.Errorf("ok: got %v", result.OK)
			}
		})
	}
}
