package feed_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JaimeStill/sentinel/internal/feed"
	"github.com/JaimeStill/sentinel/pkg/routes"
)

type readiness bool

func (r readiness) Ready() bool { return bool(r) }

func streamServer(t *testing.T, hub *feed.Hub, ready bool) *httptest.Server {
	t.Helper()
	h := feed.NewHandler(hub, readiness(ready), feed.StreamConfig{
		PingInterval: time.Second,
		WriteTimeout: time.Second,
	}, discard())

	mux := http.NewServeMux()
	routes.Register(mux, h.Routes())

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/violations/stream" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) feed.Snapshot {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var s feed.Snapshot
	if err := conn.ReadJSON(&s); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	return s
}

func TestStreamPushesSnapshots(t *testing.T) {
	src := newMemorySource()
	src.append("A")
	hub := startHub(t, src, feed.Limits{Default: 15, Max: 100})
	srv := streamServer(t, hub, true)

	conn := dial(t, srv, "?limit=2")

	if got := readSnapshot(t, conn); len(got.Records) != 1 {
		t.Fatalf("initial snapshot: got %d records, want 1", len(got.Records))
	}

	src.append("B")
	latest := src.append("C")
	hub.Notify()

	got := readSnapshot(t, conn)
	if len(got.Records) != 2 {
		t.Fatalf("pushed snapshot: got %d records, want 2", len(got.Records))
	}
	if got.Records[0].ID != latest.ID {
		t.Errorf("newest record must lead: got %s, want %s", got.Records[0].ID, latest.ID)
	}
}

func TestStreamRefusedWhileIdentityNotReady(t *testing.T) {
	hub := startHub(t, newMemorySource(), feed.Limits{Default: 15, Max: 100})
	srv := streamServer(t, hub, false)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/violations/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status: got %v, want 503", resp)
	}
}

func TestStreamSendsErrorOnceThenCloses(t *testing.T) {
	src := newMemorySource()
	hub := startHub(t, src, feed.Limits{Default: 15, Max: 100})
	srv := streamServer(t, hub, true)

	conn := dial(t, srv, "")
	readSnapshot(t, conn)

	src.setErr(errors.New("permission denied"))
	hub.Notify()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg feed.ErrorMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read error message: %v", err)
	}
	if msg.Error != "permission denied" {
		t.Errorf("error message: got %q", msg.Error)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to close after error")
	}
}

func TestStreamClientCloseReleasesSubscription(t *testing.T) {
	src := newMemorySource()
	hub := startHub(t, src, feed.Limits{Default: 15, Max: 100})
	srv := streamServer(t, hub, true)

	conn := dial(t, srv, "")
	readSnapshot(t, conn)

	if hub.Subscribers() != 1 {
		t.Fatalf("subscribers: got %d, want 1", hub.Subscribers())
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for hub.Subscribers() != 0 {
		select {
		case <-ctx.Done():
			t.Fatal("subscription not released after client close")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
