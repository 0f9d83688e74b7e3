package feed

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/sentinel/internal/violations"
	"github.com/JaimeStill/sentinel/pkg/handlers"
	"github.com/JaimeStill/sentinel/pkg/lifecycle"
	"github.com/JaimeStill/sentinel/pkg/openapi"
	"github.com/JaimeStill/sentinel/pkg/routes"
)

var errStreamClosed = errors.New("stream closed")

// Snapshot is the websocket message carrying one feed push.
type Snapshot struct {
	Records []violations.Record `json:"records"`
}

// ErrorMessage is the final websocket message sent when a subscription fails.
type ErrorMessage struct {
	Error string `json:"error"`
}

// StreamConfig tunes the websocket transport.
type StreamConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
}

// Handler serves the live feed over websockets.
type Handler struct {
	hub      *Hub
	identity lifecycle.ReadinessChecker
	cfg      StreamConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a stream handler. Streams are refused with 503 until
// identity reports ready.
func NewHandler(
	hub *Hub,
	identity lifecycle.ReadinessChecker,
	cfg StreamConfig,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		hub:      hub,
		identity: identity,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.With("handler", "feed"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/violations",
		Tags:   []string{"Feed"},
		Schemas: map[string]*openapi.Schema{
			"Snapshot": {
				Type: "object",
				Properties: map[string]*openapi.Schema{
					"records": {Type: "array", Items: openapi.SchemaRef("Record")},
				},
			},
		},
		Routes: []routes.Route{
			{
				Method: "GET", Pattern: "/stream", Handler: h.Stream,
				OpenAPI: &openapi.Operation{
					OperationID: "streamViolations",
					Summary:     "Live feed of the most recent records (websocket)",
					Description: "Upgrades to a websocket. Each message is a Snapshot of the newest records. " +
						"A failed subscription sends one Error message and closes.",
					Parameters: []*openapi.Parameter{
						openapi.QueryParam("limit", "integer", "Window size", false),
					},
					Responses: map[int]*openapi.Response{
						101: {Description: "Switching to websocket"},
						503: openapi.ResponseRef("ServiceUnavailable"),
					},
				},
			},
		},
	}
}

// Stream upgrades the connection and pushes snapshots until either side closes.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	if !h.identity.Ready() {
		handlers.RespondError(w, h.logger, http.StatusServiceUnavailable, violations.ErrIdentityNotReady)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	g, ctx := errgroup.WithContext(r.Context())

	sub, err := h.hub.Subscribe(ctx, limit, h.render(conn), h.fail(conn))
	if err != nil {
		h.fail(conn)(err)
		return
	}
	defer sub.Close()

	g.Go(func() error {
		<-sub.Done()
		return errStreamClosed
	})

	g.Go(func() error {
		<-ctx.Done()
		return conn.Close()
	})

	g.Go(func() error {
		conn.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return err
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(h.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				deadline := time.Now().Add(h.cfg.WriteTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return err
				}
			}
		}
	})

	err = g.Wait()
	h.logger.Debug("stream closed", "limit", sub.Limit(), "reason", err)
}

func (h *Handler) render(conn *websocket.Conn) RenderFunc {
	return func(records []violations.Record) {
		conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
		if err := conn.WriteJSON(Snapshot{Records: records}); err != nil {
			h.logger.Warn("snapshot write failed", "error", err)
			conn.Close()
		}
	}
}

func (h *Handler) fail(conn *websocket.Conn) ErrorFunc {
	return func(err error) {
		h.logger.Error("feed subscription failed", "error", err)
		conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
		conn.WriteJSON(ErrorMessage{Error: err.Error()})
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(h.cfg.WriteTimeout),
		)
	}
}
