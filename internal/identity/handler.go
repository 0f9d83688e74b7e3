package identity

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/sentinel/pkg/handlers"
	"github.com/JaimeStill/sentinel/pkg/openapi"
	"github.com/JaimeStill/sentinel/pkg/routes"
)

// Handler exposes the current session identity.
type Handler struct {
	sys    System
	logger *slog.Logger
}

func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "identity"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:  "/identity",
		Tags:    []string{"Identity"},
		Schemas: schemas,
		Routes: []routes.Route{
			{
				Method: "GET", Pattern: "", Handler: h.Get,
				OpenAPI: &openapi.Operation{
					OperationID: "getIdentity",
					Summary:     "Current session identity",
					Responses: map[int]*openapi.Response{
						200: openapi.ResponseJSON("Established session", "Session"),
						503: openapi.ResponseRef("ServiceUnavailable"),
					},
				},
			},
		},
	}
}

// Get returns the established session, or 503 while establishment is pending.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sys.Session()
	if !ok {
		handlers.RespondError(w, h.logger, MapHTTPStatus(ErrNotReady), ErrNotReady)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, s)
}

var schemas = map[string]*openapi.Schema{
	"Session": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"id":             {Type: "string"},
			"establishedVia": {Type: "string", Enum: []any{"custom-token", "anonymous", "local-fallback"}},
			"ready":          {Type: "boolean"},
			"establishedAt":  {Type: "string", Format: "date-time"},
		},
	},
}
