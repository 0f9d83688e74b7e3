package capture

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/sentinel/pkg/handlers"
	"github.com/JaimeStill/sentinel/pkg/openapi"
	"github.com/JaimeStill/sentinel/pkg/routes"
)

// Handler exposes the capture trigger.
type Handler struct {
	sys    System
	logger *slog.Logger
}

func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "capture"),
	}
}

func (h *Handler) Routes() routes.Group {
	result := openapi.ResponseJSON("Capture result", "CaptureResult")

	return routes.Group{
		Prefix: "/capture",
		Tags:   []string{"Capture"},
		Schemas: map[string]*openapi.Schema{
			"CaptureResult": {
				Type: "object",
				Properties: map[string]*openapi.Schema{
					"ok":      {Type: "boolean"},
					"outcome": {Type: "string", Enum: []any{"recorded", "not_ready", "nothing_to_record", "failed"}},
					"message": {Type: "string"},
					"record":  openapi.SchemaRef("Record"),
				},
			},
		},
		Routes: []routes.Route{
			{
				Method: "POST", Pattern: "", Handler: h.Capture,
				OpenAPI: &openapi.Operation{
					OperationID: "capture",
					Summary:     "Record evidence for the current detections",
					Responses: map[int]*openapi.Response{
						201: result,
						409: result,
						502: result,
						503: result,
					},
				},
			},
		},
	}
}

// Capture runs one capture and responds with its result.
func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	result := h.sys.Capture(r.Context())
	handlers.RespondJSON(w, result.Outcome.Status(), result)
}
