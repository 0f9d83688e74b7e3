package detection

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/sentinel/pkg/handlers"
	"github.com/JaimeStill/sentinel/pkg/openapi"
	"github.com/JaimeStill/sentinel/pkg/routes"
)

// Handler provides HTTP endpoints for the simulated detector.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler over the given detection system.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "detections"),
	}
}

// Routes returns the route group definition for detection endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:  "/detections",
		Tags:    []string{"Detections"},
		Schemas: schemas,
		Routes: []routes.Route{
			{
				Method: "GET", Pattern: "", Handler: h.Current,
				OpenAPI: &openapi.Operation{
					OperationID: "currentDetections",
					Summary:     "Active detections from the latest tick",
					Responses:   map[int]*openapi.Response{200: openapi.ResponseArray("Active set", "Candidate")},
				},
			},
			{
				Method: "POST", Pattern: "/tick", Handler: h.Tick,
				OpenAPI: &openapi.Operation{
					OperationID: "tickDetections",
					Summary:     "Force a fresh detection draw",
					Responses:   map[int]*openapi.Response{200: openapi.ResponseArray("Active set", "Candidate")},
				},
			},
			{
				Method: "GET", Pattern: "/catalog", Handler: h.Catalog,
				OpenAPI: &openapi.Operation{
					OperationID: "detectionCatalog",
					Summary:     "Candidates the detector samples from",
					Responses:   map[int]*openapi.Response{200: openapi.ResponseArray("Catalog", "Candidate")},
				},
			},
		},
	}
}

// Current returns the active set from the latest tick.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.sys.Current())
}

// Tick forces a draw and returns the new active set.
func (h *Handler) Tick(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.sys.Tick())
}

// Catalog returns the detector catalog.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.sys.Catalog())
}

var schemas = map[string]*openapi.Schema{
	"Candidate": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"label":        {Type: "string", Example: "Red Light Jump"},
			"displayClass": {Type: "string", Example: "redlight"},
			"region": {
				Type:        "object",
				Description: "Bounding box as percent of frame",
				Properties: map[string]*openapi.Schema{
					"x":      {Type: "number"},
					"y":      {Type: "number"},
					"width":  {Type: "number"},
					"height": {Type: "number"},
				},
			},
		},
	},
}
