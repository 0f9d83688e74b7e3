package violations

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/sentinel/pkg/handlers"
	"github.com/JaimeStill/sentinel/pkg/openapi"
	"github.com/JaimeStill/sentinel/pkg/pagination"
	"github.com/JaimeStill/sentinel/pkg/routes"
)

// Handler provides HTTP endpoints for violation history, review, and media.
type Handler struct {
	sys           System
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// MediaResult reports where uploaded evidence media was stored.
type MediaResult struct {
	ID  uuid.UUID `json:"id"`
	Key string    `json:"key"`
}

// NewHandler creates a Handler with the given system, logger, pagination config, and upload size limit.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
	maxUploadSize int64,
) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "violations"),
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for violation endpoints.
func (h *Handler) Routes() routes.Group {
	idParam := openapi.PathParam("id", "Violation ID")

	return routes.Group{
		Prefix:  "/violations",
		Tags:    []string{"Violations"},
		Schemas: schemas,
		Routes: []routes.Route{
			{
				Method: "GET", Pattern: "", Handler: h.List,
				OpenAPI: &openapi.Operation{
					OperationID: "listViolations",
					Summary:     "Paginated evidence history",
					Parameters: []*openapi.Parameter{
						openapi.QueryParam("page", "integer", "Page number", false),
						openapi.QueryParam("pageSize", "integer", "Results per page", false),
						openapi.QueryParam("search", "string", "Matches location or recorder", false),
						openapi.QueryParam("sort", "string", "Sort fields, e.g. -Timestamp", false),
						openapi.QueryParam("status", "string", "Review status", false),
						openapi.QueryParam("type", "string", "Violation label", false),
						openapi.QueryParam("location", "string", "Location contains", false),
						openapi.QueryParam("recorded_by", "string", "Recorder identity", false),
						openapi.QueryParam("from", "string", "Server timestamp lower bound (RFC 3339)", false),
						openapi.QueryParam("to", "string", "Server timestamp upper bound (RFC 3339)", false),
					},
					Responses: map[int]*openapi.Response{200: openapi.ResponseJSON("Page of records", "RecordPage")},
				},
			},
			{
				Method: "POST", Pattern: "/search", Handler: h.Search,
				OpenAPI: &openapi.Operation{
					OperationID: "searchViolations",
					Summary:     "Search evidence history",
					RequestBody: openapi.RequestBodyJSON("PageRequest", true),
					Responses: map[int]*openapi.Response{
						200: openapi.ResponseJSON("Page of records", "RecordPage"),
						400: openapi.ResponseRef("BadRequest"),
					},
				},
			},
			{
				Method: "GET", Pattern: "/{id}", Handler: h.Find,
				OpenAPI: &openapi.Operation{
					OperationID: "getViolation",
					Summary:     "Find a record",
					Parameters:  []*openapi.Parameter{idParam},
					Responses: map[int]*openapi.Response{
						200: openapi.ResponseJSON("Record", "Record"),
						404: openapi.ResponseRef("NotFound"),
					},
				},
			},
			{
				Method: "PUT", Pattern: "/{id}/status", Handler: h.Review,
				OpenAPI: &openapi.Operation{
					OperationID: "reviewViolation",
					Summary:     "Set the review outcome of a record",
					Parameters:  []*openapi.Parameter{idParam},
					RequestBody: openapi.RequestBodyJSON("ReviewCommand", true),
					Responses: map[int]*openapi.Response{
						200: openapi.ResponseJSON("Reviewed record", "Record"),
						400: openapi.ResponseRef("BadRequest"),
						404: openapi.ResponseRef("NotFound"),
					},
				},
			},
			{
				Method: "POST", Pattern: "/{id}/media", Handler: h.UploadMedia,
				OpenAPI: &openapi.Operation{
					OperationID: "uploadViolationMedia",
					Summary:     "Attach evidence media to a record",
					Parameters:  []*openapi.Parameter{idParam},
					RequestBody: &openapi.RequestBody{
						Required: true,
						Content: map[string]*openapi.MediaType{
							"multipart/form-data": {Schema: &openapi.Schema{
								Type:       "object",
								Properties: map[string]*openapi.Schema{"file": {Type: "string", Format: "binary"}},
								Required:   []string{"file"},
							}},
						},
					},
					Responses: map[int]*openapi.Response{
						201: openapi.ResponseJSON("Stored media", "MediaResult"),
						400: openapi.ResponseRef("BadRequest"),
						404: openapi.ResponseRef("NotFound"),
						409: openapi.ResponseRef("Conflict"),
					},
				},
			},
			{
				Method: "GET", Pattern: "/{id}/media/{filename}", Handler: h.DownloadMedia,
				OpenAPI: &openapi.Operation{
					OperationID: "downloadViolationMedia",
					Summary:     "Download evidence media",
					Parameters: []*openapi.Parameter{
						idParam,
						{Name: "filename", In: "path", Required: true, Schema: &openapi.Schema{Type: "string"}},
					},
					Responses: map[int]*openapi.Response{
						200: {Description: "Media stream"},
						404: openapi.ResponseRef("NotFound"),
					},
				},
			},
		},
	}
}

// List returns a paginated list of records with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Search accepts a JSON body with pagination and filter criteria.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single record by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	rec, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rec)
}

// Review applies a reviewer outcome to a record.
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var cmd ReviewCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	rec, err := h.sys.Review(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rec)
}

// UploadMedia stores the multipart "file" field as evidence media for a record.
// Media is write-once; re-uploading the same filename returns 409.
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadSize {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key, err := h.sys.UploadMedia(r.Context(), id, header.Filename, contentType, file)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, MediaResult{ID: id, Key: key})
}

// DownloadMedia streams stored evidence media for a record.
func (h *Handler) DownloadMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	blob, err := h.sys.DownloadMedia(r.Context(), id, r.PathValue("filename"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer blob.Body.Close()

	if blob.ContentType != "" {
		w.Header().Set("Content-Type", blob.ContentType)
	}
	if blob.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(blob.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, blob.Body); err != nil {
		h.logger.Warn("media stream interrupted", "id", id, "error", err)
	}
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return uuid.Nil, false
	}
	return id, true
}

var schemas = map[string]*openapi.Schema{
	"Record": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"id":               {Type: "string", Format: "uuid"},
			"appId":            {Type: "string"},
			"violationTypes":   {Type: "array", Items: &openapi.Schema{Type: "string"}},
			"captureTimeLocal": {Type: "string", Format: "date-time"},
			"timestamp":        {Type: "string", Format: "date-time", Description: "Server timestamp; null while processing"},
			"location":         {Type: "string"},
			"gps": {
				Type: "object",
				Properties: map[string]*openapi.Schema{
					"lat": {Type: "number"},
					"lon": {Type: "number"},
				},
			},
			"evidenceUrl":      {Type: "string"},
			"recordedByUserId": {Type: "string"},
			"status":           {Type: "string", Enum: []any{"PENDING_REVIEW", "COMPLETED", "REJECTED"}},
			"reviewedBy":       {Type: "string"},
			"reviewedAt":       {Type: "string", Format: "date-time"},
		},
	},
	"RecordPage": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"data":       {Type: "array", Items: openapi.SchemaRef("Record")},
			"total":      {Type: "integer"},
			"page":       {Type: "integer"},
			"pageSize":   {Type: "integer"},
			"totalPages": {Type: "integer"},
			"hasNext":    {Type: "boolean"},
		},
	},
	"ReviewCommand": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"status":      {Type: "string", Enum: []any{"COMPLETED", "REJECTED"}},
			"reviewed_by": {Type: "string"},
		},
		Required: []string{"status", "reviewed_by"},
	},
	"MediaResult": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"id":  {Type: "string", Format: "uuid"},
			"key": {Type: "string"},
		},
	},
}
