package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/sentinel/pkg/openapi"
	"github.com/JaimeStill/sentinel/pkg/routes"
)

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func testGroups() routes.Group {
	return routes.Group{
		Prefix: "/violations",
		Tags:   []string{"Violations"},
		Schemas: map[string]*openapi.Schema{
			"Record": {Type: "object"},
		},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: ok, OpenAPI: &openapi.Operation{Summary: "List"}},
			{Method: "GET", Pattern: "/{id}", Handler: ok, OpenAPI: &openapi.Operation{Summary: "Find"}},
			{Method: "GET", Pattern: "/internal", Handler: ok},
		},
		Children: []routes.Group{
			{
				Prefix: "/{id}/media",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "/{name...}", Handler: ok, OpenAPI: &openapi.Operation{Summary: "Download"}},
					{Method: "PUT", Pattern: "/{name...}", Handler: ok, OpenAPI: &openapi.Operation{Summary: "Upload", Tags: []string{"Media"}}},
				},
			},
		},
	}
}

func TestRegisterHandlers(t *testing.T) {
	mux := http.NewServeMux()
	routes.Register(mux, testGroups())

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"list", "GET", "/violations"},
		{"find", "GET", "/violations/123"},
		{"undocumented", "GET", "/violations/internal"},
		{"nested download", "GET", "/violations/123/media/photo.png"},
		{"nested upload", "PUT", "/violations/123/media/a/b.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != http.StatusOK {
				t.Errorf("status: got %d, want 200", rec.Code)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	spec := openapi.NewSpec(&openapi.Config{Title: "Test"}, "1.0.0")
	routes.Describe(spec, "/api", testGroups())

	list, ok := spec.Paths["/api/violations"]
	if !ok || list.Get == nil || list.Get.Summary != "List" {
		t.Fatalf("list path missing: %+v", spec.Paths)
	}
	if len(list.Get.Tags) != 1 || list.Get.Tags[0] != "Violations" {
		t.Errorf("list tags: got %v", list.Get.Tags)
	}

	if _, ok := spec.Paths["/api/violations/internal"]; ok {
		t.Error("undocumented route should not appear in spec")
	}

	media, ok := spec.Paths["/api/violations/{id}/media/{name}"]
	if !ok {
		t.Fatalf("media path missing: %v", spec.Paths)
	}
	if media.Get == nil || media.Get.Tags[0] != "Violations" {
		t.Error("child group should inherit parent tags")
	}
	if media.Put == nil || media.Put.Tags[0] != "Media" {
		t.Error("operation tags should take precedence")
	}

	if _, ok := spec.Components.Schemas["Record"]; !ok {
		t.Error("group schemas should merge into components")
	}
}
