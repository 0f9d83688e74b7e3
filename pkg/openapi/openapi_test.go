package openapi_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/sentinel/pkg/openapi"
)

func TestNewSpec(t *testing.T) {
	cfg := &openapi.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	spec := openapi.NewSpec(cfg, "1.0.0")

	if spec.OpenAPI != "3.1.0" {
		t.Errorf("openapi version: got %s, want 3.1.0", spec.OpenAPI)
	}
	if spec.Info.Title != "Sentinel API" {
		t.Errorf("title: got %s", spec.Info.Title)
	}
	if spec.Info.Version != "1.0.0" {
		t.Errorf("version: got %s, want 1.0.0", spec.Info.Version)
	}
	if len(spec.Servers) != 0 {
		t.Errorf("servers: got %d, want 0", len(spec.Servers))
	}
	for _, name := range []string{"BadRequest", "NotFound", "Conflict", "ServiceUnavailable", "BadGateway"} {
		if _, ok := spec.Components.Responses[name]; !ok {
			t.Errorf("missing component response %s", name)
		}
	}
}

func TestNewSpecServer(t *testing.T) {
	spec := openapi.NewSpec(&openapi.Config{Title: "T", ServerURL: "http://localhost:8080"}, "1.0.0")

	if len(spec.Servers) != 1 || spec.Servers[0].URL != "http://localhost:8080" {
		t.Errorf("servers: got %+v", spec.Servers)
	}
}

func TestConfigEnvAndMerge(t *testing.T) {
	t.Setenv("TEST_OPENAPI_TITLE", "Env Title")

	cfg := openapi.Config{Description: "base"}
	cfg.Merge(&openapi.Config{ServerURL: "http://overlay"})
	if err := cfg.Finalize(&openapi.ConfigEnv{Title: "TEST_OPENAPI_TITLE"}); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if cfg.Title != "Env Title" {
		t.Errorf("title: got %s", cfg.Title)
	}
	if cfg.Description != "base" {
		t.Errorf("description: got %s", cfg.Description)
	}
	if cfg.ServerURL != "http://overlay" {
		t.Errorf("server_url: got %s", cfg.ServerURL)
	}
}

func TestAddOperation(t *testing.T) {
	spec := openapi.NewSpec(&openapi.Config{}, "1")

	spec.AddOperation("/items", "get", &openapi.Operation{Summary: "list"})
	spec.AddOperation("/items", "POST", &openapi.Operation{Summary: "create"})
	spec.AddOperation("/items", "PATCH", &openapi.Operation{Summary: "ignored"})

	item := spec.Paths["/items"]
	if item.Get == nil || item.Post == nil {
		t.Fatalf("path item: %+v", item)
	}
	if item.Put != nil || item.Delete != nil {
		t.Error("unexpected operations set")
	}
}

func TestRefHelpers(t *testing.T) {
	if got := openapi.SchemaRef("Record").Ref; got != "#/components/schemas/Record" {
		t.Errorf("schema ref: got %s", got)
	}
	if got := openapi.ResponseRef("NotFound").Ref; got != "#/components/responses/NotFound" {
		t.Errorf("response ref: got %s", got)
	}

	rb := openapi.RequestBodyJSON("ReviewRequest", true)
	if !rb.Required || rb.Content["application/json"].Schema.Ref != "#/components/schemas/ReviewRequest" {
		t.Errorf("request body: %+v", rb)
	}

	arr := openapi.ResponseArray("records", "Record")
	schema := arr.Content["application/json"].Schema
	if schema.Type != "array" || schema.Items.Ref != "#/components/schemas/Record" {
		t.Errorf("array schema: %+v", schema)
	}

	p := openapi.PathParam("id", "Record ID")
	if p.In != "path" || !p.Required || p.Schema.Format != "uuid" {
		t.Errorf("path param: %+v", p)
	}

	q := openapi.QueryParam("limit", "integer", "Max records", false)
	if q.In != "query" || q.Required || q.Schema.Type != "integer" {
		t.Errorf("query param: %+v", q)
	}
}

func TestServeSpec(t *testing.T) {
	spec := openapi.NewSpec(&openapi.Config{Title: "Served"}, "2.0.0")
	data, err := openapi.MarshalJSON(spec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	rec := httptest.NewRecorder()
	openapi.ServeSpec(data)(rec, httptest.NewRequest("GET", "/openapi.json", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content-type: got %s", ct)
	}

	body, _ := io.ReadAll(rec.Body)
	var decoded struct {
		Info struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		} `json:"info"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Info.Title != "Served" || decoded.Info.Version != "2.0.0" {
		t.Errorf("info: got %+v", decoded.Info)
	}
}
