package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/sentinel/internal/api"
	"github.com/JaimeStill/sentinel/internal/config"
	"github.com/JaimeStill/sentinel/internal/infrastructure"
	"github.com/JaimeStill/sentinel/pkg/database"
	"github.com/JaimeStill/sentinel/pkg/middleware"
	"github.com/JaimeStill/sentinel/pkg/openapi"
	"github.com/JaimeStill/sentinel/pkg/pagination"
	"github.com/JaimeStill/sentinel/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=sentinelstore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/sentinelstore;"

func validConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     "1m",
			WriteTimeout:    "15m",
			ShutdownTimeout: "30s",
		},
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "sentinel",
			User:            "sentinel",
			Password:        "sentinel",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage: storage.Config{
			ContainerName:    "evidence",
			ConnectionString: azuriteConnString,
		},
		API: config.APIConfig{
			BasePath:      "/api",
			MaxUploadSize: 1 << 20,
			CORS: middleware.CORSConfig{
				Enabled: false,
			},
			Pagination: pagination.Config{
				DefaultPageSize: 20,
				MaxPageSize:     100,
			},
			OpenAPI: openapi.Config{
				Title: "Sentinel",
			},
		},
		Identity: config.IdentityConfig{
			AppID:   "sentinel-test",
			Timeout: "5s",
		},
		Detection: config.DetectionConfig{
			Probability: 0.5,
			Interval:    "2s",
		},
		Site: config.SiteConfig{
			Location: "Elm St & 1st Ave",
			Lat:      51.5,
			Lon:      -0.12,
		},
		Feed: config.FeedConfig{
			Limit:        10,
			MaxLimit:     50,
			Channel:      "violations_changed",
			PingInterval: "30s",
			WriteTimeout: "10s",
		},
		Metrics: config.MetricsConfig{
			Namespace: "sentinel",
		},
		ShutdownTimeout: "30s",
		Version:         "0.1.0",
	}
}

func setupInfra(t *testing.T) *infrastructure.Infrastructure {
	t.Helper()
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	return infra
}

func TestNewModule(t *testing.T) {
	cfg := validConfig()
	infra := setupInfra(t)

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	if m.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", m.Prefix())
	}
	if m.Domain == nil {
		t.Fatal("module domain is nil")
	}
}

func TestNewRuntime(t *testing.T) {
	cfg := validConfig()
	infra := setupInfra(t)

	runtime := api.NewRuntime(cfg, infra)

	if runtime.Pagination.DefaultPageSize != 20 {
		t.Errorf("pagination default page size: got %d, want 20", runtime.Pagination.DefaultPageSize)
	}
	if runtime.Pagination.MaxPageSize != 100 {
		t.Errorf("pagination max page size: got %d, want 100", runtime.Pagination.MaxPageSize)
	}
	if runtime.Logger == nil {
		t.Error("runtime logger is nil")
	}
	if runtime.Database == nil {
		t.Error("runtime database is nil")
	}
	if runtime.Storage == nil {
		t.Error("runtime storage is nil")
	}
	if runtime.Lifecycle == nil {
		t.Error("runtime lifecycle is nil")
	}
	if runtime.Metrics != infra.Metrics {
		t.Error("runtime metrics should be shared with infrastructure")
	}
}

func TestNewDomain(t *testing.T) {
	cfg := validConfig()
	runtime := api.NewRuntime(cfg, setupInfra(t))

	domain, err := api.NewDomain(cfg, runtime)
	if err != nil {
		t.Fatalf("NewDomain() error = %v", err)
	}

	if domain.Detection == nil || domain.Identity == nil || domain.Violations == nil {
		t.Error("expected detection, identity, and violations systems")
	}
	if domain.Feed == nil || domain.Capture == nil {
		t.Error("expected feed and capture systems")
	}
	if domain.Events != nil {
		t.Error("events should be nil without a broker")
	}
	if len(domain.Detection.Catalog()) == 0 {
		t.Error("expected the default detection catalog")
	}
}

func TestNewDomainEvents(t *testing.T) {
	cfg := validConfig()
	cfg.Events.Broker = "tcp://localhost:1883"
	cfg.Events.ClientID = "sentinel-test"
	cfg.Events.TopicPrefix = "sentinel"
	cfg.Events.ConnectTimeout = "1s"

	domain, err := api.NewDomain(cfg, api.NewRuntime(cfg, setupInfra(t)))
	if err != nil {
		t.Fatalf("NewDomain() error = %v", err)
	}

	if domain.Events == nil {
		t.Fatal("expected an events emitter when a broker is configured")
	}
	if got := domain.Events.Topic(); got != "sentinel/sentinel-test/violations" {
		t.Errorf("topic: got %s", got)
	}
}

func TestNewDomainMissingCatalog(t *testing.T) {
	cfg := validConfig()
	cfg.Detection.CatalogPath = "does-not-exist.yaml"

	if _, err := api.NewDomain(cfg, api.NewRuntime(cfg, setupInfra(t))); err == nil {
		t.Fatal("expected error for missing catalog file")
	}
}

func TestModuleRoutes(t *testing.T) {
	m, err := api.NewModule(validConfig(), setupInfra(t))
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"identity before establish", "GET", "/api/identity", http.StatusServiceUnavailable},
		{"detection catalog", "GET", "/api/detections/catalog", http.StatusOK},
		{"active detections", "GET", "/api/detections", http.StatusOK},
		{"capture before identity", "POST", "/api/capture", http.StatusServiceUnavailable},
		{"stream before identity", "GET", "/api/violations/stream", http.StatusServiceUnavailable},
		{"openapi", "GET", "/api/openapi.json", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			m.Serve(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
			if rec.Header().Get(middleware.RequestIDHeader) == "" {
				t.Error("expected a request ID header")
			}
		})
	}
}

func TestOpenAPISpec(t *testing.T) {
	m, err := api.NewModule(validConfig(), setupInfra(t))
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	rec := httptest.NewRecorder()
	m.Serve(rec, httptest.NewRequest("GET", "/api/openapi.json", nil))

	var spec openapi.Spec
	if err := json.NewDecoder(rec.Body).Decode(&spec); err != nil {
		t.Fatalf("decode spec: %v", err)
	}

	if spec.Info.Title != "Sentinel" || spec.Info.Version != "0.1.0" {
		t.Errorf("info: got %+v", spec.Info)
	}

	for _, path := range []string{
		"/api/identity",
		"/api/capture",
		"/api/detections",
		"/api/violations",
		"/api/violations/{id}",
		"/api/violations/stream",
	} {
		if _, ok := spec.Paths[path]; !ok {
			t.Errorf("missing path %s", path)
		}
	}

	if _, ok := spec.Components.Schemas["Record"]; !ok {
		t.Error("missing Record schema")
	}
}
