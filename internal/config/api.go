package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/JaimeStill/sentinel/pkg/formatting"
	"github.com/JaimeStill/sentinel/pkg/middleware"
	"github.com/JaimeStill/sentinel/pkg/openapi"
	"github.com/JaimeStill/sentinel/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "SENTINEL_CORS_ENABLED",
	Origins:          "SENTINEL_CORS_ORIGINS",
	AllowedMethods:   "SENTINEL_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "SENTINEL_CORS_ALLOWED_HEADERS",
	ExposedHeaders:   "SENTINEL_CORS_EXPOSED_HEADERS",
	AllowCredentials: "SENTINEL_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "SENTINEL_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "SENTINEL_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "SENTINEL_PAGINATION_MAX_PAGE_SIZE",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "SENTINEL_OPENAPI_TITLE",
	Description: "SENTINEL_OPENAPI_DESCRIPTION",
	ServerURL:   "SENTINEL_OPENAPI_SERVER_URL",
}

// APIConfig holds API routing, upload limits, CORS, pagination, and OpenAPI settings.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize formatting.Size       `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
	OpenAPI       openapi.Config        `toml:"openapi"`
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	if err := c.loadEnv(); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != 0 {
		c.MaxUploadSize = overlay.MaxUploadSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize <= 0 {
		c.MaxUploadSize = 10 << 20
	}
}

func (c *APIConfig) loadEnv() error {
	if v := os.Getenv("SENTINEL_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("SENTINEL_API_MAX_UPLOAD_SIZE"); v != "" {
		if err := c.MaxUploadSize.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("invalid max_upload_size: %w", err)
		}
	}
	return nil
}

func (c *APIConfig) validate() error {
	if !strings.HasPrefix(c.BasePath, "/") || strings.Count(c.BasePath, "/") != 1 {
		return fmt.Errorf("base_path must be a single-level path: %q", c.BasePath)
	}
	return nil
}
