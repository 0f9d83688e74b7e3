package config

import (
	"fmt"
	"os"
	"time"
)

const (
	EnvAuthToken       = "SENTINEL_AUTH_TOKEN"
	EnvAppID           = "SENTINEL_APP_ID"
	EnvServiceConfig   = "SENTINEL_SERVICE_CONFIG"
	EnvIdentityTimeout = "SENTINEL_IDENTITY_TIMEOUT"
)

// IdentityConfig holds the session bootstrap inputs. AuthToken and
// ServiceConfig are optional; their absence degrades to anonymous or
// local-fallback identity rather than failing validation.
type IdentityConfig struct {
	AppID         string `toml:"app_id"`
	AuthToken     string `toml:"auth_token"`
	ServiceConfig string `toml:"service_config"`
	Timeout       string `toml:"timeout"`
}

// TimeoutDuration bounds each establishment attempt.
func (c *IdentityConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *IdentityConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *IdentityConfig) Merge(overlay *IdentityConfig) {
	if overlay.AppID != "" {
		c.AppID = overlay.AppID
	}
	if overlay.AuthToken != "" {
		c.AuthToken = overlay.AuthToken
	}
	if overlay.ServiceConfig != "" {
		c.ServiceConfig = overlay.ServiceConfig
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *IdentityConfig) loadDefaults() {
	if c.AppID == "" {
		c.AppID = "default-app-id"
	}
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
}

func (c *IdentityConfig) loadEnv() {
	if v := os.Getenv(EnvAppID); v != "" {
		c.AppID = v
	}
	if v := os.Getenv(EnvAuthToken); v != "" {
		c.AuthToken = v
	}
	if v := os.Getenv(EnvServiceConfig); v != "" {
		c.ServiceConfig = v
	}
	if v := os.Getenv(EnvIdentityTimeout); v != "" {
		c.Timeout = v
	}
}

func (c *IdentityConfig) validate() error {
	if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid timeout: %q", c.Timeout)
	}
	return nil
}
