package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
)

const (
	EnvMetricsDisabled  = "SENTINEL_METRICS_DISABLED"
	EnvMetricsNamespace = "SENTINEL_METRICS_NAMESPACE"
)

var metricNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MetricsConfig controls the Prometheus registry and /metrics endpoint.
type MetricsConfig struct {
	Disabled  bool   `toml:"disabled"`
	Namespace string `toml:"namespace"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *MetricsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites fields from overlay. Disabled only ever turns metrics off.
func (c *MetricsConfig) Merge(overlay *MetricsConfig) {
	if overlay.Disabled {
		c.Disabled = true
	}
	if overlay.Namespace != "" {
		c.Namespace = overlay.Namespace
	}
}

func (c *MetricsConfig) loadDefaults() {
	if c.Namespace == "" {
		c.Namespace = "sentinel"
	}
}

func (c *MetricsConfig) loadEnv() {
	if v := os.Getenv(EnvMetricsDisabled); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Disabled = b
		}
	}
	if v := os.Getenv(EnvMetricsNamespace); v != "" {
		c.Namespace = v
	}
}

func (c *MetricsConfig) validate() error {
	if !metricNamePattern.MatchString(c.Namespace) {
		return fmt.Errorf("invalid namespace: %q", c.Namespace)
	}
	return nil
}
