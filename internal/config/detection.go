package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvDetectionCatalog     = "SENTINEL_DETECTION_CATALOG"
	EnvDetectionProbability = "SENTINEL_DETECTION_PROBABILITY"
	EnvDetectionInterval    = "SENTINEL_DETECTION_INTERVAL"
)

// DetectionConfig controls the simulated detector.
// An empty CatalogPath selects the built-in catalog.
type DetectionConfig struct {
	CatalogPath string  `toml:"catalog_path"`
	Probability float64 `toml:"probability"`
	Interval    string  `toml:"interval"`
}

// IntervalDuration returns Interval as a time.Duration.
func (c *DetectionConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *DetectionConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *DetectionConfig) Merge(overlay *DetectionConfig) {
	if overlay.CatalogPath != "" {
		c.CatalogPath = overlay.CatalogPath
	}
	if overlay.Probability != 0 {
		c.Probability = overlay.Probability
	}
	if overlay.Interval != "" {
		c.Interval = overlay.Interval
	}
}

func (c *DetectionConfig) loadDefaults() {
	if c.Probability == 0 {
		c.Probability = 0.7
	}
	if c.Interval == "" {
		c.Interval = "2s"
	}
}

func (c *DetectionConfig) loadEnv() {
	if v := os.Getenv(EnvDetectionCatalog); v != "" {
		c.CatalogPath = v
	}
	if v := os.Getenv(EnvDetectionProbability); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			c.Probability = p
		}
	}
	if v := os.Getenv(EnvDetectionInterval); v != "" {
		c.Interval = v
	}
}

func (c *DetectionConfig) validate() error {
	if c.Probability < 0 || c.Probability > 1 {
		return fmt.Errorf("probability must be within [0,1]: %v", c.Probability)
	}
	if d, err := time.ParseDuration(c.Interval); err != nil || d <= 0 {
		return fmt.Errorf("invalid interval: %q", c.Interval)
	}
	return nil
}
