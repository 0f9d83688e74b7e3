package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvSiteLocation = "SENTINEL_SITE_LOCATION"
	EnvSiteLat      = "SENTINEL_SITE_LAT"
	EnvSiteLon      = "SENTINEL_SITE_LON"
)

// SiteConfig describes the fixed camera site stamped onto evidence.
type SiteConfig struct {
	Location string  `toml:"location"`
	Lat      float64 `toml:"lat"`
	Lon      float64 `toml:"lon"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *SiteConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *SiteConfig) Merge(overlay *SiteConfig) {
	if overlay.Location != "" {
		c.Location = overlay.Location
	}
	if overlay.Lat != 0 {
		c.Lat = overlay.Lat
	}
	if overlay.Lon != 0 {
		c.Lon = overlay.Lon
	}
}

func (c *SiteConfig) loadDefaults() {
	if c.Location == "" {
		c.Location = "Main St & 5th Ave Intersection"
	}
	if c.Lat == 0 && c.Lon == 0 {
		c.Lat = 40.7128
		c.Lon = -74.0060
	}
}

func (c *SiteConfig) loadEnv() {
	if v := os.Getenv(EnvSiteLocation); v != "" {
		c.Location = v
	}
	if v := os.Getenv(EnvSiteLat); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Lat = f
		}
	}
	if v := os.Getenv(EnvSiteLon); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Lon = f
		}
	}
}

func (c *SiteConfig) validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("lat out of range: %v", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("lon out of range: %v", c.Lon)
	}
	return nil
}
