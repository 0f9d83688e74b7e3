package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvFeedLimit        = "SENTINEL_FEED_LIMIT"
	EnvFeedMaxLimit     = "SENTINEL_FEED_MAX_LIMIT"
	EnvFeedChannel      = "SENTINEL_FEED_CHANNEL"
	EnvFeedPingInterval = "SENTINEL_FEED_PING_INTERVAL"
	EnvFeedWriteTimeout = "SENTINEL_FEED_WRITE_TIMEOUT"
)

// FeedConfig controls the live violation feed and its websocket transport.
type FeedConfig struct {
	Limit        int    `toml:"limit"`
	MaxLimit     int    `toml:"max_limit"`
	Channel      string `toml:"channel"`
	PingInterval string `toml:"ping_interval"`
	WriteTimeout string `toml:"write_timeout"`
}

// PingIntervalDuration returns PingInterval as a time.Duration.
func (c *FeedConfig) PingIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.PingInterval)
	return d
}

// WriteTimeoutDuration returns WriteTimeout as a time.Duration.
func (c *FeedConfig) WriteTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *FeedConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *FeedConfig) Merge(overlay *FeedConfig) {
	if overlay.Limit != 0 {
		c.Limit = overlay.Limit
	}
	if overlay.MaxLimit != 0 {
		c.MaxLimit = overlay.MaxLimit
	}
	if overlay.Channel != "" {
		c.Channel = overlay.Channel
	}
	if overlay.PingInterval != "" {
		c.PingInterval = overlay.PingInterval
	}
	if overlay.WriteTimeout != "" {
		c.WriteTimeout = overlay.WriteTimeout
	}
}

func (c *FeedConfig) loadDefaults() {
	if c.Limit <= 0 {
		c.Limit = 15
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = 100
	}
	if c.Channel == "" {
		c.Channel = "violations_changed"
	}
	if c.PingInterval == "" {
		c.PingInterval = "30s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "10s"
	}
}

func (c *FeedConfig) loadEnv() {
	if v := os.Getenv(EnvFeedLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Limit = n
		}
	}
	if v := os.Getenv(EnvFeedMaxLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxLimit = n
		}
	}
	if v := os.Getenv(EnvFeedChannel); v != "" {
		c.Channel = v
	}
	if v := os.Getenv(EnvFeedPingInterval); v != "" {
		c.PingInterval = v
	}
	if v := os.Getenv(EnvFeedWriteTimeout); v != "" {
		c.WriteTimeout = v
	}
}

func (c *FeedConfig) validate() error {
	if c.Limit < 1 {
		return fmt.Errorf("limit must be positive")
	}
	if c.Limit > c.MaxLimit {
		return fmt.Errorf("limit cannot exceed max_limit")
	}
	if d, err := time.ParseDuration(c.PingInterval); err != nil || d <= 0 {
		return fmt.Errorf("invalid ping_interval: %q", c.PingInterval)
	}
	if d, err := time.ParseDuration(c.WriteTimeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid write_timeout: %q", c.WriteTimeout)
	}
	return nil
}
