package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvMQTTBroker         = "SENTINEL_MQTT_BROKER"
	EnvMQTTClientID       = "SENTINEL_MQTT_CLIENT_ID"
	EnvMQTTTopicPrefix    = "SENTINEL_MQTT_TOPIC_PREFIX"
	EnvMQTTQoS            = "SENTINEL_MQTT_QOS"
	EnvMQTTUsername       = "SENTINEL_MQTT_USERNAME"
	EnvMQTTPassword       = "SENTINEL_MQTT_PASSWORD"
	EnvMQTTConnectTimeout = "SENTINEL_MQTT_CONNECT_TIMEOUT"
)

// EventsConfig configures MQTT publication of recorded evidence.
// Publication is disabled when Broker is empty.
type EventsConfig struct {
	Broker         string `toml:"broker"`
	ClientID       string `toml:"client_id"`
	TopicPrefix    string `toml:"topic_prefix"`
	QoS            int    `toml:"qos"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	ConnectTimeout string `toml:"connect_timeout"`
}

// Enabled reports whether a broker is configured.
func (c *EventsConfig) Enabled() bool {
	return c.Broker != ""
}

// ConnectTimeoutDuration returns ConnectTimeout as a time.Duration.
func (c *EventsConfig) ConnectTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnectTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *EventsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *EventsConfig) Merge(overlay *EventsConfig) {
	if overlay.Broker != "" {
		c.Broker = overlay.Broker
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
	if overlay.TopicPrefix != "" {
		c.TopicPrefix = overlay.TopicPrefix
	}
	if overlay.QoS != 0 {
		c.QoS = overlay.QoS
	}
	if overlay.Username != "" {
		c.Username = overlay.Username
	}
	if overlay.Password != "" {
		c.Password = overlay.Password
	}
	if overlay.ConnectTimeout != "" {
		c.ConnectTimeout = overlay.ConnectTimeout
	}
}

func (c *EventsConfig) loadDefaults() {
	if c.ClientID == "" {
		c.ClientID = "sentinel"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "sentinel"
	}
	if c.ConnectTimeout == "" {
		c.ConnectTimeout = "10s"
	}
}

func (c *EventsConfig) loadEnv() {
	if v := os.Getenv(EnvMQTTBroker); v != "" {
		c.Broker = v
	}
	if v := os.Getenv(EnvMQTTClientID); v != "" {
		c.ClientID = v
	}
	if v := os.Getenv(EnvMQTTTopicPrefix); v != "" {
		c.TopicPrefix = v
	}
	if v := os.Getenv(EnvMQTTQoS); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.QoS = n
		}
	}
	if v := os.Getenv(EnvMQTTUsername); v != "" {
		c.Username = v
	}
	if v := os.Getenv(EnvMQTTPassword); v != "" {
		c.Password = v
	}
	if v := os.Getenv(EnvMQTTConnectTimeout); v != "" {
		c.ConnectTimeout = v
	}
}

func (c *EventsConfig) validate() error {
	if c.QoS < 0 || c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1, or 2: %d", c.QoS)
	}
	if strings.ContainsAny(c.TopicPrefix, "#+") {
		return fmt.Errorf("topic_prefix cannot contain wildcards: %q", c.TopicPrefix)
	}
	if d, err := time.ParseDuration(c.ConnectTimeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid connect_timeout: %q", c.ConnectTimeout)
	}
	return nil
}
