// Package events publishes recorded evidence to an MQTT broker.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/JaimeStill/sentinel/internal/capture"
	"github.com/JaimeStill/sentinel/pkg/lifecycle"
)

const (
	publishTimeout = 2 * time.Second
	queueSize      = 64
)

var (
	ErrNotConnected   = errors.New("mqtt not connected")
	ErrPublishTimeout = errors.New("mqtt publish timeout")
	ErrQueueFull      = errors.New("evidence publish queue full")
)

// Client is the subset of mqtt.Client the emitter uses.
type Client interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

// Config describes the broker connection.
type Config struct {
	Broker         string
	ClientID       string
	TopicPrefix    string
	QoS            byte
	Username       string
	Password       string
	ConnectTimeout time.Duration
}

// Emitter publishes each successful capture as the record JSON on
// {prefix}/{app_id}/violations. It implements capture.Observer.
// Results are queued and published by a worker started with Start, so a
// slow broker never delays a capture.
type Emitter struct {
	client    Client
	topic     string
	qos       byte
	timeout   time.Duration
	logger    *slog.Logger
	queue     chan capture.Result
	connected atomic.Bool
	published atomic.Uint64
	failed    atomic.Uint64
}

// New creates an Emitter with a paho client built from cfg.
// No connection is attempted until Start.
func New(cfg Config, appID string, logger *slog.Logger) *Emitter {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL(cfg.Broker)).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetMaxReconnectInterval(30 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	e := NewWithClient(nil, cfg, appID, logger)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		e.connected.Store(true)
		e.logger.Info("mqtt connection established", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		e.connected.Store(false)
		e.logger.Warn("mqtt connection lost, will auto-reconnect", "error", err)
	})

	e.client = mqtt.NewClient(opts)
	return e
}

// NewWithClient creates an Emitter over an existing client.
func NewWithClient(client Client, cfg Config, appID string, logger *slog.Logger) *Emitter {
	return &Emitter{
		client:  client,
		topic:   Topic(cfg.TopicPrefix, appID),
		qos:     cfg.QoS,
		timeout: cfg.ConnectTimeout,
		logger:  logger.With("system", "events"),
		queue:   make(chan capture.Result, queueSize),
	}
}

// Topic returns the evidence topic for an app.
func Topic(prefix, appID string) string {
	return fmt.Sprintf("%s/%s/violations", strings.TrimSuffix(prefix, "/"), appID)
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Topic returns the topic evidence is published on.
func (e *Emitter) Topic() string {
	return e.topic
}

// Connect dials the broker, waiting at most the configured connect timeout.
func (e *Emitter) Connect() error {
	token := e.client.Connect()
	if !token.WaitTimeout(e.timeout) {
		return fmt.Errorf("mqtt connect timeout after %v", e.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	e.connected.Store(true)
	return nil
}

// Start runs the publish worker, connects during startup, and disconnects
// on shutdown once the worker has stopped. A failed connection is logged
// and leaves publication disabled.
func (e *Emitter) Start(lc *lifecycle.Coordinator) error {
	e.logger.Info("starting event emitter", "topic", e.topic, "qos", e.qos)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-lc.Context().Done():
				return
			case result := <-e.queue:
				if err := e.Publish(result); err != nil {
					e.logger.Warn("evidence publish failed", "error", err)
				}
			}
		}
	}()

	lc.OnStartup(func() {
		if err := e.Connect(); err != nil {
			e.logger.Error("event emitter disabled", "error", err)
			return
		}
		e.logger.Info("event emitter connected")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		<-done
		if e.client.IsConnectionOpen() {
			e.client.Disconnect(250)
		}
		e.connected.Store(false)
		e.logger.Info("event emitter stopped", "published", e.published.Load(), "failed", e.failed.Load())
	})

	return nil
}

// Publish sends rec-bearing results to the broker. Refusals are skipped.
func (e *Emitter) Publish(result capture.Result) error {
	if !result.OK || result.Record == nil {
		return nil
	}
	if !e.connected.Load() {
		e.failed.Add(1)
		return ErrNotConnected
	}

	payload, err := json.Marshal(result.Record)
	if err != nil {
		e.failed.Add(1)
		return fmt.Errorf("marshal record: %w", err)
	}

	token := e.client.Publish(e.topic, e.qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		e.failed.Add(1)
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		e.failed.Add(1)
		return fmt.Errorf("mqtt publish: %w", err)
	}

	e.published.Add(1)
	e.logger.Debug("evidence published", "id", result.Record.ID, "topic", e.topic, "size", len(payload))
	return nil
}

// OnCaptureResult queues recorded results for publication and returns
// immediately. Results are dropped when the queue is full.
func (e *Emitter) OnCaptureResult(result capture.Result) {
	if !result.OK || result.Record == nil {
		return
	}

	select {
	case e.queue <- result:
	default:
		e.failed.Add(1)
		e.logger.Warn("evidence publish failed", "id", result.Record.ID, "error", ErrQueueFull)
	}
}

// Published returns the count of successful publications.
func (e *Emitter) Published() uint64 {
	return e.published.Load()
}

// Failed returns the count of results that could not be published.
func (e *Emitter) Failed() uint64 {
	return e.failed.Load()
}
