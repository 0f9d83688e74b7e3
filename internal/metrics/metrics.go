// Package metrics exposes Prometheus instrumentation for captures, the live
// feed, identity, and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JaimeStill/sentinel/internal/capture"
)

// Metrics owns a private registry and the service's collectors.
type Metrics struct {
	registry  *prometheus.Registry
	namespace string

	captures   *prometheus.CounterVec
	pushes     prometheus.Counter
	deliveries prometheus.Counter
	identity   *prometheus.GaugeVec
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New registers all collectors under namespace on a fresh registry.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		namespace: namespace,
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_total",
			Help:      "Capture attempts by outcome.",
		}, []string{"outcome"}),
		pushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_pushes_total",
			Help:      "Feed refreshes delivered to at least one subscriber.",
		}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_deliveries_total",
			Help:      "Snapshots handed to subscribers.",
		}),
		identity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "identity_established",
			Help:      "Set to 1 for the method that established the session identity.",
		}, []string{"method"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.captures,
		m.pushes,
		m.deliveries,
		m.identity,
		m.requests,
		m.duration,
	)

	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// OnCaptureResult counts a capture attempt. It implements capture.Observer.
func (m *Metrics) OnCaptureResult(r capture.Result) {
	m.captures.WithLabelValues(string(r.Outcome)).Inc()
}

// ObservePush counts a feed refresh delivered to n subscribers.
func (m *Metrics) ObservePush(n int) {
	m.pushes.Inc()
	m.deliveries.Add(float64(n))
}

// TrackSubscribers exports fn as the open-subscription gauge.
func (m *Metrics) TrackSubscribers(fn func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "feed_subscribers",
		Help:      "Open live feed subscriptions.",
	}, func() float64 { return float64(fn()) }))
}

// IdentityEstablished records the method that produced the session.
func (m *Metrics) IdentityEstablished(method string) {
	m.identity.Reset()
	m.identity.WithLabelValues(method).Set(1)
}

// ObserveRequest records a completed HTTP request.
// It matches middleware.ObserveFunc.
func (m *Metrics) ObserveRequest(r *http.Request, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(r.Method).Observe(elapsed.Seconds())
}
