// Package monitoring exposes Prometheus metrics for the HTTP surface, the
// websocket relay, and the cache.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Terminal metrics
	SessionsActive prometheus.Gauge

	// Cache metrics
	CacheOps *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on the default
// registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the collectors on reg. Tests pass their own
// registry to avoid duplicate registration panics.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vmws_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vmws_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vmws_ws_connections",
				Help: "Currently open websocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vmws_ws_messages_total",
				Help: "Total websocket messages by direction",
			},
			[]string{"direction"},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vmws_terminal_sessions_active",
				Help: "Currently active terminal sessions",
			},
		),
		CacheOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vmws_cache_operations_total",
				Help: "Total cache operations by command",
			},
			[]string{"operation"},
		),
	}
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// WSConnectionOpened increments the open-connection gauge.
func (m *Metrics) WSConnectionOpened() { m.WSConnections.Inc() }

// WSConnectionClosed decrements the open-connection gauge.
func (m *Metrics) WSConnectionClosed() { m.WSConnections.Dec() }

// WSMessageReceived counts one inbound message.
func (m *Metrics) WSMessageReceived() { m.WSMessages.WithLabelValues("in").Inc() }

// WSMessageSent counts one outbound message.
func (m *Metrics) WSMessageSent() { m.WSMessages.WithLabelValues("out").Inc() }

// RecordCacheOp counts one cache command.
func (m *Metrics) RecordCacheOp(operation string) {
	m.CacheOps.WithLabelValues(operation).Inc()
}
