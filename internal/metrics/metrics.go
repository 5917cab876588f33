// Package metrics provides Prometheus metrics for latchkey.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "latchkey"
)

// Metrics contains all Prometheus metrics for the channel engine.
type Metrics struct {
	// Handshake metrics
	HandshakesTotal  prometheus.Counter
	HandshakeErrors  *prometheus.CounterVec
	HandshakeLatency prometheus.Histogram
	SuiteSelected    *prometheus.CounterVec

	// Session metrics
	SessionsActive   prometheus.Gauge
	MessagesSent     prometheus.Counter
	MessagesReceived prometheus.Counter
	BytesSent        prometheus.Counter
	BytesReceived    prometheus.Counter
	EnvelopeErrors   *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Default returns the default metrics instance.
func Default() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a new Metrics instance with a custom registry.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HandshakesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_total",
			Help:      "Number of completed handshakes",
		}),
		HandshakeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshake_errors_total",
			Help:      "Handshake failures by reason",
		}, []string{"reason"}),
		HandshakeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handshake_duration_seconds",
			Help:      "Handshake duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		SuiteSelected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suite_selected_total",
			Help:      "Cipher suites selected during handshakes",
		}, []string{"pkc", "symmetric"}),

		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently established sessions",
		}),
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Session messages sent",
		}),
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Session messages received",
		}),
		BytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Plaintext bytes sent over sessions",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Plaintext bytes received over sessions",
		}),
		EnvelopeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envelope_errors_total",
			Help:      "Envelope decode failures by kind",
		}, []string{"kind"}),
	}
}
