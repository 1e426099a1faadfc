// Package metric provides Prometheus metrics for the streaming core:
// envelope emission, frame drops, deduplication, retries, interrupts,
// and stream/session gauges, exposed over a standard /metrics handler.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the streaming core records into.
type Metrics struct {
	EnvelopesEmitted *prometheus.CounterVec
	FramesDropped    *prometheus.CounterVec
	DedupSuppressed  prometheus.Counter
	Retries          prometheus.Counter
	Interrupts       prometheus.Counter
	StreamErrors     *prometheus.CounterVec

	ActiveStreams  prometheus.Gauge
	ActiveSessions prometheus.Gauge
	StreamDuration prometheus.Histogram

	NATSConnected prometheus.Gauge
}

// Frame drop reasons for FramesDropped.
const (
	DropMalformed = "malformed"
	DropDuplicate = "duplicate"
)

// NewMetrics creates all collectors. Nothing is registered yet; pass the
// result to NewRegistry or register manually.
func NewMetrics() *Metrics {
	return &Metrics{
		EnvelopesEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "streamcore",
				Subsystem: "envelopes",
				Name:      "emitted_total",
				Help:      "Total envelopes emitted, by event type",
			},
			[]string{"type"},
		),

		FramesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "streamcore",
				Subsystem: "frames",
				Name:      "dropped_total",
				Help:      "Total inbound frames dropped, by reason",
			},
			[]string{"reason"},
		),

		DedupSuppressed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "streamcore",
				Subsystem: "state",
				Name:      "dedup_suppressed_total",
				Help:      "Total duplicate state delta operations suppressed",
			},
		),

		Retries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "streamcore",
				Subsystem: "transport",
				Name:      "retries_total",
				Help:      "Total stream reconnection attempts",
			},
		),

		Interrupts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "streamcore",
				Subsystem: "streams",
				Name:      "interrupts_total",
				Help:      "Total stream interrupts",
			},
		),

		StreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "streamcore",
				Subsystem: "streams",
				Name:      "errors_total",
				Help:      "Total terminal stream errors, by code",
			},
			[]string{"code"},
		),

		ActiveStreams: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "streamcore",
				Subsystem: "streams",
				Name:      "active",
				Help:      "Streams currently in flight",
			},
		),

		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "streamcore",
				Subsystem: "sessions",
				Name:      "active",
				Help:      "Live sessions in the registry",
			},
		),

		StreamDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "streamcore",
				Subsystem: "streams",
				Name:      "duration_seconds",
				Help:      "End-to-end stream duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "streamcore",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

// RecordEnvelopeEmitted increments the emission counter for an event type.
func (m *Metrics) RecordEnvelopeEmitted(eventType string) {
	m.EnvelopesEmitted.WithLabelValues(eventType).Inc()
}

// RecordFrameDropped increments the drop counter for a reason.
func (m *Metrics) RecordFrameDropped(reason string) {
	m.FramesDropped.WithLabelValues(reason).Inc()
}

// RecordDedupSuppressed adds n suppressed operations.
func (m *Metrics) RecordDedupSuppressed(n int) {
	m.DedupSuppressed.Add(float64(n))
}

// RecordRetry increments the reconnection counter.
func (m *Metrics) RecordRetry() {
	m.Retries.Inc()
}

// RecordInterrupt increments the interrupt counter.
func (m *Metrics) RecordInterrupt() {
	m.Interrupts.Inc()
}

// RecordStreamError increments the terminal error counter for a code.
func (m *Metrics) RecordStreamError(code string) {
	m.StreamErrors.WithLabelValues(code).Inc()
}

// RecordStreamDuration observes one completed stream.
func (m *Metrics) RecordStreamDuration(d time.Duration) {
	m.StreamDuration.Observe(d.Seconds())
}

// RecordNATSStatus updates the NATS connection gauge.
func (m *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	m.NATSConnected.Set(value)
}

// collectors returns every collector for bulk registration.
func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.EnvelopesEmitted,
		m.FramesDropped,
		m.DedupSuppressed,
		m.Retries,
		m.Interrupts,
		m.StreamErrors,
		m.ActiveStreams,
		m.ActiveSessions,
		m.StreamDuration,
		m.NATSConnected,
	}
}
