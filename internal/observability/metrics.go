// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solana-token-audit/internal/domain"
	"solana-token-audit/internal/payment"
)

// DefaultNamespace prefixes all metric names.
const DefaultNamespace = "token_audit"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Audit metrics
	AuditsTotal    *prometheus.CounterVec
	AuditDuration  prometheus.Histogram
	PillarDegraded *prometheus.CounterVec

	// Provider metrics
	ProviderLatency *prometheus.HistogramVec

	// Payment metrics
	PaymentVerifications *prometheus.CounterVec
	ConsumedSignatures   prometheus.Gauge
}

// NewMetrics creates a Metrics instance on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		AuditsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "completed_total",
			Help:      "Total number of completed audits by verdict",
		}, []string{"verdict"}),
		AuditDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "duration_seconds",
			Help:      "Audit duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}),
		PillarDegraded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "pillar_degraded_total",
			Help:      "Pillars that fell back after a provider failure",
		}, []string{"pillar"}),

		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Provider call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "method", "status"}),

		PaymentVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "verifications_total",
			Help:      "Payment verifications by outcome",
		}, []string{"outcome"}),
		ConsumedSignatures: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "consumed_signatures",
			Help:      "Consumed payment signatures in the replay set, resynced from the store on each scrape",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordAudit records a completed audit.
func (m *Metrics) RecordAudit(verdict domain.Verdict, elapsed time.Duration) {
	m.AuditsTotal.WithLabelValues(string(verdict)).Inc()
	m.AuditDuration.Observe(elapsed.Seconds())
}

// RecordPayment records a payment verification outcome.
func (m *Metrics) RecordPayment(outcome payment.Outcome) {
	m.PaymentVerifications.WithLabelValues(string(outcome)).Inc()
	if outcome == payment.OutcomeAccepted {
		m.ConsumedSignatures.Inc()
	}
}

// RecordDegraded records a pillar fallback.
func (m *Metrics) RecordDegraded(pillar string, _ error) {
	m.PillarDegraded.WithLabelValues(pillar).Inc()
}

// RecordProviderCall records provider call latency.
func (m *Metrics) RecordProviderCall(provider, method string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ProviderLatency.WithLabelValues(provider, method, status).Observe(elapsed.Seconds())
}

// SetConsumedSignatures sets the replay set size as counted by the store.
// Between syncs the gauge only grows with accepted payments.
func (m *Metrics) SetConsumedSignatures(n int) {
	m.ConsumedSignatures.Set(float64(n))
}
