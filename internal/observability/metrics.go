package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gateway"

// Metrics holds the prometheus collectors for the enforcement pipeline.
type Metrics struct {
	registry *prometheus.Registry

	decisionsTotal   *prometheus.CounterVec
	findingsTotal    *prometheus.CounterVec
	detectorFailures *prometheus.CounterVec
	policyReloads    *prometheus.CounterVec

	auditDropped    prometheus.Counter
	auditDeliveries *prometheus.CounterVec
	alertDropped    prometheus.Counter
	alertDeliveries *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "decisions_total",
				Help:      "Enforcement decisions by computed and enforced action",
			},
			[]string{"computed", "enforced"},
		),
		findingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pii",
				Name:      "findings_total",
				Help:      "PII findings by type",
			},
			[]string{"type"},
		),
		detectorFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pii",
				Name:      "detector_failures_total",
				Help:      "Detectors skipped after a recovered failure",
			},
			[]string{"type"},
		),
		policyReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "reloads_total",
				Help:      "Policy reload attempts by outcome",
			},
			[]string{"outcome"},
		),

		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "dropped_total",
			Help:      "Audit records dropped on full queue or after retries",
		}),
		auditDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "deliveries_total",
				Help:      "Audit delivery attempts by final outcome",
			},
			[]string{"outcome"},
		),
		alertDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "dropped_total",
			Help:      "Alerts dropped on full queue or after retries",
		}),
		alertDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "alert",
				Name:      "deliveries_total",
				Help:      "Alert delivery attempts by final outcome",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.decisionsTotal,
		m.findingsTotal,
		m.detectorFailures,
		m.policyReloads,
		m.auditDropped,
		m.auditDeliveries,
		m.alertDropped,
		m.alertDeliveries,
	)
	return m
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDecision counts one enforcement decision.
func (m *Metrics) RecordDecision(computed, enforced string) {
	m.decisionsTotal.WithLabelValues(computed, enforced).Inc()
}

// RecordFinding counts findings of one PII type.
func (m *Metrics) RecordFinding(piiType string, count int) {
	m.findingsTotal.WithLabelValues(piiType).Add(float64(count))
}

// RecordDetectorFailure counts a skipped detector.
func (m *Metrics) RecordDetectorFailure(piiType string) {
	m.detectorFailures.WithLabelValues(piiType).Inc()
}

// RecordPolicyReload counts a reload attempt by outcome.
func (m *Metrics) RecordPolicyReload(outcome string) {
	m.policyReloads.WithLabelValues(outcome).Inc()
}

// RecordAuditDropped counts a dropped audit record.
func (m *Metrics) RecordAuditDropped() {
	m.auditDropped.Inc()
}

// RecordAuditOutcome counts an audit delivery outcome.
func (m *Metrics) RecordAuditOutcome(outcome string) {
	m.auditDeliveries.WithLabelValues(outcome).Inc()
}

// RecordAlertDropped counts a dropped alert.
func (m *Metrics) RecordAlertDropped() {
	m.alertDropped.Inc()
}

// RecordAlertOutcome counts an alert delivery outcome.
func (m *Metrics) RecordAlertOutcome(outcome string) {
	m.alertDeliveries.WithLabelValues(outcome).Inc()
}
