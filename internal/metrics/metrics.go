// Package metrics exports Prometheus metrics for the admission pipeline and
// the threat lookup path.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all gateway Prometheus metrics
type Metrics struct {
	// Admission pipeline metrics
	AdmissionsTotal      *prometheus.CounterVec
	ValidationRejections *prometheus.CounterVec

	// Quota metrics
	QuotaRejections prometheus.Counter
	QuotaFailOpen   prometheus.Counter

	// Threat lookup metrics
	VerdictsTotal  *prometheus.CounterVec
	LookupDuration prometheus.Histogram
	LookupFailures *prometheus.CounterVec
}

// New creates and registers the gateway metrics on the default registry.
func New() *Metrics {
	m := &Metrics{}
	initAdmissionMetrics(m)
	initQuotaMetrics(m)
	initLookupMetrics(m)
	return m
}

func initAdmissionMetrics(m *Metrics) {
	m.AdmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scan_gateway_admissions_total",
		Help: "Scan requests by admission outcome (admitted, unauthenticated, rate_limited, invalid_url)",
	}, []string{"outcome"})

	m.ValidationRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scan_gateway_validation_rejections_total",
		Help: "URL validation rejections by reason code",
	}, []string{"reason"})
}

func initQuotaMetrics(m *Metrics) {
	m.QuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scan_gateway_quota_rejections_total",
		Help: "Requests rejected because the daily scan quota was exhausted",
	})

	m.QuotaFailOpen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scan_gateway_quota_fail_open_total",
		Help: "Requests admitted without enforcement because the quota store was unreachable",
	})
}

func initLookupMetrics(m *Metrics) {
	m.VerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scan_gateway_verdicts_total",
		Help: "Completed threat lookups by verdict (safe, dangerous)",
	}, []string{"verdict"})

	m.LookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scan_gateway_lookup_duration_seconds",
		Help:    "Latency of upstream threat lookups",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	})

	m.LookupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scan_gateway_lookup_failures_total",
		Help: "Failed threat lookups by kind (timeout, upstream)",
	}, []string{"kind"})
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAdmission records the terminal outcome of one pipeline run.
func (m *Metrics) RecordAdmission(outcome string) {
	m.AdmissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordValidationRejection records a URL rejection by reason code.
func (m *Metrics) RecordValidationRejection(reason string) {
	m.ValidationRejections.WithLabelValues(reason).Inc()
}

// RecordQuotaRejection records a quota-exhausted rejection.
func (m *Metrics) RecordQuotaRejection() {
	m.QuotaRejections.Inc()
}

// RecordQuotaFailOpen records an unenforced admission during a store outage.
func (m *Metrics) RecordQuotaFailOpen() {
	m.QuotaFailOpen.Inc()
}

// RecordVerdict records a completed lookup and its latency.
func (m *Metrics) RecordVerdict(verdict string, duration time.Duration) {
	m.VerdictsTotal.WithLabelValues(verdict).Inc()
	m.LookupDuration.Observe(duration.Seconds())
}

// RecordLookupFailure records a failed lookup by failure kind.
func (m *Metrics) RecordLookupFailure(kind string) {
	m.LookupFailures.WithLabelValues(kind).Inc()
}
