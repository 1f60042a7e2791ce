// Package middleware provides cross-cutting observability for the triage
// pipeline.
package middleware

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ahrav/go-triage/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus, giving real-time visibility into routing volume, degraded
// answers, quality scores, and latency.
type PrometheusMetrics struct {
	operationLatency *prometheus.HistogramVec
	counters         *prometheus.CounterVec
	gauges           *prometheus.GaugeVec
	qualityScore     prometheus.Histogram
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a collector and registers its metrics with
// the given registerer. Pass prometheus.DefaultRegisterer in production.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		operationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "triage_operation_duration_seconds",
				Help:    "Latency of triage pipeline operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "model", "domain"},
		),
		counters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_events_total",
				Help: "Counts of triage pipeline events such as routed queries, degraded answers, and routing anomalies.",
			},
			[]string{"event", "model", "domain", "kind"},
		),
		gauges: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "triage_state",
				Help: "Point-in-time pipeline state such as the number of registered agents.",
			},
			[]string{"state"},
		),
		qualityScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "triage_quality_score",
				Help:    "Distribution of automated quality scores on the 0-10 scale.",
				Buckets: prometheus.LinearBuckets(0, 1, 11),
			},
		),
	}

	reg.MustRegister(m.operationLatency, m.counters, m.gauges, m.qualityScore)
	return m
}

// RecordLatency records the duration of an operation in seconds.
func (m *PrometheusMetrics) RecordLatency(operation string, seconds float64, labels map[string]string) {
	m.operationLatency.WithLabelValues(operation, labels["model"], labels["domain"]).Observe(seconds)
}

// RecordCounter increments an event counter. The kind label distinguishes
// subcategories of an event, such as the flavor of a routing anomaly.
func (m *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	m.counters.WithLabelValues(metric, labels["model"], labels["domain"], labels["kind"]).Add(value)
}

// RecordGauge sets a pipeline state gauge.
func (m *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	m.gauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram records a value in a histogram. Quality scores have a
// dedicated fixed-bucket histogram; everything else reuses the latency vec.
func (m *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	if metric == "quality_score" {
		m.qualityScore.Observe(value)
		return
	}
	m.operationLatency.WithLabelValues(metric, labels["model"], labels["domain"]).Observe(value)
}

// NopMetrics discards all metrics.
type NopMetrics struct{}

var _ ports.MetricsCollector = (*NopMetrics)(nil)

// RecordLatency does nothing.
func (NopMetrics) RecordLatency(string, float64, map[string]string) {}

// RecordCounter does nothing.
func (NopMetrics) RecordCounter(string, float64, map[string]string) {}

// RecordGauge does nothing.
func (NopMetrics) RecordGauge(string, float64, map[string]string) {}

// RecordHistogram does nothing.
func (NopMetrics) RecordHistogram(string, float64, map[string]string) {}
