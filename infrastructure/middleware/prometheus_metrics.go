// Package middleware provides cross-cutting concerns for refclust units:
// Prometheus metrics, OpenTelemetry tracing and the unit wrapper that ties
// them together.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/refclust/internal/ports"
)

const namespace = "refclust"

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. Known metric names from ports are routed to dedicated
// series; anything else lands in generic per-metric vectors.
type PrometheusMetrics struct {
	executionLatency *prometheus.HistogramVec
	unitRuns         *prometheus.CounterVec
	recordsRead      *prometheus.CounterVec
	operationCounter *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
	clusterSize      *prometheus.HistogramVec
	observations     *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance registering its
// collectors with reg. A nil reg registers with the default registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		executionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "unit_duration_seconds",
				Help:      "Execution time of workflow units.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "unit"},
		),
		unitRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unit_runs_total",
				Help:      "Number of unit executions by outcome.",
			},
			[]string{"status", "unit"},
		),
		recordsRead: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_read_total",
				Help:      "Input rows parsed, by table kind.",
			},
			[]string{"kind", "unit"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Generic counters recorded by units.",
			},
			[]string{"operation", "unit"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "result_state",
				Help:      "Sizes of the most recent results (samples, clusters, candidates).",
			},
			[]string{"metric", "unit"},
		),
		clusterSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cluster_size",
				Help:      "Number of samples per cluster.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"unit"},
		),
		observations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "observations",
				Help:      "Generic histogram observations recorded by units.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"metric", "unit"},
		),
	}
}

func unitLabel(labels map[string]string) string {
	if unit := labels["unit"]; unit != "" {
		return unit
	}
	return "unknown"
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.executionLatency.WithLabelValues(operation, unitLabel(labels)).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	unit := unitLabel(labels)

	switch metric {
	case ports.MetricUnitRuns:
		status := labels["status"]
		if status == "" {
			status = "success"
		}
		pm.unitRuns.WithLabelValues(status, unit).Add(value)
	case ports.MetricRecordsRead:
		pm.recordsRead.WithLabelValues(labels["kind"], unit).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, unit).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.systemGauges.WithLabelValues(metric, unitLabel(labels)).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	unit := unitLabel(labels)
	if metric == ports.MetricClusterSize {
		pm.clusterSize.WithLabelValues(unit).Observe(value)
		return
	}
	pm.observations.WithLabelValues(metric, unit).Observe(value)
}

// WriteTextfile writes everything gathered by g to path in the text
// exposition format, for pickup by the node exporter textfile collector.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return ports.NewMetricsError(path, "write_textfile", err)
	}
	return nil
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
