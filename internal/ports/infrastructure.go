package ports

import (
	"time"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric, e.g. rows read or
	// failed unit runs.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric, e.g. the
	// number of clusters produced by the last run.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram, e.g. cluster sizes.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// UnitFactory builds a unit from the decoded parameters of its workflow
// declaration.
type UnitFactory func(id string, config map[string]any) (Unit, error)

// UnitRegistry resolves unit type names to factories.
type UnitRegistry interface {
	// CreateUnit instantiates a unit of unitType with the given id and
	// parameters.
	CreateUnit(unitType string, id string, config map[string]any) (Unit, error)

	// RegisterUnitFactory adds or replaces the factory for unitType.
	RegisterUnitFactory(unitType string, factory UnitFactory) error

	// GetSupportedTypes lists registered unit types in sorted order.
	GetSupportedTypes() []string
}

// Metric names recorded by units through a MetricsCollector. Collectors
// route unknown names to generic series.
const (
	// MetricUnitExecution is the latency operation recorded for every unit run.
	MetricUnitExecution = "unit_execution"

	// MetricUnitRuns counts unit runs, labelled by status.
	MetricUnitRuns = "unit_runs"

	// MetricRecordsRead counts input rows, labelled by kind.
	MetricRecordsRead = "records_read"

	// MetricSamples is the number of samples in the last clustering.
	MetricSamples = "samples"

	// MetricClusters is the number of clusters in the last clustering.
	MetricClusters = "clusters"

	// MetricResultFiles counts the result tables a reader parsed.
	MetricResultFiles = "result_files"

	// MetricCandidates is the number of distinct candidates ranked.
	MetricCandidates = "candidates"

	// MetricClusterSize observes the size of each cluster.
	MetricClusterSize = "cluster_size"
)
