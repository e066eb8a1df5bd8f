package ports

import (
	"errors"
	"fmt"
)

// ErrUnknownUnitType indicates that a workflow names a unit type no
// factory is registered for.
var ErrUnknownUnitType = errors.New("unknown unit type")

// OutputError represents a failure to persist a result file.
type OutputError struct {
	// Path is the destination that could not be written.
	Path string

	// Operation is the step that failed, e.g. "create" or "rename".
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for OutputError.
func (e *OutputError) Error() string {
	return fmt.Sprintf("output error: operation=%s, path=%s, err=%v", e.Operation, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *OutputError) Unwrap() error { return e.Err }

// NewOutputError creates a new OutputError with the given details.
func NewOutputError(path, operation string, err error) *OutputError {
	return &OutputError{
		Path:      path,
		Operation: operation,
		Err:       err,
	}
}

// MetricsError represents an error from metrics collection operations.
type MetricsError struct {
	// Metric is the name of the metric that was being collected when the
	// error occurred.
	Metric string

	// Operation is the name of the metrics operation that failed.
	Operation string

	// Err is the underlying error that caused the metrics operation to fail.
	Err error
}

// Error implements the error interface for MetricsError.
func (e *MetricsError) Error() string {
	return fmt.Sprintf("metrics error: operation=%s, metric=%s, err=%v", e.Operation, e.Metric, e.Err)
}

// Unwrap returns the underlying error.
func (e *MetricsError) Unwrap() error { return e.Err }

// NewMetricsError creates a new MetricsError with the given details.
func NewMetricsError(metric, operation string, err error) *MetricsError {
	return &MetricsError{
		Metric:    metric,
		Operation: operation,
		Err:       err,
	}
}

// ConfigError reports a unit parameter that could not be used.
type ConfigError struct {
	// ConfigKey is the parameter name.
	ConfigKey string

	// Err describes what was wrong with the value.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
