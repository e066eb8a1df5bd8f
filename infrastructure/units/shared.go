// Package units provides the workflow units that implement the ports.Unit
// interface for refclust: readers, the clustering and ranking stages and
// the result writers.
package units

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/refclust/internal/ports"
)

// Dependency keys the unit registry injects into factory configs.
const (
	// ConfigKeyMetrics carries a ports.MetricsCollector.
	ConfigKeyMetrics = "metrics_collector"
)

// Common errors returned by units.
var (
	// ErrEmptyUnitName is returned when attempting to create a unit with an empty name.
	ErrEmptyUnitName = errors.New("unit name cannot be empty")

	// ErrNoOutputPath is returned by writer units when neither their
	// configuration nor the state names a destination.
	ErrNoOutputPath = errors.New("no output path configured")

	// ErrNoInputs is returned by reader units when nothing names their input.
	ErrNoInputs = errors.New("no input configured")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// metricsFrom extracts the injected metrics collector, if any.
func metricsFrom(config map[string]any) ports.MetricsCollector {
	mc, _ := config[ConfigKeyMetrics].(ports.MetricsCollector)
	return mc
}

// Parameter helpers report a wrongly typed value as a *ports.ConfigError
// keyed by the parameter name.

// floatParam reads a numeric parameter. YAML decodes whole numbers as int,
// so both are accepted.
func floatParam(config map[string]any, key string) (float64, bool, error) {
	raw, ok := config[key]
	if !ok {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, true, nil
	case float32:
		return float64(v), true, nil
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	default:
		return 0, false, ports.NewConfigError(key, fmt.Errorf("expected a number, got %T", raw))
	}
}

// intParam reads an integer parameter. Whole floats are accepted.
func intParam(config map[string]any, key string) (int, bool, error) {
	raw, ok := config[key]
	if !ok {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, false, ports.NewConfigError(key, fmt.Errorf("expected an integer, got %v", v))
		}
		return int(v), true, nil
	default:
		return 0, false, ports.NewConfigError(key, fmt.Errorf("expected an integer, got %T", raw))
	}
}

// stringParam reads a string parameter.
func stringParam(config map[string]any, key string) (string, bool, error) {
	raw, ok := config[key]
	if !ok {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", false, ports.NewConfigError(key, fmt.Errorf("expected a string, got %T", raw))
	}
	return s, true, nil
}
