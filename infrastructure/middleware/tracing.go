package middleware

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TracingConfig configures SetupTracing.
type TracingConfig struct {
	// ServiceName is reported as service.name. Defaults to "refclust".
	ServiceName string

	// Version is reported as service.version.
	Version string

	// Writer receives the exported spans as JSON.
	Writer io.Writer
}

// SetupTracing installs a global tracer provider exporting spans to
// cfg.Writer. The returned function flushes and shuts the provider down.
func SetupTracing(cfg TracingConfig) (func(context.Context) error, error) {
	if cfg.Writer == nil {
		return nil, fmt.Errorf("tracing: writer is required")
	}
	name := cfg.ServiceName
	if name == "" {
		name = "refclust"
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(cfg.Writer),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: create exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", name),
		attribute.String("service.version", cfg.Version),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
