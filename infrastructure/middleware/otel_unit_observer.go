package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/ports"
)

const tracerName = "github.com/ahrav/refclust/units"

var _ UnitObserver = (*OTelUnitObserver)(nil)

// OTelUnitObserver traces unit executions with OpenTelemetry and records
// per-unit outcome counters. Each execution gets its own span carried in
// the context, so one observer can serve units running concurrently.
type OTelUnitObserver struct {
	tracer  trace.Tracer
	metrics ports.MetricsCollector
}

// NewOTelUnitObserver creates an observer using the global tracer
// provider. metrics may be nil.
func NewOTelUnitObserver(metrics ports.MetricsCollector) *OTelUnitObserver {
	return NewOTelUnitObserverWithProvider(otel.GetTracerProvider(), metrics)
}

// NewOTelUnitObserverWithProvider creates an observer using tp.
func NewOTelUnitObserverWithProvider(tp trace.TracerProvider, metrics ports.MetricsCollector) *OTelUnitObserver {
	return &OTelUnitObserver{tracer: tp.Tracer(tracerName), metrics: metrics}
}

// PreExecute starts the unit span.
func (o *OTelUnitObserver) PreExecute(ctx context.Context, unitName string, state domain.State) context.Context {
	ctx, span := o.tracer.Start(ctx, "Unit.Execute", trace.WithAttributes(
		attribute.String("unit.name", unitName),
		attribute.Int("state.keys", len(state.Keys())),
	))
	if exec, ok := state.GetExecutionContext(); ok {
		span.SetAttributes(
			attribute.String("workflow.id", exec.WorkflowID),
			attribute.String("execution.id", exec.ExecutionID),
		)
	}
	return ctx
}

// PostExecute annotates and ends the unit span.
func (o *OTelUnitObserver) PostExecute(
	ctx context.Context,
	unitName string,
	state domain.State,
	elapsed time.Duration,
	err error,
) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(attribute.Int64("unit.elapsed_ms", elapsed.Milliseconds()))
	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.addErrorEvent(span, err)
	} else {
		o.addResultAttributes(span, state)
		span.SetStatus(codes.Ok, "")
	}

	if o.metrics != nil {
		o.metrics.RecordCounter(ports.MetricUnitRuns, 1, map[string]string{
			"unit":   unitName,
			"status": status,
		})
	}
}

// addResultAttributes records the size of whatever the unit produced.
func (o *OTelUnitObserver) addResultAttributes(span trace.Span, state domain.State) {
	if a, ok := domain.Get(state, domain.KeyClusterAssignment); ok && a != nil {
		span.SetAttributes(
			attribute.Int("result.samples", len(a.Samples)),
			attribute.Int("result.clusters", a.Len()),
		)
	}
	if r, ok := domain.Get(state, domain.KeyRanking); ok && r != nil {
		span.SetAttributes(
			attribute.Int("result.candidates", len(r.Candidates)),
			attribute.String("result.best", r.Best),
		)
	}
}

// addErrorEvent adds an event carrying the location of typed input errors.
func (o *OTelUnitObserver) addErrorEvent(span trace.Span, err error) {
	var pe *domain.ParseError
	if errors.As(err, &pe) {
		span.AddEvent("input.malformed_row", trace.WithAttributes(
			attribute.String("path", pe.Path),
			attribute.Int("row", pe.Row),
			attribute.String("field", pe.Field),
		))
		return
	}
	var me *domain.MissingResultError
	if errors.As(err, &me) {
		span.AddEvent("input.missing_result", trace.WithAttributes(
			attribute.String("path", me.Path),
			attribute.String("reason", me.Reason),
		))
	}
}
