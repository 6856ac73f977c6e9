package tracing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerProvider manages the lifecycle of the OpenTelemetry tracer
type TracerProvider struct {
	tp *sdktrace.TracerProvider
}

// PipelineTracer provides spans for the stages of a report request
type PipelineTracer struct {
	tracer trace.Tracer
}

// NewTracerProvider creates a new OpenTelemetry tracer provider exporting
// over OTLP/gRPC and installs it globally.
func NewTracerProvider(ctx context.Context, serviceName, serviceVersion, otlpEndpoint string) (*TracerProvider, error) {
	exporter, err := otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(otlpEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	otel.SetTracerProvider(tp)

	return &TracerProvider{tp: tp}, nil
}

// Shutdown gracefully shuts down the tracer provider
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.tp.Shutdown(ctx)
}

// NewPipelineTracer creates a tracer backed by the global provider.
func NewPipelineTracer(serviceName string) *PipelineTracer {
	return &PipelineTracer{tracer: otel.Tracer(serviceName)}
}

// NewPipelineTracerFromProvider creates a tracer from an explicit provider.
func NewPipelineTracerFromProvider(tp trace.TracerProvider, serviceName string) *PipelineTracer {
	return &PipelineTracer{tracer: tp.Tracer(serviceName)}
}

// StartRequestSpan starts the root span of one pipeline run.
func (pt *PipelineTracer) StartRequestSpan(ctx context.Context, mode string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "ga4_pipeline",
		trace.WithAttributes(
			attribute.String("pipeline.mode", mode),
			attribute.String("component", "orchestrator"),
		),
	)
}

// StartStageSpan starts a span for one local stage (validate, build, normalize, insights).
func (pt *PipelineTracer) StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "pipeline."+stage,
		trace.WithAttributes(attribute.String("pipeline.stage", stage)),
	)
}

// StartBackendSpan starts a span around the analytics report call.
func (pt *PipelineTracer) StartBackendSpan(ctx context.Context, property string, metrics, dimensions []string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "ga4.run_report",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("ga4.property", property),
			attribute.String("ga4.metrics", strings.Join(metrics, ",")),
			attribute.String("ga4.dimensions", strings.Join(dimensions, ",")),
			attribute.String("component", "ga4-client"),
		),
	)
}

// StartLLMSpan starts a span around one model round trip.
func (pt *PipelineTracer) StartLLMSpan(ctx context.Context, provider, model, operation string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "llm."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", provider),
			attribute.String("llm.model", model),
			attribute.String("llm.operation", operation),
		),
	)
}

// RecordReportMetrics records result sizes on a span
func (pt *PipelineTracer) RecordReportMetrics(span trace.Span, duration time.Duration, rows, insights int) {
	span.SetAttributes(
		attribute.Int64("report.duration_ms", duration.Milliseconds()),
		attribute.Int("report.rows", rows),
		attribute.Int("report.insights", insights),
	)
}

// RecordError records an error on a span
func (pt *PipelineTracer) RecordError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attrs...)
	span.RecordError(err)
}

// Noop returns a tracer that records nothing.
func Noop() *PipelineTracer {
	return &PipelineTracer{tracer: otel.GetTracerProvider().Tracer("noop")}
}
