package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName  = "github.com/upb/campusiq-portal"
	serviceName = "campusiq-portal"
)

// Tracer returns the package-level tracer
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// InitTraceProvider installs an OTLP gRPC trace provider. With an empty
// endpoint tracing stays on the global no-op provider. The returned
// function flushes and stops the provider.
func InitTraceProvider(ctx context.Context, endpoint, version string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// StartAPIRequestSpan opens the span of one logical API call, retries included
func StartAPIRequestSpan(ctx context.Context, method, endpoint string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "campusiq.api "+method+" "+endpoint,
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("campusiq.endpoint", endpoint),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndAPIRequestSpan records the final status and attempt count and ends span
func EndAPIRequestSpan(span trace.Span, statusCode, attempts int, err error) {
	if statusCode > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", statusCode))
	}
	span.SetAttributes(attribute.Int("campusiq.attempts", attempts))
	EndSpan(span, err)
}

// AddRetryEvent marks a retry on the span carried by ctx
func AddRetryEvent(ctx context.Context, attempt int, backoff time.Duration, reason string) {
	trace.SpanFromContext(ctx).AddEvent("retry", trace.WithAttributes(
		attribute.Int("campusiq.attempt", attempt),
		attribute.Int64("campusiq.backoff_ms", backoff.Milliseconds()),
		attribute.String("campusiq.retry_reason", reason),
	))
}

// StartPageSpan opens the span of a page assembly
func StartPageSpan(ctx context.Context, page, role string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "campusiq.page "+page,
		trace.WithAttributes(
			attribute.String("campusiq.page", page),
			attribute.String("campusiq.role", role),
		),
	)
}

// StartResolveSpan opens the span of a session identity resolution
func StartResolveSpan(ctx context.Context) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "campusiq.session.resolve")
}

// EndSpan marks span failed when err is non-nil and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
