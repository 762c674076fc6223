package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs an in-memory span exporter for test assertions
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(previous)
	})
	return exporter
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestInitTraceProvider_NoopWhenEmpty(t *testing.T) {
	shutdown, err := InitTraceProvider(context.Background(), "", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestAPIRequestSpan(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		exporter := setupTestTracer(t)

		ctx, span := StartAPIRequestSpan(context.Background(), "GET", "/api/auth/me")
		AddRetryEvent(ctx, 1, time.Second, "server_error")
		EndAPIRequestSpan(span, 200, 2, nil)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, "campusiq.api GET /api/auth/me", spans[0].Name)
		assert.Equal(t, codes.Unset, spans[0].Status.Code)

		status, ok := attrValue(spans[0].Attributes, "http.response.status_code")
		require.True(t, ok)
		assert.Equal(t, int64(200), status.AsInt64())

		attempts, ok := attrValue(spans[0].Attributes, "campusiq.attempts")
		require.True(t, ok)
		assert.Equal(t, int64(2), attempts.AsInt64())

		require.Len(t, spans[0].Events, 1)
		assert.Equal(t, "retry", spans[0].Events[0].Name)
	})

	t.Run("failure", func(t *testing.T) {
		exporter := setupTestTracer(t)

		_, span := StartAPIRequestSpan(context.Background(), "GET", "/api/admin/dashboard")
		EndAPIRequestSpan(span, 0, 3, errors.New("exhausted"))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status.Code)
		assert.Equal(t, "exhausted", spans[0].Status.Description)

		_, ok := attrValue(spans[0].Attributes, "http.response.status_code")
		assert.False(t, ok)
	})
}

func TestPageSpanParentsAPISpans(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx, page := StartPageSpan(context.Background(), "student_dashboard", "student")
	_, call := StartAPIRequestSpan(ctx, "GET", "/api/students/me/dashboard")
	EndAPIRequestSpan(call, 200, 1, nil)
	EndSpan(page, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())

	role, ok := attrValue(spans[1].Attributes, "campusiq.role")
	require.True(t, ok)
	assert.Equal(t, "student", role.AsString())
}

func TestResolveSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	_, span := StartResolveSpan(context.Background())
	EndSpan(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "campusiq.session.resolve", spans[0].Name)
}
