package observability

import (
	"context"
	"testing"

	"betaportal/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetupObservability_AllEnabled(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		EnableTracing: true,
		EnableMetrics: true,
		EnableLogging: true,
		ServiceName:   "test-service",
		Protocol:      "grpc",
		Endpoint:      "localhost:4317",
		Insecure:      true,
		SamplingRate:  1.0,
	}
	tp, mp, logger, err := SetupObservability(cfg, "test-service", "debug")
	require.NoError(t, err)
	require.NotNil(t, tp)
	require.NotNil(t, mp)
	require.NotNil(t, logger)

	_, isStandardSDK := tp.(*sdktrace.TracerProvider)
	assert.True(t, isStandardSDK, "Expected standard SDK TracerProvider")
}

func TestSetupObservability_NoneEnabled(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		ServiceName: "test-service",
		Protocol:    "grpc",
		Endpoint:    "localhost:4317",
		Insecure:    true,
	}
	tp, mp, logger, err := SetupObservability(cfg, "", "info")
	require.NoError(t, err)
	require.Nil(t, tp)
	require.Nil(t, mp)
	require.NotNil(t, logger) // Logger is always returned (no-op when disabled)
}

func TestSetupObservability_InvalidProtocol(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		EnableTracing: true,
		ServiceName:   "test-service",
		Protocol:      "carrier-pigeon",
	}
	_, _, logger, err := SetupObservability(cfg, "test-service", "info")
	require.Error(t, err)
	assert.NotNil(t, logger)
	assert.Contains(t, err.Error(), "unsupported otel protocol")
}

func TestInitStandardTracing_GRPC(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Protocol:       "grpc",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SamplingRate:   1.0,
	}
	tp, err := InitStandardTracing(cfg)
	require.NoError(t, err)
	_, ok := tp.(*sdktrace.TracerProvider)
	require.True(t, ok, "Expected *sdktrace.TracerProvider")
}

func TestInitStandardTracing_HTTP(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Protocol:       "http",
		Endpoint:       "localhost:4318",
		Headers:        map[string]string{"x-api-key": "k"},
		SamplingRate:   0.5,
	}
	tp, err := InitStandardTracing(cfg)
	require.NoError(t, err)
	_, ok := tp.(*sdktrace.TracerProvider)
	require.True(t, ok, "Expected *sdktrace.TracerProvider")
}

func TestInitStandardTracing_InvalidProtocol(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		ServiceName: "test-service",
		Protocol:    "invalid",
		Endpoint:    "localhost:4317",
	}
	tp, err := InitStandardTracing(cfg)
	require.Error(t, err)
	require.Nil(t, tp)
	require.Contains(t, err.Error(), "unsupported otel protocol")
}

func TestInitMetrics_InvalidProtocol(t *testing.T) {
	mp, err := InitMetrics(&config.OpenTelemetryConfig{ServiceName: "test-service", Protocol: "smtp"})
	require.Error(t, err)
	require.Nil(t, mp)
}

func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestPortalMetrics_Counters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewPortalMetricsWithMeter(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.ReportCreated(ctx, "bug")
	m.ReportCreated(ctx, "feature")
	m.VoteToggled(ctx, true)
	m.TesterStatusChanged(ctx, "approved")
	m.AttachmentUploaded(ctx, "image/png", 2048)
	m.ApprovalEmailFailed(ctx)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	assert.Equal(t, int64(2), sumFor(t, rm, "betaportal.reports.created"))
	assert.Equal(t, int64(1), sumFor(t, rm, "betaportal.votes.toggled"))
	assert.Equal(t, int64(1), sumFor(t, rm, "betaportal.testers.status_changed"))
	assert.Equal(t, int64(2048), sumFor(t, rm, "betaportal.attachments.uploaded"))
	assert.Equal(t, int64(1), sumFor(t, rm, "betaportal.emails.failed"))
}

func TestPortalMetrics_NilIsNoop(t *testing.T) {
	var m *PortalMetrics
	assert.NotPanics(t, func() {
		m.ReportCreated(context.Background(), "bug")
		m.VoteToggled(context.Background(), false)
		(&PortalMetrics{}).TesterStatusChanged(context.Background(), "active")
	})
}

func TestTraceFunction_SpanName(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	globalTracer = tp.Tracer("test")
	defer func() { globalTracer = nil }()

	_, span := TraceVoteFunction(context.Background(), "toggle_vote", AttributeReportID(1))
	ro, ok := span.(sdktrace.ReadOnlySpan)
	require.True(t, ok)
	assert.Equal(t, "vote.toggle_vote", ro.Name())
	span.End()
}
