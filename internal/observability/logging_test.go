package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	contextutils "betaportal/internal/utils"
)

func observedLogger(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &Logger{Logger: zap.New(core)}, logs
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zap.DebugLevel},
		{" DEBUG ", zap.DebugLevel},
		{"warn", zap.WarnLevel},
		{"warning", zap.WarnLevel},
		{"error", zap.ErrorLevel},
		{"info", zap.InfoLevel},
		{"", zap.InfoLevel},
		{"verbose", zap.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLogger_RequestCorrelation(t *testing.T) {
	logger, logs := observedLogger(zap.InfoLevel)

	ctx := contextutils.WithRequestID(context.Background(), "req-42")
	ctx = contextutils.WithExternalID(ctx, "user_abc")
	ctx = contextutils.WithTesterID(ctx, 7)

	logger.Info(ctx, "Beta application submitted", map[string]interface{}{"role": "pilot"})

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "user_abc", fields["external_id"])
	assert.EqualValues(t, 7, fields["tester_id"])
	assert.Equal(t, "pilot", fields["role"])
}

func TestLogger_ExplicitFieldsWin(t *testing.T) {
	logger, logs := observedLogger(zap.InfoLevel)
	ctx := contextutils.WithTesterID(context.Background(), 7)

	logger.Info(ctx, "Tester deleted", map[string]interface{}{"tester_id": 12})

	fields := logs.All()[0].ContextMap()
	assert.EqualValues(t, 12, fields["tester_id"])
}

func TestLogger_DoesNotMutateCallerFields(t *testing.T) {
	logger, _ := observedLogger(zap.InfoLevel)
	ctx := contextutils.WithRequestID(context.Background(), "req-1")

	fields := map[string]interface{}{"widget": "stats"}
	logger.Error(ctx, "Dashboard widget failed", errors.New("boom"), fields)
	logger.Warn(ctx, "Rate limiter unavailable", fields)

	assert.Equal(t, map[string]interface{}{"widget": "stats"}, fields)
}

func TestLogger_ErrorField(t *testing.T) {
	logger, logs := observedLogger(zap.InfoLevel)

	logger.Error(context.Background(), "Failed to send approval email", errors.New("smtp: 421"), nil)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "smtp: 421", entry.ContextMap()["error"])
}

func TestLogger_TraceCorrelation(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	logger, logs := observedLogger(zap.InfoLevel)

	ctx, span := tp.Tracer("test").Start(context.Background(), "vote.toggle_vote")
	logger.Info(ctx, "Vote toggled", nil)
	span.End()

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])

	logger.Info(context.Background(), "No span", nil)
	assert.NotContains(t, logs.All()[1].ContextMap(), "trace_id")
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, logs := observedLogger(ParseLevel("warn"))

	logger.Debug(context.Background(), "skipped", nil)
	logger.Info(context.Background(), "skipped", nil)
	logger.Warn(context.Background(), "kept", nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
}
