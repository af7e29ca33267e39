package logging

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lfkit.log")
	cfg := NewDefaultConfig()
	cfg.Format = "json"
	cfg.Output = path
	cfg.Level = TraceLevel
	cfg.Sampling.Enabled = false

	logger, err := NewLogger(cfg)
	require.NoError(t, err)

	ctx := WithRun(context.Background(), &Run{ID: "run-1", Split: "dev"})
	logger.Trace(ctx, "vote", zap.String("lf", "lf_a"))
	logger.Info(ctx, "Label matrix built", zap.Int("candidates", 3))
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var trace map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &trace))
	assert.Equal(t, "trace", trace["level"])

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &info))
	assert.Equal(t, "info", info["level"])
	assert.Equal(t, "Label matrix built", info["msg"])
	assert.Equal(t, "lfkit", info["service"])
	assert.Equal(t, "run-1", info["run.id"])
	assert.Equal(t, "dev", info["run.split"])
	assert.EqualValues(t, 3, info["candidates"])
	assert.NotEmpty(t, info["ts"])
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestLogger_ContextAwareMethods(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}
	ctx := context.Background()

	tests := []struct {
		name    string
		logFunc func()
		level   zapcore.Level
	}{
		{"trace", func() { logger.Trace(ctx, "message", zap.String("key", "val")) }, TraceLevel},
		{"debug", func() { logger.Debug(ctx, "message", zap.String("key", "val")) }, zapcore.DebugLevel},
		{"info", func() { logger.Info(ctx, "message", zap.String("key", "val")) }, zapcore.InfoLevel},
		{"warn", func() { logger.Warn(ctx, "message", zap.String("key", "val")) }, zapcore.WarnLevel},
		{"error", func() { logger.Error(ctx, "message", zap.String("key", "val")) }, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observed.TakeAll()
			tt.logFunc()

			logs := observed.All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.level, logs[0].Level)
			assert.Equal(t, "val", logs[0].ContextMap()["key"])
		})
	}
}

func TestLogger_TraceDisabledAtInfo(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}

	logger.Trace(context.Background(), "hidden")
	assert.Equal(t, 0, observed.Len())
	assert.False(t, logger.Enabled(TraceLevel))
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
}

func TestLogger_ChildLoggers(t *testing.T) {
	tl := NewTestLogger()
	child := tl.With(zap.String("component", "matrix")).Named("builder")
	child.Info(context.Background(), "child message")

	tl.AssertLogged(t, zapcore.InfoLevel, "child message")
	tl.AssertField(t, "child message", "component", "matrix")
	assert.Equal(t, "builder", tl.Entries("child message")[0].LoggerName)
}

func TestContextFields(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = WithRun(ctx, &Run{ID: "r1"})

	tl := NewTestLogger()
	tl.Info(ctx, "correlated")
	tl.AssertTraced(t, "correlated")
	tl.AssertField(t, "correlated", "trace_id", "0102030405060708090a0b0c0d0e0f10")
	tl.AssertField(t, "correlated", "trace_sampled", true)
	tl.AssertField(t, "correlated", "run.id", "r1")

	_, hasSplit := tl.Entries("correlated")[0].ContextMap()["run.split"]
	assert.False(t, hasSplit)

	tl.Reset()
	tl.Info(WithRun(context.Background(), &Run{ID: "r2", Split: "dev"}), "run scoped")
	tl.AssertRun(t, "run scoped", "r2", "dev")
	assert.Len(t, tl.All(), 1)
}

func TestWithRun_Nil(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithRun(ctx, nil))
	assert.Nil(t, RunFromContext(ctx))
}

func TestFromContext(t *testing.T) {
	nop := FromContext(context.Background())
	require.NotNil(t, nop)
	nop.Info(context.Background(), "dropped")

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	FromContext(ctx).Info(ctx, "found")
	tl.AssertLogged(t, zapcore.InfoLevel, "found")
	tl.AssertNotLogged(t, zapcore.InfoLevel, "dropped")
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"trace", TraceLevel, false},
		{"DEBUG", zapcore.DebugLevel, false},
		{" warn ", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := LevelFromString(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
