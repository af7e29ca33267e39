package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTelemetry is an enabled Telemetry whose spans and metrics stay in
// memory. It never touches the global providers.
type TestTelemetry struct {
	*Telemetry

	spans   *tracetest.SpanRecorder
	metrics *sdkmetric.ManualReader
}

func NewTestTelemetry() *TestTelemetry {
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	tt := &TestTelemetry{
		spans:   tracetest.NewSpanRecorder(),
		metrics: sdkmetric.NewManualReader(),
	}
	tt.Telemetry = &Telemetry{
		config:         cfg,
		tracerProvider: trace.NewTracerProvider(trace.WithSpanProcessor(tt.spans)),
		meterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(tt.metrics)),
	}
	tt.healthy.Store(true)
	return tt
}

// Span returns the first ended span called name, or nil.
func (t *TestTelemetry) Span(name string) trace.ReadOnlySpan {
	for _, s := range t.spans.Ended() {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// AssertSpan fails tb unless an ended span called name carries every
// attribute in want.
func (t *TestTelemetry) AssertSpan(tb testing.TB, name string, want ...attribute.KeyValue) {
	tb.Helper()
	s := t.Span(name)
	if s == nil {
		var names []string
		for _, e := range t.spans.Ended() {
			names = append(names, e.Name())
		}
		tb.Errorf("no span %q among %v", name, names)
		return
	}
	got := attribute.NewSet(s.Attributes()...)
	for _, kv := range want {
		v, ok := got.Value(kv.Key)
		if !ok {
			tb.Errorf("span %q: missing attribute %q", name, kv.Key)
			continue
		}
		if v != kv.Value {
			tb.Errorf("span %q: %s = %v, want %v", name, kv.Key, v.Emit(), kv.Value.Emit())
		}
	}
}

// RunSum collects metrics and returns the int64 counter value recorded
// for instrument under attrs. ok is false when nothing matches.
func (t *TestTelemetry) RunSum(ctx context.Context, instrument string, attrs ...attribute.KeyValue) (v int64, ok bool, err error) {
	var rm metricdata.ResourceMetrics
	if err := t.metrics.Collect(ctx, &rm); err != nil {
		return 0, false, err
	}
	want := attribute.NewSet(attrs...)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, isSum := m.Data.(metricdata.Sum[int64])
			if m.Name != instrument || !isSum {
				continue
			}
			for _, dp := range sum.DataPoints {
				if dp.Attributes.Equals(&want) {
					return dp.Value, true, nil
				}
			}
		}
	}
	return 0, false, nil
}
