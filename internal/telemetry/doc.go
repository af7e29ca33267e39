// Package telemetry provides OpenTelemetry instrumentation for lfkit.
//
// # Overview
//
// Traces cover label matrix construction (matrix.apply and one
// matrix.apply_partition span per worker). Run totals are exported as
// OTLP metrics through RunInstruments. Per-LF Prometheus metrics live in
// pkg/matrix and are independent of this package.
//
// # Usage
//
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	builder := matrix.NewBuilder(matrix.WithTracerProvider(tel.TracerProvider()))
//	runs, _ := telemetry.NewRunInstruments(tel.Meter("lfkit"))
//
// # Configuration
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc
//	  sampling:
//	    rate: 1.0
//	  metrics:
//	    enabled: true
//	    export_interval: "15s"
//
// # Testing
//
//	tt := telemetry.NewTestTelemetry()
//	_, span := tt.Tracer("test").Start(ctx, "matrix.apply")
//	span.SetAttributes(attribute.Int("candidates", 3))
//	span.End()
//	tt.AssertSpan(t, "matrix.apply", attribute.Int("candidates", 3))
package telemetry
