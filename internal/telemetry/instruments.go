package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RunInstruments records one data point per labeling run.
type RunInstruments struct {
	runs       metric.Int64Counter
	candidates metric.Int64Counter
	failures   metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewRunInstruments creates the lfkit.run.* instruments on meter.
func NewRunInstruments(meter metric.Meter) (*RunInstruments, error) {
	runs, err := meter.Int64Counter("lfkit.run.count",
		metric.WithDescription("Labeling runs completed"))
	if err != nil {
		return nil, fmt.Errorf("creating run counter: %w", err)
	}
	candidates, err := meter.Int64Counter("lfkit.run.candidates",
		metric.WithDescription("Candidates labeled"))
	if err != nil {
		return nil, fmt.Errorf("creating candidate counter: %w", err)
	}
	failures, err := meter.Int64Counter("lfkit.run.failures",
		metric.WithDescription("Labeling function evaluation failures"))
	if err != nil {
		return nil, fmt.Errorf("creating failure counter: %w", err)
	}
	duration, err := meter.Float64Histogram("lfkit.run.duration",
		metric.WithDescription("Label matrix construction time"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	return &RunInstruments{runs: runs, candidates: candidates, failures: failures, duration: duration}, nil
}

// Record adds one run's totals, attributed by split.
func (r *RunInstruments) Record(ctx context.Context, split string, candidates, failures int, d time.Duration) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("split", split))
	r.runs.Add(ctx, 1, attrs)
	r.candidates.Add(ctx, int64(candidates), attrs)
	r.failures.Add(ctx, int64(failures), attrs)
	r.duration.Record(ctx, d.Seconds(), attrs)
}
