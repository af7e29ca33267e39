package matrix

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Metrics holds Prometheus metrics for matrix builds.
type Metrics struct {
	// Votes and failures per labeling function
	VotesTotal         *prometheus.CounterVec
	EvaluationFailures *prometheus.CounterVec

	// Build throughput
	BuildsTotal   prometheus.Counter
	BuildDuration prometheus.Histogram

	// Most recent build
	CandidatesLastBuild prometheus.Gauge
	CoverageLastBuild   *prometheus.GaugeVec
}

// DefaultMetrics returns metrics registered once on the default registry.
func DefaultMetrics() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// NewMetrics creates and registers matrix metrics on reg.
//
// Metrics:
//   - lfkit_lf_votes_total{lf,vote} - non-abstain votes cast
//   - lfkit_lf_evaluation_failures_total{lf} - recovered per-candidate failures
//   - lfkit_matrix_builds_total - completed builds
//   - lfkit_matrix_build_duration_seconds - build wall time
//   - lfkit_matrix_candidates - rows in the most recent build
//   - lfkit_lf_coverage{lf} - coverage in the most recent build
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		VotesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lfkit_lf_votes_total",
				Help: "Total number of non-abstain votes cast by labeling functions",
			},
			[]string{"lf", "vote"}, // "true" or "false"
		),

		EvaluationFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lfkit_lf_evaluation_failures_total",
				Help: "Total number of labeling function evaluations that failed and were recorded as abstain",
			},
			[]string{"lf"},
		),

		BuildsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "lfkit_matrix_builds_total",
				Help: "Total number of completed label matrix builds",
			},
		),

		BuildDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lfkit_matrix_build_duration_seconds",
				Help:    "Duration of label matrix builds in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
			},
		),

		CandidatesLastBuild: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "lfkit_matrix_candidates",
				Help: "Number of candidates in the most recent label matrix build",
			},
		),

		CoverageLastBuild: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lfkit_lf_coverage",
				Help: "Fraction of candidates each labeling function voted on in the most recent build",
			},
			[]string{"lf"},
		),
	}
}

// RecordVotes adds the vote counts of one labeling function.
func (m *Metrics) RecordVotes(lf string, positive, negative int) {
	if positive > 0 {
		m.VotesTotal.WithLabelValues(lf, "true").Add(float64(positive))
	}
	if negative > 0 {
		m.VotesTotal.WithLabelValues(lf, "false").Add(float64(negative))
	}
}

// RecordFailures adds recovered evaluation failures of one labeling function.
func (m *Metrics) RecordFailures(lf string, n int) {
	if n > 0 {
		m.EvaluationFailures.WithLabelValues(lf).Add(float64(n))
	}
}

// RecordBuild records a completed build. voted[j] is the number of
// non-abstain votes of lfs[j]. Coverage gauges of labeling functions absent
// from this build are removed.
func (m *Metrics) RecordBuild(candidates int, lfs []string, voted []int, durationSeconds float64) {
	m.BuildsTotal.Inc()
	m.BuildDuration.Observe(durationSeconds)
	m.CandidatesLastBuild.Set(float64(candidates))
	m.CoverageLastBuild.Reset()
	for j, lf := range lfs {
		m.CoverageLastBuild.WithLabelValues(lf).Set(fraction(voted[j], candidates))
	}
}
