package matrix

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/lfkit/pkg/candidate"
	"github.com/fyrsmithlabs/lfkit/pkg/labeling"
)

// corpus builds n binary candidates. Every third one has "wife" between its
// spans, every fifth one "daughter".
func corpus(n int) []*candidate.Candidate {
	out := make([]*candidate.Candidate, n)
	for i := range out {
		mid := "met"
		switch {
		case i%3 == 0:
			mid = "and his wife"
		case i%5 == 0:
			mid = "and his daughter"
		}
		words := strings.Fields(fmt.Sprintf("Person%d %s Other%d today", i, mid, i))
		out[i] = &candidate.Candidate{
			ID:      fmt.Sprintf("c%03d", i),
			Split:   candidate.SplitTrain,
			Spans:   []candidate.Span{{Start: 0, End: 1}, {Start: len(words) - 2, End: len(words) - 1}},
			Context: &candidate.Context{ID: fmt.Sprintf("s%03d", i), Words: words},
		}
	}
	return out
}

func termLF(t *testing.T, name string, label labeling.Label, terms ...string) labeling.LabelingFunction {
	t.Helper()
	f, err := labeling.NewTermFactory(labeling.Config{Name: name, Label: label, Search: candidate.ScopeBetween}, terms)
	require.NoError(t, err)
	return f.LF()
}

func spouseLFs(t *testing.T) []labeling.LabelingFunction {
	wife := termLF(t, "lf_wife", labeling.True, "wife", "husband")
	family := termLF(t, "lf_family", labeling.False, "daughter", "son")
	his := termLF(t, "lf_his", labeling.True, "his")
	return []labeling.LabelingFunction{wife, family, his}
}

func TestApply_ShapeAndVotes(t *testing.T) {
	cands := corpus(10)
	res, err := NewBuilder().Apply(context.Background(), cands, spouseLFs(t))
	require.NoError(t, err)

	m := res.Matrix
	rows, cols := m.Shape()
	assert.Equal(t, 10, rows)
	assert.Equal(t, 3, cols)
	assert.Empty(t, res.Failures)
	assert.NotEqual(t, uuid.Nil, res.RunID)

	v, ok := m.Get("c000", "lf_wife")
	require.True(t, ok)
	assert.Equal(t, labeling.True, v)

	v, ok = m.Get("c005", "lf_family")
	require.True(t, ok)
	assert.Equal(t, labeling.False, v)

	assert.Equal(t, labeling.Abstain, m.At(1, 0))
	assert.Equal(t, []labeling.Label{labeling.True, labeling.Abstain, labeling.True}, m.Row(0))

	// wife: 0,3,6,9  daughter: 5  his: 0,3,5,6,9
	assert.Equal(t, 10, m.NNZ())
	assert.Equal(t, []string{"c000", "c001", "c002", "c003", "c004", "c005", "c006", "c007", "c008", "c009"}, m.CandidateIDs())
	assert.Equal(t, []string{"lf_wife", "lf_family", "lf_his"}, m.LFNames())
}

func TestApply_TernaryClosure(t *testing.T) {
	res, err := NewBuilder().Apply(context.Background(), corpus(30), spouseLFs(t))
	require.NoError(t, err)

	for e := range res.Matrix.Entries() {
		assert.Contains(t, []labeling.Label{labeling.True, labeling.False}, e.Label)
	}
}

func TestApply_DeterministicAcrossParallelism(t *testing.T) {
	cands := corpus(97)
	lfs := spouseLFs(t)
	lfs = append(lfs, labeling.FuncE("lf_flaky", func(c *candidate.Candidate) (labeling.Label, error) {
		if strings.HasSuffix(c.ID, "7") {
			return labeling.Abstain, errors.New("no parse")
		}
		return labeling.False, nil
	}))

	seq, err := NewBuilder(WithParallelism(1)).Apply(context.Background(), cands, lfs)
	require.NoError(t, err)

	for _, p := range []int{2, 3, 8, 200} {
		t.Run(fmt.Sprintf("parallelism=%d", p), func(t *testing.T) {
			par, err := NewBuilder(WithParallelism(p)).Apply(context.Background(), cands, lfs)
			require.NoError(t, err)

			assert.True(t, seq.Matrix.Equal(par.Matrix))
			if diff := cmp.Diff(slices.Collect(seq.Matrix.Entries()), slices.Collect(par.Matrix.Entries())); diff != "" {
				t.Errorf("entries differ (-seq +par):\n%s", diff)
			}
			if diff := cmp.Diff(failureKeys(seq.Failures), failureKeys(par.Failures)); diff != "" {
				t.Errorf("failures differ (-seq +par):\n%s", diff)
			}
		})
	}
}

func failureKeys(fs []*labeling.EvaluationError) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.CandidateID + "/" + f.LF
	}
	return out
}

func TestApply_Idempotent(t *testing.T) {
	cands := corpus(20)
	lfs := spouseLFs(t)
	b := NewBuilder(WithParallelism(4))

	first, err := b.Apply(context.Background(), cands, lfs)
	require.NoError(t, err)
	second, err := b.Apply(context.Background(), cands, lfs)
	require.NoError(t, err)

	assert.True(t, first.Matrix.Equal(second.Matrix))
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestApply_ColumnIndependence(t *testing.T) {
	cands := corpus(40)
	lfs := spouseLFs(t)

	base, err := NewBuilder().Apply(context.Background(), cands, lfs[:2])
	require.NoError(t, err)
	more, err := NewBuilder().Apply(context.Background(), cands, lfs)
	require.NoError(t, err)

	baseStats := base.Matrix.Stats()
	moreStats := more.Matrix.Stats()
	for j, name := range base.Matrix.LFNames() {
		before, err := base.Matrix.Column(name)
		require.NoError(t, err)
		after, err := more.Matrix.Column(name)
		require.NoError(t, err)
		assert.Equal(t, before, after, name)

		assert.Equal(t, baseStats[j].Coverage, moreStats[j].Coverage, name)
		assert.GreaterOrEqual(t, moreStats[j].Overlap, baseStats[j].Overlap, name)
		assert.GreaterOrEqual(t, moreStats[j].Conflict, baseStats[j].Conflict, name)
	}
}

func TestApply_FailSoft(t *testing.T) {
	cands := corpus(6)
	boom := errors.New("boom")
	lfs := []labeling.LabelingFunction{
		termLF(t, "lf_wife", labeling.True, "wife"),
		labeling.FuncE("lf_err", func(c *candidate.Candidate) (labeling.Label, error) {
			if c.ID == "c002" {
				return labeling.True, boom
			}
			return labeling.True, nil
		}),
		labeling.Func("lf_panic", func(c *candidate.Candidate) labeling.Label {
			if c.ID == "c004" {
				panic("index out of range")
			}
			return labeling.Abstain
		}),
		labeling.Func("lf_bogus", func(c *candidate.Candidate) labeling.Label {
			if c.ID == "c001" {
				return labeling.Label(7)
			}
			return labeling.Abstain
		}),
	}

	res, err := NewBuilder(WithParallelism(3)).Apply(context.Background(), cands, lfs)
	require.NoError(t, err)

	require.Len(t, res.Failures, 3)
	assert.Equal(t, []string{"c001/lf_bogus", "c002/lf_err", "c004/lf_panic"}, failureKeys(res.Failures))
	assert.ErrorIs(t, res.Failures[0], labeling.ErrInvalidLabel)
	assert.ErrorIs(t, res.Failures[1], boom)
	assert.ErrorIs(t, res.Failures[1], labeling.ErrEvaluation)
	assert.Contains(t, res.Failures[2].Error(), "panic")

	v, _ := res.Matrix.Get("c002", "lf_err")
	assert.Equal(t, labeling.Abstain, v)
	v, _ = res.Matrix.Get("c003", "lf_err")
	assert.Equal(t, labeling.True, v)
	v, _ = res.Matrix.Get("c000", "lf_wife")
	assert.Equal(t, labeling.True, v)

	assert.Equal(t, map[string]int{"lf_bogus": 1, "lf_err": 1, "lf_panic": 1}, res.FailuresByLF())
}

func TestApply_BetweenSpanCountIsEvaluationFailure(t *testing.T) {
	cands := corpus(2)
	cands[1].Spans = append(cands[1].Spans, candidate.Span{Start: 1, End: 2})

	res, err := NewBuilder().Apply(context.Background(), cands, spouseLFs(t)[:1])
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "c001", res.Failures[0].CandidateID)
	assert.ErrorIs(t, res.Failures[0], candidate.ErrSpanCount)
}

func TestApply_ConfigurationErrors(t *testing.T) {
	lfs := spouseLFs(t)
	dupName := termLF(t, "lf_wife", labeling.False, "spouse")

	tests := []struct {
		name  string
		cands []*candidate.Candidate
		lfs   []labeling.LabelingFunction
	}{
		{"duplicate lf names", corpus(3), []labeling.LabelingFunction{lfs[0], dupName}},
		{"nil lf", corpus(3), []labeling.LabelingFunction{lfs[0], nil}},
		{"unnamed lf", corpus(3), []labeling.LabelingFunction{labeling.Func("", func(*candidate.Candidate) labeling.Label { return labeling.True })}},
		{"nil candidate", []*candidate.Candidate{nil}, lfs},
		{"duplicate candidate", append(corpus(2), corpus(1)...), lfs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			counting := labeling.Func("counting", func(*candidate.Candidate) labeling.Label {
				calls++
				return labeling.True
			})
			res, err := NewBuilder().Apply(context.Background(), tt.cands, append(slices.Clone(tt.lfs), counting))
			assert.Nil(t, res)
			assert.ErrorIs(t, err, labeling.ErrConfiguration)
			assert.Zero(t, calls, "no evaluation before validation")
		})
	}
}

func TestApply_EmptyInputs(t *testing.T) {
	res, err := NewBuilder().Apply(context.Background(), nil, spouseLFs(t))
	require.NoError(t, err)
	rows, cols := res.Matrix.Shape()
	assert.Equal(t, 0, rows)
	assert.Equal(t, 3, cols)
	for _, s := range res.Matrix.Stats() {
		assert.Zero(t, s.Coverage)
		assert.Zero(t, s.Overlap)
		assert.Zero(t, s.Conflict)
	}

	res, err = NewBuilder().Apply(context.Background(), corpus(4), nil)
	require.NoError(t, err)
	rows, cols = res.Matrix.Shape()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 0, cols)
}

func TestApply_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(WithParallelism(2)).Apply(ctx, corpus(10), spouseLFs(t))
	assert.ErrorIs(t, err, context.Canceled)
}

type listSource map[candidate.Split][]*candidate.Candidate

func (s listSource) Candidates(_ context.Context, split candidate.Split) ([]*candidate.Candidate, error) {
	c, ok := s[split]
	if !ok {
		return nil, fmt.Errorf("no split %s", split)
	}
	return c, nil
}

func TestApplyToSplit(t *testing.T) {
	src := listSource{candidate.SplitDev: corpus(5)}

	res, err := NewBuilder().ApplyToSplit(context.Background(), src, candidate.SplitDev, spouseLFs(t))
	require.NoError(t, err)
	rows, _ := res.Matrix.Shape()
	assert.Equal(t, 5, rows)

	_, err = NewBuilder().ApplyToSplit(context.Background(), src, candidate.SplitTest, spouseLFs(t))
	assert.Error(t, err)
}

func TestReapply_KeepsPreviousRowOrder(t *testing.T) {
	cands := corpus(6)
	lfs := spouseLFs(t)

	prev, err := NewBuilder().Apply(context.Background(), cands, lfs[:1])
	require.NoError(t, err)

	shuffled := []*candidate.Candidate{cands[3], cands[5], cands[0], cands[4], cands[1], cands[2]}
	res, err := NewBuilder().Reapply(context.Background(), prev.Matrix, shuffled, lfs)
	require.NoError(t, err)
	assert.Equal(t, prev.Matrix.CandidateIDs(), res.Matrix.CandidateIDs())

	extra := corpus(8)[6:]
	res, err = NewBuilder().Reapply(context.Background(), prev.Matrix, append(shuffled, extra...), lfs)
	require.NoError(t, err)
	ids := res.Matrix.CandidateIDs()
	assert.Equal(t, []string{"c006", "c007"}, ids[6:])

	_, err = NewBuilder().Reapply(context.Background(), prev.Matrix, shuffled[:5], lfs)
	assert.Error(t, err)

	dup := append(append([]*candidate.Candidate{}, shuffled...), cands[1])
	_, err = NewBuilder().Reapply(context.Background(), prev.Matrix, dup, lfs)
	var cfgErr *labeling.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "c001", cfgErr.Value)
	assert.ErrorIs(t, err, labeling.ErrConfiguration)

	_, err = NewBuilder().Reapply(context.Background(), nil, shuffled, lfs)
	assert.ErrorContains(t, err, "previous matrix is nil")
}

func TestApply_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	lfs := append(spouseLFs(t), labeling.FuncE("lf_err", func(*candidate.Candidate) (labeling.Label, error) {
		return labeling.Abstain, errors.New("nope")
	}))
	_, err := NewBuilder(WithMetrics(metrics)).Apply(context.Background(), corpus(10), lfs)
	require.NoError(t, err)

	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.VotesTotal.WithLabelValues("lf_wife", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.VotesTotal.WithLabelValues("lf_family", "false")))
	assert.Equal(t, 10.0, testutil.ToFloat64(metrics.EvaluationFailures.WithLabelValues("lf_err")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BuildsTotal))
	assert.Equal(t, 10.0, testutil.ToFloat64(metrics.CandidatesLastBuild))
	assert.InDelta(t, 0.4, testutil.ToFloat64(metrics.CoverageLastBuild.WithLabelValues("lf_wife")), 1e-9)
}

func TestApply_MetricsLeaveStatsLazy(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	b := NewBuilder(WithMetrics(metrics))

	res, err := b.Apply(context.Background(), corpus(10), spouseLFs(t))
	require.NoError(t, err)
	assert.Nil(t, res.Matrix.stats.columns, "metrics must not compute column stats")
	stats, err := res.Matrix.StatsFor("lf_wife")
	require.NoError(t, err)
	assert.InDelta(t, stats.Coverage, testutil.ToFloat64(metrics.CoverageLastBuild.WithLabelValues("lf_wife")), 1e-9)

	renamed := labeling.Func("lf_spouse", func(*candidate.Candidate) labeling.Label { return labeling.True })
	_, err = b.Apply(context.Background(), corpus(4), []labeling.LabelingFunction{renamed})
	require.NoError(t, err)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.CoverageLastBuild), "gauges of earlier labeling functions are dropped")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CoverageLastBuild.WithLabelValues("lf_spouse")))
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.CandidatesLastBuild))
}

func TestDefaultMetrics_RegisteredOnce(t *testing.T) {
	m := DefaultMetrics()
	require.NotNil(t, m)
	assert.Same(t, m, DefaultMetrics())
}

func TestApply_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, err := NewBuilder(WithTracerProvider(tp), WithParallelism(2)).Apply(context.Background(), corpus(10), spouseLFs(t))
	require.NoError(t, err)

	var applies, partitions int
	for _, s := range recorder.Ended() {
		switch s.Name() {
		case "matrix.apply":
			applies++
		case "matrix.apply_partition":
			partitions++
		}
	}
	assert.Equal(t, 1, applies)
	assert.Equal(t, 2, partitions)
}

func TestApply_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	lfs := []labeling.LabelingFunction{labeling.FuncE("lf_err", func(*candidate.Candidate) (labeling.Label, error) {
		return labeling.Abstain, errors.New("nope")
	})}
	_, err := NewBuilder(WithLogger(zap.New(core))).Apply(context.Background(), corpus(2), lfs)
	require.NoError(t, err)

	failed := logs.FilterMessage("Labeling function failed").All()
	require.Len(t, failed, 2)
	for _, e := range failed {
		assert.Equal(t, zapcore.DebugLevel, e.Level)
	}
	summary := logs.FilterMessage("Label matrix built with evaluation failures").All()
	require.Len(t, summary, 1)
	assert.Equal(t, zapcore.WarnLevel, summary[0].Level)

	built := logs.FilterMessage("Label matrix built").All()
	require.Len(t, built, 1)
	assert.Equal(t, zapcore.InfoLevel, built[0].Level)
	assert.Equal(t, int64(2), built[0].ContextMap()["candidates"])
}
