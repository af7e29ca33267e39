package matrix

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/lfkit/pkg/candidate"
	"github.com/fyrsmithlabs/lfkit/pkg/labeling"
)

const tracerName = "lfkit/matrix"

// Builder applies labeling functions to candidates.
//
// Candidates are split into contiguous partitions evaluated concurrently;
// every partition writes only its own rows, and rows and failures are
// reassembled in input order, so the result does not depend on the degree
// of parallelism.
type Builder struct {
	parallelism int
	logger      *zap.Logger
	metrics     *Metrics
	tracer      trace.Tracer
}

// Option configures a Builder.
type Option func(*Builder)

// WithParallelism sets the number of concurrent partitions. Zero or less
// means runtime.GOMAXPROCS(0).
func WithParallelism(n int) Option {
	return func(b *Builder) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		b.parallelism = n
	}
}

// WithLogger sets the logger. Each failed cell is logged at debug level;
// a build with failures adds one warn entry with per-LF failure counts.
// Every build ends with an info summary.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(b *Builder) {
		if tp != nil {
			b.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewBuilder creates a builder. Without options it runs sequentially,
// silently and without metrics.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		parallelism: 1,
		logger:      zap.NewNop(),
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Parallelism returns the configured partition count.
func (b *Builder) Parallelism() int {
	return b.parallelism
}

// Result is the outcome of one build.
type Result struct {
	// RunID identifies the build in logs and traces.
	RunID uuid.UUID

	Matrix *Matrix

	// Failures lists recovered per-cell errors ordered by candidate then
	// labeling function. Each failed cell abstains in Matrix.
	Failures []*labeling.EvaluationError

	Duration    time.Duration
	Parallelism int
}

// FailuresByLF counts failures per labeling function.
func (r *Result) FailuresByLF() map[string]int {
	out := make(map[string]int)
	for _, f := range r.Failures {
		out[f.LF]++
	}
	return out
}

// CandidateLister lists candidates of one split in a stable order.
type CandidateLister interface {
	Candidates(ctx context.Context, split candidate.Split) ([]*candidate.Candidate, error)
}

// cell is one non-abstain vote of a row under construction.
type cell struct {
	col int
	v   labeling.Label
}

// partition is a contiguous range of rows evaluated by one worker.
type partition struct {
	index    int
	lo, hi   int
	failures []*labeling.EvaluationError
	positive []int
	negative []int
}

// Apply evaluates every labeling function on every candidate.
//
// Invalid inputs (nil or unnamed labeling functions, duplicate names,
// invalid or duplicate candidates) fail before any evaluation with a
// *labeling.ConfigurationError. A labeling function erroring or panicking
// on a candidate does not fail the build: the cell abstains and the error
// is returned in Result.Failures. Only context cancellation aborts a build.
func (b *Builder) Apply(ctx context.Context, candidates []*candidate.Candidate, lfs []labeling.LabelingFunction) (*Result, error) {
	start := time.Now()
	runID := uuid.New()

	ctx, span := b.tracer.Start(ctx, "matrix.apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", runID.String()),
		attribute.Int("candidates.count", len(candidates)),
		attribute.Int("lfs.count", len(lfs)),
	)

	names, err := checkLFs(lfs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid labeling functions")
		return nil, err
	}
	ids, err := checkCandidates(candidates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid candidates")
		return nil, err
	}

	mat, err := newShell(ids, names)
	if err != nil {
		return nil, err
	}

	rows := make([][]cell, len(candidates))
	parts := b.partitions(len(candidates), len(lfs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallelism)
	for _, p := range parts {
		g.Go(func() error {
			return b.applyPartition(gctx, p, candidates, lfs, rows)
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build aborted")
		return nil, fmt.Errorf("applying labeling functions: %w", err)
	}

	assemble(mat, rows)

	result := &Result{
		RunID:       runID,
		Matrix:      mat,
		Duration:    time.Since(start),
		Parallelism: b.parallelism,
	}
	positive := make([]int, len(lfs))
	negative := make([]int, len(lfs))
	for _, p := range parts {
		result.Failures = append(result.Failures, p.failures...)
		for j := range lfs {
			positive[j] += p.positive[j]
			negative[j] += p.negative[j]
		}
	}

	if b.metrics != nil {
		failures := result.FailuresByLF()
		voted := make([]int, len(names))
		for j, name := range names {
			b.metrics.RecordVotes(name, positive[j], negative[j])
			b.metrics.RecordFailures(name, failures[name])
			voted[j] = positive[j] + negative[j]
		}
		b.metrics.RecordBuild(len(candidates), names, voted, result.Duration.Seconds())
	}

	span.SetAttributes(
		attribute.Int("matrix.nnz", mat.NNZ()),
		attribute.Int("failures.count", len(result.Failures)),
	)

	for _, f := range result.Failures {
		b.logger.Debug("Labeling function failed",
			zap.String("run_id", runID.String()),
			zap.String("lf", f.LF),
			zap.String("candidate", f.CandidateID),
			zap.Error(f.Err))
	}
	if len(result.Failures) > 0 {
		b.logger.Warn("Label matrix built with evaluation failures",
			zap.String("run_id", runID.String()),
			zap.Int("failures", len(result.Failures)),
			zap.Any("failures_by_lf", result.FailuresByLF()))
	}
	b.logger.Info("Label matrix built",
		zap.String("run_id", runID.String()),
		zap.Int("candidates", len(candidates)),
		zap.Int("lfs", len(lfs)),
		zap.Int("nnz", mat.NNZ()),
		zap.Int("parallelism", b.parallelism),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// ApplyToSplit lists a split's candidates from src and applies lfs to them.
func (b *Builder) ApplyToSplit(ctx context.Context, src CandidateLister, split candidate.Split, lfs []labeling.LabelingFunction) (*Result, error) {
	cands, err := src.Candidates(ctx, split)
	if err != nil {
		return nil, fmt.Errorf("listing %s candidates: %w", split, err)
	}
	return b.Apply(ctx, cands, lfs)
}

// Reapply applies lfs using prev's row order. Every candidate of prev must
// be supplied; supplied candidates unknown to prev are appended after them
// in input order. Candidates are checked as in Apply before reordering.
func (b *Builder) Reapply(ctx context.Context, prev *Matrix, candidates []*candidate.Candidate, lfs []labeling.LabelingFunction) (*Result, error) {
	if prev == nil {
		return nil, fmt.Errorf("reapply: previous matrix is nil")
	}
	if _, err := checkCandidates(candidates); err != nil {
		return nil, err
	}

	byID := make(map[string]*candidate.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	ordered := make([]*candidate.Candidate, 0, len(candidates))
	for _, id := range prev.candidateIDs {
		c, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("candidate %q of previous matrix was not supplied", id)
		}
		ordered = append(ordered, c)
		delete(byID, id)
	}
	for _, c := range candidates {
		if _, extra := byID[c.ID]; extra {
			ordered = append(ordered, c)
		}
	}
	return b.Apply(ctx, ordered, lfs)
}

func (b *Builder) partitions(n, lfs int) []*partition {
	if n == 0 {
		return nil
	}
	count := min(b.parallelism, n)
	size := (n + count - 1) / count
	parts := make([]*partition, 0, count)
	for lo := 0; lo < n; lo += size {
		parts = append(parts, &partition{
			index:    len(parts),
			lo:       lo,
			hi:       min(lo+size, n),
			positive: make([]int, lfs),
			negative: make([]int, lfs),
		})
	}
	return parts
}

func (b *Builder) applyPartition(ctx context.Context, p *partition, candidates []*candidate.Candidate, lfs []labeling.LabelingFunction, rows [][]cell) error {
	_, span := b.tracer.Start(ctx, "matrix.apply_partition")
	defer span.End()
	span.SetAttributes(
		attribute.Int("partition.index", p.index),
		attribute.Int("partition.rows", p.hi-p.lo),
	)

	for i := p.lo; i < p.hi; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := candidates[i]
		var row []cell
		for j, lf := range lfs {
			v, err := evaluate(lf, c)
			if err == nil && !v.Valid() {
				err = fmt.Errorf("%w: %d", labeling.ErrInvalidLabel, v)
			}
			if err != nil {
				p.failures = append(p.failures, &labeling.EvaluationError{
					CandidateID: c.ID,
					LF:          lf.Name(),
					Err:         err,
				})
				continue
			}
			switch v {
			case labeling.True:
				p.positive[j]++
			case labeling.False:
				p.negative[j]++
			default:
				continue
			}
			row = append(row, cell{col: j, v: v})
		}
		rows[i] = row
	}

	span.SetAttributes(attribute.Int("failures.count", len(p.failures)))
	return nil
}

// evaluate calls lf, converting a panic into an error.
func evaluate(lf labeling.LabelingFunction, c *candidate.Candidate) (v labeling.Label, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = labeling.Abstain
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return lf.Label(c)
}

func assemble(m *Matrix, rows [][]cell) {
	nnz := 0
	for _, r := range rows {
		nnz += len(r)
	}
	m.rowPtr = make([]int, len(rows)+1)
	m.cols = make([]int, 0, nnz)
	m.vals = make([]labeling.Label, 0, nnz)
	for i, r := range rows {
		for _, c := range r {
			m.cols = append(m.cols, c.col)
			m.vals = append(m.vals, c.v)
		}
		m.rowPtr[i+1] = len(m.cols)
	}
}

func checkLFs(lfs []labeling.LabelingFunction) ([]string, error) {
	names := make([]string, len(lfs))
	seen := make(map[string]int, len(lfs))
	for j, lf := range lfs {
		if lf == nil {
			return nil, &labeling.ConfigurationError{Field: fmt.Sprintf("lfs[%d]", j), Reason: "is nil"}
		}
		name := lf.Name()
		if name == "" {
			return nil, &labeling.ConfigurationError{Field: fmt.Sprintf("lfs[%d].name", j), Reason: "is required"}
		}
		if first, dup := seen[name]; dup {
			return nil, &labeling.ConfigurationError{
				LF:     name,
				Field:  "name",
				Reason: fmt.Sprintf("duplicate labeling function name at positions %d and %d", first, j),
			}
		}
		seen[name] = j
		names[j] = name
	}
	return names, nil
}

func checkCandidates(candidates []*candidate.Candidate) ([]string, error) {
	ids := make([]string, len(candidates))
	seen := make(map[string]int, len(candidates))
	for i, c := range candidates {
		if err := c.Validate(); err != nil {
			return nil, &labeling.ConfigurationError{Field: fmt.Sprintf("candidates[%d]", i), Reason: "invalid candidate", Err: err}
		}
		if first, dup := seen[c.ID]; dup {
			return nil, &labeling.ConfigurationError{
				Field:  fmt.Sprintf("candidates[%d]", i),
				Value:  c.ID,
				Reason: fmt.Sprintf("duplicate candidate id, first at position %d", first),
			}
		}
		seen[c.ID] = i
		ids[i] = c.ID
	}
	return ids, nil
}
