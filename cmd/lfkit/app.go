package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lfkit/internal/config"
	"github.com/fyrsmithlabs/lfkit/internal/logging"
	"github.com/fyrsmithlabs/lfkit/internal/report"
	"github.com/fyrsmithlabs/lfkit/internal/telemetry"
	"github.com/fyrsmithlabs/lfkit/pkg/candidate"
	"github.com/fyrsmithlabs/lfkit/pkg/lfdef"
	"github.com/fyrsmithlabs/lfkit/pkg/matrix"
	"github.com/fyrsmithlabs/lfkit/pkg/source"
)

const instrumentationName = "github.com/fyrsmithlabs/lfkit"

// app holds the process-wide dependencies shared by every command.
type app struct {
	// persistent flags
	configPath string
	logLevel   string
	logFormat  string

	cfg      *config.Config
	logger   *logging.Logger
	tel      *telemetry.Telemetry
	runs     *telemetry.RunInstruments
	registry *prometheus.Registry
	metrics  *matrix.Metrics
}

// inputFlags are shared by every command that builds a matrix.
type inputFlags struct {
	corpus      string
	lfs         string
	split       string
	parallelism int
	format      string
	metricsFile string
}

// setup loads configuration and initializes logging, telemetry and
// metrics. Flags override the configuration file.
func (a *app) setup(ctx context.Context) error {
	cfg, err := config.LoadWithFile(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	logCfg := logging.NewDefaultConfig()
	if err := cfg.Section("logging", logCfg); err != nil {
		return err
	}
	if a.logLevel != "" {
		lvl, err := logging.LevelFromString(a.logLevel)
		if err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
		logCfg.Level = lvl
	}
	if a.logFormat != "" {
		logCfg.Format = a.logFormat
	}
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger

	telCfg := telemetry.NewDefaultConfig()
	if err := cfg.Section("telemetry", telCfg); err != nil {
		return err
	}
	telCfg.ServiceVersion = version
	tel, err := telemetry.New(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.tel = tel
	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "Telemetry degraded, continuing without export", zap.Error(h.LastErr))
	}

	runs, err := telemetry.NewRunInstruments(tel.Meter(instrumentationName))
	if err != nil {
		logger.Warn(ctx, "Run instruments unavailable", zap.Error(err))
	}
	a.runs = runs

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector())
	a.metrics = matrix.NewMetrics(a.registry)
	return nil
}

// close flushes telemetry and the logger. Safe after a failed setup.
func (a *app) close(ctx context.Context) {
	if a.tel != nil {
		if err := a.tel.Shutdown(ctx); err != nil && a.logger != nil {
			a.logger.Warn(ctx, "Telemetry shutdown failed", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

// resolve fills unset flags from the configuration file.
func (a *app) resolve(in *inputFlags) (candidate.Split, report.Format, error) {
	if in.corpus == "" {
		in.corpus = a.cfg.Inputs.Corpus
	}
	if in.lfs == "" {
		in.lfs = a.cfg.Inputs.LFs
	}
	if in.split == "" {
		in.split = a.cfg.Inputs.Split
	}
	if in.parallelism == 0 {
		in.parallelism = a.cfg.Engine.Parallelism
	}
	if in.format == "" {
		in.format = a.cfg.Report.Format
	}
	if in.metricsFile == "" {
		in.metricsFile = a.cfg.Metrics.Textfile
	}

	if in.corpus == "" {
		return "", "", errors.New("no corpus: pass --corpus or set inputs.corpus")
	}
	if in.lfs == "" {
		return "", "", errors.New("no labeling functions: pass --lfs or set inputs.lfs")
	}
	if in.parallelism < 0 {
		return "", "", fmt.Errorf("--parallelism must be >= 0, got %d", in.parallelism)
	}

	split := candidate.Split(in.split)
	switch split {
	case candidate.SplitTrain, candidate.SplitDev, candidate.SplitTest:
	default:
		return "", "", fmt.Errorf("unknown split %q (want train, dev or test)", in.split)
	}

	format, err := report.ParseFormat(in.format)
	if err != nil {
		return "", "", err
	}
	return split, format, nil
}

// session is one loaded corpus and definition set.
type session struct {
	corpus *source.Memory
	lfs    *lfdef.Set
}

func (a *app) load(ctx context.Context, in inputFlags) (*session, error) {
	corpus, err := source.LoadCorpus(in.corpus)
	if err != nil {
		return nil, err
	}
	set, err := lfdef.Load(in.lfs)
	if err != nil {
		return nil, fmt.Errorf("loading labeling functions: %w", err)
	}
	a.logger.Debug(ctx, "Inputs loaded",
		zap.String("corpus", in.corpus),
		zap.String("lfs", in.lfs),
		zap.Strings("splits", splitNames(corpus.Splits())),
		zap.Strings("labeling_functions", set.Names()))
	return &session{corpus: corpus, lfs: set}, nil
}

// build applies the session's labeling functions to one split, records
// the run and exports metrics when a textfile is configured.
func (a *app) build(ctx context.Context, s *session, split candidate.Split, in inputFlags) (*matrix.Result, error) {
	b := matrix.NewBuilder(
		matrix.WithParallelism(in.parallelism),
		matrix.WithLogger(a.logger.Underlying()),
		matrix.WithMetrics(a.metrics),
		matrix.WithTracerProvider(a.tel.TracerProvider()),
	)

	res, err := b.ApplyToSplit(ctx, s.corpus, split, s.lfs.LFs())
	if err != nil {
		return nil, err
	}

	ctx = logging.WithRun(ctx, &logging.Run{ID: res.RunID.String(), Split: string(split)})
	rows, _ := res.Matrix.Shape()
	a.runs.Record(ctx, string(split), rows, len(res.Failures), res.Duration)
	a.logger.Debug(ctx, "Run recorded", zap.Int("failures", len(res.Failures)))

	if in.metricsFile != "" {
		if err := prometheus.WriteToTextfile(in.metricsFile, a.registry); err != nil {
			return nil, fmt.Errorf("writing metrics textfile: %w", err)
		}
	}
	return res, nil
}

func splitNames(splits []candidate.Split) []string {
	out := make([]string, len(splits))
	for i, s := range splits {
		out[i] = string(s)
	}
	return out
}
