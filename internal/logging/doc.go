// Package logging provides structured logging for lfkit commands.
//
// # Overview
//
// Logging wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Automatic context field injection (trace_id, span_id, run.id, run.split)
//   - Per-level sampling (errors never sampled)
//   - Console or JSON encoding to stderr, stdout or a file
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	ctx = logging.WithRun(ctx, &logging.Run{ID: runID, Split: "dev"})
//	logger.Info(ctx, "Label matrix built", zap.Int("candidates", n))
//
// Packages that accept a *zap.Logger get logger.Underlying().
//
// # Configuration Precedence
//
//  1. Defaults (NewDefaultConfig)
//  2. The logging section of config.yaml
//  3. Environment variables (LFKIT_LOGGING_*)
//  4. Command-line flags (--log-level, --log-format)
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	ctx := logging.WithRun(ctx, &logging.Run{ID: "r1", Split: "dev"})
//	tl.Warn(ctx, "Labeling function failed", zap.String("lf", "lf_spouse"))
//	tl.AssertLogged(t, zapcore.WarnLevel, "Labeling function failed")
//	tl.AssertRun(t, "Labeling function failed", "r1", "dev")
package logging
