package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "lfkit",
		Short: "Build and evaluate labeling functions for weak supervision",
		Long: `lfkit applies labeling functions to relation candidates, builds the
sparse label matrix and reports how each function performs.

Labeling functions are declared in a YAML or TOML file; candidates and
gold labels come from a JSONL corpus. Settings not passed as flags are
read from ~/.config/lfkit/config.yaml (or --config) and LFKIT_*
environment variables.

Examples:
  # Summarize the dev split
  lfkit apply --corpus corpus.jsonl --lfs lfs.yaml

  # Score every labeling function against gold labels
  lfkit stats --corpus corpus.jsonl --lfs lfs.yaml --annotator gold

  # JSON output for scripts
  lfkit stats --corpus corpus.jsonl --lfs lfs.yaml --format json`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, gitCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.config/lfkit/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: console or json")

	root.AddCommand(newApplyCmd(a))
	root.AddCommand(newStatsCmd(a))
	root.AddCommand(newBucketsCmd(a))
	root.AddCommand(newWatchCmd(a))
	return root
}

// addInputFlags registers the flags shared by matrix-building commands.
func addInputFlags(cmd *cobra.Command, in *inputFlags) {
	f := cmd.Flags()
	f.StringVar(&in.corpus, "corpus", "", "JSONL corpus of contexts, candidates and gold labels")
	f.StringVar(&in.lfs, "lfs", "", "labeling function definitions (.yaml, .yml or .toml)")
	f.StringVar(&in.split, "split", "", "split to label: train, dev or test (default dev)")
	f.IntVar(&in.parallelism, "parallelism", 0, "worker count (0 uses GOMAXPROCS)")
	f.StringVar(&in.format, "format", "", "output format: table, json or yaml (default table)")
	f.StringVar(&in.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")
}
