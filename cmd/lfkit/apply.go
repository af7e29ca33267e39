package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lfkit/internal/report"
)

func newApplyCmd(a *app) *cobra.Command {
	var (
		in  inputFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Build the label matrix for one split",
		Long: `Apply every non-hidden labeling function to the candidates of a split
and print a summary of the resulting label matrix.

Evaluation errors do not stop the run: the failing cell abstains and the
error is listed in the summary.

Examples:
  # Summarize the dev split
  lfkit apply --corpus corpus.jsonl --lfs lfs.yaml

  # Save the train matrix in sparse JSON form
  lfkit apply --corpus corpus.jsonl --lfs lfs.yaml --split train --out train.json

  # Export Prometheus metrics for node_exporter
  lfkit apply --corpus corpus.jsonl --lfs lfs.yaml --metrics-file /var/lib/node_exporter/lfkit.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, a, in, out)
		},
	}
	addInputFlags(cmd, &in)
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the label matrix as JSON to this file")
	return cmd
}

func runApply(cmd *cobra.Command, a *app, in inputFlags, out string) error {
	ctx := cmd.Context()
	split, format, err := a.resolve(&in)
	if err != nil {
		return err
	}
	s, err := a.load(ctx, in)
	if err != nil {
		return err
	}
	res, err := a.build(ctx, s, split, in)
	if err != nil {
		return err
	}

	if out != "" {
		data, err := json.Marshal(res.Matrix)
		if err != nil {
			return fmt.Errorf("encoding label matrix: %w", err)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("writing label matrix: %w", err)
		}
		a.logger.Info(ctx, "Label matrix written",
			zap.String("path", out),
			zap.String("run_id", res.RunID.String()))
	}

	return report.NewRenderer(cmd.OutOrStdout(), format).Run(report.NewRun(res, string(split)))
}
