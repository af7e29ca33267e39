package main

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lfkit/internal/report"
	"github.com/fyrsmithlabs/lfkit/pkg/candidate"
	"github.com/fyrsmithlabs/lfkit/pkg/scoring"
	"github.com/fyrsmithlabs/lfkit/pkg/source"
)

func newStatsCmd(a *app) *cobra.Command {
	var (
		in        inputFlags
		annotator string
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report per-labeling-function coverage and accuracy",
		Long: `Build the label matrix for a split and report, for each labeling
function, its polarity, coverage, overlap and conflict.

When the annotator has gold labels for the split, TP/FP/TN/FN counts,
precision, recall, F1 and empirical accuracy are added. Metrics with a
zero denominator print as n/a (null in JSON and YAML).

Examples:
  # Stats on the dev split against the "gold" annotator
  lfkit stats --corpus corpus.jsonl --lfs lfs.yaml

  # Compare against crowd labels
  lfkit stats --corpus corpus.jsonl --lfs lfs.yaml --annotator crowd

  # Coverage only, no gold, on the train split
  lfkit stats --corpus corpus.jsonl --lfs lfs.yaml --split train`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			split, format, err := a.resolve(&in)
			if err != nil {
				return err
			}
			if annotator == "" {
				annotator = a.cfg.Inputs.Annotator
			}
			s, err := a.load(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.runStats(cmd.Context(), cmd.OutOrStdout(), s, split, format, annotator, in)
		},
	}
	addInputFlags(cmd, &in)
	cmd.Flags().StringVar(&annotator, "annotator", "", "annotator whose gold labels to score against (default gold)")
	return cmd
}

// runStats builds the matrix and renders the stats report. Missing gold
// labels reduce the report to coverage statistics.
func (a *app) runStats(ctx context.Context, w io.Writer, s *session, split candidate.Split, format report.Format, annotator string, in inputFlags) error {
	res, err := a.build(ctx, s, split, in)
	if err != nil {
		return err
	}

	gold, err := goldFor(ctx, s, annotator, split)
	if err != nil {
		return err
	}
	if gold == nil {
		a.logger.Info(ctx, "No gold labels, reporting coverage only",
			zap.String("annotator", annotator),
			zap.String("split", string(split)))
		annotator = ""
	}

	rows, err := scoring.LFStats(res.Matrix, gold)
	if err != nil {
		return err
	}
	return report.NewRenderer(w, format).Stats(report.Stats{
		Run:       report.NewRun(res, string(split)),
		Annotator: annotator,
		LFs:       rows,
	})
}

// goldFor returns nil without error when the annotator has no labels for
// the split.
func goldFor(ctx context.Context, s *session, annotator string, split candidate.Split) (*scoring.GoldLabels, error) {
	gold, err := s.corpus.GoldLabels(ctx, annotator, split)
	if errors.Is(err, source.ErrNotFound) {
		return nil, nil
	}
	return gold, err
}
