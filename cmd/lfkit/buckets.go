package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lfkit/internal/report"
	"github.com/fyrsmithlabs/lfkit/pkg/candidate"
	"github.com/fyrsmithlabs/lfkit/pkg/labeling"
	"github.com/fyrsmithlabs/lfkit/pkg/scoring"
)

func newBucketsCmd(a *app) *cobra.Command {
	var (
		in        inputFlags
		lf        string
		annotator string
	)
	cmd := &cobra.Command{
		Use:   "buckets",
		Short: "List one labeling function's true and false positives and negatives",
		Long: `Split the gold-labeled candidates of a split into TP, FP, TN and FN
buckets for one labeling function, showing span texts and the sentence
of each candidate. Abstentions fall in no bucket.

Hidden labeling functions can be inspected too; they are evaluated
directly instead of through the label matrix.

Examples:
  # Where does lf_husband_wife go wrong on dev?
  lfkit buckets --corpus corpus.jsonl --lfs lfs.yaml --lf lf_husband_wife

  # Bucket a hidden building block against crowd labels
  lfkit buckets --corpus corpus.jsonl --lfs lfs.yaml --lf lf_family --annotator crowd`,
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
			return a.runBuckets(cmd.Context(), cmd.OutOrStdout(), s, split, format, lf, annotator, in)
		},
	}
	addInputFlags(cmd, &in)
	cmd.Flags().StringVar(&lf, "lf", "", "labeling function to inspect (required)")
	cmd.Flags().StringVar(&annotator, "annotator", "", "annotator whose gold labels to bucket against (default gold)")
	_ = cmd.MarkFlagRequired("lf")
	return cmd
}

func (a *app) runBuckets(ctx context.Context, w io.Writer, s *session, split candidate.Split, format report.Format, name, annotator string, in inputFlags) error {
	fn, ok := s.lfs.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown labeling function %q", name)
	}

	gold, err := s.corpus.GoldLabels(ctx, annotator, split)
	if err != nil {
		return err
	}

	cands, err := s.corpus.Candidates(ctx, split)
	if err != nil {
		return err
	}

	var b scoring.ErrorBuckets
	if s.lfs.Hidden(name) {
		var failures []*labeling.EvaluationError
		b, failures, err = scoring.ScoreLF(fn, cands, gold)
		if err != nil {
			return err
		}
		if len(failures) > 0 {
			a.logger.Warn(ctx, "Labeling function failed on some candidates",
				zap.String("lf", name), zap.Int("failures", len(failures)))
		}
	} else {
		res, err := a.build(ctx, s, split, in)
		if err != nil {
			return err
		}
		if b, err = scoring.Buckets(res.Matrix, name, gold); err != nil {
			return err
		}
	}

	byID := make(map[string]*candidate.Candidate, len(cands))
	for _, c := range cands {
		byID[c.ID] = c
	}
	describe := func(id string) ([]string, string) {
		c, ok := byID[id]
		if !ok {
			return nil, ""
		}
		spans := make([]string, len(c.Spans))
		for i, sp := range c.Spans {
			spans[i] = sp.Text(c.Context)
		}
		var text string
		if c.Context != nil {
			text = strings.Join(c.Context.Words, " ")
		}
		return spans, text
	}

	return report.NewRenderer(w, format).Buckets(report.Buckets{
		LF:        name,
		Split:     string(split),
		Annotator: annotator,
		Counts:    b.Counts(),
		Buckets:   b,
		Entries:   report.Entries(b, describe),
	})
}
