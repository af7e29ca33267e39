package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lfkit/internal/report"
	"github.com/fyrsmithlabs/lfkit/pkg/candidate"
	"github.com/fyrsmithlabs/lfkit/pkg/lfdef"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		in        inputFlags
		annotator string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run stats whenever definitions, knowledge bases or the corpus change",
		Long: `Print the stats report, then watch the definition file, every knowledge
base file it references and the corpus. Each change reloads the inputs
and prints a fresh report; knowledge base files added to the definitions
are watched from then on. Invalid edits are logged and the previous
report stays on screen until the files are fixed.

Stop with Ctrl-C.

Examples:
  lfkit watch --corpus corpus.jsonl --lfs lfs.yaml
  lfkit watch --corpus corpus.jsonl --lfs lfs.yaml --annotator crowd --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			split, format, err := a.resolve(&in)
			if err != nil {
				return err
			}
			if annotator == "" {
				annotator = a.cfg.Inputs.Annotator
			}
			return a.runWatch(cmd.Context(), cmd.OutOrStdout(), split, format, annotator, in)
		},
	}
	addInputFlags(cmd, &in)
	cmd.Flags().StringVar(&annotator, "annotator", "", "annotator whose gold labels to score against (default gold)")
	return cmd
}

func (a *app) runWatch(ctx context.Context, w io.Writer, split candidate.Split, format report.Format, annotator string, in inputFlags) error {
	refresh := func() error {
		s, err := a.load(ctx, in)
		if err != nil {
			return err
		}
		return a.runStats(ctx, w, s, split, format, annotator, in)
	}
	if err := refresh(); err != nil {
		return err
	}

	paths, err := watchedPaths(in)
	if err != nil {
		return err
	}
	watcher, err := a.startWatcher(ctx, paths)
	if err != nil {
		return err
	}
	defer func() { watcher.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			a.logger.Info(ctx, "Inputs changed, rebuilding", zap.String("path", ev.Path))
			if err := refresh(); err != nil {
				a.logger.Error(ctx, "Rebuild failed", zap.Error(err))
				continue
			}

			// The definitions may now load a different set of knowledge bases.
			next, err := watchedPaths(in)
			if err != nil || slices.Equal(next, paths) {
				continue
			}
			replacement, err := a.startWatcher(ctx, next)
			if err != nil {
				a.logger.Error(ctx, "Re-watching inputs failed", zap.Error(err))
				continue
			}
			watcher.Stop()
			watcher, paths = replacement, next
		}
	}
}

func (a *app) startWatcher(ctx context.Context, paths []string) (*lfdef.Watcher, error) {
	w, err := lfdef.NewWatcher(paths, a.cfg.Watch.Debounce.Duration(), a.logger.Underlying())
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return nil, err
	}
	a.logger.Info(ctx, "Watching for changes", zap.Strings("paths", paths))
	return w, nil
}

// watchedPaths lists the definition file, the corpus and every knowledge
// base file the definitions load.
func watchedPaths(in inputFlags) ([]string, error) {
	doc, err := lfdef.ReadFile(in.lfs)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", in.lfs, err)
	}
	paths := []string{in.lfs, in.corpus}
	for _, kb := range doc.KnowledgeBases {
		if kb.Path == "" {
			continue
		}
		p := kb.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(filepath.Dir(in.lfs), p)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
