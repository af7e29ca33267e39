// Package report renders lfkit results as terminal tables, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/lfkit/pkg/matrix"
	"github.com/fyrsmithlabs/lfkit/pkg/scoring"
)

// Format selects the output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q (want table, json or yaml)", s)
}

// Failure is one recovered labeling function error.
type Failure struct {
	CandidateID string `json:"candidate" yaml:"candidate"`
	LF          string `json:"lf" yaml:"lf"`
	Error       string `json:"error" yaml:"error"`
}

// Run describes one label matrix build.
type Run struct {
	RunID       string         `json:"run_id" yaml:"run_id"`
	Split       string         `json:"split" yaml:"split"`
	Duration    string         `json:"duration" yaml:"duration"`
	Parallelism int            `json:"parallelism" yaml:"parallelism"`
	Summary     matrix.Summary `json:"summary" yaml:"summary"`
	Failures    []Failure      `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// NewRun converts a build result.
func NewRun(res *matrix.Result, split string) Run {
	r := Run{
		RunID:       res.RunID.String(),
		Split:       split,
		Duration:    res.Duration.String(),
		Parallelism: res.Parallelism,
		Summary:     res.Matrix.Summary(),
	}
	for _, f := range res.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		r.Failures = append(r.Failures, Failure{CandidateID: f.CandidateID, LF: f.LF, Error: msg})
	}
	return r
}

// Stats is the lf_stats report.
type Stats struct {
	Run       Run                `json:"run" yaml:"run"`
	Annotator string             `json:"annotator,omitempty" yaml:"annotator,omitempty"`
	LFs       []scoring.StatsRow `json:"lfs" yaml:"lfs"`
}

// BucketEntry shows one candidate of an error bucket.
type BucketEntry struct {
	Bucket      string   `json:"bucket" yaml:"bucket"`
	CandidateID string   `json:"candidate" yaml:"candidate"`
	Spans       []string `json:"spans,omitempty" yaml:"spans,omitempty"`
	Context     string   `json:"context,omitempty" yaml:"context,omitempty"`
}

// Buckets is the error analysis report for one labeling function.
type Buckets struct {
	LF        string                  `json:"lf" yaml:"lf"`
	Split     string                  `json:"split" yaml:"split"`
	Annotator string                  `json:"annotator" yaml:"annotator"`
	Counts    scoring.ConfusionCounts `json:"counts" yaml:"counts"`
	Buckets   scoring.ErrorBuckets    `json:"buckets" yaml:"buckets"`
	Entries   []BucketEntry           `json:"entries,omitempty" yaml:"entries,omitempty"`
}

// Renderer writes reports in one format.
type Renderer struct {
	w      io.Writer
	format Format
	styles styles
}

// NewRenderer returns a renderer writing to w. Table colors follow w's
// terminal capabilities.
func NewRenderer(w io.Writer, format Format) *Renderer {
	return &Renderer{w: w, format: format, styles: newStyles(w)}
}

// Run renders a build summary.
func (r *Renderer) Run(run Run) error {
	if r.format != FormatTable {
		return r.encode(run)
	}
	r.writeRun(run)
	return nil
}

// Stats renders an lf_stats report.
func (r *Renderer) Stats(s Stats) error {
	if r.format != FormatTable {
		return r.encode(s)
	}
	r.writeRun(s.Run)
	fmt.Fprintln(r.w, r.statsTable(s))
	return nil
}

// Buckets renders an error analysis report.
func (r *Renderer) Buckets(b Buckets) error {
	if r.format != FormatTable {
		return r.encode(b)
	}
	fmt.Fprintln(r.w, r.styles.section.Render(fmt.Sprintf("%s on %s (annotator %s)", b.LF, b.Split, b.Annotator)))
	fmt.Fprintln(r.w, r.pairs(
		"TP", fmt.Sprint(b.Counts.TP),
		"FP", fmt.Sprint(b.Counts.FP),
		"TN", fmt.Sprint(b.Counts.TN),
		"FN", fmt.Sprint(b.Counts.FN),
		"precision", b.Counts.Precision().String(),
		"recall", b.Counts.Recall().String(),
	))
	if len(b.Entries) > 0 {
		fmt.Fprintln(r.w, r.bucketsTable(b.Entries))
	}
	return nil
}

func (r *Renderer) encode(v any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(r.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown report format %q", r.format)
}
