package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/fyrsmithlabs/lfkit/pkg/labeling"
	"github.com/fyrsmithlabs/lfkit/pkg/scoring"
)

type styles struct {
	header  lipgloss.Style
	section lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	dim     lipgloss.Style
	cell    lipgloss.Style
	bad     lipgloss.Style
	border  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	re := lipgloss.NewRenderer(w)
	return styles{
		header: re.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1),
		section: re.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true),
		label: re.NewStyle().
			Foreground(lipgloss.Color("45")),
		value: re.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true),
		dim: re.NewStyle().
			Foreground(lipgloss.Color("245")),
		cell: re.NewStyle().
			Padding(0, 1),
		bad: re.NewStyle().
			Foreground(lipgloss.Color("196")).
			Padding(0, 1),
		border: re.NewStyle().
			Foreground(lipgloss.Color("238")),
	}
}

// pairs renders "key value" pairs on one line.
func (r *Renderer) pairs(kv ...string) string {
	parts := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		parts = append(parts, r.styles.label.Render(kv[i])+" "+r.styles.value.Render(kv[i+1]))
	}
	return strings.Join(parts, r.styles.dim.Render("  │  "))
}

func (r *Renderer) writeRun(run Run) {
	s := run.Summary
	fmt.Fprintln(r.w, r.styles.section.Render("Label matrix "+run.RunID))
	fmt.Fprintln(r.w, r.pairs(
		"split", run.Split,
		"candidates", fmt.Sprint(s.Candidates),
		"lfs", fmt.Sprint(s.LFs),
		"votes", fmt.Sprint(s.Votes),
		"coverage", percent(s.Coverage),
		"overlap", percent(s.Overlap),
		"conflict", percent(s.Conflict),
	))
	fmt.Fprintln(r.w, r.styles.dim.Render(fmt.Sprintf("built in %s with %d workers", run.Duration, run.Parallelism)))

	if len(run.Failures) > 0 {
		rows := make([][]string, len(run.Failures))
		for i, f := range run.Failures {
			rows[i] = []string{f.CandidateID, f.LF, f.Error}
		}
		fmt.Fprintln(r.w, r.styles.section.Render(fmt.Sprintf("%d evaluation failures", len(run.Failures))))
		fmt.Fprintln(r.w, r.table([]string{"Candidate", "LF", "Error"}, rows, nil))
	}
}

func (r *Renderer) statsTable(s Stats) string {
	withGold := len(s.LFs) > 0 && s.LFs[0].Gold != nil

	headers := []string{"LF", "Polarity", "Coverage", "Overlap", "Conflict"}
	if withGold {
		headers = append(headers, "TP", "FP", "TN", "FN", "Precision", "Recall", "F1", "Accuracy")
	}

	rows := make([][]string, len(s.LFs))
	for i, row := range s.LFs {
		cells := []string{
			row.LF,
			polarity(row.Polarity),
			percent(row.Coverage),
			percent(row.Overlap),
			percent(row.Conflict),
		}
		if g := row.Gold; g != nil {
			cells = append(cells,
				fmt.Sprint(g.TP), fmt.Sprint(g.FP), fmt.Sprint(g.TN), fmt.Sprint(g.FN),
				g.Precision.String(), g.Recall.String(), g.F1.String(), g.Accuracy.String(),
			)
		}
		rows[i] = cells
	}

	// Highlight labeling functions that never vote.
	flag := func(row int) bool { return s.LFs[row].Votes == 0 }
	return r.table(headers, rows, flag)
}

func (r *Renderer) bucketsTable(entries []BucketEntry) string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.Bucket, e.CandidateID, strings.Join(e.Spans, " / "), e.Context}
	}
	flag := func(row int) bool {
		b := entries[row].Bucket
		return b == "FP" || b == "FN"
	}
	return r.table([]string{"Bucket", "Candidate", "Spans", "Context"}, rows, flag)
}

func (r *Renderer) table(headers []string, rows [][]string, flag func(row int) bool) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.styles.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return r.styles.header
			case flag != nil && row >= 0 && flag(row):
				return r.styles.bad
			}
			return r.styles.cell
		}).
		String()
}

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

func polarity(p []labeling.Label) string {
	if len(p) == 0 {
		return "-"
	}
	parts := make([]string, len(p))
	for i, l := range p {
		parts[i] = l.String()
	}
	return strings.Join(parts, ",")
}

// Entries expands buckets into table rows in TP, FP, TN, FN order.
// describe supplies span texts and context for a candidate ID and may be
// nil.
func Entries(b scoring.ErrorBuckets, describe func(id string) (spans []string, context string)) []BucketEntry {
	var out []BucketEntry
	add := func(name string, ids []string) {
		for _, id := range ids {
			e := BucketEntry{Bucket: name, CandidateID: id}
			if describe != nil {
				e.Spans, e.Context = describe(id)
			}
			out = append(out, e)
		}
	}
	add("TP", b.TP)
	add("FP", b.FP)
	add("TN", b.TN)
	add("FN", b.FN)
	return out
}
