package scoring

import (
	"github.com/fyrsmithlabs/lfkit/pkg/matrix"
)

// GoldStats is the gold-dependent part of an lf_stats row.
type GoldStats struct {
	ConfusionCounts `yaml:",inline"`

	Correct   int    `json:"correct" yaml:"correct"`
	Incorrect int    `json:"incorrect" yaml:"incorrect"`
	Precision Metric `json:"precision" yaml:"precision"`
	Recall    Metric `json:"recall" yaml:"recall"`
	F1        Metric `json:"f1" yaml:"f1"`

	// Accuracy is the empirical accuracy over scored votes.
	Accuracy Metric `json:"accuracy" yaml:"accuracy"`
}

func newGoldStats(c ConfusionCounts) *GoldStats {
	return &GoldStats{
		ConfusionCounts: c,
		Correct:         c.Correct(),
		Incorrect:       c.Incorrect(),
		Precision:       c.Precision(),
		Recall:          c.Recall(),
		F1:              c.F1(),
		Accuracy:        c.Accuracy(),
	}
}

// StatsRow is one labeling function's line in the lf_stats report.
type StatsRow struct {
	matrix.ColumnStats `yaml:",inline"`

	// Gold is nil when no gold labels were supplied.
	Gold *GoldStats `json:"gold,omitempty" yaml:"gold,omitempty"`
}

// LFStats returns one row per labeling function in column order: coverage,
// overlap and conflict, plus precision, recall, F1 and empirical accuracy
// when gold is non-nil.
func LFStats(m *matrix.Matrix, gold *GoldLabels) ([]StatsRow, error) {
	cols := m.Stats()
	rows := make([]StatsRow, len(cols))
	for j, c := range cols {
		rows[j].ColumnStats = c
	}
	if gold == nil {
		return rows, nil
	}

	counts, err := ScoreAll(m, gold)
	if err != nil {
		return nil, err
	}
	for j, c := range counts {
		rows[j].Gold = newGoldStats(c)
	}
	return rows, nil
}
