package matrix

import (
	"fmt"

	"github.com/fyrsmithlabs/lfkit/pkg/labeling"
)

// ColumnStats summarizes one labeling function's column.
//
// Coverage, Overlap and Conflict are fractions of all candidates:
//   - Coverage: the function votes.
//   - Overlap: the function votes and at least one other function votes.
//   - Conflict: the function votes and at least one other function votes
//     the opposite label.
//
// Overlap and Conflict depend on the rest of the set; Coverage does not.
type ColumnStats struct {
	LF        string           `json:"lf" yaml:"lf"`
	Polarity  []labeling.Label `json:"polarity" yaml:"polarity"`
	Votes     int              `json:"votes" yaml:"votes"`
	Positive  int              `json:"positive" yaml:"positive"`
	Negative  int              `json:"negative" yaml:"negative"`
	Overlaps  int              `json:"overlaps" yaml:"overlaps"`
	Conflicts int              `json:"conflicts" yaml:"conflicts"`
	Coverage  float64          `json:"coverage" yaml:"coverage"`
	Overlap   float64          `json:"overlap" yaml:"overlap"`
	Conflict  float64          `json:"conflict" yaml:"conflict"`
}

// Summary aggregates the whole matrix.
type Summary struct {
	Candidates int     `json:"candidates" yaml:"candidates"`
	LFs        int     `json:"lfs" yaml:"lfs"`
	Votes      int     `json:"votes" yaml:"votes"`
	Coverage   float64 `json:"coverage" yaml:"coverage"`
	Overlap    float64 `json:"overlap" yaml:"overlap"`
	Conflict   float64 `json:"conflict" yaml:"conflict"`
}

// Stats returns per-column statistics in column order. Computed once per
// matrix and cached.
func (m *Matrix) Stats() []ColumnStats {
	m.computeStats()
	out := make([]ColumnStats, len(m.stats.columns))
	for i, s := range m.stats.columns {
		s.Polarity = append([]labeling.Label(nil), s.Polarity...)
		out[i] = s
	}
	return out
}

// StatsFor returns the statistics of a single labeling function.
func (m *Matrix) StatsFor(lf string) (ColumnStats, error) {
	j, ok := m.colIndex[lf]
	if !ok {
		return ColumnStats{}, fmt.Errorf("unknown labeling function %q", lf)
	}
	return m.Stats()[j], nil
}

// Summary returns matrix-wide coverage, overlap and conflict: the fraction
// of candidates with at least one vote, at least two votes, and votes of
// both polarities.
func (m *Matrix) Summary() Summary {
	m.computeStats()
	return m.stats.summary
}

func (m *Matrix) computeStats() {
	m.stats.once.Do(func() {
		n := len(m.candidateIDs)
		cols := make([]ColumnStats, len(m.lfNames))
		for j, name := range m.lfNames {
			cols[j].LF = name
		}
		sum := Summary{Candidates: n, LFs: len(m.lfNames), Votes: len(m.vals)}

		var covered, overlapped, conflicted int
		for i := 0; i < n; i++ {
			lo, hi := m.rowPtr[i], m.rowPtr[i+1]
			var pos, neg int
			for k := lo; k < hi; k++ {
				if m.vals[k] == labeling.True {
					pos++
				} else {
					neg++
				}
			}
			votes := hi - lo
			if votes > 0 {
				covered++
			}
			if votes > 1 {
				overlapped++
			}
			if pos > 0 && neg > 0 {
				conflicted++
			}

			for k := lo; k < hi; k++ {
				c := &cols[m.cols[k]]
				c.Votes++
				if m.vals[k] == labeling.True {
					c.Positive++
					if neg > 0 {
						c.Conflicts++
					}
				} else {
					c.Negative++
					if pos > 0 {
						c.Conflicts++
					}
				}
				if votes > 1 {
					c.Overlaps++
				}
			}
		}

		for j := range cols {
			c := &cols[j]
			if c.Negative > 0 {
				c.Polarity = append(c.Polarity, labeling.False)
			}
			if c.Positive > 0 {
				c.Polarity = append(c.Polarity, labeling.True)
			}
			c.Coverage = fraction(c.Votes, n)
			c.Overlap = fraction(c.Overlaps, n)
			c.Conflict = fraction(c.Conflicts, n)
		}
		sum.Coverage = fraction(covered, n)
		sum.Overlap = fraction(overlapped, n)
		sum.Conflict = fraction(conflicted, n)

		m.stats.columns = cols
		m.stats.summary = sum
	})
}

func fraction(k, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(k) / float64(n)
}
