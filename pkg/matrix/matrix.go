// Package matrix assembles and analyzes sparse label matrices: the votes of
// a list of labeling functions over a list of candidates.
//
// Rows follow the caller's candidate order and columns follow the caller's
// labeling function order, so matrices built at different times for the
// same inputs are identical and can be aligned with gold labels by row.
package matrix

import (
	"fmt"
	"iter"
	"slices"
	"sort"
	"sync"

	"github.com/fyrsmithlabs/lfkit/pkg/labeling"
)

// Entry is one stored (non-abstain) cell.
type Entry struct {
	Row   int
	Col   int
	Label labeling.Label
}

// Matrix is an immutable candidates x labeling functions vote matrix in
// compressed sparse row form. Abstains are implicit.
type Matrix struct {
	candidateIDs []string
	rowIndex     map[string]int
	lfNames      []string
	colIndex     map[string]int

	rowPtr []int
	cols   []int
	vals   []labeling.Label

	stats *statsCache
}

type statsCache struct {
	once    sync.Once
	columns []ColumnStats
	summary Summary
}

// New builds a matrix from explicit entries. Abstain entries are dropped;
// duplicate cells, out-of-range indices and invalid labels are errors.
func New(candidateIDs, lfNames []string, entries []Entry) (*Matrix, error) {
	m, err := newShell(candidateIDs, lfNames)
	if err != nil {
		return nil, err
	}

	sorted := slices.Clone(entries)
	sort.Slice(sorted, func(a, b int) bool {
		if sorted[a].Row != sorted[b].Row {
			return sorted[a].Row < sorted[b].Row
		}
		return sorted[a].Col < sorted[b].Col
	})

	rows, lfs := len(candidateIDs), len(lfNames)
	m.rowPtr = make([]int, rows+1)
	prev := Entry{Row: -1, Col: -1}
	for _, e := range sorted {
		if e.Row < 0 || e.Row >= rows || e.Col < 0 || e.Col >= lfs {
			return nil, fmt.Errorf("entry (%d,%d) outside %dx%d matrix", e.Row, e.Col, rows, lfs)
		}
		if !e.Label.Valid() {
			return nil, fmt.Errorf("entry (%d,%d): %w: %d", e.Row, e.Col, labeling.ErrInvalidLabel, e.Label)
		}
		if e.Row == prev.Row && e.Col == prev.Col {
			return nil, fmt.Errorf("duplicate entry (%d,%d)", e.Row, e.Col)
		}
		prev = e
		if e.Label == labeling.Abstain {
			continue
		}
		m.cols = append(m.cols, e.Col)
		m.vals = append(m.vals, e.Label)
		m.rowPtr[e.Row+1]++
	}
	for i := 1; i <= rows; i++ {
		m.rowPtr[i] += m.rowPtr[i-1]
	}
	return m, nil
}

func newShell(candidateIDs, lfNames []string) (*Matrix, error) {
	m := &Matrix{
		candidateIDs: slices.Clone(candidateIDs),
		rowIndex:     make(map[string]int, len(candidateIDs)),
		lfNames:      slices.Clone(lfNames),
		colIndex:     make(map[string]int, len(lfNames)),
		stats:        &statsCache{},
	}
	for i, id := range candidateIDs {
		if _, dup := m.rowIndex[id]; dup {
			return nil, fmt.Errorf("duplicate candidate id %q", id)
		}
		m.rowIndex[id] = i
	}
	for j, name := range lfNames {
		if _, dup := m.colIndex[name]; dup {
			return nil, &labeling.ConfigurationError{LF: name, Field: "name", Reason: "duplicate labeling function name"}
		}
		m.colIndex[name] = j
	}
	return m, nil
}

// Shape returns (candidates, labeling functions).
func (m *Matrix) Shape() (int, int) {
	return len(m.candidateIDs), len(m.lfNames)
}

// NNZ returns the number of stored non-abstain votes.
func (m *Matrix) NNZ() int {
	return len(m.vals)
}

// CandidateIDs returns the row order.
func (m *Matrix) CandidateIDs() []string {
	return slices.Clone(m.candidateIDs)
}

// LFNames returns the column order.
func (m *Matrix) LFNames() []string {
	return slices.Clone(m.lfNames)
}

// RowOf returns the row index of a candidate.
func (m *Matrix) RowOf(candidateID string) (int, bool) {
	i, ok := m.rowIndex[candidateID]
	return i, ok
}

// ColumnOf returns the column index of a labeling function.
func (m *Matrix) ColumnOf(lf string) (int, bool) {
	j, ok := m.colIndex[lf]
	return j, ok
}

// At returns the vote in row i, column j. Out-of-range cells abstain.
func (m *Matrix) At(i, j int) labeling.Label {
	if i < 0 || i >= len(m.candidateIDs) {
		return labeling.Abstain
	}
	lo, hi := m.rowPtr[i], m.rowPtr[i+1]
	k := lo + sort.SearchInts(m.cols[lo:hi], j)
	if k < hi && m.cols[k] == j {
		return m.vals[k]
	}
	return labeling.Abstain
}

// Get returns the vote of lf on a candidate; ok is false when either is unknown.
func (m *Matrix) Get(candidateID, lf string) (labeling.Label, bool) {
	i, ok := m.rowIndex[candidateID]
	if !ok {
		return labeling.Abstain, false
	}
	j, ok := m.colIndex[lf]
	if !ok {
		return labeling.Abstain, false
	}
	return m.At(i, j), true
}

// Row returns the dense votes of row i.
func (m *Matrix) Row(i int) []labeling.Label {
	out := make([]labeling.Label, len(m.lfNames))
	for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
		out[m.cols[k]] = m.vals[k]
	}
	return out
}

// ColumnAt returns the dense votes of column j in row order.
func (m *Matrix) ColumnAt(j int) []labeling.Label {
	out := make([]labeling.Label, len(m.candidateIDs))
	for i := range m.candidateIDs {
		out[i] = m.At(i, j)
	}
	return out
}

// Column returns the dense votes of a labeling function in row order.
func (m *Matrix) Column(lf string) ([]labeling.Label, error) {
	j, ok := m.colIndex[lf]
	if !ok {
		return nil, fmt.Errorf("unknown labeling function %q", lf)
	}
	return m.ColumnAt(j), nil
}

// Entries yields the stored cells in row-major order.
func (m *Matrix) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for i := range m.candidateIDs {
			for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
				if !yield(Entry{Row: i, Col: m.cols[k], Label: m.vals[k]}) {
					return
				}
			}
		}
	}
}

// Equal reports whether two matrices have the same row order, column order
// and votes.
func (m *Matrix) Equal(o *Matrix) bool {
	if m == nil || o == nil {
		return m == o
	}
	return slices.Equal(m.candidateIDs, o.candidateIDs) &&
		slices.Equal(m.lfNames, o.lfNames) &&
		slices.Equal(m.rowPtr, o.rowPtr) &&
		slices.Equal(m.cols, o.cols) &&
		slices.Equal(m.vals, o.vals)
}
