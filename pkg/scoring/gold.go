package scoring

import (
	"fmt"
	"iter"
	"slices"

	"github.com/fyrsmithlabs/lfkit/pkg/labeling"
)

// GoldLabels is an ordered, partial assignment of ground-truth labels to
// candidate IDs. Candidates without an entry have no ground truth; they are
// never treated as abstain or negative.
type GoldLabels struct {
	ids    []string
	labels []labeling.Label
	index  map[string]int
}

// NewGoldLabels pairs ids with labels. Every label must be True or False and
// every id unique.
func NewGoldLabels(ids []string, labels []labeling.Label) (*GoldLabels, error) {
	if len(ids) != len(labels) {
		return nil, fmt.Errorf("gold labels: %d ids but %d labels", len(ids), len(labels))
	}
	g := &GoldLabels{
		ids:    slices.Clone(ids),
		labels: slices.Clone(labels),
		index:  make(map[string]int, len(ids)),
	}
	for i, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("gold labels: empty candidate id at position %d", i)
		}
		if _, dup := g.index[id]; dup {
			return nil, fmt.Errorf("gold labels: duplicate candidate id %q", id)
		}
		if l := labels[i]; l != labeling.True && l != labeling.False {
			return nil, fmt.Errorf("gold labels: candidate %q: %w: gold must be %d or %d, got %d",
				id, labeling.ErrInvalidLabel, labeling.False, labeling.True, l)
		}
		g.index[id] = i
	}
	return g, nil
}

// Len returns the number of labeled candidates.
func (g *GoldLabels) Len() int {
	return len(g.ids)
}

// IDs returns the labeled candidate IDs in order.
func (g *GoldLabels) IDs() []string {
	return slices.Clone(g.ids)
}

// Label returns the gold label of a candidate.
func (g *GoldLabels) Label(id string) (labeling.Label, bool) {
	i, ok := g.index[id]
	if !ok {
		return labeling.Abstain, false
	}
	return g.labels[i], true
}

// All yields (candidate ID, label) pairs in order.
func (g *GoldLabels) All() iter.Seq2[string, labeling.Label] {
	return func(yield func(string, labeling.Label) bool) {
		for i, id := range g.ids {
			if !yield(id, g.labels[i]) {
				return
			}
		}
	}
}

// Subset keeps only the given IDs, in g's order. Unknown IDs are ignored.
func (g *GoldLabels) Subset(ids []string) *GoldLabels {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	out := &GoldLabels{index: make(map[string]int)}
	for i, id := range g.ids {
		if keep[id] {
			out.index[id] = len(out.ids)
			out.ids = append(out.ids, id)
			out.labels = append(out.labels, g.labels[i])
		}
	}
	return out
}

// Balance returns the number of positive and negative gold labels.
func (g *GoldLabels) Balance() (positive, negative int) {
	for _, l := range g.labels {
		if l == labeling.True {
			positive++
		} else {
			negative++
		}
	}
	return positive, negative
}
