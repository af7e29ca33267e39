package labeling

import (
	"strings"

	"github.com/fyrsmithlabs/lfkit/pkg/candidate"
)

// binary builds a two-span candidate from text, marking the given
// [start, end) token ranges.
func binary(id, text string, a, b [2]int) *candidate.Candidate {
	return &candidate.Candidate{
		ID:    id,
		Split: candidate.SplitDev,
		Spans: []candidate.Span{
			{Start: a[0], End: a[1]},
			{Start: b[0], End: b[1]},
		},
		Context: &candidate.Context{ID: "ctx-" + id, Words: strings.Fields(text)},
	}
}

// "Barack Obama and his wife Michelle Obama attended"
func spouse() *candidate.Candidate {
	return binary("c-spouse", "Barack Obama and his wife Michelle Obama attended", [2]int{0, 2}, [2]int{5, 7})
}

// "Sasha Obama , daughter of Barack Obama"
func daughter() *candidate.Candidate {
	return binary("c-daughter", "Sasha Obama , daughter of Barack Obama", [2]int{0, 2}, [2]int{5, 7})
}

func fixed(name string, v Label) LabelingFunction {
	return Func(name, func(*candidate.Candidate) Label { return v })
}

func intPtr(n int) *int { return &n }
