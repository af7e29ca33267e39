// Package scoring compares labeling function votes with gold labels.
//
// Only candidates that carry a gold label are scored. Abstains are excluded
// from every bucket: an abstaining labeling function is neither right nor
// wrong. Ratios with a zero denominator are reported as Undefined.
package scoring

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/lfkit/pkg/candidate"
	"github.com/fyrsmithlabs/lfkit/pkg/labeling"
	"github.com/fyrsmithlabs/lfkit/pkg/matrix"
)

var (
	// ErrAlignment matches every *AlignmentError via errors.Is.
	ErrAlignment = errors.New("alignment error")

	// ErrUnknownLF indicates a labeling function name absent from the matrix.
	ErrUnknownLF = errors.New("unknown labeling function")

	errGoldRequired = errors.New("gold labels are required")
)

// AlignmentError reports gold labels that cannot be matched to the scored
// candidates. Scores over misaligned data are meaningless, so scoring stops.
type AlignmentError struct {
	CandidateID string
	Reason      string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("alignment error: candidate %q: %s", e.CandidateID, e.Reason)
}

// Is makes errors.Is(err, ErrAlignment) hold for any AlignmentError.
func (e *AlignmentError) Is(target error) bool {
	return target == ErrAlignment
}

// ConfusionCounts tallies non-abstain votes against gold.
//
//	TP: vote True,  gold True
//	FP: vote True,  gold False
//	TN: vote False, gold False
//	FN: vote False, gold True
type ConfusionCounts struct {
	TP int `json:"tp" yaml:"tp"`
	FP int `json:"fp" yaml:"fp"`
	TN int `json:"tn" yaml:"tn"`
	FN int `json:"fn" yaml:"fn"`
}

// Total is the number of scored (non-abstain, gold-covered) votes.
func (c ConfusionCounts) Total() int { return c.TP + c.FP + c.TN + c.FN }

// Correct is TP + TN.
func (c ConfusionCounts) Correct() int { return c.TP + c.TN }

// Incorrect is FP + FN.
func (c ConfusionCounts) Incorrect() int { return c.FP + c.FN }

// Precision is TP / (TP + FP).
func (c ConfusionCounts) Precision() Metric { return ratio(c.TP, c.TP+c.FP) }

// Recall is TP / (TP + FN).
func (c ConfusionCounts) Recall() Metric { return ratio(c.TP, c.TP+c.FN) }

// F1 is the harmonic mean of precision and recall. Undefined when either
// is; zero when both are zero.
func (c ConfusionCounts) F1() Metric {
	p, r := c.Precision(), c.Recall()
	if !p.Defined() || !r.Defined() {
		return Undefined
	}
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Accuracy is the empirical accuracy (TP + TN) / Total.
func (c ConfusionCounts) Accuracy() Metric { return ratio(c.Correct(), c.Total()) }

func (c *ConfusionCounts) add(vote, gold labeling.Label) {
	switch {
	case vote == labeling.True && gold == labeling.True:
		c.TP++
	case vote == labeling.True && gold == labeling.False:
		c.FP++
	case vote == labeling.False && gold == labeling.False:
		c.TN++
	case vote == labeling.False && gold == labeling.True:
		c.FN++
	}
}

// ErrorBuckets partitions scored candidate IDs by outcome, in row order.
type ErrorBuckets struct {
	TP []string `json:"tp" yaml:"tp"`
	FP []string `json:"fp" yaml:"fp"`
	TN []string `json:"tn" yaml:"tn"`
	FN []string `json:"fn" yaml:"fn"`
}

// Counts returns the bucket sizes.
func (b ErrorBuckets) Counts() ConfusionCounts {
	return ConfusionCounts{TP: len(b.TP), FP: len(b.FP), TN: len(b.TN), FN: len(b.FN)}
}

func (b *ErrorBuckets) add(id string, vote, gold labeling.Label) {
	switch {
	case vote == labeling.True && gold == labeling.True:
		b.TP = append(b.TP, id)
	case vote == labeling.True && gold == labeling.False:
		b.FP = append(b.FP, id)
	case vote == labeling.False && gold == labeling.False:
		b.TN = append(b.TN, id)
	case vote == labeling.False && gold == labeling.True:
		b.FN = append(b.FN, id)
	}
}

// Score returns the confusion counts of one matrix column against gold.
func Score(m *matrix.Matrix, lf string, gold *GoldLabels) (ConfusionCounts, error) {
	j, err := columnOf(m, lf)
	if err != nil {
		return ConfusionCounts{}, err
	}
	if err := checkAlignment(m, gold); err != nil {
		return ConfusionCounts{}, err
	}
	var c ConfusionCounts
	for i, id := range m.CandidateIDs() {
		if g, ok := gold.Label(id); ok {
			c.add(m.At(i, j), g)
		}
	}
	return c, nil
}

// Buckets returns the candidate IDs of one matrix column per outcome.
func Buckets(m *matrix.Matrix, lf string, gold *GoldLabels) (ErrorBuckets, error) {
	j, err := columnOf(m, lf)
	if err != nil {
		return ErrorBuckets{}, err
	}
	if err := checkAlignment(m, gold); err != nil {
		return ErrorBuckets{}, err
	}
	var b ErrorBuckets
	for i, id := range m.CandidateIDs() {
		if g, ok := gold.Label(id); ok {
			b.add(id, m.At(i, j), g)
		}
	}
	return b, nil
}

// ScoreAll returns confusion counts for every column in column order.
func ScoreAll(m *matrix.Matrix, gold *GoldLabels) ([]ConfusionCounts, error) {
	if err := checkAlignment(m, gold); err != nil {
		return nil, err
	}
	_, lfs := m.Shape()
	out := make([]ConfusionCounts, lfs)
	ids := m.CandidateIDs()
	for e := range m.Entries() {
		if g, ok := gold.Label(ids[e.Row]); ok {
			out[e.Col].add(e.Label, g)
		}
	}
	return out, nil
}

// ScoreLF evaluates a single labeling function on the gold-covered
// candidates without building a matrix. Evaluation failures abstain and are
// returned alongside the buckets.
func ScoreLF(lf labeling.LabelingFunction, candidates []*candidate.Candidate, gold *GoldLabels) (ErrorBuckets, []*labeling.EvaluationError, error) {
	if lf == nil {
		return ErrorBuckets{}, nil, &labeling.ConfigurationError{Field: "lf", Reason: "is nil"}
	}
	if gold == nil {
		return ErrorBuckets{}, nil, errGoldRequired
	}
	present := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c != nil {
			present[c.ID] = true
		}
	}
	for id := range gold.All() {
		if !present[id] {
			return ErrorBuckets{}, nil, &AlignmentError{CandidateID: id, Reason: "gold label references a candidate absent from the scored set"}
		}
	}

	var (
		b        ErrorBuckets
		failures []*labeling.EvaluationError
	)
	for _, c := range candidates {
		if c == nil {
			continue
		}
		g, ok := gold.Label(c.ID)
		if !ok {
			continue
		}
		v, err := lf.Label(c)
		if err == nil && !v.Valid() {
			err = fmt.Errorf("%w: %d", labeling.ErrInvalidLabel, v)
		}
		if err != nil {
			failures = append(failures, &labeling.EvaluationError{CandidateID: c.ID, LF: lf.Name(), Err: err})
			continue
		}
		b.add(c.ID, v, g)
	}
	return b, failures, nil
}

func columnOf(m *matrix.Matrix, lf string) (int, error) {
	j, ok := m.ColumnOf(lf)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLF, lf)
	}
	return j, nil
}

func checkAlignment(m *matrix.Matrix, gold *GoldLabels) error {
	if gold == nil {
		return errGoldRequired
	}
	for id := range gold.All() {
		if _, ok := m.RowOf(id); !ok {
			return &AlignmentError{CandidateID: id, Reason: "gold label references a candidate absent from the label matrix"}
		}
	}
	return nil
}
