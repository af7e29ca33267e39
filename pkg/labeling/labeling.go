// Package labeling provides labeling functions: named, deterministic
// ternary voters over candidates.
//
// Primitive labeling functions are produced by factories that close over a
// matcher (term set, regular expressions or a knowledge base), a scope and a
// label polarity. Composite labeling functions combine others with AND, OR,
// NOT and guarded votes. Every labeling function exposes its name so
// combinators and reports can refer to it.
package labeling

import (
	"github.com/fyrsmithlabs/lfkit/pkg/candidate"
)

// LabelingFunction votes True, False or Abstain on a candidate.
//
// Implementations must be pure and deterministic, and safe for concurrent
// use. A returned error means the function could not be evaluated on that
// candidate; the vote is then ignored.
type LabelingFunction interface {
	Name() string
	Label(c *candidate.Candidate) (Label, error)
}

// Composite is a labeling function built from other labeling functions.
type Composite interface {
	LabelingFunction
	Constituents() []LabelingFunction
}

type funcLF struct {
	name string
	fn   func(*candidate.Candidate) (Label, error)
}

func (f *funcLF) Name() string { return f.name }

func (f *funcLF) Label(c *candidate.Candidate) (Label, error) {
	return f.fn(c)
}

// Func adapts a hand-written vote function to a LabelingFunction.
func Func(name string, fn func(*candidate.Candidate) Label) LabelingFunction {
	return &funcLF{name: name, fn: func(c *candidate.Candidate) (Label, error) {
		return fn(c), nil
	}}
}

// FuncE adapts a vote function that can fail.
func FuncE(name string, fn func(*candidate.Candidate) (Label, error)) LabelingFunction {
	return &funcLF{name: name, fn: fn}
}

// Names returns the names of lfs in order.
func Names(lfs []LabelingFunction) []string {
	out := make([]string, len(lfs))
	for i, lf := range lfs {
		if lf != nil {
			out[i] = lf.Name()
		}
	}
	return out
}
