package labeling

import (
	"fmt"
	"slices"
	"strings"

	"github.com/fyrsmithlabs/lfkit/pkg/candidate"
)

type combinator struct {
	name  string
	parts []LabelingFunction
}

func (c *combinator) Name() string { return c.name }

func (c *combinator) Constituents() []LabelingFunction {
	return slices.Clone(c.parts)
}

func newCombinator(op, name string, parts []LabelingFunction) (combinator, error) {
	if len(parts) == 0 {
		return combinator{}, &ConfigurationError{LF: name, Field: "constituents", Reason: op + " needs at least one labeling function"}
	}
	for i, p := range parts {
		if p == nil {
			return combinator{}, &ConfigurationError{
				LF:     name,
				Field:  fmt.Sprintf("constituents[%d]", i),
				Reason: "is nil",
			}
		}
	}
	if name == "" {
		name = op + "(" + strings.Join(Names(parts), ",") + ")"
	}
	return combinator{name: name, parts: slices.Clone(parts)}, nil
}

func (c *combinator) eval(part LabelingFunction, cand *candidate.Candidate) (Label, error) {
	v, err := part.Label(cand)
	if err != nil {
		return Abstain, fmt.Errorf("%s: %s: %w", c.name, part.Name(), err)
	}
	return v, nil
}

type andLF struct{ combinator }

// And votes True when every constituent votes True, False when at least one
// votes False and none votes True, and abstains otherwise, including when
// constituents disagree.
//
// An empty name is derived from the constituents, e.g. "AND(a,b)".
func And(name string, lfs ...LabelingFunction) (LabelingFunction, error) {
	c, err := newCombinator("AND", name, lfs)
	if err != nil {
		return nil, err
	}
	return &andLF{c}, nil
}

func (a *andLF) Label(cand *candidate.Candidate) (Label, error) {
	var sawTrue, sawFalse, sawAbstain bool
	for _, p := range a.parts {
		v, err := a.eval(p, cand)
		if err != nil {
			return Abstain, err
		}
		switch v {
		case True:
			sawTrue = true
		case False:
			sawFalse = true
		default:
			sawAbstain = true
		}
		if sawTrue && sawFalse {
			return Abstain, nil
		}
	}
	switch {
	case sawTrue && !sawAbstain:
		return True, nil
	case sawFalse:
		return False, nil
	}
	return Abstain, nil
}

type orLF struct{ combinator }

// Or is the De Morgan dual of And: False when every constituent votes
// False, True when at least one votes True and none votes False, Abstain
// otherwise.
func Or(name string, lfs ...LabelingFunction) (LabelingFunction, error) {
	c, err := newCombinator("OR", name, lfs)
	if err != nil {
		return nil, err
	}
	return &orLF{c}, nil
}

func (o *orLF) Label(cand *candidate.Candidate) (Label, error) {
	var sawTrue, sawFalse, sawAbstain bool
	for _, p := range o.parts {
		v, err := o.eval(p, cand)
		if err != nil {
			return Abstain, err
		}
		switch v {
		case True:
			sawTrue = true
		case False:
			sawFalse = true
		default:
			sawAbstain = true
		}
		if sawTrue && sawFalse {
			return Abstain, nil
		}
	}
	switch {
	case sawFalse && !sawAbstain:
		return False, nil
	case sawTrue:
		return True, nil
	}
	return Abstain, nil
}

type notLF struct{ combinator }

// Not flips True and False; Abstain stays Abstain.
func Not(name string, lf LabelingFunction) (LabelingFunction, error) {
	c, err := newCombinator("NOT", name, []LabelingFunction{lf})
	if err != nil {
		return nil, err
	}
	return &notLF{c}, nil
}

func (n *notLF) Label(cand *candidate.Candidate) (Label, error) {
	v, err := n.eval(n.parts[0], cand)
	if err != nil {
		return Abstain, err
	}
	return v.Negate(), nil
}

type guardedLF struct{ combinator }

// Guarded votes True when primary votes True and guard does not veto it
// with False. Every other combination abstains. guard is evaluated only
// when primary fires.
func Guarded(name string, primary, guard LabelingFunction) (LabelingFunction, error) {
	c, err := newCombinator("GUARDED", name, []LabelingFunction{primary, guard})
	if err != nil {
		return nil, err
	}
	return &guardedLF{c}, nil
}

func (g *guardedLF) Label(cand *candidate.Candidate) (Label, error) {
	v, err := g.eval(g.parts[0], cand)
	if err != nil || v != True {
		return Abstain, err
	}
	veto, err := g.eval(g.parts[1], cand)
	if err != nil {
		return Abstain, err
	}
	if veto == False {
		return Abstain, nil
	}
	return True, nil
}
