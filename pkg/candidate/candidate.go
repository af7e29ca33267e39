// Package candidate defines the read-only relation candidates that labeling
// functions vote on, together with the scoped token views they inspect.
//
// A Candidate is a tuple of spans inside a parent Context (a tokenized
// sentence). Candidates are produced upstream and never mutated here.
package candidate

import (
	"errors"
	"fmt"
	"strings"
)

// Split tags which partition of the corpus a candidate belongs to.
type Split string

const (
	// SplitTrain is the training partition.
	SplitTrain Split = "train"

	// SplitDev is the development partition, usually the one carrying gold labels.
	SplitDev Split = "dev"

	// SplitTest is the held-out partition.
	SplitTest Split = "test"
)

// ErrInvalidCandidate indicates a candidate whose spans do not fit its context.
var ErrInvalidCandidate = errors.New("invalid candidate")

// Context is the tokenized sentence a candidate's spans point into.
type Context struct {
	ID    string   `json:"id"`
	Words []string `json:"words"`
}

// Len returns the number of tokens in the context.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Words)
}

// Span is a half-open token range [Start, End) inside a Context.
//
// Canonical optionally carries an upstream entity-linked value; when set it
// is preferred over the surface text for knowledge-base lookups.
type Span struct {
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Canonical string `json:"canonical,omitempty"`
}

// Len returns the number of tokens covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Text returns the surface text of the span joined by single spaces.
func (s Span) Text(ctx *Context) string {
	lo, hi := clip(s.Start, s.End, ctx.Len())
	if lo >= hi {
		return ""
	}
	return strings.Join(ctx.Words[lo:hi], " ")
}

// Value returns the normalized value used for dictionary lookups.
func (s Span) Value(ctx *Context) string {
	if s.Canonical != "" {
		return NormalizeKey(s.Canonical)
	}
	return NormalizeKey(s.Text(ctx))
}

// Candidate is one relation mention to be labeled.
type Candidate struct {
	ID      string   `json:"id"`
	Split   Split    `json:"split"`
	Spans   []Span   `json:"spans"`
	Context *Context `json:"-"`
}

// Arity returns the number of spans in the candidate.
func (c *Candidate) Arity() int {
	return len(c.Spans)
}

// Values returns the normalized values of every span in order.
func (c *Candidate) Values() []string {
	out := make([]string, len(c.Spans))
	for i, s := range c.Spans {
		out[i] = s.Value(c.Context)
	}
	return out
}

// Validate checks that the candidate has an ID and a context and that every
// span is a non-empty range inside that context.
func (c *Candidate) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil candidate", ErrInvalidCandidate)
	}
	if c.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidCandidate)
	}
	if c.Context == nil {
		return fmt.Errorf("%w: %s has no context", ErrInvalidCandidate, c.ID)
	}
	n := c.Context.Len()
	for i, s := range c.Spans {
		if s.Start < 0 || s.End > n || s.Start >= s.End {
			return fmt.Errorf("%w: %s span %d [%d,%d) outside context of %d tokens",
				ErrInvalidCandidate, c.ID, i, s.Start, s.End, n)
		}
	}
	return nil
}

func clip(lo, hi, n int) (int, int) {
	lo = max(lo, 0)
	hi = min(hi, n)
	return lo, hi
}
