package candidate

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Scope names the token region of a candidate a matcher inspects.
type Scope string

const (
	// ScopeLeft is the window of tokens immediately before the first span.
	ScopeLeft Scope = "left"

	// ScopeRight is the window of tokens immediately after the last span.
	ScopeRight Scope = "right"

	// ScopeBetween is the tokens strictly between the two spans of a binary candidate.
	ScopeBetween Scope = "between"

	// ScopeSentence is every token of the parent context.
	ScopeSentence Scope = "sentence"
)

// ErrSpanCount indicates a candidate whose span count does not support a scope.
var ErrSpanCount = errors.New("span count does not support scope")

// ErrUnknownScope indicates a scope name outside the supported set.
var ErrUnknownScope = errors.New("unknown scope")

// Scopes lists the supported scopes.
var Scopes = []Scope{ScopeLeft, ScopeRight, ScopeBetween, ScopeSentence}

// Valid reports whether s is one of the supported scopes.
func (s Scope) Valid() bool {
	switch s {
	case ScopeLeft, ScopeRight, ScopeBetween, ScopeSentence:
		return true
	}
	return false
}

// Windowed reports whether a window bound applies to the scope.
func (s Scope) Windowed() bool {
	return s == ScopeLeft || s == ScopeRight
}

// ParseScope converts a configuration string to a Scope.
func ParseScope(s string) (Scope, error) {
	sc := Scope(strings.ToLower(strings.TrimSpace(s)))
	if !sc.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownScope, s)
	}
	return sc, nil
}

// Token is a single word of a scope view.
type Token struct {
	// Text is the surface form as it appears in the context.
	Text string

	// Lower is the NFKC-normalized, lowercased form.
	Lower string

	// Position is the token offset within the parent context.
	Position int
}

// Bounds returns the half-open token range [lo, hi) that scope selects.
//
// window <= 0 means unbounded and only applies to left and right. Windows
// are clipped at the context bounds. Between requires exactly two spans and
// yields an empty range when the spans touch or overlap.
func Bounds(c *Candidate, scope Scope, window int) (lo, hi int, err error) {
	n := c.Context.Len()
	switch scope {
	case ScopeSentence:
		return 0, n, nil

	case ScopeLeft:
		if len(c.Spans) == 0 {
			return 0, 0, fmt.Errorf("%w: %s needs at least one span", ErrSpanCount, scope)
		}
		first := c.Spans[0].Start
		for _, s := range c.Spans[1:] {
			first = min(first, s.Start)
		}
		lo = 0
		if window > 0 {
			lo = first - window
		}
		lo, hi = clip(lo, first, n)
		return lo, max(lo, hi), nil

	case ScopeRight:
		if len(c.Spans) == 0 {
			return 0, 0, fmt.Errorf("%w: %s needs at least one span", ErrSpanCount, scope)
		}
		last := c.Spans[0].End
		for _, s := range c.Spans[1:] {
			last = max(last, s.End)
		}
		hi = n
		if window > 0 {
			hi = last + window
		}
		lo, hi = clip(last, hi, n)
		return lo, max(lo, hi), nil

	case ScopeBetween:
		if len(c.Spans) != 2 {
			return 0, 0, fmt.Errorf("%w: %s needs exactly 2 spans, candidate %s has %d",
				ErrSpanCount, scope, c.ID, len(c.Spans))
		}
		a, b := c.Spans[0], c.Spans[1]
		if b.Start < a.Start {
			a, b = b, a
		}
		lo, hi = clip(a.End, b.Start, n)
		return lo, max(lo, hi), nil
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrUnknownScope, scope)
}

// Extract returns the tokens of scope as a lazy, restartable sequence.
//
// The range is resolved eagerly so span-count problems surface as an error
// here, while normalization of each token happens only as it is consumed.
func Extract(c *Candidate, scope Scope, window int) (iter.Seq[Token], error) {
	lo, hi, err := Bounds(c, scope, window)
	if err != nil {
		return nil, err
	}
	var words []string
	if c.Context != nil {
		words = c.Context.Words
	}
	return func(yield func(Token) bool) {
		for i := lo; i < hi; i++ {
			tok := Token{Text: words[i], Lower: lower(words[i]), Position: i}
			if !yield(tok) {
				return
			}
		}
	}, nil
}

// Text joins the surface form of every token in seq with single spaces.
func Text(seq iter.Seq[Token]) string {
	var b strings.Builder
	for tok := range seq {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(tok.Text)
	}
	return b.String()
}

// NormalizeKey returns s in NFKC form, lowercased with whitespace collapsed.
// It is the canonical key for term and knowledge-base lookups.
func NormalizeKey(s string) string {
	return strings.Join(strings.Fields(lower(s)), " ")
}

func lower(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}
