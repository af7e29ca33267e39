package labeling

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/lfkit/pkg/candidate"
)

// Matcher is the boolean predicate a primitive labeling function fires on.
type Matcher interface {
	Match(c *candidate.Candidate) (bool, error)
}

// TermMatcher fires when any configured term occurs in the scope.
//
// Single-word terms are a set lookup per token. Multi-word terms are matched
// as contiguous token phrases.
type TermMatcher struct {
	scope         candidate.Scope
	window        int
	caseSensitive bool

	words      map[string]struct{}
	phrases    map[string]struct{}
	phraseLens []int
	maxPhrase  int
}

// NewTermMatcher builds the term set once. window <= 0 means unbounded.
func NewTermMatcher(terms []string, scope candidate.Scope, window int, caseSensitive bool) (*TermMatcher, error) {
	if !scope.Valid() {
		return nil, &ConfigurationError{Field: "search", Value: string(scope), Reason: "unsupported scope"}
	}

	m := &TermMatcher{
		scope:         scope,
		window:        window,
		caseSensitive: caseSensitive,
		words:         make(map[string]struct{}, len(terms)),
		phrases:       make(map[string]struct{}),
	}

	seenLen := make(map[int]bool)
	for _, t := range terms {
		fields := strings.Fields(m.fold(t))
		switch len(fields) {
		case 0:
			continue
		case 1:
			m.words[fields[0]] = struct{}{}
		default:
			m.phrases[strings.Join(fields, " ")] = struct{}{}
			if !seenLen[len(fields)] {
				seenLen[len(fields)] = true
				m.phraseLens = append(m.phraseLens, len(fields))
				m.maxPhrase = max(m.maxPhrase, len(fields))
			}
		}
	}

	if len(m.words) == 0 && len(m.phrases) == 0 {
		return nil, &ConfigurationError{Field: "terms", Reason: "term set is empty"}
	}
	return m, nil
}

func (m *TermMatcher) fold(s string) string {
	if m.caseSensitive {
		return s
	}
	return candidate.NormalizeKey(s)
}

func (m *TermMatcher) key(tok candidate.Token) string {
	if m.caseSensitive {
		return tok.Text
	}
	return tok.Lower
}

// Match reports whether any term occurs in the candidate's scope.
func (m *TermMatcher) Match(c *candidate.Candidate) (bool, error) {
	seq, err := candidate.Extract(c, m.scope, m.window)
	if err != nil {
		return false, err
	}

	var recent []string
	for tok := range seq {
		k := m.key(tok)
		if _, ok := m.words[k]; ok {
			return true, nil
		}
		if m.maxPhrase == 0 {
			continue
		}

		recent = append(recent, k)
		if len(recent) > m.maxPhrase {
			recent = recent[1:]
		}
		for _, n := range m.phraseLens {
			if n > len(recent) {
				continue
			}
			if _, ok := m.phrases[strings.Join(recent[len(recent)-n:], " ")]; ok {
				return true, nil
			}
		}
	}
	return false, nil
}

// RegexMatcher fires when any pattern matches the scope text, the scope's
// tokens joined by single spaces.
type RegexMatcher struct {
	scope    candidate.Scope
	window   int
	patterns []*regexp.Regexp
}

// NewRegexMatcher compiles every pattern once. Patterns are case-insensitive
// unless caseSensitive is set.
func NewRegexMatcher(patterns []string, scope candidate.Scope, window int, caseSensitive bool) (*RegexMatcher, error) {
	if !scope.Valid() {
		return nil, &ConfigurationError{Field: "search", Value: string(scope), Reason: "unsupported scope"}
	}

	m := &RegexMatcher{scope: scope, window: window}
	for i, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		expr := p
		if !caseSensitive {
			expr = "(?i)" + p
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, &ConfigurationError{
				Field:  fmt.Sprintf("patterns[%d]", i),
				Value:  p,
				Reason: "invalid regular expression",
				Err:    err,
			}
		}
		m.patterns = append(m.patterns, re)
	}

	if len(m.patterns) == 0 {
		return nil, &ConfigurationError{Field: "patterns", Reason: "pattern set is empty"}
	}
	return m, nil
}

// Match reports whether any pattern matches the candidate's scope text.
func (m *RegexMatcher) Match(c *candidate.Candidate) (bool, error) {
	seq, err := candidate.Extract(c, m.scope, m.window)
	if err != nil {
		return false, err
	}
	text := candidate.Text(seq)
	for _, re := range m.patterns {
		if re.MatchString(text) {
			return true, nil
		}
	}
	return false, nil
}

// KBMatcher fires when the candidate's normalized span values form a tuple
// of its knowledge base. Candidates whose span count differs from the
// knowledge base arity never match.
type KBMatcher struct {
	kb *KnowledgeBase
}

// NewKBMatcher wraps a knowledge base.
func NewKBMatcher(kb *KnowledgeBase) (*KBMatcher, error) {
	if kb == nil || kb.Len() == 0 {
		return nil, &ConfigurationError{Field: "kb", Reason: "knowledge base is empty"}
	}
	return &KBMatcher{kb: kb}, nil
}

// Match reports whether the candidate's span values are a known tuple.
func (m *KBMatcher) Match(c *candidate.Candidate) (bool, error) {
	if len(c.Spans) != m.kb.Arity() {
		return false, nil
	}
	return m.kb.containsNormalized(c.Values()), nil
}
