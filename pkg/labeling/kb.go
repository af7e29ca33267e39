package labeling

import (
	"fmt"
	"slices"
	"strings"

	"github.com/fyrsmithlabs/lfkit/pkg/candidate"
)

// Symmetry is the tuple matching policy of a knowledge base.
type Symmetry string

const (
	// Ordered tuples match only in the stored order: (a, b) does not match (b, a).
	Ordered Symmetry = "ordered"

	// Symmetric tuples match in any order.
	Symmetric Symmetry = "symmetric"
)

// Valid reports whether s is an explicit policy. The zero value is not.
func (s Symmetry) Valid() bool {
	return s == Ordered || s == Symmetric
}

// ParseSymmetry converts a configuration string to a Symmetry.
func ParseSymmetry(s string) (Symmetry, error) {
	sym := Symmetry(strings.ToLower(strings.TrimSpace(s)))
	if !sym.Valid() {
		return "", &ConfigurationError{
			Field:  "symmetry",
			Value:  s,
			Reason: "must be one of ordered symmetric",
		}
	}
	return sym, nil
}

const keySep = "\x1f"

// KnowledgeBase is an immutable set of normalized entity tuples.
type KnowledgeBase struct {
	symmetry Symmetry
	arity    int
	tuples   map[string]struct{}
}

// NewKnowledgeBase builds a fact table from tuples.
//
// Every tuple must have the same arity and no empty members. Values are
// normalized with candidate.NormalizeKey. The symmetry policy must be given
// explicitly; there is no default.
func NewKnowledgeBase(symmetry Symmetry, tuples [][]string) (*KnowledgeBase, error) {
	if !symmetry.Valid() {
		return nil, &ConfigurationError{
			Field:  "symmetry",
			Value:  string(symmetry),
			Reason: "must be set explicitly to ordered or symmetric",
		}
	}
	if len(tuples) == 0 {
		return nil, &ConfigurationError{Field: "tuples", Reason: "knowledge base is empty"}
	}

	kb := &KnowledgeBase{
		symmetry: symmetry,
		arity:    len(tuples[0]),
		tuples:   make(map[string]struct{}, len(tuples)),
	}
	if kb.arity == 0 {
		return nil, &ConfigurationError{Field: "tuples", Reason: "tuple 0 is empty"}
	}

	values := make([]string, kb.arity)
	for i, t := range tuples {
		if len(t) != kb.arity {
			return nil, &ConfigurationError{
				Field:  "tuples",
				Reason: fmt.Sprintf("tuple %d has %d values, want %d", i, len(t), kb.arity),
			}
		}
		for j, v := range t {
			values[j] = candidate.NormalizeKey(v)
			if values[j] == "" {
				return nil, &ConfigurationError{
					Field:  "tuples",
					Reason: fmt.Sprintf("tuple %d value %d is empty", i, j),
				}
			}
		}
		kb.tuples[kb.key(values)] = struct{}{}
	}
	return kb, nil
}

// Symmetry returns the matching policy.
func (kb *KnowledgeBase) Symmetry() Symmetry { return kb.symmetry }

// Arity returns the number of values per tuple.
func (kb *KnowledgeBase) Arity() int { return kb.arity }

// Len returns the number of distinct tuples.
func (kb *KnowledgeBase) Len() int { return len(kb.tuples) }

// Contains reports whether the tuple of values is present. Values are
// normalized before lookup.
func (kb *KnowledgeBase) Contains(values ...string) bool {
	norm := make([]string, len(values))
	for i, v := range values {
		norm[i] = candidate.NormalizeKey(v)
	}
	return kb.containsNormalized(norm)
}

func (kb *KnowledgeBase) containsNormalized(values []string) bool {
	if len(values) != kb.arity {
		return false
	}
	_, ok := kb.tuples[kb.key(values)]
	return ok
}

func (kb *KnowledgeBase) key(values []string) string {
	if kb.symmetry == Symmetric {
		values = slices.Clone(values)
		slices.Sort(values)
	}
	return strings.Join(values, keySep)
}
