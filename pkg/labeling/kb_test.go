package labeling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKBFactory_Symmetry(t *testing.T) {
	// Spans normalize to ("jane", "john"); the relation stores ("john", "jane").
	c := binary("c1", "Jane married John", [2]int{0, 1}, [2]int{2, 3})
	tuples := [][]string{{"John", "Jane"}}

	tests := []struct {
		symmetry Symmetry
		want     Label
	}{
		{Symmetric, True},
		{Ordered, Abstain},
	}

	for _, tt := range tests {
		t.Run(string(tt.symmetry), func(t *testing.T) {
			kb, err := NewKnowledgeBase(tt.symmetry, tuples)
			require.NoError(t, err)

			f, err := NewKBFactory(Config{Name: "lf_known_spouse", Label: True}, kb)
			require.NoError(t, err)
			assert.Equal(t, tt.want, mustLabel(t, f.LF(), c))
		})
	}
}

func TestKBFactory_UsesCanonicalValues(t *testing.T) {
	kb, err := NewKnowledgeBase(Ordered, [][]string{{"barack obama", "michelle obama"}})
	require.NoError(t, err)

	f, err := NewKBFactory(Config{Name: "kb", Label: True}, kb)
	require.NoError(t, err)

	c := binary("c1", "Obama and Michelle Obama", [2]int{0, 1}, [2]int{2, 4})
	assert.Equal(t, Abstain, mustLabel(t, f.LF(), c))

	c.Spans[0].Canonical = "Barack Obama"
	assert.Equal(t, True, mustLabel(t, f.LF(), c))
}

func TestKBFactory_ArityMismatch(t *testing.T) {
	kb, err := NewKnowledgeBase(Symmetric, [][]string{{"a", "b"}})
	require.NoError(t, err)

	_, err = NewKBFactory(Config{Name: "kb", Label: True, Arity: 3}, kb)
	assert.ErrorIs(t, err, ErrConfiguration)

	f, err := NewKBFactory(Config{Name: "kb", Label: True}, kb)
	require.NoError(t, err)
	unary := binary("c1", "a b", [2]int{0, 1}, [2]int{1, 2})
	unary.Spans = unary.Spans[:1]
	assert.Equal(t, Abstain, mustLabel(t, f.LF(), unary))
}

func TestNewKnowledgeBase_Errors(t *testing.T) {
	tests := []struct {
		name     string
		symmetry Symmetry
		tuples   [][]string
	}{
		{"unset symmetry", "", [][]string{{"a", "b"}}},
		{"unknown symmetry", "unordered", [][]string{{"a", "b"}}},
		{"empty", Ordered, nil},
		{"empty tuple", Ordered, [][]string{{}}},
		{"mixed arity", Ordered, [][]string{{"a", "b"}, {"a", "b", "c"}}},
		{"blank value", Symmetric, [][]string{{"a", "  "}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb, err := NewKnowledgeBase(tt.symmetry, tt.tuples)
			assert.Nil(t, kb)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestKnowledgeBase_Contains(t *testing.T) {
	kb, err := NewKnowledgeBase(Ordered, [][]string{
		{"John", "Jane"},
		{"john", "JANE"},
		{"Ann", "Bob"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, kb.Len())
	assert.Equal(t, 2, kb.Arity())
	assert.Equal(t, Ordered, kb.Symmetry())
	assert.True(t, kb.Contains(" JOHN ", "jane"))
	assert.False(t, kb.Contains("jane", "john"))
	assert.False(t, kb.Contains("john"))
}

func TestParseSymmetry(t *testing.T) {
	s, err := ParseSymmetry("Symmetric")
	require.NoError(t, err)
	assert.Equal(t, Symmetric, s)

	_, err = ParseSymmetry("")
	assert.ErrorIs(t, err, ErrConfiguration)
}
