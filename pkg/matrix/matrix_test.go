package matrix

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/lfkit/pkg/labeling"
)

const (
	pos = labeling.True
	neg = labeling.False
)

// 4 candidates x 3 LFs:
//
//	     a   b   c
//	c1   +   +   .
//	c2   +   -   .
//	c3   .   .   -
//	c4   .   .   .
func smallMatrix(t *testing.T) *Matrix {
	t.Helper()
	m, err := New(
		[]string{"c1", "c2", "c3", "c4"},
		[]string{"a", "b", "c"},
		[]Entry{
			{Row: 1, Col: 1, Label: neg},
			{Row: 0, Col: 0, Label: pos},
			{Row: 2, Col: 2, Label: neg},
			{Row: 0, Col: 1, Label: pos},
			{Row: 1, Col: 0, Label: pos},
			{Row: 3, Col: 0, Label: labeling.Abstain},
		},
	)
	require.NoError(t, err)
	return m
}

func TestNew(t *testing.T) {
	m := smallMatrix(t)

	rows, cols := m.Shape()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, 5, m.NNZ())
	assert.Equal(t, neg, m.At(1, 1))
	assert.Equal(t, labeling.Abstain, m.At(3, 0))
	assert.Equal(t, labeling.Abstain, m.At(99, 0))

	col, err := m.Column("a")
	require.NoError(t, err)
	assert.Equal(t, []labeling.Label{pos, pos, labeling.Abstain, labeling.Abstain}, col)

	_, err = m.Column("zzz")
	assert.Error(t, err)

	i, ok := m.RowOf("c3")
	assert.True(t, ok)
	assert.Equal(t, 2, i)
	_, ok = m.ColumnOf("zzz")
	assert.False(t, ok)

	_, ok = m.Get("c9", "a")
	assert.False(t, ok)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name    string
		ids     []string
		lfs     []string
		entries []Entry
	}{
		{"duplicate candidate", []string{"c1", "c1"}, []string{"a"}, nil},
		{"duplicate lf", []string{"c1"}, []string{"a", "a"}, nil},
		{"row out of range", []string{"c1"}, []string{"a"}, []Entry{{Row: 1, Col: 0, Label: pos}}},
		{"col out of range", []string{"c1"}, []string{"a"}, []Entry{{Row: 0, Col: -1, Label: pos}}},
		{"duplicate cell", []string{"c1"}, []string{"a"}, []Entry{{Row: 0, Col: 0, Label: pos}, {Row: 0, Col: 0, Label: neg}}},
		{"invalid label", []string{"c1"}, []string{"a"}, []Entry{{Row: 0, Col: 0, Label: 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.ids, tt.lfs, tt.entries)
			assert.Nil(t, m)
			assert.Error(t, err)
		})
	}

	_, err := New([]string{"c1"}, []string{"a", "a"}, nil)
	assert.ErrorIs(t, err, labeling.ErrConfiguration)
}

func TestStats(t *testing.T) {
	m := smallMatrix(t)

	want := []ColumnStats{
		{LF: "a", Polarity: []labeling.Label{pos}, Votes: 2, Positive: 2, Overlaps: 2, Conflicts: 1, Coverage: 0.5, Overlap: 0.5, Conflict: 0.25},
		{LF: "b", Polarity: []labeling.Label{neg, pos}, Votes: 2, Positive: 1, Negative: 1, Overlaps: 2, Conflicts: 1, Coverage: 0.5, Overlap: 0.5, Conflict: 0.25},
		{LF: "c", Polarity: []labeling.Label{neg}, Votes: 1, Negative: 1, Coverage: 0.25},
	}
	if diff := cmp.Diff(want, m.Stats()); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, Summary{
		Candidates: 4, LFs: 3, Votes: 5,
		Coverage: 0.75, Overlap: 0.5, Conflict: 0.25,
	}, m.Summary())

	s, err := m.StatsFor("c")
	require.NoError(t, err)
	assert.Equal(t, 0.25, s.Coverage)

	stats := m.Stats()
	stats[0].Polarity[0] = neg
	assert.Equal(t, pos, m.Stats()[0].Polarity[0], "Stats returns copies")
}

func TestJSONRoundTrip(t *testing.T) {
	m := smallMatrix(t)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"candidates": ["c1","c2","c3","c4"],
		"lfs": ["a","b","c"],
		"entries": [[0,0,1],[0,1,1],[1,0,1],[1,1,-1],[2,2,-1]]
	}`, string(data))

	var back Matrix
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, m.Equal(&back))
	assert.Equal(t, m.Summary(), back.Summary())
}

func TestUnmarshalJSON_Invalid(t *testing.T) {
	var m Matrix
	assert.Error(t, json.Unmarshal([]byte(`{"candidates":["c1"],"lfs":["a"],"entries":[[0,0,3]]}`), &m))
	assert.Error(t, json.Unmarshal([]byte(`{"candidates":["c1"],"lfs":["a"],"entries":[[5,0,1]]}`), &m))
}

func TestEqual(t *testing.T) {
	a := smallMatrix(t)
	b := smallMatrix(t)
	assert.True(t, a.Equal(b))

	c, err := New([]string{"c1", "c2", "c3", "c4"}, []string{"a", "b", "c"}, nil)
	require.NoError(t, err)
	assert.False(t, a.Equal(c))

	var nilMatrix *Matrix
	assert.False(t, a.Equal(nilMatrix))
	assert.True(t, nilMatrix.Equal(nil))
}
