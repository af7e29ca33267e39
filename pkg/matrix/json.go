package matrix

import (
	"encoding/json"
	"fmt"

	"github.com/fyrsmithlabs/lfkit/pkg/labeling"
)

// matrixJSON is the sparse coordinate wire form:
//
//	{"candidates": [...], "lfs": [...], "entries": [[row, col, vote], ...]}
type matrixJSON struct {
	Candidates []string `json:"candidates"`
	LFs        []string `json:"lfs"`
	Entries    [][3]int `json:"entries"`
}

// MarshalJSON encodes the matrix in sparse coordinate form.
func (m *Matrix) MarshalJSON() ([]byte, error) {
	out := matrixJSON{
		Candidates: m.candidateIDs,
		LFs:        m.lfNames,
		Entries:    make([][3]int, 0, len(m.vals)),
	}
	if out.Candidates == nil {
		out.Candidates = []string{}
	}
	if out.LFs == nil {
		out.LFs = []string{}
	}
	for e := range m.Entries() {
		out.Entries = append(out.Entries, [3]int{e.Row, e.Col, int(e.Label)})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the sparse coordinate form.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	var in matrixJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	entries := make([]Entry, len(in.Entries))
	for i, e := range in.Entries {
		if e[2] < -1 || e[2] > 1 {
			return fmt.Errorf("entry %d: %w: %d", i, labeling.ErrInvalidLabel, e[2])
		}
		entries[i] = Entry{Row: e[0], Col: e[1], Label: labeling.Label(e[2])}
	}
	built, err := New(in.Candidates, in.LFs, entries)
	if err != nil {
		return fmt.Errorf("decoding label matrix: %w", err)
	}
	*m = *built
	return nil
}
