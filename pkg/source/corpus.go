package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fyrsmithlabs/lfkit/pkg/candidate"
	"github.com/fyrsmithlabs/lfkit/pkg/labeling"
)

const maxCorpusLine = 4 * 1024 * 1024

// record is one line of a JSONL corpus. Type selects which fields apply:
//
//	{"type":"context","id":"s1","text":"Barack Obama and his wife ..."}
//	{"type":"context","id":"s2","words":["Ann","married","Bob"]}
//	{"type":"candidate","id":"c1","split":"dev","context":"s1","spans":[{"start":0,"end":2},{"start":5,"end":7}]}
//	{"type":"gold","candidate":"c1","split":"dev","annotator":"gold","label":1}
type record struct {
	Type string `json:"type"`

	// context and candidate
	ID string `json:"id"`

	// context
	Text  string   `json:"text"`
	Words []string `json:"words"`

	// candidate and gold
	Split candidate.Split `json:"split"`

	// candidate
	Context string           `json:"context"`
	Spans   []candidate.Span `json:"spans"`

	// gold
	Candidate string `json:"candidate"`
	Annotator string `json:"annotator"`
	Label     any    `json:"label"`
}

// LoadCorpus reads a JSONL corpus file into a Memory source.
func LoadCorpus(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()

	m, err := ReadCorpus(f)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}
	return m, nil
}

// ReadCorpus reads JSONL records. Contexts must precede the candidates that
// reference them. Blank lines and lines starting with '#' are skipped.
func ReadCorpus(r io.Reader) (*Memory, error) {
	m := NewMemory()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxCorpusLine)

	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		var rec record
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := m.addRecord(&rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Memory) addRecord(rec *record) error {
	switch rec.Type {
	case "context":
		words := rec.Words
		if len(words) == 0 {
			words = strings.Fields(rec.Text)
		}
		return m.AddContext(&candidate.Context{ID: rec.ID, Words: words})

	case "candidate":
		ctx, ok := m.Context(rec.Context)
		if !ok {
			return fmt.Errorf("candidate %q: context %q: %w", rec.ID, rec.Context, ErrNotFound)
		}
		return m.AddCandidate(&candidate.Candidate{
			ID:      rec.ID,
			Split:   rec.Split,
			Spans:   rec.Spans,
			Context: ctx,
		})

	case "gold":
		label, err := labeling.ParseLabel(jsonNumber(rec.Label))
		if err != nil {
			return fmt.Errorf("gold for %q: %w", rec.Candidate, err)
		}
		split := rec.Split
		if split == "" {
			m.mu.RLock()
			if c, ok := m.candidates[rec.Candidate]; ok {
				split = c.Split
			}
			m.mu.RUnlock()
		}
		if split == "" {
			return fmt.Errorf("gold for %q: split is required for unknown candidates", rec.Candidate)
		}
		return m.SetGold(rec.Annotator, split, rec.Candidate, label)
	}
	return fmt.Errorf("unknown record type %q", rec.Type)
}

// jsonNumber converts json.Number to int64 when integral so ParseLabel can
// read it.
func jsonNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return v
}
