// Package source provides candidates and gold labels to the engine.
//
// CandidateSource is the boundary to whatever stores candidates upstream.
// Memory is an in-process implementation, loadable from a JSONL corpus
// file, used by the CLI and tests.
package source

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/fyrsmithlabs/lfkit/pkg/candidate"
	"github.com/fyrsmithlabs/lfkit/pkg/labeling"
	"github.com/fyrsmithlabs/lfkit/pkg/scoring"
)

// ErrNotFound indicates a missing split, annotator or record.
var ErrNotFound = errors.New("not found")

// CandidateSource lists candidates by split and gold labels by annotator
// and split. Both lists use the same stable order for a given split.
type CandidateSource interface {
	Candidates(ctx context.Context, split candidate.Split) ([]*candidate.Candidate, error)
	GoldLabels(ctx context.Context, annotator string, split candidate.Split) (*scoring.GoldLabels, error)
}

type goldKey struct {
	annotator string
	split     candidate.Split
}

type goldEntry struct {
	candidateID string
	label       labeling.Label
}

// Memory is a concurrency-safe in-memory CandidateSource. Insertion order
// is the canonical order of every split.
type Memory struct {
	mu         sync.RWMutex
	contexts   map[string]*candidate.Context
	candidates map[string]*candidate.Candidate
	splits     map[candidate.Split][]*candidate.Candidate
	gold       map[goldKey][]goldEntry
	goldSeen   map[goldKey]map[string]bool
}

var _ CandidateSource = (*Memory)(nil)

// NewMemory creates an empty source.
func NewMemory() *Memory {
	return &Memory{
		contexts:   make(map[string]*candidate.Context),
		candidates: make(map[string]*candidate.Candidate),
		splits:     make(map[candidate.Split][]*candidate.Candidate),
		gold:       make(map[goldKey][]goldEntry),
		goldSeen:   make(map[goldKey]map[string]bool),
	}
}

// AddContext registers a sentence candidates can point into.
func (m *Memory) AddContext(ctx *candidate.Context) error {
	if ctx == nil || ctx.ID == "" {
		return errors.New("context id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.contexts[ctx.ID]; dup {
		return fmt.Errorf("duplicate context %q", ctx.ID)
	}
	m.contexts[ctx.ID] = ctx
	return nil
}

// Context returns a registered context.
func (m *Memory) Context(id string) (*candidate.Context, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contexts[id]
	return c, ok
}

// AddCandidate appends a candidate to its split. The candidate must be
// valid and its ID unused.
func (m *Memory) AddCandidate(c *candidate.Candidate) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Split == "" {
		return fmt.Errorf("candidate %q has no split", c.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.candidates[c.ID]; dup {
		return fmt.Errorf("duplicate candidate %q", c.ID)
	}
	m.candidates[c.ID] = c
	m.splits[c.Split] = append(m.splits[c.Split], c)
	return nil
}

// SetGold records an annotator's label for a candidate of a split. The
// candidate does not have to be registered; scoring reports such labels as
// alignment errors.
func (m *Memory) SetGold(annotator string, split candidate.Split, candidateID string, label labeling.Label) error {
	if annotator == "" {
		return errors.New("annotator is required")
	}
	if label != labeling.True && label != labeling.False {
		return fmt.Errorf("gold label for %q: %w: %d", candidateID, labeling.ErrInvalidLabel, label)
	}
	key := goldKey{annotator: annotator, split: split}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.goldSeen[key] == nil {
		m.goldSeen[key] = make(map[string]bool)
	}
	if m.goldSeen[key][candidateID] {
		return fmt.Errorf("duplicate gold label for %q by %q", candidateID, annotator)
	}
	m.goldSeen[key][candidateID] = true
	m.gold[key] = append(m.gold[key], goldEntry{candidateID: candidateID, label: label})
	return nil
}

// Candidates returns the candidates of a split in insertion order. An
// unknown split has no candidates.
func (m *Memory) Candidates(ctx context.Context, split candidate.Split) ([]*candidate.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.splits[split]), nil
}

// GoldLabels returns an annotator's labels for a split in insertion order.
func (m *Memory) GoldLabels(ctx context.Context, annotator string, split candidate.Split) (*scoring.GoldLabels, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	entries, ok := m.gold[goldKey{annotator: annotator, split: split}]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("gold labels by %q for split %s: %w", annotator, split, ErrNotFound)
	}

	ids := make([]string, len(entries))
	labels := make([]labeling.Label, len(entries))
	for i, e := range entries {
		ids[i] = e.candidateID
		labels[i] = e.label
	}
	return scoring.NewGoldLabels(ids, labels)
}

// Splits returns the splits holding candidates, sorted.
func (m *Memory) Splits() []candidate.Split {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]candidate.Split, 0, len(m.splits))
	for s := range m.splits {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Annotators returns the annotators with gold labels, sorted.
func (m *Memory) Annotators() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	for k := range m.gold {
		seen[k.annotator] = true
	}
	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
