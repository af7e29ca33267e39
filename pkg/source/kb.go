package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/lfkit/pkg/labeling"
)

// KBOption configures knowledge base reading.
type KBOption func(*kbOptions)

type kbOptions struct {
	header bool
}

// WithHeader skips the first record, which names the columns.
func WithHeader() KBOption {
	return func(o *kbOptions) { o.header = true }
}

// LoadKnowledgeBase reads tuples from a delimited file and builds a
// knowledge base with the given symmetry. Files ending in .tsv or .tab are
// tab separated, everything else comma separated.
func LoadKnowledgeBase(path string, symmetry labeling.Symmetry, opts ...KBOption) (*labeling.KnowledgeBase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge base: %w", err)
	}
	defer f.Close()

	comma := ','
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		comma = '\t'
	}

	kb, err := ReadKnowledgeBase(f, comma, symmetry, opts...)
	if err != nil {
		return nil, fmt.Errorf("knowledge base %s: %w", path, err)
	}
	return kb, nil
}

// ReadKnowledgeBase reads one tuple per record. Lines starting with '#' are
// comments; blank fields are trimmed. With WithHeader the first record
// after any comments is dropped.
func ReadKnowledgeBase(r io.Reader, comma rune, symmetry labeling.Symmetry, opts ...KBOption) (*labeling.KnowledgeBase, error) {
	var o kbOptions
	for _, opt := range opts {
		opt(&o)
	}

	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if comma == '\t' {
		cr.LazyQuotes = true
	}

	var tuples [][]string
	skip := o.header
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tuples: %w", err)
		}
		tuple := make([]string, 0, len(rec))
		for _, v := range rec {
			tuple = append(tuple, strings.TrimSpace(v))
		}
		if len(tuple) == 1 && tuple[0] == "" {
			continue
		}
		if skip {
			skip = false
			continue
		}
		tuples = append(tuples, tuple)
	}
	return labeling.NewKnowledgeBase(symmetry, tuples)
}
