package lfdef

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/lfkit/pkg/candidate"
	"github.com/fyrsmithlabs/lfkit/pkg/labeling"
	"github.com/fyrsmithlabs/lfkit/pkg/source"
)

// Kinds of labeling function definitions.
const (
	KindTerm    = "term"
	KindRegex   = "regex"
	KindKB      = "kb"
	KindAnd     = "and"
	KindOr      = "or"
	KindNot     = "not"
	KindGuarded = "guarded"
)

// Set is a compiled definition document.
type Set struct {
	applied []labeling.LabelingFunction
	byName  map[string]labeling.LabelingFunction
	hidden  map[string]bool
	kbs     map[string]*labeling.KnowledgeBase
}

// LFs returns the non-hidden labeling functions in definition order.
func (s *Set) LFs() []labeling.LabelingFunction {
	out := make([]labeling.LabelingFunction, len(s.applied))
	copy(out, s.applied)
	return out
}

// Names returns the names of LFs().
func (s *Set) Names() []string {
	return labeling.Names(s.applied)
}

// Lookup returns any defined labeling function, hidden ones included.
func (s *Set) Lookup(name string) (labeling.LabelingFunction, bool) {
	lf, ok := s.byName[name]
	return lf, ok
}

// Hidden reports whether name is defined as hidden.
func (s *Set) Hidden(name string) bool {
	return s.hidden[name]
}

// KnowledgeBase returns a loaded knowledge base by name.
func (s *Set) KnowledgeBase(name string) (*labeling.KnowledgeBase, bool) {
	kb, ok := s.kbs[name]
	return kb, ok
}

// Compile builds every knowledge base and labeling function of doc.
// Relative knowledge base paths are resolved against baseDir. Any invalid
// definition fails the whole document with a *labeling.ConfigurationError
// naming the labeling function and field.
func Compile(doc *Document, baseDir string) (*Set, error) {
	s := &Set{
		byName: make(map[string]labeling.LabelingFunction, len(doc.LFs)),
		hidden: make(map[string]bool),
		kbs:    make(map[string]*labeling.KnowledgeBase, len(doc.KnowledgeBases)),
	}

	for i, def := range doc.KnowledgeBases {
		kb, err := loadKB(def, baseDir)
		if err != nil {
			return nil, fmt.Errorf("knowledge_bases[%d] %q: %w", i, def.Name, err)
		}
		s.kbs[def.Name] = kb
	}

	for i, def := range doc.LFs {
		if def.Name == "" {
			return nil, &labeling.ConfigurationError{Field: fmt.Sprintf("lfs[%d].name", i), Reason: "is required"}
		}
		if _, dup := s.byName[def.Name]; dup {
			return nil, &labeling.ConfigurationError{LF: def.Name, Field: "name", Reason: "duplicate labeling function name"}
		}
		lf, err := s.build(def)
		if err != nil {
			return nil, err
		}
		s.byName[def.Name] = lf
		if def.Hidden {
			s.hidden[def.Name] = true
			continue
		}
		s.applied = append(s.applied, lf)
	}
	return s, nil
}

func loadKB(def KBDef, baseDir string) (*labeling.KnowledgeBase, error) {
	if def.Name == "" {
		return nil, &labeling.ConfigurationError{Field: "name", Reason: "is required"}
	}
	sym, err := labeling.ParseSymmetry(def.Symmetry)
	if err != nil {
		return nil, err
	}
	switch {
	case def.Path != "" && len(def.Tuples) > 0:
		return nil, &labeling.ConfigurationError{Field: "path", Reason: "path and tuples are mutually exclusive"}
	case def.Header && def.Path == "":
		return nil, &labeling.ConfigurationError{Field: "header", Reason: "applies to path only"}
	case def.Path != "":
		path := def.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		var opts []source.KBOption
		if def.Header {
			opts = append(opts, source.WithHeader())
		}
		return source.LoadKnowledgeBase(path, sym, opts...)
	}
	return labeling.NewKnowledgeBase(sym, def.Tuples)
}

func (s *Set) build(def LFDef) (labeling.LabelingFunction, error) {
	switch strings.ToLower(def.Kind) {
	case KindTerm, KindRegex, KindKB:
		cfg, err := factoryConfig(def)
		if err != nil {
			return nil, err
		}
		var f *labeling.Factory
		switch strings.ToLower(def.Kind) {
		case KindTerm:
			f, err = labeling.NewTermFactory(cfg, def.Terms)
		case KindRegex:
			f, err = labeling.NewRegexFactory(cfg, def.Patterns)
		default:
			kb, ok := s.kbs[def.KB]
			if !ok {
				return nil, &labeling.ConfigurationError{LF: def.Name, Field: "kb", Value: def.KB, Reason: "unknown knowledge base"}
			}
			f, err = labeling.NewKBFactory(cfg, kb)
		}
		if err != nil {
			return nil, err
		}
		return f.LF(), nil

	case KindAnd, KindOr, KindNot, KindGuarded:
		parts, err := s.resolve(def)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(def.Kind) {
		case KindAnd:
			return labeling.And(def.Name, parts...)
		case KindOr:
			return labeling.Or(def.Name, parts...)
		case KindNot:
			if len(parts) != 1 {
				return nil, &labeling.ConfigurationError{LF: def.Name, Field: "of", Reason: "not takes exactly 1 labeling function"}
			}
			return labeling.Not(def.Name, parts[0])
		default:
			if len(parts) != 2 {
				return nil, &labeling.ConfigurationError{LF: def.Name, Field: "of", Reason: "guarded takes exactly 2 labeling functions: primary, guard"}
			}
			return labeling.Guarded(def.Name, parts[0], parts[1])
		}
	}
	return nil, &labeling.ConfigurationError{
		LF:     def.Name,
		Field:  "kind",
		Value:  def.Kind,
		Reason: "must be one of term regex kb and or not guarded",
	}
}

func factoryConfig(def LFDef) (labeling.Config, error) {
	label, err := labeling.ParseLabel(def.Label)
	if err != nil {
		return labeling.Config{}, &labeling.ConfigurationError{LF: def.Name, Field: "label", Value: def.Label, Reason: "must be true or false", Err: err}
	}
	cfg := labeling.Config{
		Name:          def.Name,
		Label:         label,
		Window:        def.Window,
		Arity:         def.Arity,
		CaseSensitive: def.CaseSensitive,
	}
	if def.Search != "" {
		cfg.Search = candidate.Scope(strings.ToLower(strings.TrimSpace(def.Search)))
	}
	return cfg, nil
}

func (s *Set) resolve(def LFDef) ([]labeling.LabelingFunction, error) {
	if len(def.Of) == 0 {
		return nil, &labeling.ConfigurationError{LF: def.Name, Field: "of", Reason: "composite needs constituents"}
	}
	parts := make([]labeling.LabelingFunction, len(def.Of))
	for i, name := range def.Of {
		lf, ok := s.byName[name]
		if !ok {
			return nil, &labeling.ConfigurationError{
				LF:     def.Name,
				Field:  fmt.Sprintf("of[%d]", i),
				Value:  name,
				Reason: "must name a labeling function defined earlier",
			}
		}
		parts[i] = lf
	}
	return parts, nil
}
