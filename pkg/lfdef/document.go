// Package lfdef loads labeling function sets from declarative definition
// files.
//
// A definition file lists knowledge bases and labeling functions. Primitive
// labeling functions (term, regex, kb) map onto the labeling factories;
// composite ones (and, or, not, guarded) refer to labeling functions
// defined earlier in the same file by name. Hidden labeling functions can
// be referenced by composites but are not part of the applied set.
//
//	knowledge_bases:
//	  - name: spouses
//	    path: spouses.tsv
//	    symmetry: symmetric
//	lfs:
//	  - name: lf_husband_wife
//	    kind: term
//	    label: true
//	    search: between
//	    terms: [husband, wife]
package lfdef

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// maxDefinitionSize bounds definition files read from disk.
const maxDefinitionSize = 1024 * 1024

// Format is a definition file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks a format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unsupported definition file extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
}

// Document is the decoded form of a definition file.
type Document struct {
	KnowledgeBases []KBDef `koanf:"knowledge_bases" toml:"knowledge_bases"`
	LFs            []LFDef `koanf:"lfs" toml:"lfs"`
}

// KBDef declares a knowledge base, either from a delimited file or inline
// tuples.
type KBDef struct {
	Name     string     `koanf:"name" toml:"name"`
	Path     string     `koanf:"path" toml:"path"`
	Symmetry string     `koanf:"symmetry" toml:"symmetry"`
	Tuples   [][]string `koanf:"tuples" toml:"tuples"`

	// Header marks the first record of Path as column names.
	Header bool `koanf:"header" toml:"header"`
}

// LFDef declares one labeling function.
type LFDef struct {
	Name string `koanf:"name" toml:"name"`
	Kind string `koanf:"kind" toml:"kind"`

	// Label is read with labeling.ParseLabel, so true, 1, "+1" and
	// "positive" are equivalent.
	Label any `koanf:"label" toml:"label"`

	Search        string `koanf:"search" toml:"search"`
	Window        *int   `koanf:"window" toml:"window"`
	Arity         int    `koanf:"arity" toml:"arity"`
	CaseSensitive bool   `koanf:"case_sensitive" toml:"case_sensitive"`

	Terms    []string `koanf:"terms" toml:"terms"`
	Patterns []string `koanf:"patterns" toml:"patterns"`
	KB       string   `koanf:"kb" toml:"kb"`

	// Of names the constituents of composite kinds.
	Of []string `koanf:"of" toml:"of"`

	Hidden bool `koanf:"hidden" toml:"hidden"`
}

// Parse decodes a definition document.
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		k := koanf.New(".")
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing yaml definitions: %w", err)
		}
		if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
			return nil, fmt.Errorf("decoding yaml definitions: %w", err)
		}
	case FormatTOML:
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&doc)
		if err != nil {
			return nil, fmt.Errorf("parsing toml definitions: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown toml definition keys: %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("unsupported definition format %q", format)
	}
	return &doc, nil
}

// ReadFile reads and decodes a definition file, choosing the format from
// its extension.
func ReadFile(path string) (*Document, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat definitions: %w", err)
	}
	if info.Size() > maxDefinitionSize {
		return nil, fmt.Errorf("definition file too large: %d bytes (max %d)", info.Size(), maxDefinitionSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definitions: %w", err)
	}
	return Parse(data, format)
}

// Load reads a definition file and compiles it. Relative knowledge base
// paths are resolved against the file's directory.
func Load(path string) (*Set, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	set, err := Compile(doc, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}
