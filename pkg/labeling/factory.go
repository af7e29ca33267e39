package labeling

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fyrsmithlabs/lfkit/pkg/candidate"
)

// DefaultArity is the span count assumed when Config.Arity is unset.
const DefaultArity = 2

// factoryValidate is the validator instance for factory configuration.
// Field names in errors use the json tag so they match definition files.
var factoryValidate *validator.Validate

func init() {
	factoryValidate = validator.New()
	factoryValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// Config is the declarative description of a primitive labeling function.
type Config struct {
	// Name becomes the labeling function's identity.
	Name string `json:"name" validate:"required"`

	// Label is the vote emitted on a match: True or False.
	Label Label `json:"label" validate:"oneof=-1 1"`

	// Search is the scope term and regex matchers inspect. Not used by
	// knowledge-base factories.
	Search candidate.Scope `json:"search,omitempty" validate:"omitempty,oneof=left right between sentence"`

	// Window bounds left and right scopes. Nil means unbounded; ignored
	// for other scopes.
	Window *int `json:"window,omitempty" validate:"omitempty,gte=1"`

	// Arity is the number of spans candidates of this schema carry.
	// Zero means DefaultArity (or the knowledge base arity).
	Arity int `json:"arity,omitempty" validate:"gte=0,lte=16"`

	// CaseSensitive disables case folding in term and regex matchers.
	CaseSensitive bool `json:"case_sensitive,omitempty"`
}

func (c Config) window() int {
	if c.Window == nil || !c.Search.Windowed() {
		return 0
	}
	return *c.Window
}

// validate checks struct constraints and the scope/arity combination.
func (c *Config) validate(requireSearch bool) error {
	if err := factoryValidate.Struct(c); err != nil {
		return validationError(c.Name, err)
	}
	if requireSearch && c.Search == "" {
		return &ConfigurationError{LF: c.Name, Field: "search", Reason: "is required"}
	}
	if c.Search == candidate.ScopeBetween && c.Arity != 2 {
		return &ConfigurationError{
			LF:     c.Name,
			Field:  "arity",
			Value:  c.Arity,
			Reason: "between scope requires exactly 2 spans",
		}
	}
	return nil
}

func validationError(name string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ConfigurationError{LF: name, Reason: "invalid configuration", Err: err}
	}
	fe := verrs[0]
	return &ConfigurationError{
		LF:     name,
		Field:  fe.Field(),
		Value:  deref(fe.Value()),
		Reason: reason(fe),
	}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		return rv.Elem().Interface()
	}
	return v
}

// Factory is a validated, frozen labeling function configuration bound to
// a matcher.
type Factory struct {
	cfg     Config
	matcher Matcher
	lf      *primitiveLF
}

// NewTermFactory builds a factory voting cfg.Label when any of terms occurs
// in the cfg.Search scope.
func NewTermFactory(cfg Config, terms []string) (*Factory, error) {
	cfg = withDefaultArity(cfg, DefaultArity)
	if err := cfg.validate(true); err != nil {
		return nil, err
	}
	m, err := NewTermMatcher(terms, cfg.Search, cfg.window(), cfg.CaseSensitive)
	if err != nil {
		return nil, withLF(cfg.Name, err)
	}
	return newFactory(cfg, m), nil
}

// NewRegexFactory builds a factory voting cfg.Label when any pattern matches
// the cfg.Search scope text.
func NewRegexFactory(cfg Config, patterns []string) (*Factory, error) {
	cfg = withDefaultArity(cfg, DefaultArity)
	if err := cfg.validate(true); err != nil {
		return nil, err
	}
	m, err := NewRegexMatcher(patterns, cfg.Search, cfg.window(), cfg.CaseSensitive)
	if err != nil {
		return nil, withLF(cfg.Name, err)
	}
	return newFactory(cfg, m), nil
}

// NewKBFactory builds a factory voting cfg.Label when the candidate's span
// values are a tuple of kb. cfg.Search is ignored.
func NewKBFactory(cfg Config, kb *KnowledgeBase) (*Factory, error) {
	if kb == nil || kb.Len() == 0 {
		return nil, &ConfigurationError{LF: cfg.Name, Field: "kb", Reason: "knowledge base is empty"}
	}
	cfg.Search = ""
	cfg.Window = nil
	cfg = withDefaultArity(cfg, kb.Arity())
	if err := cfg.validate(false); err != nil {
		return nil, err
	}
	if cfg.Arity != kb.Arity() {
		return nil, &ConfigurationError{
			LF:     cfg.Name,
			Field:  "arity",
			Value:  cfg.Arity,
			Reason: fmt.Sprintf("knowledge base holds %d-tuples", kb.Arity()),
		}
	}
	m, err := NewKBMatcher(kb)
	if err != nil {
		return nil, withLF(cfg.Name, err)
	}
	return newFactory(cfg, m), nil
}

// NewMatcherFactory binds a caller-supplied matcher. Search and Window are
// only validated; the matcher decides what it inspects.
func NewMatcherFactory(cfg Config, m Matcher) (*Factory, error) {
	cfg = withDefaultArity(cfg, DefaultArity)
	if err := cfg.validate(false); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &ConfigurationError{LF: cfg.Name, Field: "matcher", Reason: "is required"}
	}
	return newFactory(cfg, m), nil
}

func withDefaultArity(cfg Config, arity int) Config {
	if cfg.Arity == 0 {
		cfg.Arity = arity
	}
	if cfg.Window != nil {
		w := *cfg.Window
		cfg.Window = &w
	}
	return cfg
}

func newFactory(cfg Config, m Matcher) *Factory {
	return &Factory{
		cfg:     cfg,
		matcher: m,
		lf:      &primitiveLF{name: cfg.Name, label: cfg.Label, matcher: m},
	}
}

// LF returns the labeling function closing over this configuration.
func (f *Factory) LF() LabelingFunction {
	return f.lf
}

// Config returns a copy of the frozen configuration.
func (f *Factory) Config() Config {
	cfg := f.cfg
	if cfg.Window != nil {
		w := *cfg.Window
		cfg.Window = &w
	}
	return cfg
}

// Matcher returns the underlying matcher.
func (f *Factory) Matcher() Matcher {
	return f.matcher
}

type primitiveLF struct {
	name    string
	label   Label
	matcher Matcher
}

func (p *primitiveLF) Name() string { return p.name }

func (p *primitiveLF) Label(c *candidate.Candidate) (Label, error) {
	ok, err := p.matcher.Match(c)
	if err != nil {
		return Abstain, err
	}
	if ok {
		return p.label, nil
	}
	return Abstain, nil
}
