package labeling

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration matches every *ConfigurationError via errors.Is.
	ErrConfiguration = errors.New("configuration error")

	// ErrEvaluation matches every *EvaluationError via errors.Is.
	ErrEvaluation = errors.New("evaluation error")
)

// ConfigurationError reports invalid parameters at factory, labeling
// function or composition construction time. It is always fatal to the
// call that returned it.
type ConfigurationError struct {
	// LF is the name of the labeling function being built, if known.
	LF string

	// Field is the offending configuration field.
	Field string

	// Value is the rejected value, if any.
	Value any

	// Reason describes the violated constraint.
	Reason string

	// Err is an optional underlying cause.
	Err error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.LF != "" {
		fmt.Fprintf(&b, ": lf %q", e.LF)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
		if e.Value != nil {
			fmt.Fprintf(&b, "=%v", e.Value)
		}
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrConfiguration) hold for any ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// EvaluationError is one labeling function failing on one candidate.
// Matrix builds recover from it: the cell abstains and the error is
// reported alongside the matrix.
type EvaluationError struct {
	CandidateID string
	LF          string
	Err         error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation error: lf %q on candidate %q: %v", e.LF, e.CandidateID, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrEvaluation) hold for any EvaluationError.
func (e *EvaluationError) Is(target error) bool {
	return target == ErrEvaluation
}

// withLF returns err with the LF name filled in when err is a
// ConfigurationError that does not name one yet.
func withLF(name string, err error) error {
	var cerr *ConfigurationError
	if errors.As(err, &cerr) && cerr.LF == "" {
		cp := *cerr
		cp.LF = name
		return &cp
	}
	return err
}
