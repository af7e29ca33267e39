package labeling

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Label is a ternary vote.
type Label int8

const (
	// Abstain means the labeling function has no opinion.
	Abstain Label = 0

	// True is a positive vote.
	True Label = 1

	// False is a negative vote.
	False Label = -1
)

// ErrInvalidLabel indicates a value that cannot be read as a ternary vote.
var ErrInvalidLabel = errors.New("invalid label")

// Valid reports whether l is one of the three votes.
func (l Label) Valid() bool {
	return l == True || l == False || l == Abstain
}

// Negate swaps True and False and leaves Abstain alone.
func (l Label) Negate() Label {
	return -l
}

func (l Label) String() string {
	switch l {
	case True:
		return "TRUE"
	case False:
		return "FALSE"
	case Abstain:
		return "ABSTAIN"
	}
	return fmt.Sprintf("Label(%d)", int8(l))
}

// ParseLabel reads a vote from a loosely typed configuration value.
//
// Accepted forms: booleans, the integers -1/0/1 (including whole floats, as
// decoded from YAML or JSON numbers) and the strings
// true/false/abstain, +1/1/-1/0, positive/negative, pos/neg.
func ParseLabel(v any) (Label, error) {
	switch t := v.(type) {
	case Label:
		if t.Valid() {
			return t, nil
		}
	case bool:
		if t {
			return True, nil
		}
		return False, nil
	case int:
		return intLabel(int64(t))
	case int8:
		return intLabel(int64(t))
	case int16:
		return intLabel(int64(t))
	case int32:
		return intLabel(int64(t))
	case int64:
		return intLabel(t)
	case uint64:
		if t <= 1 {
			return intLabel(int64(t))
		}
	case float64:
		if t == math.Trunc(t) {
			return intLabel(int64(t))
		}
	case string:
		return parseLabelString(t)
	}
	return Abstain, fmt.Errorf("%w: %v", ErrInvalidLabel, v)
}

func intLabel(n int64) (Label, error) {
	switch n {
	case 1:
		return True, nil
	case -1:
		return False, nil
	case 0:
		return Abstain, nil
	}
	return Abstain, fmt.Errorf("%w: %d", ErrInvalidLabel, n)
}

func parseLabelString(s string) (Label, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "positive", "pos":
		return True, nil
	case "false", "negative", "neg":
		return False, nil
	case "abstain":
		return Abstain, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 8)
	if err != nil {
		return Abstain, fmt.Errorf("%w: %q", ErrInvalidLabel, s)
	}
	return intLabel(n)
}
