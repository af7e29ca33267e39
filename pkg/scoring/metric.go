package scoring

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Metric is a ratio that may be undefined. Undefined is represented as NaN
// and encoded as null.
type Metric float64

// Undefined is the metric value for a zero denominator.
var Undefined = Metric(math.NaN())

func ratio(num, den int) Metric {
	if den == 0 {
		return Undefined
	}
	return Metric(float64(num) / float64(den))
}

// Defined reports whether the metric has a value.
func (m Metric) Defined() bool {
	return !math.IsNaN(float64(m))
}

// Float64 returns the raw value, NaN when undefined.
func (m Metric) Float64() float64 {
	return float64(m)
}

func (m Metric) String() string {
	if !m.Defined() {
		return "n/a"
	}
	return strconv.FormatFloat(float64(m), 'f', 3, 64)
}

// MarshalJSON encodes an undefined metric as null.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(m))
}

// UnmarshalJSON decodes null as undefined.
func (m *Metric) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Undefined
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*m = Metric(f)
	return nil
}

// MarshalYAML encodes an undefined metric as null.
func (m Metric) MarshalYAML() (any, error) {
	if !m.Defined() {
		return nil, nil
	}
	return float64(m), nil
}
