package models

import "strconv"

// ValueState classifies a stored cell
type ValueState int

const (
	ValueMissing ValueState = iota // empty or null cell, or no such cell
	ValueInvalid                   // non-numeric content
	ValuePresent
)

// String returns the state name
func (s ValueState) String() string {
	switch s {
	case ValueMissing:
		return "missing"
	case ValueInvalid:
		return "invalid"
	case ValuePresent:
		return "present"
	default:
		return "unknown"
	}
}

// Value is one observation of an entity in a period.
// A zero Value is missing, which keeps absence distinct from a recorded 0.
type Value struct {
	Number float64    `json:"number"`
	Raw    string     `json:"raw,omitempty"`
	State  ValueState `json:"state"`
}

// Present builds a numeric observation
func Present(n float64) Value {
	return Value{Number: n, Raw: FormatNumber(n), State: ValuePresent}
}

// Missing builds an absent observation
func Missing() Value {
	return Value{State: ValueMissing}
}

// Invalid builds an observation holding non-numeric text
func Invalid(raw string) Value {
	return Value{Raw: raw, State: ValueInvalid}
}

// Ok reports whether the value can take part in arithmetic
func (v Value) Ok() bool {
	return v.State == ValuePresent
}

// String renders the value plainly; presentation layers reformat it
func (v Value) String() string {
	switch v.State {
	case ValuePresent:
		return FormatNumber(v.Number)
	case ValueInvalid:
		return v.Raw
	default:
		return ""
	}
}

// FormatNumber renders n without grouping or trailing zeros
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
