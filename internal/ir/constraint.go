package ir

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Range bounds a stateful endpoint's value. For numeric endpoints the
// bounds are inclusive values; for string endpoints they bound the length
// in characters.
type Range struct {
	Min Value
	Max Value
}

// Constraint restricts the values a stateful endpoint accepts.
// At most one of Range and Allowed is set; the zero Constraint accepts
// everything.
type Constraint struct {
	Range   *Range
	Allowed []Value
}

// IsZero reports whether the constraint accepts every value.
func (c Constraint) IsZero() bool {
	return c.Range == nil && len(c.Allowed) == 0
}

// Validate checks the constraint itself for a given endpoint type.
func (c Constraint) Validate(t ValueType) error {
	if c.Range != nil && len(c.Allowed) > 0 {
		return fmt.Errorf("constraint has both range and allowed values")
	}
	if c.Range != nil {
		if c.Range.Min == nil || c.Range.Max == nil {
			return fmt.Errorf("range requires min and max")
		}
		boundType := t
		if t == TypeString {
			boundType = TypeInteger
		}
		lo, err := Convert(c.Range.Min, boundType)
		if err != nil {
			return fmt.Errorf("range min: %w", err)
		}
		hi, err := Convert(c.Range.Max, boundType)
		if err != nil {
			return fmt.Errorf("range max: %w", err)
		}
		if cmp, _ := Compare(lo, hi); cmp > 0 {
			return fmt.Errorf("range min %s exceeds max %s", lo, hi)
		}
	}
	for i, a := range c.Allowed {
		if !Compatible(a.Type(), t) {
			return fmt.Errorf("allowed value %d: %s is not assignable to %s", i, a.Type(), t)
		}
	}
	return nil
}

// Test reports whether v satisfies the constraint for an endpoint of type t.
// v is converted into t first; comparisons happen within t. Non-finite
// floats never satisfy it.
func (c Constraint) Test(v Value, t ValueType) bool {
	converted, err := Convert(v, t)
	if err != nil {
		return false
	}
	// NaN compares neither below nor above any bound.
	if f, ok := converted.(Float); ok && !f.IsFinite() {
		return false
	}

	if c.Range != nil {
		if t == TypeString {
			n := Int(utf8.RuneCountInString(string(converted.(String))))
			return inRange(n, c.Range.Min, c.Range.Max, TypeInteger)
		}
		return inRange(converted, c.Range.Min, c.Range.Max, t)
	}

	if len(c.Allowed) > 0 {
		for _, a := range c.Allowed {
			ca, err := Convert(a, t)
			if err != nil {
				continue
			}
			if Equal(converted, ca) {
				return true
			}
		}
		return false
	}

	return true
}

func inRange(v, lo, hi Value, t ValueType) bool {
	l, err := Convert(lo, t)
	if err != nil {
		return false
	}
	h, err := Convert(hi, t)
	if err != nil {
		return false
	}
	if cmp, _ := Compare(v, l); cmp < 0 {
		return false
	}
	if cmp, _ := Compare(v, h); cmp > 0 {
		return false
	}
	return true
}

type constraintJSON struct {
	Range   *rangeJSON  `json:"range,omitempty"`
	Allowed []JSONValue `json:"allowed,omitempty"`
}

type rangeJSON struct {
	Min JSONValue `json:"min"`
	Max JSONValue `json:"max"`
}

// MarshalJSON implements json.Marshaler.
func (c Constraint) MarshalJSON() ([]byte, error) {
	var out constraintJSON
	if c.Range != nil {
		out.Range = &rangeJSON{Min: JSONValue{c.Range.Min}, Max: JSONValue{c.Range.Max}}
	}
	for _, a := range c.Allowed {
		out.Allowed = append(out.Allowed, JSONValue{a})
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Constraint) UnmarshalJSON(data []byte) error {
	var in constraintJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*c = Constraint{}
	if in.Range != nil {
		c.Range = &Range{Min: in.Range.Min.Value, Max: in.Range.Max.Value}
	}
	for _, a := range in.Allowed {
		c.Allowed = append(c.Allowed, a.Value)
	}
	return nil
}
