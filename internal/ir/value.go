package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueType is the runtime tag of a Value.
type ValueType int

const (
	// TypeInteger tags Int values.
	TypeInteger ValueType = iota + 1
	// TypeFloat tags Float values.
	TypeFloat
	// TypeString tags String values.
	TypeString
)

// String returns the wire name of the type.
func (t ValueType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	default:
		return fmt.Sprintf("ValueType(%d)", int(t))
	}
}

// ParseValueType parses a wire name ("integer", "float", "string").
// "int" is accepted as an alias for "integer".
func ParseValueType(s string) (ValueType, error) {
	switch s {
	case "integer", "int":
		return TypeInteger, nil
	case "float":
		return TypeFloat, nil
	case "string":
		return TypeString, nil
	default:
		return 0, fmt.Errorf("unknown value type %q", s)
	}
}

// IsNumeric reports whether t is Integer or Float.
func (t ValueType) IsNumeric() bool {
	return t == TypeInteger || t == TypeFloat
}

// Value is a sealed interface over the three endpoint value types.
// Only Int, Float and String implement it. A Value's tag never changes;
// Convert produces a new Value.
type Value interface {
	Type() ValueType
	String() string
	value() // sealed
}

// Int is an integer value.
type Int int64

func (Int) value() {}

// Type implements Value.
func (Int) Type() ValueType { return TypeInteger }

func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

// Float is a floating point value.
type Float float64

func (Float) value() {}

// Type implements Value.
func (Float) Type() ValueType { return TypeFloat }

func (v Float) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }

// IsFinite reports whether v is neither NaN nor an infinity. Only finite
// floats can be stored in an endpoint.
func (v Float) IsFinite() bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// String is a string value.
type String string

func (String) value() {}

// Type implements Value.
func (String) Type() ValueType { return TypeString }

func (v String) String() string { return string(v) }

// Clone returns an independent copy of v. Values are immutable Go values,
// so this is the identity; it exists so callers capturing a previous value
// state their intent. Clone(nil) is nil.
func Clone(v Value) Value {
	return v
}

// Compatible reports whether a value tagged from may be assigned to an
// endpoint of type to. Tags must match, except Integer and Float which
// interoperate.
func Compatible(from, to ValueType) bool {
	if from == to {
		return true
	}
	return from.IsNumeric() && to.IsNumeric()
}

// Convert returns v represented as type to.
// Float to Integer truncates toward zero; NaN and floats outside the int64
// range are an error. Non-numeric cross-type conversion is an error.
func Convert(v Value, to ValueType) (Value, error) {
	if v == nil {
		return nil, fmt.Errorf("convert: nil value")
	}
	if v.Type() == to {
		return v, nil
	}
	switch val := v.(type) {
	case Int:
		if to == TypeFloat {
			return Float(float64(val)), nil
		}
	case Float:
		if to == TypeInteger {
			f := math.Trunc(float64(val))
			// 2^63 itself is not representable as int64.
			if math.IsNaN(f) || f >= 1<<63 || f < -(1<<63) {
				return nil, fmt.Errorf("convert: float %v out of integer range", float64(val))
			}
			return Int(int64(f)), nil
		}
	}
	return nil, fmt.Errorf("convert: cannot convert %s to %s", v.Type(), to)
}

// Equal compares two values within the same tag. Values with different
// tags are never equal.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	return a == b
}

// Compare orders two values of the same tag: -1, 0 or +1.
// ok is false when the tags differ.
func Compare(a, b Value) (cmp int, ok bool) {
	if a == nil || b == nil || a.Type() != b.Type() {
		return 0, false
	}
	switch av := a.(type) {
	case Int:
		bv := b.(Int)
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case Float:
		bv := b.(Float)
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case String:
		bv := b.(String)
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Zero returns the zero value for t.
func Zero(t ValueType) Value {
	switch t {
	case TypeInteger:
		return Int(0)
	case TypeFloat:
		return Float(0)
	default:
		return String("")
	}
}

// ParseValue parses text as a value of type t.
func ParseValue(s string, t ValueType) (Value, error) {
	switch t {
	case TypeInteger:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse integer %q: %w", s, err)
		}
		return Int(n), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parse float %q: %w", s, err)
		}
		return Float(f), nil
	case TypeString:
		return String(s), nil
	default:
		return nil, fmt.Errorf("parse: unknown value type %d", int(t))
	}
}

// FromAny converts a decoded YAML/JSON/Lua scalar into a Value.
// Whole-number floats stay Float; use Convert for endpoint coercion.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		return val, nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return Int(val), nil
	case float64:
		return Float(val), nil
	case float32:
		return Float(val), nil
	case string:
		return String(val), nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", val)
		}
		return Float(f), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// MarshalValue encodes v as a single-key tagged object:
//
//	{"integer":5}  {"float":0.5}  {"string":"x"}
//
// The tag survives the round trip, so 1.0 stays a Float.
func MarshalValue(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	var payload any
	switch val := v.(type) {
	case Int:
		payload = int64(val)
	case Float:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("marshal value: non-finite float %v", f)
		}
		payload = f
	case String:
		payload = string(val)
	default:
		return nil, fmt.Errorf("marshal value: unknown type %T", v)
	}
	return json.Marshal(map[string]any{v.Type().String(): payload})
}

// UnmarshalValue decodes the tagged form produced by MarshalValue.
// JSON null decodes to a nil Value.
func UnmarshalValue(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	if len(raw) != 1 {
		return nil, fmt.Errorf("unmarshal value: expected exactly one type key, got %d", len(raw))
	}
	for k, payload := range raw {
		t, err := ParseValueType(k)
		if err != nil {
			return nil, fmt.Errorf("unmarshal value: %w", err)
		}
		switch t {
		case TypeInteger:
			var n int64
			if err := json.Unmarshal(payload, &n); err != nil {
				return nil, fmt.Errorf("unmarshal integer: %w", err)
			}
			return Int(n), nil
		case TypeFloat:
			var f float64
			if err := json.Unmarshal(payload, &f); err != nil {
				return nil, fmt.Errorf("unmarshal float: %w", err)
			}
			return Float(f), nil
		case TypeString:
			var s string
			if err := json.Unmarshal(payload, &s); err != nil {
				return nil, fmt.Errorf("unmarshal string: %w", err)
			}
			return String(s), nil
		}
	}
	return nil, fmt.Errorf("unmarshal value: unreachable")
}

// JSONValue wraps a Value for use as a struct field that must survive
// JSON encoding with its tag intact.
type JSONValue struct {
	Value Value
}

// MarshalJSON implements json.Marshaler.
func (j JSONValue) MarshalJSON() ([]byte, error) {
	return MarshalValue(j.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (j *JSONValue) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	j.Value = v
	return nil
}
