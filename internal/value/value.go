// Package value implements the tagged Bool|Int|Float scalar variant shared
// by the node registry, the Modbus memory map and the OPC UA address space
// adapter.
package value

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind identifies which arm of the variant is populated.
type Kind int

const (
	Bool Kind = iota
	Int
	Float
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "Bool"
	case Int:
		return "Int"
	case Float:
		return "Float"
	default:
		return "Unknown"
	}
}

// ErrTypeError is raised when a write argument cannot be coerced onto a
// node's declared variant.
var ErrTypeError = errors.New("value: incompatible type for declared variant")

// Value is a small tagged union; the zero Value is Bool(false).
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
}

func FromBool(b bool) Value    { return Value{kind: Bool, b: b} }
func FromInt(i int64) Value    { return Value{kind: Int, i: i} }
func FromFloat(f float64) Value { return Value{kind: Float, f: f} }

func (v Value) Kind() Kind    { return v.kind }
func (v Value) Bool() bool    { return v.b }
func (v Value) Int() int64    { return v.i }
func (v Value) Float() float64 { return v.f }

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Bool:
		return v.b == o.b
	case Int:
		return v.i == o.i
	case Float:
		return v.f == o.f
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case Bool:
		return fmt.Sprintf("%t", v.b)
	case Int:
		return fmt.Sprintf("%d", v.i)
	case Float:
		return fmt.Sprintf("%g", v.f)
	default:
		return "<invalid value>"
	}
}

// Coerce normalizes raw onto target, matching the spec's bool/int/float
// normalization of write arguments within a node's declared variant.
// Allowed conversions are Int->Bool, Bool->Int, Float->Int (truncating),
// Bool->Float and Int->Float; a Float into a Bool target, or any other
// pairing, is a TypeError.
func Coerce(raw Value, target Kind) (Value, error) {
	if raw.kind == target {
		return raw, nil
	}
	switch target {
	case Bool:
		switch raw.kind {
		case Int:
			return FromBool(raw.i != 0), nil
		}
	case Int:
		switch raw.kind {
		case Bool:
			return FromInt(boolToInt(raw.b)), nil
		case Float:
			return FromInt(int64(raw.f)), nil
		}
	case Float:
		switch raw.kind {
		case Bool:
			return FromFloat(float64(boolToInt(raw.b))), nil
		case Int:
			return FromFloat(float64(raw.i)), nil
		}
	}
	return Value{}, fmt.Errorf("%w: cannot coerce %s into %s", ErrTypeError, raw.kind, target)
}

// Interface unwraps v to its underlying Go type, for JSON encoding and
// other boundary code that needs a plain bool/int64/float64.
func (v Value) Interface() interface{} {
	switch v.kind {
	case Bool:
		return v.b
	case Int:
		return v.i
	case Float:
		return v.f
	default:
		return nil
	}
}

// MarshalJSON encodes v as its bare scalar, matching the original
// router's `int | float | bool` response shape.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// FromInterface builds a Value from a decoded JSON/YAML scalar of type
// bool, int, int64, float32 or float64; any other type is a TypeError.
func FromInterface(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case bool:
		return FromBool(x), nil
	case int:
		return FromInt(int64(x)), nil
	case int64:
		return FromInt(x), nil
	case float32:
		return FromFloat(float64(x)), nil
	case float64:
		return FromFloat(x), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported scalar type %T", ErrTypeError, raw)
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
