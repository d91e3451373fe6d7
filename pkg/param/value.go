package param

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type valueType uint8

const (
	typeNone valueType = iota
	typeInt
	typeFloat
	typeString
	typeBool
)

func (t valueType) String() string {
	switch t {
	case typeInt:
		return "int"
	case typeFloat:
		return "float"
	case typeString:
		return "string"
	case typeBool:
		return "bool"
	default:
		return "none"
	}
}

// Value is a single typed parameter value. The zero Value is "unset".
type Value struct {
	typ valueType
	i   int64
	f   float64
	s   string
	b   bool
}

func Int(v int64) Value      { return Value{typ: typeInt, i: v} }
func Float(v float64) Value  { return Value{typ: typeFloat, f: v} }
func String(v string) Value  { return Value{typ: typeString, s: v} }
func Bool(v bool) Value      { return Value{typ: typeBool, b: v} }
func (v Value) IsSet() bool  { return v.typ != typeNone }
func (v Value) Type() string { return v.typ.String() }

// Any returns the value as a plain Go value (int64, float64, string, bool or nil).
func (v Value) Any() any {
	switch v.typ {
	case typeInt:
		return v.i
	case typeFloat:
		return v.f
	case typeString:
		return v.s
	case typeBool:
		return v.b
	default:
		return nil
	}
}

func (v Value) String() string {
	if !v.IsSet() {
		return "<unset>"
	}
	if v.typ == typeString {
		return strconv.Quote(v.s)
	}
	return fmt.Sprint(v.Any())
}

// Values is a parameter bag: name -> value.
type Values map[string]Value

// Parse converts text into a Value of the given kind. It backs command-line
// overrides such as --param width=4096.
func Parse(kind Kind, text string) (Value, error) {
	switch kind.(type) {
	case IntRange:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 0, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not an int", ErrTypeMismatch, text)
		}
		return Int(n), nil
	case FloatRange:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a float", ErrTypeMismatch, text)
		}
		return Float(f), nil
	case BoolKind:
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a bool", ErrTypeMismatch, text)
		}
		return Bool(b), nil
	default:
		return String(text), nil
	}
}

// FromAny converts a decoded YAML/JSON map into a bag, using the schema to
// decide how numbers are interpreted. Unknown names are rejected.
func FromAny(raw map[string]any, schema Schema) (Values, error) {
	values := make(Values, len(raw))
	for name, v := range raw {
		desc, ok := schema.Lookup(name)
		if !ok {
			return nil, &ConfigError{Param: name, Err: ErrUnknownParameter}
		}
		value, err := convert(desc.Kind, v)
		if err != nil {
			return nil, &ConfigError{Param: name, Err: err}
		}
		values[name] = value
	}
	return values, nil
}

func convert(kind Kind, v any) (Value, error) {
	switch kind.(type) {
	case IntRange:
		switch n := v.(type) {
		case int:
			return Int(int64(n)), nil
		case int64:
			return Int(n), nil
		case uint64:
			if n > math.MaxInt64 {
				return Value{}, fmt.Errorf("%w: %d overflows int64", ErrOutOfRange, n)
			}
			return Int(int64(n)), nil
		case float64:
			if n != math.Trunc(n) {
				return Value{}, fmt.Errorf("%w: %v is not an integer", ErrTypeMismatch, n)
			}
			return Int(int64(n)), nil
		}
	case FloatRange:
		switch n := v.(type) {
		case int:
			return Float(float64(n)), nil
		case int64:
			return Float(float64(n)), nil
		case uint64:
			return Float(float64(n)), nil
		case float64:
			return Float(n), nil
		}
	case StringKind:
		if s, ok := v.(string); ok {
			return String(s), nil
		}
	case BoolKind:
		if b, ok := v.(bool); ok {
			return Bool(b), nil
		}
	}
	return Value{}, fmt.Errorf("%w: expected %s, got %T", ErrTypeMismatch, kind.Name(), v)
}
