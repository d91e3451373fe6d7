package param

import (
	"fmt"
	"math"
)

// Kind is the declared type of a parameter.
type Kind interface {
	// Name is a short human readable name ("int", "float", "string", "bool").
	Name() string
	// Check validates that v matches the kind.
	Check(v Value) error
	fmt.Stringer
}

// IntRange accepts integers in [Min, Max]. A zero range accepts any integer.
type IntRange struct {
	Min, Max int64
}

func (IntRange) Name() string { return "int" }

func (k IntRange) Check(v Value) error {
	if v.typ != typeInt {
		return fmt.Errorf("%w: expected int, got %s", ErrTypeMismatch, v.typ)
	}
	if k.bounded() && (v.i < k.Min || v.i > k.Max) {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfRange, v.i, k.Min, k.Max)
	}
	return nil
}

func (k IntRange) String() string {
	if !k.bounded() {
		return "int"
	}
	return fmt.Sprintf("int[%d..%d]", k.Min, k.Max)
}

func (k IntRange) bounded() bool { return k.Min != 0 || k.Max != 0 }

// FloatRange accepts floats in [Min, Max]. A zero range accepts any finite float.
type FloatRange struct {
	Min, Max float64
}

func (FloatRange) Name() string { return "float" }

func (k FloatRange) Check(v Value) error {
	var f float64
	switch v.typ {
	case typeFloat:
		f = v.f
	case typeInt:
		f = float64(v.i)
	default:
		return fmt.Errorf("%w: expected float, got %s", ErrTypeMismatch, v.typ)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %v is not finite", ErrOutOfRange, f)
	}
	if k.bounded() && (f < k.Min || f > k.Max) {
		return fmt.Errorf("%w: %v not in [%v, %v]", ErrOutOfRange, f, k.Min, k.Max)
	}
	return nil
}

func (k FloatRange) String() string {
	if !k.bounded() {
		return "float"
	}
	return fmt.Sprintf("float[%g..%g]", k.Min, k.Max)
}

func (k FloatRange) bounded() bool { return k.Min != 0 || k.Max != 0 }

// StringKind accepts any string.
type StringKind struct{}

func (StringKind) Name() string   { return "string" }
func (StringKind) String() string { return "string" }

func (StringKind) Check(v Value) error {
	if v.typ != typeString {
		return fmt.Errorf("%w: expected string, got %s", ErrTypeMismatch, v.typ)
	}
	return nil
}

// BoolKind accepts true or false.
type BoolKind struct{}

func (BoolKind) Name() string   { return "bool" }
func (BoolKind) String() string { return "bool" }

func (BoolKind) Check(v Value) error {
	if v.typ != typeBool {
		return fmt.Errorf("%w: expected bool, got %s", ErrTypeMismatch, v.typ)
	}
	return nil
}
