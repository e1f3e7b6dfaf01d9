package hir

import (
	"math"
	"strconv"

	"tessel/internal/types"
)

// Value is a compile-time constant of a primitive kind. Integer kinds,
// bool and chars live in Int; float kinds in Float; strings in Str.
type Value struct {
	Prim  types.Prim
	Int   int64
	Float float64
	Str   string
}

// IntValue builds an integer-family constant wrapped to the width of p.
func IntValue(p types.Prim, v int64) Value {
	return Value{Prim: p, Int: WrapInt(p, v)}
}

// FloatValue builds a float or double constant.
func FloatValue(p types.Prim, v float64) Value {
	if p == types.PrimFloat {
		v = float64(float32(v))
	}
	return Value{Prim: p, Float: v}
}

// BoolValue builds a bool constant.
func BoolValue(b bool) Value {
	if b {
		return Value{Prim: types.PrimBool, Int: 1}
	}
	return Value{Prim: types.PrimBool}
}

// StringValue builds a string constant.
func StringValue(s string) Value {
	return Value{Prim: types.PrimString, Str: s}
}

// Bool returns the truth of a bool constant.
func (v Value) Bool() bool { return v.Int != 0 }

// AsFloat converts any numeric constant to float64.
func (v Value) AsFloat() float64 {
	if v.Prim.IsFloat() {
		return v.Float
	}
	return float64(v.Int)
}

// Equal compares two constants of the same kind.
func (v Value) Equal(o Value) bool {
	if v.Prim != o.Prim {
		return false
	}
	switch {
	case v.Prim == types.PrimString:
		return v.Str == o.Str
	case v.Prim.IsFloat():
		return v.Float == o.Float
	default:
		return v.Int == o.Int
	}
}

func (v Value) String() string {
	switch {
	case v.Prim == types.PrimString:
		return strconv.Quote(v.Str)
	case v.Prim == types.PrimBool:
		return strconv.FormatBool(v.Bool())
	case v.Prim == types.PrimChar:
		return strconv.QuoteRune(rune(v.Int))
	case v.Prim.IsFloat():
		bits := 64
		if v.Prim == types.PrimFloat {
			bits = 32
		}
		return strconv.FormatFloat(v.Float, 'g', -1, bits)
	default:
		return strconv.FormatInt(v.Int, 10)
	}
}

// Text renders the value the way string conversion does at run time.
func (v Value) Text() string {
	switch v.Prim {
	case types.PrimString:
		return v.Str
	case types.PrimChar:
		return string(rune(v.Int))
	}
	return v.String()
}

// WrapInt truncates v to the storage width of an integer kind.
func WrapInt(p types.Prim, v int64) int64 {
	switch p {
	case types.PrimBool:
		if v != 0 {
			return 1
		}
		return 0
	case types.PrimByte:
		return int64(uint8(v))
	case types.PrimChar:
		return int64(uint16(v))
	case types.PrimShort:
		return int64(int16(v))
	case types.PrimInt:
		return int64(int32(v))
	}
	return v
}

// FitsInt reports whether v is representable in the integer kind p.
func FitsInt(p types.Prim, v int64) bool {
	switch p {
	case types.PrimByte:
		return v >= 0 && v <= math.MaxUint8
	case types.PrimChar:
		return v >= 0 && v <= math.MaxUint16
	case types.PrimShort:
		return v >= math.MinInt16 && v <= math.MaxInt16
	case types.PrimInt:
		return v >= math.MinInt32 && v <= math.MaxInt32
	case types.PrimLong:
		return true
	}
	return false
}
