package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates the variants of the closed type universe.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindAny
	KindNull
	KindPrimitive
	KindEnum
	KindObject
	KindInterval
	KindAvatar
	KindFunc
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindAny:
		return "any"
	case KindNull:
		return "null"
	case KindPrimitive:
		return "primitive"
	case KindEnum:
		return "enum"
	case KindObject:
		return "object"
	case KindInterval:
		return "interval"
	case KindAvatar:
		return "avatar"
	case KindFunc:
		return "func"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Prim enumerates primitive kinds. The order inside the integer family is
// the widening rank.
type Prim uint8

const (
	PrimInvalid Prim = iota
	PrimBool
	PrimByte
	PrimChar
	PrimShort
	PrimInt
	PrimLong
	PrimFloat
	PrimDouble
	PrimString
	primCount
)

// AllPrims lists every valid primitive kind in rank order.
var AllPrims = []Prim{PrimBool, PrimByte, PrimChar, PrimShort, PrimInt, PrimLong, PrimFloat, PrimDouble, PrimString}

func (p Prim) String() string {
	switch p {
	case PrimBool:
		return "bool"
	case PrimByte:
		return "byte"
	case PrimChar:
		return "char"
	case PrimShort:
		return "short"
	case PrimInt:
		return "int"
	case PrimLong:
		return "long"
	case PrimFloat:
		return "float"
	case PrimDouble:
		return "double"
	case PrimString:
		return "string"
	default:
		return fmt.Sprintf("Prim(%d)", p)
	}
}

// ParsePrim maps a primitive keyword to its kind.
func ParsePrim(s string) (Prim, bool) {
	for _, p := range AllPrims {
		if p.String() == s {
			return p, true
		}
	}
	return PrimInvalid, false
}

func (p Prim) IsInteger() bool { return p >= PrimByte && p <= PrimLong }
func (p Prim) IsFloat() bool   { return p == PrimFloat || p == PrimDouble }
func (p Prim) IsNumeric() bool { return p.IsInteger() || p.IsFloat() }

// Rank orders numeric kinds; non-numeric kinds rank zero.
func (p Prim) Rank() int {
	if !p.IsNumeric() {
		return 0
	}
	return int(p - PrimBool)
}

// Mask returns the bit of p inside a primitive set.
func (p Prim) Mask() uint32 { return 1 << p }

// Common primitive sets used by the built-in primitive interfaces.
var (
	MaskNumeric    = PrimByte.Mask() | PrimChar.Mask() | PrimShort.Mask() | PrimInt.Mask() | PrimLong.Mask() | PrimFloat.Mask() | PrimDouble.Mask()
	MaskComparable = MaskNumeric | PrimString.Mask()
	MaskAll        = MaskComparable | PrimBool.Mask()
)

// TypeCode is the numeric key the code sink uses for primitive opcodes.
type TypeCode uint8

// CodeRef marks reference values (objects, intervals, arrays, any).
const CodeRef TypeCode = 0x80

// CodeOf returns the primitive type code of p.
func CodeOf(p Prim) TypeCode { return TypeCode(p) }

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind  Kind
	Prim  Prim   // primitives
	Decl  DeclID // enums, objects, functions, avatar owner
	Index uint32 // avatar parameter index
	Lower TypeID // intervals
	Upper TypeID // intervals
	Elem  TypeID // arrays
}
