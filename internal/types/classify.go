package types

import "fmt"

// Category is the coarse shape the cast/unify tables dispatch on.
type Category uint8

const (
	CatInvalid Category = iota
	CatPrimitive
	CatPrimitiveGeneric
	CatPrimitiveInterface
	CatEnum
	CatPrimitiveBoxer
	CatAny
	CatTopObject
	CatObject
)

// Categories lists every valid category in table order.
var Categories = []Category{
	CatPrimitive, CatPrimitiveGeneric, CatPrimitiveInterface, CatEnum,
	CatPrimitiveBoxer, CatAny, CatTopObject, CatObject,
}

func (c Category) String() string {
	switch c {
	case CatPrimitive:
		return "Primitive"
	case CatPrimitiveGeneric:
		return "PrimitiveGeneric"
	case CatPrimitiveInterface:
		return "PrimitiveInterface"
	case CatEnum:
		return "Enum"
	case CatPrimitiveBoxer:
		return "PrimitiveBoxer"
	case CatAny:
		return "Any"
	case CatTopObject:
		return "TopObject"
	case CatObject:
		return "Object"
	default:
		return fmt.Sprintf("Category(%d)", c)
	}
}

// PrimitiveKind reports whether values of the category are stored unboxed.
func (c Category) PrimitiveKind() bool {
	return c == CatPrimitive || c == CatPrimitiveGeneric || c == CatEnum
}

// ObjectKind reports whether values of the category are references.
func (c Category) ObjectKind() bool {
	return c == CatPrimitiveBoxer || c == CatTopObject || c == CatObject
}

// maxBoundDepth limits avatar-through-avatar bound chasing.
const maxBoundDepth = 32

// Classify assigns exactly one Category to id. Shapes without a rule are
// reported as errors; callers treat them as engine bugs.
func (in *Interner) Classify(id TypeID) (Category, error) {
	return in.classify(id, 0)
}

// MustClassify panics on unclassifiable types.
func (in *Interner) MustClassify(id TypeID) Category {
	c, err := in.Classify(id)
	if err != nil {
		panic(err)
	}
	return c
}

func (in *Interner) classify(id TypeID, depth int) (Category, error) {
	if depth > maxBoundDepth {
		return CatInvalid, fmt.Errorf("types: bound chain too deep while classifying %s", in.Name(id))
	}
	tt, ok := in.Lookup(id)
	if !ok {
		return CatInvalid, fmt.Errorf("types: cannot classify invalid TypeID %d", id)
	}
	switch tt.Kind {
	case KindPrimitive:
		return CatPrimitive, nil
	case KindEnum:
		return CatEnum, nil
	case KindAny:
		return CatAny, nil
	case KindNull, KindInterval, KindFunc, KindArray:
		return CatObject, nil
	case KindObject:
		d := in.Decl(tt.Decl)
		if d == nil {
			return CatInvalid, fmt.Errorf("types: object type %d has no declaration", id)
		}
		switch {
		case d.Kind == DeclPrimInterface:
			return CatPrimitiveInterface, nil
		case d.ID == in.builtins.ObjectDecl:
			return CatTopObject, nil
		}
		if _, boxed := in.BoxedPrim(id); boxed {
			return CatPrimitiveBoxer, nil
		}
		return CatObject, nil
	case KindAvatar:
		p, ok := in.Param(id)
		if !ok {
			return CatInvalid, fmt.Errorf("types: avatar %d has no owner parameter", id)
		}
		_, upper := in.Bounds(p.Bound)
		if in.IsPrimitiveFamily(upper) {
			return CatPrimitiveGeneric, nil
		}
		if upper == in.builtins.Any {
			return CatAny, nil
		}
		return in.classify(upper, depth+1)
	}
	return CatInvalid, fmt.Errorf("types: no classification rule for %s (%s)", in.Name(id), tt.Kind)
}

// IsPrimitiveFamily reports whether id is a primitive or a primitive interface.
func (in *Interner) IsPrimitiveFamily(id TypeID) bool {
	tt, ok := in.Lookup(id)
	if !ok {
		return false
	}
	if tt.Kind == KindPrimitive {
		return true
	}
	if tt.Kind == KindObject {
		d := in.Decl(tt.Decl)
		return d != nil && d.Kind == DeclPrimInterface
	}
	return false
}

// PrimSet returns the primitive kinds admitted by a primitive-family type.
func (in *Interner) PrimSet(id TypeID) uint32 {
	tt, ok := in.Lookup(id)
	if !ok {
		return 0
	}
	switch tt.Kind {
	case KindPrimitive:
		return tt.Prim.Mask()
	case KindObject:
		if d := in.Decl(tt.Decl); d != nil && d.Kind == DeclPrimInterface {
			return d.PrimMask
		}
	case KindAvatar:
		if p, ok := in.Param(id); ok {
			_, upper := in.Bounds(p.Bound)
			return in.PrimSet(upper)
		}
	}
	return 0
}
