package coerce

import (
	"tessel/internal/diag"
	"tessel/internal/hir"
	"tessel/internal/types"
)

// Unified is the outcome of finding a common operand type.
type Unified struct {
	Left    *hir.Expr
	Right   *hir.Expr
	Result  types.TypeID
	Changed bool
}

// UnifyTypes coerces both operands of a binary operator to a common type.
func (e *Engine) UnifyTypes(left, right *hir.Expr) (Unified, error) {
	u, err := e.unify(left, right)
	if err != nil {
		return Unified{}, err
	}
	u.Changed = u.Left != left || u.Right != right
	return u, nil
}

func (e *Engine) unify(l, r *hir.Expr) (Unified, error) {
	lt, rt := l.Type, r.Type
	cl := e.in.MustClassify(lt)
	cr := e.in.MustClassify(rt)
	if unboxable(cl) && unboxable(cr) {
		return e.unify(e.unboxOperand(l, cl), e.unboxOperand(r, cr))
	}
	if lt == rt {
		return Unified{Left: l, Right: r, Result: lt}, nil
	}
	fail := func() (Unified, error) {
		return Unified{}, diag.Mismatchf(diag.SemaTypeMismatch, l.Span.Cover(r.Span),
			"cannot unify %s with %s", e.in.Name(lt), e.in.Name(rt))
	}

	switch {
	case cl == types.CatPrimitiveInterface || cr == types.CatPrimitiveInterface:
		return fail()
	case cr == types.CatAny && cl.PrimitiveKind():
		return fail()
	case cl == types.CatAny || cr == types.CatAny:
		return e.unifyIntoAny(l, r, cl, fail)
	case unboxable(cl) && primFamily(cr):
		return e.unify(e.unboxOperand(l, cl), r)
	case unboxable(cr) && primFamily(cl):
		return e.unify(l, e.unboxOperand(r, cr))
	case cl == types.CatPrimitive && cr == types.CatPrimitive:
		return e.unifyPrims(l, r, fail)
	case cl == types.CatPrimitiveGeneric || cr == types.CatPrimitiveGeneric:
		return fail()
	case cl.PrimitiveKind() && cr.ObjectKind():
		return e.castSide(l, r, rt, true, fail)
	case cr.PrimitiveKind() && cl.ObjectKind():
		return e.castSide(l, r, lt, false, fail)
	case e.in.IsSubtype(lt, rt):
		return e.castSide(l, r, rt, true, fail)
	case e.in.IsSubtype(rt, lt):
		return e.castSide(l, r, lt, false, fail)
	}
	return fail()
}

func unboxable(c types.Category) bool {
	return c == types.CatPrimitiveBoxer || c == types.CatEnum
}

func primFamily(c types.Category) bool {
	return c == types.CatPrimitive || c == types.CatPrimitiveBoxer || c == types.CatEnum || c == types.CatPrimitiveGeneric
}

func (e *Engine) unboxOperand(x *hir.Expr, c types.Category) *hir.Expr {
	if c == types.CatEnum {
		out, _ := e.enumBase(x, x.Type)
		return out
	}
	q, _ := e.in.BoxedPrim(x.Type)
	return e.fold(unbox(x, q, e.b.Prim(q)))
}

// castSide implicitly converts one operand into target, the other operand's
// type. castLeft selects which side moves.
func (e *Engine) castSide(l, r *hir.Expr, target types.TypeID, castLeft bool, fail func() (Unified, error)) (Unified, error) {
	if castLeft {
		x, err := e.CastTo(l, l.Type, target, false)
		if err != nil {
			return fail()
		}
		return Unified{Left: x, Right: r, Result: target}, nil
	}
	x, err := e.CastTo(r, r.Type, target, false)
	if err != nil {
		return fail()
	}
	return Unified{Left: l, Right: x, Result: target}, nil
}

func (e *Engine) unifyIntoAny(l, r *hir.Expr, cl types.Category, fail func() (Unified, error)) (Unified, error) {
	anySide := l.Type
	if cl != types.CatAny {
		anySide = r.Type
	}
	if anySide != e.b.Any {
		// a free generic parameter only unifies with itself
		return fail()
	}
	x, err := e.CastTo(l, l.Type, e.b.Any, false)
	if err != nil {
		return fail()
	}
	y, err := e.CastTo(r, r.Type, e.b.Any, false)
	if err != nil {
		return fail()
	}
	return Unified{Left: x, Right: y, Result: e.b.Any}, nil
}

func (e *Engine) unifyPrims(l, r *hir.Expr, fail func() (Unified, error)) (Unified, error) {
	p, _ := e.in.PrimOf(l.Type)
	q, _ := e.in.PrimOf(r.Type)
	res, ok := Promote(p, q)
	if !ok {
		return fail()
	}
	target := e.b.Prim(res)
	x, err := e.CastTo(l, l.Type, target, false)
	if err != nil {
		return fail()
	}
	y, err := e.CastTo(r, r.Type, target, false)
	if err != nil {
		return fail()
	}
	return Unified{Left: x, Right: y, Result: target}, nil
}

// Promote returns the common kind of two primitive operands. A string on
// either side makes the result a string. A float meeting int or long
// promotes to double since float cannot represent either exactly.
func Promote(p, q types.Prim) (types.Prim, bool) {
	switch {
	case p == q:
		return p, true
	case p == types.PrimString || q == types.PrimString:
		return types.PrimString, true
	case p == types.PrimBool || q == types.PrimBool:
		return types.PrimInvalid, false
	case p == types.PrimDouble || q == types.PrimDouble:
		return types.PrimDouble, true
	case p == types.PrimFloat || q == types.PrimFloat:
		other := p
		if p == types.PrimFloat {
			other = q
		}
		if other == types.PrimInt || other == types.PrimLong {
			return types.PrimDouble, true
		}
		return types.PrimFloat, true
	case p.Rank() > q.Rank():
		return p, true
	}
	return q, true
}
