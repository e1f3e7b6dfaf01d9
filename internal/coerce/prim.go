package coerce

import (
	"math"
	"strconv"
	"strings"

	"tessel/internal/diag"
	"tessel/internal/hir"
	"tessel/internal/types"
)

// Widens reports whether p converts to q implicitly without a cast:
// integers widen by rank, every integer widens into the float kinds and
// float widens into double.
func Widens(p, q types.Prim) bool {
	switch {
	case p == q:
		return true
	case p.IsInteger() && q.IsInteger():
		return p.Rank() < q.Rank()
	case p.IsInteger() && q.IsFloat():
		return true
	case p == types.PrimFloat && q == types.PrimDouble:
		return true
	}
	return false
}

func castPrimPrim(e *Engine, r castReq) (*hir.Expr, error) {
	p, _ := e.in.PrimOf(r.from)
	q, _ := e.in.PrimOf(r.to)
	lit, isLit := hir.IsLiteral(r.x)
	switch {
	case q == types.PrimString:
		return toString(r.x, p, r.to), nil
	case p == types.PrimString:
		if !r.force {
			return nil, e.mismatch(r)
		}
		if isLit {
			v, ok := parseLiteral(lit.Str, q)
			if !ok {
				return nil, diag.Mismatchf(diag.SemaLiteralConversion, r.x.Span,
					"literal %s cannot be converted to %s", lit, q)
			}
			return hir.Lit(r.to, v, r.x.Span), nil
		}
		return numCast(r.x, p, q, r.to), nil
	case p == types.PrimBool || q == types.PrimBool:
		return nil, e.mismatch(r)
	case Widens(p, q):
		return numCast(r.x, p, q, r.to), nil
	case r.force:
		return numCast(r.x, p, q, r.to), nil
	case isLit && literalFits(lit, q):
		return numCast(r.x, p, q, r.to), nil
	}
	return nil, diag.Mismatchf(diag.SemaNarrowingCast, r.x.Span,
		"cannot convert %s to %s without an explicit cast", e.in.Name(r.from), e.in.Name(r.to))
}

// literalFits reports whether a constant survives narrowing into q unchanged.
func literalFits(v hir.Value, q types.Prim) bool {
	switch {
	case v.Prim.IsInteger() && q.IsInteger():
		return hir.FitsInt(q, v.Int)
	case v.Prim == types.PrimDouble && q == types.PrimFloat:
		return float64(float32(v.Float)) == v.Float
	}
	return false
}

func parseLiteral(s string, q types.Prim) (hir.Value, bool) {
	s = strings.TrimSpace(s)
	switch {
	case q == types.PrimBool:
		b, err := strconv.ParseBool(s)
		return hir.BoolValue(b), err == nil
	case q == types.PrimChar:
		rs := []rune(s)
		if len(rs) != 1 || rs[0] > math.MaxUint16 {
			return hir.Value{}, false
		}
		return hir.IntValue(q, int64(rs[0])), true
	case q.IsInteger():
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || !hir.FitsInt(q, n) {
			return hir.Value{}, false
		}
		return hir.IntValue(q, n), true
	case q.IsFloat():
		bits := 64
		if q == types.PrimFloat {
			bits = 32
		}
		f, err := strconv.ParseFloat(s, bits)
		return hir.FloatValue(q, f), err == nil
	}
	return hir.Value{}, false
}

// convertValue computes a primitive conversion of a constant.
func convertValue(v hir.Value, q types.Prim) (hir.Value, bool) {
	p := v.Prim
	switch {
	case p == q:
		return v, true
	case q == types.PrimString:
		return hir.StringValue(v.Text()), true
	case p == types.PrimString:
		return parseLiteral(v.Str, q)
	case p == types.PrimBool || q == types.PrimBool:
		return hir.Value{}, false
	case q.IsInteger() && p.IsInteger():
		return hir.IntValue(q, v.Int), true
	case q.IsInteger():
		if math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
			return hir.Value{}, false
		}
		return hir.IntValue(q, int64(v.Float)), true
	case q.IsFloat():
		return hir.FloatValue(q, v.AsFloat()), true
	}
	return hir.Value{}, false
}

func castIntoGeneric(e *Engine, r castReq) (*hir.Expr, error) {
	if !r.force {
		return nil, e.mismatch(r)
	}
	if p, ok := e.in.PrimOf(r.from); ok {
		set := e.in.PrimSet(r.to)
		if set&p.Mask() == 0 && !anyWidens(set, p) {
			return nil, e.mismatch(r)
		}
	}
	return forceCast(r.x, r.to), nil
}

// anyWidens reports whether some member of set is reachable from p.
func anyWidens(set uint32, p types.Prim) bool {
	for _, q := range types.AllPrims {
		if set&q.Mask() != 0 && (Widens(p, q) || Widens(q, p)) {
			return true
		}
	}
	return false
}

func castGenericPrim(e *Engine, r castReq) (*hir.Expr, error) {
	q, _ := e.in.PrimOf(r.to)
	set := e.in.PrimSet(r.from)
	all := set != 0
	for _, p := range types.AllPrims {
		if set&p.Mask() != 0 && !Widens(p, q) && q != types.PrimString {
			all = false
		}
	}
	if !all && !r.force {
		return nil, e.mismatch(r)
	}
	return forceCast(r.x, r.to), nil
}

func castGenericObject(e *Engine, r castReq) (*hir.Expr, error) {
	boxed := box(r.x, hir.BoxForce, types.PrimInvalid, e.b.ObjectDecl, types.NoDeclID, e.b.Object)
	if r.to == e.b.Object {
		return boxed, nil
	}
	if r.to == e.b.Any {
		return forceCast(boxed, r.to), nil
	}
	if !r.force {
		return nil, e.mismatch(r)
	}
	return forceCast(boxed, r.to), nil
}

func castPrimEnum(e *Engine, r castReq) (*hir.Expr, error) {
	d := e.in.DeclOf(r.to)
	base := e.b.Prim(d.EnumBase)
	x, err := e.CastTo(r.x, r.from, base, r.force)
	if err != nil {
		return nil, e.mismatch(r)
	}
	if lit, ok := hir.IsLiteral(x); ok {
		if _, found := d.EnumLookup(lit.Int); !found {
			return nil, diag.Resolvef(diag.SemaUnknownEnumValue, r.x.Span,
				"value %s is not a member of enum %s", lit, d.Name)
		}
		return hir.Lit(r.to, lit, r.x.Span), nil
	}
	if !r.force {
		return nil, e.mismatch(r)
	}
	return box(x, hir.BoxEnum, d.EnumBase, d.ID, types.NoDeclID, r.to), nil
}

// enumBase retypes an enum value as its base primitive.
func (e *Engine) enumBase(x *hir.Expr, enum types.TypeID) (*hir.Expr, types.TypeID) {
	d := e.in.DeclOf(enum)
	base := e.b.Prim(d.EnumBase)
	if lit, ok := hir.IsLiteral(x); ok {
		return hir.Lit(base, lit, x.Span), base
	}
	return wearMask(x, base), base
}

func castViaEnumBase(e *Engine, r castReq) (*hir.Expr, error) {
	x, base := e.enumBase(r.x, r.from)
	out, err := e.CastTo(x, base, r.to, r.force)
	if err != nil {
		return nil, e.mismatch(r)
	}
	return out, nil
}

func castEnumEnum(e *Engine, r castReq) (*hir.Expr, error) {
	if !r.force {
		return nil, e.mismatch(r)
	}
	x, base := e.enumBase(r.x, r.from)
	return e.CastTo(x, base, r.to, true)
}
