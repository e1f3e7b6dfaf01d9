package coerce

import (
	"tessel/internal/diag"
	"tessel/internal/hir"
	"tessel/internal/types"
)

// boxPlain boxes a primitive-typed x into its own wrapper class.
func (e *Engine) boxPlain(x *hir.Expr, p types.Prim) *hir.Expr {
	w := e.b.Wrapper(p)
	return box(x, hir.BoxPlain, p, e.in.DeclOf(w).ID, types.NoDeclID, w)
}

func castPrimBoxer(e *Engine, r castReq) (*hir.Expr, error) {
	q, _ := e.in.BoxedPrim(r.to)
	x, err := e.CastTo(r.x, r.from, e.b.Prim(q), r.force)
	if err != nil {
		return nil, e.mismatch(r)
	}
	w := e.b.Wrapper(q)
	if r.to == w {
		return e.boxPlain(x, q), nil
	}
	d := e.in.DeclOf(r.to)
	if d == nil {
		// a boxer avatar; box into the wrapper and let the caller check the bound
		if !r.force {
			return nil, e.mismatch(r)
		}
		return forceCast(e.boxPlain(x, q), r.to), nil
	}
	for _, c := range d.Ctors {
		if cd := e.in.Decl(c); cd != nil && len(cd.Sig.Params) == 0 {
			return box(x, hir.BoxPlain, q, d.ID, c, r.to), nil
		}
	}
	return nil, diag.Resolvef(diag.SemaBoxNoCtor, r.x.Span,
		"cannot box %s into %s: %s has no parameterless constructor", e.in.Name(r.from), d.Name, d.Name)
}

func castPrimObject(e *Engine, r castReq) (*hir.Expr, error) {
	p, _ := e.in.PrimOf(r.from)
	w := e.b.Wrapper(p)
	boxed := e.boxPlain(r.x, p)
	if e.in.IsSubtype(w, r.to) {
		return wearMask(boxed, r.to), nil
	}
	if r.force && e.in.IsAvatar(r.to) {
		return forceCast(boxed, r.to), nil
	}
	return nil, e.mismatch(r)
}

func castBoxForce(e *Engine, r castReq) (*hir.Expr, error) {
	p, _ := e.in.PrimOf(r.from)
	switch r.to {
	case e.b.Any, e.b.Object:
		return box(r.x, hir.BoxForce, p, e.b.ObjectDecl, types.NoDeclID, r.to), nil
	}
	// avatars whose bound is Any or object
	if !r.force {
		return nil, e.mismatch(r)
	}
	return forceCast(box(r.x, hir.BoxForce, p, e.b.ObjectDecl, types.NoDeclID, e.b.Object), r.to), nil
}

func castUnboxFirst(e *Engine, r castReq) (*hir.Expr, error) {
	q, ok := e.in.BoxedPrim(r.from)
	if !ok {
		return nil, e.mismatch(r)
	}
	prim := e.b.Prim(q)
	out, err := e.CastTo(unbox(r.x, q, prim), prim, r.to, r.force)
	if err != nil {
		return nil, e.mismatch(r)
	}
	return out, nil
}

func castRefRef(e *Engine, r castReq) (*hir.Expr, error) {
	if e.in.IsSubtype(r.from, r.to) {
		return wearMask(r.x, r.to), nil
	}
	pf, fromBoxed := e.in.BoxedPrim(r.from)
	_, toBoxed := e.in.BoxedPrim(r.to)
	if fromBoxed && toBoxed {
		prim := e.b.Prim(pf)
		if out, err := e.CastTo(unbox(r.x, pf, prim), prim, r.to, r.force); err == nil {
			return out, nil
		}
	}
	if r.force && e.downcastable(r.from, r.to) {
		return forceCast(r.x, r.to), nil
	}
	return nil, e.mismatch(r)
}

// downcastable reports whether a forced cast from -> to can succeed for
// some run-time value.
func (e *Engine) downcastable(from, to types.TypeID) bool {
	switch {
	case from == e.b.Any || e.in.IsAvatar(from) || e.in.IsAvatar(to):
		return true
	case e.in.IsSubtype(to, from):
		return true
	}
	return e.involvesInterface(from, to)
}

// involvesInterface reports whether either side is an interface type, where
// a forced cast can only be checked at run time.
func (e *Engine) involvesInterface(a, b types.TypeID) bool {
	for _, id := range []types.TypeID{a, b} {
		if d := e.in.DeclOf(id); d != nil && d.Kind == types.DeclInterface {
			return true
		}
	}
	return false
}

func castToAny(e *Engine, r castReq) (*hir.Expr, error) {
	if r.to == e.b.Any {
		return forceCast(r.x, r.to), nil
	}
	if !r.force {
		return nil, e.mismatch(r)
	}
	return forceCast(r.x, r.to), nil
}

func castRefToPrim(e *Engine, r castReq) (*hir.Expr, error) {
	if !r.force || r.from == e.b.Null {
		return nil, e.mismatch(r)
	}
	q, ok := e.in.PrimOf(r.to)
	if !ok {
		d := e.in.DeclOf(r.to)
		if d == nil || d.Kind != types.DeclEnum {
			return nil, e.mismatch(r)
		}
		q = d.EnumBase
	}
	w := e.b.Wrapper(q)
	if !e.in.IsSubtype(w, r.from) && !e.in.IsSubtype(r.from, w) && !e.in.IsAvatar(r.from) && r.from != e.b.Any {
		return nil, e.mismatch(r)
	}
	prim := e.b.Prim(q)
	x := unbox(forceCast(r.x, w), q, prim)
	if prim == r.to {
		return x, nil
	}
	return e.CastTo(x, prim, r.to, true)
}
