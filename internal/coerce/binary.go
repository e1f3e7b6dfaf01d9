package coerce

import (
	"tessel/internal/diag"
	"tessel/internal/hir"
	"tessel/internal/source"
	"tessel/internal/types"
)

// Binary resolves l op r into an arithmetic, comparison, equality or
// concatenation node, folding constant operands.
func (e *Engine) Binary(op hir.BinaryOp, l, r *hir.Expr, sp source.Span) (*hir.Expr, error) {
	strT := e.b.Prim(types.PrimString)
	if op == hir.OpAdd && (l.Type == strT || r.Type == strT) {
		ls, err := e.Stringify(l)
		if err != nil {
			return nil, err
		}
		rs, err := e.Stringify(r)
		if err != nil {
			return nil, err
		}
		return e.Concat([]*hir.Expr{ls, rs}, sp), nil
	}

	u, err := e.UnifyTypes(l, r)
	if err != nil {
		return nil, err
	}
	boolT := e.b.Prim(types.PrimBool)
	p, isPrim := e.in.PrimOf(u.Result)
	invalid := func() (*hir.Expr, error) {
		return nil, diag.Mismatchf(diag.SemaInvalidOperands, sp,
			"operator %s is not defined on %s", op, e.in.Name(u.Result))
	}
	data := hir.BinaryData{Op: op, Left: u.Left, Right: u.Right, Operand: u.Result}
	lv, lok := hir.IsLiteral(u.Left)
	rv, rok := hir.IsLiteral(u.Right)

	switch {
	case op.IsArith():
		if !isPrim || !p.IsNumeric() {
			return invalid()
		}
		if lok && rok {
			if v, ok := FoldArith(op, lv, rv); ok {
				return hir.Lit(u.Result, v, sp), nil
			}
		}
		return &hir.Expr{Kind: hir.ExprArith, Type: u.Result, Span: sp, Data: data}, nil
	case op.IsOrdering():
		if !isPrim || (!p.IsNumeric() && p != types.PrimString) {
			return invalid()
		}
		if lok && rok {
			if v, ok := FoldCompare(op, lv, rv); ok {
				return hir.Lit(boolT, v, sp), nil
			}
		}
		return &hir.Expr{Kind: hir.ExprCompareOp, Type: boolT, Span: sp, Data: data}, nil
	case op.IsEquality():
		if lok && rok {
			if v, ok := FoldEqual(op, lv, rv); ok {
				return hir.Lit(boolT, v, sp), nil
			}
		}
		if u.Left.Kind == hir.ExprNull && u.Right.Kind == hir.ExprNull {
			return hir.Lit(boolT, hir.BoolValue(op == hir.OpEq), sp), nil
		}
		return &hir.Expr{Kind: hir.ExprEqual, Type: boolT, Span: sp, Data: data}, nil
	}
	return invalid()
}

// Stringify converts x to a string the way concatenation does: primitives
// through their text form, enums and references through their run-time
// string conversion.
func (e *Engine) Stringify(x *hir.Expr) (*hir.Expr, error) {
	strT := e.b.Prim(types.PrimString)
	if x.Type == strT {
		return x, nil
	}
	switch c := e.in.MustClassify(x.Type); c {
	case types.CatPrimitive:
		return e.CastTo(x, x.Type, strT, false)
	case types.CatPrimitiveBoxer:
		return e.Stringify(e.unboxOperand(x, c))
	case types.CatPrimitiveInterface:
		return nil, diag.Mismatch(x.Span, e.in.Name(x.Type), "string")
	case types.CatEnum:
		var base types.Prim
		if d := e.in.DeclOf(x.Type); d != nil {
			base = d.EnumBase
			if lit, ok := hir.IsLiteral(x); ok {
				if ev, found := d.EnumLookup(lit.Int); found {
					return hir.Lit(strT, hir.StringValue(ev.Name), x.Span), nil
				}
			}
		}
		return toString(x, base, strT), nil
	}
	return toString(x, types.PrimInvalid, strT), nil
}
