// Package coerce decides how values move between types: the implicit and
// forced casts between any two categories, the common operand type of
// binary operators, and compile-time folding of constant operands.
package coerce

import (
	"fmt"

	"tessel/internal/diag"
	"tessel/internal/hir"
	"tessel/internal/source"
	"tessel/internal/types"
)

// Engine resolves coercions against one interner.
type Engine struct {
	in *types.Interner
	b  types.Builtins
}

// New creates an engine for the given type universe.
func New(in *types.Interner) *Engine {
	return &Engine{in: in, b: in.Builtins()}
}

type castReq struct {
	x     *hir.Expr
	from  types.TypeID
	to    types.TypeID
	force bool
}

type castFn func(e *Engine, r castReq) (*hir.Expr, error)

var castTable [types.CatObject + 1][types.CatObject + 1]castFn

func init() {
	P, PG, PI, E := types.CatPrimitive, types.CatPrimitiveGeneric, types.CatPrimitiveInterface, types.CatEnum
	B, A, T, O := types.CatPrimitiveBoxer, types.CatAny, types.CatTopObject, types.CatObject
	for _, c := range types.Categories {
		castTable[PI][c] = rejectPrimInterface
		castTable[c][PI] = rejectPrimInterface
	}

	castTable[P][P] = castPrimPrim
	castTable[P][PG] = castIntoGeneric
	castTable[P][E] = castPrimEnum
	castTable[P][B] = castPrimBoxer
	castTable[P][A] = castBoxForce
	castTable[P][T] = castBoxForce
	castTable[P][O] = castPrimObject

	castTable[PG][P] = castGenericPrim
	castTable[PG][PG] = castIntoGeneric
	castTable[PG][E] = castMismatch
	castTable[PG][B] = castGenericObject
	castTable[PG][A] = castGenericObject
	castTable[PG][T] = castGenericObject
	castTable[PG][O] = castGenericObject

	for _, c := range []types.Category{P, PG, B, A, T, O} {
		castTable[E][c] = castViaEnumBase
	}
	castTable[E][E] = castEnumEnum

	castTable[B][P] = castUnboxFirst
	castTable[B][PG] = castUnboxFirst
	castTable[B][E] = castUnboxFirst
	castTable[B][B] = castRefRef
	castTable[B][A] = castToAny
	castTable[B][T] = castRefRef
	castTable[B][O] = castRefRef

	for _, from := range []types.Category{A, T, O} {
		castTable[from][P] = castRefToPrim
		castTable[from][E] = castRefToPrim
		castTable[from][PG] = castForceOnly
		castTable[from][B] = castRefRef
		castTable[from][T] = castRefRef
		castTable[from][O] = castRefRef
		castTable[from][A] = castToAny
	}
}

// CastTo returns x converted from type from into type to. Implicit
// conversions (force=false) never narrow objects; force additionally
// permits downcasts and lossy primitive conversions. Literal sources are
// folded whenever the conversion is computable at compile time.
func (e *Engine) CastTo(x *hir.Expr, from, to types.TypeID, force bool) (*hir.Expr, error) {
	if from == to {
		return x, nil
	}
	cf := e.in.MustClassify(from)
	ct := e.in.MustClassify(to)
	fn := castTable[cf][ct]
	if fn == nil {
		panic(fmt.Errorf("coerce: no cast rule for %s -> %s", cf, ct))
	}
	out, err := fn(e, castReq{x: x, from: from, to: to, force: force})
	if err != nil {
		return nil, err
	}
	return e.fold(out), nil
}

// Cast converts x from its static type. A rejected implicit conversion
// that a forced cast would accept carries that suggestion as a fix.
func (e *Engine) Cast(x *hir.Expr, to types.TypeID, force bool) (*hir.Expr, error) {
	out, err := e.CastTo(x, x.Type, to, force)
	if err == nil || force {
		return out, err
	}
	if de, ok := diag.AsError(err); ok && de.Kind == diag.KindTypeMismatch {
		if _, ferr := e.CastTo(x, x.Type, to, true); ferr == nil {
			de.WithFix(fmt.Sprintf("force the cast to %s", e.in.Name(to)))
		}
	}
	return nil, err
}

func (e *Engine) mismatch(r castReq) *diag.Error {
	return diag.Mismatch(spanOf(r.x), e.in.Name(r.from), e.in.Name(r.to))
}

func spanOf(x *hir.Expr) source.Span {
	if x == nil {
		return source.Span{}
	}
	return x.Span
}

func castMismatch(e *Engine, r castReq) (*hir.Expr, error) {
	return nil, e.mismatch(r)
}

func rejectPrimInterface(e *Engine, r castReq) (*hir.Expr, error) {
	return nil, diag.Mismatchf(diag.SemaPrimitiveInterface, spanOf(r.x),
		"cannot convert %s to %s: primitive interfaces are not storage types",
		e.in.Name(r.from), e.in.Name(r.to))
}

func castForceOnly(e *Engine, r castReq) (*hir.Expr, error) {
	if !r.force {
		return nil, e.mismatch(r)
	}
	return forceCast(r.x, r.to), nil
}

// node constructors for resolved coercions

func forceCast(x *hir.Expr, to types.TypeID) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprForceCast, Type: to, Span: x.Span, Data: hir.MaskData{Value: x}}
}

func wearMask(x *hir.Expr, to types.TypeID) *hir.Expr {
	if x.Type == to {
		return x
	}
	return &hir.Expr{Kind: hir.ExprWearMask, Type: to, Span: x.Span, Data: hir.MaskData{Value: x}}
}

func numCast(x *hir.Expr, from, to types.Prim, ty types.TypeID) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprNumCast, Type: ty, Span: x.Span, Data: hir.ConvData{Value: x, From: from, To: to}}
}

func toString(x *hir.Expr, from types.Prim, ty types.TypeID) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprToString, Type: ty, Span: x.Span, Data: hir.ConvData{Value: x, From: from, To: types.PrimString}}
}

func unbox(x *hir.Expr, p types.Prim, ty types.TypeID) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprUnbox, Type: ty, Span: x.Span, Data: hir.UnboxData{Value: x, Prim: p}}
}

func box(x *hir.Expr, mode hir.BoxMode, p types.Prim, class, ctor types.DeclID, ty types.TypeID) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprBox, Type: ty, Span: x.Span, Data: hir.BoxData{Value: x, Mode: mode, Prim: p, Class: class, Ctor: ctor}}
}
