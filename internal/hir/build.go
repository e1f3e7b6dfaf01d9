package hir

import (
	"tessel/internal/source"
	"tessel/internal/types"
)

// Lit builds a literal of type ty.
func Lit(ty types.TypeID, v Value, sp source.Span) *Expr {
	return &Expr{Kind: ExprLiteral, Type: ty, Span: sp, Data: LiteralData{Value: v}}
}

// Null builds the null literal.
func Null(ty types.TypeID, sp source.Span) *Expr {
	return &Expr{Kind: ExprNull, Type: ty, Span: sp, Data: NullData{}}
}

// Local references local slot of type ty.
func Local(name string, slot uint32, ty types.TypeID, sp source.Span) *Expr {
	return &Expr{Kind: ExprLocal, Type: ty, Span: sp, Data: LocalData{Name: name, Slot: slot}}
}

// Field builds a member read by name.
func Field(obj *Expr, name string, sp source.Span) *Expr {
	return &Expr{Kind: ExprField, Span: sp, Data: FieldData{Object: obj, Name: name}}
}

// Element builds an indexed read.
func Element(obj, index *Expr, sp source.Span) *Expr {
	return &Expr{Kind: ExprElement, Span: sp, Data: ElementData{Object: obj, Index: index}}
}

// Binary builds an unresolved binary operation.
func Binary(op BinaryOp, l, r *Expr, sp source.Span) *Expr {
	return &Expr{Kind: ExprBinary, Span: sp, Data: BinaryData{Op: op, Left: l, Right: r}}
}

// Cast builds a conversion request; force marks user-written casts.
func Cast(v *Expr, target types.TypeID, force bool, sp source.Span) *Expr {
	return &Expr{Kind: ExprCast, Type: target, Span: sp, Data: CastData{Value: v, Target: target, Force: force}}
}

// Assign builds an unresolved assignment.
func Assign(target, value *Expr, sp source.Span) *Expr {
	return &Expr{Kind: ExprAssign, Span: sp, Data: AssignData{Target: target, Value: value}}
}

// Call builds an unresolved call.
func Call(name string, recv *Expr, candidates []types.DeclID, args []*Expr, sp source.Span) *Expr {
	return &Expr{Kind: ExprCall, Span: sp, Data: CallData{Name: name, Receiver: recv, Candidates: candidates, Args: args}}
}

// New builds an unresolved construction.
func New(class types.TypeID, args []*Expr, sp source.Span) *Expr {
	return &Expr{Kind: ExprNew, Type: class, Span: sp, Data: NewData{Class: class, Args: args}}
}

// ClassOf builds a class-reference request.
func ClassOf(v *Expr, sp source.Span) *Expr {
	return &Expr{Kind: ExprClassOf, Span: sp, Data: ClassOfData{Value: v}}
}
