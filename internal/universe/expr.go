package universe

import (
	"strings"

	"tessel/internal/diag"
	"tessel/internal/hir"
	"tessel/internal/source"
	"tessel/internal/types"
)

// exprBuilder turns ExprSpec trees into builder expressions of one unit.
type exprBuilder struct {
	u      *Universe
	locals []Local
	slots  map[string]uint32
	sp     source.Span
}

func (eb *exprBuilder) bad(format string, args ...any) *diag.Error {
	return diag.Syntaxf(diag.SynBadUniverseEntry, eb.sp, format, args...)
}

// kinds lists the kind fields set on s.
func kinds(s *ExprSpec) []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(s.Int != nil, "int")
	add(s.Float != nil, "float")
	add(s.Str != nil, "str")
	add(s.Bool != nil, "bool")
	add(s.Null, "null")
	add(s.Enum != "", "enum")
	add(s.Local != "", "local")
	add(s.Field != "" || s.Index != nil, "field/index")
	add(s.Op != "", "op")
	add(s.Cast != "", "cast")
	add(s.Assign != nil, "assign")
	add(s.Call != "", "call")
	add(s.New != "", "new")
	add(s.ClassOf != nil, "classof")
	return out
}

func (eb *exprBuilder) expr(s *ExprSpec) (*hir.Expr, error) {
	if s == nil {
		return nil, eb.bad("missing expression")
	}
	ks := kinds(s)
	if len(ks) != 1 {
		if len(ks) == 0 {
			return nil, eb.bad("expression has no kind")
		}
		return nil, eb.bad("expression mixes %s", strings.Join(ks, ", "))
	}
	b := eb.u.In.Builtins()
	switch {
	case s.Int != nil:
		p, err := eb.literalKind(s.Type, types.PrimInt)
		if err != nil {
			return nil, err
		}
		if p.IsFloat() {
			return hir.Lit(b.Prim(p), hir.FloatValue(p, float64(*s.Int)), eb.sp), nil
		}
		if !p.IsInteger() || !hir.FitsInt(p, *s.Int) {
			return nil, diag.Mismatchf(diag.SemaLiteralConversion, eb.sp, "literal %d does not fit %s", *s.Int, p)
		}
		return hir.Lit(b.Prim(p), hir.IntValue(p, *s.Int), eb.sp), nil
	case s.Float != nil:
		p, err := eb.literalKind(s.Type, types.PrimDouble)
		if err != nil {
			return nil, err
		}
		if !p.IsFloat() {
			return nil, diag.Mismatchf(diag.SemaLiteralConversion, eb.sp, "float literal cannot have kind %s", p)
		}
		return hir.Lit(b.Prim(p), hir.FloatValue(p, *s.Float), eb.sp), nil
	case s.Str != nil:
		return hir.Lit(b.Prim(types.PrimString), hir.StringValue(*s.Str), eb.sp), nil
	case s.Bool != nil:
		return hir.Lit(b.Prim(types.PrimBool), hir.BoolValue(*s.Bool), eb.sp), nil
	case s.Null:
		return hir.Null(b.Null, eb.sp), nil
	case s.Enum != "":
		return eb.enumLit(s.Enum)
	case s.Local != "":
		slot, ok := eb.slots[s.Local]
		if !ok {
			return nil, diag.Syntaxf(diag.SynUnknownMember, eb.sp, "unknown local %s", s.Local)
		}
		return hir.Local(s.Local, slot, eb.locals[slot].Type, eb.sp), nil
	case s.Field != "" || s.Index != nil:
		return eb.access(s)
	case s.Op != "":
		op, ok := hir.ParseBinaryOp(s.Op)
		if !ok {
			return nil, eb.bad("unknown operator %q", s.Op)
		}
		l, err := eb.expr(s.Left)
		if err != nil {
			return nil, err
		}
		r, err := eb.expr(s.Right)
		if err != nil {
			return nil, err
		}
		return hir.Binary(op, l, r, eb.sp), nil
	case s.Cast != "":
		target, err := eb.u.Types.Parse(s.Cast, nil, eb.sp)
		if err != nil {
			return nil, err
		}
		v, err := eb.expr(s.Value)
		if err != nil {
			return nil, err
		}
		return hir.Cast(v, target, s.Force, eb.sp), nil
	case s.Assign != nil:
		target, err := eb.expr(s.Assign)
		if err != nil {
			return nil, err
		}
		v, err := eb.expr(s.Value)
		if err != nil {
			return nil, err
		}
		return hir.Assign(target, v, eb.sp), nil
	case s.Call != "":
		return eb.call(s)
	case s.New != "":
		class, err := eb.u.Types.Parse(s.New, nil, eb.sp)
		if err != nil {
			return nil, err
		}
		args, err := eb.list(s.Args)
		if err != nil {
			return nil, err
		}
		return hir.New(class, args, eb.sp), nil
	default:
		v, err := eb.expr(s.ClassOf)
		if err != nil {
			return nil, err
		}
		return hir.ClassOf(v, eb.sp), nil
	}
}

func (eb *exprBuilder) literalKind(name string, def types.Prim) (types.Prim, error) {
	if name == "" {
		return def, nil
	}
	p, ok := types.ParsePrim(name)
	if !ok {
		return types.PrimInvalid, eb.bad("unknown literal kind %q", name)
	}
	return p, nil
}

// enumLit resolves "Enum.Value".
func (eb *exprBuilder) enumLit(ref string) (*hir.Expr, error) {
	name, value, ok := strings.Cut(ref, ".")
	if !ok {
		return nil, eb.bad("enum literal %q is not of the form Enum.Value", ref)
	}
	d, ok := eb.u.In.DeclByName(name)
	if !ok || d.Kind != types.DeclEnum {
		return nil, diag.Syntaxf(diag.SynBadTypeReference, eb.sp, "%s is not an enum", name)
	}
	ev, ok := d.EnumByName(value)
	if !ok {
		return nil, diag.Resolvef(diag.SemaUnknownEnumValue, eb.sp, "enum %s has no value %s", name, value)
	}
	return hir.Lit(d.Self, hir.IntValue(d.EnumBase, ev.Value), eb.sp), nil
}

func (eb *exprBuilder) access(s *ExprSpec) (*hir.Expr, error) {
	if s.Field != "" && s.Index != nil {
		return nil, eb.bad("expression mixes field and index")
	}
	obj, err := eb.expr(s.Object)
	if err != nil {
		return nil, err
	}
	if s.Field != "" {
		return hir.Field(obj, s.Field, eb.sp), nil
	}
	idx, err := eb.expr(s.Index)
	if err != nil {
		return nil, err
	}
	return hir.Element(obj, idx, eb.sp), nil
}

// call builds a free function call over the named overload set, or a
// member call whose candidates are collected from the receiver.
func (eb *exprBuilder) call(s *ExprSpec) (*hir.Expr, error) {
	var recv *hir.Expr
	var candidates []types.DeclID
	if s.Receiver != nil {
		r, err := eb.expr(s.Receiver)
		if err != nil {
			return nil, err
		}
		recv = r
	} else {
		candidates = eb.u.Funcs[s.Call]
	}
	args, err := eb.list(s.Args)
	if err != nil {
		return nil, err
	}
	return hir.Call(s.Call, recv, candidates, args, eb.sp), nil
}

func (eb *exprBuilder) list(specs []ExprSpec) ([]*hir.Expr, error) {
	out := make([]*hir.Expr, len(specs))
	for i := range specs {
		e, err := eb.expr(&specs[i])
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}
