package coerce

import (
	"strings"
	"testing"

	"tessel/internal/diag"
	"tessel/internal/hir"
	"tessel/internal/source"
	"tessel/internal/types"
)

type fixture struct {
	in  *types.Interner
	eng *Engine
	b   types.Builtins

	animal, dog *types.Decl
	color       *types.Decl
}

func newFixture() *fixture {
	in := types.NewInterner()
	b := in.Builtins()
	animal := in.NewDecl(types.DeclClass, "Animal", source.Span{})
	dog := in.NewDecl(types.DeclClass, "Dog", source.Span{})
	dog.Parent = animal.Self
	color := in.NewDecl(types.DeclEnum, "Color", source.Span{})
	color.EnumBase = types.PrimInt
	color.EnumValues = []types.EnumValue{{Name: "Red", Value: 0}, {Name: "Green", Value: 1}}
	return &fixture{in: in, eng: New(in), b: b, animal: animal, dog: dog, color: color}
}

func (f *fixture) prim(p types.Prim) types.TypeID { return f.b.Prim(p) }

func (f *fixture) local(name string, ty types.TypeID) *hir.Expr {
	return hir.Local(name, 0, ty, source.Span{})
}

func (f *fixture) lit(v hir.Value) *hir.Expr {
	return hir.Lit(f.prim(v.Prim), v, source.Span{})
}

func sampleValue(p types.Prim) hir.Value {
	switch {
	case p == types.PrimString:
		return hir.StringValue("héllo")
	case p == types.PrimBool:
		return hir.BoolValue(true)
	case p.IsFloat():
		return hir.FloatValue(p, 1.5)
	}
	return hir.IntValue(p, 7)
}

func TestUnifyIntLong(t *testing.T) {
	f := newFixture()
	l := f.local("a", f.prim(types.PrimInt))
	r := f.local("b", f.prim(types.PrimLong))
	u, err := f.eng.UnifyTypes(l, r)
	if err != nil {
		t.Fatalf("unify: %v", err)
	}
	if u.Result != f.prim(types.PrimLong) {
		t.Fatalf("expected long, got %s", f.in.Name(u.Result))
	}
	if u.Left.Kind != hir.ExprNumCast {
		t.Fatalf("left operand should be widened, got %s", u.Left.Kind)
	}
	if conv := u.Left.Data.(hir.ConvData); conv.From != types.PrimInt || conv.To != types.PrimLong {
		t.Fatalf("unexpected widening %s -> %s", conv.From, conv.To)
	}
	if u.Right != r {
		t.Fatalf("right operand must stay unchanged")
	}
	if !u.Changed {
		t.Fatalf("expected Changed")
	}
}

func TestUnifyFloatLongIsDouble(t *testing.T) {
	f := newFixture()
	u, err := f.eng.UnifyTypes(f.local("a", f.prim(types.PrimFloat)), f.local("b", f.prim(types.PrimLong)))
	if err != nil {
		t.Fatalf("unify: %v", err)
	}
	if u.Result != f.prim(types.PrimDouble) {
		t.Fatalf("expected double, got %s", f.in.Name(u.Result))
	}
	if u.Left.Kind != hir.ExprNumCast || u.Right.Kind != hir.ExprNumCast {
		t.Fatalf("both operands should be converted: %s, %s", u.Left.Kind, u.Right.Kind)
	}
}

func TestUnifyIsCommutativeOnPrimitives(t *testing.T) {
	f := newFixture()
	for _, a := range types.AllPrims {
		for _, b := range types.AllPrims {
			ab, errAB := f.eng.UnifyTypes(f.local("a", f.prim(a)), f.local("b", f.prim(b)))
			ba, errBA := f.eng.UnifyTypes(f.local("b", f.prim(b)), f.local("a", f.prim(a)))
			if (errAB == nil) != (errBA == nil) {
				t.Fatalf("%s/%s: asymmetric failure %v vs %v", a, b, errAB, errBA)
			}
			if errAB == nil && ab.Result != ba.Result {
				t.Fatalf("%s/%s: %s vs %s", a, b, f.in.Name(ab.Result), f.in.Name(ba.Result))
			}
		}
	}
}

func TestUnifyBoolWithNumberFails(t *testing.T) {
	f := newFixture()
	_, err := f.eng.UnifyTypes(f.local("a", f.prim(types.PrimBool)), f.local("b", f.prim(types.PrimInt)))
	if !diag.IsKind(err, diag.KindTypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
}

func TestCastStringLiteralFoldsToInt(t *testing.T) {
	f := newFixture()
	src := f.lit(hir.StringValue("42"))
	out, err := f.eng.CastTo(src, src.Type, f.prim(types.PrimInt), true)
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	v, ok := hir.IsLiteral(out)
	if !ok || v.Prim != types.PrimInt || v.Int != 42 {
		t.Fatalf("expected folded int 42, got %s", hir.String(f.in, out))
	}
	if _, err := f.eng.CastTo(src, src.Type, f.prim(types.PrimInt), false); !diag.IsKind(err, diag.KindTypeMismatch) {
		t.Fatalf("implicit string to int must fail, got %v", err)
	}
	bad := f.lit(hir.StringValue("4x2"))
	if _, err := f.eng.CastTo(bad, bad.Type, f.prim(types.PrimInt), true); !diag.HasCode(err, diag.SemaLiteralConversion) {
		t.Fatalf("expected literal conversion error, got %v", err)
	}
}

func TestCastSameKindLiteralIsIdentity(t *testing.T) {
	f := newFixture()
	for _, p := range types.AllPrims {
		x := f.lit(sampleValue(p))
		out, err := f.eng.CastTo(x, x.Type, x.Type, false)
		if err != nil || out != x {
			t.Fatalf("%s: cast to itself must return the node unchanged", p)
		}
	}
}

func TestBoxUnboxRoundTrip(t *testing.T) {
	f := newFixture()
	for _, p := range types.AllPrims {
		v := sampleValue(p)
		x := f.lit(v)
		boxed, err := f.eng.CastTo(x, x.Type, f.b.Wrapper(p), false)
		if err != nil {
			t.Fatalf("%s: box: %v", p, err)
		}
		if boxed.Kind != hir.ExprBox {
			t.Fatalf("%s: expected Box, got %s", p, boxed.Kind)
		}
		back, err := f.eng.CastTo(boxed, boxed.Type, x.Type, false)
		if err != nil {
			t.Fatalf("%s: unbox: %v", p, err)
		}
		got, ok := hir.IsLiteral(back)
		if !ok || !got.Equal(v) || back.Type != x.Type {
			t.Fatalf("%s: round trip produced %s", p, hir.String(f.in, back))
		}
	}
}

func TestConcatEmptyLiteralReturnsOtherSide(t *testing.T) {
	f := newFixture()
	s := f.lit(hir.StringValue("abc"))
	empty := f.lit(hir.StringValue(""))
	for _, order := range [][2]*hir.Expr{{s, empty}, {empty, s}} {
		out, err := f.eng.Binary(hir.OpAdd, order[0], order[1], source.Span{})
		if err != nil {
			t.Fatalf("concat: %v", err)
		}
		if out != s {
			t.Fatalf("expected the non-empty operand, got %s", hir.String(f.in, out))
		}
	}
	loc := f.local("s", f.prim(types.PrimString))
	out, err := f.eng.Binary(hir.OpAdd, empty, loc, source.Span{})
	if err != nil || out != loc {
		t.Fatalf("empty literal must be elided next to a non-constant operand")
	}
}

func TestConcatStringifiesAndFolds(t *testing.T) {
	f := newFixture()
	out, err := f.eng.Binary(hir.OpAdd, f.lit(hir.StringValue("n=")), f.lit(hir.IntValue(types.PrimInt, 5)), source.Span{})
	if err != nil {
		t.Fatalf("concat: %v", err)
	}
	if v, ok := hir.IsLiteral(out); !ok || v.Str != "n=5" {
		t.Fatalf("expected folded \"n=5\", got %s", hir.String(f.in, out))
	}
	// combining sequences are composed
	out, err = f.eng.Binary(hir.OpAdd, f.lit(hir.StringValue("e")), f.lit(hir.StringValue("\u0301")), source.Span{})
	if err != nil {
		t.Fatalf("concat: %v", err)
	}
	if v, _ := hir.IsLiteral(out); v.Str != "\u00e9" {
		t.Fatalf("expected NFC result, got %q", v.Str)
	}
	mixed, err := f.eng.Binary(hir.OpAdd, f.local("a", f.animal.Self), f.lit(hir.StringValue("!")), source.Span{})
	if err != nil {
		t.Fatalf("concat with object: %v", err)
	}
	parts := mixed.Data.(hir.ConcatData).Parts
	if len(parts) != 2 || parts[0].Kind != hir.ExprToString {
		t.Fatalf("object operand should be stringified: %s", hir.String(f.in, mixed))
	}
}

func TestLiteralNarrowing(t *testing.T) {
	f := newFixture()
	byteT := f.prim(types.PrimByte)
	ok := f.lit(hir.IntValue(types.PrimInt, 100))
	out, err := f.eng.CastTo(ok, ok.Type, byteT, false)
	if err != nil {
		t.Fatalf("fitting literal must narrow: %v", err)
	}
	if v, _ := hir.IsLiteral(out); v.Prim != types.PrimByte || v.Int != 100 {
		t.Fatalf("unexpected result %s", hir.String(f.in, out))
	}
	big := f.lit(hir.IntValue(types.PrimInt, 300))
	if _, err := f.eng.CastTo(big, big.Type, byteT, false); !diag.HasCode(err, diag.SemaNarrowingCast) {
		t.Fatalf("expected narrowing error, got %v", err)
	}
	out, err = f.eng.CastTo(big, big.Type, byteT, true)
	if err != nil {
		t.Fatalf("forced narrowing: %v", err)
	}
	if v, _ := hir.IsLiteral(out); v.Int != 44 {
		t.Fatalf("forced narrowing wraps, got %d", v.Int)
	}
	loc := f.local("i", f.prim(types.PrimInt))
	if _, err := f.eng.CastTo(loc, loc.Type, byteT, false); err == nil {
		t.Fatalf("non-constant narrowing needs force")
	}
}

func TestPrimitiveInterfaceIsRejected(t *testing.T) {
	f := newFixture()
	x := f.local("i", f.prim(types.PrimInt))
	for _, force := range []bool{false, true} {
		if _, err := f.eng.CastTo(x, x.Type, f.b.Numeric, force); !diag.HasCode(err, diag.SemaPrimitiveInterface) {
			t.Fatalf("force=%v: expected primitive interface rejection, got %v", force, err)
		}
	}
}

func TestObjectCasts(t *testing.T) {
	f := newFixture()
	d := f.local("d", f.dog.Self)
	up, err := f.eng.CastTo(d, d.Type, f.animal.Self, false)
	if err != nil || up.Kind != hir.ExprWearMask {
		t.Fatalf("upcast should wear a mask: %v", err)
	}
	a := f.local("a", f.animal.Self)
	if _, err := f.eng.CastTo(a, a.Type, f.dog.Self, false); !diag.IsKind(err, diag.KindTypeMismatch) {
		t.Fatalf("implicit downcast must fail, got %v", err)
	}
	down, err := f.eng.CastTo(a, a.Type, f.dog.Self, true)
	if err != nil || down.Kind != hir.ExprForceCast {
		t.Fatalf("forced downcast: %v", err)
	}
	n := hir.Null(f.b.Null, source.Span{})
	if out, err := f.eng.CastTo(n, n.Type, f.dog.Self, false); err != nil || out.Type != f.dog.Self {
		t.Fatalf("null converts to any class: %v", err)
	}
	if _, err := f.eng.CastTo(n, n.Type, f.prim(types.PrimInt), true); err == nil {
		t.Fatalf("null never unboxes")
	}
}

func TestImplicitCastSuggestsForce(t *testing.T) {
	f := newFixture()
	a := f.local("a", f.animal.Self)
	_, err := f.eng.Cast(a, f.dog.Self, false)
	de, ok := diag.AsError(err)
	if !ok || len(de.Fixes) != 1 || de.Fixes[0].Title != "force the cast to Dog" {
		t.Fatalf("expected a forced-cast suggestion, got %v", err)
	}
	if d := de.Diagnostic(); len(d.Fixes) != 1 {
		t.Fatalf("fix must survive conversion to a diagnostic")
	}
	s := f.local("s", f.prim(types.PrimBool))
	_, err = f.eng.Cast(s, f.dog.Self, false)
	if de, ok := diag.AsError(err); !ok || len(de.Fixes) != 0 {
		t.Fatalf("impossible casts get no suggestion, got %v", err)
	}
}

func TestBoxIntoWrapperSubclass(t *testing.T) {
	f := newFixture()
	counter := f.in.NewDecl(types.DeclClass, "Counter", source.Span{})
	counter.Parent = f.b.Wrapper(types.PrimInt)
	x := f.lit(hir.IntValue(types.PrimInt, 1))
	if _, err := f.eng.CastTo(x, x.Type, counter.Self, false); !diag.HasCode(err, diag.SemaBoxNoCtor) {
		t.Fatalf("expected missing constructor error, got %v", err)
	}
	ctor := f.in.NewDecl(types.DeclFunc, "Counter", source.Span{})
	ctor.Sig = types.Signature{Owner: counter.ID, Ctor: true, Result: f.b.Void}
	counter.Ctors = append(counter.Ctors, ctor.ID)
	out, err := f.eng.CastTo(x, x.Type, counter.Self, false)
	if err != nil {
		t.Fatalf("box: %v", err)
	}
	bd := out.Data.(hir.BoxData)
	if bd.Mode != hir.BoxPlain || bd.Ctor != ctor.ID || bd.Class != counter.ID {
		t.Fatalf("unexpected box payload %+v", bd)
	}
}

func TestEnumBox(t *testing.T) {
	f := newFixture()
	one := f.lit(hir.IntValue(types.PrimInt, 1))
	out, err := f.eng.CastTo(one, one.Type, f.color.Self, false)
	if err != nil {
		t.Fatalf("enum literal: %v", err)
	}
	if out.Type != f.color.Self || out.Kind != hir.ExprLiteral {
		t.Fatalf("expected enum literal, got %s", hir.String(f.in, out))
	}
	seven := f.lit(hir.IntValue(types.PrimInt, 7))
	if _, err := f.eng.CastTo(seven, seven.Type, f.color.Self, true); !diag.HasCode(err, diag.SemaUnknownEnumValue) {
		t.Fatalf("expected unknown enum value, got %v", err)
	}
	loc := f.local("i", f.prim(types.PrimInt))
	if _, err := f.eng.CastTo(loc, loc.Type, f.color.Self, false); err == nil {
		t.Fatalf("non-constant enum conversion needs force")
	}
	forced, err := f.eng.CastTo(loc, loc.Type, f.color.Self, true)
	if err != nil || forced.Data.(hir.BoxData).Mode != hir.BoxEnum {
		t.Fatalf("forced enum box: %v", err)
	}
	s, err := f.eng.Stringify(out)
	if err != nil {
		t.Fatalf("stringify: %v", err)
	}
	if v, _ := hir.IsLiteral(s); v.Str != "Green" {
		t.Fatalf("enum constant should stringify to its name, got %s", hir.String(f.in, s))
	}
}

func TestAnyAbsorbs(t *testing.T) {
	f := newFixture()
	x := f.local("i", f.prim(types.PrimInt))
	out, err := f.eng.CastTo(x, x.Type, f.b.Any, false)
	if err != nil || out.Data.(hir.BoxData).Mode != hir.BoxForce {
		t.Fatalf("primitive into any force-boxes: %v", err)
	}
	a := f.local("a", f.b.Any)
	u, err := f.eng.UnifyTypes(a, x)
	if err != nil || u.Result != f.b.Any {
		t.Fatalf("any absorbs the right operand: %v", err)
	}
	if _, err := f.eng.UnifyTypes(x, a); err == nil {
		t.Fatalf("primitive left operand cannot unify into any")
	}
	if _, err := f.eng.CastTo(a, a.Type, f.dog.Self, false); err == nil {
		t.Fatalf("any never converts out implicitly")
	}
}

func TestUnifyPrimitiveWithObjectBoxes(t *testing.T) {
	f := newFixture()
	x := f.local("i", f.prim(types.PrimInt))
	n := f.local("n", f.b.Number)
	u, err := f.eng.UnifyTypes(x, n)
	if err != nil {
		t.Fatalf("unify: %v", err)
	}
	if u.Result != f.b.Number || u.Left.Kind != hir.ExprWearMask || u.Right != n {
		t.Fatalf("primitive should be boxed into Number: %s", hir.String(f.in, u.Left))
	}
	if _, err := f.eng.UnifyTypes(x, f.local("a", f.animal.Self)); err == nil {
		t.Fatalf("int does not box into Animal")
	}
	u, err = f.eng.UnifyTypes(f.local("d", f.dog.Self), f.local("a", f.animal.Self))
	if err != nil || u.Result != f.animal.Self || u.Left.Kind != hir.ExprWearMask {
		t.Fatalf("subtype operand is raised to the supertype: %v", err)
	}
}

func TestBinaryFolding(t *testing.T) {
	f := newFixture()
	two := f.lit(hir.IntValue(types.PrimInt, 2))
	three := f.lit(hir.IntValue(types.PrimInt, 3))
	sum, err := f.eng.Binary(hir.OpAdd, two, three, source.Span{})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if v, ok := hir.IsLiteral(sum); !ok || v.Int != 5 {
		t.Fatalf("expected 5, got %s", hir.String(f.in, sum))
	}
	lt, err := f.eng.Binary(hir.OpLt, two, f.lit(hir.FloatValue(types.PrimDouble, 2.5)), source.Span{})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if v, ok := hir.IsLiteral(lt); !ok || !v.Bool() {
		t.Fatalf("expected true, got %s", hir.String(f.in, lt))
	}
	div, err := f.eng.Binary(hir.OpDiv, two, f.lit(hir.IntValue(types.PrimInt, 0)), source.Span{})
	if err != nil || div.Kind != hir.ExprArith {
		t.Fatalf("division by zero is left to run time: %v", err)
	}
	eq, err := f.eng.Binary(hir.OpEq, f.lit(hir.StringValue("a")), f.lit(hir.StringValue("a")), source.Span{})
	if err != nil {
		t.Fatalf("equal: %v", err)
	}
	if v, _ := hir.IsLiteral(eq); !v.Bool() {
		t.Fatalf("expected equal strings")
	}
	if _, err := f.eng.Binary(hir.OpMul, f.lit(hir.BoolValue(true)), f.lit(hir.BoolValue(false)), source.Span{}); !diag.HasCode(err, diag.SemaInvalidOperands) {
		t.Fatalf("bool arithmetic must be rejected, got %v", err)
	}
}

func TestBoxedOperandsUnboxBeforeOperators(t *testing.T) {
	f := newFixture()
	boxed := f.b.Wrapper(types.PrimInt)
	sum, err := f.eng.Binary(hir.OpAdd, f.local("a", boxed), f.local("b", boxed), source.Span{})
	if err != nil {
		t.Fatalf("Int + Int: %v", err)
	}
	if sum.Kind != hir.ExprArith || sum.Type != f.prim(types.PrimInt) {
		t.Fatalf("expected int arithmetic, got %s", hir.String(f.in, sum))
	}
	data := sum.Data.(hir.BinaryData)
	if data.Left.Kind != hir.ExprUnbox || data.Right.Kind != hir.ExprUnbox {
		t.Fatalf("both operands must be unboxed, got %s", hir.String(f.in, sum))
	}

	c := f.color.Self
	lt, err := f.eng.Binary(hir.OpLt, f.local("x", c), f.local("y", c), source.Span{})
	if err != nil {
		t.Fatalf("Color < Color: %v", err)
	}
	if lt.Kind != hir.ExprCompareOp || lt.Data.(hir.BinaryData).Operand != f.prim(types.PrimInt) {
		t.Fatalf("enum operands must compare on their base, got %s", hir.String(f.in, lt))
	}
}

func TestMismatchNamesKindOnce(t *testing.T) {
	f := newFixture()
	_, err := f.eng.UnifyTypes(f.local("a", f.prim(types.PrimBool)), f.local("b", f.prim(types.PrimInt)))
	if err == nil {
		t.Fatalf("bool and int must not unify")
	}
	if n := strings.Count(err.Error(), "type mismatch"); n != 1 {
		t.Fatalf("kind repeated %d times in %q", n, err.Error())
	}
}

func TestPrimitiveGenericForceBoxes(t *testing.T) {
	f := newFixture()
	g := f.in.NewDecl(types.DeclClass, "G", source.Span{})
	n := f.in.AddParam(g, "N", f.in.Interval(f.b.Any, f.b.Numeric), types.Invariant)
	x := f.local("n", n)

	out, err := f.eng.CastTo(x, n, f.b.Object, false)
	if err != nil {
		t.Fatalf("N -> object: %v", err)
	}
	d, ok := out.Data.(hir.BoxData)
	if out.Kind != hir.ExprBox || !ok || d.Mode != hir.BoxForce || d.Ctor != types.NoDeclID {
		t.Fatalf("expected a force box, got %s", hir.String(f.in, out))
	}
	if _, err := f.eng.CastTo(x, n, f.animal.Self, false); err == nil {
		t.Fatalf("N -> Animal needs an explicit cast")
	}
	if _, err := f.eng.CastTo(x, n, f.animal.Self, true); err != nil {
		t.Fatalf("forced N -> Animal: %v", err)
	}
}
