package lower

import (
	"testing"

	"tessel/internal/hir"
	"tessel/internal/mono"
	"tessel/internal/source"
	"tessel/internal/types"
)

type fixture struct {
	in   *types.Interner
	b    types.Builtins
	mono *mono.Engine
	tr   *Transformer

	animal, dog *types.Decl
	point       *types.Decl
	ctor, norm  *types.Decl
	logf        *types.Decl
}

func newFixture() *fixture {
	in := types.NewInterner()
	b := in.Builtins()
	m := mono.New(in, nil)
	intT := b.Prim(types.PrimInt)

	animal := in.NewDecl(types.DeclClass, "Animal", source.Span{})
	dog := in.NewDecl(types.DeclClass, "Dog", source.Span{})
	dog.Parent = animal.Self

	point := in.NewDecl(types.DeclClass, "Point", source.Span{})
	point.Fields = []types.Field{{Name: "x", Type: intT}, {Name: "y", Type: intT}}
	ctor := in.NewDecl(types.DeclFunc, "Point", source.Span{})
	ctor.Sig = types.Signature{
		Params: []types.Param{{Name: "x", Type: b.Prim(types.PrimLong)}, {Name: "y", Type: b.Prim(types.PrimLong)}},
		Result: b.Void, Owner: point.ID, Ctor: true,
	}
	point.Ctors = []types.DeclID{ctor.ID}
	norm := in.NewDecl(types.DeclFunc, "norm", source.Span{})
	norm.Sig = types.Signature{Result: intT, Owner: point.ID}
	point.Methods = []types.DeclID{norm.ID}

	logf := in.NewDecl(types.DeclFunc, "log", source.Span{})
	logf.Sig = types.Signature{
		Params: []types.Param{{Name: "parts", Type: b.Prim(types.PrimString), Variadic: true}},
		Result: b.Void,
	}

	return &fixture{
		in: in, b: b, mono: m, tr: NewTransformer(m, nil),
		animal: animal, dog: dog, point: point, ctor: ctor, norm: norm, logf: logf,
	}
}

func (f *fixture) prim(p types.Prim) types.TypeID { return f.b.Prim(p) }

func (f *fixture) local(name string, slot uint32, ty types.TypeID) *hir.Expr {
	return hir.Local(name, slot, ty, source.Span{})
}

func (f *fixture) intLit(v int64) *hir.Expr {
	return hir.Lit(f.prim(types.PrimInt), hir.IntValue(types.PrimInt, v), source.Span{})
}

func (f *fixture) strLit(s string) *hir.Expr {
	return hir.Lit(f.prim(types.PrimString), hir.StringValue(s), source.Span{})
}

func (f *fixture) transform(t *testing.T, e *hir.Expr) *hir.Expr {
	t.Helper()
	out, err := f.tr.Transform(e)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	return out
}

// lowerValue transforms, freezes and lowers e into a fresh temporary.
func (f *fixture) lowerValue(t *testing.T, e *hir.Expr, locals uint32) (*Program, *Regs) {
	t.Helper()
	tree := Freeze(f.transform(t, e))
	regs := NewRegs(locals)
	rec := NewRecorder()
	low := NewLowerer(f.in, tree, regs, rec, nil)
	err := regs.WithTemp(func(dst Reg) error {
		rec.Program().Result = dst
		return low.Value(tree.Root(), dst)
	})
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	rec.Program().Frame = regs.Frame()
	return rec.Program(), regs
}

func ops(p *Program) []Op {
	out := make([]Op, len(p.Instrs))
	for i, ins := range p.Instrs {
		out[i] = ins.Op
	}
	return out
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s: expected a panic", name)
		}
	}()
	fn()
}
