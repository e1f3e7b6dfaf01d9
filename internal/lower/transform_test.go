package lower

import (
	"testing"

	"tessel/internal/diag"
	"tessel/internal/hir"
	"tessel/internal/mono"
	"tessel/internal/source"
	"tessel/internal/types"
)

func TestTransformIsIdempotent(t *testing.T) {
	f := newFixture()
	e := hir.Binary(hir.OpAdd, f.local("a", 0, f.prim(types.PrimInt)), f.local("b", 1, f.prim(types.PrimLong)), source.Span{})
	once := f.transform(t, e)
	if once.Kind != hir.ExprArith || once.Type != f.prim(types.PrimLong) {
		t.Fatalf("expected long arithmetic, got %s : %s", once.Kind, f.in.Name(once.Type))
	}
	twice := f.transform(t, once)
	if twice != once {
		t.Fatalf("transforming a resolved tree must return it unchanged")
	}
}

func TestAssignmentStrategyIsChosenOnce(t *testing.T) {
	f := newFixture()
	p := f.local("p", 0, f.point.Self)
	arr := f.local("xs", 1, f.in.Array(f.prim(types.PrimLong)))
	n := f.local("n", 2, f.prim(types.PrimLong))

	local := f.transform(t, hir.Assign(n, f.intLit(4), source.Span{}))
	if local.Kind != hir.ExprAssignLocal {
		t.Fatalf("local destination: got %s", local.Kind)
	}
	v := local.Data.(hir.AssignLocalData).Value
	if val, ok := hir.IsLiteral(v); !ok || val.Prim != types.PrimLong {
		t.Fatalf("assigned literal should be folded to long, got %s", hir.String(f.in, v))
	}

	field := f.transform(t, hir.Assign(hir.Field(p, "y", source.Span{}), f.intLit(3), source.Span{}))
	fd, ok := field.Data.(hir.AssignFieldData)
	if field.Kind != hir.ExprAssignField || !ok || fd.Field.Slot != 1 || fd.Owner != f.point.ID {
		t.Fatalf("field destination: got %s", hir.String(f.in, field))
	}

	elem := f.transform(t, hir.Assign(hir.Element(arr, f.intLit(0), source.Span{}), f.intLit(9), source.Span{}))
	ed, ok := elem.Data.(hir.AssignElementData)
	if elem.Kind != hir.ExprAssignElement || !ok || ed.Container != types.ContainerArray {
		t.Fatalf("element destination: got %s", hir.String(f.in, elem))
	}

	_, err := f.tr.Transform(hir.Assign(f.intLit(1), f.intLit(2), source.Span{}))
	if !diag.HasCode(err, diag.SynNotAssignable) || !diag.IsKind(err, diag.KindSyntax) {
		t.Fatalf("assigning to a literal should be a syntax error, got %v", err)
	}
}

func TestMapElementAccess(t *testing.T) {
	f := newFixture()
	tpl := f.in.Decl(f.b.Map)
	inst, err := f.mono.Instantiate(tpl, mono.ArgsFor(f.in, tpl, f.prim(types.PrimString), f.prim(types.PrimInt)), source.Span{})
	if err != nil {
		t.Fatalf("instantiate map: %v", err)
	}
	m := f.local("m", 0, inst.Self)
	got := f.transform(t, hir.Element(m, f.strLit("k"), source.Span{}))
	d := got.Data.(hir.ElementLoadData)
	if got.Kind != hir.ExprElementLoad || d.Container != types.ContainerMap || got.Type != f.prim(types.PrimInt) {
		t.Fatalf("unexpected map access %s", hir.String(f.in, got))
	}
	_, err = f.tr.Transform(hir.Element(m, f.local("p", 1, f.point.Self), source.Span{}))
	if !diag.IsKind(err, diag.KindTypeMismatch) {
		t.Fatalf("a Point key should not convert to string, got %v", err)
	}
	_, err = f.tr.Transform(hir.Element(f.intLit(1), f.intLit(0), source.Span{}))
	if !diag.HasCode(err, diag.SynNotIndexable) {
		t.Fatalf("indexing an int should fail, got %v", err)
	}
}

func TestVoidValueIsRejected(t *testing.T) {
	f := newFixture()
	call := hir.Call("log", nil, []types.DeclID{f.logf.ID}, nil, source.Span{})
	_, err := f.tr.Transform(hir.Binary(hir.OpAdd, call, f.intLit(1), source.Span{}))
	if !diag.HasCode(err, diag.SynVoidValue) {
		t.Fatalf("expected void-value error, got %v", err)
	}
}

func TestClassOf(t *testing.T) {
	f := newFixture()
	got := f.transform(t, hir.ClassOf(f.local("d", 0, f.dog.Self), source.Span{}))
	if got.Kind != hir.ExprClassRef || got.Type != f.in.Interval(f.b.Null, f.dog.Self) {
		t.Fatalf("class of a Dog should be [null to Dog], got %s", f.in.Name(got.Type))
	}
	_, err := f.tr.Transform(hir.ClassOf(f.intLit(1), source.Span{}))
	if !diag.HasCode(err, diag.SynNotClassValue) {
		t.Fatalf("class of a primitive should be a syntax error, got %v", err)
	}
}

func TestCallsResolveToInvocations(t *testing.T) {
	f := newFixture()
	p := f.local("p", 0, f.point.Self)
	m := f.transform(t, hir.Call("norm", p, nil, nil, source.Span{}))
	md := m.Data.(hir.InvokeData)
	if m.Kind != hir.ExprInvoke || !md.Virtual || md.Func != f.norm.ID || m.Type != f.prim(types.PrimInt) {
		t.Fatalf("method call: got %s", hir.String(f.in, m))
	}

	v := f.transform(t, hir.Call("log", nil, []types.DeclID{f.logf.ID},
		[]*hir.Expr{f.strLit("a"), f.strLit("b")}, source.Span{}))
	vd := v.Data.(hir.InvokeData)
	if len(vd.Args) != 1 || vd.Args[0].Kind != hir.ExprArrayLit {
		t.Fatalf("variadic arguments should fold into an array literal, got %s", hir.String(f.in, v))
	}
	elems := vd.Args[0].Data.(hir.ArrayLitData).Elems
	if len(elems) != 2 {
		t.Fatalf("expected 2 folded elements, got %d", len(elems))
	}
	if vd.Args[0].Type != f.in.Array(f.prim(types.PrimString)) {
		t.Fatalf("folded array should be string[], got %s", f.in.Name(vd.Args[0].Type))
	}

	_, err := f.tr.Transform(hir.Call("missing", p, nil, nil, source.Span{}))
	if !diag.HasCode(err, diag.SynNotCallable) {
		t.Fatalf("unknown method should fail, got %v", err)
	}
}

func TestConstructResolvesConstructor(t *testing.T) {
	f := newFixture()
	got := f.transform(t, hir.New(f.point.Self, []*hir.Expr{f.intLit(1), f.intLit(2)}, source.Span{}))
	d := got.Data.(hir.ConstructData)
	if d.Ctor != f.ctor.ID || len(d.Args) != 2 {
		t.Fatalf("unexpected construction %s", hir.String(f.in, got))
	}
	for _, a := range d.Args {
		if a.Type != f.prim(types.PrimLong) {
			t.Fatalf("constructor arguments should be widened to long, got %s", f.in.Name(a.Type))
		}
	}
	if f.point.Stage != types.StageSlots {
		t.Fatalf("constructing should advance Point to slots, got %s", f.point.Stage)
	}
	_, err := f.tr.Transform(hir.New(f.point.Self, []*hir.Expr{f.strLit("x")}, source.Span{}))
	if !diag.HasCode(err, diag.SemaNoOverload) {
		t.Fatalf("bad constructor arguments should fail, got %v", err)
	}
}

func TestFreezeRejectsBuilderNodes(t *testing.T) {
	f := newFixture()
	mustPanic(t, "freeze", func() {
		Freeze(hir.Binary(hir.OpAdd, f.intLit(1), f.intLit(2), source.Span{}))
	})
}

func TestFreezeKeepsParentSideTable(t *testing.T) {
	f := newFixture()
	e := f.transform(t, hir.Binary(hir.OpMul, f.local("a", 0, f.prim(types.PrimInt)), f.local("b", 1, f.prim(types.PrimInt)), source.Span{}))
	tree := Freeze(e)
	if tree.Len() != 3 {
		t.Fatalf("expected 3 nodes, got %d", tree.Len())
	}
	root := tree.Node(tree.Root())
	for _, k := range root.Kids {
		if p, ok := tree.Parent(k); !ok || p != tree.Root() {
			t.Fatalf("kid %d should point back to the root", k)
		}
	}
	if _, ok := tree.Parent(tree.Root()); ok {
		t.Fatalf("the root has no parent")
	}
}
