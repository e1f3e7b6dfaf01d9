package mono

import (
	"testing"

	"tessel/internal/diag"
	"tessel/internal/source"
	"tessel/internal/types"
)

type world struct {
	in               *types.Interner
	eng              *Engine
	animal, dog, cat *types.Decl
	rock             *types.Decl
}

func newWorld() *world {
	in := types.NewInterner()
	class := func(name string, parent types.TypeID) *types.Decl {
		d := in.NewDecl(types.DeclClass, name, source.Span{})
		d.Parent = parent
		d.Stage = types.StageSlots
		return d
	}
	w := &world{in: in, eng: New(in, nil)}
	w.animal = class("Animal", types.NoTypeID)
	w.dog = class("Dog", w.animal.Self)
	w.cat = class("Cat", w.animal.Self)
	w.rock = class("Rock", types.NoTypeID)
	return w
}

// template declares a class template with one parameter bounded by bound.
func (w *world) template(name string, bound types.TypeID, v types.Variance) (*types.Decl, types.TypeID) {
	d := w.in.NewDecl(types.DeclClass, name, source.Span{})
	t := w.in.AddParam(d, "T", bound, v)
	d.Stage = types.StageSlots
	return d, t
}

func (w *world) inst(t *testing.T, tpl *types.Decl, tys ...types.TypeID) *types.Decl {
	t.Helper()
	d, err := w.eng.Instantiate(tpl, ArgsFor(w.in, tpl, tys...), source.Span{})
	if err != nil {
		t.Fatalf("instantiate %s: %v", tpl.Name, err)
	}
	return d
}

func TestInstantiateIsMemoized(t *testing.T) {
	w := newWorld()
	g, _ := w.template("G", types.NoTypeID, types.Invariant)
	a := w.inst(t, g, w.dog.Self)
	b := w.inst(t, g, w.dog.Self)
	if a != b {
		t.Fatalf("equal arguments must yield the same instantiation")
	}
	c := w.inst(t, g, w.cat.Self)
	if c == a {
		t.Fatalf("different arguments must yield a different instantiation")
	}
	if a.Name != "G<Dog>" || a.Template != g.ID || a.Stage != types.StageSlots {
		t.Fatalf("unexpected instantiation %s template=%d stage=%s", a.Name, a.Template, a.Stage)
	}
	if got := w.eng.Registry(g).Len(); got != 2 {
		t.Fatalf("registry should hold 2 instantiations, got %d", got)
	}
}

func TestIdentityArgumentsReturnTemplate(t *testing.T) {
	w := newWorld()
	g, tv := w.template("G", types.NoTypeID, types.Invariant)
	if d := w.inst(t, g, tv); d != g {
		t.Fatalf("own avatars must map to the template itself")
	}
}

func TestArgumentValidation(t *testing.T) {
	w := newWorld()
	b := w.in.Builtins()
	pen, _ := w.template("Pen", w.in.Interval(b.Null, w.animal.Self), types.Invariant)
	cases := []struct {
		name string
		args Args
		code diag.Code
	}{
		{"bound", ArgsFor(w.in, pen, w.rock.Self), diag.SemaBoundViolation},
		{"wildcard", ArgsFor(w.in, pen, b.Wildcard), diag.SemaWildcardArgument},
		{"missing", Args{}, diag.SemaArgCount},
	}
	for _, tc := range cases {
		if _, err := w.eng.Instantiate(pen, tc.args, source.Span{}); !diag.HasCode(err, tc.code) {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.code, err)
		}
	}
	if _, err := w.eng.Instantiate(w.dog, ArgsFor(w.in, pen, w.dog.Self), source.Span{}); !diag.HasCode(err, diag.SemaNotGeneric) {
		t.Fatalf("non-generic declaration: %v", err)
	}
	if w.eng.Registry(pen).Len() != 0 {
		t.Fatalf("failed instantiations must not be cached")
	}
}

func TestSubstitutionAndSlots(t *testing.T) {
	w := newWorld()
	base, bt := w.template("Base", types.NoTypeID, types.Invariant)
	base.Fields = []types.Field{{Name: "id", Type: w.in.Builtins().Prim(types.PrimInt)}, {Name: "first", Type: bt}}
	base.SlotCount = 2

	holder := w.in.NewDecl(types.DeclClass, "Holder", source.Span{})
	ht := w.in.AddParam(holder, "T", types.NoTypeID, types.Invariant)
	baseOfT, err := w.eng.Instantiate(base, ArgsFor(w.in, base, ht), source.Span{})
	if err != nil {
		t.Fatalf("Base<T>: %v", err)
	}
	if !baseOfT.Intermediate || baseOfT.Stage > types.StageHierarchy {
		t.Fatalf("Base<T> must be an intermediate instantiation")
	}
	holder.Parent = baseOfT.Self
	holder.Fields = []types.Field{{Name: "items", Type: w.in.Array(ht)}}
	get := w.in.NewDecl(types.DeclFunc, "get", source.Span{})
	get.Sig = types.Signature{Owner: holder.ID, Result: ht}
	holder.Methods = []types.DeclID{get.ID}
	holder.Stage = types.StageSlots

	hd := w.inst(t, holder, w.dog.Self)
	parent := w.in.DeclOf(hd.Parent)
	if parent == nil || parent.Name != "Base<Dog>" || parent.Intermediate {
		t.Fatalf("parent should be the concrete Base<Dog>, got %s", w.in.Name(hd.Parent))
	}
	if f, _ := parent.FieldByName("first"); f.Type != w.dog.Self {
		t.Fatalf("Base<Dog>.first should be Dog, got %s", w.in.Name(f.Type))
	}
	items, _ := hd.FieldByName("items")
	if items.Type != w.in.Array(w.dog.Self) || items.Slot != 2 || hd.SlotCount != 3 {
		t.Fatalf("items: type %s slot %d count %d", w.in.Name(items.Type), items.Slot, hd.SlotCount)
	}
	m := w.in.Decl(hd.Methods[0])
	if m.Sig.Result != w.dog.Self || m.Sig.Owner != hd.ID || m.ID == get.ID {
		t.Fatalf("method must be cloned with a substituted signature")
	}
	if get.Sig.Result != ht {
		t.Fatalf("the template's method must stay untouched")
	}
}

func TestApplyIntermediate(t *testing.T) {
	w := newWorld()
	inner, _ := w.template("Inner", types.NoTypeID, types.Invariant)
	outer := w.in.NewDecl(types.DeclClass, "Outer", source.Span{})
	u := w.in.AddParam(outer, "U", types.NoTypeID, types.Invariant)

	innerOfU := w.inst(t, inner, u)
	if !innerOfU.Intermediate {
		t.Fatalf("Inner<U> must be intermediate")
	}
	for _, g := range w.eng.Generated() {
		if g == innerOfU {
			t.Fatalf("intermediate instantiations are not registered for code generation")
		}
	}
	concrete := ArgsFor(w.in, outer, w.dog.Self)
	applied, err := w.eng.ApplyIntermediate(innerOfU, concrete, source.Span{})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied == innerOfU || applied.Intermediate || applied.Name != "Inner<Dog>" {
		t.Fatalf("expected a fresh concrete Inner<Dog>, got %s", applied.Name)
	}
	if applied != w.inst(t, inner, w.dog.Self) {
		t.Fatalf("re-substitution must reuse the memoized instantiation")
	}
	if innerOfU.Args[0].Type != u {
		t.Fatalf("the intermediate instantiation must not change")
	}
}

func TestTakeFor(t *testing.T) {
	w := newWorld()
	inner, _ := w.template("Inner", types.NoTypeID, types.Invariant)
	outer, _ := w.template("Outer", types.NoTypeID, types.Invariant)
	all := ArgsFor(w.in, inner, w.dog.Self).Merge(ArgsFor(w.in, outer, w.cat.Self))
	if all.Len() != 2 {
		t.Fatalf("merged args should have 2 slots")
	}
	got, ok := all.TakeFor(w.in, inner)
	if !ok || got.Len() != 1 || got.Types()[0] != w.dog.Self {
		t.Fatalf("TakeFor(Inner) = %v %v", got.Types(), ok)
	}
	if _, ok := all.TakeFor(w.in, w.dog); ok {
		t.Fatalf("TakeFor on a declaration without parameters reports nothing")
	}
	a := NewArgs(types.Slot{Owner: 5, Index: 1, Type: 9}, types.Slot{Owner: 5, Index: 0, Type: 8})
	b := NewArgs(types.Slot{Owner: 5, Index: 0, Type: 8}, types.Slot{Owner: 5, Index: 1, Type: 9})
	if !a.Equal(b) {
		t.Fatalf("slot order must not affect the key: %q vs %q", a.Key(), b.Key())
	}
}

func TestCyclicHierarchyIsRejected(t *testing.T) {
	w := newWorld()
	a := w.in.NewDecl(types.DeclClass, "A", source.Span{})
	b := w.in.NewDecl(types.DeclClass, "B", source.Span{})
	a.Parent = b.Self
	b.Parent = a.Self
	err := w.eng.Advance(a, types.StageSlots, source.Span{})
	if !diag.HasCode(err, diag.SemaCyclicDeclaration) {
		t.Fatalf("expected cyclic declaration, got %v", err)
	}
	if a.Stage != types.StageDeclared {
		t.Fatalf("failed stage must not be recorded")
	}
	if err := w.eng.Advance(w.dog, types.StageSlots, source.Span{}); err != nil {
		t.Fatalf("advancing a resolved declaration is a no-op: %v", err)
	}
}

func TestSelfExpandingInstantiationIsRejected(t *testing.T) {
	w := newWorld()
	node := w.in.NewDecl(types.DeclClass, "Node", source.Span{})
	nt := w.in.AddParam(node, "T", types.NoTypeID, types.Invariant)
	list := w.in.Decl(w.in.Builtins().List)
	listOfT := w.inst(t, list, nt)
	nodeOfList := w.inst(t, node, listOfT.Self)
	node.Fields = []types.Field{{Name: "next", Type: nodeOfList.Self}}
	node.Stage = types.StageSlots

	_, err := w.eng.Instantiate(node, ArgsFor(w.in, node, w.in.Builtins().Prim(types.PrimInt)), source.Span{})
	if !diag.HasCode(err, diag.SemaCyclicInstantiation) {
		t.Fatalf("expected cyclic instantiation, got %v", err)
	}
}

func TestRecursiveFieldReusesInstantiation(t *testing.T) {
	w := newWorld()
	node := w.in.NewDecl(types.DeclClass, "Node", source.Span{})
	w.in.AddParam(node, "T", types.NoTypeID, types.Invariant)
	node.Fields = []types.Field{{Name: "next", Type: node.Self}}
	node.Stage = types.StageSlots
	n := w.inst(t, node, w.dog.Self)
	if f, _ := n.FieldByName("next"); f.Type != n.Self {
		t.Fatalf("Node<Dog>.next should be Node<Dog>, got %s", w.in.Name(f.Type))
	}
}

func TestVarianceDecidesStandIn(t *testing.T) {
	w := newWorld()
	src, _ := w.template("Source", types.NoTypeID, types.Covariant)
	cell, _ := w.template("Cell", types.NoTypeID, types.Invariant)
	if !w.eng.CanStandIn(w.inst(t, src, w.dog.Self).Self, w.inst(t, src, w.animal.Self).Self) {
		t.Fatalf("Source<Dog> stands in for Source<Animal>")
	}
	if w.eng.CanStandIn(w.inst(t, cell, w.dog.Self).Self, w.inst(t, cell, w.animal.Self).Self) {
		t.Fatalf("Cell is invariant")
	}
}

func TestListenerSeesConcreteInstantiations(t *testing.T) {
	w := newWorld()
	g, _ := w.template("G", types.NoTypeID, types.Invariant)
	other := w.in.NewDecl(types.DeclClass, "H", source.Span{})
	u := w.in.AddParam(other, "U", types.NoTypeID, types.Invariant)
	var seen []string
	w.eng.OnInstantiate(func(d *types.Decl) { seen = append(seen, d.Name) })
	w.inst(t, g, w.dog.Self)
	w.inst(t, g, u)
	w.inst(t, g, w.dog.Self)
	if len(seen) != 1 || seen[0] != "G<Dog>" {
		t.Fatalf("listener calls: %v", seen)
	}
}

func TestDiscardedInstanceRegistersAgain(t *testing.T) {
	w := newWorld()
	g, _ := w.template("G", types.NoTypeID, types.Invariant)
	first := w.inst(t, g, w.dog.Self)
	var seen int
	w.eng.OnInstantiate(func(*types.Decl) { seen++ })

	w.eng.Discard([]*types.Decl{first})
	if len(w.eng.Generated()) != 0 {
		t.Fatalf("discarded instantiation still generated")
	}
	again := w.inst(t, g, w.dog.Self)
	if again != first {
		t.Fatalf("memoized instantiation must be reused")
	}
	if gen := w.eng.Generated(); len(gen) != 1 || gen[0] != first || seen != 1 {
		t.Fatalf("reuse must register it again, generated %d, notified %d", len(gen), seen)
	}
}
