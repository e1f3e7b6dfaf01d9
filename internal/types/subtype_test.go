package types

import (
	"testing"

	"tessel/internal/source"
)

type zoo struct {
	in     *Interner
	animal *Decl
	dog    *Decl
	cat    *Decl
	pup    *Decl
}

func newZoo() zoo {
	in := NewInterner()
	animal := newClass(in, "Animal", NoTypeID)
	dog := newClass(in, "Dog", animal.Self)
	cat := newClass(in, "Cat", animal.Self)
	pup := newClass(in, "Puppy", dog.Self)
	return zoo{in: in, animal: animal, dog: dog, cat: cat, pup: pup}
}

func TestAncestorDistance(t *testing.T) {
	z := newZoo()
	if d, ok := z.in.AncestorDistance(z.pup.Self, z.animal.Self); !ok || d != 2 {
		t.Fatalf("Puppy -> Animal: got %d %v", d, ok)
	}
	if d, ok := z.in.AncestorDistance(z.pup.Self, z.in.Builtins().Object); !ok || d != 3 {
		t.Fatalf("Puppy -> object: got %d %v", d, ok)
	}
	if z.in.IsSubtype(z.dog.Self, z.cat.Self) {
		t.Fatalf("Dog is not a Cat")
	}
	if !z.in.IsSubtype(z.in.Builtins().Null, z.cat.Self) {
		t.Fatalf("null is below every reference type")
	}
}

func TestIntervalContainment(t *testing.T) {
	z := newZoo()
	b := z.in.Builtins()
	bound := z.in.Interval(z.dog.Self, z.animal.Self)
	if !z.in.IsThatOrSuperOfThat(bound, z.dog.Self) {
		t.Fatalf("Dog within [Dog to Animal]")
	}
	if z.in.IsThatOrSuperOfThat(bound, z.pup.Self) {
		t.Fatalf("Puppy is below the lower bound")
	}
	if z.in.IsThatOrSuperOfThat(bound, z.cat.Self) {
		t.Fatalf("Cat is not a supertype of Dog")
	}
	inner := z.in.Interval(z.dog.Self, z.dog.Self)
	if !z.in.IsThatOrSuperOfThat(bound, inner) {
		t.Fatalf("[Dog to Dog] lies within [Dog to Animal]")
	}
	wider := z.in.Interval(z.pup.Self, b.Object)
	if z.in.IsThatOrSuperOfThat(bound, wider) {
		t.Fatalf("[Puppy to object] exceeds both sides")
	}
	for _, c := range []TypeID{z.cat.Self, b.Prim(PrimInt), b.Any, wider} {
		if !z.in.IsThatOrSuperOfThat(b.Wildcard, c) {
			t.Fatalf("wildcard must accept %s", z.in.Name(c))
		}
	}
}

func TestPrimitiveBoundsUseWrapper(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	numBound := in.Interval(b.Any, b.Number)
	if !in.IsThatOrSuperOfThat(numBound, b.Prim(PrimInt)) {
		t.Fatalf("int boxes into Number")
	}
	if in.IsThatOrSuperOfThat(numBound, b.Prim(PrimBool)) {
		t.Fatalf("bool does not box into Number")
	}
	primBound := in.Interval(b.Any, b.Numeric)
	if !in.IsThatOrSuperOfThat(primBound, b.Prim(PrimDouble)) || in.IsThatOrSuperOfThat(primBound, b.Prim(PrimString)) {
		t.Fatalf("primitive interface bound must follow its mask")
	}
}

func TestVarianceCompatibility(t *testing.T) {
	z := newZoo()
	in := z.in
	mk := func(name string, v Variance) (*Decl, func(arg TypeID) TypeID) {
		tpl := in.NewDecl(DeclClass, name, source.Span{})
		in.AddParam(tpl, "T", NoTypeID, v)
		return tpl, func(arg TypeID) TypeID {
			inst := in.NewDecl(DeclClass, in.InstanceName(tpl, []TypeID{arg}), source.Span{})
			inst.Template = tpl.ID
			inst.Args = []Slot{{Owner: tpl.ID, Index: 0, Type: arg}}
			return inst.Self
		}
	}
	_, inv := mk("Cell", Invariant)
	_, out := mk("Source", Covariant)
	_, into := mk("Sink", Contravariant)

	if in.IsSubtype(inv(z.dog.Self), inv(z.animal.Self)) {
		t.Fatalf("invariant instantiations must not convert")
	}
	if !in.IsSubtype(out(z.dog.Self), out(z.animal.Self)) || in.IsSubtype(out(z.animal.Self), out(z.dog.Self)) {
		t.Fatalf("covariant instantiations follow argument subtyping")
	}
	if !in.IsSubtype(into(z.animal.Self), into(z.dog.Self)) || in.IsSubtype(into(z.dog.Self), into(z.animal.Self)) {
		t.Fatalf("contravariant instantiations reverse argument subtyping")
	}
}
