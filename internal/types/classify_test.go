package types

import (
	"testing"

	"tessel/internal/source"
)

func newClass(in *Interner, name string, parent TypeID) *Decl {
	d := in.NewDecl(DeclClass, name, source.Span{})
	d.Parent = parent
	return d
}

func TestClassifyBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	cases := []struct {
		id   TypeID
		want Category
	}{
		{b.Prim(PrimInt), CatPrimitive},
		{b.Prim(PrimString), CatPrimitive},
		{b.Wrapper(PrimInt), CatPrimitiveBoxer},
		{b.Number, CatObject},
		{b.Object, CatTopObject},
		{b.Any, CatAny},
		{b.Null, CatObject},
		{b.Numeric, CatPrimitiveInterface},
		{b.Wildcard, CatObject},
	}
	for _, tc := range cases {
		got, err := in.Classify(tc.id)
		if err != nil {
			t.Fatalf("classify %s: %v", in.Name(tc.id), err)
		}
		if got != tc.want {
			t.Fatalf("classify %s: got %s, want %s", in.Name(tc.id), got, tc.want)
		}
	}
}

func TestClassifyWrapperSubclassIsBoxer(t *testing.T) {
	in := NewInterner()
	myInt := newClass(in, "MyInt", in.Builtins().Wrapper(PrimInt))
	if got := in.MustClassify(myInt.Self); got != CatPrimitiveBoxer {
		t.Fatalf("expected boxer, got %s", got)
	}
}

func TestClassifyAvatars(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	animal := newClass(in, "Animal", NoTypeID)
	g := in.NewDecl(DeclClass, "G", source.Span{})
	free := in.AddParam(g, "A", NoTypeID, Invariant)
	num := in.AddParam(g, "N", in.Interval(b.Any, b.Numeric), Invariant)
	obj := in.AddParam(g, "O", in.Interval(b.Any, animal.Self), Covariant)
	top := in.AddParam(g, "T", in.Interval(b.Any, b.Object), Invariant)
	cls := in.AddParam(g, "C", in.Interval(b.Null, animal.Self), Invariant)
	wild := in.AddParam(g, "W", b.Wildcard, Invariant)

	want := map[TypeID]Category{
		free: CatAny,
		num:  CatPrimitiveGeneric,
		obj:  CatObject,
		top:  CatTopObject,
		cls:  CatObject,
		wild: CatAny,
	}
	for id, c := range want {
		if got := in.MustClassify(id); got != c {
			t.Fatalf("avatar %s: got %s, want %s", in.Name(id), got, c)
		}
	}
}

func TestClassifyInvalidIsError(t *testing.T) {
	in := NewInterner()
	if _, err := in.Classify(NoTypeID); err == nil {
		t.Fatalf("expected error for invalid id")
	}
	if _, err := in.Classify(in.Builtins().Void); err == nil {
		t.Fatalf("void has no category")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("MustClassify must panic")
		}
	}()
	in.MustClassify(TypeID(9999))
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	a1 := in.Array(b.Prim(PrimInt))
	a2 := in.Array(b.Prim(PrimInt))
	if a1 != a2 {
		t.Fatalf("array types should be deduplicated")
	}
	if in.Interval(b.Null, b.Object) != in.Interval(b.Null, b.Object) {
		t.Fatalf("interval types should be deduplicated")
	}
}
