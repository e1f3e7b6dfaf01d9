package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"tessel/internal/source"
)

// Builtins stores TypeIDs and DeclIDs for built-in types.
type Builtins struct {
	Invalid TypeID
	Void    TypeID
	Any     TypeID
	Null    TypeID

	// Object is the universal root class ("object").
	Object     TypeID
	ObjectDecl DeclID
	// Number is the abstract parent of numeric wrappers.
	Number TypeID
	// Wildcard is the (Any, Any) interval.
	Wildcard TypeID

	Numeric    TypeID // primitive interface over numeric kinds
	Comparable TypeID // primitive interface over numeric kinds and string
	Primitive  TypeID // primitive interface over every kind

	List DeclID // List<E>
	Map  DeclID // Map<K, V>

	prims    [primCount]TypeID
	wrappers [primCount]TypeID
}

// Prim returns the TypeID of the primitive kind p.
func (b Builtins) Prim(p Prim) TypeID { return b.prims[p] }

// Wrapper returns the boxed class type of the primitive kind p.
func (b Builtins) Wrapper(p Prim) TypeID { return b.wrappers[p] }

// Interner provides stable TypeIDs by hashing structural descriptors and
// owns every declaration of a compilation session.
type Interner struct {
	types    []Type
	index    map[Type]TypeID
	decls    []*Decl
	byName   map[string]DeclID
	builtins Builtins
}

// NewInterner constructs an interner seeded with built-in types.
func NewInterner() *Interner {
	in := &Interner{
		index:  make(map[Type]TypeID, 64),
		decls:  []*Decl{nil}, // reserve 0 as invalid sentinel
		byName: make(map[string]DeclID),
	}
	b := &in.builtins
	b.Invalid = in.internRaw(Type{Kind: KindInvalid})
	b.Void = in.Intern(Type{Kind: KindVoid})
	b.Any = in.Intern(Type{Kind: KindAny})
	b.Null = in.Intern(Type{Kind: KindNull})
	b.Wildcard = in.Interval(b.Any, b.Any)
	for _, p := range AllPrims {
		b.prims[p] = in.Intern(Type{Kind: KindPrimitive, Prim: p})
	}

	obj := in.NewDecl(DeclClass, "object", source.Span{})
	obj.Stage = StageSlots
	b.Object = obj.Self
	b.ObjectDecl = obj.ID

	num := in.NewDecl(DeclClass, "Number", source.Span{})
	num.Parent = b.Object
	num.Stage = StageSlots
	b.Number = num.Self

	wrapperNames := map[Prim]string{
		PrimBool: "Bool", PrimByte: "Byte", PrimChar: "Char", PrimShort: "Short",
		PrimInt: "Int", PrimLong: "Long", PrimFloat: "Float", PrimDouble: "Double",
		PrimString: "String",
	}
	for _, p := range AllPrims {
		w := in.NewDecl(DeclClass, wrapperNames[p], source.Span{})
		w.Boxes = p
		w.Parent = b.Object
		if p.IsNumeric() && p != PrimChar {
			w.Parent = b.Number
		}
		w.Stage = StageSlots
		b.wrappers[p] = w.Self
	}

	b.Numeric = in.newPrimInterface("Numeric", MaskNumeric)
	b.Comparable = in.newPrimInterface("Comparable", MaskComparable)
	b.Primitive = in.newPrimInterface("Primitive", MaskAll)

	list := in.NewDecl(DeclClass, "List", source.Span{})
	list.Container = ContainerList
	list.Stage = StageSlots
	in.AddParam(list, "E", NoTypeID, Invariant)
	b.List = list.ID

	m := in.NewDecl(DeclClass, "Map", source.Span{})
	m.Container = ContainerMap
	m.Stage = StageSlots
	in.AddParam(m, "K", NoTypeID, Invariant)
	in.AddParam(m, "V", NoTypeID, Invariant)
	b.Map = m.ID
	return in
}

func (in *Interner) newPrimInterface(name string, mask uint32) TypeID {
	d := in.NewDecl(DeclPrimInterface, name, source.Span{})
	d.PrimMask = mask
	d.Stage = StageSlots
	return d.Self
}

// Builtins returns the built-in ids.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

func (in *Interner) internRaw(t Type) TypeID {
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(n)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic(fmt.Errorf("types: invalid TypeID %d", id))
	}
	return tt
}

// Interval interns the class interval [lower to upper].
func (in *Interner) Interval(lower, upper TypeID) TypeID {
	return in.Intern(Type{Kind: KindInterval, Lower: lower, Upper: upper})
}

// Array interns elem[].
func (in *Interner) Array(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindArray, Elem: elem})
}

// NewDecl registers a declaration and its self type.
func (in *Interner) NewDecl(kind DeclKind, name string, span source.Span) *Decl {
	n, err := safecast.Conv[uint32](len(in.decls))
	if err != nil {
		panic(fmt.Errorf("len(decls) overflow: %w", err))
	}
	d := &Decl{ID: DeclID(n), Kind: kind, Name: name, Span: span}
	in.decls = append(in.decls, d)
	switch kind {
	case DeclEnum:
		d.Self = in.Intern(Type{Kind: KindEnum, Decl: d.ID})
	case DeclFunc:
		d.Self = in.Intern(Type{Kind: KindFunc, Decl: d.ID})
	default:
		d.Self = in.Intern(Type{Kind: KindObject, Decl: d.ID})
	}
	if kind != DeclFunc && name != "" {
		if _, taken := in.byName[name]; !taken {
			in.byName[name] = d.ID
		}
	}
	return d
}

// AddParam appends a generic parameter to the template d and returns its avatar.
func (in *Interner) AddParam(d *Decl, name string, bound TypeID, variance Variance) TypeID {
	idx, err := safecast.Conv[uint32](len(d.Params))
	if err != nil {
		panic(fmt.Errorf("generic param index overflow: %w", err))
	}
	if bound == NoTypeID {
		bound = in.builtins.Wildcard
	}
	avatar := in.Intern(Type{Kind: KindAvatar, Decl: d.ID, Index: idx})
	d.Params = append(d.Params, GenericParam{Name: name, Avatar: avatar, Bound: bound, Variance: variance})
	return avatar
}

// Decl returns the declaration with the given id, or nil.
func (in *Interner) Decl(id DeclID) *Decl {
	if id == NoDeclID || int(id) >= len(in.decls) {
		return nil
	}
	return in.decls[id]
}

// DeclOf returns the declaration behind an object, enum or function type.
func (in *Interner) DeclOf(id TypeID) *Decl {
	tt, ok := in.Lookup(id)
	if !ok {
		return nil
	}
	switch tt.Kind {
	case KindObject, KindEnum, KindFunc:
		return in.Decl(tt.Decl)
	}
	return nil
}

// DeclByName returns the first non-function declaration registered under name.
func (in *Interner) DeclByName(name string) (*Decl, bool) {
	id, ok := in.byName[name]
	if !ok {
		return nil, false
	}
	return in.decls[id], true
}

// Decls returns every declaration in registration order, excluding the sentinel.
func (in *Interner) Decls() []*Decl {
	return in.decls[1:]
}

// Param returns the generic parameter an avatar stands for.
func (in *Interner) Param(avatar TypeID) (*GenericParam, bool) {
	tt, ok := in.Lookup(avatar)
	if !ok || tt.Kind != KindAvatar {
		return nil, false
	}
	owner := in.Decl(tt.Decl)
	if owner == nil || int(tt.Index) >= len(owner.Params) {
		return nil, false
	}
	return &owner.Params[tt.Index], true
}

// LookupField resolves a field by name through the parent chain.
func (in *Interner) LookupField(id DeclID, name string) (Field, bool) {
	seen := make(map[DeclID]bool)
	for d := in.Decl(id); d != nil && !seen[d.ID]; d = in.DeclOf(d.Parent) {
		seen[d.ID] = true
		if f, ok := d.FieldByName(name); ok {
			return f, true
		}
	}
	return Field{}, false
}

// Code returns the sink type code for a value of type id.
func (in *Interner) Code(id TypeID) TypeCode {
	tt, ok := in.Lookup(id)
	if !ok {
		return CodeRef
	}
	switch tt.Kind {
	case KindPrimitive:
		return CodeOf(tt.Prim)
	case KindEnum:
		if d := in.Decl(tt.Decl); d != nil {
			return CodeOf(d.EnumBase)
		}
	}
	return CodeRef
}

// PrimOf returns the primitive kind of a primitive type.
func (in *Interner) PrimOf(id TypeID) (Prim, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindPrimitive {
		return PrimInvalid, false
	}
	return tt.Prim, true
}

// BoxedPrim returns the primitive kind boxed by id or one of its ancestors.
func (in *Interner) BoxedPrim(id TypeID) (Prim, bool) {
	seen := make(map[DeclID]bool)
	for d := in.DeclOf(id); d != nil && !seen[d.ID]; d = in.DeclOf(d.Parent) {
		seen[d.ID] = true
		if d.Boxes != PrimInvalid {
			return d.Boxes, true
		}
	}
	return PrimInvalid, false
}

// NewInstanceDecl registers a structural copy of template as an
// instantiation with the given argument slots. The copy starts at
// StageDeclared and is not reachable by name.
func (in *Interner) NewInstanceDecl(template *Decl, name string, args []Slot) *Decl {
	n, err := safecast.Conv[uint32](len(in.decls))
	if err != nil {
		panic(fmt.Errorf("len(decls) overflow: %w", err))
	}
	d := template.Clone()
	d.ID = DeclID(n)
	d.Name = name
	d.Template = template.ID
	d.Args = slices.Clone(args)
	d.Stage = StageDeclared
	in.decls = append(in.decls, d)
	if template.Kind == DeclFunc {
		d.Self = in.Intern(Type{Kind: KindFunc, Decl: d.ID})
	} else {
		d.Self = in.Intern(Type{Kind: KindObject, Decl: d.ID})
	}
	return d
}

// SlotOf returns the (owner, index) pair an avatar stands for.
func (in *Interner) SlotOf(avatar TypeID) (DeclID, uint32, bool) {
	tt, ok := in.Lookup(avatar)
	if !ok || tt.Kind != KindAvatar {
		return NoDeclID, 0, false
	}
	return tt.Decl, tt.Index, true
}

// IsAvatar reports whether id is a generic parameter avatar.
func (in *Interner) IsAvatar(id TypeID) bool {
	tt, ok := in.Lookup(id)
	return ok && tt.Kind == KindAvatar
}

// ElementOf describes how values of type id are indexed: the container
// kind, the key type and the element type.
func (in *Interner) ElementOf(id TypeID) (kind ContainerKind, key, elem TypeID) {
	tt, ok := in.Lookup(id)
	if !ok {
		return ContainerNone, NoTypeID, NoTypeID
	}
	if tt.Kind == KindArray {
		return ContainerArray, in.builtins.Prim(PrimInt), tt.Elem
	}
	d := in.DeclOf(id)
	if d == nil || d.Container == ContainerNone || d.IsTemplate() {
		return ContainerNone, NoTypeID, NoTypeID
	}
	switch d.Container {
	case ContainerList:
		if len(d.Args) == 1 {
			return ContainerList, in.builtins.Prim(PrimInt), d.Args[0].Type
		}
	case ContainerMap:
		if len(d.Args) == 2 {
			return ContainerMap, d.Args[0].Type, d.Args[1].Type
		}
	}
	return ContainerNone, NoTypeID, NoTypeID
}
