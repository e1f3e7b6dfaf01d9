package types

import (
	"fmt"
	"slices"

	"tessel/internal/source"
)

// DeclID identifies a declaration inside the interner.
type DeclID uint32

// NoDeclID marks the absence of a declaration.
const NoDeclID DeclID = 0

// DeclKind distinguishes declaration shapes.
type DeclKind uint8

const (
	DeclInvalid DeclKind = iota
	DeclClass
	DeclInterface
	DeclPrimInterface
	DeclEnum
	DeclFunc
)

func (k DeclKind) String() string {
	switch k {
	case DeclClass:
		return "class"
	case DeclInterface:
		return "interface"
	case DeclPrimInterface:
		return "primitive interface"
	case DeclEnum:
		return "enum"
	case DeclFunc:
		return "function"
	default:
		return "invalid"
	}
}

// ContainerKind marks built-in element containers.
type ContainerKind uint8

const (
	ContainerNone ContainerKind = iota
	ContainerArray
	ContainerList
	ContainerMap
)

func (k ContainerKind) String() string {
	switch k {
	case ContainerArray:
		return "array"
	case ContainerList:
		return "list"
	case ContainerMap:
		return "map"
	default:
		return "none"
	}
}

// Variance of a generic parameter.
type Variance uint8

const (
	Invariant Variance = iota
	Covariant
	Contravariant
)

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "out"
	case Contravariant:
		return "in"
	default:
		return "inv"
	}
}

// ParseVariance accepts "", "inv", "out" and "in".
func ParseVariance(s string) (Variance, error) {
	switch s {
	case "", "inv", "invariant":
		return Invariant, nil
	case "out", "covariant":
		return Covariant, nil
	case "in", "contravariant":
		return Contravariant, nil
	}
	return Invariant, fmt.Errorf("unknown variance %q", s)
}

// Stage is the declaration-resolution progress of a declaration.
type Stage uint8

const (
	StageDeclared Stage = iota
	StageHierarchy
	StageFields
	StageSlots
)

func (s Stage) String() string {
	switch s {
	case StageDeclared:
		return "declared"
	case StageHierarchy:
		return "hierarchy"
	case StageFields:
		return "fields"
	case StageSlots:
		return "slots"
	default:
		return fmt.Sprintf("Stage(%d)", s)
	}
}

// GenericParam describes one generic parameter slot of a template.
type GenericParam struct {
	Name     string
	Avatar   TypeID
	Bound    TypeID // always an interval
	Variance Variance
}

// Field of a class. Slot is valid from StageSlots on.
type Field struct {
	Name string
	Type TypeID
	Slot uint32
}

// Param of a function signature. Only the last one may be variadic;
// its Type is the element type.
type Param struct {
	Name     string
	Type     TypeID
	Variadic bool
}

// Signature of a function declaration.
type Signature struct {
	Params []Param
	Result TypeID
	Owner  DeclID // receiver class for methods and constructors
	Ctor   bool
	Static bool
	Slot   uint32 // dispatch slot for virtual methods
}

// EnumValue is one entry of an enum value table.
type EnumValue struct {
	Name  string
	Value int64
}

// Slot maps a generic parameter (owner template, index) to a type.
type Slot struct {
	Owner DeclID
	Index uint32
	Type  TypeID
}

// Decl is a class, interface, primitive interface, enum or function
// declaration. Templates have Params; instantiations have Template+Args.
type Decl struct {
	ID    DeclID
	Kind  DeclKind
	Name  string
	Span  source.Span
	Outer DeclID // enclosing declaration (nested classes, methods)
	Self  TypeID // the type denoting this declaration

	Params []GenericParam

	Parent     TypeID
	Interfaces []TypeID
	Fields     []Field
	SlotCount  uint32
	Methods    []DeclID
	Ctors      []DeclID

	Boxes    Prim   // wrapper classes of primitives
	PrimMask uint32 // primitive interfaces

	EnumBase   Prim
	EnumValues []EnumValue

	Container ContainerKind

	Sig Signature

	Template     DeclID
	Args         []Slot
	Intermediate bool

	Stage Stage
}

// IsTemplate reports whether the declaration has unresolved generic parameters.
func (d *Decl) IsTemplate() bool {
	return d != nil && len(d.Params) > 0
}

// IsInstance reports whether the declaration is an instantiation of a template.
func (d *Decl) IsInstance() bool {
	return d != nil && d.Template != NoDeclID
}

// Family returns the template id for instantiations and the own id otherwise.
func (d *Decl) Family() DeclID {
	if d.Template != NoDeclID {
		return d.Template
	}
	return d.ID
}

// HasNoArgCtor reports whether one of the constructors takes no arguments.
func (in *Interner) HasNoArgCtor(id DeclID) bool {
	d := in.Decl(id)
	if d == nil {
		return false
	}
	for _, c := range d.Ctors {
		if cd := in.Decl(c); cd != nil && len(cd.Sig.Params) == 0 {
			return true
		}
	}
	return false
}

// EnumLookup finds an enum entry by value.
func (d *Decl) EnumLookup(v int64) (EnumValue, bool) {
	for _, ev := range d.EnumValues {
		if ev.Value == v {
			return ev, true
		}
	}
	return EnumValue{}, false
}

// EnumByName finds an enum entry by name.
func (d *Decl) EnumByName(name string) (EnumValue, bool) {
	for _, ev := range d.EnumValues {
		if ev.Name == name {
			return ev, true
		}
	}
	return EnumValue{}, false
}

// Clone returns a structural copy suitable for instantiation. Identity,
// stage and template links are reset by the caller.
func (d *Decl) Clone() *Decl {
	cp := *d
	cp.Params = nil
	cp.Interfaces = slices.Clone(d.Interfaces)
	cp.Fields = slices.Clone(d.Fields)
	cp.Methods = slices.Clone(d.Methods)
	cp.Ctors = slices.Clone(d.Ctors)
	cp.EnumValues = slices.Clone(d.EnumValues)
	cp.Sig.Params = slices.Clone(d.Sig.Params)
	cp.Args = nil
	return &cp
}

// FieldByName returns the field with the given name.
func (d *Decl) FieldByName(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
