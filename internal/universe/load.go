package universe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"tessel/internal/diag"
	"tessel/internal/hir"
	"tessel/internal/mono"
	"tessel/internal/source"
	"tessel/internal/trace"
	"tessel/internal/types"
)

// Format of a universe file.
type Format uint8

const (
	FormatTOML Format = iota
	FormatYAML
)

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return FormatTOML, fmt.Errorf("%s: unsupported universe format %q", path, filepath.Ext(path))
}

// Local is a typed local variable of a unit; its frame slot is its index.
type Local struct {
	Name string
	Type types.TypeID
}

// Unit is a compilation unit ready for the lowering pipeline. Err holds
// the failure to build its expression; such a unit is reported and
// skipped.
type Unit struct {
	Name   string
	Span   source.Span
	Locals []Local
	Stmt   bool
	Expect string
	Expr   *hir.Expr
	Err    error
}

// Universe is a fully declared type universe together with its units.
type Universe struct {
	In    *types.Interner
	Mono  *mono.Engine
	Types *TypeParser
	Files *source.Set
	File  source.FileID
	// Funcs maps a free function name to its overload set in file order.
	Funcs map[string][]types.DeclID
	Units []Unit
}

// LoadFile reads, decodes and builds the universe stored at path.
func LoadFile(path string, files *source.Set, tracer trace.Tracer) (*Universe, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe: %w", err)
	}
	f, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Build(f, path, files, tracer)
}

// Decode parses a universe file. Unknown keys are rejected.
func Decode(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		meta, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		if extra := meta.Undecoded(); len(extra) > 0 {
			keys := make([]string, len(extra))
			for i, k := range extra {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return nil, diag.Syntaxf(diag.SynBadUniverseEntry, source.Span{}, "unknown keys: %s", strings.Join(keys, ", "))
		}
	}
	return &f, nil
}

// Build declares every entry of f in a fresh interner. Templates must be
// complete before another entry instantiates them; a template may name
// itself with its own parameters. Declaration errors abort the build,
// unit errors are kept on the unit.
func Build(f *File, name string, files *source.Set, tracer trace.Tracer) (*Universe, error) {
	if files == nil {
		files = source.NewSet()
	}
	in := types.NewInterner()
	m := mono.New(in, tracer)
	u := &Universe{
		In:    in,
		Mono:  m,
		Types: NewTypeParser(m),
		Files: files,
		File:  files.Add(name),
		Funcs: make(map[string][]types.DeclID),
	}
	b := &builder{u: u, in: in, sp: source.Span{File: u.File}, scopes: make(map[types.DeclID]Scope)}

	span := trace.Begin(tracer, trace.ScopePhase, "universe", 0).WithExtra("file", name)
	err := b.build(f)
	span.End("")
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ParamScope names the parameters of every declared template as
// "Template.Param", for resolving references outside any declaration.
func (u *Universe) ParamScope() Scope {
	scope := make(Scope)
	for _, d := range u.In.Decls() {
		if d.IsInstance() || !d.IsTemplate() || d.Kind == types.DeclFunc {
			continue
		}
		for _, p := range d.Params {
			scope[d.Name+"."+p.Name] = p.Avatar
		}
	}
	return scope
}

type builder struct {
	u      *Universe
	in     *types.Interner
	sp     source.Span
	scopes map[types.DeclID]Scope
}

type classEntry struct {
	spec *ClassSpec
	decl *types.Decl
}

func (b *builder) build(f *File) error {
	classes := make([]classEntry, 0, len(f.Classes)+len(f.Interfaces))
	for i := range f.Classes {
		d, err := b.declare(types.DeclClass, f.Classes[i].Name)
		if err != nil {
			return err
		}
		classes = append(classes, classEntry{spec: &f.Classes[i], decl: d})
	}
	for i := range f.Interfaces {
		d, err := b.declare(types.DeclInterface, f.Interfaces[i].Name)
		if err != nil {
			return err
		}
		classes = append(classes, classEntry{spec: &f.Interfaces[i], decl: d})
	}
	enums := make([]*types.Decl, len(f.Enums))
	for i := range f.Enums {
		d, err := b.declare(types.DeclEnum, f.Enums[i].Name)
		if err != nil {
			return err
		}
		enums[i] = d
	}

	for _, c := range classes {
		scope, err := b.generics(c.decl, c.spec.Generics, nil)
		if err != nil {
			return err
		}
		b.scopes[c.decl.ID] = scope
		if c.decl.IsTemplate() {
			b.u.Types.pending[c.decl.ID] = true
		}
	}
	for _, c := range classes {
		if err := b.fill(c); err != nil {
			return err
		}
		delete(b.u.Types.pending, c.decl.ID)
	}
	for i, d := range enums {
		if err := b.enum(d, &f.Enums[i]); err != nil {
			return err
		}
	}
	for i := range f.Funcs {
		fn, err := b.function(&f.Funcs[i], nil, types.NoDeclID, false)
		if err != nil {
			return err
		}
		b.u.Funcs[fn.Name] = append(b.u.Funcs[fn.Name], fn.ID)
	}

	for _, c := range classes {
		target := types.StageSlots
		if c.decl.IsTemplate() {
			target = types.StageHierarchy
		}
		if err := b.u.Mono.Advance(c.decl, target, b.sp); err != nil {
			return err
		}
	}

	for i := range f.Units {
		b.u.Units = append(b.u.Units, b.unit(&f.Units[i]))
	}
	return nil
}

func (b *builder) bad(format string, args ...any) *diag.Error {
	return diag.Syntaxf(diag.SynBadUniverseEntry, b.sp, format, args...)
}

func (b *builder) declare(kind types.DeclKind, name string) (*types.Decl, error) {
	if name == "" {
		return nil, b.bad("%s without a name", kind)
	}
	_, isPrim := types.ParsePrim(name)
	_, taken := b.in.DeclByName(name)
	if taken || isPrim || name == "any" || name == "null" || name == "void" {
		return nil, diag.Syntaxf(diag.SynDuplicateDeclName, b.sp, "%s %s redeclares an existing name", kind, name)
	}
	return b.in.NewDecl(kind, name, b.sp), nil
}

// generics adds the parameters of d and returns the scope they open on top
// of outer. Bounds may refer to any parameter of the same list.
func (b *builder) generics(d *types.Decl, specs []GenericSpec, outer Scope) (Scope, error) {
	scope := make(Scope, len(outer)+len(specs))
	for k, v := range outer {
		scope[k] = v
	}
	for _, g := range specs {
		if g.Name == "" {
			return nil, b.bad("generic parameter of %s without a name", d.Name)
		}
		if _, dup := scope[g.Name]; dup {
			return nil, diag.Syntaxf(diag.SynDuplicateDeclName, b.sp, "generic parameter %s of %s is declared twice", g.Name, d.Name)
		}
		v, err := types.ParseVariance(g.Variance)
		if err != nil {
			return nil, b.bad("%s.%s: %v", d.Name, g.Name, err)
		}
		scope[g.Name] = b.in.AddParam(d, g.Name, types.NoTypeID, v)
	}
	for i, g := range specs {
		if g.Bound == "" || g.Bound == "any" {
			continue
		}
		bound, err := b.u.Types.Parse(g.Bound, scope, b.sp)
		if err != nil {
			return nil, err
		}
		d.Params[i].Bound = b.asBound(bound)
	}
	return scope, nil
}

// asBound turns a plain type into the interval it stands for as a bound:
// a primitive family admits its members, a class C means [null to C].
func (b *builder) asBound(t types.TypeID) types.TypeID {
	tt := b.in.MustLookup(t)
	bi := b.in.Builtins()
	switch {
	case tt.Kind == types.KindInterval:
		return t
	case b.in.IsPrimitiveFamily(t):
		return b.in.Interval(bi.Any, t)
	}
	return b.in.Interval(bi.Null, t)
}

func (b *builder) fill(c classEntry) error {
	d, spec := c.decl, c.spec
	scope := b.scopes[d.ID]
	if spec.Parent != "" {
		if d.Kind == types.DeclInterface {
			return b.bad("interface %s cannot have a parent class", d.Name)
		}
		p, err := b.u.Types.Parse(spec.Parent, scope, b.sp)
		if err != nil {
			return err
		}
		d.Parent = p
	} else if d.Kind == types.DeclClass {
		d.Parent = b.in.Builtins().Object
	}
	for _, ref := range spec.Interfaces {
		it, err := b.u.Types.Parse(ref, scope, b.sp)
		if err != nil {
			return err
		}
		if id := b.in.DeclOf(it); id == nil || id.Kind != types.DeclInterface {
			return diag.Mismatchf(diag.SemaTypeMismatch, b.sp, "%s implements %s, which is not an interface", d.Name, ref)
		}
		d.Interfaces = append(d.Interfaces, it)
	}
	for _, fs := range spec.Fields {
		if d.Kind == types.DeclInterface {
			return b.bad("interface %s cannot declare field %s", d.Name, fs.Name)
		}
		if _, dup := d.FieldByName(fs.Name); dup || fs.Name == "" {
			return b.bad("field %q of %s is empty or declared twice", fs.Name, d.Name)
		}
		ft, err := b.u.Types.Parse(fs.Type, scope, b.sp)
		if err != nil {
			return err
		}
		d.Fields = append(d.Fields, types.Field{Name: fs.Name, Type: ft})
	}
	for i := range spec.Methods {
		fn, err := b.function(&spec.Methods[i], scope, d.ID, false)
		if err != nil {
			return err
		}
		d.Methods = append(d.Methods, fn.ID)
	}
	for i := range spec.Ctors {
		if d.Kind == types.DeclInterface {
			return b.bad("interface %s cannot declare constructors", d.Name)
		}
		fn, err := b.function(&spec.Ctors[i], scope, d.ID, true)
		if err != nil {
			return err
		}
		d.Ctors = append(d.Ctors, fn.ID)
	}
	return nil
}

func (b *builder) function(spec *FuncSpec, outer Scope, owner types.DeclID, ctor bool) (*types.Decl, error) {
	name := spec.Name
	if ctor {
		name = b.in.Decl(owner).Name
	}
	if name == "" {
		return nil, b.bad("function without a name")
	}
	fn := b.in.NewDecl(types.DeclFunc, name, b.sp)
	fn.Outer = owner
	scope, err := b.generics(fn, spec.Generics, outer)
	if err != nil {
		return nil, err
	}
	for i, ps := range spec.Params {
		if ps.Variadic && i != len(spec.Params)-1 {
			return nil, b.bad("%s: only the last parameter may be variadic", name)
		}
		pt, err := b.u.Types.Parse(ps.Type, scope, b.sp)
		if err != nil {
			return nil, err
		}
		fn.Sig.Params = append(fn.Sig.Params, types.Param{Name: ps.Name, Type: pt, Variadic: ps.Variadic})
	}
	fn.Sig.Result = b.in.Builtins().Void
	if spec.Result != "" && !ctor {
		if fn.Sig.Result, err = b.u.Types.Parse(spec.Result, scope, b.sp); err != nil {
			return nil, err
		}
	}
	fn.Sig.Owner = owner
	fn.Sig.Ctor = ctor
	fn.Sig.Static = spec.Static || owner == types.NoDeclID
	return fn, nil
}

func (b *builder) enum(d *types.Decl, spec *EnumSpec) error {
	base := types.PrimInt
	if spec.Base != "" {
		p, ok := types.ParsePrim(spec.Base)
		if !ok || !p.IsInteger() {
			return b.bad("enum %s: base %q is not an integer kind", d.Name, spec.Base)
		}
		base = p
	}
	d.EnumBase = base
	for _, v := range spec.Values {
		if _, dup := d.EnumByName(v.Name); dup || v.Name == "" {
			return b.bad("enum %s: value %q is empty or declared twice", d.Name, v.Name)
		}
		if !hir.FitsInt(base, v.Value) {
			return b.bad("enum %s: value %s = %d does not fit %s", d.Name, v.Name, v.Value, base)
		}
		d.EnumValues = append(d.EnumValues, types.EnumValue{Name: v.Name, Value: v.Value})
	}
	d.Stage = types.StageSlots
	return nil
}

func (b *builder) unit(spec *UnitSpec) Unit {
	u := Unit{Name: spec.Name, Span: b.sp, Stmt: spec.Stmt, Expect: spec.Expect}
	locals := make(map[string]uint32, len(spec.Locals))
	for i, l := range spec.Locals {
		ty, err := b.u.Types.Parse(l.Type, nil, b.sp)
		if err != nil {
			u.Err = err
			return u
		}
		if _, dup := locals[l.Name]; dup {
			u.Err = diag.Syntaxf(diag.SynDuplicateDeclName, b.sp, "local %s is declared twice", l.Name)
			return u
		}
		slot, err := safecast.Conv[uint32](i)
		if err != nil {
			panic(fmt.Errorf("local slot overflow: %w", err))
		}
		locals[l.Name] = slot
		u.Locals = append(u.Locals, Local{Name: l.Name, Type: ty})
	}
	eb := &exprBuilder{u: b.u, locals: u.Locals, slots: locals, sp: b.sp}
	u.Expr, u.Err = eb.expr(&spec.Expr)
	return u
}
