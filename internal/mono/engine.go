// Package mono instantiates generic class, interface and function
// templates. Instantiations are memoized per template, so equal arguments
// always yield the same declaration.
package mono

import (
	"fmt"
	"slices"
	"strconv"
	"sync"

	"tessel/internal/diag"
	"tessel/internal/source"
	"tessel/internal/trace"
	"tessel/internal/types"
)

// maxDepth bounds nested instantiation; deeper expansion means a template
// keeps instantiating itself with growing arguments.
const maxDepth = 64

// Engine builds and caches instantiations for one type universe. A session
// drives it from a single goroutine; registries guard their own maps.
type Engine struct {
	in     *types.Interner
	tracer trace.Tracer

	mu         sync.Mutex
	registries map[types.DeclID]*Registry

	depth     int
	advancing map[stageKey]bool
	generated []*types.Decl
	finished  map[types.DeclID]bool
	listeners []func(*types.Decl)
}

type stageKey struct {
	decl  types.DeclID
	stage types.Stage
}

// New creates an engine. A nil tracer disables tracing.
func New(in *types.Interner, tracer trace.Tracer) *Engine {
	if tracer == nil {
		tracer = trace.Nop
	}
	return &Engine{
		in:         in,
		tracer:     tracer,
		registries: make(map[types.DeclID]*Registry),
		advancing:  make(map[stageKey]bool),
		finished:   make(map[types.DeclID]bool),
	}
}

// Interner returns the engine's type universe.
func (e *Engine) Interner() *types.Interner { return e.in }

// OnInstantiate registers fn to be called whenever a finished,
// non-intermediate instantiation joins the generated list.
func (e *Engine) OnInstantiate(fn func(*types.Decl)) {
	e.listeners = append(e.listeners, fn)
}

// Generated returns the concrete instantiations awaiting code generation.
func (e *Engine) Generated() []*types.Decl {
	return append([]*types.Decl(nil), e.generated...)
}

// Discard removes ds from the generated list. They stay memoized; the next
// request for one of them registers it again.
func (e *Engine) Discard(ds []*types.Decl) {
	if len(ds) == 0 {
		return
	}
	gone := make(map[types.DeclID]bool, len(ds))
	for _, d := range ds {
		gone[d.ID] = true
	}
	e.generated = slices.DeleteFunc(e.generated, func(d *types.Decl) bool { return gone[d.ID] })
}

func (e *Engine) register(d *types.Decl) {
	if d.Intermediate || !e.finished[d.ID] || slices.Contains(e.generated, d) {
		return
	}
	e.generated = append(e.generated, d)
	for _, fn := range e.listeners {
		fn(d)
	}
}

// Registry returns the registry handle of template, creating it on first use.
func (e *Engine) Registry(template *types.Decl) *Registry {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.registries[template.ID]
	if !ok {
		r = newRegistry(template)
		e.registries[template.ID] = r
	}
	return r
}

// Instantiate returns the instantiation of template for args.
func (e *Engine) Instantiate(template *types.Decl, args Args, sp source.Span) (*types.Decl, error) {
	return e.InstantiateIn(e.Registry(template), args, sp)
}

// InstantiateIn instantiates the registry's template. When args map every
// parameter to the template's own avatar the template itself is returned.
func (e *Engine) InstantiateIn(reg *Registry, args Args, sp source.Span) (*types.Decl, error) {
	template := reg.Template()
	own, err := e.checkArgs(template, args, sp)
	if err != nil {
		return nil, err
	}
	if e.isIdentity(template, own) {
		return template, nil
	}
	key := own.Key()
	if d, ok := reg.Lookup(key); ok {
		e.register(d)
		return d, nil
	}
	if e.depth >= maxDepth {
		return nil, diag.Resolvef(diag.SemaCyclicInstantiation, sp,
			"instantiation of %s expands without bound", e.in.InstanceName(template, own.Types()))
	}

	d, created := reg.loadOrCreate(key, func() *types.Decl {
		inst := e.in.NewInstanceDecl(template, e.in.InstanceName(template, own.Types()), own.Slots())
		inst.Intermediate = own.IsIntermediate(e.in) || own.HasIntermediateArgs(e.in)
		return inst
	})
	if !created {
		return d, nil
	}
	e.depth++
	defer func() { e.depth-- }()

	span := trace.Begin(e.tracer, trace.ScopeNode, "instantiate", 0).WithExtra("decl", d.Name)
	err = e.build(template, d, own, sp)
	span.End("")
	if err != nil {
		reg.drop(key)
		return nil, err
	}
	e.finished[d.ID] = true
	e.register(d)
	return d, nil
}

func (e *Engine) checkArgs(template *types.Decl, args Args, sp source.Span) (Args, error) {
	if !template.IsTemplate() {
		return Args{}, diag.Resolvef(diag.SemaNotGeneric, sp, "%s is not generic", template.Name)
	}
	own, _ := args.TakeFor(e.in, template)
	if own.Len() != len(template.Params) {
		return Args{}, diag.Resolvef(diag.SemaArgCount, sp,
			"%s expects %d generic argument(s), got %d", template.Name, len(template.Params), own.Len())
	}
	for _, p := range template.Params {
		owner, idx, _ := e.in.SlotOf(p.Avatar)
		ty, _ := own.Lookup(owner, idx)
		if e.in.IsWildcard(ty) {
			return Args{}, diag.Resolvef(diag.SemaWildcardArgument, sp,
				"%s cannot be instantiated with the wildcard interval for %s", template.Name, p.Name)
		}
		if ty == p.Avatar {
			continue
		}
		if _, err := e.in.Classify(ty); err != nil || !e.in.IsThatOrSuperOfThat(p.Bound, ty) {
			return Args{}, diag.Resolvef(diag.SemaBoundViolation, sp,
				"%s does not satisfy bound %s of %s.%s", e.in.Name(ty), e.in.Name(p.Bound), template.Name, p.Name)
		}
	}
	return own, nil
}

func (e *Engine) isIdentity(template *types.Decl, own Args) bool {
	for _, p := range template.Params {
		owner, idx, _ := e.in.SlotOf(p.Avatar)
		if ty, _ := own.Lookup(owner, idx); ty != p.Avatar {
			return false
		}
	}
	return true
}

// build substitutes the template's avatars inside the fresh clone d and
// advances it to the template's stage.
func (e *Engine) build(template, d *types.Decl, args Args, sp source.Span) error {
	s := substituter{e: e, args: args, sp: sp}
	var err error
	if d.Parent, err = s.typ(d.Parent); err != nil {
		return err
	}
	for i, it := range d.Interfaces {
		if d.Interfaces[i], err = s.typ(it); err != nil {
			return err
		}
	}
	for i := range d.Fields {
		if d.Fields[i].Type, err = s.typ(d.Fields[i].Type); err != nil {
			return err
		}
	}
	if err = s.signature(&d.Sig); err != nil {
		return err
	}
	for i, m := range d.Methods {
		if d.Methods[i], err = e.member(m, d, args, sp); err != nil {
			return err
		}
	}
	for i, c := range d.Ctors {
		if d.Ctors[i], err = e.member(c, d, args, sp); err != nil {
			return err
		}
	}

	target := template.Stage
	if d.Intermediate && target > types.StageHierarchy {
		target = types.StageHierarchy
	}
	return e.Advance(d, target, sp)
}

// member clones a method or constructor of a class template for the class
// instantiation owner. Generic methods keep their own parameters.
func (e *Engine) member(id types.DeclID, owner *types.Decl, args Args, sp source.Span) (types.DeclID, error) {
	m := e.in.Decl(id)
	if m == nil {
		panic(fmt.Errorf("mono: member %d of %s does not exist", id, owner.Name))
	}
	reg := e.Registry(m)
	key := strconv.FormatUint(uint64(owner.ID), 10)
	clone, created := reg.loadOrCreate(key, func() *types.Decl {
		c := e.in.NewInstanceDecl(m, m.Name, args.Slots())
		c.Outer = owner.ID
		c.Intermediate = owner.Intermediate
		return c
	})
	if !created {
		return clone.ID, nil
	}
	s := substituter{e: e, args: args, sp: sp}
	for _, p := range m.Params {
		bound, err := s.typ(p.Bound)
		if err != nil {
			return types.NoDeclID, err
		}
		p.Bound = bound
		clone.Params = append(clone.Params, p)
	}
	if err := s.signature(&clone.Sig); err != nil {
		reg.drop(key)
		return types.NoDeclID, err
	}
	clone.Sig.Owner = owner.ID
	clone.Stage = m.Stage
	return clone.ID, nil
}

// ApplyIntermediate re-substitutes an intermediate instantiation with the
// arguments of its now-concrete enclosing context. The result is a separate
// instantiation; inst itself is left untouched.
func (e *Engine) ApplyIntermediate(inst *types.Decl, concrete Args, sp source.Span) (*types.Decl, error) {
	if !inst.Intermediate || !inst.IsInstance() {
		return inst, nil
	}
	s := substituter{e: e, args: concrete, sp: sp}
	slots := make([]types.Slot, len(inst.Args))
	for i, a := range inst.Args {
		ty, err := s.typ(a.Type)
		if err != nil {
			return nil, err
		}
		slots[i] = types.Slot{Owner: a.Owner, Index: a.Index, Type: ty}
	}
	return e.Instantiate(e.in.Decl(inst.Template), NewArgs(slots...), sp)
}

// CanStandIn reports whether a value of type from may be passed where to is
// expected. Instantiations of one template compare per parameter variance.
func (e *Engine) CanStandIn(from, to types.TypeID) bool {
	return e.in.IsSubtype(from, to)
}
