// Package lower resolves builder expressions into typed, resolved trees
// and emits them into a code sink under a scoped register discipline.
package lower

import (
	"fmt"
	"slices"

	"tessel/internal/coerce"
	"tessel/internal/diag"
	"tessel/internal/hir"
	"tessel/internal/mono"
	"tessel/internal/overload"
	"tessel/internal/source"
	"tessel/internal/trace"
	"tessel/internal/types"
)

// Transformer replaces builder nodes with resolved nodes bottom-up.
type Transformer struct {
	in     *types.Interner
	b      types.Builtins
	cast   *coerce.Engine
	mono   *mono.Engine
	res    *overload.Resolver
	tracer trace.Tracer
}

// NewTransformer wires the cast engine, the instantiation engine and the
// overload resolver over one interner.
func NewTransformer(m *mono.Engine, tracer trace.Tracer) *Transformer {
	if tracer == nil {
		tracer = trace.Nop
	}
	in := m.Interner()
	return &Transformer{
		in:     in,
		b:      in.Builtins(),
		cast:   coerce.New(in),
		mono:   m,
		res:    overload.New(m, tracer),
		tracer: tracer,
	}
}

// Transform resolves e. A tree that is already resolved is returned as is,
// so a second call is a no-op.
func (t *Transformer) Transform(e *hir.Expr) (*hir.Expr, error) {
	span := trace.Begin(t.tracer, trace.ScopeNode, "transform", 0).WithExtra("kind", e.Kind.String())
	out, err := t.expr(e)
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	span.End(detail)
	return out, err
}

func (t *Transformer) expr(e *hir.Expr) (*hir.Expr, error) {
	if e == nil {
		panic(fmt.Errorf("lower: transform of a nil expression"))
	}
	if e.Kind.Resolved() {
		t.checkResolved(e)
		return e, nil
	}
	switch d := e.Data.(type) {
	case hir.FieldData:
		return t.field(e, d)
	case hir.ElementData:
		return t.element(e, d)
	case hir.BinaryData:
		return t.binary(e, d)
	case hir.CastData:
		v, err := t.value(d.Value)
		if err != nil {
			return nil, err
		}
		return t.cast.Cast(v, d.Target, d.Force)
	case hir.AssignData:
		return t.assign(e, d)
	case hir.CallData:
		return t.call(e, d)
	case hir.NewData:
		return t.construct(e, d)
	case hir.ClassOfData:
		return t.classOfExpr(e, d)
	}
	panic(fmt.Errorf("lower: no transform rule for %s (%T)", e.Kind, e.Data))
}

// checkResolved panics when a resolved node hides builder children; only
// the transformer builds resolved nodes.
func (t *Transformer) checkResolved(e *hir.Expr) {
	hir.Walk(e, func(n *hir.Expr) bool {
		if !n.Kind.Resolved() {
			panic(fmt.Errorf("lower: resolved %s contains unresolved %s", e.Kind, n.Kind))
		}
		return true
	})
}

// value transforms e and rejects void results.
func (t *Transformer) value(e *hir.Expr) (*hir.Expr, error) {
	out, err := t.expr(e)
	if err != nil {
		return nil, err
	}
	if out.Type == types.NoTypeID || out.Type == t.b.Void {
		return nil, diag.Syntaxf(diag.SynVoidValue, out.Span, "void result used as a value")
	}
	return out, nil
}

func (t *Transformer) values(es []*hir.Expr) ([]*hir.Expr, error) {
	out := make([]*hir.Expr, len(es))
	for i, e := range es {
		v, err := t.value(e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// classOf returns the class declaration values of type id are instances of.
func (t *Transformer) classOf(id types.TypeID) *types.Decl {
	tt, ok := t.in.Lookup(id)
	if !ok {
		return nil
	}
	switch tt.Kind {
	case types.KindInterval:
		_, upper := t.in.Bounds(id)
		return t.classOf(upper)
	case types.KindAvatar:
		if p, ok := t.in.Param(id); ok {
			_, upper := t.in.Bounds(p.Bound)
			return t.classOf(upper)
		}
		return nil
	}
	return t.in.DeclOf(id)
}

// ready advances a class to slot allocation so fields and dispatch slots
// are final.
func (t *Transformer) ready(d *types.Decl, sp source.Span) error {
	if d.Kind == types.DeclFunc || d.Kind == types.DeclEnum {
		return nil
	}
	return t.mono.Advance(d, types.StageSlots, sp)
}

type fieldRef struct {
	owner *types.Decl
	field types.Field
}

func (t *Transformer) lookupField(obj *hir.Expr, name string, sp source.Span) (fieldRef, error) {
	cls := t.classOf(obj.Type)
	if cls == nil {
		return fieldRef{}, diag.Syntaxf(diag.SynUnknownMember, sp,
			"%s has no member %q", t.in.Name(obj.Type), name)
	}
	if err := t.ready(cls, sp); err != nil {
		return fieldRef{}, err
	}
	seen := make(map[types.DeclID]bool)
	for d := cls; d != nil && !seen[d.ID]; d = t.in.DeclOf(d.Parent) {
		seen[d.ID] = true
		if f, ok := d.FieldByName(name); ok {
			return fieldRef{owner: d, field: f}, nil
		}
	}
	return fieldRef{}, diag.Syntaxf(diag.SynUnknownMember, sp,
		"%s has no field %q", t.in.Name(obj.Type), name)
}

func (t *Transformer) field(e *hir.Expr, d hir.FieldData) (*hir.Expr, error) {
	obj, err := t.value(d.Object)
	if err != nil {
		return nil, err
	}
	ref, err := t.lookupField(obj, d.Name, e.Span)
	if err != nil {
		return nil, err
	}
	return &hir.Expr{
		Kind: hir.ExprFieldLoad, Type: ref.field.Type, Span: e.Span,
		Data: hir.FieldLoadData{Object: obj, Owner: ref.owner.ID, Field: ref.field},
	}, nil
}

type elementRef struct {
	kind  types.ContainerKind
	obj   *hir.Expr
	index *hir.Expr
	elem  types.TypeID
}

func (t *Transformer) lookupElement(obj, index *hir.Expr, sp source.Span) (elementRef, error) {
	kind, key, elem := t.in.ElementOf(obj.Type)
	if kind == types.ContainerNone {
		return elementRef{}, diag.Syntaxf(diag.SynNotIndexable, sp, "%s is not indexable", t.in.Name(obj.Type))
	}
	idx, err := t.cast.Cast(index, key, false)
	if err != nil {
		return elementRef{}, err
	}
	return elementRef{kind: kind, obj: obj, index: idx, elem: elem}, nil
}

func (t *Transformer) element(e *hir.Expr, d hir.ElementData) (*hir.Expr, error) {
	obj, err := t.value(d.Object)
	if err != nil {
		return nil, err
	}
	index, err := t.value(d.Index)
	if err != nil {
		return nil, err
	}
	ref, err := t.lookupElement(obj, index, e.Span)
	if err != nil {
		return nil, err
	}
	return &hir.Expr{
		Kind: hir.ExprElementLoad, Type: ref.elem, Span: e.Span,
		Data: hir.ElementLoadData{Container: ref.kind, Object: ref.obj, Index: ref.index},
	}, nil
}

func (t *Transformer) binary(e *hir.Expr, d hir.BinaryData) (*hir.Expr, error) {
	l, err := t.value(d.Left)
	if err != nil {
		return nil, err
	}
	r, err := t.value(d.Right)
	if err != nil {
		return nil, err
	}
	return t.cast.Binary(d.Op, l, r, e.Span)
}

// assign picks the store strategy from the destination shape once; the
// lowerer never re-inspects the destination.
func (t *Transformer) assign(e *hir.Expr, d hir.AssignData) (*hir.Expr, error) {
	switch target := d.Target.Data.(type) {
	case hir.LocalData:
		v, err := t.assignValue(d.Value, d.Target.Type)
		if err != nil {
			return nil, err
		}
		return &hir.Expr{
			Kind: hir.ExprAssignLocal, Type: d.Target.Type, Span: e.Span,
			Data: hir.AssignLocalData{Name: target.Name, Slot: target.Slot, Value: v},
		}, nil

	case hir.FieldData, hir.FieldLoadData:
		var obj *hir.Expr
		var ref fieldRef
		var err error
		if fd, ok := target.(hir.FieldData); ok {
			if obj, err = t.value(fd.Object); err != nil {
				return nil, err
			}
			if ref, err = t.lookupField(obj, fd.Name, d.Target.Span); err != nil {
				return nil, err
			}
		} else {
			fl := target.(hir.FieldLoadData)
			obj, ref = fl.Object, fieldRef{owner: t.in.Decl(fl.Owner), field: fl.Field}
		}
		v, err := t.assignValue(d.Value, ref.field.Type)
		if err != nil {
			return nil, err
		}
		return &hir.Expr{
			Kind: hir.ExprAssignField, Type: ref.field.Type, Span: e.Span,
			Data: hir.AssignFieldData{Object: obj, Owner: ref.owner.ID, Field: ref.field, Value: v},
		}, nil

	case hir.ElementData, hir.ElementLoadData:
		var ref elementRef
		if ed, ok := target.(hir.ElementData); ok {
			obj, err := t.value(ed.Object)
			if err != nil {
				return nil, err
			}
			index, err := t.value(ed.Index)
			if err != nil {
				return nil, err
			}
			if ref, err = t.lookupElement(obj, index, d.Target.Span); err != nil {
				return nil, err
			}
		} else {
			el := target.(hir.ElementLoadData)
			ref = elementRef{kind: el.Container, obj: el.Object, index: el.Index, elem: d.Target.Type}
		}
		v, err := t.assignValue(d.Value, ref.elem)
		if err != nil {
			return nil, err
		}
		return &hir.Expr{
			Kind: hir.ExprAssignElement, Type: ref.elem, Span: e.Span,
			Data: hir.AssignElementData{Container: ref.kind, Object: ref.obj, Index: ref.index, Value: v},
		}, nil
	}
	return nil, diag.Syntaxf(diag.SynNotAssignable, d.Target.Span, "%s is not assignable", d.Target.Kind)
}

func (t *Transformer) assignValue(e *hir.Expr, to types.TypeID) (*hir.Expr, error) {
	v, err := t.value(e)
	if err != nil {
		return nil, err
	}
	return t.cast.Cast(v, to, false)
}

// methods collects the methods named name visible on cls, most derived
// first. An ancestor method overridden with the same parameters is hidden.
func (t *Transformer) methods(cls *types.Decl, name string) []types.DeclID {
	var out []types.DeclID
	var sigs []string
	seen := make(map[types.DeclID]bool)
	for d := cls; d != nil && !seen[d.ID]; d = t.in.DeclOf(d.Parent) {
		seen[d.ID] = true
		for _, id := range d.Methods {
			m := t.in.Decl(id)
			if m == nil || m.Name != name {
				continue
			}
			sig := t.in.Name(m.Self)
			if slices.Contains(sigs, sig) {
				continue
			}
			sigs = append(sigs, sig)
			out = append(out, id)
		}
	}
	return out
}

func (t *Transformer) call(e *hir.Expr, d hir.CallData) (*hir.Expr, error) {
	var recv *hir.Expr
	var err error
	if d.Receiver != nil {
		if recv, err = t.value(d.Receiver); err != nil {
			return nil, err
		}
	}
	args, err := t.values(d.Args)
	if err != nil {
		return nil, err
	}
	candidates := d.Candidates
	if len(candidates) == 0 && recv != nil {
		cls := t.classOf(recv.Type)
		if cls == nil {
			return nil, diag.Syntaxf(diag.SynNotCallable, e.Span, "%s has no methods", t.in.Name(recv.Type))
		}
		if err := t.ready(cls, e.Span); err != nil {
			return nil, err
		}
		candidates = t.methods(cls, d.Name)
	}
	if len(candidates) == 0 {
		return nil, diag.Syntaxf(diag.SynNotCallable, e.Span, "no callable named %q", d.Name)
	}

	res, err := t.res.Resolve(candidates, args, e.Span)
	if err != nil {
		return nil, err
	}
	fn := res.Func
	cargs, err := t.passArgs(fn, res.Folded, args, e.Span)
	if err != nil {
		return nil, err
	}
	virtual := recv != nil && !fn.Sig.Static && !fn.Sig.Ctor
	if !virtual && recv != nil && !hir.HasSideEffects(recv) {
		recv = nil
	}
	result := fn.Sig.Result
	if result == types.NoTypeID {
		result = t.b.Void
	}
	return &hir.Expr{
		Kind: hir.ExprInvoke, Type: result, Span: e.Span,
		Data: hir.InvokeData{Func: fn.ID, Receiver: recv, Args: cargs, Virtual: virtual, Slot: fn.Sig.Slot},
	}, nil
}

// passArgs converts arguments to the parameter types of fn and collects
// variadic arguments into an array literal.
func (t *Transformer) passArgs(fn *types.Decl, folded int, args []*hir.Expr, sp source.Span) ([]*hir.Expr, error) {
	params := fn.Sig.Params
	n := len(params)
	variadic := n > 0 && params[n-1].Variadic
	fixed := n
	if variadic {
		fixed--
	}
	out := make([]*hir.Expr, 0, n)
	for i := 0; i < fixed; i++ {
		a, err := t.cast.Cast(args[i], params[i].Type, false)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if !variadic {
		return out, nil
	}
	elem := params[fixed].Type
	arr := t.in.Array(elem)
	if folded < 0 {
		a, err := t.cast.Cast(args[fixed], arr, false)
		if err != nil {
			return nil, err
		}
		return append(out, a), nil
	}
	elems := make([]*hir.Expr, 0, len(args)-fixed)
	for _, a := range args[fixed:] {
		c, err := t.cast.Cast(a, elem, false)
		if err != nil {
			return nil, err
		}
		elems = append(elems, c)
	}
	return append(out, &hir.Expr{
		Kind: hir.ExprArrayLit, Type: arr, Span: sp,
		Data: hir.ArrayLitData{Elem: elem, Elems: elems},
	}), nil
}

func (t *Transformer) construct(e *hir.Expr, d hir.NewData) (*hir.Expr, error) {
	cls := t.in.DeclOf(d.Class)
	if cls == nil || cls.Kind != types.DeclClass {
		return nil, diag.Syntaxf(diag.SynNotClassValue, e.Span, "%s cannot be constructed", t.in.Name(d.Class))
	}
	if cls.IsTemplate() {
		return nil, diag.Resolvef(diag.SemaUninferredParams, e.Span,
			"generic class %s needs type arguments to be constructed", cls.Name)
	}
	if err := t.ready(cls, e.Span); err != nil {
		return nil, err
	}
	args, err := t.values(d.Args)
	if err != nil {
		return nil, err
	}
	data := hir.ConstructData{Class: cls.ID}
	switch {
	case len(cls.Ctors) > 0:
		res, err := t.res.Resolve(cls.Ctors, args, e.Span)
		if err != nil {
			return nil, err
		}
		if data.Args, err = t.passArgs(res.Func, res.Folded, args, e.Span); err != nil {
			return nil, err
		}
		data.Ctor = res.Func.ID
	case len(args) > 0:
		return nil, diag.Resolvef(diag.SemaNoOverload, e.Span,
			"%s has no constructor taking %d argument(s)", cls.Name, len(args))
	}
	return &hir.Expr{Kind: hir.ExprConstruct, Type: cls.Self, Span: e.Span, Data: data}, nil
}

// classOfExpr yields the class reference of a value, typed as the interval
// [null to C] of its static class.
func (t *Transformer) classOfExpr(e *hir.Expr, d hir.ClassOfData) (*hir.Expr, error) {
	v, err := t.value(d.Value)
	if err != nil {
		return nil, err
	}
	cat, err := t.in.Classify(v.Type)
	if err != nil {
		panic(fmt.Errorf("lower: %w", err))
	}
	if cat.PrimitiveKind() || cat == types.CatPrimitiveInterface {
		return nil, diag.Syntaxf(diag.SynNotClassValue, e.Span,
			"%s is not a class value", t.in.Name(v.Type))
	}
	upper := v.Type
	if tt, _ := t.in.Lookup(upper); tt.Kind == types.KindInterval || tt.Kind == types.KindAvatar {
		if cls := t.classOf(upper); cls != nil {
			upper = cls.Self
		} else {
			upper = t.b.Object
		}
	}
	if upper == t.b.Any || upper == t.b.Null {
		upper = t.b.Object
	}
	var cls types.DeclID
	if c := t.in.DeclOf(upper); c != nil {
		cls = c.ID
	}
	return &hir.Expr{
		Kind: hir.ExprClassRef, Type: t.in.Interval(t.b.Null, upper), Span: e.Span,
		Data: hir.ClassRefData{Value: v, Class: cls},
	}, nil
}
