package mono

import (
	"fmt"

	"fortio.org/safecast"

	"tessel/internal/diag"
	"tessel/internal/source"
	"tessel/internal/trace"
	"tessel/internal/types"
)

// Advance runs declaration resolution on d up to target. Each (decl, stage)
// pair runs at most once; re-entering a stage that is still running is a
// cyclic declaration.
func (e *Engine) Advance(d *types.Decl, target types.Stage, sp source.Span) error {
	for d.Stage < target {
		next := d.Stage + 1
		key := stageKey{decl: d.ID, stage: next}
		if e.advancing[key] {
			return diag.Resolvef(diag.SemaCyclicDeclaration, sp,
				"cyclic declaration: %s depends on itself while resolving %s", d.Name, next)
		}
		e.advancing[key] = true
		err := e.runStage(d, next, sp)
		delete(e.advancing, key)
		if err != nil {
			return err
		}
		d.Stage = next
		trace.Point(e.tracer, trace.ScopeNode, "stage", d.Name+" -> "+next.String())
	}
	return nil
}

func (e *Engine) runStage(d *types.Decl, stage types.Stage, sp source.Span) error {
	switch stage {
	case types.StageHierarchy:
		return e.resolveHierarchy(d, sp)
	case types.StageFields:
		return e.resolveFields(d, sp)
	case types.StageSlots:
		return e.allocateSlots(d, sp)
	}
	panic(fmt.Errorf("mono: no rule for stage %s", stage))
}

func (e *Engine) supers(d *types.Decl) []*types.Decl {
	var out []*types.Decl
	if p := e.in.DeclOf(d.Parent); p != nil {
		out = append(out, p)
	}
	for _, it := range d.Interfaces {
		if i := e.in.DeclOf(it); i != nil {
			out = append(out, i)
		}
	}
	return out
}

func (e *Engine) resolveHierarchy(d *types.Decl, sp source.Span) error {
	if d.Parent != types.NoTypeID {
		p := e.in.DeclOf(d.Parent)
		if p == nil || (p.Kind != types.DeclClass && d.Kind == types.DeclClass) {
			return diag.Resolvef(diag.SemaTypeMismatch, sp, "%s cannot extend %s", d.Name, e.in.Name(d.Parent))
		}
	}
	for _, s := range e.supers(d) {
		if err := e.Advance(s, types.StageHierarchy, sp); err != nil {
			if de, ok := diag.AsError(err); ok {
				return de.WithNote(d.Span, "while resolving the ancestors of %s", d.Name)
			}
			return err
		}
	}
	return nil
}

func (e *Engine) resolveFields(d *types.Decl, sp source.Span) error {
	for _, s := range e.supers(d) {
		if err := e.Advance(s, types.StageFields, sp); err != nil {
			return err
		}
	}
	for _, f := range d.Fields {
		c, err := e.in.Classify(f.Type)
		if err != nil {
			return diag.Resolvef(diag.SemaTypeMismatch, sp, "field %s.%s has no valid type", d.Name, f.Name)
		}
		if c == types.CatPrimitiveInterface {
			return diag.Mismatchf(diag.SemaPrimitiveInterface, sp,
				"field %s.%s cannot have primitive interface type %s", d.Name, f.Name, e.in.Name(f.Type))
		}
		if fd := e.in.DeclOf(f.Type); fd != nil && fd.IsInstance() {
			if err := e.Advance(fd, min(types.StageHierarchy, e.in.Decl(fd.Template).Stage), sp); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) allocateSlots(d *types.Decl, sp source.Span) error {
	var base uint32
	var vtable []string
	if p := e.in.DeclOf(d.Parent); p != nil {
		if err := e.Advance(p, types.StageSlots, sp); err != nil {
			return err
		}
		base = p.SlotCount
		vtable = e.vtable(p)
	}
	for i := range d.Fields {
		off, err := safecast.Conv[uint32](i)
		if err != nil {
			panic(fmt.Errorf("field index overflow: %w", err))
		}
		d.Fields[i].Slot = base + off
	}
	n, err := safecast.Conv[uint32](len(d.Fields))
	if err != nil {
		panic(fmt.Errorf("field count overflow: %w", err))
	}
	d.SlotCount = base + n

	for _, id := range d.Methods {
		m := e.in.Decl(id)
		if m == nil || m.Sig.Static {
			continue
		}
		idx := indexOf(vtable, m.Name)
		if idx < 0 {
			idx = len(vtable)
			vtable = append(vtable, m.Name)
		}
		slot, err := safecast.Conv[uint32](idx)
		if err != nil {
			panic(fmt.Errorf("method slot overflow: %w", err))
		}
		m.Sig.Slot = slot
	}
	return nil
}

// vtable lists virtual method names by dispatch slot.
func (e *Engine) vtable(d *types.Decl) []string {
	var out []string
	if p := e.in.DeclOf(d.Parent); p != nil {
		out = e.vtable(p)
	}
	for _, id := range d.Methods {
		m := e.in.Decl(id)
		if m == nil || m.Sig.Static {
			continue
		}
		if indexOf(out, m.Name) < 0 {
			out = append(out, m.Name)
		}
	}
	return out
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return -1
}
