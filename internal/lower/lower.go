package lower

import (
	"fmt"

	"tessel/internal/hir"
	"tessel/internal/trace"
	"tessel/internal/types"
)

// Lowerer emits a frozen tree into a sink. Every node supports value form
// (result into a destination register) and statement form (effect only).
type Lowerer struct {
	in     *types.Interner
	tree   *Tree
	regs   *Regs
	sink   Sink
	tracer trace.Tracer
}

// NewLowerer creates a lowerer for one frozen tree.
func NewLowerer(in *types.Interner, tree *Tree, regs *Regs, sink Sink, tracer trace.Tracer) *Lowerer {
	if tracer == nil {
		tracer = trace.Nop
	}
	return &Lowerer{in: in, tree: tree, regs: regs, sink: sink, tracer: tracer}
}

// Regs returns the register allocator.
func (l *Lowerer) Regs() *Regs { return l.regs }

// emit hands one instruction to the sink. An instruction reads its
// sources before writing Dst, so Dst may name one of its own sources.
func (l *Lowerer) emit(ins Instr) error {
	return l.sink.Emit(ins)
}

func (l *Lowerer) code(ty types.TypeID) types.TypeCode { return l.in.Code(ty) }

// Value evaluates node id into dst.
func (l *Lowerer) Value(id NodeID, dst Reg) error {
	if dst == NoReg {
		panic(fmt.Errorf("lower: value form of node %d without a destination", id))
	}
	l.regs.CheckDest(dst)
	n := l.tree.Node(id)
	if n.Type == l.in.Builtins().Void {
		panic(fmt.Errorf("lower: value form of void %s at %s", n.Kind, n.Span))
	}

	switch d := n.Data.(type) {
	case hir.LiteralData:
		return l.emit(Instr{Op: OpConst, Dst: dst, Code: l.code(n.Type), Const: d.Value})
	case hir.NullData:
		return l.emit(Instr{Op: OpNull, Dst: dst})
	case hir.LocalData:
		src := l.regs.Local(d.Slot)
		if src == dst {
			return nil
		}
		return l.emit(Instr{Op: OpMove, Dst: dst, Srcs: []Reg{src}, Code: l.code(n.Type)})
	case hir.ConvData:
		return l.unary(n, func(src Reg) Instr {
			return Instr{Op: OpConvert, Dst: dst, Srcs: []Reg{src}, From: types.CodeOf(d.From), Code: types.CodeOf(d.To)}
		})
	case hir.BoxData:
		return l.unary(n, func(src Reg) Instr {
			ins := Instr{Dst: dst, Srcs: []Reg{src}, Code: types.CodeOf(d.Prim), Decl: d.Class, Ctor: d.Ctor}
			switch d.Mode {
			case hir.BoxEnum:
				ins.Op = OpBoxEnum
			case hir.BoxForce:
				ins.Op = OpBoxAny
			default:
				ins.Op = OpBox
			}
			return ins
		})
	case hir.UnboxData:
		return l.unary(n, func(src Reg) Instr {
			return Instr{Op: OpUnbox, Dst: dst, Srcs: []Reg{src}, Code: types.CodeOf(d.Prim)}
		})
	case hir.MaskData:
		if n.Kind == hir.ExprWearMask || n.Type == l.in.Builtins().Any {
			return l.Value(n.Kids[0], dst)
		}
		return l.unary(n, func(src Reg) Instr {
			return Instr{Op: OpCheckCast, Dst: dst, Srcs: []Reg{src}, Type: n.Type}
		})
	case hir.BinaryData:
		return l.binary(n, d, dst)
	case hir.ConcatData:
		return l.seq(n.Kids, func(srcs []Reg) error {
			return l.emit(Instr{Op: OpConcat, Dst: dst, Srcs: srcs, Code: l.code(n.Type)})
		})
	case hir.FieldLoadData:
		return l.unary(n, func(src Reg) Instr {
			return Instr{Op: OpLoadField, Dst: dst, Srcs: []Reg{src}, Decl: d.Owner, Slot: d.Field.Slot, Code: l.code(n.Type)}
		})
	case hir.ElementLoadData:
		return l.seq(n.Kids, func(srcs []Reg) error {
			return l.emit(Instr{Op: OpLoadElement, Dst: dst, Srcs: srcs, Container: d.Container, Code: l.code(n.Type)})
		})
	case hir.AssignLocalData:
		local := l.regs.Local(d.Slot)
		if err := l.Value(n.Kids[0], local); err != nil {
			return err
		}
		if dst == local {
			return nil
		}
		return l.emit(Instr{Op: OpMove, Dst: dst, Srcs: []Reg{local}, Code: l.code(n.Type)})
	case hir.AssignFieldData, hir.AssignElementData:
		return l.store(n, dst)
	case hir.InvokeData:
		return l.invoke(n, d, dst)
	case hir.ConstructData:
		return l.construct(n, d, dst)
	case hir.ArrayLitData:
		return l.seq(n.Kids, func(srcs []Reg) error {
			return l.emit(Instr{Op: OpNewArray, Dst: dst, Srcs: srcs, Code: l.code(d.Elem), Type: d.Elem})
		})
	case hir.ClassRefData:
		return l.unary(n, func(src Reg) Instr {
			return Instr{Op: OpClassOf, Dst: dst, Srcs: []Reg{src}, Decl: d.Class}
		})
	}
	panic(fmt.Errorf("lower: no value rule for %s (%T)", n.Kind, n.Data))
}

// Stmt evaluates node id for its effects only.
func (l *Lowerer) Stmt(id NodeID) error {
	n := l.tree.Node(id)
	switch d := n.Data.(type) {
	case hir.LiteralData, hir.NullData, hir.LocalData:
		return nil
	case hir.AssignLocalData:
		return l.Value(n.Kids[0], l.regs.Local(d.Slot))
	case hir.AssignFieldData, hir.AssignElementData:
		return l.store(n, NoReg)
	case hir.InvokeData:
		return l.invoke(n, d, NoReg)
	}
	if n.Type == l.in.Builtins().Void {
		panic(fmt.Errorf("lower: no statement rule for void %s", n.Kind))
	}
	return l.regs.WithTemp(func(tmp Reg) error { return l.Value(id, tmp) })
}

// operand materializes id into a register and passes it to fn. A local is
// used in place unless one of the later siblings may overwrite it; then it
// is copied to a temporary first.
func (l *Lowerer) operand(id NodeID, later []NodeID, fn func(Reg) error) error {
	n := l.tree.Node(id)
	if d, ok := n.Data.(hir.LocalData); ok && !l.writtenBy(later, d.Slot) {
		return fn(l.regs.Local(d.Slot))
	}
	return l.regs.WithTemp(func(tmp Reg) error {
		if err := l.Value(id, tmp); err != nil {
			return err
		}
		return fn(tmp)
	})
}

func (l *Lowerer) writtenBy(ids []NodeID, slot uint32) bool {
	for _, id := range ids {
		if l.tree.WritesLocal(id, slot) {
			return true
		}
	}
	return false
}

// seq evaluates ids left to right. Each materialized register stays locked
// while the remaining siblings are evaluated and while fn runs.
func (l *Lowerer) seq(ids []NodeID, fn func([]Reg) error) error {
	return l.seqFrom(ids, make([]Reg, 0, len(ids)), fn)
}

func (l *Lowerer) seqFrom(ids []NodeID, acc []Reg, fn func([]Reg) error) error {
	if len(ids) == 0 {
		return fn(acc)
	}
	return l.operand(ids[0], ids[1:], func(r Reg) error {
		return l.regs.WithLocked(r, func() error {
			return l.seqFrom(ids[1:], append(acc, r), fn)
		})
	})
}

func (l *Lowerer) unary(n *Node, build func(src Reg) Instr) error {
	return l.operand(n.Kids[0], nil, func(src Reg) error {
		return l.emit(build(src))
	})
}

func (l *Lowerer) binary(n *Node, d hir.BinaryData, dst Reg) error {
	var op Op
	switch n.Kind {
	case hir.ExprArith:
		op = OpArith
	case hir.ExprCompareOp:
		op = OpCompare
	case hir.ExprEqual:
		op = OpEqual
	default:
		panic(fmt.Errorf("lower: no value rule for %s", n.Kind))
	}
	return l.seq(n.Kids, func(srcs []Reg) error {
		return l.emit(Instr{Op: op, Dst: dst, Srcs: srcs, BinOp: d.Op, Code: l.code(d.Operand)})
	})
}

// store lowers field and element assignments; the stored value is also
// copied to dst in value form.
func (l *Lowerer) store(n *Node, dst Reg) error {
	return l.seq(n.Kids, func(srcs []Reg) error {
		val := srcs[len(srcs)-1]
		ins := Instr{Dst: NoReg, Srcs: srcs, Code: l.code(n.Type)}
		switch d := n.Data.(type) {
		case hir.AssignFieldData:
			ins.Op, ins.Decl, ins.Slot = OpStoreField, d.Owner, d.Field.Slot
		case hir.AssignElementData:
			ins.Op, ins.Container = OpStoreElement, d.Container
		}
		if err := l.emit(ins); err != nil {
			return err
		}
		if dst == NoReg || dst == val {
			return nil
		}
		return l.emit(Instr{Op: OpMove, Dst: dst, Srcs: []Reg{val}, Code: ins.Code})
	})
}

func (l *Lowerer) invoke(n *Node, d hir.InvokeData, dst Reg) error {
	span := trace.Begin(l.tracer, trace.ScopeNode, "invoke", 0)
	defer span.End("")
	kids := n.Kids
	if d.Receiver != nil && !d.Virtual {
		if err := l.Stmt(kids[0]); err != nil {
			return err
		}
		kids = kids[1:]
	}
	return l.seq(kids, func(srcs []Reg) error {
		ins := Instr{Op: OpCall, Dst: dst, Srcs: srcs, Decl: d.Func, Code: l.code(n.Type)}
		if d.Virtual {
			ins.Op, ins.Slot = OpCallVirtual, d.Slot
		}
		return l.emit(ins)
	})
}

// construct allocates the instance into a temporary, keeps it locked while
// the constructor arguments are evaluated, runs the constructor and then
// moves the instance to dst.
func (l *Lowerer) construct(n *Node, d hir.ConstructData, dst Reg) error {
	return l.regs.WithTemp(func(obj Reg) error {
		if err := l.emit(Instr{Op: OpNew, Dst: obj, Decl: d.Class}); err != nil {
			return err
		}
		if d.Ctor != types.NoDeclID {
			err := l.regs.WithLocked(obj, func() error {
				return l.seq(n.Kids, func(srcs []Reg) error {
					args := append([]Reg{obj}, srcs...)
					return l.emit(Instr{Op: OpCall, Dst: NoReg, Srcs: args, Decl: d.Ctor})
				})
			})
			if err != nil {
				return err
			}
		}
		return l.emit(Instr{Op: OpMove, Dst: dst, Srcs: []Reg{obj}, Code: types.CodeRef})
	})
}
