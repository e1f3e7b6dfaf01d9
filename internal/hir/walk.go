package hir

import "fmt"

// Children returns the direct sub-expressions of e in evaluation order.
func Children(e *Expr) []*Expr {
	if e == nil {
		return nil
	}
	switch d := e.Data.(type) {
	case LiteralData, NullData, LocalData:
		return nil
	case FieldData:
		return []*Expr{d.Object}
	case ElementData:
		return []*Expr{d.Object, d.Index}
	case BinaryData:
		return []*Expr{d.Left, d.Right}
	case CastData:
		return []*Expr{d.Value}
	case AssignData:
		return []*Expr{d.Target, d.Value}
	case CallData:
		return withReceiver(d.Receiver, d.Args)
	case NewData:
		return d.Args
	case ClassOfData:
		return []*Expr{d.Value}
	case ConvData:
		return []*Expr{d.Value}
	case BoxData:
		return []*Expr{d.Value}
	case UnboxData:
		return []*Expr{d.Value}
	case MaskData:
		return []*Expr{d.Value}
	case ConcatData:
		return d.Parts
	case FieldLoadData:
		return []*Expr{d.Object}
	case ElementLoadData:
		return []*Expr{d.Object, d.Index}
	case AssignLocalData:
		return []*Expr{d.Value}
	case AssignFieldData:
		return []*Expr{d.Object, d.Value}
	case AssignElementData:
		return []*Expr{d.Object, d.Index, d.Value}
	case InvokeData:
		return withReceiver(d.Receiver, d.Args)
	case ConstructData:
		return d.Args
	case ArrayLitData:
		return d.Elems
	case ClassRefData:
		return []*Expr{d.Value}
	}
	panic(fmt.Errorf("hir: no children rule for %s (%T)", e.Kind, e.Data))
}

func withReceiver(recv *Expr, args []*Expr) []*Expr {
	if recv == nil {
		return args
	}
	out := make([]*Expr, 0, len(args)+1)
	out = append(out, recv)
	return append(out, args...)
}

// Walk visits e and its descendants in pre-order until fn returns false.
func Walk(e *Expr, fn func(*Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// IsLiteral reports whether e is a constant and returns its value.
func IsLiteral(e *Expr) (Value, bool) {
	if e == nil || e.Kind != ExprLiteral {
		return Value{}, false
	}
	d, ok := e.Data.(LiteralData)
	return d.Value, ok
}

// HasSideEffects reports whether evaluating e may write state or call code.
func HasSideEffects(e *Expr) bool {
	found := false
	Walk(e, func(n *Expr) bool {
		switch n.Kind {
		case ExprAssign, ExprCall, ExprNew, ExprAssignLocal, ExprAssignField,
			ExprAssignElement, ExprInvoke, ExprConstruct:
			found = true
		}
		return !found
	})
	return found
}

// WritesLocal reports whether evaluating e may store into the local slot.
func WritesLocal(e *Expr, slot uint32) bool {
	found := false
	Walk(e, func(n *Expr) bool {
		if d, ok := n.Data.(AssignLocalData); ok && d.Slot == slot {
			found = true
		}
		if d, ok := n.Data.(AssignData); ok {
			if l, ok := d.Target.Data.(LocalData); ok && l.Slot == slot {
				found = true
			}
		}
		return !found
	})
	return found
}
