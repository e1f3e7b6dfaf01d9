package lower

import (
	"fmt"

	"fortio.org/safecast"

	"tessel/internal/hir"
	"tessel/internal/source"
	"tessel/internal/types"
)

// NodeID indexes a node inside a frozen Tree.
type NodeID uint32

// NoNodeID marks the absence of a node; index 0 of every tree is unused.
const NoNodeID NodeID = 0

// Node is the lowering-ready form of a resolved expression. Kids follow
// hir.Children order; Data keeps the scalar payload (operators, resolved
// declarations, slots). Child pointers inside Data are not consulted.
type Node struct {
	Kind hir.ExprKind
	Type types.TypeID
	Span source.Span
	Data hir.ExprData
	Kids []NodeID
}

// Tree is an arena of frozen nodes. Parent links live in a side table and
// are used for diagnostics only.
type Tree struct {
	nodes  []Node
	parent []NodeID
	root   NodeID
}

// Freeze converts a resolved expression tree into arena form. A builder
// node reaching Freeze is an engine bug and panics.
func Freeze(e *hir.Expr) *Tree {
	t := &Tree{
		nodes:  make([]Node, 1, 16),
		parent: make([]NodeID, 1, 16),
	}
	t.root = t.add(e, NoNodeID)
	return t
}

func (t *Tree) add(e *hir.Expr, parent NodeID) NodeID {
	if e == nil {
		panic(fmt.Errorf("lower: freeze: nil expression"))
	}
	if !e.Kind.Resolved() {
		panic(fmt.Errorf("lower: freeze: unresolved %s node at %s", e.Kind, e.Span))
	}
	n, err := safecast.Conv[uint32](len(t.nodes))
	if err != nil {
		panic(fmt.Errorf("lower: node count overflow: %w", err))
	}
	id := NodeID(n)
	t.nodes = append(t.nodes, Node{Kind: e.Kind, Type: e.Type, Span: e.Span, Data: e.Data})
	t.parent = append(t.parent, parent)
	kids := hir.Children(e)
	ids := make([]NodeID, 0, len(kids))
	for _, k := range kids {
		ids = append(ids, t.add(k, id))
	}
	t.nodes[id].Kids = ids
	return id
}

// Root returns the id of the root node.
func (t *Tree) Root() NodeID { return t.root }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) - 1 }

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) *Node {
	if id == NoNodeID || int(id) >= len(t.nodes) {
		panic(fmt.Errorf("lower: invalid node id %d", id))
	}
	return &t.nodes[id]
}

// Parent returns the enclosing node of id.
func (t *Tree) Parent(id NodeID) (NodeID, bool) {
	if id == NoNodeID || int(id) >= len(t.parent) {
		return NoNodeID, false
	}
	p := t.parent[id]
	return p, p != NoNodeID
}

// Context lists the spans from id up to the root, innermost first.
func (t *Tree) Context(id NodeID) []source.Span {
	var out []source.Span
	for ok := true; ok; id, ok = t.Parent(id) {
		out = append(out, t.Node(id).Span)
	}
	return out
}

// WritesLocal reports whether evaluating the subtree at id may store into
// the local slot.
func (t *Tree) WritesLocal(id NodeID, slot uint32) bool {
	n := t.Node(id)
	if d, ok := n.Data.(hir.AssignLocalData); ok && d.Slot == slot {
		return true
	}
	for _, k := range n.Kids {
		if t.WritesLocal(k, slot) {
			return true
		}
	}
	return false
}
