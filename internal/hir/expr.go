package hir

import (
	"tessel/internal/source"
	"tessel/internal/types"
)

// ExprKind enumerates expression kinds. Builder kinds come from the front
// end and are replaced by resolved kinds during transformation; literals,
// locals and null are both.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota

	// Leaves shared by both forms.
	ExprLiteral
	ExprNull
	ExprLocal

	// Builder kinds.
	ExprField
	ExprElement
	ExprBinary
	ExprCast
	ExprAssign
	ExprCall
	ExprNew
	ExprClassOf

	// Resolved kinds.
	ExprNumCast
	ExprBox
	ExprUnbox
	ExprToString
	ExprForceCast
	ExprWearMask
	ExprArith
	ExprCompareOp
	ExprEqual
	ExprConcat
	ExprFieldLoad
	ExprElementLoad
	ExprAssignLocal
	ExprAssignField
	ExprAssignElement
	ExprInvoke
	ExprConstruct
	ExprArrayLit
	ExprClassRef
)

// String returns a human-readable name for the expression kind.
func (k ExprKind) String() string {
	switch k {
	case ExprLiteral:
		return "Literal"
	case ExprNull:
		return "Null"
	case ExprLocal:
		return "Local"
	case ExprField:
		return "Field"
	case ExprElement:
		return "Element"
	case ExprBinary:
		return "Binary"
	case ExprCast:
		return "Cast"
	case ExprAssign:
		return "Assign"
	case ExprCall:
		return "Call"
	case ExprNew:
		return "New"
	case ExprClassOf:
		return "ClassOf"
	case ExprNumCast:
		return "NumCast"
	case ExprBox:
		return "Box"
	case ExprUnbox:
		return "Unbox"
	case ExprToString:
		return "ToString"
	case ExprForceCast:
		return "ForceCast"
	case ExprWearMask:
		return "WearMask"
	case ExprArith:
		return "Arith"
	case ExprCompareOp:
		return "Compare"
	case ExprEqual:
		return "Equal"
	case ExprConcat:
		return "Concat"
	case ExprFieldLoad:
		return "FieldLoad"
	case ExprElementLoad:
		return "ElementLoad"
	case ExprAssignLocal:
		return "AssignLocal"
	case ExprAssignField:
		return "AssignField"
	case ExprAssignElement:
		return "AssignElement"
	case ExprInvoke:
		return "Invoke"
	case ExprConstruct:
		return "Construct"
	case ExprArrayLit:
		return "ArrayLit"
	case ExprClassRef:
		return "ClassRef"
	default:
		return "Invalid"
	}
}

// Resolved reports whether nodes of this kind may reach lowering.
func (k ExprKind) Resolved() bool {
	switch k {
	case ExprLiteral, ExprNull, ExprLocal:
		return true
	}
	return k >= ExprNumCast
}

// Expr is an expression node with its static type. Nodes are never
// mutated once built; transformations return replacements.
type Expr struct {
	Kind ExprKind
	Type types.TypeID
	Span source.Span
	Data ExprData
}

// ExprData is the kind-specific payload. The set of implementations is
// closed to this package.
type ExprData interface {
	exprData()
}

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	OpInvalid BinaryOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
)

var opSymbols = [...]string{
	OpInvalid: "?", OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=", OpEq: "==", OpNe: "!=",
}

func (op BinaryOp) String() string {
	if int(op) < len(opSymbols) {
		return opSymbols[op]
	}
	return "?"
}

// ParseBinaryOp maps an operator symbol to its BinaryOp.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	for i, sym := range opSymbols {
		if i > 0 && sym == s {
			return BinaryOp(i), true
		}
	}
	return OpInvalid, false
}

func (op BinaryOp) IsArith() bool    { return op >= OpAdd && op <= OpMod }
func (op BinaryOp) IsOrdering() bool { return op >= OpLt && op <= OpGe }
func (op BinaryOp) IsEquality() bool { return op == OpEq || op == OpNe }

// LiteralData holds a constant. Enum literals carry the enum type on the
// node and the base-kind constant here.
type LiteralData struct {
	Value Value
}

func (LiteralData) exprData() {}

// NullData marks the null literal.
type NullData struct{}

func (NullData) exprData() {}

// LocalData references a local variable by frame slot.
type LocalData struct {
	Name string
	Slot uint32
}

func (LocalData) exprData() {}

// FieldData is a by-name member read.
type FieldData struct {
	Object *Expr
	Name   string
}

func (FieldData) exprData() {}

// ElementData is an indexed read of an array, list or map.
type ElementData struct {
	Object *Expr
	Index  *Expr
}

func (ElementData) exprData() {}

// BinaryData holds both operands of a binary operator. Resolved arithmetic
// and comparison nodes keep the unified operand type in Operand.
type BinaryData struct {
	Op      BinaryOp
	Left    *Expr
	Right   *Expr
	Operand types.TypeID
}

func (BinaryData) exprData() {}

// CastData is an explicit or implicit conversion request.
type CastData struct {
	Value  *Expr
	Target types.TypeID
	Force  bool
}

func (CastData) exprData() {}

// AssignData pairs a destination expression with a value.
type AssignData struct {
	Target *Expr
	Value  *Expr
}

func (AssignData) exprData() {}

// CallData is an unresolved call. Candidates may be empty for member calls;
// they are then collected from the receiver's class by Name.
type CallData struct {
	Name       string
	Receiver   *Expr
	Candidates []types.DeclID
	Args       []*Expr
}

func (CallData) exprData() {}

// NewData is an unresolved construction.
type NewData struct {
	Class types.TypeID
	Args  []*Expr
}

func (NewData) exprData() {}

// ClassOfData requests the class reference of a value.
type ClassOfData struct {
	Value *Expr
}

func (ClassOfData) exprData() {}

// ConvData is a primitive conversion between type codes.
type ConvData struct {
	Value *Expr
	From  types.Prim
	To    types.Prim
}

func (ConvData) exprData() {}

// BoxMode selects one of the boxing strategies.
type BoxMode uint8

const (
	// BoxPlain boxes into the wrapper class or a subclass of it.
	BoxPlain BoxMode = iota
	// BoxEnum retypes a base-kind value as an enum value.
	BoxEnum
	// BoxForce boxes into the universal object type.
	BoxForce
)

func (m BoxMode) String() string {
	switch m {
	case BoxEnum:
		return "enum"
	case BoxForce:
		return "force"
	default:
		return "plain"
	}
}

// BoxData boxes a primitive. Class is the target class declaration; Ctor
// is the no-argument constructor run for wrapper subclasses.
type BoxData struct {
	Value *Expr
	Mode  BoxMode
	Prim  types.Prim
	Class types.DeclID
	Ctor  types.DeclID
}

func (BoxData) exprData() {}

// UnboxData extracts the primitive of a boxed value.
type UnboxData struct {
	Value *Expr
	Prim  types.Prim
}

func (UnboxData) exprData() {}

// MaskData retypes a value without conversion (wear-mask, force cast).
type MaskData struct {
	Value *Expr
}

func (MaskData) exprData() {}

// ConcatData is a flattened string concatenation; every part is a string.
type ConcatData struct {
	Parts []*Expr
}

func (ConcatData) exprData() {}

// FieldLoadData reads a resolved field slot.
type FieldLoadData struct {
	Object *Expr
	Owner  types.DeclID
	Field  types.Field
}

func (FieldLoadData) exprData() {}

// ElementLoadData reads a container element.
type ElementLoadData struct {
	Container types.ContainerKind
	Object    *Expr
	Index     *Expr
}

func (ElementLoadData) exprData() {}

// AssignLocalData stores into a local slot.
type AssignLocalData struct {
	Name  string
	Slot  uint32
	Value *Expr
}

func (AssignLocalData) exprData() {}

// AssignFieldData stores into a field slot.
type AssignFieldData struct {
	Object *Expr
	Owner  types.DeclID
	Field  types.Field
	Value  *Expr
}

func (AssignFieldData) exprData() {}

// AssignElementData stores into a container element.
type AssignElementData struct {
	Container types.ContainerKind
	Object    *Expr
	Index     *Expr
	Value     *Expr
}

func (AssignElementData) exprData() {}

// InvokeData is a resolved call. A static function keeps its Receiver only
// when evaluating it has effects; it then runs first and its value is dropped.
type InvokeData struct {
	Func     types.DeclID
	Receiver *Expr
	Args     []*Expr
	Virtual  bool
	Slot     uint32
}

func (InvokeData) exprData() {}

// ConstructData allocates a class instance and runs Ctor when set.
type ConstructData struct {
	Class types.DeclID
	Ctor  types.DeclID
	Args  []*Expr
}

func (ConstructData) exprData() {}

// ArrayLitData builds an array from its elements.
type ArrayLitData struct {
	Elem  types.TypeID
	Elems []*Expr
}

func (ArrayLitData) exprData() {}

// ClassRefData yields the run-time class of Value.
type ClassRefData struct {
	Value *Expr
	Class types.DeclID
}

func (ClassRefData) exprData() {}
