package lower

import (
	"tessel/internal/hir"
	"tessel/internal/types"
)

// Op enumerates the opcodes a code sink receives.
type Op uint8

const (
	OpInvalid Op = iota
	OpConst
	OpNull
	OpMove
	OpConvert
	OpBox
	OpBoxEnum
	OpBoxAny
	OpUnbox
	OpToString
	OpCheckCast
	OpArith
	OpCompare
	OpEqual
	OpConcat
	OpNew
	OpLoadField
	OpStoreField
	OpLoadElement
	OpStoreElement
	OpCall
	OpCallVirtual
	OpNewArray
	OpClassOf
)

var opNames = [...]string{
	OpInvalid:      "invalid",
	OpConst:        "const",
	OpNull:         "null",
	OpMove:         "move",
	OpConvert:      "convert",
	OpBox:          "box",
	OpBoxEnum:      "box.enum",
	OpBoxAny:       "box.any",
	OpUnbox:        "unbox",
	OpToString:     "tostring",
	OpCheckCast:    "checkcast",
	OpArith:        "arith",
	OpCompare:      "cmp",
	OpEqual:        "eq",
	OpConcat:       "concat",
	OpNew:          "new",
	OpLoadField:    "ldfld",
	OpStoreField:   "stfld",
	OpLoadElement:  "ldelem",
	OpStoreElement: "stelem",
	OpCall:         "call",
	OpCallVirtual:  "callvirt",
	OpNewArray:     "newarr",
	OpClassOf:      "classof",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "invalid"
}

// Instr is one emitted instruction. Which fields matter depends on Op:
// Code is the primitive type code for primitive opcodes (From/Code for
// conversions), Decl the resolved class or function, Slot a field or
// dispatch slot, Type the checked target of a cast.
type Instr struct {
	Op        Op                  `msgpack:"op"`
	Dst       Reg                 `msgpack:"dst"`
	Srcs      []Reg               `msgpack:"srcs,omitempty"`
	Code      types.TypeCode      `msgpack:"code,omitempty"`
	From      types.TypeCode      `msgpack:"from,omitempty"`
	BinOp     hir.BinaryOp        `msgpack:"binop,omitempty"`
	Decl      types.DeclID        `msgpack:"decl,omitempty"`
	Ctor      types.DeclID        `msgpack:"ctor,omitempty"`
	Slot      uint32              `msgpack:"slot,omitempty"`
	Type      types.TypeID        `msgpack:"type,omitempty"`
	Container types.ContainerKind `msgpack:"container,omitempty"`
	Const     hir.Value           `msgpack:"const"`
}

// Sink receives lowered instructions. The encoding of opcodes is the
// sink's concern.
type Sink interface {
	Emit(ins Instr) error
}
