package lower

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/vmihailenco/msgpack/v5"

	"tessel/internal/types"
)

// Program is a recorded instruction stream for one lowered expression.
type Program struct {
	Frame  uint32  `msgpack:"frame"`
	Result Reg     `msgpack:"result"`
	Instrs []Instr `msgpack:"instrs"`
	// Instances names the generic instantiations first needed by this
	// program; code generation emits them alongside it.
	Instances []string `msgpack:"instances,omitempty"`
}

// Recorder is a Sink that keeps every instruction in memory.
type Recorder struct {
	prog Program
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{prog: Program{Result: NoReg}}
}

// Emit implements Sink.
func (r *Recorder) Emit(ins Instr) error {
	r.prog.Instrs = append(r.prog.Instrs, ins)
	return nil
}

// Program returns the recorded program.
func (r *Recorder) Program() *Program { return &r.prog }

// Reset drops the recorded instructions, e.g. when a unit is abandoned.
func (r *Recorder) Reset() { r.prog = Program{Result: NoReg} }

// Encode writes p as msgpack.
func (p *Program) Encode(w io.Writer) error {
	return msgpack.NewEncoder(w).Encode(p)
}

// DecodeProgram reads a msgpack program written by Encode.
func DecodeProgram(r io.Reader) (*Program, error) {
	var p Program
	if err := msgpack.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}
	return &p, nil
}

// Dump writes a readable listing of p with declaration names resolved
// through in and operand comments aligned in one column.
func (p *Program) Dump(w io.Writer, in *types.Interner) error {
	rows := make([][2]string, len(p.Instrs))
	width := 0
	for i, ins := range p.Instrs {
		rows[i] = [2]string{ins.text(), ins.comment(in)}
		width = max(width, runewidth.StringWidth(rows[i][0]))
	}
	if _, err := fmt.Fprintf(w, "frame %d, result %s\n", p.Frame, regName(p.Result)); err != nil {
		return err
	}
	for _, name := range p.Instances {
		if _, err := fmt.Fprintf(w, "instance %s\n", name); err != nil {
			return err
		}
	}
	for i, row := range rows {
		line := fmt.Sprintf("%4d  %s", i, row[0])
		if row[1] != "" {
			line += strings.Repeat(" ", width-runewidth.StringWidth(row[0])) + "  ; " + row[1]
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func regName(r Reg) string {
	if r == NoReg {
		return "_"
	}
	return fmt.Sprintf("r%d", r)
}

func codeName(c types.TypeCode) string {
	if c == types.CodeRef {
		return "ref"
	}
	return types.Prim(c).String()
}

func (ins Instr) text() string {
	var sb strings.Builder
	sb.WriteString(ins.Op.String())
	switch ins.Op {
	case OpArith, OpCompare, OpEqual:
		sb.WriteString("." + ins.BinOp.String())
	}
	switch ins.Op {
	case OpConvert:
		fmt.Fprintf(&sb, ".%s.%s", codeName(ins.From), codeName(ins.Code))
	case OpConst, OpMove, OpBox, OpUnbox, OpToString, OpArith, OpCompare, OpEqual, OpLoadElement, OpStoreElement:
		sb.WriteString("." + codeName(ins.Code))
	}
	sb.WriteString(" " + regName(ins.Dst))
	for _, s := range ins.Srcs {
		sb.WriteString(", " + regName(s))
	}
	switch ins.Op {
	case OpConst:
		sb.WriteString(", " + ins.Const.String())
	case OpLoadField, OpStoreField:
		fmt.Fprintf(&sb, ", #%d", ins.Slot)
	case OpCallVirtual:
		fmt.Fprintf(&sb, ", vt%d", ins.Slot)
	}
	return sb.String()
}

func (ins Instr) comment(in *types.Interner) string {
	var parts []string
	if d := in.Decl(ins.Decl); d != nil {
		if d.Kind == types.DeclFunc {
			parts = append(parts, in.Name(d.Self))
		} else {
			parts = append(parts, d.Name)
		}
	}
	if c := in.Decl(ins.Ctor); c != nil {
		parts = append(parts, "ctor "+in.Name(c.Self))
	}
	if ins.Type != types.NoTypeID {
		parts = append(parts, in.Name(ins.Type))
	}
	if ins.Container != types.ContainerNone {
		parts = append(parts, ins.Container.String())
	}
	return strings.Join(parts, " ")
}
