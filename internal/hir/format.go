package hir

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"tessel/internal/types"
)

type formatLine struct {
	text string
	typ  string
}

// Format writes an indented tree of e with the static type of each node
// aligned in a right-hand column.
func Format(w io.Writer, in *types.Interner, e *Expr) error {
	var lines []formatLine
	collectLines(in, e, "", "", &lines)
	width := 0
	for _, l := range lines {
		width = max(width, runewidth.StringWidth(l.text))
	}
	for _, l := range lines {
		pad := width - runewidth.StringWidth(l.text)
		if _, err := fmt.Fprintf(w, "%s%s  : %s\n", l.text, strings.Repeat(" ", pad), l.typ); err != nil {
			return err
		}
	}
	return nil
}

// String renders e with Format.
func String(in *types.Interner, e *Expr) string {
	var sb strings.Builder
	_ = Format(&sb, in, e)
	return sb.String()
}

func collectLines(in *types.Interner, e *Expr, prefix, childPrefix string, out *[]formatLine) {
	if e == nil {
		*out = append(*out, formatLine{text: prefix + "<nil>"})
		return
	}
	typ := "-"
	if e.Type != types.NoTypeID {
		typ = in.Name(e.Type)
	}
	*out = append(*out, formatLine{text: prefix + describe(in, e), typ: typ})
	kids := Children(e)
	for i, k := range kids {
		if i == len(kids)-1 {
			collectLines(in, k, childPrefix+"└─ ", childPrefix+"   ", out)
		} else {
			collectLines(in, k, childPrefix+"├─ ", childPrefix+"│  ", out)
		}
	}
}

func describe(in *types.Interner, e *Expr) string {
	name := e.Kind.String()
	switch d := e.Data.(type) {
	case LiteralData:
		return name + " " + d.Value.String()
	case LocalData:
		return fmt.Sprintf("%s %s#%d", name, d.Name, d.Slot)
	case FieldData:
		return name + " ." + d.Name
	case BinaryData:
		return name + " " + d.Op.String()
	case CastData:
		if d.Force {
			return name + " force"
		}
	case CallData:
		return name + " " + d.Name
	case ConvData:
		return fmt.Sprintf("%s %s->%s", name, d.From, d.To)
	case BoxData:
		return name + " " + d.Mode.String()
	case UnboxData:
		return name + " " + d.Prim.String()
	case FieldLoadData:
		return fmt.Sprintf("%s .%s@%d", name, d.Field.Name, d.Field.Slot)
	case AssignFieldData:
		return fmt.Sprintf("%s .%s@%d", name, d.Field.Name, d.Field.Slot)
	case AssignLocalData:
		return fmt.Sprintf("%s %s#%d", name, d.Name, d.Slot)
	case ElementLoadData:
		return name + " " + d.Container.String()
	case AssignElementData:
		return name + " " + d.Container.String()
	case InvokeData:
		if fd := in.Decl(d.Func); fd != nil {
			return name + " " + fd.Name
		}
	case ConstructData:
		if cd := in.Decl(d.Class); cd != nil {
			return name + " " + cd.Name
		}
	}
	return name
}
