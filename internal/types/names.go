package types

import (
	"fmt"
	"strings"
)

// Name renders a type for diagnostics.
func (in *Interner) Name(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch tt.Kind {
	case KindVoid:
		return "void"
	case KindAny:
		return "any"
	case KindNull:
		return "null"
	case KindPrimitive:
		return tt.Prim.String()
	case KindEnum, KindObject:
		if d := in.Decl(tt.Decl); d != nil {
			return d.Name
		}
	case KindFunc:
		if d := in.Decl(tt.Decl); d != nil {
			return in.signatureName(d)
		}
	case KindInterval:
		return fmt.Sprintf("[%s to %s]", in.Name(tt.Lower), in.Name(tt.Upper))
	case KindAvatar:
		if p, ok := in.Param(id); ok {
			return p.Name
		}
	case KindArray:
		return in.Name(tt.Elem) + "[]"
	}
	return fmt.Sprintf("<%s %d>", tt.Kind, id)
}

func (in *Interner) signatureName(d *Decl) string {
	var sb strings.Builder
	sb.WriteString(d.Name)
	sb.WriteByte('(')
	for i, p := range d.Sig.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(in.Name(p.Type))
		if p.Variadic {
			sb.WriteString("...")
		}
	}
	sb.WriteByte(')')
	if d.Sig.Result != NoTypeID && d.Sig.Result != in.builtins.Void {
		sb.WriteString(" -> ")
		sb.WriteString(in.Name(d.Sig.Result))
	}
	return sb.String()
}

// InstanceName renders "Name<A, B>" for a template and its argument types.
func (in *Interner) InstanceName(template *Decl, args []TypeID) string {
	var sb strings.Builder
	sb.WriteString(template.Name)
	sb.WriteByte('<')
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(in.Name(a))
	}
	sb.WriteByte('>')
	return sb.String()
}
