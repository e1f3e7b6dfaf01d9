package universe

import (
	"fmt"
	"strings"
	"unicode"

	"tessel/internal/diag"
	"tessel/internal/mono"
	"tessel/internal/source"
	"tessel/internal/types"
)

// Scope resolves generic parameter names to their avatars.
type Scope map[string]types.TypeID

// TypeParser resolves textual type references:
//
//	type    = primary { "[]" }
//	primary = "[" type "to" type "]" | name [ "<" type { "," type } ">" ]
//
// Names are primitives, the built-ins any, null, void and object, generic
// parameters in scope, or declared classes, interfaces and enums. A name
// may contain dots after its first character ("Cell.T").
type TypeParser struct {
	in   *types.Interner
	mono *mono.Engine
	// pending holds templates whose members are not filled in yet; they
	// cannot be instantiated.
	pending map[types.DeclID]bool
}

// NewTypeParser creates a parser over the engine's interner.
func NewTypeParser(m *mono.Engine) *TypeParser {
	return &TypeParser{in: m.Interner(), mono: m, pending: make(map[types.DeclID]bool)}
}

// Parse resolves ref within scope.
func (p *TypeParser) Parse(ref string, scope Scope, sp source.Span) (types.TypeID, error) {
	s := &typeScanner{src: ref}
	s.next()
	ty, err := p.typ(s, scope, sp)
	if err != nil {
		return types.NoTypeID, err
	}
	if s.tok != "" {
		return types.NoTypeID, p.bad(ref, sp, "unexpected %q", s.tok)
	}
	return ty, nil
}

func (p *TypeParser) bad(ref string, sp source.Span, format string, args ...any) *diag.Error {
	return diag.Syntaxf(diag.SynBadTypeReference, sp, "bad type reference %q: %s", ref, fmt.Sprintf(format, args...))
}

func (p *TypeParser) typ(s *typeScanner, scope Scope, sp source.Span) (types.TypeID, error) {
	ty, err := p.primary(s, scope, sp)
	if err != nil {
		return types.NoTypeID, err
	}
	for s.tok == "[]" {
		s.next()
		ty = p.in.Array(ty)
	}
	return ty, nil
}

func (p *TypeParser) primary(s *typeScanner, scope Scope, sp source.Span) (types.TypeID, error) {
	switch {
	case s.tok == "[":
		s.next()
		lower, err := p.typ(s, scope, sp)
		if err != nil {
			return types.NoTypeID, err
		}
		if s.tok != "to" {
			return types.NoTypeID, p.bad(s.src, sp, "expected \"to\" in interval")
		}
		s.next()
		upper, err := p.typ(s, scope, sp)
		if err != nil {
			return types.NoTypeID, err
		}
		if s.tok != "]" {
			return types.NoTypeID, p.bad(s.src, sp, "unterminated interval")
		}
		s.next()
		return p.in.Interval(lower, upper), nil
	case s.isName():
		name := s.tok
		s.next()
		if s.tok != "<" {
			return p.name(s.src, name, scope, sp)
		}
		s.next()
		var args []types.TypeID
		for {
			a, err := p.typ(s, scope, sp)
			if err != nil {
				return types.NoTypeID, err
			}
			args = append(args, a)
			if s.tok == "," {
				s.next()
				continue
			}
			break
		}
		if s.tok != ">" {
			return types.NoTypeID, p.bad(s.src, sp, "unterminated argument list of %s", name)
		}
		s.next()
		return p.instance(s.src, name, args, sp)
	}
	if s.tok == "" {
		return types.NoTypeID, p.bad(s.src, sp, "unexpected end")
	}
	return types.NoTypeID, p.bad(s.src, sp, "unexpected %q", s.tok)
}

func (p *TypeParser) name(ref, name string, scope Scope, sp source.Span) (types.TypeID, error) {
	if id, ok := scope[name]; ok {
		return id, nil
	}
	b := p.in.Builtins()
	switch name {
	case "any":
		return b.Any, nil
	case "null":
		return b.Null, nil
	case "void":
		return b.Void, nil
	case "object":
		return b.Object, nil
	}
	if prim, ok := types.ParsePrim(name); ok {
		return b.Prim(prim), nil
	}
	if d, ok := p.in.DeclByName(name); ok {
		return d.Self, nil
	}
	return types.NoTypeID, p.bad(ref, sp, "unknown type %s", name)
}

func (p *TypeParser) instance(ref, name string, args []types.TypeID, sp source.Span) (types.TypeID, error) {
	d, ok := p.in.DeclByName(name)
	if !ok {
		return types.NoTypeID, p.bad(ref, sp, "unknown template %s", name)
	}
	if !d.IsTemplate() {
		return types.NoTypeID, diag.Resolvef(diag.SemaNotGeneric, sp, "%s is not generic", name)
	}
	if len(args) != len(d.Params) {
		return types.NoTypeID, diag.Resolvef(diag.SemaArgCount, sp,
			"%s expects %d generic argument(s), got %d", name, len(d.Params), len(args))
	}
	identity := true
	for i := 0; identity && i < len(args); i++ {
		identity = args[i] == d.Params[i].Avatar
	}
	if identity {
		return d.Self, nil
	}
	if p.pending[d.ID] {
		return types.NoTypeID, p.bad(ref, sp, "%s is instantiated before its members are declared", name)
	}
	inst, err := p.mono.Instantiate(d, mono.ArgsFor(p.in, d, args...), sp)
	if err != nil {
		return types.NoTypeID, err
	}
	return inst.Self, nil
}

type typeScanner struct {
	src string
	pos int
	tok string
}

func (s *typeScanner) isName() bool {
	if s.tok == "" {
		return false
	}
	r := rune(s.tok[0])
	return r == '_' || unicode.IsLetter(r)
}

func (s *typeScanner) next() {
	for s.pos < len(s.src) && s.src[s.pos] == ' ' {
		s.pos++
	}
	if s.pos >= len(s.src) {
		s.tok = ""
		return
	}
	rest := s.src[s.pos:]
	if strings.HasPrefix(rest, "[]") {
		s.tok, s.pos = "[]", s.pos+2
		return
	}
	switch c := rest[0]; c {
	case '[', ']', '<', '>', ',':
		s.tok, s.pos = string(c), s.pos+1
		return
	}
	end := 0
	for end < len(rest) {
		r := rune(rest[end])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) && (r != '.' || end == 0) {
			break
		}
		end++
	}
	if end == 0 {
		end = 1
	}
	s.tok, s.pos = rest[:end], s.pos+end
}
