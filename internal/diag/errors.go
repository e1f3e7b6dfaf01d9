package diag

import (
	"errors"
	"fmt"

	"tessel/internal/source"
)

// ErrorKind classifies recoverable compiler errors.
type ErrorKind uint8

const (
	// KindTypeMismatch covers incompatible cast/unify/assignment.
	KindTypeMismatch ErrorKind = iota + 1
	// KindResolve covers overload, inference, enum and instantiation failures.
	KindResolve
	// KindSyntax covers structurally illegal constructs found during type resolution.
	KindSyntax
)

func (k ErrorKind) String() string {
	switch k {
	case KindTypeMismatch:
		return "type mismatch"
	case KindResolve:
		return "resolve error"
	case KindSyntax:
		return "syntax error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// Error is a checked failure raised by the core. It travels unchanged
// through transform and lowering and becomes a Diagnostic at the unit boundary.
type Error struct {
	Kind  ErrorKind
	Code  Code
	Span  source.Span
	Msg   string
	Notes []Note
	Fixes []Fix
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Diagnostic converts the error to an error-severity diagnostic.
func (e *Error) Diagnostic() Diagnostic {
	d := NewError(e.Code, e.Span, e.Msg)
	d.Notes = append(d.Notes, e.Notes...)
	d.Fixes = append(d.Fixes, e.Fixes...)
	return d
}

// WithNote returns e with an extra note attached.
func (e *Error) WithNote(sp source.Span, format string, args ...any) *Error {
	e.Notes = append(e.Notes, Note{Span: sp, Msg: fmt.Sprintf(format, args...)})
	return e
}

// WithFix returns e with a suggested fix attached.
func (e *Error) WithFix(title string, edits ...FixEdit) *Error {
	e.Fixes = append(e.Fixes, Fix{Title: title, Edits: edits})
	return e
}

// Mismatch reports that a value of type from cannot become type to.
func Mismatch(sp source.Span, from, to string) *Error {
	return &Error{
		Kind: KindTypeMismatch,
		Code: SemaTypeMismatch,
		Span: sp,
		Msg:  fmt.Sprintf("cannot convert %s to %s", from, to),
	}
}

// Mismatchf builds a KindTypeMismatch error with a custom code.
func Mismatchf(code Code, sp source.Span, format string, args ...any) *Error {
	return &Error{Kind: KindTypeMismatch, Code: code, Span: sp, Msg: fmt.Sprintf(format, args...)}
}

// Resolvef builds a KindResolve error.
func Resolvef(code Code, sp source.Span, format string, args ...any) *Error {
	return &Error{Kind: KindResolve, Code: code, Span: sp, Msg: fmt.Sprintf(format, args...)}
}

// Syntaxf builds a KindSyntax error.
func Syntaxf(code Code, sp source.Span, format string, args ...any) *Error {
	return &Error{Kind: KindSyntax, Code: code, Span: sp, Msg: fmt.Sprintf(format, args...)}
}

// AsError unwraps err into *Error.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) && de != nil {
		return de, true
	}
	return nil, false
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	de, ok := AsError(err)
	return ok && de.Kind == kind
}

// HasCode reports whether err carries an *Error with the given code.
func HasCode(err error, code Code) bool {
	de, ok := AsError(err)
	return ok && de.Code == code
}
