package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a logical operation.
	KindSpanBegin Kind = iota + 1
	// KindSpanEnd marks the end of a logical operation.
	KindSpanEnd
	// KindPoint represents an instant event.
	KindPoint
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity level of the event.
// Lower numeric values represent coarser events.
type Scope uint8

const (
	// ScopeDriver covers whole sessions (one universe, all units).
	ScopeDriver Scope = iota + 1
	// ScopeUnit covers a single compilation unit.
	ScopeUnit
	// ScopePhase covers transform/freeze/lower of one unit.
	ScopePhase
	// ScopeNode covers instantiations, resolutions and individual nodes.
	ScopeNode
	// ScopeEmit covers single code sink calls.
	ScopeEmit
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeDriver:
		return "driver"
	case ScopeUnit:
		return "unit"
	case ScopePhase:
		return "phase"
	case ScopeNode:
		return "node"
	case ScopeEmit:
		return "emit"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Name     string            // e.g. "transform", "instantiate:Box<Dog>"
	Detail   string            // optional detail message
	Extra    map[string]string // extensible key-value pairs
}
