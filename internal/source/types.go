package source

import (
	"fmt"

	"fortio.org/safecast"
)

// FileID uniquely identifies a compilation unit origin within a Set.
type FileID uint32

// Set maps FileIDs to display names. The core never reads files itself;
// the names only decorate diagnostics.
type Set struct {
	names []string
	index map[string]FileID
}

// NewSet creates an empty Set with the reserved zero id for "<unknown>".
func NewSet() *Set {
	return &Set{
		names: []string{"<unknown>"},
		index: make(map[string]FileID),
	}
}

// Add registers name and returns its id; repeated names reuse the id.
func (s *Set) Add(name string) FileID {
	if id, ok := s.index[name]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(s.names))
	if err != nil {
		panic(fmt.Errorf("len names overflow: %w", err))
	}
	id := FileID(n)
	s.names = append(s.names, name)
	s.index[name] = id
	return id
}

// Name returns the display name of id.
func (s *Set) Name(id FileID) string {
	if s == nil || int(id) >= len(s.names) {
		return "<unknown>"
	}
	return s.names[id]
}

// Format renders a span as "name@start-end".
func (s *Set) Format(sp Span) string {
	return fmt.Sprintf("%s@%d-%d", s.Name(sp.File), sp.Start, sp.End)
}
