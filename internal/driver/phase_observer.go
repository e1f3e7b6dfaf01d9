package driver

import "time"

// PhaseStatus reports whether a unit or file started or finished.
type PhaseStatus int

const (
	// PhaseStart indicates that a unit has begun compiling.
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

// PhaseEvent describes a unit boundary. File boundaries carry an empty
// Name; CheckFile fills File for both.
type PhaseEvent struct {
	File    string
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration
	// Total is the number of units in the file, set on unit starts.
	Total int
	// Outcome is set on unit ends.
	Outcome Outcome
	// Failed is set on file ends.
	Failed bool
}

// PhaseObserver receives phase events emitted by a Session.
type PhaseObserver func(PhaseEvent)
