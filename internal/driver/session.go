// Package driver is the compilation-unit boundary: it runs transform,
// freeze and lowering for each unit of a universe, turns failures into
// diagnostics and abandons the failed unit.
package driver

import (
	"fmt"

	"fortio.org/safecast"

	"tessel/internal/diag"
	"tessel/internal/lower"
	"tessel/internal/observ"
	"tessel/internal/trace"
	"tessel/internal/types"
	"tessel/internal/universe"
)

// Outcome of one unit.
type Outcome uint8

const (
	// Compiled units produced a program.
	Compiled Outcome = iota
	// Failed units were abandoned with an error diagnostic.
	Failed
	// Expected units failed with the code they declared.
	Expected
	// Unexpected units compiled although a failure was declared.
	Unexpected
)

func (o Outcome) String() string {
	switch o {
	case Compiled:
		return "ok"
	case Failed:
		return "failed"
	case Expected:
		return "expected failure"
	case Unexpected:
		return "unexpected success"
	default:
		return fmt.Sprintf("Outcome(%d)", o)
	}
}

// UnitResult is the outcome of compiling one unit. Program is nil unless
// the unit compiled.
type UnitResult struct {
	Name    string
	Outcome Outcome
	Program *lower.Program
	Err     error
}

// Session compiles the units of one universe. It is not safe for
// concurrent use; independent universes get independent sessions.
type Session struct {
	u        *universe.Universe
	tr       *lower.Transformer
	bag      *diag.Bag
	timer    *observ.Timer
	tracer   trace.Tracer
	observer PhaseObserver
	parent   uint64 // trace span the unit spans nest under

	created []*types.Decl // instantiations registered by the current unit
}

// NewSession prepares a session reporting into bag.
func NewSession(u *universe.Universe, bag *diag.Bag, tracer trace.Tracer) *Session {
	if tracer == nil {
		tracer = trace.Nop
	}
	s := &Session{
		u:      u,
		tr:     lower.NewTransformer(u.Mono, tracer),
		bag:    bag,
		timer:  observ.NewTimer(),
		tracer: tracer,
	}
	u.Mono.OnInstantiate(func(d *types.Decl) { s.created = append(s.created, d) })
	return s
}

// Observe registers fn to receive unit phase events.
func (s *Session) Observe(fn PhaseObserver) { s.observer = fn }

// Timer returns the per-unit phase timer.
func (s *Session) Timer() *observ.Timer { return s.timer }

// Run compiles every unit in file order.
func (s *Session) Run() []UnitResult {
	out := make([]UnitResult, len(s.u.Units))
	for i := range s.u.Units {
		out[i] = s.CompileUnit(&s.u.Units[i])
	}
	return out
}

// CompileUnit compiles one unit. Errors are reported to the session bag
// and leave no program behind.
func (s *Session) CompileUnit(unit *universe.Unit) UnitResult {
	s.notify(PhaseEvent{Name: unit.Name, Status: PhaseStart, Total: len(s.u.Units)})
	span := trace.Begin(s.tracer, trace.ScopeUnit, "unit", s.parent).WithExtra("unit", unit.Name)

	idx := s.timer.Begin(unit.Name)
	s.created = nil
	prog, err := s.compile(unit, span.ID())
	note := ""
	if err != nil {
		note = "abandoned"
	}
	elapsed := s.timer.End(idx, note)
	span.End(note)

	res := s.settle(unit, prog, err)
	s.claim(res.Program)
	s.notify(PhaseEvent{Name: unit.Name, Status: PhaseEnd, Elapsed: elapsed, Outcome: res.Outcome})
	return res
}

// claim attaches the unit's new instantiations to its program. Without a
// program they go back to the engine, so a later unit that needs them
// registers them again.
func (s *Session) claim(prog *lower.Program) {
	created := s.created
	s.created = nil
	if prog == nil {
		s.u.Mono.Discard(created)
		return
	}
	for _, d := range created {
		prog.Instances = append(prog.Instances, d.Name)
	}
}

func (s *Session) notify(ev PhaseEvent) {
	if s.observer != nil {
		s.observer(ev)
	}
}

func (s *Session) compile(unit *universe.Unit, parent uint64) (*lower.Program, error) {
	if unit.Err != nil {
		return nil, unit.Err
	}
	ts := trace.Begin(s.tracer, trace.ScopePhase, "transform", parent)
	resolved, err := s.tr.Transform(unit.Expr)
	ts.End("")
	if err != nil {
		return nil, err
	}
	if !unit.Stmt && resolved.Type == s.u.In.Builtins().Void {
		return nil, diag.Syntaxf(diag.SynVoidValue, unit.Span, "unit %s has no value; mark it as a statement", unit.Name)
	}

	tree := lower.Freeze(resolved)
	locals, err := safecast.Conv[uint32](len(unit.Locals))
	if err != nil {
		panic(fmt.Errorf("driver: locals overflow: %w", err))
	}
	regs := lower.NewRegs(locals)
	rec := lower.NewRecorder()
	low := lower.NewLowerer(s.u.In, tree, regs, rec, s.tracer)

	ls := trace.Begin(s.tracer, trace.ScopePhase, "lower", parent)
	if unit.Stmt {
		err = low.Stmt(tree.Root())
	} else {
		err = regs.WithTemp(func(dst lower.Reg) error {
			rec.Program().Result = dst
			return low.Value(tree.Root(), dst)
		})
	}
	ls.End("")
	if err != nil {
		rec.Reset()
		if _, ok := diag.AsError(err); !ok {
			err = diag.Resolvef(diag.LowerEmitFailure, unit.Span, "emit failed: %v", err)
		}
		return nil, err
	}
	prog := rec.Program()
	prog.Frame = regs.Frame()
	return prog, nil
}

// settle compares the unit's result with its expectation and reports.
func (s *Session) settle(unit *universe.Unit, prog *lower.Program, err error) UnitResult {
	res := UnitResult{Name: unit.Name, Program: prog, Err: err}
	switch {
	case err != nil && unit.Expect != "" && codeID(err) == unit.Expect:
		res.Outcome = Expected
		res.Program = nil
	case err != nil:
		res.Outcome = Failed
		s.abandon(unit, err)
	case unit.Expect != "":
		res.Outcome = Unexpected
		res.Program = nil
		diag.ReportError(diag.BagReporter{Bag: s.bag}, diag.LowerExpectation, unit.Span,
			fmt.Sprintf("unit %s compiled, expected %s", unit.Name, unit.Expect)).Emit()
	default:
		res.Outcome = Compiled
	}
	return res
}

func (s *Session) abandon(unit *universe.Unit, err error) {
	var d diag.Diagnostic
	if de, ok := diag.AsError(err); ok {
		d = de.Diagnostic()
	} else {
		d = diag.NewError(diag.LowerUnitAborted, unit.Span, err.Error())
	}
	if unit.Expect != "" {
		d = d.WithNote(unit.Span, fmt.Sprintf("expected %s", unit.Expect))
	}
	d = d.WithNote(unit.Span, fmt.Sprintf("unit %s abandoned, no code emitted", unit.Name))
	s.bag.Add(d)
}

func codeID(err error) string {
	if de, ok := diag.AsError(err); ok {
		return de.Code.ID()
	}
	return diag.LowerUnitAborted.ID()
}
