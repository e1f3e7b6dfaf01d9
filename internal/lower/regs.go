package lower

import (
	"fmt"

	"fortio.org/safecast"
)

// Reg is a virtual register. Registers [0, locals) hold local slots;
// temporaries are allocated above them.
type Reg uint32

// NoReg is the destination of statement form.
const NoReg Reg = ^Reg(0)

type guardKind uint8

const (
	guardTemp guardKind = iota + 1
	guardLock
)

type guardEntry struct {
	kind guardKind
	reg  Reg
}

// Regs allocates temporaries and tracks locked registers. Temps and locks
// share one stack, so every guard must be released in reverse order of
// acquisition.
type Regs struct {
	locals uint32
	next   uint32
	peak   uint32
	stack  []guardEntry
	locked map[Reg]int
}

// NewRegs creates an allocator for a frame with the given number of locals.
func NewRegs(locals uint32) *Regs {
	return &Regs{locals: locals, next: locals, peak: locals, locked: make(map[Reg]int)}
}

// Local returns the register of a local slot.
func (r *Regs) Local(slot uint32) Reg {
	if slot >= r.locals {
		panic(fmt.Errorf("lower: local slot %d out of range (%d locals)", slot, r.locals))
	}
	return Reg(slot)
}

// Frame returns the number of registers the frame needs.
func (r *Regs) Frame() uint32 { return r.peak }

// Depth returns the number of guards currently held.
func (r *Regs) Depth() int { return len(r.stack) }

// IsLocked reports whether reg is held by a lock guard.
func (r *Regs) IsLocked(reg Reg) bool { return r.locked[reg] > 0 }

// CheckDest panics when dst aliases a locked register.
func (r *Regs) CheckDest(dst Reg) {
	if r.IsLocked(dst) {
		panic(fmt.Errorf("lower: destination r%d is locked", dst))
	}
}

// Temp is a scoped temporary register.
type Temp struct {
	regs  *Regs
	reg   Reg
	depth int
	done  bool
}

// Reg returns the register held by the guard.
func (t *Temp) Reg() Reg { return t.reg }

// Release frees the temporary. It must be the most recent live guard.
func (t *Temp) Release() {
	t.regs.pop(t.depth, guardTemp, t.reg, &t.done)
	t.regs.next--
}

// Temp acquires a fresh temporary register.
func (r *Regs) Temp() *Temp {
	reg := Reg(r.next)
	n, err := safecast.Conv[uint32](uint64(r.next) + 1)
	if err != nil || Reg(n) == NoReg {
		panic(fmt.Errorf("lower: register file exhausted"))
	}
	r.next = n
	r.peak = max(r.peak, r.next)
	r.stack = append(r.stack, guardEntry{kind: guardTemp, reg: reg})
	return &Temp{regs: r, reg: reg, depth: len(r.stack)}
}

// Lock is a scoped lock on a register.
type Lock struct {
	regs  *Regs
	reg   Reg
	depth int
	done  bool
}

// Release unlocks the register. It must be the most recent live guard.
func (l *Lock) Release() {
	l.regs.pop(l.depth, guardLock, l.reg, &l.done)
	if l.regs.locked[l.reg]--; l.regs.locked[l.reg] == 0 {
		delete(l.regs.locked, l.reg)
	}
}

// Lock protects reg from being used as a destination until released.
func (r *Regs) Lock(reg Reg) *Lock {
	if reg == NoReg {
		panic(fmt.Errorf("lower: lock of the empty register"))
	}
	r.stack = append(r.stack, guardEntry{kind: guardLock, reg: reg})
	r.locked[reg]++
	return &Lock{regs: r, reg: reg, depth: len(r.stack)}
}

func (r *Regs) pop(depth int, kind guardKind, reg Reg, done *bool) {
	if *done {
		panic(fmt.Errorf("lower: r%d released twice", reg))
	}
	if depth != len(r.stack) || r.stack[depth-1] != (guardEntry{kind: kind, reg: reg}) {
		panic(fmt.Errorf("lower: r%d released out of order (depth %d of %d)", reg, depth, len(r.stack)))
	}
	r.stack = r.stack[:depth-1]
	*done = true
}

// WithTemp runs fn with a temporary released when fn returns.
func (r *Regs) WithTemp(fn func(Reg) error) error {
	t := r.Temp()
	defer t.Release()
	return fn(t.Reg())
}

// WithLocked runs fn with reg locked.
func (r *Regs) WithLocked(reg Reg, fn func() error) error {
	l := r.Lock(reg)
	defer l.Release()
	return fn()
}
