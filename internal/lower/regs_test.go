package lower

import "testing"

func TestTempsAreStacked(t *testing.T) {
	r := NewRegs(2)
	a := r.Temp()
	b := r.Temp()
	if a.Reg() != 2 || b.Reg() != 3 {
		t.Fatalf("temps should follow the locals, got r%d r%d", a.Reg(), b.Reg())
	}
	b.Release()
	c := r.Temp()
	if c.Reg() != 3 {
		t.Fatalf("a released temp should be reused, got r%d", c.Reg())
	}
	c.Release()
	a.Release()
	if r.Frame() != 4 || r.Depth() != 0 {
		t.Fatalf("frame %d depth %d", r.Frame(), r.Depth())
	}
}

func TestReleaseOutOfOrderPanics(t *testing.T) {
	r := NewRegs(0)
	a := r.Temp()
	_ = r.Lock(a.Reg())
	mustPanic(t, "out of order", func() { a.Release() })
}

func TestDoubleReleasePanics(t *testing.T) {
	r := NewRegs(1)
	l := r.Lock(0)
	l.Release()
	mustPanic(t, "double release", func() { l.Release() })
}

func TestLockGuards(t *testing.T) {
	r := NewRegs(2)
	err := r.WithLocked(1, func() error {
		if !r.IsLocked(1) || r.IsLocked(0) {
			t.Fatalf("only r1 should be locked")
		}
		mustPanic(t, "locked destination", func() { r.CheckDest(1) })
		return r.WithLocked(1, func() error {
			return nil
		})
	})
	if err != nil {
		t.Fatalf("with locked: %v", err)
	}
	if r.IsLocked(1) || r.Depth() != 0 {
		t.Fatalf("locks should be released after the scope")
	}
	mustPanic(t, "local out of range", func() { r.Local(2) })
}
