package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestStreamTracerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeStream, Output: &buf, Format: FormatText})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	sp := Begin(tr, ScopeUnit, "unit", 0)
	Point(tr, ScopeNode, "instantiate", "Box<Dog>")
	sp.End("ok")
	out := buf.String()
	if !strings.Contains(out, "unit") {
		t.Fatalf("expected unit span in output, got %q", out)
	}
	if strings.Contains(out, "instantiate") {
		t.Fatalf("node events must be filtered at phase level")
	}
}

func TestRingTracerSnapshotOrder(t *testing.T) {
	ring := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(ring, ScopeNode, name, "")
	}
	snap := ring.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestContextFallsBackToNop(t *testing.T) {
	if FromContext(context.Background()).Enabled() {
		t.Fatalf("missing tracer must be nop")
	}
	ring := NewRingTracer(4, LevelDebug)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatalf("tracer not propagated")
	}
}

func TestContextKeepsParentAndTracer(t *testing.T) {
	ring := NewRingTracer(4, LevelDebug)
	ctx := WithParent(WithTracer(context.Background(), ring), 42)
	if FromContext(ctx) != Tracer(ring) || ParentFromContext(ctx) != 42 {
		t.Fatalf("parent must not drop the tracer")
	}
	ctx = WithTracer(ctx, nil)
	if FromContext(ctx).Enabled() || ParentFromContext(ctx) != 42 {
		t.Fatalf("detaching the tracer must keep the parent")
	}
	if ParentFromContext(context.Background()) != 0 {
		t.Fatalf("no parent by default")
	}
}

func TestRingFindsNestedBuffer(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ring, ok := Ring(tr)
	if !ok {
		t.Fatalf("both mode must keep a ring buffer")
	}
	Point(tr, ScopeUnit, "unit", "")
	if len(ring.Snapshot()) != 1 {
		t.Fatalf("ring must see events emitted through the multi tracer")
	}
	if _, ok := Ring(Nop); ok {
		t.Fatalf("nop has no ring")
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DETAIL")
	if err != nil || lvl != LevelDetail {
		t.Fatalf("unexpected %v %v", lvl, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error")
	}
}
