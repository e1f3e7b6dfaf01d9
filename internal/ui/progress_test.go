package ui

import (
	"strings"
	"testing"

	"tessel/internal/driver"
)

func TestProgressTracksUnits(t *testing.T) {
	m := NewProgressModel("check", []string{"a.toml", "b.toml"}, nil).(*progressModel)
	m.applyEvent(driver.PhaseEvent{File: "a.toml", Status: driver.PhaseStart})
	m.applyEvent(driver.PhaseEvent{File: "a.toml", Name: "u1", Status: driver.PhaseStart, Total: 2})
	m.applyEvent(driver.PhaseEvent{File: "a.toml", Name: "u1", Status: driver.PhaseEnd, Outcome: driver.Compiled})
	if got := m.items[0].status; got != "1/2" {
		t.Fatalf("expected 1/2, got %q", got)
	}
	if got := m.fraction(); got != 0.25 {
		t.Fatalf("expected 0.25, got %v", got)
	}
	m.applyEvent(driver.PhaseEvent{File: "b.toml", Status: driver.PhaseEnd, Failed: true})
	if m.items[1].status != "failed" {
		t.Fatalf("expected failed, got %q", m.items[1].status)
	}
	if got := m.fraction(); got != 0.75 {
		t.Fatalf("expected 0.75, got %v", got)
	}
	m.applyEvent(driver.PhaseEvent{File: "unknown.toml", Status: driver.PhaseEnd})
	if view := m.View(); !strings.Contains(view, "a.toml") || !strings.Contains(view, "failed") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("universe.toml", 8); got != "unive..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncate("日本語ファイル", 7); got != "日本..." {
		t.Fatalf("wide runes must count double, got %q", got)
	}
	if got := truncate("a.toml", 0); got != "a.toml" {
		t.Fatalf("zero width must keep the value, got %q", got)
	}
}
