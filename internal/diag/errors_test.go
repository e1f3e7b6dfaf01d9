package diag

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"tessel/internal/source"
)

func TestAsErrorThroughWrap(t *testing.T) {
	base := Mismatch(source.Span{File: 1, Start: 2, End: 3}, "int", "Dog")
	wrapped := fmt.Errorf("lower: %w", base)
	got, ok := AsError(wrapped)
	if !ok || got != base {
		t.Fatalf("expected to unwrap the original error")
	}
	if !IsKind(wrapped, KindTypeMismatch) {
		t.Fatalf("expected type mismatch kind")
	}
	if !strings.Contains(got.Msg, "int") || !strings.Contains(got.Msg, "Dog") {
		t.Fatalf("message must name both types: %q", got.Msg)
	}
}

func TestReportErrAddsToBag(t *testing.T) {
	bag := NewBag(4)
	ReportErr(BagReporter{Bag: bag}, Resolvef(SemaAmbiguousOverload, source.Span{}, "ambiguous").
		WithNote(source.Span{}, "candidate %s", "f(int)"))
	if !bag.HasErrors() || bag.Len() != 1 {
		t.Fatalf("expected one error, got %d", bag.Len())
	}
	if len(bag.Items()[0].Notes) != 1 {
		t.Fatalf("notes must survive reporting")
	}
}

func TestBagLimit(t *testing.T) {
	bag := NewBag(2)
	d := NewError(SemaTypeMismatch, source.Span{}, "x")
	bag.Add(d)
	bag.Add(d)
	if bag.Add(d) {
		t.Fatalf("limit must reject third diagnostic")
	}
	if bag.Len() != 2 || bag.Dropped() != 1 {
		t.Fatalf("unexpected bag state len=%d dropped=%d", bag.Len(), bag.Dropped())
	}
}

func TestWritePlain(t *testing.T) {
	files := source.NewSet()
	id := files.Add("unit.toml")
	bag := NewBag(4)
	bag.Add(NewError(SemaNoOverload, source.Span{File: id, Start: 1, End: 4}, "no overload"))
	var buf bytes.Buffer
	if err := Write(&buf, bag, FormatOptions{Files: files}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "unit.toml@1-4 ERROR SEM3010: no overload") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestWriteShowsFixes(t *testing.T) {
	bag := NewBag(0)
	bag.Add(Mismatch(source.Span{}, "Animal", "Dog").WithFix("force the cast to Dog").Diagnostic())
	var buf bytes.Buffer
	if err := Write(&buf, bag, FormatOptions{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "    help: force the cast to Dog") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestWriteHidesLowSeverity(t *testing.T) {
	bag := NewBag(0)
	bag.Add(New(SevInfo, ObsTimings, source.Span{}, "timings"))
	bag.Add(NewError(SemaNoOverload, source.Span{}, "no overload"))
	floor, err := ParseSeverity("Error")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, bag, FormatOptions{MinSeverity: floor}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if strings.Contains(buf.String(), "timings") || !strings.Contains(buf.String(), "no overload") {
		t.Fatalf("unexpected output %q", buf.String())
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
}
