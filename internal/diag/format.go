package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"tessel/internal/source"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	noteColor    = color.New(color.FgBlue)
	codeColor    = color.New(color.Faint)
	helpColor    = color.New(color.FgGreen)
)

// FormatOptions control Write output.
type FormatOptions struct {
	Color bool
	Files *source.Set
	// MinSeverity hides less severe diagnostics.
	MinSeverity Severity
}

// Write renders every diagnostic in bag, one header line plus notes each.
func Write(w io.Writer, bag *Bag, opts FormatOptions) error {
	if bag == nil {
		return nil
	}
	for _, d := range bag.Items() {
		if d.Severity < opts.MinSeverity {
			continue
		}
		if err := WriteOne(w, d, opts); err != nil {
			return err
		}
	}
	if bag.Dropped() > 0 {
		if _, err := fmt.Fprintf(w, "... %d more diagnostics suppressed\n", bag.Dropped()); err != nil {
			return err
		}
	}
	return nil
}

// WriteOne renders a single diagnostic.
func WriteOne(w io.Writer, d Diagnostic, opts FormatOptions) error {
	sev := d.Severity.String()
	code := d.Code.ID()
	loc := opts.Files.Format(d.Primary)
	if opts.Color {
		switch d.Severity {
		case SevError:
			sev = errorColor.Sprint(sev)
		case SevWarning:
			sev = warningColor.Sprint(sev)
		default:
			sev = infoColor.Sprint(sev)
		}
		code = codeColor.Sprint(code)
	}
	if _, err := fmt.Fprintf(w, "%s %s %s: %s\n", loc, sev, code, d.Message); err != nil {
		return err
	}
	for _, n := range d.Notes {
		label := "note"
		if opts.Color {
			label = noteColor.Sprint(label)
		}
		if _, err := fmt.Fprintf(w, "    %s: %s\n", label, n.Msg); err != nil {
			return err
		}
	}
	for _, f := range d.Fixes {
		label := "help"
		if opts.Color {
			label = helpColor.Sprint(label)
		}
		if _, err := fmt.Fprintf(w, "    %s: %s\n", label, f.Title); err != nil {
			return err
		}
	}
	return nil
}
