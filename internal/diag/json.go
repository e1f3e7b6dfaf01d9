package diag

import (
	"encoding/json"
	"io"

	"tessel/internal/source"
)

// LocationJSON is a span with its file name resolved.
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
}

// NoteJSON is one attached note.
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// FixJSON is a suggested fix with its edits.
type FixJSON struct {
	Title string        `json:"title"`
	Edits []FixEditJSON `json:"edits,omitempty"`
}

// FixEditJSON replaces the text at Location.
type FixEditJSON struct {
	Location LocationJSON `json:"location"`
	NewText  string       `json:"new_text"`
}

// DiagnosticJSON is the JSON form of a Diagnostic.
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
	Fixes    []FixJSON    `json:"fixes,omitempty"`
}

// DiagnosticsOutput is the root object written by WriteJSON.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Dropped     int              `json:"dropped,omitempty"`
}

func makeLocation(sp source.Span, files *source.Set) LocationJSON {
	return LocationJSON{File: files.Name(sp.File), StartByte: sp.Start, EndByte: sp.End}
}

// BuildOutput converts bag without serializing it.
func BuildOutput(bag *Bag, files *source.Set) DiagnosticsOutput {
	items := bag.Items()
	out := DiagnosticsOutput{Diagnostics: make([]DiagnosticJSON, 0, len(items)), Dropped: bag.Dropped()}
	for _, d := range items {
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Message:  d.Message,
			Location: makeLocation(d.Primary, files),
		}
		for _, n := range d.Notes {
			dj.Notes = append(dj.Notes, NoteJSON{Message: n.Msg, Location: makeLocation(n.Span, files)})
		}
		for _, f := range d.Fixes {
			fj := FixJSON{Title: f.Title}
			for _, e := range f.Edits {
				fj.Edits = append(fj.Edits, FixEditJSON{Location: makeLocation(e.Span, files), NewText: e.NewText})
			}
			dj.Fixes = append(dj.Fixes, fj)
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	out.Count = len(out.Diagnostics)
	return out
}

// WriteJSON writes bag as one indented JSON document.
func WriteJSON(w io.Writer, bag *Bag, files *source.Set) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildOutput(bag, files))
}
