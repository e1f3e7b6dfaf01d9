package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"tessel/internal/lower"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCastShowsChain(t *testing.T) {
	out, _, err := run(t, "cast", "int", "double")
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if !strings.Contains(out, "int -> double (NumCast)") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestCastReportsMismatch(t *testing.T) {
	_, errOut, err := run(t, "cast", "--force=false", "Animal", "int")
	if err == nil {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(errOut, "SEM") {
		t.Fatalf("expected a diagnostic, got %q", errOut)
	}
}

func TestUnifyPrintsCommonType(t *testing.T) {
	out, _, err := run(t, "unify", "int", "long")
	if err != nil {
		t.Fatalf("unify: %v", err)
	}
	if !strings.Contains(out, "common type: long") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestMatrixMarksIdentity(t *testing.T) {
	out, _, err := run(t, "matrix", "--force=false", "int", "string")
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	for _, want := range []string{"=", "ToString", "✗"} {
		if !strings.Contains(out, want) {
			t.Fatalf("matrix lacks %q:\n%s", want, out)
		}
	}
}

func TestCheckEmitsPrograms(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.toml")
	if err := os.WriteFile(path, sampleUniverse, 0o600); err != nil {
		t.Fatal(err)
	}
	emit := filepath.Join(dir, "out")
	out, errOut, err := run(t, "check", "--emit", emit, path)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, errOut)
	}
	if !strings.Contains(out, "ambiguous") || !strings.Contains(out, "expected failure") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	f, err := os.Open(filepath.Join(emit, "sample.widen.tsp"))
	if err != nil {
		t.Fatalf("widen program not emitted: %v", err)
	}
	defer f.Close()
	prog, err := lower.DecodeProgram(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(prog.Instrs) == 0 {
		t.Fatalf("empty program")
	}
}

func TestCheckJSONReportsFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	src := "[[unit]]\nname = \"lost\"\n[unit.expr]\nlocal = \"nope\"\n"
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	out, _, err := run(t, "check", "--emit", "", "--format", "json", path)
	if err == nil {
		t.Fatalf("expected failure")
	}
	var files []struct {
		Path  string `json:"path"`
		Units []struct {
			Name    string `json:"name"`
			Outcome string `json:"outcome"`
		} `json:"units"`
		Diagnostics struct {
			Count int `json:"count"`
		} `json:"diagnostics"`
	}
	if err := json.Unmarshal([]byte(out), &files); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if len(files) != 1 || len(files[0].Units) != 1 || files[0].Units[0].Outcome != "failed" {
		t.Fatalf("unexpected result %+v", files)
	}
	if files[0].Diagnostics.Count == 0 {
		t.Fatalf("failed unit must be reported")
	}
}

func TestVersionJSON(t *testing.T) {
	out, _, err := run(t, "version", "--format", "json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if payload.Tool != "tessel" || payload.Version == "" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestMatrixStyleSkipsHeaderRow(t *testing.T) {
	rows := [][]string{
		{"int", "Primitive", "=", "✗"},
		{"string", "Primitive", "✗", "="},
	}
	style := matrixStyle(rows)
	if !style(0, 2).GetBold() {
		t.Fatalf("row 0 is the header")
	}
	cases := []struct {
		row, col int
		want     lipgloss.TerminalColor
	}{
		{1, 2, lipgloss.Color("8")},
		{1, 3, lipgloss.Color("1")},
		{2, 2, lipgloss.Color("1")},
		{2, 3, lipgloss.Color("8")},
		{2, 1, lipgloss.Color("6")},
	}
	for _, tc := range cases {
		if got := style(tc.row, tc.col).GetForeground(); got != tc.want {
			t.Fatalf("cell %d,%d: foreground %v, want %v", tc.row, tc.col, got, tc.want)
		}
	}
}
