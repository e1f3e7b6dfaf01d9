package config

import (
	"os"
	"path/filepath"
	"testing"

	"tessel/internal/diag"
	"tessel/internal/trace"
)

func write(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := write(t, t.TempDir(), `
[diagnostics]
max = 5

[trace]
level = "detail"
output = "trace.ndjson"

[check]
jobs = 3
timings = true
emit = "out"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Diagnostics.Max != 5 || cfg.Diagnostics.Color != "auto" {
		t.Fatalf("unexpected diagnostics %+v", cfg.Diagnostics)
	}
	if cfg.Check.Jobs != 3 || !cfg.Check.Timings || cfg.Check.Emit != "out" {
		t.Fatalf("unexpected check %+v", cfg.Check)
	}
	tc, err := cfg.TraceConfig()
	if err != nil {
		t.Fatalf("TraceConfig: %v", err)
	}
	if tc.Level != trace.LevelDetail || tc.Mode != trace.ModeStream || tc.RingSize != 4096 || tc.OutputPath != "trace.ndjson" {
		t.Fatalf("unexpected trace config %+v", tc)
	}
	if cfg.Path != path {
		t.Fatalf("Path = %q, want %q", cfg.Path, path)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		code    diag.Code
	}{
		{"syntax", "[diagnostics\nmax = 1", diag.ConfigInvalid},
		{"type", "[diagnostics]\nmax = \"many\"", diag.ConfigInvalid},
		{"unknown", "[diagnostics]\nmaximum = 1", diag.ConfigUnknownKey},
		{"color", "[diagnostics]\ncolor = \"rainbow\"", diag.ConfigInvalid},
		{"level", "[trace]\nlevel = \"loud\"", diag.ConfigInvalid},
		{"jobs", "[check]\njobs = -1", diag.ConfigInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(write(t, t.TempDir(), tc.content))
			if !diag.HasCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code.ID(), err)
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !diag.HasCode(err, diag.ConfigUnreadable) {
		t.Fatalf("missing file must be unreadable, got %v", err)
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	write(t, root, "[check]\njobs = 2\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg, err := Discover(nested)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg.Check.Jobs != 2 {
		t.Fatalf("expected the parent config, got %+v", cfg)
	}
}

func TestParseColor(t *testing.T) {
	for in, want := range map[string]ColorMode{"": ColorAuto, "AUTO": ColorAuto, "on": ColorOn, "never": ColorOff} {
		got, err := ParseColor(in)
		if err != nil || got != want {
			t.Fatalf("ParseColor(%q) = %v, %v", in, got, err)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must be valid: %v", err)
	}
}
