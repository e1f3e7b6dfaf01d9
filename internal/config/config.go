// Package config loads tessel.toml, the per-project options of the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"tessel/internal/diag"
	"tessel/internal/source"
	"tessel/internal/trace"
)

// FileName is the name of the project configuration file.
const FileName = "tessel.toml"

// Diagnostics options.
type Diagnostics struct {
	Max   int    `toml:"max"`
	Color string `toml:"color"` // auto|on|off
}

// Trace options; see trace.Config.
type Trace struct {
	Level    string `toml:"level"`
	Mode     string `toml:"mode"`
	Format   string `toml:"format"`
	Output   string `toml:"output"`
	RingSize int    `toml:"ring_size"`
}

// Check options.
type Check struct {
	Jobs    int    `toml:"jobs"`
	Timings bool   `toml:"timings"`
	Emit    string `toml:"emit"` // directory for msgpack programs, empty to skip
}

// Config is the decoded tessel.toml.
type Config struct {
	Diagnostics Diagnostics `toml:"diagnostics"`
	Trace       Trace       `toml:"trace"`
	Check       Check       `toml:"check"`

	// Path is the file the config came from, empty for defaults.
	Path string `toml:"-"`
}

// Default returns the options used without a tessel.toml.
func Default() Config {
	return Config{
		Diagnostics: Diagnostics{Max: 100, Color: "auto"},
		Trace:       Trace{Level: "off", Mode: "stream", Format: "auto", RingSize: 4096},
	}
}

// Find walks up from startDir to locate tessel.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads path over the defaults. Keys missing from the file keep
// their default values; unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, diag.Syntaxf(diag.ConfigUnreadable, source.Span{}, "%v", err)
	}
	cfg := Default()
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, diag.Syntaxf(diag.ConfigInvalid, source.Span{}, "%s: failed to parse TOML: %v", path, err)
	}
	if extra := meta.Undecoded(); len(extra) > 0 {
		keys := make([]string, len(extra))
		for i, k := range extra {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, diag.Syntaxf(diag.ConfigUnknownKey, source.Span{}, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Discover loads the nearest tessel.toml above startDir, or the defaults.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, diag.Syntaxf(diag.ConfigUnreadable, source.Span{}, "%v", err)
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return diag.Syntaxf(diag.ConfigInvalid, source.Span{}, "%s: %s", c.origin(), fmt.Sprintf(format, args...))
	}
	if c.Diagnostics.Max < 0 {
		return bad("diagnostics.max must not be negative, got %d", c.Diagnostics.Max)
	}
	if _, err := ParseColor(c.Diagnostics.Color); err != nil {
		return bad("diagnostics.color: %v", err)
	}
	if _, err := c.TraceConfig(); err != nil {
		return bad("trace: %v", err)
	}
	if c.Check.Jobs < 0 {
		return bad("check.jobs must not be negative, got %d", c.Check.Jobs)
	}
	return nil
}

func (c Config) origin() string {
	if c.Path == "" {
		return FileName
	}
	return c.Path
}

// ColorMode selects when diagnostics are colorized.
type ColorMode uint8

const (
	ColorAuto ColorMode = iota
	ColorOn
	ColorOff
)

// ParseColor accepts auto, on and off.
func ParseColor(s string) (ColorMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ColorAuto, nil
	case "on", "always":
		return ColorOn, nil
	case "off", "never":
		return ColorOff, nil
	}
	return ColorAuto, fmt.Errorf("invalid color mode %q (expected auto|on|off)", s)
}

// TraceConfig converts the trace section for trace.New.
func (c Config) TraceConfig() (trace.Config, error) {
	level, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return trace.Config{}, err
	}
	mode, err := trace.ParseMode(c.Trace.Mode)
	if err != nil {
		return trace.Config{}, err
	}
	format, err := trace.ParseFormat(c.Trace.Format)
	if err != nil {
		return trace.Config{}, err
	}
	if c.Trace.RingSize < 0 {
		return trace.Config{}, fmt.Errorf("ring_size must not be negative, got %d", c.Trace.RingSize)
	}
	return trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: c.Trace.Output,
		RingSize:   c.Trace.RingSize,
	}, nil
}
