package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tessel/internal/config"
	"tessel/internal/prof"
	"tessel/internal/trace"
)

// settings are the effective options of one invocation: tessel.toml
// overridden by explicitly set flags.
type settings struct {
	cfg      config.Config
	color    bool
	tracer   trace.Tracer
	cleanup  func(failed bool)
	profiler *prof.Profiler
}

var current settings

func setupSession(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := overrideFromFlags(cmd, &cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	mode, _ := config.ParseColor(cfg.Diagnostics.Color)
	useColor := mode == config.ColorOn || (mode == config.ColorAuto && isTerminal(os.Stdout))
	color.NoColor = !useColor

	profiler, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	tracer, cleanup, err := setupTracing(cmd, cfg)
	if err != nil {
		_ = profiler.Stop()
		return err
	}
	current = settings{cfg: cfg, color: useColor, tracer: tracer, cleanup: cleanup, profiler: profiler}
	return nil
}

// finish flushes tracing and stops profiling once the command returned.
func (s *settings) finish(failed bool) error {
	if s.cleanup != nil {
		s.cleanup(failed)
		s.cleanup = nil
	}
	err := s.profiler.Stop()
	s.profiler = nil
	return err
}

func setupProfiling(cmd *cobra.Command) (*prof.Profiler, error) {
	pf := cmd.Root().PersistentFlags()
	var opts prof.Options
	var err error
	if opts.CPU, err = pf.GetString("cpu-profile"); err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if opts.Mem, err = pf.GetString("mem-profile"); err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if opts.Trace, err = pf.GetString("runtime-trace"); err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	if !opts.Enabled() {
		return nil, nil
	}
	return prof.Start(opts)
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get working directory: %w", err)
	}
	return config.Discover(wd)
}

// overrideFromFlags copies every explicitly set persistent flag over cfg.
func overrideFromFlags(cmd *cobra.Command, cfg *config.Config) error {
	pf := cmd.Root().PersistentFlags()
	var err error
	if pf.Changed("color") {
		if cfg.Diagnostics.Color, err = pf.GetString("color"); err != nil {
			return err
		}
	}
	if pf.Changed("max-diagnostics") {
		if cfg.Diagnostics.Max, err = pf.GetInt("max-diagnostics"); err != nil {
			return err
		}
	}
	if pf.Changed("timings") {
		if cfg.Check.Timings, err = pf.GetBool("timings"); err != nil {
			return err
		}
	}
	if pf.Changed("trace") {
		if cfg.Trace.Output, err = pf.GetString("trace"); err != nil {
			return err
		}
		if !pf.Changed("trace-level") && cfg.Trace.Level == "off" {
			cfg.Trace.Level = "phase"
		}
	}
	if pf.Changed("trace-level") {
		if cfg.Trace.Level, err = pf.GetString("trace-level"); err != nil {
			return err
		}
	}
	if pf.Changed("trace-mode") {
		if cfg.Trace.Mode, err = pf.GetString("trace-mode"); err != nil {
			return err
		}
	}
	if pf.Changed("trace-ring-size") {
		if cfg.Trace.RingSize, err = pf.GetInt("trace-ring-size"); err != nil {
			return err
		}
	}
	return nil
}
