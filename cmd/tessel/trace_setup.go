package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tessel/internal/config"
	"tessel/internal/trace"
)

// setupTracing creates the tracer described by cfg and attaches it to the
// command context. The returned cleanup flushes and closes it. The ring
// buffer is dumped to stderr in ring mode, and in both mode when the
// command failed.
func setupTracing(cmd *cobra.Command, cfg config.Config) (trace.Tracer, func(failed bool), error) {
	tc, err := cfg.TraceConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid trace configuration: %w", err)
	}
	if tc.Level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return trace.Nop, func(bool) {}, nil
	}

	tracer, err := trace.New(tc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)

	cleanup := func(failed bool) {
		if ring, ok := trace.Ring(tracer); ok && (tc.Mode == trace.ModeRing || failed) {
			format := tc.Format
			if format == trace.FormatAuto {
				format = trace.FormatText
			}
			if err := ring.Dump(cmd.ErrOrStderr(), format); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}
