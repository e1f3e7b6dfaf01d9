package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tessel/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "tessel",
	Short: "Type coercion and expression lowering workbench",
	Long: `tessel loads declarative type universes, compiles their expression
units through cast/unify, overload resolution and register lowering, and
inspects the conversion rules between types.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupSession,
}

func init() {
	rootCmd.Version = version.Current()

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(castCmd)
	rootCmd.AddCommand(unifyCmd)
	rootCmd.AddCommand(matrixCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "path to tessel.toml (default: nearest one above the working directory)")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics per file")
	pf.Bool("timings", false, "append per-file timing diagnostics")
	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	pf.Int("trace-ring-size", 4096, "ring buffer capacity for ring trace mode")
	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to this file")
}

func main() {
	err := rootCmd.Execute()
	if ferr := current.finish(err != nil); ferr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", ferr)
		err = ferr
	}
	if err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
