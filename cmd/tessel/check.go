package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tessel/internal/diag"
	"tessel/internal/driver"
	"tessel/internal/lower"
)

var checkCmd = &cobra.Command{
	Use:   "check <universe.toml|universe.yaml>...",
	Short: "Compile every unit of one or more universe files",
	Long: `Check loads each universe file, compiles its units and reports every
unit outcome. Units carrying an expectation pass when they fail with the
expected diagnostic code.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().Int("jobs", 0, "max files checked in parallel (0=auto)")
	checkCmd.Flags().String("emit", "", "write msgpack-encoded programs of compiled units into this directory")
	checkCmd.Flags().Bool("dump", false, "print the register program of each compiled unit")
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	checkCmd.Flags().String("severity", "info", "lowest severity printed in pretty output (info|warning|error)")
	checkCmd.Flags().Bool("ui", false, "show a progress view while checking (terminal only)")
}

var errCheckFailed = errors.New("check failed")

var (
	okColor       = color.New(color.FgGreen)
	failColor     = color.New(color.FgRed, color.Bold)
	expectedColor = color.New(color.FgCyan)
)

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := current.cfg
	if cmd.Flags().Changed("jobs") {
		jobs, err := cmd.Flags().GetInt("jobs")
		if err != nil {
			return fmt.Errorf("failed to get jobs flag: %w", err)
		}
		cfg.Check.Jobs = jobs
	}
	emitDir := cfg.Check.Emit
	if cmd.Flags().Changed("emit") {
		dir, err := cmd.Flags().GetString("emit")
		if err != nil {
			return fmt.Errorf("failed to get emit flag: %w", err)
		}
		emitDir = dir
	}
	dump, err := cmd.Flags().GetBool("dump")
	if err != nil {
		return fmt.Errorf("failed to get dump flag: %w", err)
	}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
	sevFlag, err := cmd.Flags().GetString("severity")
	if err != nil {
		return fmt.Errorf("failed to get severity flag: %w", err)
	}
	minSeverity, err := diag.ParseSeverity(sevFlag)
	if err != nil {
		return err
	}
	withUI, err := cmd.Flags().GetBool("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}

	opts := driver.Options{
		MaxDiagnostics: cfg.Diagnostics.Max,
		Jobs:           cfg.Check.Jobs,
		Timings:        cfg.Check.Timings,
	}
	var results []driver.FileResult
	if withUI && isTerminal(os.Stdout) {
		results, err = runCheckWithUI(cmd.Context(), cmd.OutOrStdout(), args, opts)
	} else {
		results, err = driver.CheckFiles(cmd.Context(), args, opts)
	}
	if err != nil {
		return err
	}

	if emitDir != "" {
		for i := range results {
			if err := emitPrograms(emitDir, results[i].Path, results[i].Units); err != nil {
				return err
			}
		}
	}
	if format == "json" {
		if err := writeCheckJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
		return checkStatus(results)
	}

	out := cmd.OutOrStdout()
	for i := range results {
		res := &results[i]
		fmt.Fprintf(out, "%s\n", res.Path)
		for _, u := range res.Units {
			fmt.Fprintf(out, "  %-24s %s\n", u.Name, outcomeLabel(u.Outcome))
			if dump && u.Program != nil && res.Universe != nil {
				if err := u.Program.Dump(indent(out), res.Universe.In); err != nil {
					return fmt.Errorf("failed to dump %s: %w", u.Name, err)
				}
			}
		}
		if cfg.Check.Timings && res.UnitTiming != nil {
			fmt.Fprint(indent(out), res.UnitTiming.Summary())
		}
		if err := diag.Write(cmd.ErrOrStderr(), res.Bag, diag.FormatOptions{Color: current.color, Files: res.Files, MinSeverity: minSeverity}); err != nil {
			return fmt.Errorf("failed to write diagnostics: %w", err)
		}
	}
	return checkStatus(results)
}

func checkStatus(results []driver.FileResult) error {
	for i := range results {
		if results[i].Failed() {
			return errCheckFailed
		}
	}
	return nil
}

type unitJSON struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
}

type fileJSON struct {
	Path        string                 `json:"path"`
	Units       []unitJSON             `json:"units"`
	Diagnostics diag.DiagnosticsOutput `json:"diagnostics"`
}

func writeCheckJSON(w io.Writer, results []driver.FileResult) error {
	files := make([]fileJSON, len(results))
	for i := range results {
		res := &results[i]
		units := make([]unitJSON, len(res.Units))
		for j, u := range res.Units {
			units[j] = unitJSON{Name: u.Name, Outcome: u.Outcome.String()}
		}
		files[i] = fileJSON{Path: res.Path, Units: units, Diagnostics: diag.BuildOutput(res.Bag, res.Files)}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(files)
}

func outcomeLabel(o driver.Outcome) string {
	switch o {
	case driver.Compiled:
		return okColor.Sprint(o.String())
	case driver.Expected:
		return expectedColor.Sprint(o.String())
	default:
		return failColor.Sprint(o.String())
	}
}

// emitPrograms writes <dir>/<file>.<unit>.tsp for every compiled unit.
func emitPrograms(dir, path string, units []driver.UnitResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create emit directory: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, u := range units {
		if u.Program == nil {
			continue
		}
		name := filepath.Join(dir, base+"."+fileSafe(u.Name)+".tsp")
		if err := writeProgram(name, u.Program); err != nil {
			return err
		}
	}
	return nil
}

func writeProgram(name string, prog *lower.Program) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := prog.Encode(f); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return nil
}

func fileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}

type indentWriter struct {
	w   io.Writer
	bol bool
}

func indent(w io.Writer) io.Writer { return &indentWriter{w: w, bol: true} }

func (iw *indentWriter) Write(p []byte) (int, error) {
	for i, b := range p {
		if iw.bol {
			if _, err := io.WriteString(iw.w, "      "); err != nil {
				return i, err
			}
		}
		if _, err := iw.w.Write([]byte{b}); err != nil {
			return i, err
		}
		iw.bol = b == '\n'
	}
	return len(p), nil
}
