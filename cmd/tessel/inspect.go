package main

import (
	_ "embed"
	"fmt"

	"github.com/spf13/cobra"

	"tessel/internal/coerce"
	"tessel/internal/diag"
	"tessel/internal/hir"
	"tessel/internal/source"
	"tessel/internal/trace"
	"tessel/internal/types"
	"tessel/internal/universe"
)

//go:embed sample.toml
var sampleUniverse []byte

var castCmd = &cobra.Command{
	Use:   "cast <from> <to>",
	Short: "Show the conversion chain from one type to another",
	Args:  cobra.ExactArgs(2),
	RunE:  runCast,
}

var unifyCmd = &cobra.Command{
	Use:   "unify <left> <right>",
	Short: "Show how two operand types are brought to a common type",
	Args:  cobra.ExactArgs(2),
	RunE:  runUnify,
}

func init() {
	for _, c := range []*cobra.Command{castCmd, unifyCmd, matrixCmd} {
		c.Flags().String("universe", "", "universe file declaring the types (default: built-in sample)")
	}
	castCmd.Flags().Bool("force", false, "allow explicit-only conversions")
}

// inspection is a loaded universe plus the source set its spans refer to.
type inspection struct {
	u     *universe.Universe
	files *source.Set
	scope universe.Scope
}

func loadInspection(cmd *cobra.Command) (*inspection, error) {
	path, err := cmd.Flags().GetString("universe")
	if err != nil {
		return nil, fmt.Errorf("failed to get universe flag: %w", err)
	}
	tracer := trace.FromContext(cmd.Context())
	files := source.NewSet()
	var u *universe.Universe
	if path != "" {
		u, err = universe.LoadFile(path, files, tracer)
	} else {
		var f *universe.File
		f, err = universe.Decode(sampleUniverse, universe.FormatTOML)
		if err == nil {
			u, err = universe.Build(f, "sample.toml", files, tracer)
		}
	}
	if err != nil {
		return nil, reportFailure(cmd, files, err)
	}
	return &inspection{u: u, files: files, scope: u.ParamScope()}, nil
}

func (ins *inspection) operand(cmd *cobra.Command, name, ref string, slot uint32) (*hir.Expr, error) {
	ty, err := ins.u.Types.Parse(ref, ins.scope, source.Span{})
	if err != nil {
		return nil, reportFailure(cmd, ins.files, err)
	}
	return hir.Local(name, slot, ty, source.Span{}), nil
}

// reportFailure prints diagnostic errors the way check does and returns a
// short error for cobra.
func reportFailure(cmd *cobra.Command, files *source.Set, err error) error {
	if _, ok := diag.AsError(err); !ok {
		return err
	}
	bag := diag.NewBag(0)
	diag.ReportErr(diag.BagReporter{Bag: bag}, err)
	if werr := diag.Write(cmd.ErrOrStderr(), bag, diag.FormatOptions{Color: current.color, Files: files}); werr != nil {
		return werr
	}
	return errCheckFailed
}

func runCast(cmd *cobra.Command, args []string) error {
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to get force flag: %w", err)
	}
	ins, err := loadInspection(cmd)
	if err != nil {
		return err
	}
	x, err := ins.operand(cmd, "x", args[0], 0)
	if err != nil {
		return err
	}
	to, err := ins.u.Types.Parse(args[1], ins.scope, source.Span{})
	if err != nil {
		return reportFailure(cmd, ins.files, err)
	}
	res, err := coerce.New(ins.u.In).Cast(x, to, force)
	if err != nil {
		return reportFailure(cmd, ins.files, err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s -> %s (%s)\n", ins.u.In.Name(x.Type), ins.u.In.Name(to), chainLabel(res))
	return hir.Format(out, ins.u.In, res)
}

func runUnify(cmd *cobra.Command, args []string) error {
	ins, err := loadInspection(cmd)
	if err != nil {
		return err
	}
	l, err := ins.operand(cmd, "l", args[0], 0)
	if err != nil {
		return err
	}
	r, err := ins.operand(cmd, "r", args[1], 1)
	if err != nil {
		return err
	}
	res, err := coerce.New(ins.u.In).UnifyTypes(l, r)
	if err != nil {
		return reportFailure(cmd, ins.files, err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "common type: %s\n", ins.u.In.Name(res.Result))
	if !res.Changed {
		fmt.Fprintln(out, "operands unchanged")
		return nil
	}
	fmt.Fprintln(out, "left:")
	if err := hir.Format(out, ins.u.In, res.Left); err != nil {
		return err
	}
	fmt.Fprintln(out, "right:")
	return hir.Format(out, ins.u.In, res.Right)
}

// chainLabel names the conversion nodes wrapped around the operand, inner
// first; "=" when the operand comes back unchanged.
func chainLabel(e *hir.Expr) string {
	var kinds []string
	for e != nil && e.Kind != hir.ExprLocal {
		kinds = append(kinds, e.Kind.String())
		children := hir.Children(e)
		if len(children) == 0 {
			break
		}
		e = children[0]
	}
	if len(kinds) == 0 {
		return "="
	}
	label := kinds[len(kinds)-1]
	for i := len(kinds) - 2; i >= 0; i-- {
		label += ">" + kinds[i]
	}
	return label
}

// categoryOf classifies t for display.
func categoryOf(in *types.Interner, t types.TypeID) string {
	c, err := in.Classify(t)
	if err != nil {
		return "?"
	}
	return c.String()
}
