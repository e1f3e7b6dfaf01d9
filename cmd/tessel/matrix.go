package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"tessel/internal/coerce"
	"tessel/internal/hir"
	"tessel/internal/source"
	"tessel/internal/types"
)

var defaultMatrixTypes = []string{
	"int", "double", "string", "Cell.N", "Numeric", "Color",
	"Int", "any", "object", "Animal", "Dog",
}

var matrixCmd = &cobra.Command{
	Use:   "matrix [type...]",
	Short: "Print the cast matrix between types",
	Long: `Matrix casts every row type to every column type and prints the
conversion chain of each pair. "=" marks identity, "✗" a rejected cast.`,
	RunE: runMatrix,
}

func init() {
	matrixCmd.Flags().Bool("force", false, "allow explicit-only conversions")
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	identityStyle = cellStyle.Foreground(lipgloss.Color("8"))
	rejectStyle   = cellStyle.Foreground(lipgloss.Color("1"))
	categoryStyle = cellStyle.Foreground(lipgloss.Color("6"))
)

func runMatrix(cmd *cobra.Command, args []string) error {
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to get force flag: %w", err)
	}
	ins, err := loadInspection(cmd)
	if err != nil {
		return err
	}
	refs := args
	if len(refs) == 0 {
		refs = defaultMatrixTypes
	}
	tys := make([]types.TypeID, len(refs))
	for i, ref := range refs {
		if tys[i], err = ins.u.Types.Parse(ref, ins.scope, source.Span{}); err != nil {
			return reportFailure(cmd, ins.files, err)
		}
	}

	rows := castMatrix(coerce.New(ins.u.In), ins.u.In, tys, force)
	headers := append([]string{"from \\ to", "category"}, refs...)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(matrixStyle(rows))
	if !current.color {
		t = t.BorderStyle(lipgloss.NewStyle())
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return err
}

// castMatrix returns one row per source type: its name, its category, then
// the chain label of the cast to every type.
func castMatrix(eng *coerce.Engine, in *types.Interner, tys []types.TypeID, force bool) [][]string {
	rows := make([][]string, len(tys))
	for i, from := range tys {
		row := []string{in.Name(from), categoryOf(in, from)}
		x := hir.Local("x", 0, from, source.Span{})
		for _, to := range tys {
			res, err := eng.Cast(x, to, force)
			if err != nil {
				row = append(row, "✗")
				continue
			}
			row = append(row, chainLabel(res))
		}
		rows[i] = row
	}
	return rows
}

// matrixStyle styles the matrix cells. The header is row 0, so data row i
// of rows is table row i+1.
func matrixStyle(rows [][]string) func(row, col int) lipgloss.Style {
	return func(row, col int) lipgloss.Style {
		if row == 0 {
			return headerStyle
		}
		if col == 1 {
			return categoryStyle
		}
		if col > 1 && row <= len(rows) && col < len(rows[row-1]) {
			switch rows[row-1][col] {
			case "=":
				return identityStyle
			case "✗":
				return rejectStyle
			}
		}
		return cellStyle
	}
}
