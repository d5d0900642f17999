package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/otcova/analog-simulator/pkg/solver"
)

// systemFile is the YAML layout accepted by "spice solve".
type systemFile struct {
	Matrix   [][]float64 `yaml:"matrix"`
	RHS      []float64   `yaml:"rhs"`
	SkipRows int         `yaml:"skip_rows"`
}

func newSolveCmd() *cobra.Command {
	solveCmd := &cobra.Command{
		Use:   "solve <system.yaml>",
		Short: "Solve a dense linear system A x = b",
		Long: `Solve reads {matrix: [[...]], rhs: [...], skip_rows: k} and prints x.

skip_rows declares that the first k rows already have zeros left of their
diagonal; -1 detects it.`,
		Args: cobra.ExactArgs(1),
		RunE: runSolve,
	}
	solveCmd.Flags().Bool("verify", false, "Print the largest residual |A x - b|")
	return solveCmd
}

func runSolve(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading system file: %w", err)
	}
	verify, _ := cmd.Flags().GetBool("verify")
	return solveSystem(cmd.OutOrStdout(), content, verify)
}

func solveSystem(w io.Writer, content []byte, verify bool) error {
	var sys systemFile
	if err := yaml.Unmarshal(content, &sys); err != nil {
		return fmt.Errorf("parsing system file: %w", err)
	}

	n := len(sys.RHS)
	a := make([]float64, 0, n*n)
	for i, row := range sys.Matrix {
		if len(row) != n {
			return fmt.Errorf("%w: row %d has %d values, rhs has %d", solver.ErrShapeMismatch, i, len(row), n)
		}
		a = append(a, row...)
	}

	origA := append([]float64(nil), a...)
	origB := append([]float64(nil), sys.RHS...)

	s, err := solver.New(a, sys.RHS)
	if err != nil {
		return err
	}

	skip := sys.SkipRows
	if skip < 0 {
		skip = solver.UpperTriangularRows(a, n)
	}
	if err := s.Solve(skip); err != nil {
		return err
	}

	for i, x := range sys.RHS {
		fmt.Fprintf(w, "x[%d] = %.15g\n", i, x)
	}

	if verify {
		res, err := solver.MaxResidual(origA, sys.RHS, origB)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "max residual = %.3e\n", res)
	}
	return nil
}
