package solver

import (
	"fmt"

	"github.com/viterin/vek"
)

// UpperTriangularRows reports how many leading rows of the row-major n×n
// matrix a have only zeros left of their diagonal. The result is the largest
// skip value Solve can be given for this matrix.
func UpperTriangularRows(a []float64, n int) int {
	if n <= 0 || len(a) != n*n {
		return 0
	}

	for y := 1; y < n; y++ {
		for x := 0; x < y; x++ {
			if a[x+y*n] != 0 {
				return y
			}
		}
	}
	return n
}

// Residual returns A·x - b for the row-major matrix a. It does not modify
// its arguments.
func Residual(a, x, b []float64) ([]float64, error) {
	n := len(b)
	if len(x) != n || len(a) != n*n {
		return nil, fmt.Errorf("%w: matrix %d, solution %d, rhs %d", ErrShapeMismatch, len(a), len(x), n)
	}

	r := make([]float64, n)
	for y := 0; y < n; y++ {
		r[y] = vek.Dot(a[y*n:y*n+n], x) - b[y]
	}
	return r, nil
}

// MaxResidual is the largest absolute entry of Residual(a, x, b).
func MaxResidual(a, x, b []float64) (float64, error) {
	r, err := Residual(a, x, b)
	if err != nil {
		return 0, err
	}
	if len(r) == 0 {
		return 0, nil
	}
	vek.Abs_Inplace(r)
	return vek.Max(r), nil
}
