// Package solver solves dense linear systems in place.
//
// A System borrows a row-major n×n matrix and a right-hand side of length n.
// Element (row y, column x) lives at a[x+y*n]. Solve overwrites b with the
// solution and leaves a as the identity. The caller owns both buffers and
// must not touch them from elsewhere while Solve runs.
package solver

import (
	"fmt"
	"math"
)

// PivotTolerance is the magnitude at or below which a diagonal entry is not
// used as a pivot.
const PivotTolerance = 1e-11

// System is a borrowed n×n system a·x = b, solved in place.
type System struct {
	a []float64
	b []float64
	n int
}

// New wraps a and b without copying; len(a) must be len(b) squared.
func New(a, b []float64) (*System, error) {
	if len(a) != len(b)*len(b) {
		return nil, fmt.Errorf("%w: matrix has %d values, vector has %d", ErrShapeMismatch, len(a), len(b))
	}
	return &System{a: a, b: b, n: len(b)}, nil
}

// MustNew is like New but panics when the shapes do not match.
func MustNew(a, b []float64) *System {
	s, err := New(a, b)
	if err != nil {
		panic(err)
	}
	return s
}

// Size returns n.
func (s *System) Size() int { return s.n }

// Solve runs forward elimination followed by back substitution.
//
// Rows below skipFirstNRows are the only ones eliminated for the leading
// columns; the caller asserts that rows 0..skipFirstNRows-1 already have
// zeros left of their diagonal. Zero means no skipping.
//
// On ErrUnsolvable the buffers are left partially reduced.
func (s *System) Solve(skipFirstNRows int) error {
	if err := s.gaussianElimination(skipFirstNRows); err != nil {
		return err
	}
	s.backSubstitution()
	return nil
}

func (s *System) gaussianElimination(skipFirstNRows int) error {
	n := s.n
	for x := 0; x < n-1; x++ {
		pivot, err := s.gaussianPivot(x)
		if err != nil {
			return err
		}

		for y := max(skipFirstNRows, x+1); y < n; y++ {
			weight := s.a[x+y*n] / pivot
			if weight == 0 {
				continue
			}
			s.weightedSubtraction(y, x, weight)
		}
	}

	// The last column has no rows left to repair from.
	if n > 0 && !usable(s.a[n*n-1]) {
		return fmt.Errorf("%w: no pivot for column %d", ErrUnsolvable, n-1)
	}
	return nil
}

// gaussianPivot returns a usable pivot for column x. A diagonal entry inside
// the tolerance band is repaired by subtracting the first lower row that has
// a usable entry in this column.
func (s *System) gaussianPivot(x int) (float64, error) {
	n := s.n
	pivot := s.a[x+x*n]
	if usable(pivot) {
		return pivot, nil
	}

	y := x + 1
	for ; y < n; y++ {
		if usable(s.a[x+y*n]) {
			break
		}
	}
	if y >= n {
		return 0, fmt.Errorf("%w: no pivot for column %d", ErrUnsolvable, x)
	}

	s.subtractRows(x, y)
	return s.a[x+x*n], nil
}

func usable(v float64) bool {
	return math.Abs(v) > PivotTolerance
}

func (s *System) backSubstitution() {
	n := s.n
	for x := n - 1; x >= 0; x-- {
		s.b[x] /= s.a[x+x*n]
		s.a[x+x*n] = 1

		for y := 0; y < x; y++ {
			s.b[y] -= s.a[x+y*n] * s.b[x]
			s.a[x+y*n] = 0
		}
	}
}

func (s *System) weightedSubtraction(dstRow, srcRow int, weight float64) {
	n := s.n
	dst := s.a[dstRow*n : dstRow*n+n]
	src := s.a[srcRow*n : srcRow*n+n]
	for x := range dst {
		dst[x] -= src[x] * weight
	}
	s.b[dstRow] -= s.b[srcRow] * weight
}

func (s *System) subtractRows(dstRow, srcRow int) {
	n := s.n
	dst := s.a[dstRow*n : dstRow*n+n]
	src := s.a[srcRow*n : srcRow*n+n]
	for x := range dst {
		dst[x] -= src[x]
	}
	s.b[dstRow] -= s.b[srcRow]
}
