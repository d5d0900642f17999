package matrix

import (
	"errors"
	"fmt"

	"github.com/edp1096/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/otcova/analog-simulator/pkg/solver"
)

const (
	BackendDense  = "dense"
	BackendSparse = "sparse"
	BackendLU     = "lu"
)

// AutoSkipRows asks the dense backend to detect the upper-triangular prefix
// of each assembled system and skip it during elimination.
const AutoSkipRows = -1

// Backend solves a row-major size×size system in place: a is scratch and b
// receives the solution.
type Backend interface {
	Name() string
	Solve(a, b []float64) error
	Destroy()
}

func newBackend(name string, size, skipRows int) (Backend, error) {
	switch name {
	case BackendDense, "":
		return &denseBackend{skipRows: skipRows}, nil
	case BackendSparse:
		return newSparseBackend(size)
	case BackendLU:
		return &luBackend{size: size}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}

// Backends lists the accepted backend names.
func Backends() []string {
	return []string{BackendDense, BackendSparse, BackendLU}
}

type denseBackend struct {
	skipRows int
	lastSkip int
}

func (d *denseBackend) Name() string { return BackendDense }

func (d *denseBackend) Solve(a, b []float64) error {
	sys, err := solver.New(a, b)
	if err != nil {
		return err
	}

	skip := d.skipRows
	if skip == AutoSkipRows {
		skip = solver.UpperTriangularRows(a, len(b))
	}
	d.lastSkip = skip

	if err := sys.Solve(skip); err != nil {
		if errors.Is(err, solver.ErrUnsolvable) {
			return fmt.Errorf("%w: %w", ErrSingular, err)
		}
		return err
	}
	return nil
}

func (d *denseBackend) Destroy() {}

type sparseBackend struct {
	size   int
	matrix *sparse.Matrix
}

func newSparseBackend(size int) (*sparseBackend, error) {
	if size == 0 {
		return &sparseBackend{}, nil
	}

	config := &sparse.Configuration{
		Real:           true,
		Expandable:     true,
		ModifiedNodal:  true,
		TiesMultiplier: 5,
		PrinterWidth:   140,
	}
	m, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %w", err)
	}

	// Allocate the full structure once so repeated factorizations keep it.
	for i := 1; i <= size; i++ {
		for j := 1; j <= size; j++ {
			m.GetElement(int64(i), int64(j))
		}
	}
	return &sparseBackend{size: size, matrix: m}, nil
}

func (s *sparseBackend) Name() string { return BackendSparse }

func (s *sparseBackend) Solve(a, b []float64) error {
	n := s.size
	if len(b) != n || len(a) != n*n {
		return fmt.Errorf("%w: sparse backend sized %d, got %d", solver.ErrShapeMismatch, n, len(b))
	}
	if n == 0 {
		return nil
	}

	s.matrix.Clear()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if v := a[j+i*n]; v != 0 {
				s.matrix.GetElement(int64(i+1), int64(j+1)).Real += v
			}
		}
	}

	if err := s.matrix.Factor(); err != nil {
		return fmt.Errorf("%w: %v", ErrSingular, err)
	}

	rhs := make([]float64, n+1)
	copy(rhs[1:], b)
	x, err := s.matrix.Solve(rhs)
	if err != nil {
		return fmt.Errorf("sparse solve: %w", err)
	}
	copy(b, x[1:n+1])
	return nil
}

func (s *sparseBackend) Destroy() {
	if s.matrix != nil {
		s.matrix.Destroy()
		s.matrix = nil
	}
}

type luBackend struct {
	size int
	lu   mat.LU
}

func (l *luBackend) Name() string { return BackendLU }

func (l *luBackend) Solve(a, b []float64) error {
	n := l.size
	if len(b) != n || len(a) != n*n {
		return fmt.Errorf("%w: lu backend sized %d, got %d", solver.ErrShapeMismatch, n, len(b))
	}
	if n == 0 {
		return nil
	}

	l.lu.Factorize(mat.NewDense(n, n, a))
	var x mat.VecDense
	if err := l.lu.SolveVecTo(&x, false, mat.NewVecDense(n, b)); err != nil {
		return fmt.Errorf("%w: %v", ErrSingular, err)
	}
	for i := 0; i < n; i++ {
		b[i] = x.AtVec(i)
	}
	return nil
}

func (l *luBackend) Destroy() {}
