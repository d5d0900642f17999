package matrix

import (
	"fmt"
	"io"
	"math"
)

// CircuitMatrix assembles the MNA system of a circuit. Stamps accumulate
// in a row-major size×size buffer; Solve hands a copy to the backend so the
// assembled system survives for printing and re-solving.
type CircuitMatrix struct {
	Size     int
	a        []float64 // row-major, 0-based
	rhs      []float64 // 1-based, rhs[0] unused
	solution []float64 // 1-based, solution[0] is ground

	scratchA []float64
	scratchB []float64

	backend  Backend
	skipRows int
	solves   int
	err      error
}

type Option func(*CircuitMatrix)

// WithBackend selects the solver backend by name (see Backends).
func WithBackend(name string) Option {
	return func(m *CircuitMatrix) { m.backend, m.err = newBackend(name, m.Size, m.skipRows) }
}

// WithSkipRows sets how many leading equations the dense backend treats as
// already eliminated. AutoSkipRows detects it per solve.
func WithSkipRows(rows int) Option {
	return func(m *CircuitMatrix) {
		m.skipRows = rows
		if d, ok := m.backend.(*denseBackend); ok {
			d.skipRows = rows
		}
	}
}

func NewMatrix(size int, opts ...Option) (*CircuitMatrix, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrIndexOutOfRange, size)
	}

	m := &CircuitMatrix{
		Size:     size,
		a:        make([]float64, size*size),
		rhs:      make([]float64, size+1), // 1-based indexing
		solution: make([]float64, size+1),
		scratchA: make([]float64, size*size),
		scratchB: make([]float64, size),
		backend:  &denseBackend{},
	}
	for _, opt := range opts {
		opt(m)
		if m.err != nil {
			return nil, m.err
		}
	}
	return m, nil
}

func (m *CircuitMatrix) AddElement(i, j int, value float64) {
	if i <= 0 || j <= 0 || i > m.Size || j > m.Size {
		m.fail(fmt.Errorf("%w: element (%d,%d), size %d", ErrIndexOutOfRange, i, j, m.Size))
		return
	}
	m.a[(j-1)+(i-1)*m.Size] += value
}

func (m *CircuitMatrix) AddRHS(i int, value float64) {
	if i <= 0 || i > m.Size {
		m.fail(fmt.Errorf("%w: rhs %d, size %d", ErrIndexOutOfRange, i, m.Size))
		return
	}
	m.rhs[i] += value
}

func (m *CircuitMatrix) fail(err error) {
	if m.err == nil {
		m.err = err
	}
}

// Element returns the assembled coefficient at 1-based (i, j).
func (m *CircuitMatrix) Element(i, j int) float64 {
	if i <= 0 || j <= 0 || i > m.Size || j > m.Size {
		return 0
	}
	return m.a[(j-1)+(i-1)*m.Size]
}

// LoadGmin adds gmin to the first rows diagonal entries, normally the node
// equations.
func (m *CircuitMatrix) LoadGmin(gmin float64, rows int) {
	if gmin == 0 {
		return
	}
	for i := 0; i < min(rows, m.Size); i++ {
		m.a[i+i*m.Size] += gmin
	}
}

func (m *CircuitMatrix) Clear() {
	clear(m.a)
	clear(m.rhs)
	m.err = nil
}

func (m *CircuitMatrix) Solve() error {
	if m.err != nil {
		return m.err
	}

	copy(m.scratchA, m.a)
	copy(m.scratchB, m.rhs[1:])
	if err := m.backend.Solve(m.scratchA, m.scratchB); err != nil {
		return fmt.Errorf("%s backend: %w", m.backend.Name(), err)
	}

	m.solution[0] = 0
	copy(m.solution[1:], m.scratchB)
	m.solves++
	return nil
}

func (m *CircuitMatrix) RHS() []float64 {
	return m.rhs
}

func (m *CircuitMatrix) Solution() []float64 {
	return m.solution
}

// System returns copies of the assembled matrix (row-major) and rhs in
// 0-based layout.
func (m *CircuitMatrix) System() ([]float64, []float64) {
	a := make([]float64, len(m.a))
	copy(a, m.a)
	b := make([]float64, m.Size)
	copy(b, m.rhs[1:])
	return a, b
}

func (m *CircuitMatrix) BackendName() string { return m.backend.Name() }

// Solves is the number of successful solves since creation.
func (m *CircuitMatrix) Solves() int { return m.solves }

// LastSkipRows reports the skip value used by the most recent dense solve,
// or 0 for other backends.
func (m *CircuitMatrix) LastSkipRows() int {
	if d, ok := m.backend.(*denseBackend); ok {
		return d.lastSkip
	}
	return 0
}

func (m *CircuitMatrix) PrintSystem(w io.Writer) {
	fmt.Fprintf(w, "\nCircuit Equations (%dx%d):\n", m.Size, m.Size)
	fmt.Fprintln(w, "Node equations 1..n, followed by branch equations")

	for i := 1; i <= m.Size; i++ {
		fmt.Fprintf(w, "Equation %d:", i)
		rowHasElements := false
		for j := 1; j <= m.Size; j++ {
			if v := m.Element(i, j); v != 0 {
				fmt.Fprintf(w, "  %+g*x%d", v, j)
				rowHasElements = true
			}
		}
		if !rowHasElements {
			fmt.Fprint(w, "  (empty)")
		}
		fmt.Fprintf(w, " = %g\n", m.rhs[i])
	}

	m.printSummary(w)
}

func (m *CircuitMatrix) printSummary(w io.Writer) {
	maxElement := 0.0
	minElement := math.MaxFloat64
	maxPivot := 0.0
	minPivot := math.MaxFloat64
	elementCount := 0

	for i := 1; i <= m.Size; i++ {
		for j := 1; j <= m.Size; j++ {
			value := math.Abs(m.Element(i, j))
			if value == 0 {
				continue
			}
			elementCount++
			maxElement = math.Max(maxElement, value)
			minElement = math.Min(minElement, value)
			if i == j {
				maxPivot = math.Max(maxPivot, value)
				minPivot = math.Min(minPivot, value)
			}
		}
	}
	if elementCount == 0 {
		minElement = 0
	}
	if minPivot == math.MaxFloat64 {
		minPivot = 0
	}

	fmt.Fprintln(w, "\nMATRIX SUMMARY")
	fmt.Fprintf(w, "Size of matrix = %d x %d\n", m.Size, m.Size)
	fmt.Fprintf(w, "Backend = %s\n", m.backend.Name())
	fmt.Fprintf(w, "Largest element in matrix = %g\n", maxElement)
	fmt.Fprintf(w, "Smallest element in matrix = %g\n", minElement)
	fmt.Fprintf(w, "Largest pivot element = %g\n", maxPivot)
	fmt.Fprintf(w, "Smallest pivot element = %g\n", minPivot)
	if m.Size > 0 {
		fmt.Fprintf(w, "Density = %.2f%%\n", float64(elementCount)*100/float64(m.Size*m.Size))
	}
}

func (m *CircuitMatrix) Destroy() {
	if m.backend != nil {
		m.backend.Destroy()
	}
}
