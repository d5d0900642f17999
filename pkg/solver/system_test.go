package solver_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/otcova/analog-simulator/pkg/solver"
)

func referenceSystem() ([]float64, []float64) {
	a := []float64{
		-1000, 0, 0, 0, 0, -1, 0, 0, 1,
		0, -1000, 0, 0, 0, -1, 0, 1, 0,
		0, 0, -1000, 0, 0, 0, 0, 1, -1,
		0, 0, 0, -1000, 0, 0, 1, 0, -1,
		0, 0, 0, 0, -2000, 0, 1, -1, 0,
		0, 0, 0, 0, 0, 1, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 1, 0, 0,
		1, 0, -1, -1, 0, 0, 0, 0, 0,
		0, 1, 1, 0, -1, 0, 0, 0, 0,
	}
	b := []float64{0, 0, 0, 0, 0, 10, 0, 0, 0}
	return a, b
}

func identity(n int) []float64 {
	id := make([]float64, n*n)
	for i := 0; i < n; i++ {
		id[i+i*n] = 1
	}
	return id
}

func TestSolveReferenceSystem(t *testing.T) {
	want := []float64{
		-0.004615384615384615,
		-0.003846153846153847,
		0.0007692307692307683,
		-0.005384615384615385,
		-0.0030769230769230765,
		10.0,
		0.0,
		6.153846153846153,
		5.384615384615385,
	}

	for _, tc := range []struct {
		name string
		skip int
	}{
		{"no skip", 0},
		{"skip seven rows", 7},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a, b := referenceSystem()
			s, err := solver.New(a, b)
			require.NoError(t, err)
			require.NoError(t, s.Solve(tc.skip))

			assert.InDeltaSlice(t, identity(9), a, 1e-15)
			assert.InDeltaSlice(t, want, b, 1e-12)
		})
	}
}

func TestNewShapeMismatch(t *testing.T) {
	for _, tc := range []struct {
		name   string
		aLen   int
		bLen   int
		wantOK bool
	}{
		{"square", 9, 3, true},
		{"empty", 0, 0, true},
		{"too short", 8, 3, false},
		{"too long", 10, 3, false},
		{"not squared", 6, 3, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := make([]float64, tc.aLen)
			b := make([]float64, tc.bLen)
			for i := range a {
				a[i] = float64(i + 1)
			}
			for i := range b {
				b[i] = float64(i + 1)
			}
			aOrig := append([]float64(nil), a...)
			bOrig := append([]float64(nil), b...)

			s, err := solver.New(a, b)
			if tc.wantOK {
				require.NoError(t, err)
				assert.Equal(t, tc.bLen, s.Size())
				return
			}
			assert.ErrorIs(t, err, solver.ErrShapeMismatch)
			assert.Nil(t, s)
			assert.Equal(t, aOrig, a)
			assert.Equal(t, bOrig, b)
		})
	}
}

func TestMustNewPanics(t *testing.T) {
	assert.Panics(t, func() { solver.MustNew(make([]float64, 3), make([]float64, 2)) })
	assert.NotPanics(t, func() { solver.MustNew(make([]float64, 4), make([]float64, 2)) })
}

func TestSolveEmptySystem(t *testing.T) {
	s, err := solver.New(nil, nil)
	require.NoError(t, err)
	assert.NoError(t, s.Solve(0))
}

func TestSolveSolvedStateIsStable(t *testing.T) {
	a, b := referenceSystem()
	require.NoError(t, solver.MustNew(a, b).Solve(0))

	a2 := append([]float64(nil), a...)
	b2 := append([]float64(nil), b...)
	require.NoError(t, solver.MustNew(a2, b2).Solve(0))

	assert.Equal(t, a, a2)
	assert.Equal(t, b, b2)
}

// diagonallyDominant builds a random system whose diagonal outweighs each row.
func diagonallyDominant(rng *rand.Rand, n int) ([]float64, []float64) {
	a := make([]float64, n*n)
	b := make([]float64, n)
	for y := 0; y < n; y++ {
		sum := 0.0
		for x := 0; x < n; x++ {
			if x == y {
				continue
			}
			v := rng.Float64()*2 - 1
			a[x+y*n] = v
			sum += math.Abs(v)
		}
		a[y+y*n] = sum + 1 + rng.Float64()
		if rng.Intn(2) == 0 {
			a[y+y*n] = -a[y+y*n]
		}
		b[y] = rng.Float64()*20 - 10
	}
	return a, b
}

func TestSolveMatchesOriginalSystem(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, n := range []int{1, 2, 3, 5, 8, 13, 21} {
		a, b := diagonallyDominant(rng, n)
		aOrig := append([]float64(nil), a...)
		bOrig := append([]float64(nil), b...)

		require.NoError(t, solver.MustNew(a, b).Solve(0), "n=%d", n)

		res, err := solver.MaxResidual(aOrig, b, bOrig)
		require.NoError(t, err)
		scale := 1.0
		for _, v := range bOrig {
			scale = math.Max(scale, math.Abs(v))
		}
		assert.LessOrEqual(t, res, 1e-9*scale, "n=%d", n)

		// independent LU solve
		var x mat.VecDense
		require.NoError(t, x.SolveVec(mat.NewDense(n, n, aOrig), mat.NewVecDense(n, bOrig)))
		for i := 0; i < n; i++ {
			assert.InDelta(t, x.AtVec(i), b[i], 1e-9, "n=%d i=%d", n, i)
		}
	}
}

func TestSolveSkipRowsEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const n, k = 10, 4

	a, b := diagonallyDominant(rng, n)
	// upper-triangular leading block
	for y := 1; y < k; y++ {
		for x := 0; x < y; x++ {
			a[x+y*n] = 0
		}
	}
	require.Equal(t, k, solver.UpperTriangularRows(a, n))

	a0, b0 := append([]float64(nil), a...), append([]float64(nil), b...)
	ak, bk := append([]float64(nil), a...), append([]float64(nil), b...)

	require.NoError(t, solver.MustNew(a0, b0).Solve(0))
	require.NoError(t, solver.MustNew(ak, bk).Solve(k))

	assert.InDeltaSlice(t, b0, bk, 1e-12)
	assert.InDeltaSlice(t, identity(n), ak, 1e-15)
}

func TestSolveRepairsZeroPivot(t *testing.T) {
	a := []float64{
		0, 2, 1,
		1, 1, 0,
		2, 0, 3,
	}
	b := []float64{7, 3, 11}
	aOrig := append([]float64(nil), a...)
	bOrig := append([]float64(nil), b...)

	require.NoError(t, solver.MustNew(a, b).Solve(0))

	res, err := solver.MaxResidual(aOrig, b, bOrig)
	require.NoError(t, err)
	assert.Less(t, res, 1e-12)
	assert.InDeltaSlice(t, []float64{1, 2, 3}, b, 1e-12)
}

func TestSolveUnsolvable(t *testing.T) {
	for _, tc := range []struct {
		name string
		a    []float64
		b    []float64
	}{
		{
			name: "empty first column",
			a: []float64{
				0, 1, 0,
				0, 1, 1,
				0, 0, 1,
			},
			b: []float64{1, 2, 3},
		},
		{
			name: "column below tolerance",
			a: []float64{
				1e-13, 1, 0,
				-1e-12, 1, 1,
				5e-12, 0, 1,
			},
			b: []float64{1, 2, 3},
		},
		{
			name: "dependent rows",
			a: []float64{
				1, 2,
				2, 4,
			},
			b: []float64{1, 1},
		},
		{
			name: "single zero",
			a:    []float64{0},
			b:    []float64{4},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := solver.MustNew(tc.a, tc.b).Solve(0)
			assert.ErrorIs(t, err, solver.ErrUnsolvable)
		})
	}
}

func TestUpperTriangularRows(t *testing.T) {
	a, _ := referenceSystem()
	assert.Equal(t, 7, solver.UpperTriangularRows(a, 9))
	assert.Equal(t, 4, solver.UpperTriangularRows(identity(4), 4))
	assert.Equal(t, 0, solver.UpperTriangularRows(nil, 0))
	assert.Equal(t, 0, solver.UpperTriangularRows(make([]float64, 5), 2))
	assert.Equal(t, 1, solver.UpperTriangularRows([]float64{1, 0, 1, 1}, 2))
}

func TestResidual(t *testing.T) {
	a := []float64{
		2, 0,
		1, 3,
	}
	r, err := solver.Residual(a, []float64{1, 1}, []float64{2, 5})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, -1}, r)

	_, err = solver.Residual(a, []float64{1}, []float64{2, 5})
	assert.ErrorIs(t, err, solver.ErrShapeMismatch)

	m, err := solver.MaxResidual(a, []float64{1, 1}, []float64{2, 5})
	require.NoError(t, err)
	assert.Equal(t, 1.0, m)
}
