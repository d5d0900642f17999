package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaussianPivotKeepsUsableDiagonal(t *testing.T) {
	a := []float64{
		-3, 1,
		4, 2,
	}
	b := []float64{1, 2}
	s := MustNew(a, b)

	pivot, err := s.gaussianPivot(0)
	require.NoError(t, err)
	assert.Equal(t, -3.0, pivot)
	assert.Equal(t, []float64{-3, 1, 4, 2}, a)
	assert.Equal(t, []float64{1, 2}, b)
}

func TestGaussianPivotSubtractsCandidateRow(t *testing.T) {
	a := []float64{
		1e-12, 2, 1,
		0, 1, 0,
		2, 0, 3,
	}
	b := []float64{7, 3, 11}
	s := MustNew(a, b)

	pivot, err := s.gaussianPivot(0)
	require.NoError(t, err)
	assert.InDelta(t, -2.0, pivot, 1e-11)

	// row 1 has no usable entry, row 2 is merged into row 0
	assert.InDeltaSlice(t, []float64{1e-12 - 2, 2, -2}, a[0:3], 1e-15)
	assert.Equal(t, []float64{0, 1, 0, 2, 0, 3}, a[3:])
	assert.Equal(t, []float64{-4, 3, 11}, b)
}

func TestGaussianPivotExhausted(t *testing.T) {
	a := []float64{
		1, 0, 0,
		0, 0, 1,
		0, 1e-12, 1,
	}
	s := MustNew(a, []float64{1, 2, 3})

	_, err := s.gaussianPivot(1)
	assert.ErrorIs(t, err, ErrUnsolvable)
}

func TestRowSubtraction(t *testing.T) {
	a := []float64{
		1, 2,
		3, 4,
	}
	b := []float64{5, 6}
	s := MustNew(a, b)

	s.weightedSubtraction(1, 0, 3)
	assert.Equal(t, []float64{1, 2, 0, -2}, a)
	assert.Equal(t, []float64{5, -9}, b)

	s.subtractRows(0, 1)
	assert.Equal(t, []float64{1, 4, 0, -2}, a)
	assert.Equal(t, []float64{14, -9}, b)
}
