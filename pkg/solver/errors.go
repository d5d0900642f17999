package solver

import "errors"

var (
	// ErrShapeMismatch is returned when the matrix is not n×n for a vector of length n.
	ErrShapeMismatch = errors.New("solver: matrix and vector shapes do not match")

	// ErrUnsolvable is returned when elimination finds no usable pivot for a column.
	// The buffers are left in a partially reduced state.
	ErrUnsolvable = errors.New("solver: system cannot be resolved, pivot not found")
)
