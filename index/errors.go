package index

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrUntrained is returned when a clustered index is used before training.
	ErrUntrained = errors.New("index is not trained")

	// ErrAlreadyTrained is returned when training is attempted a second time.
	ErrAlreadyTrained = errors.New("index is already trained")

	// ErrInvalidParameter is returned for out-of-range construction or search parameters.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNotFound is returned when an identifier does not refer to an inserted vector.
	ErrNotFound = errors.New("not found")
)

// ErrDimensionMismatch is a named error type for dimension mismatch
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// ErrInsufficientTrainingData is returned when fewer training vectors than clusters are supplied.
type ErrInsufficientTrainingData struct {
	Required int
	Actual   int
}

func (e *ErrInsufficientTrainingData) Error() string {
	return fmt.Sprintf("insufficient training data: need at least %d vectors, got %d", e.Required, e.Actual)
}
