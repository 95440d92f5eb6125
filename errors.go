package annidx

import "github.com/hupe1980/annidx/index"

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = index.ErrInvalidK

	// ErrUntrained is returned when an IVF index is used before Train.
	ErrUntrained = index.ErrUntrained

	// ErrAlreadyTrained is returned when Train is called twice.
	ErrAlreadyTrained = index.ErrAlreadyTrained

	// ErrInvalidParameter is returned for out-of-range configuration or arguments.
	ErrInvalidParameter = index.ErrInvalidParameter

	// ErrNotFound is returned when an identifier is unknown.
	ErrNotFound = index.ErrNotFound
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
type ErrDimensionMismatch = index.ErrDimensionMismatch

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension = index.ErrInvalidDimension

// ErrInsufficientTrainingData indicates Train received fewer vectors than clusters.
type ErrInsufficientTrainingData = index.ErrInsufficientTrainingData
