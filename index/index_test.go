package index

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortResults(t *testing.T) {
	results := []SearchResult{
		{ID: 3, Distance: 0.5},
		{ID: 1, Distance: 0.1},
		{ID: 2, Distance: 0.5},
		{ID: 0, Distance: 2},
	}

	SortResults(results)

	assert.Equal(t, []SearchResult{
		{ID: 1, Distance: 0.1},
		{ID: 2, Distance: 0.5},
		{ID: 3, Distance: 0.5},
		{ID: 0, Distance: 2},
	}, results)
}

func TestValidateDimension(t *testing.T) {
	require.NoError(t, ValidateDimension([]float32{1, 2}, 2))

	err := ValidateDimension([]float32{1, 2, 3}, 2)
	var dm *ErrDimensionMismatch
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)
	assert.Equal(t, "dimension mismatch: expected 2, got 3", err.Error())
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "invalid dimension: 0", (&ErrInvalidDimension{}).Error())
	assert.Equal(t,
		"insufficient training data: need at least 4 vectors, got 2",
		(&ErrInsufficientTrainingData{Required: 4, Actual: 2}).Error(),
	)
}
