package index

import (
	"cmp"
	"context"
	"slices"
)

// SearchResult represents a search result.
type SearchResult struct {
	// ID is the insertion-order identifier of the result vector.
	ID uint32

	// Distance is the distance between the query vector and the result vector.
	Distance float32
}

// SearchStats describes the work done by a single search.
type SearchStats struct {
	// DistanceComputations counts every distance evaluated, including centroid distances.
	DistanceComputations int

	// NodesVisited counts the graph nodes or list members examined.
	NodesVisited int
}

// Index represents an index for vector search.
type Index interface {
	// Insert adds a vector to the index and returns its identifier.
	Insert(ctx context.Context, v []float32) (uint32, error)

	// Search returns at most k results ordered by ascending distance.
	Search(ctx context.Context, q []float32, k int) ([]SearchResult, error)

	// Dimension returns the configured vector dimension.
	Dimension() int

	// Len returns the number of inserted vectors.
	Len() int
}

// SortResults orders results by ascending distance, breaking ties by ID.
func SortResults(results []SearchResult) {
	slices.SortFunc(results, func(a, b SearchResult) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// ValidateDimension returns an ErrDimensionMismatch if v does not have dim components.
func ValidateDimension(v []float32, dim int) error {
	if len(v) != dim {
		return &ErrDimensionMismatch{Expected: dim, Actual: len(v)}
	}
	return nil
}
