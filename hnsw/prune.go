package hnsw

import (
	"fmt"

	"github.com/hupe1980/annidx/distance"
	"github.com/hupe1980/annidx/index"
)

// PruningPolicy selects which reference an overflowing adjacency list drops.
type PruningPolicy int

const (
	// PruneInsertionOrder drops the oldest reference (the head of the list).
	PruneInsertionOrder PruningPolicy = iota

	// PruneFarthest drops the reference farthest from the list owner.
	PruneFarthest
)

// String returns the name of the policy.
func (p PruningPolicy) String() string {
	switch p {
	case PruneInsertionOrder:
		return "InsertionOrder"
	case PruneFarthest:
		return "Farthest"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// Pruner chooses the reference to evict from an adjacency list that exceeds M.
type Pruner interface {
	// Evict returns the position in conns of the reference to remove.
	// owner is the vector of the node that owns conns.
	Evict(owner []float32, conns []uint32, vectorOf func(id uint32) []float32, distFunc distance.Func) int
}

// NewPruner returns the built-in pruner for a policy.
func NewPruner(p PruningPolicy) (Pruner, error) {
	switch p {
	case PruneInsertionOrder:
		return InsertionOrderPruner{}, nil
	case PruneFarthest:
		return FarthestPruner{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown pruning policy %s", index.ErrInvalidParameter, p)
	}
}

// InsertionOrderPruner evicts the first entry of the list.
type InsertionOrderPruner struct{}

// Evict implements Pruner.
func (InsertionOrderPruner) Evict(_ []float32, _ []uint32, _ func(uint32) []float32, _ distance.Func) int {
	return 0
}

// FarthestPruner evicts the entry with the largest distance to the owner.
// Ties go to the earliest position.
type FarthestPruner struct{}

// Evict implements Pruner.
func (FarthestPruner) Evict(owner []float32, conns []uint32, vectorOf func(uint32) []float32, distFunc distance.Func) int {
	worst := 0
	worstDist := float32(-1)

	for i, id := range conns {
		if d := distFunc(owner, vectorOf(id)); d > worstDist {
			worst = i
			worstDist = d
		}
	}

	return worst
}
