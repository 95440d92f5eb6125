package searcher

import (
	"sync"

	"github.com/hupe1980/annidx/index"
)

// Searcher is a reusable execution context for vector search operations.
// It owns all scratch memory required for a layer traversal.
//
// Searcher is NOT thread-safe. It is intended to be owned by a single goroutine
// during a search operation.
type Searcher struct {
	// Visited tracks visited nodes during graph traversal.
	Visited *VisitedSet

	// Candidates is a max-heap holding the best results found so far (bounded by ef).
	Candidates *PriorityQueue

	// ScratchCandidates is a min-heap of nodes still to expand.
	ScratchCandidates *PriorityQueue

	// Results is a reusable buffer for the sorted output of a traversal.
	Results []index.SearchResult

	// DistanceComputations counts distance evaluations since the last Reset.
	DistanceComputations int

	// visited accumulates visited-set sizes of completed layer traversals.
	visited int
}

var searcherPool = sync.Pool{
	New: func() any {
		return NewSearcher(1024, 128)
	},
}

// NewSearcher creates a new searcher with the given initial capacities.
func NewSearcher(visitedCap, queueCap int) *Searcher {
	return &Searcher{
		Visited:           NewVisitedSet(visitedCap),
		Candidates:        NewPriorityQueue(true),  // MaxHeap for results (keep smallest)
		ScratchCandidates: NewPriorityQueue(false), // MinHeap for exploration (explore closest)
		Results:           make([]index.SearchResult, 0, queueCap),
	}
}

// Get returns a Searcher from the pool.
func Get() *Searcher {
	s := searcherPool.Get().(*Searcher)
	s.Reset()
	return s
}

// Put returns a Searcher to the pool.
func Put(s *Searcher) {
	searcherPool.Put(s)
}

// Reset clears the searcher state and its work counters for reuse.
func (s *Searcher) Reset() {
	s.ResetLayer()
	s.DistanceComputations = 0
	s.visited = 0
}

// ResetLayer clears the scratch state between the level traversals of one search.
// Work counters keep accumulating.
func (s *Searcher) ResetLayer() {
	s.visited += s.Visited.Count()
	s.Visited.Reset()
	s.Candidates.Reset()
	s.ScratchCandidates.Reset()
	s.Results = s.Results[:0]
}

// Stats returns the work done since the last Reset.
func (s *Searcher) Stats() index.SearchStats {
	return index.SearchStats{
		DistanceComputations: s.DistanceComputations,
		NodesVisited:         s.visited + s.Visited.Count(),
	}
}

// DrainSorted empties Candidates into Results ordered by ascending distance (ties by id).
func (s *Searcher) DrainSorted() []index.SearchResult {
	s.Results = s.Results[:0]
	for _, item := range s.Candidates.Items() {
		s.Results = append(s.Results, index.SearchResult{ID: item.Node, Distance: item.Distance})
	}
	s.Candidates.Reset()
	index.SortResults(s.Results)
	return s.Results
}
