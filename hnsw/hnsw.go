package hnsw

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/annidx/distance"
	"github.com/hupe1980/annidx/index"
	"github.com/hupe1980/annidx/internal/searcher"
)

const (
	// DefaultM is the default number of neighbors kept per node per level.
	DefaultM = 16

	// DefaultEFConstruction is the default search breadth used while inserting.
	DefaultEFConstruction = 200

	// levelProbability is the chance of promoting a new node one more level.
	levelProbability = 0.5
)

// Compile time check to ensure HNSW satisfies the index interface.
var _ index.Index = (*HNSW)(nil)

// Options represents the options for configuring HNSW.
type Options struct {
	// Dimension is the length of every vector in the index.
	Dimension int

	// M is the maximum number of neighbors an existing node keeps per level.
	// When a new node links back to an existing node and the list grows beyond M,
	// one reference is evicted according to Pruning.
	M int

	// EFConstruction is the search breadth used to find neighbors during insertion.
	// Every candidate found becomes a neighbor of the new node.
	EFConstruction int

	// EFSearch is the default search breadth at level 0. Zero means "use k".
	EFSearch int

	// Pruning selects the eviction policy applied to overflowing adjacency lists.
	Pruning PruningPolicy

	// Pruner overrides Pruning with a custom eviction policy.
	Pruner Pruner

	// RandomSeed seeds level sampling. Ignored when Rand is set.
	RandomSeed *int64

	// Rand is the random source used for level sampling. The index takes ownership.
	Rand *rand.Rand

	// DistanceFunc calculates the distance between two vectors.
	DistanceFunc distance.Func
}

// DefaultOptions contains the default options for HNSW.
var DefaultOptions = Options{
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
	Pruning:        PruneInsertionOrder,
	DistanceFunc:   distance.Euclidean,
}

// node is one arena slot: the vector and its adjacency list per level (0..level).
type node struct {
	vector      []float32
	connections [][]uint32
}

func (n *node) level() int {
	return len(n.connections) - 1
}

// HNSW represents the Hierarchical Navigable Small World graph.
//
// Insert is exclusive; searches run concurrently with each other.
type HNSW struct {
	dimension      int
	m              int
	efConstruction int
	efSearch       int
	distanceFunc   distance.Func
	pruner         Pruner
	opts           Options

	mu         sync.RWMutex
	rng        *rand.Rand
	nodes      []node
	entryPoint uint32
	maxLevel   int // -1 while the graph is empty
}

// New creates a new HNSW instance.
func New(optFns ...func(o *Options)) (*HNSW, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Dimension <= 0 {
		return nil, &index.ErrInvalidDimension{Dimension: opts.Dimension}
	}
	if opts.M < 1 {
		return nil, fmt.Errorf("%w: M must be positive, got %d", index.ErrInvalidParameter, opts.M)
	}
	if opts.EFConstruction < 1 {
		return nil, fmt.Errorf("%w: EFConstruction must be positive, got %d", index.ErrInvalidParameter, opts.EFConstruction)
	}
	if opts.EFSearch < 0 {
		return nil, fmt.Errorf("%w: EFSearch must not be negative, got %d", index.ErrInvalidParameter, opts.EFSearch)
	}
	if opts.DistanceFunc == nil {
		opts.DistanceFunc = distance.Euclidean
	}

	pruner := opts.Pruner
	if pruner == nil {
		var err error
		if pruner, err = NewPruner(opts.Pruning); err != nil {
			return nil, err
		}
	}

	rng := opts.Rand
	if rng == nil {
		seed := time.Now().UnixNano()
		if opts.RandomSeed != nil {
			seed = *opts.RandomSeed
		}
		rng = rand.New(rand.NewSource(seed)) // nolint gosec
	}

	return &HNSW{
		dimension:      opts.Dimension,
		m:              opts.M,
		efConstruction: opts.EFConstruction,
		efSearch:       opts.EFSearch,
		distanceFunc:   opts.DistanceFunc,
		pruner:         pruner,
		opts:           opts,
		rng:            rng,
		maxLevel:       -1,
	}, nil
}

// randomLevel draws a level from a geometric distribution with p = 1/2.
func (h *HNSW) randomLevel() int {
	level := 0
	for h.rng.Float64() < levelProbability {
		level++
	}
	return level
}

// Insert adds a vector to the graph and returns its identifier (insertion order).
func (h *HNSW) Insert(ctx context.Context, v []float32) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := index.ValidateDimension(v, h.dimension); err != nil {
		return 0, err
	}

	// Copy so later changes by the caller do not affect the node
	vec := slices.Clone(v)

	h.mu.Lock()
	defer h.mu.Unlock()

	id := uint32(len(h.nodes))
	level := h.randomLevel()

	h.nodes = append(h.nodes, node{
		vector:      vec,
		connections: make([][]uint32, level+1),
	})

	if h.maxLevel < 0 {
		h.entryPoint = id
		h.maxLevel = level
		return id, nil
	}

	s := searcher.Get()
	defer searcher.Put(s)

	// Single-candidate descent through the levels the new node does not reach
	currID := h.entryPoint
	for l := h.maxLevel; l > level; l-- {
		currID = h.searchLayer(s, vec, currID, 1, l)[0].ID
	}

	for l := min(level, h.maxLevel); l >= 0; l-- {
		candidates := h.searchLayer(s, vec, currID, h.efConstruction, l)

		conns := make([]uint32, len(candidates))
		for i, c := range candidates {
			conns[i] = c.ID
		}
		h.nodes[id].connections[l] = conns

		for _, neighbor := range conns {
			h.link(neighbor, id, l)
		}

		currID = conns[0]
	}

	// Most recent node wins when it raises the top level
	if level > h.maxLevel {
		h.entryPoint = id
		h.maxLevel = level
	}

	return id, nil
}

// link appends target to the adjacency list of owner at level and prunes the list back to M.
func (h *HNSW) link(owner, target uint32, level int) {
	n := &h.nodes[owner]
	conns := append(n.connections[level], target)

	if len(conns) > h.m {
		i := h.pruner.Evict(n.vector, conns, h.vectorOf, h.distanceFunc)
		conns = slices.Delete(conns, i, i+1)
	}

	n.connections[level] = conns
}

func (h *HNSW) vectorOf(id uint32) []float32 {
	return h.nodes[id].vector
}

// searchLayer performs a best-first search in a single level of the graph.
// The returned slice is owned by s and sorted by ascending distance.
func (h *HNSW) searchLayer(s *searcher.Searcher, q []float32, entry uint32, ef int, level int) []index.SearchResult {
	s.ResetLayer()

	if int(entry) >= len(h.nodes) {
		return s.Results
	}

	epDist := h.distanceFunc(q, h.nodes[entry].vector)
	s.DistanceComputations++

	s.Visited.Visit(entry)
	s.ScratchCandidates.PushItem(searcher.PriorityQueueItem{Node: entry, Distance: epDist})
	s.Candidates.PushItem(searcher.PriorityQueueItem{Node: entry, Distance: epDist})

	candidates := s.ScratchCandidates
	results := s.Candidates

	for candidates.Len() > 0 {
		curr, _ := candidates.PopItem()

		// Stop once the closest unexpanded candidate cannot improve a full result set
		if results.Len() >= ef {
			worst, _ := results.TopItem()
			if curr.Distance > worst.Distance {
				break
			}
		}

		currNode := &h.nodes[curr.Node]
		if currNode.level() < level {
			continue
		}

		for _, next := range currNode.connections[level] {
			if !s.Visited.Visit(next) {
				continue
			}

			nextDist := h.distanceFunc(q, h.nodes[next].vector)
			s.DistanceComputations++

			if results.Len() >= ef {
				worst, _ := results.TopItem()
				if nextDist >= worst.Distance {
					continue
				}
			}

			item := searcher.PriorityQueueItem{Node: next, Distance: nextDist}
			candidates.PushItem(item)
			results.PushItemBounded(item, ef)
		}
	}

	return s.DrainSorted()
}

// greedyDescend walks from the entry point down to level 1 with a breadth of one.
func (h *HNSW) greedyDescend(s *searcher.Searcher, q []float32) uint32 {
	currID := h.entryPoint
	for l := h.maxLevel; l > 0; l-- {
		currID = h.searchLayer(s, q, currID, 1, l)[0].ID
	}
	return currID
}

// Search returns the k nearest neighbors of q using the configured search breadth.
func (h *HNSW) Search(ctx context.Context, q []float32, k int) ([]index.SearchResult, error) {
	return h.SearchWithEF(ctx, q, k, h.efSearch)
}

// SearchWithEF returns the k nearest neighbors of q using breadth ef at level 0.
// ef values below k are raised to k.
func (h *HNSW) SearchWithEF(ctx context.Context, q []float32, k int, ef int) ([]index.SearchResult, error) {
	res, _, err := h.SearchWithStats(ctx, q, k, ef)
	return res, err
}

// SearchWithStats is SearchWithEF that also reports the work the search did
// across all levels.
func (h *HNSW) SearchWithStats(ctx context.Context, q []float32, k int, ef int) ([]index.SearchResult, index.SearchStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, index.SearchStats{}, err
	}
	if k <= 0 {
		return nil, index.SearchStats{}, index.ErrInvalidK
	}
	if err := index.ValidateDimension(q, h.dimension); err != nil {
		return nil, index.SearchStats{}, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.maxLevel < 0 {
		return []index.SearchResult{}, index.SearchStats{}, nil
	}

	s := searcher.Get()
	defer searcher.Put(s)

	currID := h.greedyDescend(s, q)
	found := h.searchLayer(s, q, currID, max(ef, k), 0)

	res := make([]index.SearchResult, min(k, len(found)))
	copy(res, found)

	return res, s.Stats(), nil
}

// BruteSearch performs an exact scan over every node.
func (h *HNSW) BruteSearch(ctx context.Context, q []float32, k int) ([]index.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, index.ErrInvalidK
	}
	if err := index.ValidateDimension(q, h.dimension); err != nil {
		return nil, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	s := searcher.Get()
	defer searcher.Put(s)

	for i := range h.nodes {
		d := h.distanceFunc(q, h.nodes[i].vector)
		s.Candidates.PushItemBounded(searcher.PriorityQueueItem{Node: uint32(i), Distance: d}, k)
	}

	found := s.DrainSorted()
	res := make([]index.SearchResult, len(found))
	copy(res, found)

	return res, nil
}

// Len returns the number of nodes in the graph.
func (h *HNSW) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

// Dimension returns the vector dimension.
func (h *HNSW) Dimension() int {
	return h.dimension
}

// EFSearch returns the configured search breadth used by Search. Zero means k.
func (h *HNSW) EFSearch() int {
	return h.efSearch
}

// MaxLevel returns the highest level present in the graph, or -1 if empty.
func (h *HNSW) MaxLevel() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.maxLevel
}

// EntryPoint returns the node every search starts from.
// The second value is false while the graph is empty.
func (h *HNSW) EntryPoint() (uint32, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.entryPoint, h.maxLevel >= 0
}

// Level returns the maximum level of a node.
func (h *HNSW) Level(id uint32) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if int(id) >= len(h.nodes) {
		return 0, fmt.Errorf("node %d: %w", id, index.ErrNotFound)
	}
	return h.nodes[id].level(), nil
}

// Vector returns a copy of the vector stored for id.
func (h *HNSW) Vector(id uint32) ([]float32, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if int(id) >= len(h.nodes) {
		return nil, fmt.Errorf("node %d: %w", id, index.ErrNotFound)
	}
	return slices.Clone(h.nodes[id].vector), nil
}

// Neighbors returns a copy of the adjacency list of id at level.
func (h *HNSW) Neighbors(id uint32, level int) ([]uint32, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if int(id) >= len(h.nodes) {
		return nil, fmt.Errorf("node %d: %w", id, index.ErrNotFound)
	}
	n := &h.nodes[id]
	if level < 0 || level > n.level() {
		return nil, fmt.Errorf("%w: node %d has no level %d", index.ErrInvalidParameter, id, level)
	}
	return slices.Clone(n.connections[level]), nil
}
