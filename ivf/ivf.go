package ivf

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/annidx/distance"
	"github.com/hupe1980/annidx/index"
	"github.com/hupe1980/annidx/internal/kmeans"
	"github.com/hupe1980/annidx/internal/searcher"
)

const (
	// DefaultIterations is the number of k-means rounds run by Train.
	DefaultIterations = kmeans.DefaultMaxIter

	// DefaultNProbe is the number of clusters Search scans.
	DefaultNProbe = 1
)

// InitMethod selects how Train seeds the centroids.
type InitMethod = kmeans.InitMethod

const (
	// InitFirstN uses the first NList training rows.
	InitFirstN = kmeans.InitFirstN

	// InitRandom uses NList distinct rows picked by a seeded permutation.
	InitRandom = kmeans.InitRandom
)

// Compile time check to ensure IVF satisfies the index interface.
var _ index.Index = (*IVF)(nil)

// Options represents the options for configuring IVF.
type Options struct {
	// Dimension is the length of every vector in the index.
	Dimension int

	// NList is the number of clusters.
	NList int

	// NProbe is the number of clusters Search scans.
	NProbe int

	// Iterations is the exact number of k-means rounds.
	Iterations int

	// Init selects the centroid initialization.
	Init InitMethod

	// RandomSeed seeds InitRandom. A time based seed is used when nil.
	RandomSeed *int64

	// DistanceFunc calculates the distance between two vectors.
	DistanceFunc distance.Func

	// Parallelism caps the number of goroutines used by Train.
	Parallelism int
}

// DefaultOptions contains the default options for IVF.
var DefaultOptions = Options{
	NProbe:       DefaultNProbe,
	Iterations:   DefaultIterations,
	Init:         InitFirstN,
	DistanceFunc: distance.Euclidean,
}

// IVF is an inverted file index. Vectors are bucketed by their nearest centroid
// and a query only scans the buckets of its nearest centroids.
type IVF struct {
	dimension    int
	nlist        int
	nprobe       int
	distanceFunc distance.Func
	opts         Options

	mu        sync.RWMutex
	trained   bool
	centroids []float32         // flattened nlist * dimension
	lists     []*roaring.Bitmap // member ids per centroid
	vectors   [][]float32       // indexed by id
}

// New creates a new, untrained IVF index.
func New(optFns ...func(o *Options)) (*IVF, error) {
	opts := DefaultOptions
	opts.Parallelism = runtime.GOMAXPROCS(0)

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Dimension <= 0 {
		return nil, &index.ErrInvalidDimension{Dimension: opts.Dimension}
	}
	if opts.NList <= 0 {
		return nil, fmt.Errorf("%w: NList must be positive, got %d", index.ErrInvalidParameter, opts.NList)
	}
	if opts.NProbe <= 0 {
		return nil, fmt.Errorf("%w: NProbe must be positive, got %d", index.ErrInvalidParameter, opts.NProbe)
	}
	if opts.Iterations <= 0 {
		return nil, fmt.Errorf("%w: Iterations must be positive, got %d", index.ErrInvalidParameter, opts.Iterations)
	}
	if opts.DistanceFunc == nil {
		opts.DistanceFunc = distance.Euclidean
	}

	lists := make([]*roaring.Bitmap, opts.NList)
	for i := range lists {
		lists[i] = roaring.New()
	}

	return &IVF{
		dimension:    opts.Dimension,
		nlist:        opts.NList,
		nprobe:       min(opts.NProbe, opts.NList),
		distanceFunc: opts.DistanceFunc,
		opts:         opts,
		centroids:    make([]float32, opts.NList*opts.Dimension),
		lists:        lists,
	}, nil
}

// Train learns the centroids from data with Lloyd's k-means.
// An index can be trained only once.
func (ivf *IVF) Train(ctx context.Context, data [][]float32) error {
	ivf.mu.Lock()
	defer ivf.mu.Unlock()

	if ivf.trained {
		return index.ErrAlreadyTrained
	}
	if len(data) < ivf.nlist {
		return &index.ErrInsufficientTrainingData{Required: ivf.nlist, Actual: len(data)}
	}

	flat := make([]float32, 0, len(data)*ivf.dimension)
	for _, row := range data {
		if err := index.ValidateDimension(row, ivf.dimension); err != nil {
			return err
		}
		flat = append(flat, row...)
	}

	seed := time.Now().UnixNano()
	if ivf.opts.RandomSeed != nil {
		seed = *ivf.opts.RandomSeed
	}

	centroids, err := kmeans.TrainKMeans(ctx, flat, ivf.dimension, ivf.nlist, func(o *kmeans.Options) {
		o.MaxIter = ivf.opts.Iterations
		o.Init = ivf.opts.Init
		o.Rand = rand.New(rand.NewSource(seed)) // nolint gosec
		o.DistanceFunc = ivf.distanceFunc
		o.Parallelism = ivf.opts.Parallelism
	})
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	ivf.centroids = centroids
	ivf.trained = true

	return nil
}

// Add assigns v to its nearest centroid and returns its identifier.
func (ivf *IVF) Add(ctx context.Context, v []float32) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ivf.mu.Lock()
	defer ivf.mu.Unlock()

	if !ivf.trained {
		return 0, index.ErrUntrained
	}
	if err := index.ValidateDimension(v, ivf.dimension); err != nil {
		return 0, err
	}

	id := uint32(len(ivf.vectors))
	cluster := kmeans.AssignPartition(v, ivf.centroids, ivf.dimension, ivf.distanceFunc)

	ivf.lists[cluster].Add(id)
	ivf.vectors = append(ivf.vectors, slices.Clone(v))

	return id, nil
}

// Insert is Add under the index.Index name.
func (ivf *IVF) Insert(ctx context.Context, v []float32) (uint32, error) {
	return ivf.Add(ctx, v)
}

// Search returns the k nearest neighbors of q among the NProbe closest clusters.
func (ivf *IVF) Search(ctx context.Context, q []float32, k int) ([]index.SearchResult, error) {
	return ivf.SearchWithProbe(ctx, q, k, ivf.nprobe)
}

// SearchWithProbe returns the k nearest neighbors of q among the nprobe closest clusters.
// nprobe values above NList scan every cluster.
func (ivf *IVF) SearchWithProbe(ctx context.Context, q []float32, k int, nprobe int) ([]index.SearchResult, error) {
	res, _, err := ivf.SearchWithStats(ctx, q, k, nprobe)
	return res, err
}

// SearchWithStats is SearchWithProbe that also reports the work the search did.
// Centroid distances count as distance computations, scanned list members as visited nodes.
func (ivf *IVF) SearchWithStats(ctx context.Context, q []float32, k int, nprobe int) ([]index.SearchResult, index.SearchStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, index.SearchStats{}, err
	}

	ivf.mu.RLock()
	defer ivf.mu.RUnlock()

	if !ivf.trained {
		return nil, index.SearchStats{}, index.ErrUntrained
	}
	if k <= 0 {
		return nil, index.SearchStats{}, index.ErrInvalidK
	}
	if nprobe <= 0 {
		return nil, index.SearchStats{}, fmt.Errorf("%w: nprobe must be positive, got %d", index.ErrInvalidParameter, nprobe)
	}
	if err := index.ValidateDimension(q, ivf.dimension); err != nil {
		return nil, index.SearchStats{}, err
	}

	if len(ivf.vectors) == 0 {
		return []index.SearchResult{}, index.SearchStats{}, nil
	}

	probes := kmeans.FindClosestCentroids(q, ivf.centroids, ivf.dimension, nprobe, ivf.distanceFunc)

	s := searcher.Get()
	defer searcher.Put(s)

	s.DistanceComputations = ivf.nlist
	scanned := 0

	for _, c := range probes {
		it := ivf.lists[c].Iterator()
		for it.HasNext() {
			id := it.Next()
			d := ivf.distanceFunc(q, ivf.vectors[id])
			scanned++
			s.Candidates.PushItemBounded(searcher.PriorityQueueItem{Node: id, Distance: d}, k)
		}
	}

	s.DistanceComputations += scanned

	found := s.DrainSorted()
	res := make([]index.SearchResult, len(found))
	copy(res, found)

	return res, index.SearchStats{DistanceComputations: s.DistanceComputations, NodesVisited: scanned}, nil
}

// Assignment returns the cluster v would be added to.
func (ivf *IVF) Assignment(v []float32) (int, error) {
	ivf.mu.RLock()
	defer ivf.mu.RUnlock()

	if !ivf.trained {
		return 0, index.ErrUntrained
	}
	if err := index.ValidateDimension(v, ivf.dimension); err != nil {
		return 0, err
	}

	return kmeans.AssignPartition(v, ivf.centroids, ivf.dimension, ivf.distanceFunc), nil
}

// Len returns the number of added vectors.
func (ivf *IVF) Len() int {
	ivf.mu.RLock()
	defer ivf.mu.RUnlock()
	return len(ivf.vectors)
}

// Dimension returns the vector dimension.
func (ivf *IVF) Dimension() int {
	return ivf.dimension
}

// NList returns the number of clusters.
func (ivf *IVF) NList() int {
	return ivf.nlist
}

// NProbe returns the probe count used by Search.
func (ivf *IVF) NProbe() int {
	return ivf.nprobe
}

// Trained reports whether Train has completed.
func (ivf *IVF) Trained() bool {
	ivf.mu.RLock()
	defer ivf.mu.RUnlock()
	return ivf.trained
}

// Centroids returns a copy of the centroids, one row per cluster.
// Before training every centroid is the zero vector.
func (ivf *IVF) Centroids() [][]float32 {
	ivf.mu.RLock()
	defer ivf.mu.RUnlock()

	out := make([][]float32, ivf.nlist)
	for i := range out {
		out[i] = slices.Clone(ivf.centroids[i*ivf.dimension : (i+1)*ivf.dimension])
	}
	return out
}

// ListSizes returns the number of members per cluster.
func (ivf *IVF) ListSizes() []int {
	ivf.mu.RLock()
	defer ivf.mu.RUnlock()

	sizes := make([]int, ivf.nlist)
	for i, l := range ivf.lists {
		sizes[i] = int(l.GetCardinality())
	}
	return sizes
}

// Members returns the ids of a cluster in insertion order.
func (ivf *IVF) Members(cluster int) ([]uint32, error) {
	ivf.mu.RLock()
	defer ivf.mu.RUnlock()

	if cluster < 0 || cluster >= ivf.nlist {
		return nil, fmt.Errorf("%w: cluster %d out of range [0, %d)", index.ErrInvalidParameter, cluster, ivf.nlist)
	}
	return ivf.lists[cluster].ToArray(), nil
}

// Vector returns a copy of the vector stored for id.
func (ivf *IVF) Vector(id uint32) ([]float32, error) {
	ivf.mu.RLock()
	defer ivf.mu.RUnlock()

	if int(id) >= len(ivf.vectors) {
		return nil, fmt.Errorf("vector %d: %w", id, index.ErrNotFound)
	}
	return slices.Clone(ivf.vectors[id]), nil
}
