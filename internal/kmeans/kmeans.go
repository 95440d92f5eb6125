package kmeans

import (
	"cmp"
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/blas/gonum"

	"github.com/hupe1980/annidx/distance"
	"github.com/hupe1980/annidx/index"
)

// DefaultMaxIter is the number of Lloyd iterations run when none is configured.
const DefaultMaxIter = 10

// minChunk is the smallest number of vectors handed to one assignment worker.
const minChunk = 256

// InitMethod selects how the initial centroids are chosen.
type InitMethod int

const (
	// InitFirstN seeds the centroids with the first k training vectors, in order.
	// Sensitive to input order and can leave clusters empty on sorted input.
	InitFirstN InitMethod = iota

	// InitRandom seeds the centroids with k distinct training vectors drawn from Options.Rand.
	InitRandom
)

func (m InitMethod) String() string {
	switch m {
	case InitFirstN:
		return "first-n"
	case InitRandom:
		return "random"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// Options configures TrainKMeans.
type Options struct {
	// MaxIter is the exact number of assign/update rounds. There is no convergence check.
	MaxIter int

	// Init selects the centroid initialization.
	Init InitMethod

	// Rand drives InitRandom. Required for InitRandom.
	Rand *rand.Rand

	// DistanceFunc is used for the assignment step.
	DistanceFunc distance.Func

	// Parallelism caps the number of assignment workers.
	Parallelism int
}

var blas = gonum.Implementation{}

// TrainKMeans trains k centroids from the given vectors using Lloyd's algorithm.
// vectors is a flattened n*dim slice. It returns the flattened centroids (k * dim).
func TrainKMeans(ctx context.Context, vectors []float32, dim int, k int, optFns ...func(o *Options)) ([]float32, error) {
	opts := Options{
		MaxIter:      DefaultMaxIter,
		Init:         InitFirstN,
		DistanceFunc: distance.Euclidean,
		Parallelism:  runtime.GOMAXPROCS(0),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if dim <= 0 {
		return nil, &index.ErrInvalidDimension{Dimension: dim}
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", index.ErrInvalidParameter, k)
	}
	if opts.MaxIter <= 0 {
		return nil, fmt.Errorf("%w: iterations must be positive, got %d", index.ErrInvalidParameter, opts.MaxIter)
	}
	if len(vectors)%dim != 0 {
		return nil, fmt.Errorf("%w: %d values is not a multiple of dimension %d", index.ErrInvalidParameter, len(vectors), dim)
	}

	n := len(vectors) / dim
	if n < k {
		return nil, &index.ErrInsufficientTrainingData{Required: k, Actual: n}
	}

	centroids := make([]float32, k*dim)

	switch opts.Init {
	case InitFirstN:
		copy(centroids, vectors[:k*dim])
	case InitRandom:
		if opts.Rand == nil {
			return nil, fmt.Errorf("%w: random initialization requires a random source", index.ErrInvalidParameter)
		}
		perm := opts.Rand.Perm(n)
		for i := 0; i < k; i++ {
			copy(centroids[i*dim:(i+1)*dim], vectors[perm[i]*dim:(perm[i]+1)*dim])
		}
	default:
		return nil, fmt.Errorf("%w: unknown init method %v", index.ErrInvalidParameter, opts.Init)
	}

	assignments := make([]int, n)
	counts := make([]int, k)
	sums := make([]float32, k*dim)

	for iter := 0; iter < opts.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Assignment step
		if err := assignAll(ctx, vectors, dim, centroids, assignments, opts); err != nil {
			return nil, err
		}

		// Update step
		clear(sums)
		clear(counts)

		for i := 0; i < n; i++ {
			cluster := assignments[i]
			blas.Saxpy(dim, 1, vectors[i*dim:(i+1)*dim], 1, sums[cluster*dim:(cluster+1)*dim], 1)
			counts[cluster]++
		}

		for j := 0; j < k; j++ {
			if counts[j] == 0 {
				// Empty clusters keep their previous centroid.
				continue
			}
			center := centroids[j*dim : (j+1)*dim]
			copy(center, sums[j*dim:(j+1)*dim])
			blas.Sscal(dim, 1/float32(counts[j]), center, 1)
		}
	}

	return centroids, nil
}

// assignAll writes the nearest centroid of every vector into assignments.
func assignAll(ctx context.Context, vectors []float32, dim int, centroids []float32, assignments []int, opts Options) error {
	n := len(assignments)

	workers := max(1, min(opts.Parallelism, (n+minChunk-1)/minChunk))
	if workers == 1 {
		for i := 0; i < n; i++ {
			assignments[i] = AssignPartition(vectors[i*dim:(i+1)*dim], centroids, dim, opts.DistanceFunc)
		}
		return nil
	}

	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				assignments[i] = AssignPartition(vectors[i*dim:(i+1)*dim], centroids, dim, opts.DistanceFunc)
			}
			return nil
		})
	}

	return g.Wait()
}

// AssignPartition finds the closest centroid for a vector.
// Ties resolve to the lowest centroid index.
func AssignPartition(vec []float32, centroids []float32, dim int, distFunc distance.Func) int {
	k := len(centroids) / dim

	bestCluster := -1
	var minDist float32

	for j := 0; j < k; j++ {
		d := distFunc(vec, centroids[j*dim:(j+1)*dim])
		if bestCluster == -1 || d < minDist {
			minDist = d
			bestCluster = j
		}
	}

	return bestCluster
}

type centroidDist struct {
	id   int
	dist float32
}

// FindClosestCentroids returns the indices of the n closest centroids to the query vector,
// ordered by ascending distance with ties broken by index.
func FindClosestCentroids(query []float32, centroids []float32, dim int, n int, distFunc distance.Func) []int {
	k := len(centroids) / dim
	if n > k {
		n = k
	}

	dists := make([]centroidDist, k)
	for i := 0; i < k; i++ {
		dists[i] = centroidDist{id: i, dist: distFunc(query, centroids[i*dim:(i+1)*dim])}
	}

	slices.SortFunc(dists, func(a, b centroidDist) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	result := make([]int, n)
	for i := 0; i < n; i++ {
		result[i] = dists[i].id
	}

	return result
}
