package ivf

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/annidx/index"
	"github.com/hupe1980/annidx/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pairs = [][]float32{{0, 0}, {0, 1}, {5, 5}, {5, 6}}

func newTrainedPairs(t *testing.T) *IVF {
	t.Helper()
	ctx := context.Background()

	idx, err := New(func(o *Options) {
		o.Dimension = 2
		o.NList = 2
	})
	require.NoError(t, err)
	require.NoError(t, idx.Train(ctx, pairs))

	for i, v := range pairs {
		id, err := idx.Add(ctx, v)
		require.NoError(t, err)
		assert.Equal(t, uint32(i), id)
	}

	return idx
}

func TestNew_Validation(t *testing.T) {
	_, err := New(func(o *Options) { o.NList = 2 })
	var invalidDim *index.ErrInvalidDimension
	require.True(t, errors.As(err, &invalidDim))

	_, err = New(func(o *Options) { o.Dimension = 2 })
	assert.ErrorIs(t, err, index.ErrInvalidParameter)

	_, err = New(func(o *Options) { o.Dimension = 2; o.NList = 2; o.Iterations = 0 })
	assert.ErrorIs(t, err, index.ErrInvalidParameter)

	_, err = New(func(o *Options) { o.Dimension = 2; o.NList = 2; o.NProbe = 0 })
	assert.ErrorIs(t, err, index.ErrInvalidParameter)

	idx, err := New(func(o *Options) { o.Dimension = 3; o.NList = 4 })
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Dimension())
	assert.Equal(t, 4, idx.NList())
	assert.False(t, idx.Trained())
	assert.Equal(t, []float32{0, 0, 0}, idx.Centroids()[3])
}

func TestIVF_Untrained(t *testing.T) {
	ctx := context.Background()
	idx, err := New(func(o *Options) { o.Dimension = 2; o.NList = 2 })
	require.NoError(t, err)

	_, err = idx.Add(ctx, []float32{1, 1})
	assert.ErrorIs(t, err, index.ErrUntrained)

	_, err = idx.Search(ctx, []float32{1, 1}, 1)
	assert.ErrorIs(t, err, index.ErrUntrained)

	_, err = idx.Assignment([]float32{1, 1})
	assert.ErrorIs(t, err, index.ErrUntrained)

	assert.Equal(t, 0, idx.Len())
}

func TestIVF_TrainErrors(t *testing.T) {
	ctx := context.Background()
	idx, err := New(func(o *Options) { o.Dimension = 2; o.NList = 4 })
	require.NoError(t, err)

	err = idx.Train(ctx, pairs[:3])
	var insufficient *index.ErrInsufficientTrainingData
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 4, insufficient.Required)
	assert.Equal(t, 3, insufficient.Actual)

	err = idx.Train(ctx, [][]float32{{0, 0}, {1, 1}, {2}, {3, 3}})
	var mismatch *index.ErrDimensionMismatch
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 2, mismatch.Expected)
	assert.Equal(t, 1, mismatch.Actual)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, idx.Train(cancelled, pairs), context.Canceled)

	// Failed attempts leave the index untrained with zero centroids
	assert.False(t, idx.Trained())
	for _, c := range idx.Centroids() {
		assert.Equal(t, []float32{0, 0}, c)
	}

	require.NoError(t, idx.Train(ctx, pairs))
	assert.True(t, idx.Trained())
	assert.ErrorIs(t, idx.Train(ctx, pairs), index.ErrAlreadyTrained)
}

func TestIVF_SeparatesClusters(t *testing.T) {
	ctx := context.Background()
	idx := newTrainedPairs(t)

	centroids := idx.Centroids()
	assert.InDeltaSlice(t, []float32{0, 0.5}, centroids[0], 1e-6)
	assert.InDeltaSlice(t, []float32{5, 5.5}, centroids[1], 1e-6)

	near, err := idx.Members(0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1}, near)

	far, err := idx.Members(1)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 3}, far)

	assert.Equal(t, []int{2, 2}, idx.ListSizes())

	res, err := idx.SearchWithProbe(ctx, []float32{0, 0.2}, 4, 1)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, uint32(0), res[0].ID)
	assert.InDelta(t, 0.2, res[0].Distance, 1e-6)
	assert.Equal(t, uint32(1), res[1].ID)
	assert.InDelta(t, 0.8, res[1].Distance, 1e-6)

	cluster, err := idx.Assignment([]float32{4, 4})
	require.NoError(t, err)
	assert.Equal(t, 1, cluster)

	_, err = idx.Members(2)
	assert.ErrorIs(t, err, index.ErrInvalidParameter)
}

func TestIVF_SearchErrors(t *testing.T) {
	ctx := context.Background()
	idx := newTrainedPairs(t)

	_, err := idx.Search(ctx, []float32{0, 0}, 0)
	assert.ErrorIs(t, err, index.ErrInvalidK)

	_, err = idx.SearchWithProbe(ctx, []float32{0, 0}, 1, 0)
	assert.ErrorIs(t, err, index.ErrInvalidParameter)

	_, err = idx.Search(ctx, []float32{0, 0, 0}, 1)
	var mismatch *index.ErrDimensionMismatch
	require.True(t, errors.As(err, &mismatch))

	_, err = idx.Add(ctx, []float32{0})
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 4, idx.Len())

	_, err = idx.Vector(4)
	assert.ErrorIs(t, err, index.ErrNotFound)
}

func TestIVF_TrainedButEmpty(t *testing.T) {
	ctx := context.Background()
	idx, err := New(func(o *Options) { o.Dimension = 2; o.NList = 2 })
	require.NoError(t, err)
	require.NoError(t, idx.Train(ctx, pairs))

	res, err := idx.Search(ctx, []float32{0, 0}, 3)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestIVF_ProbeClampedToNList(t *testing.T) {
	ctx := context.Background()
	idx := newTrainedPairs(t)

	res, err := idx.SearchWithProbe(ctx, []float32{0, 0.2}, 10, 99)
	require.NoError(t, err)
	assert.Equal(t, testutil.BruteForceSearch(pairs, []float32{0, 0.2}, 10), res)
}

func TestIVF_SearchWithStats(t *testing.T) {
	ctx := context.Background()
	idx := newTrainedPairs(t)

	// Every centroid is scored, then only the probed list is scanned
	_, stats, err := idx.SearchWithStats(ctx, []float32{0, 0.2}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, index.SearchStats{DistanceComputations: 4, NodesVisited: 2}, stats)

	_, stats, err = idx.SearchWithStats(ctx, []float32{0, 0.2}, 1, 99)
	require.NoError(t, err)
	assert.Equal(t, index.SearchStats{DistanceComputations: idx.NList() + idx.Len(), NodesVisited: idx.Len()}, stats)

	_, stats, err = idx.SearchWithStats(ctx, []float32{0, 0.2}, 0, 1)
	assert.ErrorIs(t, err, index.ErrInvalidK)
	assert.Equal(t, index.SearchStats{}, stats)

	assert.Equal(t, DefaultNProbe, idx.NProbe())
}

func TestIVF_TiesOrderedByID(t *testing.T) {
	ctx := context.Background()
	idx, err := New(func(o *Options) { o.Dimension = 1; o.NList = 1 })
	require.NoError(t, err)
	require.NoError(t, idx.Train(ctx, [][]float32{{0}}))

	for range 5 {
		_, err := idx.Add(ctx, []float32{3})
		require.NoError(t, err)
	}

	res, err := idx.Search(ctx, []float32{1}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)

	for i, r := range res {
		assert.Equal(t, uint32(i), r.ID)
		assert.Equal(t, float32(2), r.Distance)
	}
}

func TestIVF_InsertCopiesVector(t *testing.T) {
	ctx := context.Background()
	idx := newTrainedPairs(t)

	v := []float32{1, 1}
	id, err := idx.Insert(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), id)

	v[0] = 42

	stored, err := idx.Vector(id)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1}, stored)
}

func TestIVF_RecallMonotonicInNProbe(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(4711)

	const (
		numVectors = 1000
		dim        = 16
		nlist      = 16
		k          = 10
	)

	data := rng.UniformVectors(numVectors, dim)

	idx, err := New(func(o *Options) {
		o.Dimension = dim
		o.NList = nlist
	})
	require.NoError(t, err)
	require.NoError(t, idx.Train(ctx, data))

	for _, v := range data {
		_, err := idx.Add(ctx, v)
		require.NoError(t, err)
	}

	sizes := idx.ListSizes()
	total := 0
	for _, s := range sizes {
		total += s
	}
	assert.Equal(t, numVectors, total)

	for _, q := range rng.UniformVectors(50, dim) {
		truth := testutil.BruteForceSearch(data, q, k)

		prev := -1.0
		for nprobe := 1; nprobe <= nlist; nprobe++ {
			res, err := idx.SearchWithProbe(ctx, q, k, nprobe)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(res), k)

			for i := 1; i < len(res); i++ {
				assert.LessOrEqual(t, res[i-1].Distance, res[i].Distance)
			}

			recall := testutil.ComputeRecall(truth, res)
			assert.GreaterOrEqual(t, recall, prev, "nprobe %d", nprobe)
			prev = recall
		}

		assert.Equal(t, 1.0, prev)
	}
}

func TestIVF_RandomInitDeterministic(t *testing.T) {
	ctx := context.Background()
	data := testutil.NewRNG(9).ClusteredVectors(200, 4, 4, 0.05)

	train := func() [][]float32 {
		seed := int64(17)
		idx, err := New(func(o *Options) {
			o.Dimension = 4
			o.NList = 4
			o.Init = InitRandom
			o.RandomSeed = &seed
		})
		require.NoError(t, err)
		require.NoError(t, idx.Train(ctx, data))
		return idx.Centroids()
	}

	assert.Equal(t, train(), train())
}

func TestIVF_ParallelTrainMatchesSequential(t *testing.T) {
	ctx := context.Background()
	data := testutil.NewRNG(10).UniformVectors(2000, 8)

	train := func(parallelism int) [][]float32 {
		idx, err := New(func(o *Options) {
			o.Dimension = 8
			o.NList = 8
			o.Parallelism = parallelism
		})
		require.NoError(t, err)
		require.NoError(t, idx.Train(ctx, data))
		return idx.Centroids()
	}

	assert.Equal(t, train(1), train(4))
}
