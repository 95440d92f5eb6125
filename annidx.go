package annidx

import (
	"context"
	"time"

	"github.com/hupe1980/annidx/hnsw"
	"github.com/hupe1980/annidx/index"
	"github.com/hupe1980/annidx/ivf"
)

// SearchResult is a single neighbor returned by a search.
type SearchResult = index.SearchResult

// SearchStats is the work done by a single search.
type SearchStats = index.SearchStats

// Index is the contract shared by both index kinds.
type Index = index.Index

// HNSW is a graph index that logs and measures every operation.
type HNSW struct {
	*hnsw.HNSW
	logger  *Logger
	metrics MetricsCollector
}

// NewHNSW creates an HNSW index for vectors of length dim.
// m bounds the neighbor lists of existing nodes and efConstruction is the insertion search breadth.
func NewHNSW(dim, m, efConstruction int, optFns ...Option) (*HNSW, error) {
	opts := applyOptions(optFns)

	h, err := hnsw.New(append([]func(*hnsw.Options){func(o *hnsw.Options) {
		o.Dimension = dim
		o.M = m
		o.EFConstruction = efConstruction
		o.RandomSeed = opts.seed
	}}, opts.hnswOptFns...)...)
	if err != nil {
		return nil, err
	}

	return &HNSW{
		HNSW:    h,
		logger:  opts.logger.WithIndex("hnsw").WithDimension(dim),
		metrics: opts.metricsCollector,
	}, nil
}

// Insert adds a vector and returns its identifier.
func (h *HNSW) Insert(ctx context.Context, v []float32) (uint32, error) {
	start := time.Now()
	id, err := h.HNSW.Insert(ctx, v)
	h.metrics.RecordInsert(time.Since(start), err)
	h.logger.LogInsert(ctx, id, err)
	return id, err
}

// Search returns the k nearest neighbors of q.
func (h *HNSW) Search(ctx context.Context, q []float32, k int) ([]SearchResult, error) {
	res, _, err := h.SearchWithStats(ctx, q, k, h.EFSearch())
	return res, err
}

// SearchWithEF returns the k nearest neighbors of q using breadth ef.
func (h *HNSW) SearchWithEF(ctx context.Context, q []float32, k int, ef int) ([]SearchResult, error) {
	res, _, err := h.SearchWithStats(ctx, q, k, ef)
	return res, err
}

// SearchWithStats returns the k nearest neighbors of q using breadth ef and the work the search did.
func (h *HNSW) SearchWithStats(ctx context.Context, q []float32, k int, ef int) ([]SearchResult, SearchStats, error) {
	start := time.Now()
	res, stats, err := h.HNSW.SearchWithStats(ctx, q, k, ef)
	h.metrics.RecordSearch(k, stats, time.Since(start), err)
	h.logger.LogSearch(ctx, k, len(res), err)
	return res, stats, err
}

// IVF is a clustered index that logs and measures every operation.
type IVF struct {
	*ivf.IVF
	logger  *Logger
	metrics MetricsCollector
}

// NewIVF creates an untrained IVF index with nlist clusters for vectors of length dim.
func NewIVF(dim, nlist int, optFns ...Option) (*IVF, error) {
	opts := applyOptions(optFns)

	idx, err := ivf.New(append([]func(*ivf.Options){func(o *ivf.Options) {
		o.Dimension = dim
		o.NList = nlist
		o.RandomSeed = opts.seed
	}}, opts.ivfOptFns...)...)
	if err != nil {
		return nil, err
	}

	return &IVF{
		IVF:     idx,
		logger:  opts.logger.WithIndex("ivf").WithDimension(dim),
		metrics: opts.metricsCollector,
	}, nil
}

// Train learns the cluster centroids from data.
func (i *IVF) Train(ctx context.Context, data [][]float32) error {
	start := time.Now()
	err := i.IVF.Train(ctx, data)
	i.metrics.RecordTrain(len(data), time.Since(start), err)
	i.logger.LogTrain(ctx, len(data), err)
	return err
}

// Add assigns v to its nearest cluster and returns its identifier.
func (i *IVF) Add(ctx context.Context, v []float32) (uint32, error) {
	start := time.Now()
	id, err := i.IVF.Add(ctx, v)
	i.metrics.RecordInsert(time.Since(start), err)
	i.logger.LogInsert(ctx, id, err)
	return id, err
}

// Insert is Add under the Index name.
func (i *IVF) Insert(ctx context.Context, v []float32) (uint32, error) {
	return i.Add(ctx, v)
}

// Search returns the k nearest neighbors of q using the configured probe count.
func (i *IVF) Search(ctx context.Context, q []float32, k int) ([]SearchResult, error) {
	res, _, err := i.SearchWithStats(ctx, q, k, i.NProbe())
	return res, err
}

// SearchWithProbe returns the k nearest neighbors of q among the nprobe closest clusters.
func (i *IVF) SearchWithProbe(ctx context.Context, q []float32, k int, nprobe int) ([]SearchResult, error) {
	res, _, err := i.SearchWithStats(ctx, q, k, nprobe)
	return res, err
}

// SearchWithStats returns the k nearest neighbors of q among the nprobe closest clusters
// and the work the search did.
func (i *IVF) SearchWithStats(ctx context.Context, q []float32, k int, nprobe int) ([]SearchResult, SearchStats, error) {
	start := time.Now()
	res, stats, err := i.IVF.SearchWithStats(ctx, q, k, nprobe)
	i.metrics.RecordSearch(k, stats, time.Since(start), err)
	i.logger.LogSearch(ctx, k, len(res), err)
	return res, stats, err
}

var (
	_ Index = (*HNSW)(nil)
	_ Index = (*IVF)(nil)
)
