package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/annidx"
	"github.com/hupe1980/annidx/index"
	"github.com/hupe1980/annidx/ivf"
	"github.com/hupe1980/annidx/testutil"
)

// Dataset is a seeded set of base vectors and queries.
type Dataset struct {
	Vectors [][]float32
	Queries [][]float32
}

// NewDataset draws uniform vectors in [0, 1) from the configured seed.
func NewDataset(cfg *Config) *Dataset {
	rng := testutil.NewRNG(cfg.Seed)
	return &Dataset{
		Vectors: rng.UniformVectors(cfg.Vectors, cfg.Dimension),
		Queries: rng.UniformVectors(cfg.Queries, cfg.Dimension),
	}
}

// Result summarizes one index run.
type Result struct {
	Index      string
	Recall     float64
	BuildTime  time.Duration
	SearchTime time.Duration
}

// QPS returns the query throughput of the run.
func (r Result) QPS(queries int) float64 {
	if r.SearchTime <= 0 {
		return 0
	}
	return float64(queries) / r.SearchTime.Seconds()
}

type searchFunc func(ctx context.Context, q []float32, k int) ([]index.SearchResult, error)

// Runner builds indexes over a dataset and measures them.
type Runner struct {
	cfg     Config
	data    *Dataset
	logger  *annidx.Logger
	metrics map[string]annidx.MetricsCollector
}

// NewRunner creates a Runner. metrics maps an index kind to its collector and may be nil.
func NewRunner(cfg Config, data *Dataset, logger *annidx.Logger, metrics map[string]annidx.MetricsCollector) *Runner {
	if logger == nil {
		logger = annidx.NoopLogger()
	}
	return &Runner{cfg: cfg, data: data, logger: logger, metrics: metrics}
}

func (r *Runner) options(kind string) []annidx.Option {
	opts := []annidx.Option{annidx.WithLogger(r.logger), annidx.WithSeed(r.cfg.Seed)}
	if mc, ok := r.metrics[kind]; ok {
		opts = append(opts, annidx.WithMetricsCollector(mc))
	}
	return opts
}

// BuildHNSW inserts every base vector into a new HNSW index.
func (r *Runner) BuildHNSW(ctx context.Context) (*annidx.HNSW, time.Duration, error) {
	start := time.Now()

	h, err := annidx.NewHNSW(r.cfg.Dimension, r.cfg.M, r.cfg.EFConstruction, r.options("hnsw")...)
	if err != nil {
		return nil, 0, err
	}

	for _, v := range r.data.Vectors {
		if _, err := h.Insert(ctx, v); err != nil {
			return nil, 0, err
		}
	}

	return h, time.Since(start), nil
}

// BuildIVF trains a new IVF index on the base vectors and adds all of them.
func (r *Runner) BuildIVF(ctx context.Context) (*annidx.IVF, time.Duration, error) {
	start := time.Now()

	opts := append(r.options("ivf"), annidx.WithIVF(func(o *ivf.Options) {
		o.NProbe = r.cfg.NProbe
		o.Parallelism = r.cfg.Workers
	}))

	i, err := annidx.NewIVF(r.cfg.Dimension, r.cfg.NList, opts...)
	if err != nil {
		return nil, 0, err
	}

	if err := i.Train(ctx, r.data.Vectors); err != nil {
		return nil, 0, err
	}

	for _, v := range r.data.Vectors {
		if _, err := i.Add(ctx, v); err != nil {
			return nil, 0, err
		}
	}

	return i, time.Since(start), nil
}

// Recall builds the configured indexes and measures mean recall@k against exact search.
func (r *Runner) Recall(ctx context.Context) ([]Result, error) {
	truth, err := r.groundTruth(ctx)
	if err != nil {
		return nil, err
	}

	var results []Result

	if r.cfg.Index == "hnsw" || r.cfg.Index == "both" {
		h, build, err := r.BuildHNSW(ctx)
		if err != nil {
			return nil, fmt.Errorf("hnsw: %w", err)
		}

		res, err := r.measure(ctx, truth, func(ctx context.Context, q []float32, k int) ([]index.SearchResult, error) {
			return h.SearchWithEF(ctx, q, k, r.cfg.EFSearch)
		})
		if err != nil {
			return nil, fmt.Errorf("hnsw: %w", err)
		}

		res.Index, res.BuildTime = "hnsw", build
		results = append(results, res)
	}

	if r.cfg.Index == "ivf" || r.cfg.Index == "both" {
		i, build, err := r.BuildIVF(ctx)
		if err != nil {
			return nil, fmt.Errorf("ivf: %w", err)
		}

		res, err := r.measure(ctx, truth, i.Search)
		if err != nil {
			return nil, fmt.Errorf("ivf: %w", err)
		}

		res.Index, res.BuildTime = "ivf", build
		results = append(results, res)
	}

	return results, nil
}

// groundTruth computes the exact neighbors of every query in parallel.
func (r *Runner) groundTruth(ctx context.Context) ([][]index.SearchResult, error) {
	truth := make([][]index.SearchResult, len(r.data.Queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for qi, q := range r.data.Queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			truth[qi] = testutil.BruteForceSearch(r.data.Vectors, q, r.cfg.K)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return truth, nil
}

// measure runs every query through search concurrently and averages the recall.
func (r *Runner) measure(ctx context.Context, truth [][]index.SearchResult, search searchFunc) (Result, error) {
	recalls := make([]float64, len(r.data.Queries))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for qi, q := range r.data.Queries {
		g.Go(func() error {
			approx, err := search(gctx, q, r.cfg.K)
			if err != nil {
				return err
			}
			recalls[qi] = testutil.ComputeRecall(truth[qi], approx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	elapsed := time.Since(start)

	var sum float64
	for _, rc := range recalls {
		sum += rc
	}

	return Result{
		Recall:     sum / float64(len(recalls)),
		SearchTime: elapsed,
	}, nil
}

// PrintResults writes one line per result.
func PrintResults(w io.Writer, results []Result, queries, k int) {
	for _, r := range results {
		fmt.Fprintf(w, "%-5s recall@%d=%.4f build=%s qps=%.0f\n",
			r.Index, k, r.Recall, r.BuildTime.Round(time.Millisecond), r.QPS(queries))
	}
}
