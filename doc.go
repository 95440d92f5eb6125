// Package annidx provides in-memory approximate nearest neighbor indexes for Go.
//
// Two index kinds are available, both over fixed-dimension float32 vectors
// with Euclidean distance:
//
//   - HNSW: a hierarchical navigable small world graph. Vectors are searchable
//     as soon as Insert returns.
//   - IVF: an inverted file index. Train learns cluster centroids with k-means,
//     Add buckets vectors by nearest centroid, and a search scans only the
//     closest clusters.
//
// The types in this package wrap the engines in the hnsw and ivf packages and
// add structured logging (Logger) and metrics (MetricsCollector). The engines
// can also be used directly.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	h, _ := annidx.NewHNSW(128, 16, 200)
//	id, _ := h.Insert(ctx, vec)
//	res, _ := h.SearchWithEF(ctx, query, 10, 64)
//
//	i, _ := annidx.NewIVF(128, 64, annidx.WithIVF(func(o *ivf.Options) { o.NProbe = 8 }))
//	_ = i.Train(ctx, sample)
//	id, _ = i.Add(ctx, vec)
//	res, _ = i.Search(ctx, query, 10)
//
// # Observability
//
//	reg := prometheus.NewRegistry()
//	mc, _ := annidx.NewPrometheusCollector(reg, "products")
//	h, _ := annidx.NewHNSW(128, 16, 200,
//		annidx.WithMetricsCollector(mc),
//		annidx.WithLogger(annidx.NewJSONLogger(slog.LevelInfo)),
//	)
//
// # Errors
//
// Sentinel errors are compared with errors.Is; structured errors such as
// *ErrDimensionMismatch are extracted with errors.As.
package annidx
