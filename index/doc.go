// Package index provides the contract shared by the annidx index engines.
//
// Two engines satisfy the Index interface:
//
//   - hnsw: Hierarchical Navigable Small World graph, incremental and training-free
//   - ivf: Inverted file index over k-means clusters, trained once before use
//
// # Index Selection
//
//   - HNSW: no training step, high recall at small search breadth
//   - IVF: cheap inserts after training, recall tuned per query via nprobe
//
// # Errors
//
// Precondition failures are reported before any state is mutated:
//
//   - *ErrDimensionMismatch: vector length differs from the index dimension
//   - ErrUntrained: IVF insert/search before Train
//   - *ErrInsufficientTrainingData: fewer training vectors than clusters
//   - ErrInvalidK: k <= 0
//
// Searching an index with no vectors returns an empty result, not an error.
package index
