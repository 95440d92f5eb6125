// Package hnsw implements a Hierarchical Navigable Small World graph index.
//
// Every node is assigned a level drawn from a geometric distribution with
// p = 1/2 and appears on all levels 0..level. A search descends greedily from
// the entry point through the upper levels and finishes with a beam search of
// breadth ef on level 0.
//
// Nodes live in an arena and are addressed by their insertion order, so the
// identifier returned by Insert is stable for the lifetime of the index.
//
// # Linking
//
// A new node links to every candidate returned by the construction search on
// each of its levels, and each candidate links back. When a back link pushes an
// existing adjacency list over M, the configured Pruner evicts one reference:
// the oldest (PruneInsertionOrder, the default) or the farthest (PruneFarthest).
// The new node's own lists are not pruned.
//
// # Concurrency
//
// Insert takes an exclusive lock. Search, SearchWithEF and the inspection
// methods take a shared lock and may run in parallel.
//
// Example:
//
//	h, err := hnsw.New(func(o *hnsw.Options) {
//		o.Dimension = 128
//		o.M = 16
//		o.EFConstruction = 200
//	})
//	if err != nil {
//		return err
//	}
//	id, err := h.Insert(ctx, vec)
//	res, err := h.SearchWithEF(ctx, query, 10, 64)
package hnsw
