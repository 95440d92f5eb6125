// Package searcher provides pooled search context for graph traversal.
//
// The Searcher struct owns the reusable resources needed for a layer search:
//   - Priority queues (frontier min-heap, bounded result max-heap)
//   - Visited set (bitset with dirty-list reset)
//   - Result buffer
//
// Searchers are pooled so concurrent queries do not allocate per call.
package searcher
