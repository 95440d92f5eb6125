// Package testutil provides testing utilities for annidx.
//
// It provides helpers for generating seeded random vectors, computing exact
// nearest neighbors, and verifying search recall. Tests and the annbench
// command use it; library code does not.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	data := rng.UniformVectors(1000, 16) // uniform [0, 1)
//
// # Exact Search (Ground Truth)
//
//	truth := testutil.BruteForceSearch(data, query, k)
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(truth, approx)
package testutil
