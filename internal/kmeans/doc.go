// Package kmeans implements k-means clustering for inverted file training.
//
// Used by the IVF index to learn its coarse centroids. The assignment step
// is split across workers; the update step accumulates with gonum BLAS.
package kmeans
