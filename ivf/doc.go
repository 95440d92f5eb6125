// Package ivf implements an inverted file (IVF) index.
//
// Train runs Lloyd's k-means over a training set to learn NList centroids.
// Add buckets each vector under its nearest centroid. A search ranks the
// centroids by distance to the query, scans the members of the nprobe closest
// clusters exactly, and returns the k best matches ordered by distance and id.
//
// Larger nprobe values trade speed for recall; nprobe = NList is an exact scan.
//
// Example:
//
//	idx, err := ivf.New(func(o *ivf.Options) {
//		o.Dimension = 64
//		o.NList = 32
//		o.NProbe = 4
//	})
//	if err != nil {
//		return err
//	}
//	if err := idx.Train(ctx, sample); err != nil {
//		return err
//	}
//	id, err := idx.Add(ctx, vec)
//	res, err := idx.Search(ctx, query, 10)
package ivf
