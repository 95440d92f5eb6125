// Package distance provides vector distance calculations.
//
// # Supported Metrics
//
//   - MetricL2: Euclidean distance (square root of the summed squared differences)
//
// Indexes take a Func rather than a Metric, so a different metric can be
// plugged in without touching index logic.
//
// # Usage
//
//	d := distance.Euclidean(a, b)
//	fn, _ := distance.Provider(distance.MetricL2)
package distance
