package annidx

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with other monitoring systems;
// PrometheusCollector covers Prometheus.
type MetricsCollector interface {
	// RecordInsert is called after each insert operation.
	// duration is the total time taken, err is nil if successful.
	RecordInsert(duration time.Duration, err error)

	// RecordSearch is called after each search operation.
	// k is the number of neighbors requested, stats is the work the search did,
	// duration is the time taken, err is nil if successful.
	RecordSearch(k int, stats SearchStats, duration time.Duration, err error)

	// RecordTrain is called after each training run.
	// n is the number of training vectors.
	RecordTrain(n int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)                   {}
func (NoopMetricsCollector) RecordSearch(int, SearchStats, time.Duration, error) {}
func (NoopMetricsCollector) RecordTrain(int, time.Duration, error)               {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount      atomic.Int64
	InsertErrors     atomic.Int64
	InsertTotalNanos atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	SearchDistances  atomic.Int64
	TrainCount       atomic.Int64
	TrainErrors      atomic.Int64
	TrainVectors     atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(k int, stats SearchStats, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	b.SearchDistances.Add(int64(stats.DistanceComputations))
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordTrain implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTrain(n int, duration time.Duration, err error) {
	b.TrainCount.Add(1)
	if err != nil {
		b.TrainErrors.Add(1)
		return
	}
	b.TrainVectors.Add(int64(n))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:     b.InsertCount.Load(),
		InsertErrors:    b.InsertErrors.Load(),
		InsertAvgNanos:  average(b.InsertTotalNanos.Load(), b.InsertCount.Load()),
		SearchCount:     b.SearchCount.Load(),
		SearchErrors:    b.SearchErrors.Load(),
		SearchAvgNanos:  average(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		SearchDistances: b.SearchDistances.Load(),
		TrainCount:      b.TrainCount.Load(),
		TrainErrors:     b.TrainErrors.Load(),
		TrainVectors:    b.TrainVectors.Load(),
	}
}

func average(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount     int64
	InsertErrors    int64
	InsertAvgNanos  int64
	SearchCount     int64
	SearchErrors    int64
	SearchAvgNanos  int64
	SearchDistances int64 // total distance computations over all searches
	TrainCount      int64
	TrainErrors     int64
	TrainVectors    int64
}

// PrometheusCollector exports index metrics to Prometheus.
// Every series carries an "index" label naming the collector's index.
type PrometheusCollector struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	vectors    prometheus.Gauge
	searchK    prometheus.Histogram
	distances  prometheus.Histogram
}

// NewPrometheusCollector creates a collector for the named index and registers it with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer, indexName string) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	labels := prometheus.Labels{"index": indexName}

	c := &PrometheusCollector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "annidx_operations_total",
			Help:        "Total index operations by type and outcome",
			ConstLabels: labels,
		}, []string{"op", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "annidx_operation_latency_seconds",
			Help:        "Latency of index operations",
			Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10),
			ConstLabels: labels,
		}, []string{"op"}),
		vectors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "annidx_vectors",
			Help:        "Number of vectors held by the index",
			ConstLabels: labels,
		}),
		searchK: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "annidx_search_k",
			Help:        "Requested neighbor count per search",
			Buckets:     prometheus.ExponentialBuckets(1, 2, 10),
			ConstLabels: labels,
		}),
		distances: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "annidx_search_distance_computations",
			Help:        "Distance computations per search",
			Buckets:     prometheus.ExponentialBuckets(16, 2, 12),
			ConstLabels: labels,
		}),
	}

	for _, col := range []prometheus.Collector{c.operations, c.latency, c.vectors, c.searchK, c.distances} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *PrometheusCollector) observe(op string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.operations.WithLabelValues(op, status).Inc()
	c.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordInsert implements MetricsCollector.
func (c *PrometheusCollector) RecordInsert(duration time.Duration, err error) {
	c.observe("insert", duration, err)
	if err == nil {
		c.vectors.Inc()
	}
}

// RecordSearch implements MetricsCollector.
func (c *PrometheusCollector) RecordSearch(k int, stats SearchStats, duration time.Duration, err error) {
	c.observe("search", duration, err)
	c.searchK.Observe(float64(k))
	if err == nil {
		c.distances.Observe(float64(stats.DistanceComputations))
	}
}

// RecordTrain implements MetricsCollector.
func (c *PrometheusCollector) RecordTrain(_ int, duration time.Duration, err error) {
	c.observe("train", duration, err)
}

// MultiMetricsCollector forwards every record to each of its collectors.
type MultiMetricsCollector []MetricsCollector

// RecordInsert implements MetricsCollector.
func (m MultiMetricsCollector) RecordInsert(duration time.Duration, err error) {
	for _, c := range m {
		c.RecordInsert(duration, err)
	}
}

// RecordSearch implements MetricsCollector.
func (m MultiMetricsCollector) RecordSearch(k int, stats SearchStats, duration time.Duration, err error) {
	for _, c := range m {
		c.RecordSearch(k, stats, duration, err)
	}
}

// RecordTrain implements MetricsCollector.
func (m MultiMetricsCollector) RecordTrain(n int, duration time.Duration, err error) {
	for _, c := range m {
		c.RecordTrain(n, duration, err)
	}
}
