package annidx

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicMetricsCollector(t *testing.T) {
	mc := &BasicMetricsCollector{}

	mc.RecordInsert(10*time.Nanosecond, nil)
	mc.RecordInsert(30*time.Nanosecond, errors.New("boom"))
	mc.RecordSearch(5, SearchStats{DistanceComputations: 42}, 100*time.Nanosecond, nil)
	mc.RecordTrain(64, time.Millisecond, nil)
	mc.RecordTrain(3, time.Millisecond, errors.New("boom"))

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.InsertCount)
	assert.Equal(t, int64(1), stats.InsertErrors)
	assert.Equal(t, int64(20), stats.InsertAvgNanos)
	assert.Equal(t, int64(1), stats.SearchCount)
	assert.Equal(t, int64(100), stats.SearchAvgNanos)
	assert.Equal(t, int64(42), stats.SearchDistances)
	assert.Equal(t, int64(2), stats.TrainCount)
	assert.Equal(t, int64(1), stats.TrainErrors)
	assert.Equal(t, int64(64), stats.TrainVectors)

	empty := (&BasicMetricsCollector{}).GetStats()
	assert.Equal(t, int64(0), empty.SearchAvgNanos)
}

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()

	mc, err := NewPrometheusCollector(reg, "test")
	require.NoError(t, err)

	mc.RecordInsert(time.Millisecond, nil)
	mc.RecordInsert(time.Millisecond, nil)
	mc.RecordInsert(time.Millisecond, errors.New("boom"))
	mc.RecordSearch(10, SearchStats{DistanceComputations: 100}, time.Millisecond, nil)
	mc.RecordSearch(10, SearchStats{}, time.Millisecond, errors.New("boom"))
	mc.RecordTrain(100, time.Second, nil)

	assert.Equal(t, 2.0, promtest.ToFloat64(mc.operations.WithLabelValues("insert", "success")))
	assert.Equal(t, 1.0, promtest.ToFloat64(mc.operations.WithLabelValues("insert", "error")))
	assert.Equal(t, 1.0, promtest.ToFloat64(mc.operations.WithLabelValues("search", "success")))
	assert.Equal(t, 1.0, promtest.ToFloat64(mc.operations.WithLabelValues("train", "success")))
	assert.Equal(t, 1.0, promtest.ToFloat64(mc.operations.WithLabelValues("search", "error")))
	assert.Equal(t, 2.0, promtest.ToFloat64(mc.vectors))

	// Failed searches are not counted as work
	distances := `
# HELP annidx_search_distance_computations Distance computations per search
# TYPE annidx_search_distance_computations histogram
annidx_search_distance_computations_bucket{index="test",le="16"} 0
annidx_search_distance_computations_bucket{index="test",le="32"} 0
annidx_search_distance_computations_bucket{index="test",le="64"} 0
annidx_search_distance_computations_bucket{index="test",le="128"} 1
annidx_search_distance_computations_bucket{index="test",le="256"} 1
annidx_search_distance_computations_bucket{index="test",le="512"} 1
annidx_search_distance_computations_bucket{index="test",le="1024"} 1
annidx_search_distance_computations_bucket{index="test",le="2048"} 1
annidx_search_distance_computations_bucket{index="test",le="4096"} 1
annidx_search_distance_computations_bucket{index="test",le="8192"} 1
annidx_search_distance_computations_bucket{index="test",le="16384"} 1
annidx_search_distance_computations_bucket{index="test",le="32768"} 1
annidx_search_distance_computations_bucket{index="test",le="+Inf"} 1
annidx_search_distance_computations_sum{index="test"} 100
annidx_search_distance_computations_count{index="test"} 1
`
	require.NoError(t, promtest.GatherAndCompare(reg, strings.NewReader(distances), "annidx_search_distance_computations"))

	expected := `
# HELP annidx_vectors Number of vectors held by the index
# TYPE annidx_vectors gauge
annidx_vectors{index="test"} 2
`
	require.NoError(t, promtest.GatherAndCompare(reg, strings.NewReader(expected), "annidx_vectors"))

	// A second index may share the registry
	_, err = NewPrometheusCollector(reg, "other")
	require.NoError(t, err)

	// but not reuse a name
	_, err = NewPrometheusCollector(reg, "test")
	assert.Error(t, err)
}

func TestPrometheusCollector_WithIndex(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()

	mc, err := NewPrometheusCollector(reg, "hnsw")
	require.NoError(t, err)

	h, err := NewHNSW(2, 4, 8, WithMetricsCollector(mc))
	require.NoError(t, err)

	for _, v := range [][]float32{{0, 0}, {1, 1}, {2, 2}} {
		_, err := h.Insert(ctx, v)
		require.NoError(t, err)
	}

	_, err = h.Search(ctx, []float32{0, 0}, 2)
	require.NoError(t, err)

	assert.Equal(t, 3.0, promtest.ToFloat64(mc.vectors))
	assert.Equal(t, 1.0, promtest.ToFloat64(mc.operations.WithLabelValues("search", "success")))
	assert.Equal(t, 1, promtest.CollectAndCount(mc.searchK))
}

func TestMultiMetricsCollector(t *testing.T) {
	a, b := &BasicMetricsCollector{}, &BasicMetricsCollector{}
	mc := MultiMetricsCollector{a, b, NoopMetricsCollector{}}

	mc.RecordInsert(time.Millisecond, nil)
	mc.RecordSearch(3, SearchStats{DistanceComputations: 7}, time.Millisecond, errors.New("boom"))
	mc.RecordTrain(10, time.Millisecond, nil)

	for _, c := range []*BasicMetricsCollector{a, b} {
		stats := c.GetStats()
		assert.Equal(t, int64(1), stats.InsertCount)
		assert.Equal(t, int64(1), stats.SearchErrors)
		assert.Equal(t, int64(7), stats.SearchDistances)
		assert.Equal(t, int64(10), stats.TrainVectors)
	}
}
