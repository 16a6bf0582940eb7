package benchmark

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func durations(ms ...int) []time.Duration {
	out := make([]time.Duration, len(ms))
	for i, v := range ms {
		out[i] = time.Duration(v) * time.Millisecond
	}
	return out
}

func TestComputeLatencyStatsEmpty(t *testing.T) {
	stats := ComputeLatencyStats(nil)
	assert.Zero(t, stats.Mean)
	assert.Zero(t, stats.P95)
	assert.Zero(t, stats.Throughput)
}

func TestComputeLatencyStatsSingleSample(t *testing.T) {
	stats := ComputeLatencyStats(durations(10))

	assert.InDelta(t, 10, stats.Mean, 1e-9)
	assert.InDelta(t, 0, stats.StdDev, 1e-9)
	assert.InDelta(t, 10, stats.Min, 1e-9)
	assert.InDelta(t, 10, stats.Max, 1e-9)
	assert.InDelta(t, 10, stats.P50, 1e-9)
	assert.InDelta(t, 10, stats.P99, 1e-9)
	assert.InDelta(t, 100, stats.Throughput, 1e-9)
}

func TestComputeLatencyStatsPercentiles(t *testing.T) {
	// 1..100 ms: nearest-rank pXX is exactly XX ms.
	ms := make([]int, 100)
	for i := range ms {
		ms[i] = i + 1
	}
	stats := ComputeLatencyStats(durations(ms...))

	assert.InDelta(t, 50, stats.P50, 1e-9)
	assert.InDelta(t, 90, stats.P90, 1e-9)
	assert.InDelta(t, 95, stats.P95, 1e-9)
	assert.InDelta(t, 99, stats.P99, 1e-9)
	assert.InDelta(t, 1, stats.Min, 1e-9)
	assert.InDelta(t, 100, stats.Max, 1e-9)
	assert.InDelta(t, 50.5, stats.Mean, 1e-9)
}

func TestComputeLatencyStatsUnsortedInput(t *testing.T) {
	stats := ComputeLatencyStats(durations(30, 10, 20))

	assert.InDelta(t, 10, stats.Min, 1e-9)
	assert.InDelta(t, 30, stats.Max, 1e-9)
	assert.InDelta(t, 20, stats.P50, 1e-9)
	assert.InDelta(t, 20, stats.Mean, 1e-9)
}

func TestPercentileNearestRank(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}

	// ceil(0.5*4)-1 = 1, ceil(0.95*4)-1 = 3.
	assert.InDelta(t, 2, percentile(sorted, 0.50), 1e-9)
	assert.InDelta(t, 4, percentile(sorted, 0.95), 1e-9)
	assert.InDelta(t, 1, percentile(sorted, 0.0), 1e-9)
}
