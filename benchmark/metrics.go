// Package benchmark - latency benchmarking for QA inference scenarios.
package benchmark

import (
	"math"
	"sort"
	"time"
)

// LatencyStats summarizes per-iteration wall times in milliseconds.
type LatencyStats struct {
	Mean   float64 `json:"mean_ms"`
	StdDev float64 `json:"stddev_ms"`
	Min    float64 `json:"min_ms"`
	Max    float64 `json:"max_ms"`
	P50    float64 `json:"p50_ms"`
	P90    float64 `json:"p90_ms"`
	P95    float64 `json:"p95_ms"`
	P99    float64 `json:"p99_ms"`

	// Throughput is questions answered per second, derived from the mean.
	Throughput float64 `json:"throughput_qps"`
}

// ComputeLatencyStats reduces per-iteration durations to summary statistics.
//
// Percentiles use the nearest-rank method: the sorted sample at index
// ceil(q*n)-1. An empty sample returns the zero value.
//
// Arguments:
//   - samples: One wall time per successful iteration.
//
// Returns:
//   - LatencyStats: Summary statistics in milliseconds.
func ComputeLatencyStats(samples []time.Duration) LatencyStats {
	if len(samples) == 0 {
		return LatencyStats{}
	}

	ms := make([]float64, len(samples))
	for i, d := range samples {
		ms[i] = float64(d.Nanoseconds()) / 1e6
	}
	sort.Float64s(ms)

	var sum float64
	for _, v := range ms {
		sum += v
	}
	mean := sum / float64(len(ms))

	var variance float64
	for _, v := range ms {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(ms))

	stats := LatencyStats{
		Mean:   mean,
		StdDev: math.Sqrt(variance),
		Min:    ms[0],
		Max:    ms[len(ms)-1],
		P50:    percentile(ms, 0.50),
		P90:    percentile(ms, 0.90),
		P95:    percentile(ms, 0.95),
		P99:    percentile(ms, 0.99),
	}
	if mean > 0 {
		stats.Throughput = 1000.0 / mean
	}
	return stats
}

// percentile returns the nearest-rank percentile of a sorted sample.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(q*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

// PerformanceMetrics captures one scenario's measured performance.
type PerformanceMetrics struct {
	Scenario      Scenario      `json:"scenario"`
	Timestamp     time.Time     `json:"timestamp"`
	Latency       LatencyStats  `json:"latency"`
	TotalDuration time.Duration `json:"total_duration"`
	MemoryStats   MemoryMetrics `json:"memory_stats"`
	CPUStats      CPUMetrics    `json:"cpu_stats"`
	Errors        int           `json:"errors"`
	ErrorRate     float64       `json:"error_rate"`
}

// MemoryMetrics captures memory usage statistics over the measured window.
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes"`
}

// CPUMetrics captures CPU configuration for the run.
type CPUMetrics struct {
	NumCPU int `json:"num_cpu"`
}
