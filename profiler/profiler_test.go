package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCollector struct{ value float64 }

func (c fixedCollector) CollectMetrics() map[string]float64 {
	return map[string]float64{"queue_depth": c.value}
}

func TestRecordMetric(t *testing.T) {
	p := NewInferenceProfiler(Options{})
	p.RecordMetric("batch_size", 1)
	p.RecordMetric("batch_size", 3)
	p.RecordMetric("batch_size", 2)

	snapshot := p.Snapshot()
	require.Len(t, snapshot.Metrics, 1)

	metric := snapshot.Metrics[0]
	assert.Equal(t, "batch_size", metric.Name)
	assert.InDelta(t, 2.0, metric.Avg, 1e-9)
	assert.Equal(t, 1.0, metric.Min)
	assert.Equal(t, 3.0, metric.Max)
	assert.Equal(t, 3, metric.Samples)
}

func TestMetricWindowBounded(t *testing.T) {
	p := NewInferenceProfiler(Options{MaxSamples: 4})
	for i := 1; i <= 10; i++ {
		p.RecordMetric("latency", float64(i))
	}

	snapshot := p.Snapshot()
	require.Len(t, snapshot.Metrics, 1)
	assert.Equal(t, 4, snapshot.Metrics[0].Samples)
	// The window holds 7..10 after eviction.
	assert.InDelta(t, 8.5, snapshot.Metrics[0].Avg, 1e-9)
	assert.Equal(t, 7.0, snapshot.Metrics[0].Min)
	assert.Equal(t, 10.0, snapshot.Metrics[0].Max)
}

func TestMetricWindowEvictsExtremes(t *testing.T) {
	p := NewInferenceProfiler(Options{MaxSamples: 3})
	for _, value := range []float64{100, 0.5, 2, 3, 4} {
		p.RecordMetric("latency", value)
	}

	snapshot := p.Snapshot()
	require.Len(t, snapshot.Metrics, 1)

	// The early spike and dip fell out of the window, which holds 2, 3, 4.
	assert.Equal(t, 2.0, snapshot.Metrics[0].Min)
	assert.Equal(t, 4.0, snapshot.Metrics[0].Max)
	assert.InDelta(t, 3.0, snapshot.Metrics[0].Avg, 1e-9)
}

func TestOperationWindowEvictsExtremes(t *testing.T) {
	p := NewInferenceProfiler(Options{MaxSamples: 3})
	durations := []time.Duration{
		time.Second, time.Microsecond,
		2 * time.Millisecond, 3 * time.Millisecond, 4 * time.Millisecond,
	}
	for _, duration := range durations {
		p.recordOperationTime(OpSessionRun, duration)
	}

	snapshot := p.Snapshot()
	require.Len(t, snapshot.Operations, 1)

	run := snapshot.Operations[0]
	assert.Equal(t, int64(5), run.Count)
	assert.InDelta(t, 2.0, run.MinMs, 1e-9)
	assert.InDelta(t, 4.0, run.MaxMs, 1e-9)
	assert.InDelta(t, 3.0, run.AvgMs, 1e-9)
}

func TestStartOperation(t *testing.T) {
	p := NewInferenceProfiler(Options{})

	for i := 0; i < 3; i++ {
		done := p.StartOperation(OpSessionRun)
		time.Sleep(time.Millisecond)
		done()
	}
	p.StartOperation(OpDecode)()

	snapshot := p.Snapshot()
	require.Len(t, snapshot.Operations, 2)

	// Sorted by name: decode before session_run.
	assert.Equal(t, OpDecode, snapshot.Operations[0].Name)
	run := snapshot.Operations[1]
	assert.Equal(t, OpSessionRun, run.Name)
	assert.Equal(t, int64(3), run.Count)
	assert.Greater(t, run.AvgMs, 0.0)
	assert.LessOrEqual(t, run.MinMs, run.P50Ms)
	assert.LessOrEqual(t, run.P50Ms, run.P95Ms)
	assert.LessOrEqual(t, run.P95Ms, run.MaxMs)
}

func TestStartStopIdempotent(t *testing.T) {
	p := NewInferenceProfiler(Options{
		SampleInterval: time.Millisecond,
		ReportInterval: time.Hour,
	})
	p.AddMetricsCollector(fixedCollector{value: 7})

	p.Start()
	p.Start()
	time.Sleep(20 * time.Millisecond)
	p.Stop()
	p.Stop()

	snapshot := p.Snapshot()
	var found bool
	for _, metric := range snapshot.Metrics {
		if metric.Name == "queue_depth" {
			found = true
			assert.Equal(t, 7.0, metric.Avg)
		}
	}
	assert.True(t, found, "collector gauge should have been sampled")
	assert.Greater(t, snapshot.Memory.HeapAlloc, uint64(0))
}

func TestPercentileDuration(t *testing.T) {
	sorted := []time.Duration{
		time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond, 4 * time.Millisecond,
	}
	assert.Equal(t, 2*time.Millisecond, percentileDuration(sorted, 0.50))
	assert.Equal(t, 4*time.Millisecond, percentileDuration(sorted, 0.95))
	assert.Equal(t, time.Duration(0), percentileDuration(nil, 0.5))
}
