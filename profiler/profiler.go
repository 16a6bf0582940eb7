// Package profiler - runtime profiling for long benchmark and evaluation runs.
//
// The profiler samples Go runtime state in the background and tracks named
// inference pipeline stages, so a multi-hour benchmark surfaces memory growth
// or stage-level slowdowns while it is still running.
package profiler

import (
	"context"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Canonical pipeline stage names used across the reader path.
const (
	OpTokenize   = "tokenize"
	OpSessionRun = "session_run"
	OpDecode     = "decode"
)

// MetricsCollector supplies custom gauges sampled on the profiler's cadence.
type MetricsCollector interface {
	CollectMetrics() map[string]float64
}

// InferenceProfiler samples runtime state and tracks pipeline stage timings.
//
// Thread-safe; one instance is shared across benchmark workers.
type InferenceProfiler struct {
	reportInterval time.Duration
	sampleInterval time.Duration
	maxSamples     int

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	startTime time.Time
	running   bool

	memStats    runtime.MemStats
	lastGCCount uint32

	metrics    map[string]*MetricTracker
	collectors []MetricsCollector
	operations map[string]*TimeTracker
}

// MetricTracker keeps a bounded window of samples for one gauge. All
// statistics except the lifetime observation count cover the window.
type MetricTracker struct {
	values []float64
	sum    float64
	min    float64
	max    float64
	count  int64
}

// TimeTracker keeps a bounded window of durations for one pipeline stage.
// All statistics except the lifetime observation count cover the window.
type TimeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// Options configures the profiler.
type Options struct {
	// ReportInterval is the status log cadence. Defaults to 10s.
	ReportInterval time.Duration `json:"report_interval" yaml:"report_interval"`

	// SampleInterval is the runtime sampling cadence. Defaults to 250ms.
	SampleInterval time.Duration `json:"sample_interval" yaml:"sample_interval"`

	// MaxSamples bounds each tracker's window. Defaults to 1000.
	MaxSamples int `json:"max_samples" yaml:"max_samples"`
}

// NewInferenceProfiler creates a profiler with the given options.
//
// Arguments:
//   - opts: Sampling and reporting configuration, zero values take defaults.
//
// Returns:
//   - *InferenceProfiler: A profiler ready to Start.
func NewInferenceProfiler(opts Options) *InferenceProfiler {
	if opts.ReportInterval == 0 {
		opts.ReportInterval = 10 * time.Second
	}
	if opts.SampleInterval == 0 {
		opts.SampleInterval = 250 * time.Millisecond
	}
	if opts.MaxSamples == 0 {
		opts.MaxSamples = 1000
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &InferenceProfiler{
		reportInterval: opts.ReportInterval,
		sampleInterval: opts.SampleInterval,
		maxSamples:     opts.MaxSamples,
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
		metrics:        make(map[string]*MetricTracker),
		operations:     make(map[string]*TimeTracker),
	}
}

// Start launches the sampling and reporting goroutines. Safe to call twice.
func (p *InferenceProfiler) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	p.startTime = time.Now()

	p.wg.Add(2)
	go p.sampleLoop()
	go p.reportLoop()
}

// Stop halts the background goroutines and waits for them to exit.
func (p *InferenceProfiler) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

// AddMetricsCollector registers a gauge source sampled on each tick.
func (p *InferenceProfiler) AddMetricsCollector(collector MetricsCollector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.collectors = append(p.collectors, collector)
}

// RecordMetric records one gauge observation.
//
// Arguments:
//   - name: The metric name.
//   - value: The observed value.
func (p *InferenceProfiler) RecordMetric(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recordMetricLocked(name, value)
}

func (p *InferenceProfiler) recordMetricLocked(name string, value float64) {
	tracker, ok := p.metrics[name]
	if !ok {
		tracker = &MetricTracker{min: value, max: value}
		p.metrics[name] = tracker
	}

	tracker.values = append(tracker.values, value)
	tracker.sum += value
	tracker.count++

	if len(tracker.values) > p.maxSamples {
		evicted := tracker.values[0]
		tracker.sum -= evicted
		tracker.values = tracker.values[1:]
		// An evicted extreme forces a rescan of the remaining window.
		if evicted == tracker.min || evicted == tracker.max {
			tracker.min, tracker.max = windowMinMax(tracker.values)
			return
		}
	}

	if value < tracker.min {
		tracker.min = value
	}
	if value > tracker.max {
		tracker.max = value
	}
}

// windowMinMax rescans a non-empty window after an extreme is evicted.
func windowMinMax(values []float64) (float64, float64) {
	min, max := values[0], values[0]
	for _, value := range values[1:] {
		if value < min {
			min = value
		}
		if value > max {
			max = value
		}
	}
	return min, max
}

// StartOperation begins timing one pipeline stage.
//
// Arguments:
//   - name: The stage name, typically OpTokenize, OpSessionRun, or OpDecode.
//
// Returns:
//   - func(): Completion callback recording the elapsed time.
func (p *InferenceProfiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.recordOperationTime(name, time.Since(start))
	}
}

func (p *InferenceProfiler) recordOperationTime(name string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, ok := p.operations[name]
	if !ok {
		tracker = &TimeTracker{minTime: duration, maxTime: duration}
		p.operations[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	tracker.totalTime += duration
	tracker.count++

	if len(tracker.durations) > p.maxSamples {
		evicted := tracker.durations[0]
		tracker.totalTime -= evicted
		tracker.durations = tracker.durations[1:]
		if evicted == tracker.minTime || evicted == tracker.maxTime {
			tracker.minTime, tracker.maxTime = windowMinMaxDuration(tracker.durations)
			return
		}
	}

	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

func windowMinMaxDuration(durations []time.Duration) (time.Duration, time.Duration) {
	min, max := durations[0], durations[0]
	for _, duration := range durations[1:] {
		if duration < min {
			min = duration
		}
		if duration > max {
			max = duration
		}
	}
	return min, max
}

// sampleLoop collects runtime state and collector gauges on each tick.
func (p *InferenceProfiler) sampleLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.sample()
		}
	}
}

func (p *InferenceProfiler) sample() {
	p.mu.Lock()
	defer p.mu.Unlock()

	runtime.ReadMemStats(&p.memStats)
	p.recordMetricLocked("goroutines", float64(runtime.NumGoroutine()))
	p.recordMetricLocked("heap_alloc_mb", float64(p.memStats.HeapAlloc)/(1024*1024))

	for _, collector := range p.collectors {
		for name, value := range collector.CollectMetrics() {
			p.recordMetricLocked(name, value)
		}
	}
}

// reportLoop emits a status log line on each report tick.
func (p *InferenceProfiler) reportLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.emitStatusReport()
		}
	}
}

// emitStatusReport logs uptime, memory, GC activity, and stage timings.
func (p *InferenceProfiler) emitStatusReport() {
	snapshot := p.Snapshot()

	event := log.Info().
		Dur("uptime", snapshot.Uptime).
		Int("goroutines", snapshot.Goroutines).
		Uint64("heap_alloc", snapshot.Memory.HeapAlloc).
		Uint64("heap_objects", snapshot.Memory.HeapObjects).
		Uint32("gc_cycles", snapshot.Memory.GCCycles)

	for _, operation := range snapshot.Operations {
		event = event.
			Float64(operation.Name+"_avg_ms", operation.AvgMs).
			Float64(operation.Name+"_p95_ms", operation.P95Ms).
			Int64(operation.Name+"_count", operation.Count)
	}
	event.Msg("profiler status")
}

// MemorySnapshot is the memory slice of one profiler snapshot.
type MemorySnapshot struct {
	Alloc         uint64  `json:"alloc"`
	TotalAlloc    uint64  `json:"total_alloc"`
	Sys           uint64  `json:"sys"`
	HeapAlloc     uint64  `json:"heap_alloc"`
	HeapObjects   uint64  `json:"heap_objects"`
	GCCycles      uint32  `json:"gc_cycles"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
}

// MetricSnapshot summarizes one gauge's bounded window.
type MetricSnapshot struct {
	Name    string  `json:"name"`
	Avg     float64 `json:"avg"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Samples int     `json:"samples"`
}

// OperationSnapshot summarizes one pipeline stage's bounded window.
// Count is the lifetime observation total; the timing fields cover the window.
type OperationSnapshot struct {
	Name  string  `json:"name"`
	Count int64   `json:"count"`
	AvgMs float64 `json:"avg_ms"`
	MinMs float64 `json:"min_ms"`
	MaxMs float64 `json:"max_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
}

// Snapshot is one consistent view of the profiler's state.
type Snapshot struct {
	Uptime     time.Duration       `json:"uptime"`
	Goroutines int                 `json:"goroutines"`
	Memory     MemorySnapshot      `json:"memory"`
	Metrics    []MetricSnapshot    `json:"metrics"`
	Operations []OperationSnapshot `json:"operations"`
}

// Snapshot captures current statistics, sorted by name for stable output.
func (p *InferenceProfiler) Snapshot() *Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	runtime.ReadMemStats(&p.memStats)

	snapshot := &Snapshot{
		Uptime:     time.Since(p.startTime),
		Goroutines: runtime.NumGoroutine(),
		Memory: MemorySnapshot{
			Alloc:         p.memStats.Alloc,
			TotalAlloc:    p.memStats.TotalAlloc,
			Sys:           p.memStats.Sys,
			HeapAlloc:     p.memStats.HeapAlloc,
			HeapObjects:   p.memStats.HeapObjects,
			GCCycles:      p.memStats.NumGC,
			GCCPUFraction: p.memStats.GCCPUFraction,
		},
	}

	for name, tracker := range p.metrics {
		if len(tracker.values) == 0 {
			continue
		}
		snapshot.Metrics = append(snapshot.Metrics, MetricSnapshot{
			Name:    name,
			Avg:     tracker.sum / float64(len(tracker.values)),
			Min:     tracker.min,
			Max:     tracker.max,
			Samples: len(tracker.values),
		})
	}
	sort.Slice(snapshot.Metrics, func(i, j int) bool {
		return snapshot.Metrics[i].Name < snapshot.Metrics[j].Name
	})

	for name, tracker := range p.operations {
		if len(tracker.durations) == 0 {
			continue
		}
		sorted := make([]time.Duration, len(tracker.durations))
		copy(sorted, tracker.durations)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		avg := tracker.totalTime / time.Duration(len(sorted))
		snapshot.Operations = append(snapshot.Operations, OperationSnapshot{
			Name:  name,
			Count: tracker.count,
			AvgMs: toMs(avg),
			MinMs: toMs(tracker.minTime),
			MaxMs: toMs(tracker.maxTime),
			P50Ms: toMs(percentileDuration(sorted, 0.50)),
			P95Ms: toMs(percentileDuration(sorted, 0.95)),
		})
	}
	sort.Slice(snapshot.Operations, func(i, j int) bool {
		return snapshot.Operations[i].Name < snapshot.Operations[j].Name
	})

	return snapshot
}

// percentileDuration takes the nearest-rank percentile of a sorted window.
func percentileDuration(sorted []time.Duration, q float64) time.Duration {
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

func toMs(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
