package benchmark

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/inferlab/go-qa/benchmark/engines"
	"github.com/inferlab/go-qa/dataset"
	"github.com/inferlab/go-qa/inference/readers"
	"github.com/rs/zerolog/log"
)

// Suite manages and executes benchmark scenarios over one engine.
type Suite struct {
	scenarios []Scenario
	engine    engines.InferenceEngine
	outputDir string
	corpus    []readers.QuestionContext
	mu        sync.RWMutex
	results   []PerformanceMetrics
}

// NewSuite creates a new benchmark suite.
//
// Arguments:
//   - engine: The inference engine scenarios run through.
//   - outputDir: Where results are persisted.
//
// Returns:
//   - *Suite: The benchmark suite.
func NewSuite(engine engines.InferenceEngine, outputDir string) *Suite {
	return &Suite{
		engine:    engine,
		outputDir: outputDir,
		scenarios: make([]Scenario, 0),
		results:   make([]PerformanceMetrics, 0),
	}
}

// AddScenario adds a scenario to the suite.
func (bs *Suite) AddScenario(scenario Scenario) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.scenarios = append(bs.scenarios, scenario)
}

// AddScenarioSet adds every scenario in a set.
func (bs *Suite) AddScenarioSet(set *ScenarioSet) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.scenarios = append(bs.scenarios, set.Scenarios...)
}

// LoadCorpus loads question/context pairs from a SQuAD-format dataset file.
//
// A positive limit samples that many examples deterministically; zero keeps
// the whole file.
func (bs *Suite) LoadCorpus(path string, limit int) error {
	ds, err := dataset.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	if limit > 0 && limit < len(ds.Examples) {
		ds = ds.Sample(limit, 1)
	}

	corpus := make([]readers.QuestionContext, 0, len(ds.Examples))
	for _, example := range ds.Examples {
		corpus = append(corpus, readers.QuestionContext{
			Question: example.Question,
			Context:  example.Context,
		})
	}

	bs.mu.Lock()
	bs.corpus = corpus
	bs.mu.Unlock()
	return nil
}

// SetCorpus installs an in-memory corpus, mostly for tests.
func (bs *Suite) SetCorpus(corpus []readers.QuestionContext) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.corpus = corpus
}

// RunScenario executes a single benchmark scenario.
//
// Warmup runs are executed but not measured; each measured iteration times
// one full question (tokenize, run, decode) over the corpus round-robin.
//
// Arguments:
//   - ctx: Cancels between iterations.
//   - scenario: The scenario to run.
//
// Returns:
//   - *PerformanceMetrics: The measured metrics.
//   - error: An error if the scenario is invalid or the model fails to load.
func (bs *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if scenario.Iterations < 1 {
		return nil, fmt.Errorf("scenario %q needs at least 1 iteration", scenario.Name)
	}

	bs.mu.RLock()
	corpus := bs.corpus
	bs.mu.RUnlock()
	if len(corpus) == 0 {
		return nil, fmt.Errorf("no corpus loaded")
	}

	err := bs.engine.LoadModel(engines.ModelConfig{
		Name:           scenario.ModelName,
		Path:           scenario.ModelPath,
		VocabPath:      scenario.VocabPath,
		SequenceLength: scenario.SequenceLength,
		GraphOptLevel:  scenario.GraphOptLevel,
		Provider:       scenario.Provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	defer bs.engine.Close()

	metrics := &PerformanceMetrics{
		Scenario:  scenario,
		Timestamp: time.Now(),
	}

	// Warmup runs, excluded from every statistic.
	for i := 0; i < scenario.WarmupRuns; i++ {
		pair := corpus[i%len(corpus)]
		if _, err := bs.engine.Infer(ctx, pair.Question, pair.Context); err != nil {
			continue
		}
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	startTime := time.Now()
	samples := make([]time.Duration, 0, scenario.Iterations)
	errors := 0

	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pair := corpus[i%len(corpus)]
		iterStart := time.Now()
		_, err := bs.engine.Infer(ctx, pair.Question, pair.Context)
		if err != nil {
			errors++
			continue
		}
		samples = append(samples, time.Since(iterStart))
	}

	totalDuration := time.Since(startTime)

	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	metrics.TotalDuration = totalDuration
	metrics.Latency = ComputeLatencyStats(samples)
	metrics.Errors = errors
	metrics.ErrorRate = float64(errors) / float64(scenario.Iterations)

	metrics.MemoryStats = MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
		HeapAllocBytes:  endMem.HeapAlloc,
		HeapSysBytes:    endMem.HeapSys,
	}
	metrics.CPUStats = CPUMetrics{
		NumCPU: runtime.NumCPU(),
	}

	return metrics, nil
}

// RunAllScenarios executes every configured scenario and saves the results.
//
// A failing scenario is logged and skipped; the rest of the suite continues.
func (bs *Suite) RunAllScenarios(ctx context.Context) error {
	bs.mu.RLock()
	scenarios := make([]Scenario, len(bs.scenarios))
	copy(scenarios, bs.scenarios)
	bs.mu.RUnlock()

	for _, scenario := range scenarios {
		metrics, err := bs.RunScenario(ctx, scenario)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Str("scenario", scenario.Name).Msg("scenario failed")
			continue
		}

		bs.mu.Lock()
		bs.results = append(bs.results, *metrics)
		bs.mu.Unlock()

		log.Info().
			Str("scenario", scenario.Name).
			Float64("p50_ms", metrics.Latency.P50).
			Float64("p95_ms", metrics.Latency.P95).
			Float64("qps", metrics.Latency.Throughput).
			Msg("scenario completed")
	}

	return bs.SaveResults()
}

// SaveResults persists accumulated results as timestamped JSON and CSV files.
func (bs *Suite) SaveResults() error {
	results := bs.GetResults()

	if err := os.MkdirAll(bs.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")

	resultsFile := filepath.Join(bs.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))
	data, err := marshalByExtension(results, resultsFile)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}

	summaryFile := filepath.Join(bs.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))
	if err := saveSummaryCSV(summaryFile, results); err != nil {
		return fmt.Errorf("failed to save summary CSV: %w", err)
	}

	log.Info().Str("results", resultsFile).Str("summary", summaryFile).Msg("results saved")
	return nil
}

// saveSummaryCSV writes one row per scenario with the headline numbers.
func saveSummaryCSV(filename string, results []PerformanceMetrics) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{
		"scenario", "variant", "model", "seq_length", "opt_level",
		"mean_ms", "p50_ms", "p95_ms", "p99_ms", "qps", "errors", "error_rate",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, result := range results {
		row := []string{
			result.Scenario.Name,
			string(result.Scenario.Variant),
			string(result.Scenario.ModelName),
			strconv.Itoa(result.Scenario.SequenceLength),
			result.Scenario.GraphOptLevel,
			fmt.Sprintf("%.3f", result.Latency.Mean),
			fmt.Sprintf("%.3f", result.Latency.P50),
			fmt.Sprintf("%.3f", result.Latency.P95),
			fmt.Sprintf("%.3f", result.Latency.P99),
			fmt.Sprintf("%.2f", result.Latency.Throughput),
			strconv.Itoa(result.Errors),
			fmt.Sprintf("%.4f", result.ErrorRate),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// GetResults returns a copy of all accumulated results.
func (bs *Suite) GetResults() []PerformanceMetrics {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	results := make([]PerformanceMetrics, len(bs.results))
	copy(results, bs.results)
	return results
}
