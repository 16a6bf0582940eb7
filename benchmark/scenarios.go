package benchmark

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/inferlab/go-qa/inference/providers"
	"github.com/inferlab/go-qa/models/model"
	"gopkg.in/yaml.v3"
)

// Variant identifies which build of a model a scenario measures.
type Variant string

const (
	// VariantFP32 is the unmodified float32 export.
	VariantFP32 Variant = "fp32"
	// VariantOptimized is the graph-optimized float export.
	VariantOptimized Variant = "optimized"
	// VariantINT8 is the dynamically quantized export.
	VariantINT8 Variant = "int8"
)

// Scenario defines one benchmark configuration.
type Scenario struct {
	Name           string                    `json:"name"            yaml:"name"`
	Variant        Variant                   `json:"variant"         yaml:"variant"`
	ModelName      model.Name                `json:"model_name"      yaml:"model_name"`
	ModelPath      string                    `json:"model_path"      yaml:"model_path"`
	VocabPath      string                    `json:"vocab_path"      yaml:"vocab_path"`
	Provider       providers.ProviderBackend `json:"provider"        yaml:"provider"`
	GraphOptLevel  string                    `json:"graph_opt_level" yaml:"graph_opt_level"`
	SequenceLength int                       `json:"sequence_length" yaml:"sequence_length"`
	BatchSize      int                       `json:"batch_size"      yaml:"batch_size"`
	Iterations     int                       `json:"iterations"      yaml:"iterations"`
	WarmupRuns     int                       `json:"warmup_runs"     yaml:"warmup_runs"`
}

// ScenarioBuilder helps build scenarios with a fluent API.
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a new scenario builder with defaults.
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:           name,
			Variant:        VariantFP32,
			Provider:       providers.CPUProviderBackend,
			GraphOptLevel:  "all",
			SequenceLength: 384,
			BatchSize:      1,
			Iterations:     100,
			WarmupRuns:     10,
		},
	}
}

// WithVariant sets the model variant under test.
func (sb *ScenarioBuilder) WithVariant(variant Variant) *ScenarioBuilder {
	sb.scenario.Variant = variant
	return sb
}

// WithModel sets the model family and ONNX file.
func (sb *ScenarioBuilder) WithModel(name model.Name, modelPath string) *ScenarioBuilder {
	sb.scenario.ModelName = name
	sb.scenario.ModelPath = modelPath
	return sb
}

// WithVocab sets the vocabulary file.
func (sb *ScenarioBuilder) WithVocab(vocabPath string) *ScenarioBuilder {
	sb.scenario.VocabPath = vocabPath
	return sb
}

// WithProvider sets the execution provider backend.
func (sb *ScenarioBuilder) WithProvider(backend providers.ProviderBackend) *ScenarioBuilder {
	sb.scenario.Provider = backend
	return sb
}

// WithGraphOptLevel sets the graph optimization level by name.
func (sb *ScenarioBuilder) WithGraphOptLevel(level string) *ScenarioBuilder {
	sb.scenario.GraphOptLevel = level
	return sb
}

// WithSequenceLength sets the padded sequence length.
func (sb *ScenarioBuilder) WithSequenceLength(length int) *ScenarioBuilder {
	sb.scenario.SequenceLength = length
	return sb
}

// WithBatchSize sets the batch size for processing.
func (sb *ScenarioBuilder) WithBatchSize(batchSize int) *ScenarioBuilder {
	sb.scenario.BatchSize = batchSize
	return sb
}

// WithIterations sets the number of measured iterations.
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of unmeasured warmup runs.
func (sb *ScenarioBuilder) WithWarmupRuns(warmups int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmups
	return sb
}

// Build returns the configured scenario.
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// ScenarioSet represents a collection of related scenarios.
type ScenarioSet struct {
	Name        string     `json:"name"        yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Scenarios   []Scenario `json:"scenarios"   yaml:"scenarios"`
}

// PredefinedScenarios contains common benchmark scenario sets.
type PredefinedScenarios struct{}

// comparisonSequenceLengths are the padded lengths the comprehensive set sweeps.
var comparisonSequenceLengths = []int{128, 256, 384}

// GetQuickScenarios returns a small set for fast sanity runs.
//
// One scenario per available variant at the standard sequence length.
func (ps *PredefinedScenarios) GetQuickScenarios(
	name model.Name, modelPaths map[Variant]string, vocabPath string,
) *ScenarioSet {
	scenarios := make([]Scenario, 0, len(modelPaths))
	for _, variant := range []Variant{VariantFP32, VariantOptimized, VariantINT8} {
		path, ok := modelPaths[variant]
		if !ok {
			continue
		}
		scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("quick_%s_%s", name, variant)).
			WithVariant(variant).
			WithModel(name, path).
			WithVocab(vocabPath).
			WithIterations(20).
			WithWarmupRuns(3).
			Build())
	}

	return &ScenarioSet{
		Name:        "Quick Performance Test",
		Description: "One short run per model variant at the standard sequence length",
		Scenarios:   scenarios,
	}
}

// GetComprehensiveScenarios returns the full variant-by-sequence-length grid.
func (ps *PredefinedScenarios) GetComprehensiveScenarios(
	name model.Name, modelPaths map[Variant]string, vocabPath string,
) *ScenarioSet {
	scenarios := make([]Scenario, 0)
	for _, variant := range []Variant{VariantFP32, VariantOptimized, VariantINT8} {
		path, ok := modelPaths[variant]
		if !ok {
			continue
		}
		for _, seqLen := range comparisonSequenceLengths {
			scenarios = append(scenarios,
				NewScenarioBuilder(fmt.Sprintf("%s_%s_seq%d", name, variant, seqLen)).
					WithVariant(variant).
					WithModel(name, path).
					WithVocab(vocabPath).
					WithSequenceLength(seqLen).
					WithIterations(100).
					WithWarmupRuns(10).
					Build())
		}
	}

	return &ScenarioSet{
		Name:        "Comprehensive Performance Test",
		Description: "Tests all combinations of model variants and sequence lengths",
		Scenarios:   scenarios,
	}
}

// GetOptimizationLevelScenarios sweeps the runtime's graph optimization levels
// over one model file.
func (ps *PredefinedScenarios) GetOptimizationLevelScenarios(
	name model.Name, modelPath, vocabPath string,
) *ScenarioSet {
	levels := []string{"disable_all", "basic", "extended", "all"}
	scenarios := make([]Scenario, 0, len(levels))
	for _, level := range levels {
		scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("optlevel_%s_%s", name, level)).
			WithModel(name, modelPath).
			WithVocab(vocabPath).
			WithGraphOptLevel(level).
			WithIterations(100).
			WithWarmupRuns(10).
			Build())
	}

	return &ScenarioSet{
		Name:        fmt.Sprintf("Optimization Level Comparison - %s", name),
		Description: "Compares runtime graph optimization levels over one model file",
		Scenarios:   scenarios,
	}
}

// GetPrecisionComparisonScenarios compares variants at a fixed sequence length.
func (ps *PredefinedScenarios) GetPrecisionComparisonScenarios(
	name model.Name, modelPaths map[Variant]string, vocabPath string, sequenceLength int,
) *ScenarioSet {
	scenarios := make([]Scenario, 0, len(modelPaths))
	for _, variant := range []Variant{VariantFP32, VariantOptimized, VariantINT8} {
		path, ok := modelPaths[variant]
		if !ok {
			continue
		}
		scenarios = append(scenarios,
			NewScenarioBuilder(fmt.Sprintf("precision_%s_%s_seq%d", name, variant, sequenceLength)).
				WithVariant(variant).
				WithModel(name, path).
				WithVocab(vocabPath).
				WithSequenceLength(sequenceLength).
				WithIterations(100).
				WithWarmupRuns(10).
				Build())
	}

	return &ScenarioSet{
		Name:        fmt.Sprintf("Precision Comparison - %s @ seq%d", name, sequenceLength),
		Description: "Compares fp32, optimized, and int8 variants at a fixed sequence length",
		Scenarios:   scenarios,
	}
}

// SaveScenarioSet saves a scenario set to a JSON or YAML file by extension.
func SaveScenarioSet(scenarioSet *ScenarioSet, filename string) error {
	data, err := marshalByExtension(scenarioSet, filename)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario set: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write scenario file: %w", err)
	}
	return nil
}

// LoadScenarioSet loads a scenario set from a JSON or YAML file.
func LoadScenarioSet(filename string) (*ScenarioSet, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenarioSet ScenarioSet
	if err := unmarshalByExtension(data, filename, &scenarioSet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenario set: %w", err)
	}
	return &scenarioSet, nil
}

// Config represents the overall benchmark configuration.
type Config struct {
	OutputDir      string              `json:"output_dir"      yaml:"output_dir"`
	DatasetPath    string              `json:"dataset_path"    yaml:"dataset_path"`
	VocabPath      string              `json:"vocab_path"      yaml:"vocab_path"`
	ModelName      model.Name          `json:"model_name"      yaml:"model_name"`
	ModelPaths     map[Variant]string  `json:"model_paths"     yaml:"model_paths"`
	SampleSize     int                 `json:"sample_size"     yaml:"sample_size"`
	TimeoutSeconds int                 `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// DefaultConfig returns a default benchmark configuration.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:      "./benchmark_results",
		ModelPaths:     make(map[Variant]string),
		SampleSize:     100,
		TimeoutSeconds: 3600,
	}
}

// SaveConfig saves the configuration to a JSON or YAML file by extension.
func (c *Config) SaveConfig(filename string) error {
	data, err := marshalByExtension(c, filename)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadConfig loads configuration from a JSON or YAML file.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := unmarshalByExtension(data, filename, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return config, nil
}

// marshalByExtension encodes v as YAML for .yaml/.yml files, JSON otherwise.
func marshalByExtension(v interface{}, filename string) ([]byte, error) {
	switch filepath.Ext(filename) {
	case ".yaml", ".yml":
		return yaml.Marshal(v)
	default:
		return json.MarshalIndent(v, "", "  ")
	}
}

// unmarshalByExtension decodes data per the filename's extension.
func unmarshalByExtension(data []byte, filename string, v interface{}) error {
	switch filepath.Ext(filename) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	default:
		return json.Unmarshal(data, v)
	}
}
