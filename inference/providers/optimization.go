// Package providers - ONNX Runtime session optimization settings.
package providers

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

// OptimizationConfig contains ONNX Runtime session optimization settings.
//
// This configuration enables fine-tuning of ONNX Runtime behavior across the
// benchmark's scenario grid, from fully disabled graph optimization up to
// layout-changing fusions plus execution provider selection.
type OptimizationConfig struct {
	// GraphOptimizationLevel controls the level of graph optimization.
	GraphOptimizationLevel ort.GraphOptimizationLevel `json:"graph_optimization_level" yaml:"graph_optimization_level"`

	// ExecutionMode controls sequential vs parallel execution of independent graph branches.
	ExecutionMode ort.ExecutionMode `json:"execution_mode" yaml:"execution_mode"`

	// IntraOpNumThreads sets threads for parallelizing individual ops.
	IntraOpNumThreads int `json:"intra_op_num_threads" yaml:"intra_op_num_threads"`

	// InterOpNumThreads sets threads for parallelizing independent ops.
	InterOpNumThreads int `json:"inter_op_num_threads" yaml:"inter_op_num_threads"`

	// EnableMemoryPattern lets the runtime plan allocations from observed
	// shapes. Effective here because every feature pads to MaxSeqLength.
	EnableMemoryPattern bool `json:"enable_memory_pattern" yaml:"enable_memory_pattern"`

	// ExecutionProviders configures available execution providers.
	ExecutionProviders []ExecutionProviderConfig `json:"execution_providers" yaml:"execution_providers"`

	// SequenceProfiles defines expected token-length ranges per input for
	// shape-aware tuning.
	SequenceProfiles []SequenceProfile `json:"sequence_profiles" yaml:"sequence_profiles"`
}

// SequenceProfile defines min, max, and typical sequence lengths for one input.
//
// Transformer QA graphs are dynamic in the sequence axis. Recording the range
// the tokenizer actually produces lets the benchmark pad consistently and
// lets providers that prefer static shapes pick a working length.
type SequenceProfile struct {
	// InputName is the name of the input tensor.
	InputName string `json:"input_name" yaml:"input_name"`

	// MinLength is the shortest padded sequence expected.
	MinLength int64 `json:"min_length" yaml:"min_length"`

	// MaxLength is the longest padded sequence expected.
	MaxLength int64 `json:"max_length" yaml:"max_length"`

	// TypicalLength is the most common padded sequence length.
	TypicalLength int64 `json:"typical_length" yaml:"typical_length"`
}

// DefaultOptimizationConfig returns a production-ready optimization configuration.
//
// Full graph optimization, parallel execution, and platform-appropriate
// execution providers in priority order.
func DefaultOptimizationConfig() OptimizationConfig {
	numCPU := runtime.NumCPU()

	return OptimizationConfig{
		GraphOptimizationLevel: ort.GraphOptimizationLevelEnableAll,
		ExecutionMode:          ort.ExecutionModeParallel,
		IntraOpNumThreads:      maxInt(1, numCPU/2),
		InterOpNumThreads:      maxInt(1, numCPU/4),
		EnableMemoryPattern:    true,
		ExecutionProviders:     defaultExecutionProviders(),
		SequenceProfiles: []SequenceProfile{
			{
				InputName:     "input_ids",
				MinLength:     32,
				MaxLength:     512,
				TypicalLength: 384,
			},
		},
	}
}

// DevelopmentOptimizationConfig returns a configuration for debugging.
//
// All graph rewrites are disabled and execution is single-threaded and
// sequential so logits match the unoptimized export node for node.
func DevelopmentOptimizationConfig() OptimizationConfig {
	config := DefaultOptimizationConfig()
	config.GraphOptimizationLevel = ort.GraphOptimizationLevelDisableAll
	config.ExecutionMode = ort.ExecutionModeSequential
	config.IntraOpNumThreads = 1
	config.InterOpNumThreads = 1
	config.EnableMemoryPattern = false
	return config
}

// ThroughputOptimizationConfig returns a configuration tuned for batch evaluation.
func ThroughputOptimizationConfig() OptimizationConfig {
	config := DefaultOptimizationConfig()
	config.IntraOpNumThreads = runtime.NumCPU()
	config.InterOpNumThreads = maxInt(1, runtime.NumCPU()/2)
	return config
}

// LowLatencyOptimizationConfig returns a configuration tuned for single-question latency.
//
// Sequential execution with a modest intra-op pool avoids thread wakeup
// overhead dominating short sequences.
func LowLatencyOptimizationConfig() OptimizationConfig {
	config := DefaultOptimizationConfig()
	config.ExecutionMode = ort.ExecutionModeSequential
	config.IntraOpNumThreads = maxInt(1, runtime.NumCPU()/2)
	config.InterOpNumThreads = 1
	return config
}

// defaultExecutionProviders returns platform-appropriate execution providers.
func defaultExecutionProviders() []ExecutionProviderConfig {
	providers := []ExecutionProviderConfig{
		{
			Provider: CPUProviderBackend,
			Options:  map[string]string{},
			Priority: 1,
			Enabled:  true,
		},
	}

	switch runtime.GOOS {
	case "darwin":
		if runtime.GOARCH == "arm64" {
			providers = append(providers, ExecutionProviderConfig{
				Provider: CoreMLProviderBackend,
				Options: map[string]string{
					"ml_compute_units": "ALL",
				},
				Priority: 10,
				Enabled:  true,
			})
		}
	case "linux", "windows":
		providers = append(providers, ExecutionProviderConfig{
			Provider: CUDAProviderBackend,
			Options: map[string]string{
				"device_id":                 "0",
				"gpu_mem_limit":             "2147483648",
				"arena_extend_strategy":     "1",
				"do_copy_in_default_stream": "true",
			},
			Priority: 20,
			Enabled:  false,
		})

		providers = append(providers, ExecutionProviderConfig{
			Provider: OpenVINOProviderBackend,
			Options: map[string]string{
				"device_type": "CPU",
			},
			Priority: 5,
			Enabled:  false,
		})
	}

	return providers
}

// OptimizedSessionOptions builds session options from an optimization configuration.
//
// The returned options carry the graph optimization level, threading and
// execution mode settings, and every enabled execution provider in priority
// order. Callers own the options and must Destroy them after session creation.
//
// Arguments:
//   - config: Optimization configuration to apply.
//
// Returns:
//   - *ort.SessionOptions: Configured session options.
//   - error: Configuration error if any.
func OptimizedSessionOptions(config OptimizationConfig) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}

	if err := options.SetGraphOptimizationLevel(config.GraphOptimizationLevel); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("failed to set graph optimization level: %w", err)
	}
	if err := options.SetExecutionMode(config.ExecutionMode); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("failed to set execution mode: %w", err)
	}
	if config.IntraOpNumThreads > 0 {
		if err := options.SetIntraOpNumThreads(config.IntraOpNumThreads); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}
	if config.InterOpNumThreads > 0 {
		if err := options.SetInterOpNumThreads(config.InterOpNumThreads); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("failed to set inter-op threads: %w", err)
		}
	}
	if err := options.SetMemPattern(config.EnableMemoryPattern); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("failed to set memory pattern: %w", err)
	}

	if err := applyExecutionProviders(options, config.ExecutionProviders); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("failed to configure execution providers: %w", err)
	}

	return options, nil
}

// applyExecutionProviders registers enabled providers by descending priority.
//
// Accelerator providers may be missing from the linked ONNX Runtime build.
// Registration failures for optional providers log a warning and fall through
// to the next provider; only an unknown backend name is an error.
func applyExecutionProviders(options *ort.SessionOptions, providers []ExecutionProviderConfig) error {
	enabled := make([]ExecutionProviderConfig, 0, len(providers))
	for _, provider := range providers {
		if provider.Enabled {
			enabled = append(enabled, provider)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority > enabled[j].Priority
	})

	for _, provider := range enabled {
		switch provider.Provider {
		case CPUProviderBackend:
			// Always available, registered implicitly as the fallback.

		case CoreMLProviderBackend:
			opts := CoreMLOptions{
				MLComputeUnits:           provider.Options["ml_compute_units"],
				RequireStaticInputShapes: parseIntOption(provider.Options, "require_static_input_shapes"),
				EnableOnSubgraphs:        parseIntOption(provider.Options, "enable_on_subgraphs"),
			}
			if err := options.AppendExecutionProviderCoreML(opts.Flags()); err != nil {
				log.Warn().Err(err).Msg("CoreML provider unavailable, falling back")
			}

		case OpenVINOProviderBackend:
			if err := options.AppendExecutionProviderOpenVINO(provider.Options); err != nil {
				log.Warn().Err(err).Msg("OpenVINO provider unavailable, falling back")
			}

		case CUDAProviderBackend:
			opts := CUDAOptions{
				DeviceID:              parseIntOption(provider.Options, "device_id"),
				DoCopyInDefaultStream: provider.Options["do_copy_in_default_stream"] != "false",
				GPUMemLimit:           int64(parseIntOption(provider.Options, "gpu_mem_limit")),
				ArenaExtendStrategy:   parseIntOption(provider.Options, "arena_extend_strategy"),
				EnableCudaGraph:       parseIntOption(provider.Options, "enable_cuda_graph"),
				UseTF32:               parseIntOption(provider.Options, "use_tf32"),
			}
			native, err := opts.ToNativeProviderOptions()
			if err != nil {
				log.Warn().Err(err).Msg("CUDA provider options rejected, falling back")
				continue
			}
			err = options.AppendExecutionProviderCUDA(native)
			native.Destroy()
			if err != nil {
				log.Warn().Err(err).Msg("CUDA provider unavailable, falling back")
			}

		case TensorRTProviderBackend, DNNLProviderBackend:
			// Not exposed by the Go bindings yet. Config entries are kept so
			// scenario files stay portable across runtimes.
			log.Info().Str("provider", string(provider.Provider)).
				Msg("provider not supported by the Go bindings, skipping")

		default:
			return fmt.Errorf("unsupported execution provider: %s", provider.Provider)
		}
	}

	return nil
}

// ParseGraphOptimizationLevel maps a scenario-file level name to the runtime constant.
//
// Arguments:
//   - level: One of "disable_all", "basic", "extended", or "all".
//
// Returns:
//   - ort.GraphOptimizationLevel: The matching runtime constant.
//   - error: An error if the name is unknown.
func ParseGraphOptimizationLevel(level string) (ort.GraphOptimizationLevel, error) {
	switch level {
	case "disable_all":
		return ort.GraphOptimizationLevelDisableAll, nil
	case "basic":
		return ort.GraphOptimizationLevelEnableBasic, nil
	case "extended":
		return ort.GraphOptimizationLevelEnableExtended, nil
	case "all":
		return ort.GraphOptimizationLevelEnableAll, nil
	default:
		return 0, fmt.Errorf("unknown graph optimization level: %q", level)
	}
}

// GraphOptimizationLevelName returns the scenario-file name for a runtime constant.
func GraphOptimizationLevelName(level ort.GraphOptimizationLevel) string {
	switch level {
	case ort.GraphOptimizationLevelDisableAll:
		return "disable_all"
	case ort.GraphOptimizationLevelEnableBasic:
		return "basic"
	case ort.GraphOptimizationLevelEnableExtended:
		return "extended"
	case ort.GraphOptimizationLevelEnableAll:
		return "all"
	default:
		return "unknown"
	}
}

// parseIntOption reads an integer option, returning zero when absent or malformed.
func parseIntOption(options map[string]string, key string) int {
	value, ok := options[key]
	if !ok {
		return 0
	}
	var parsed int
	if _, err := fmt.Sscanf(value, "%d", &parsed); err != nil {
		return 0
	}
	return parsed
}

// maxInt returns the maximum of two integers.
func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
