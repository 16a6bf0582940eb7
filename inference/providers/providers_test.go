package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		options ProviderOptions
		backend ProviderBackend
	}{
		{"cpu", CPUOptions{}, CPUProviderBackend},
		{"cuda", CUDAOptions{DeviceID: 1}, CUDAProviderBackend},
		{"coreml", CoreMLOptions{MLComputeUnits: "ALL"}, CoreMLProviderBackend},
		{"openvino", OpenVINOOptions{DeviceType: "CPU"}, OpenVINOProviderBackend},
		{"dnnl", DNNLOptions{UseArena: true}, DNNLProviderBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.options)
			require.NoError(t, err)
			assert.Equal(t, tt.backend, provider.Backend())
			assert.Equal(t, tt.options, provider.Options())
		})
	}
}

func TestNewProviderUnsupported(t *testing.T) {
	_, err := NewProvider(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider options type")
}

func TestDefaultOptimizationConfig(t *testing.T) {
	config := DefaultOptimizationConfig()

	assert.Equal(t, ort.GraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll), config.GraphOptimizationLevel)
	assert.Equal(t, ort.ExecutionMode(ort.ExecutionModeParallel), config.ExecutionMode)
	assert.GreaterOrEqual(t, config.IntraOpNumThreads, 1)
	assert.GreaterOrEqual(t, config.InterOpNumThreads, 1)
	assert.True(t, config.EnableMemoryPattern)
	require.NotEmpty(t, config.ExecutionProviders)
	assert.Equal(t, CPUProviderBackend, config.ExecutionProviders[0].Provider)
	assert.True(t, config.ExecutionProviders[0].Enabled)
	require.NotEmpty(t, config.SequenceProfiles)
	assert.Equal(t, "input_ids", config.SequenceProfiles[0].InputName)
}

func TestDevelopmentOptimizationConfig(t *testing.T) {
	config := DevelopmentOptimizationConfig()

	assert.Equal(t, ort.GraphOptimizationLevel(ort.GraphOptimizationLevelDisableAll), config.GraphOptimizationLevel)
	assert.Equal(t, ort.ExecutionMode(ort.ExecutionModeSequential), config.ExecutionMode)
	assert.Equal(t, 1, config.IntraOpNumThreads)
	assert.Equal(t, 1, config.InterOpNumThreads)
	assert.False(t, config.EnableMemoryPattern)
}

func TestLowLatencyOptimizationConfig(t *testing.T) {
	config := LowLatencyOptimizationConfig()

	assert.Equal(t, ort.ExecutionMode(ort.ExecutionModeSequential), config.ExecutionMode)
	assert.Equal(t, 1, config.InterOpNumThreads)
}

func TestParseGraphOptimizationLevel(t *testing.T) {
	tests := []struct {
		name  string
		level ort.GraphOptimizationLevel
	}{
		{"disable_all", ort.GraphOptimizationLevelDisableAll},
		{"basic", ort.GraphOptimizationLevelEnableBasic},
		{"extended", ort.GraphOptimizationLevelEnableExtended},
		{"all", ort.GraphOptimizationLevelEnableAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := ParseGraphOptimizationLevel(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.level, level)
			assert.Equal(t, tt.name, GraphOptimizationLevelName(level))
		})
	}

	_, err := ParseGraphOptimizationLevel("aggressive")
	assert.Error(t, err)
}

func TestCoreMLOptionsFlags(t *testing.T) {
	assert.Equal(t, uint32(0), CoreMLOptions{}.Flags())
	assert.Equal(t, uint32(0x001), CoreMLOptions{MLComputeUnits: "CPUOnly"}.Flags())
	assert.Equal(t, uint32(0x00A), CoreMLOptions{
		EnableOnSubgraphs:        1,
		RequireStaticInputShapes: 1,
	}.Flags())
}

func TestOpenVINOOptionsToConfigMap(t *testing.T) {
	opts := OpenVINOOptions{
		DeviceType:           "GPU",
		Precision:            "FP16",
		NumOfThreads:         4,
		DisableDynamicShapes: true,
	}

	config := opts.ToConfigMap()
	assert.Equal(t, "GPU", config["device_type"])
	assert.Equal(t, "FP16", config["precision"])
	assert.Equal(t, "4", config["num_of_threads"])
	assert.Equal(t, "true", config["disable_dynamic_shapes"])
	assert.NotContains(t, config, "num_streams")
}

func TestSequenceLengthObserver(t *testing.T) {
	observer := NewSequenceLengthObserver([]SequenceProfile{
		{InputName: "input_ids", MinLength: 128, MaxLength: 384, TypicalLength: 384},
	})

	observer.Observe("input_ids", 384, 10.0)
	observer.Observe("input_ids", 384, 20.0)
	observer.Observe("input_ids", 512, 40.0)

	stats := observer.Stats()
	assert.Equal(t, int64(3), stats.TotalInferences)
	assert.Equal(t, int64(2), stats.ProfileHits)
	assert.InDelta(t, 2.0/3.0, stats.ProfileHitRate, 1e-9)

	require.Len(t, stats.Inputs["input_ids"], 2)
	for _, obs := range stats.Inputs["input_ids"] {
		if obs.Length == 384 {
			assert.Equal(t, int64(2), obs.Count)
			assert.InDelta(t, 15.0, obs.AvgTimeMs, 1e-9)
		}
	}
}

func TestParseIntOption(t *testing.T) {
	options := map[string]string{"device_id": "2", "bad": "x"}
	assert.Equal(t, 2, parseIntOption(options, "device_id"))
	assert.Equal(t, 0, parseIntOption(options, "bad"))
	assert.Equal(t, 0, parseIntOption(options, "missing"))
}
