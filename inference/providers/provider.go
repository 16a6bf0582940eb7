// Package providers - execution provider selection for ONNX Runtime sessions.
package providers

import (
	"fmt"
)

// ProviderBackend represents different ONNX Runtime execution providers.
type ProviderBackend string

const (
	// CPUProviderBackend runs inference on the default CPU provider.
	CPUProviderBackend ProviderBackend = "cpu"
	// CUDAProviderBackend uses NVIDIA CUDA for inference acceleration.
	CUDAProviderBackend ProviderBackend = "cuda"
	// TensorRTProviderBackend uses NVIDIA TensorRT for engine-compiled inference.
	TensorRTProviderBackend ProviderBackend = "tensorrt"
	// DNNLProviderBackend uses Intel oneDNN for CPU optimization.
	DNNLProviderBackend ProviderBackend = "dnnl"
	// CoreMLProviderBackend uses Apple CoreML for macOS acceleration.
	CoreMLProviderBackend ProviderBackend = "coreml"
	// OpenVINOProviderBackend uses Intel OpenVINO for inference optimization.
	OpenVINOProviderBackend ProviderBackend = "openvino"
)

// ProviderOptions is a marker interface for provider-specific config.
type ProviderOptions interface {
	isProviderOptions()
}

// ExecutionProvider represents the contract that all execution providers must implement.
type ExecutionProvider interface {
	Backend() ProviderBackend
	Options() ProviderOptions
}

// ExecutionProviderConfig describes one provider entry in an optimization
// config. Options are passed through as strings the way ONNX Runtime's
// provider option maps expect them.
type ExecutionProviderConfig struct {
	// Provider names the backend this entry configures.
	Provider ProviderBackend `json:"provider" yaml:"provider"`

	// Options contains provider-specific key/value configuration.
	Options map[string]string `json:"options" yaml:"options"`

	// Priority orders provider registration; higher values register first.
	Priority int `json:"priority" yaml:"priority"`

	// Enabled toggles the provider without removing its configuration.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// NewProvider creates a new provider based on the options type.
//
// Arguments:
//   - options: The options for the provider.
//
// Returns:
//   - ExecutionProvider: The new provider.
//   - error: An error if the options type is unsupported.
func NewProvider(options ProviderOptions) (ExecutionProvider, error) {
	switch opts := options.(type) {
	case CPUOptions:
		return NewCPUProvider(opts), nil
	case CUDAOptions:
		return NewCUDAProvider(opts), nil
	case CoreMLOptions:
		return NewCoreMLProvider(opts), nil
	case OpenVINOOptions:
		return NewOpenVINOProvider(opts), nil
	case DNNLOptions:
		return NewDNNLProvider(opts), nil
	default:
		return nil, fmt.Errorf("unsupported provider options type: %T", opts)
	}
}
