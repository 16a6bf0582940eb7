// Package providers - CUDA based execution provider.
package providers

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// CUDAProvider implements the ExecutionProvider interface.
type CUDAProvider struct {
	options CUDAOptions
}

// CUDAOptions contains arguments for the CUDA provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/CUDA-ExecutionProvider.html#configuration-options
type CUDAOptions struct {
	// The device ID.
	DeviceID int `json:"deviceID"                      yaml:"deviceID"`
	// Whether to do copies in the default stream or use separate streams. The recommended setting is
	// true. If false, there are race conditions and possibly better performance.
	DoCopyInDefaultStream bool `json:"doCopyInDefaultStream"         yaml:"doCopyInDefaultStream"`
	// The size limit of the device memory arena in bytes. This size limit is only for the execution
	// provider's arena. The total device memory usage may be higher.
	GPUMemLimit int64 `json:"gpuMemLimit"                   yaml:"gpuMemLimit"`
	// The strategy for extending the device memory arena.
	// 0: kNextPowerOfTwo - subsequent extensions extend by larger amounts (multiplied by powers of
	// two)
	// 1: kSameAsRequested - extend by the requested amount
	ArenaExtendStrategy int `json:"arenaExtendStrategy"           yaml:"arenaExtendStrategy"`
	// Capture the transformer graph as a CUDA Graph and replay it on subsequent
	// runs. Requires every input shape to stay fixed, so it only helps when all
	// features are padded to the same sequence length.
	EnableCudaGraph int `json:"enableCudaGraph"               yaml:"enableCudaGraph"`
	// Whether to use strict mode in SkipLayerNormalization cuda implementation. The default and
	// recommended setting is false.
	// If enabled, accuracy improvement and performance drop can be expected.
	EnableSkipLayerNormStrictMode int `json:"enableSkipLayerNormStrictMode" yaml:"enableSkipLayerNormStrictMode"`
	// TF32 is a math mode available on NVIDIA GPUs since Ampere. It allows certain float32 matrix
	// multiplications
	// and convolutions to run much faster on tensor cores with TensorFloat-32 reduced precision.
	UseTF32 int `json:"useTF32"                       yaml:"useTF32"`
}

// ToNativeProviderOptions converts the CUDA options to native CUDA provider options.
// The caller owns the returned options and must Destroy them.
func (o *CUDAOptions) ToNativeProviderOptions() (*ort.CUDAProviderOptions, error) {
	opts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return nil, err
	}

	err = opts.Update(map[string]string{
		"device_id":                          fmt.Sprintf("%d", o.DeviceID),
		"do_copy_in_default_stream":          fmt.Sprintf("%t", o.DoCopyInDefaultStream),
		"gpu_mem_limit":                      fmt.Sprintf("%d", o.GPUMemLimit),
		"arena_extend_strategy":              fmt.Sprintf("%d", o.ArenaExtendStrategy),
		"enable_cuda_graph":                  fmt.Sprintf("%d", o.EnableCudaGraph),
		"enable_skip_layer_norm_strict_mode": fmt.Sprintf("%d", o.EnableSkipLayerNormStrictMode),
		"use_tf32":                           fmt.Sprintf("%d", o.UseTF32),
	})
	if err != nil {
		opts.Destroy()
		return nil, err
	}

	return opts, nil
}

// isProviderOptions is a marker function to ensure the options are valid.
func (CUDAOptions) isProviderOptions() {}

// Backend returns the backend of the CUDA provider.
func (p *CUDAProvider) Backend() ProviderBackend {
	return CUDAProviderBackend
}

// Options returns the options of the CUDA provider.
func (p *CUDAProvider) Options() ProviderOptions {
	return p.options
}

// NewCUDAProvider creates a new CUDA provider.
func NewCUDAProvider(options CUDAOptions) *CUDAProvider {
	return &CUDAProvider{
		options: options,
	}
}
