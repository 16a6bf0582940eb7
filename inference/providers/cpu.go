// Package providers - CPU based execution provider.
package providers

// CPUProvider implements the ExecutionProvider interface.
//
// The CPU provider is always available and is the fallback when no
// accelerator is configured or reachable.
type CPUProvider struct {
	options CPUOptions
}

// CPUOptions contains arguments for the CPU provider.
type CPUOptions struct {
	// IntraOpNumThreads overrides the thread count used inside individual
	// operators. Zero keeps the session-level setting.
	IntraOpNumThreads int `json:"intraOpNumThreads" yaml:"intraOpNumThreads"`
}

// isProviderOptions is a marker function to ensure the options are valid.
func (CPUOptions) isProviderOptions() {}

// Backend returns the backend of the CPU provider.
func (p *CPUProvider) Backend() ProviderBackend {
	return CPUProviderBackend
}

// Options returns the options of the CPU provider.
func (p *CPUProvider) Options() ProviderOptions {
	return p.options
}

// NewCPUProvider creates a new CPU provider.
func NewCPUProvider(options CPUOptions) *CPUProvider {
	return &CPUProvider{
		options: options,
	}
}
