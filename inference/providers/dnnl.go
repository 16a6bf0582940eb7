// Package providers - Intel oneDNN based execution provider.
package providers

// DNNLProvider implements the ExecutionProvider interface.
type DNNLProvider struct {
	options DNNLOptions
}

// DNNLOptions contains arguments for the DNNL provider.
type DNNLOptions struct {
	// UseArena enables the DNNL memory arena.
	UseArena bool `json:"useArena" yaml:"useArena"`
}

// isProviderOptions is a marker function to ensure the options are valid.
func (DNNLOptions) isProviderOptions() {}

// Backend returns the backend of the DNNL provider.
func (p *DNNLProvider) Backend() ProviderBackend {
	return DNNLProviderBackend
}

// Options returns the options of the DNNL provider.
func (p *DNNLProvider) Options() ProviderOptions {
	return p.options
}

// NewDNNLProvider creates a new DNNL provider.
func NewDNNLProvider(options DNNLOptions) *DNNLProvider {
	return &DNNLProvider{
		options: options,
	}
}
