package engines

import (
	"context"
	"fmt"

	"github.com/inferlab/go-qa/inference/providers"
	"github.com/inferlab/go-qa/inference/readers"
	"github.com/inferlab/go-qa/models/model"
	"github.com/inferlab/go-qa/models/postprocess"
	"github.com/inferlab/go-qa/tokenizer"
)

// ORTEngine runs scenarios through the native ONNX Runtime session path.
//
// This is the production engine: it measures the same code the reader uses,
// including tokenization and span decoding.
type ORTEngine struct {
	reader *readers.Reader
	config ModelConfig
}

// NewORTEngine creates an unloaded ONNX Runtime engine.
func NewORTEngine() *ORTEngine {
	return &ORTEngine{}
}

// LoadModel builds a reader over a freshly configured runtime session.
//
// The scenario's graph optimization level and provider selection are applied
// to the session options; everything else follows the platform defaults.
func (e *ORTEngine) LoadModel(config ModelConfig) error {
	if err := e.Close(); err != nil {
		return err
	}

	optimization := providers.DefaultOptimizationConfig()
	if config.GraphOptLevel != "" {
		level, err := providers.ParseGraphOptimizationLevel(config.GraphOptLevel)
		if err != nil {
			return err
		}
		optimization.GraphOptimizationLevel = level
	}
	if config.Provider != "" {
		for i := range optimization.ExecutionProviders {
			entry := &optimization.ExecutionProviders[i]
			entry.Enabled = entry.Provider == config.Provider ||
				entry.Provider == providers.CPUProviderBackend
		}
	}

	readerCfg := readers.DefaultConfig()
	if config.SequenceLength > 0 {
		readerCfg.MaxSeqLength = config.SequenceLength
	}

	reader, err := readers.NewReader(readers.NewReaderArgs{
		Model:        model.NewModelArgs{Name: config.Name, Path: config.Path},
		VocabPath:    config.VocabPath,
		Tokenizer:    tokenizer.DefaultConfig(),
		Config:       readerCfg,
		Optimization: optimization,
	})
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}

	e.reader = reader
	e.config = config
	return nil
}

// Infer answers one question against one passage.
func (e *ORTEngine) Infer(ctx context.Context, question, passage string) ([]postprocess.Prediction, error) {
	if e.reader == nil {
		return nil, fmt.Errorf("model not loaded")
	}
	return e.reader.Answer(ctx, question, passage)
}

// Close releases the reader's session.
func (e *ORTEngine) Close() error {
	if e.reader == nil {
		return nil
	}
	err := e.reader.Close()
	e.reader = nil
	return err
}

// ModelInfo describes the currently loaded model.
func (e *ORTEngine) ModelInfo() map[string]interface{} {
	info := map[string]interface{}{
		"engine":     "onnxruntime",
		"model_name": string(e.config.Name),
		"model_path": e.config.Path,
		"loaded":     e.reader != nil,
	}
	if e.config.GraphOptLevel != "" {
		info["graph_opt_level"] = e.config.GraphOptLevel
	}
	if e.config.Provider != "" {
		info["provider"] = string(e.config.Provider)
	}
	return info
}
