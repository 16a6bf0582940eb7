// Package engines - pluggable inference backends for the benchmark suite.
package engines

import (
	"context"

	"github.com/inferlab/go-qa/inference/providers"
	"github.com/inferlab/go-qa/models/model"
	"github.com/inferlab/go-qa/models/postprocess"
)

// ModelConfig describes the model a scenario loads into an engine.
type ModelConfig struct {
	// Name is the model family.
	Name model.Name `json:"name" yaml:"name"`

	// Path is the ONNX model file.
	Path string `json:"path" yaml:"path"`

	// VocabPath is the vocabulary file.
	VocabPath string `json:"vocab_path" yaml:"vocab_path"`

	// SequenceLength is the padded feature length. Zero keeps the family default.
	SequenceLength int `json:"sequence_length" yaml:"sequence_length"`

	// GraphOptLevel names the runtime graph optimization level.
	GraphOptLevel string `json:"graph_opt_level" yaml:"graph_opt_level"`

	// Provider is the requested execution provider backend.
	Provider providers.ProviderBackend `json:"provider" yaml:"provider"`
}

// InferenceEngine defines the interface benchmark scenarios drive.
type InferenceEngine interface {
	// LoadModel prepares the engine for the given model. Engines may be
	// reloaded with a different config between scenarios.
	LoadModel(config ModelConfig) error

	// Infer answers one question against one passage.
	Infer(ctx context.Context, question, passage string) ([]postprocess.Prediction, error)

	// Close releases the loaded model's resources.
	Close() error

	// ModelInfo describes the currently loaded model.
	ModelInfo() map[string]interface{}
}
