package engines

import (
	"context"
	"fmt"
	"os"

	"github.com/inferlab/go-qa/models"
	"github.com/inferlab/go-qa/models/model"
	"github.com/inferlab/go-qa/models/postprocess"
	"github.com/inferlab/go-qa/tokenizer"
	"github.com/owulveryck/onnx-go"
	"github.com/owulveryck/onnx-go/backend/x/gorgonnx"
	"gorgonia.org/tensor"
)

// GorgonnxEngine runs scenarios through onnx-go's pure-Go gorgonnx backend.
//
// No shared library is needed, which makes it the fallback for environments
// where ONNX Runtime cannot be installed. Operator coverage is limited:
// graphs with unsupported ops fail at Run with the backend's error. Graph
// state is rebuilt per inference, so only the first sliding window of a long
// passage is evaluated.
type GorgonnxEngine struct {
	modelBytes []byte
	qa         model.Model
	tokenizer  *tokenizer.Tokenizer
	config     ModelConfig
}

// NewGorgonnxEngine creates an unloaded gorgonnx engine.
func NewGorgonnxEngine() *GorgonnxEngine {
	return &GorgonnxEngine{}
}

// LoadModel reads the model file and prepares the tokenizer.
//
// The graph itself is decoded per inference because gorgonnx graphs are
// single-shot; the raw bytes are kept in memory.
func (e *GorgonnxEngine) LoadModel(config ModelConfig) error {
	qa, err := models.NewModel(model.NewModelArgs{Name: config.Name, Path: config.Path})
	if err != nil {
		return fmt.Errorf("failed to create model: %w", err)
	}

	tk, err := tokenizer.Load(config.VocabPath, tokenizer.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to load vocabulary: %w", err)
	}

	raw, err := os.ReadFile(config.Path)
	if err != nil {
		return fmt.Errorf("failed to read model file: %w", err)
	}

	e.modelBytes = raw
	e.qa = qa
	e.tokenizer = tk
	e.config = config
	return nil
}

// Infer answers one question against one passage using the first feature window.
func (e *GorgonnxEngine) Infer(ctx context.Context, question, passage string) ([]postprocess.Prediction, error) {
	if e.modelBytes == nil {
		return nil, fmt.Errorf("model not loaded")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spanCfg := postprocess.DefaultSpanConfig()
	if e.config.SequenceLength > 0 {
		spanCfg.MaxSeqLength = e.config.SequenceLength
	}

	features, err := e.qa.EncodeFeatures(question, passage, e.tokenizer, spanCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode features: %w", err)
	}
	feature := features[0]

	startLogits, endLogits, err := e.run(feature)
	if err != nil {
		return nil, err
	}

	candidates := e.qa.DecodeAnswer(feature, startLogits, endLogits, spanCfg)
	return postprocess.MergePredictions(candidates, spanCfg), nil
}

// run decodes a fresh graph, binds the feature's inputs, and executes it.
func (e *GorgonnxEngine) run(feature postprocess.Feature) ([]float32, []float32, error) {
	backend := gorgonnx.NewGraph()
	graph := onnx.NewModel(backend)
	if err := graph.UnmarshalBinary(e.modelBytes); err != nil {
		return nil, nil, fmt.Errorf("failed to decode model graph: %w", err)
	}

	inputs := e.qa.Options().Inputs
	for i, name := range inputs {
		var data []int64
		switch name {
		case "input_ids":
			data = feature.InputIDs
		case "attention_mask":
			data = feature.AttentionMask
		case "token_type_ids":
			data = feature.TypeIDs
		default:
			return nil, nil, fmt.Errorf("no feature data for input %q", name)
		}

		backing := make([]int64, len(data))
		copy(backing, data)
		t := tensor.New(tensor.WithShape(1, len(data)), tensor.WithBacking(backing))
		if err := graph.SetInput(i, t); err != nil {
			return nil, nil, fmt.Errorf("failed to set input %q: %w", name, err)
		}
	}

	if err := backend.Run(); err != nil {
		return nil, nil, fmt.Errorf("gorgonnx execution failed: %w", err)
	}

	outputs, err := graph.GetOutputTensors()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read outputs: %w", err)
	}
	if len(outputs) < 2 {
		return nil, nil, fmt.Errorf("expected start and end logits, got %d outputs", len(outputs))
	}

	startLogits, err := tensorFloats(outputs[0])
	if err != nil {
		return nil, nil, fmt.Errorf("start logits: %w", err)
	}
	endLogits, err := tensorFloats(outputs[1])
	if err != nil {
		return nil, nil, fmt.Errorf("end logits: %w", err)
	}
	return startLogits, endLogits, nil
}

// tensorFloats flattens one output tensor into a float32 slice.
func tensorFloats(t tensor.Tensor) ([]float32, error) {
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected output data type %T", t.Data())
	}
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

// Close releases the retained model bytes.
func (e *GorgonnxEngine) Close() error {
	e.modelBytes = nil
	e.qa = nil
	e.tokenizer = nil
	return nil
}

// ModelInfo describes the currently loaded model.
func (e *GorgonnxEngine) ModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"engine":     "gorgonnx",
		"model_name": string(e.config.Name),
		"model_path": e.config.Path,
		"loaded":     e.modelBytes != nil,
	}
}
