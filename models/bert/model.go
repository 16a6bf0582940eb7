// Package bert - BERT extractive-QA wiring.
package bert

import (
	"fmt"

	"github.com/inferlab/go-qa/models/model"
	"github.com/inferlab/go-qa/models/postprocess"
	"github.com/inferlab/go-qa/tokenizer"
)

// Model wires a BERT-family QA graph: three int64 inputs, two logit outputs.
type Model struct {
	options model.BaseModel
}

// NewModel creates the BERT wiring for an exported graph at args.Path.
func NewModel(args model.NewModelArgs) (*Model, error) {
	if args.Path == "" {
		return nil, fmt.Errorf("model path is required")
	}

	options := model.BaseModel{
		Name:          model.ModelNameBERT,
		Family:        model.FamilyBERT,
		Path:          args.Path,
		Inputs:        []string{"input_ids", "attention_mask", "token_type_ids"},
		Outputs:       []string{"start_logits", "end_logits"},
		MaxSeqLength:  384,
		HasTokenTypes: true,
	}
	if len(args.Inputs) > 0 {
		options.Inputs = args.Inputs
	}
	if len(args.Outputs) > 0 {
		options.Outputs = args.Outputs
	}
	if args.MaxSeqLength > 0 {
		options.MaxSeqLength = args.MaxSeqLength
	}

	return &Model{options: options}, nil
}

// Options returns the wiring description.
func (m *Model) Options() model.BaseModel {
	return m.options
}

// EncodeFeatures windows a (question, context) pair with segment ids.
func (m *Model) EncodeFeatures(
	question, context string,
	tk *tokenizer.Tokenizer,
	cfg postprocess.SpanConfig,
) ([]postprocess.Feature, error) {
	return model.EncodeFeatures(question, context, tk, cfg, true)
}

// DecodeAnswer extracts the n-best spans from one window's logits.
func (m *Model) DecodeAnswer(
	feature postprocess.Feature,
	startLogits, endLogits []float32,
	cfg postprocess.SpanConfig,
) []postprocess.Prediction {
	return postprocess.ExtractSpans(feature, startLogits, endLogits, cfg)
}
