// Package readers - end-to-end extractive QA over ONNX sessions.
//
// A Reader ties together the tokenizer, a model family's feature encoding,
// the runtime session, and span decoding. It is the unit the benchmark and
// evaluation layers drive.
package readers

import (
	"context"
	"fmt"

	"github.com/inferlab/go-qa/inference"
	"github.com/inferlab/go-qa/inference/providers"
	"github.com/inferlab/go-qa/models"
	"github.com/inferlab/go-qa/models/model"
	"github.com/inferlab/go-qa/models/postprocess"
	"github.com/inferlab/go-qa/tokenizer"
)

// Config controls feature encoding and span decoding for a reader.
type Config struct {
	// MaxSeqLength is the padded length of every feature. Zero uses the
	// model family default.
	MaxSeqLength int `json:"max_seq_length" yaml:"max_seq_length"`

	// DocStride is the number of context tokens consecutive windows share.
	DocStride int `json:"doc_stride" yaml:"doc_stride"`

	// MaxQueryLength truncates the tokenized question.
	MaxQueryLength int `json:"max_query_length" yaml:"max_query_length"`

	// MaxAnswerLength caps decoded spans, in tokens.
	MaxAnswerLength int `json:"max_answer_length" yaml:"max_answer_length"`

	// NBest is the number of candidate answers returned per question.
	NBest int `json:"n_best" yaml:"n_best"`

	// NullThreshold biases the no-answer decision for SQuAD v2 style data.
	// The empty answer wins when nullScore - bestSpanScore > NullThreshold.
	NullThreshold float32 `json:"null_threshold" yaml:"null_threshold"`

	// AllowNoAnswer enables the empty-answer candidate.
	AllowNoAnswer bool `json:"allow_no_answer" yaml:"allow_no_answer"`
}

// DefaultConfig returns the standard SQuAD reading configuration.
func DefaultConfig() Config {
	return Config{
		MaxSeqLength:    384,
		DocStride:       128,
		MaxQueryLength:  64,
		MaxAnswerLength: 30,
		NBest:           20,
		NullThreshold:   0,
		AllowNoAnswer:   false,
	}
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	return c.spanConfig().Validate()
}

// spanConfig maps the reader configuration onto the decoder's view of it.
func (c Config) spanConfig() postprocess.SpanConfig {
	return postprocess.SpanConfig{
		MaxSeqLength:    c.MaxSeqLength,
		DocStride:       c.DocStride,
		MaxQueryLength:  c.MaxQueryLength,
		MaxAnswerLength: c.MaxAnswerLength,
		NBest:           c.NBest,
		NullThreshold:   c.NullThreshold,
		AllowNoAnswer:   c.AllowNoAnswer,
	}
}

// Runner abstracts the inference session so readers can be exercised
// without a native runtime.
type Runner interface {
	Run(feature postprocess.Feature) ([]float32, []float32, error)
	Close() error
}

// NewReaderArgs represents the arguments for creating a new reader.
type NewReaderArgs struct {
	// Model names the family and ONNX file.
	Model model.NewModelArgs `json:"model" yaml:"model"`

	// VocabPath locates the vocabulary (vocab.txt or tokenizer.json).
	VocabPath string `json:"vocab_path" yaml:"vocab_path"`

	// Tokenizer carries text normalization settings.
	Tokenizer tokenizer.Config `json:"tokenizer" yaml:"tokenizer"`

	// Config controls encoding and decoding.
	Config Config `json:"config" yaml:"config"`

	// Optimization carries the session optimization settings.
	Optimization providers.OptimizationConfig `json:"optimization" yaml:"optimization"`
}

// Reader answers questions over text passages with one loaded model.
type Reader struct {
	model     model.Model
	tokenizer *tokenizer.Tokenizer
	runner    Runner
	config    Config
}

// NewReader creates a reader by loading the model, vocabulary, and session.
//
// Arguments:
//   - args: The arguments for the reader.
//
// Returns:
//   - *Reader: The ready reader.
//   - error: An error if any component fails to load.
func NewReader(args NewReaderArgs) (*Reader, error) {
	qa, err := models.NewModel(args.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	options := qa.Options()

	config := args.Config
	if config.MaxSeqLength == 0 {
		config.MaxSeqLength = options.MaxSeqLength
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reader config: %w", err)
	}

	tk, err := tokenizer.Load(args.VocabPath, args.Tokenizer)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}

	session, err := inference.NewSession(inference.NewSessionArgs{
		ModelPath:    options.Path,
		InputNames:   options.Inputs,
		OutputNames:  options.Outputs,
		Optimization: args.Optimization,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &Reader{
		model:     qa,
		tokenizer: tk,
		runner:    session,
		config:    config,
	}, nil
}

// NewReaderWithRunner creates a reader over a caller-supplied runner.
//
// The model and vocabulary still load normally; only the session is
// replaced. Used by tests and by engines that manage sessions themselves.
func NewReaderWithRunner(args NewReaderArgs, runner Runner) (*Reader, error) {
	qa, err := models.NewModel(args.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	config := args.Config
	if config.MaxSeqLength == 0 {
		config.MaxSeqLength = qa.Options().MaxSeqLength
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reader config: %w", err)
	}

	tk, err := tokenizer.Load(args.VocabPath, args.Tokenizer)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}

	return &Reader{
		model:     qa,
		tokenizer: tk,
		runner:    runner,
		config:    config,
	}, nil
}

// Config returns the reader's effective configuration.
func (r *Reader) Config() Config {
	return r.config
}

// Options returns the loaded model's wiring description.
func (r *Reader) Options() model.BaseModel {
	return r.model.Options()
}

// Answer runs one question against one context passage.
//
// Long passages produce several sliding-window features; each runs through
// the session and the per-window candidates merge into one n-best list. The
// context is checked between windows so cancellation takes effect at feature
// granularity.
//
// Arguments:
//   - ctx: Cancels between feature runs.
//   - question: The question text.
//   - passage: The context passage to read.
//
// Returns:
//   - []postprocess.Prediction: The merged n-best answers, best first.
//   - error: An error if encoding or inference fails.
func (r *Reader) Answer(ctx context.Context, question, passage string) ([]postprocess.Prediction, error) {
	spanCfg := r.config.spanConfig()

	features, err := r.model.EncodeFeatures(question, passage, r.tokenizer, spanCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode features: %w", err)
	}

	var candidates []postprocess.Prediction
	for _, feature := range features {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		startLogits, endLogits, err := r.runner.Run(feature)
		if err != nil {
			return nil, fmt.Errorf("inference failed on feature %d: %w", feature.Index, err)
		}

		candidates = append(candidates, r.model.DecodeAnswer(feature, startLogits, endLogits, spanCfg)...)
	}

	return postprocess.MergePredictions(candidates, spanCfg), nil
}

// QuestionContext pairs one question with the passage it reads.
type QuestionContext struct {
	Question string `json:"question" yaml:"question"`
	Context  string `json:"context" yaml:"context"`
}

// AnswerBatch answers a slice of question/context pairs sequentially.
//
// Returns one n-best list per pair, in input order. The first failure stops
// the batch.
func (r *Reader) AnswerBatch(ctx context.Context, pairs []QuestionContext) ([][]postprocess.Prediction, error) {
	results := make([][]postprocess.Prediction, 0, len(pairs))
	for i, pair := range pairs {
		predictions, err := r.Answer(ctx, pair.Question, pair.Context)
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}
		results = append(results, predictions)
	}
	return results, nil
}

// Close releases the reader's session.
func (r *Reader) Close() error {
	if r.runner == nil {
		return nil
	}
	err := r.runner.Close()
	r.runner = nil
	return err
}
