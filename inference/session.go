// Package inference - ONNX Runtime sessions for extractive QA graphs.
package inference

import (
	"fmt"
	"sync"
	"time"

	"github.com/inferlab/go-qa/inference/providers"
	"github.com/inferlab/go-qa/models/postprocess"
	ort "github.com/yalue/onnxruntime_go"
)

// Standard input tensor names produced by HuggingFace ONNX exports.
const (
	InputIDs       = "input_ids"
	InputAttention = "attention_mask"
	InputTokenType = "token_type_ids"
)

// NewSessionArgs represents the arguments for creating a new QA session.
type NewSessionArgs struct {
	// ModelPath is the path to the ONNX model file.
	ModelPath string
	// InputNames are the graph's input tensor names in declaration order.
	InputNames []string
	// OutputNames are the graph's output tensor names, start logits first.
	OutputNames []string
	// Optimization carries the session optimization settings.
	Optimization providers.OptimizationConfig
}

// Session wraps a dynamic ONNX Runtime session for one QA model.
//
// QA inputs vary in padded length across sliding windows, so the session is
// dynamic: input tensors are created per run and output tensors are allocated
// by the runtime. Run is safe for concurrent use; the underlying runtime
// serializes nothing, so concurrent runs share the session's thread pools.
type Session struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	config     providers.OptimizationConfig
	observer   *providers.SequenceLengthObserver

	mu             sync.Mutex
	inferenceCount int64
	totalTimeMs    float64
}

// NewSession creates a new QA inference session.
//
// Order of operations:
//  1. Runtime init: loads the native library once per process.
//  2. Session options: graph optimization level, threading, execution providers.
//  3. Session creation: loads the model without binding tensors, so each run
//     can carry its own sequence length.
//
// Arguments:
//   - args: The arguments for the session.
//
// Returns:
//   - *Session: The runnable session.
//   - error: An error if runtime init or session creation fails.
func NewSession(args NewSessionArgs) (*Session, error) {
	if args.ModelPath == "" {
		return nil, fmt.Errorf("model path is required")
	}
	if len(args.InputNames) == 0 || len(args.OutputNames) < 2 {
		return nil, fmt.Errorf(
			"session needs at least one input and two outputs, got %d/%d",
			len(args.InputNames), len(args.OutputNames),
		)
	}

	if err := InitRuntime(); err != nil {
		return nil, err
	}

	options, err := providers.OptimizedSessionOptions(args.Optimization)
	if err != nil {
		return nil, fmt.Errorf("failed to create optimized session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		args.ModelPath,
		args.InputNames,
		args.OutputNames,
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("error creating ORT session: %w", err)
	}

	return &Session{
		session:    session,
		inputNames: args.InputNames,
		config:     args.Optimization,
		observer:   providers.NewSequenceLengthObserver(args.Optimization.SequenceProfiles),
	}, nil
}

// Run executes the model on one encoded feature.
//
// Input tensors are built from the feature's id slices with shape
// (1, seqLen); the runtime allocates the outputs. Both logit slices are
// copied out before the native tensors are destroyed.
//
// Arguments:
//   - feature: One sliding-window feature from the tokenizer.
//
// Returns:
//   - []float32: Start logits, one per input position.
//   - []float32: End logits, one per input position.
//   - error: An error if tensor creation or execution fails.
func (s *Session) Run(feature postprocess.Feature) ([]float32, []float32, error) {
	seqLen := int64(len(feature.InputIDs))
	if seqLen == 0 {
		return nil, nil, fmt.Errorf("feature has no input ids")
	}

	inputs := make([]ort.Value, 0, len(s.inputNames))
	destroyInputs := func() {
		for _, input := range inputs {
			input.Destroy()
		}
	}

	for _, name := range s.inputNames {
		var data []int64
		switch name {
		case InputIDs:
			data = feature.InputIDs
		case InputAttention:
			data = feature.AttentionMask
		case InputTokenType:
			data = feature.TypeIDs
		default:
			destroyInputs()
			return nil, nil, fmt.Errorf("no feature data for input %q", name)
		}

		tensor, err := ort.NewTensor(ort.NewShape(1, seqLen), data)
		if err != nil {
			destroyInputs()
			return nil, nil, fmt.Errorf("error creating tensor for %q: %w", name, err)
		}
		inputs = append(inputs, tensor)
	}

	// Two nil outputs: start and end logits allocated by the runtime.
	outputs := make([]ort.Value, 2)

	start := time.Now()
	err := s.session.Run(inputs, outputs)
	elapsedMs := float64(time.Since(start).Nanoseconds()) / 1e6
	destroyInputs()
	if err != nil {
		return nil, nil, fmt.Errorf("error running ORT session: %w", err)
	}

	startLogits, err := copyLogits(outputs[0])
	if err != nil {
		destroyOutputs(outputs)
		return nil, nil, fmt.Errorf("start logits: %w", err)
	}
	endLogits, err := copyLogits(outputs[1])
	if err != nil {
		destroyOutputs(outputs)
		return nil, nil, fmt.Errorf("end logits: %w", err)
	}
	destroyOutputs(outputs)

	s.observer.Observe(InputIDs, seqLen, elapsedMs)
	s.mu.Lock()
	s.inferenceCount++
	s.totalTimeMs += elapsedMs
	s.mu.Unlock()

	return startLogits, endLogits, nil
}

// SessionStats summarizes a session's accumulated run statistics.
type SessionStats struct {
	InferenceCount int64                 `json:"inference_count"`
	TotalTimeMs    float64               `json:"total_time_ms"`
	AverageTimeMs  float64               `json:"average_time_ms"`
	OptLevel       string                `json:"optimization_level"`
	Lengths        providers.LengthStats `json:"lengths"`
}

// Stats returns a snapshot of the session's run statistics.
func (s *Session) Stats() SessionStats {
	s.mu.Lock()
	count := s.inferenceCount
	total := s.totalTimeMs
	s.mu.Unlock()

	stats := SessionStats{
		InferenceCount: count,
		TotalTimeMs:    total,
		OptLevel:       providers.GraphOptimizationLevelName(s.config.GraphOptimizationLevel),
		Lengths:        s.observer.Stats(),
	}
	if count > 0 {
		stats.AverageTimeMs = total / float64(count)
	}
	return stats
}

// ResetStats clears the accumulated run counters.
func (s *Session) ResetStats() {
	s.mu.Lock()
	s.inferenceCount = 0
	s.totalTimeMs = 0
	s.mu.Unlock()
	s.observer = providers.NewSequenceLengthObserver(s.config.SequenceProfiles)
}

// Close releases the native session.
func (s *Session) Close() error {
	if s.session == nil {
		return nil
	}
	if err := s.session.Destroy(); err != nil {
		return fmt.Errorf("error destroying ORT session: %w", err)
	}
	s.session = nil
	return nil
}

// copyLogits flattens one output tensor into a freshly allocated slice.
func copyLogits(value ort.Value) ([]float32, error) {
	tensor, ok := value.(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", value)
	}
	data := tensor.GetData()
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

// destroyOutputs releases runtime-allocated output tensors.
func destroyOutputs(outputs []ort.Value) {
	for _, output := range outputs {
		if output != nil {
			output.Destroy()
		}
	}
}
