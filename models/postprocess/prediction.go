// Package postprocess - answer span decoding for extractive QA outputs.
package postprocess

// Prediction is one candidate answer span decoded from a model's start and
// end logits.
type Prediction struct {
	// Text is sliced from the original context via offsets, never
	// detokenized. Empty text is the no-answer prediction.
	Text string `json:"text"`

	// Score is StartLogit + EndLogit for the span.
	Score float32 `json:"score"`

	// Probability is the softmax-normalized score over the n-best list.
	Probability float32 `json:"probability"`

	StartLogit float32 `json:"start_logit"`
	EndLogit   float32 `json:"end_logit"`

	// Start and End are byte offsets into the original context.
	Start int `json:"start"`
	End   int `json:"end"`

	// FeatureIndex identifies which sliding-window chunk produced the span.
	FeatureIndex int `json:"feature_index"`
}
