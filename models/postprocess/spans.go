package postprocess

import (
	"fmt"
	"sort"

	"github.com/chewxy/math32"
)

// Feature is one sliding-window chunk of an encoded (question, context) pair.
//
// A long context is split into overlapping windows; each window becomes one
// Feature and one forward pass. Predictions are merged across windows
// afterwards.
type Feature struct {
	// Index is the window's position in the feature sequence.
	Index int

	InputIDs      []int64
	TypeIDs       []int64
	AttentionMask []int64
	Tokens        []string

	// Offsets are byte offsets into the original context for context tokens;
	// question and special tokens carry {0, 0}.
	Offsets [][2]int

	// ContextMask marks positions holding context tokens: only those may
	// start or end an answer span.
	ContextMask []bool

	// SpecialMask marks [CLS]/[SEP]/[PAD] positions.
	SpecialMask []int

	// Context is the original paragraph text the offsets slice into.
	Context string

	// Overflow is the index of the next window for the same pair, -1 when
	// this is the last one.
	Overflow int
}

// SpanConfig controls span extraction and windowing.
type SpanConfig struct {
	// MaxAnswerLength caps the answer span in tokens.
	MaxAnswerLength int `json:"max_answer_length" yaml:"max_answer_length"`

	// NBest is the number of candidates kept per question.
	NBest int `json:"n_best" yaml:"n_best"`

	// MaxSeqLength is the total encoded length including special tokens.
	MaxSeqLength int `json:"max_seq_length" yaml:"max_seq_length"`

	// DocStride is the token overlap between consecutive context windows.
	DocStride int `json:"doc_stride" yaml:"doc_stride"`

	// MaxQueryLength truncates the question before windowing.
	MaxQueryLength int `json:"max_query_length" yaml:"max_query_length"`

	// NullThreshold shifts the no-answer decision: predict empty when
	// nullScore - bestSpanScore > NullThreshold.
	NullThreshold float32 `json:"null_threshold" yaml:"null_threshold"`

	// AllowNoAnswer enables the v2.0 null prediction.
	AllowNoAnswer bool `json:"allow_no_answer" yaml:"allow_no_answer"`
}

// DefaultSpanConfig returns the defaults the reference checkpoints were
// evaluated with.
func DefaultSpanConfig() SpanConfig {
	return SpanConfig{
		MaxAnswerLength: 30,
		NBest:           20,
		MaxSeqLength:    384,
		DocStride:       128,
		MaxQueryLength:  64,
		NullThreshold:   0,
		AllowNoAnswer:   false,
	}
}

// Validate checks the configuration for usable values.
func (c SpanConfig) Validate() error {
	if c.MaxAnswerLength < 1 {
		return fmt.Errorf("max_answer_length must be >= 1, got %d", c.MaxAnswerLength)
	}
	if c.NBest < 1 {
		return fmt.Errorf("n_best must be >= 1, got %d", c.NBest)
	}
	if c.MaxSeqLength < 8 {
		return fmt.Errorf("max_seq_length must be >= 8, got %d", c.MaxSeqLength)
	}
	if c.DocStride < 0 || c.DocStride >= c.MaxSeqLength {
		return fmt.Errorf("doc_stride must be in [0, max_seq_length), got %d", c.DocStride)
	}
	if c.MaxQueryLength < 1 {
		return fmt.Errorf("max_query_length must be >= 1, got %d", c.MaxQueryLength)
	}
	return nil
}

// ExtractSpans decodes the n-best answer spans from one feature's logits.
//
// Candidate spans pair top-k start indexes with top-k end indexes, keeping
// only pairs that start and end on context tokens, run forward, and fit
// within MaxAnswerLength. Scores are startLogit + endLogit; probabilities are
// softmax-normalized over the returned list.
//
// Arguments:
//   - feature: The encoded window the logits belong to.
//   - startLogits: Per-position start logits, len >= len(feature.InputIDs).
//   - endLogits: Per-position end logits, same length contract.
//   - cfg: Extraction configuration.
//
// Returns:
//   - []Prediction: Candidates sorted by score descending.
func ExtractSpans(feature Feature, startLogits, endLogits []float32, cfg SpanConfig) []Prediction {
	n := len(feature.InputIDs)
	if len(startLogits) < n {
		n = len(startLogits)
	}
	if len(endLogits) < n {
		n = len(endLogits)
	}
	if n == 0 {
		return nil
	}

	k := cfg.NBest
	if k > n {
		k = n
	}
	startIdx := topIndexes(startLogits[:n], k)
	endIdx := topIndexes(endLogits[:n], k)

	var candidates []Prediction
	for _, s := range startIdx {
		if !feature.usable(s) {
			continue
		}
		for _, e := range endIdx {
			if e < s || e-s+1 > cfg.MaxAnswerLength {
				continue
			}
			if !feature.usable(e) {
				continue
			}
			startOff := feature.Offsets[s][0]
			endOff := feature.Offsets[e][1]
			if endOff <= startOff {
				continue
			}
			candidates = append(candidates, Prediction{
				Text:         feature.Context[startOff:endOff],
				Score:        startLogits[s] + endLogits[e],
				StartLogit:   startLogits[s],
				EndLogit:     endLogits[e],
				Start:        startOff,
				End:          endOff,
				FeatureIndex: feature.Index,
			})
		}
	}

	if cfg.AllowNoAnswer {
		// The null score lives at the [CLS] position.
		candidates = append(candidates, Prediction{
			Text:         "",
			Score:        startLogits[0] + endLogits[0],
			StartLogit:   startLogits[0],
			EndLogit:     endLogits[0],
			FeatureIndex: feature.Index,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > cfg.NBest {
		candidates = candidates[:cfg.NBest]
	}

	normalizeProbabilities(candidates)
	return candidates
}

// usable reports whether position i may bound an answer span.
func (f Feature) usable(i int) bool {
	if i < 0 || i >= len(f.InputIDs) {
		return false
	}
	if i < len(f.SpecialMask) && f.SpecialMask[i] == 1 {
		return false
	}
	if i < len(f.ContextMask) && !f.ContextMask[i] {
		return false
	}
	return true
}

// MergePredictions combines window-level candidates into one n-best list for
// the question.
//
// Duplicate texts keep their best-scoring occurrence. When AllowNoAnswer is
// set and nullScore - bestSpanScore > NullThreshold, the empty prediction is
// promoted to the front.
func MergePredictions(preds []Prediction, cfg SpanConfig) []Prediction {
	if len(preds) == 0 {
		return nil
	}

	best := make(map[string]Prediction, len(preds))
	for _, p := range preds {
		if existing, ok := best[p.Text]; !ok || p.Score > existing.Score {
			best[p.Text] = p
		}
	}

	merged := make([]Prediction, 0, len(best))
	for _, p := range best {
		merged = append(merged, p)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })

	if cfg.AllowNoAnswer {
		merged = applyNullThreshold(merged, cfg.NullThreshold)
	}

	if len(merged) > cfg.NBest {
		merged = merged[:cfg.NBest]
	}
	normalizeProbabilities(merged)
	return merged
}

// applyNullThreshold reorders the merged list so its first element is the
// final prediction: the empty answer when nullScore - bestSpanScore clears
// the threshold, the best span otherwise.
func applyNullThreshold(merged []Prediction, threshold float32) []Prediction {
	nullIdx := -1
	bestSpan := -1
	for i, p := range merged {
		if p.Text == "" {
			if nullIdx == -1 {
				nullIdx = i
			}
		} else if bestSpan == -1 {
			bestSpan = i
		}
	}
	if nullIdx == -1 || bestSpan == -1 {
		return merged
	}

	winner := bestSpan
	if merged[nullIdx].Score-merged[bestSpan].Score > threshold {
		winner = nullIdx
	}
	if winner == 0 {
		return merged
	}

	head := merged[winner]
	merged = append(merged[:winner], merged[winner+1:]...)
	return append([]Prediction{head}, merged...)
}

// normalizeProbabilities assigns softmax probabilities over the list, stable
// against large logits by subtracting the max score.
func normalizeProbabilities(preds []Prediction) {
	if len(preds) == 0 {
		return
	}

	maxScore := preds[0].Score
	for _, p := range preds[1:] {
		if p.Score > maxScore {
			maxScore = p.Score
		}
	}

	var sum float32
	exps := make([]float32, len(preds))
	for i, p := range preds {
		exps[i] = math32.Exp(p.Score - maxScore)
		sum += exps[i]
	}
	for i := range preds {
		preds[i].Probability = exps[i] / sum
	}
}

// topIndexes returns the indexes of the k largest values, best first.
func topIndexes(values []float32, k int) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] > values[idx[b]] })
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}
