package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFeature builds a window over the context "alpha beta gamma delta":
// [CLS] q [SEP] alpha beta gamma delta [SEP]
func testFeature() Feature {
	context := "alpha beta gamma delta"
	return Feature{
		Index:         0,
		InputIDs:      []int64{2, 10, 3, 20, 21, 22, 23, 3},
		TypeIDs:       []int64{0, 0, 0, 1, 1, 1, 1, 1},
		AttentionMask: []int64{1, 1, 1, 1, 1, 1, 1, 1},
		Tokens:        []string{"[CLS]", "what", "[SEP]", "alpha", "beta", "gamma", "delta", "[SEP]"},
		Offsets: [][2]int{
			{0, 0}, {0, 0}, {0, 0},
			{0, 5}, {6, 10}, {11, 16}, {17, 22},
			{0, 0},
		},
		ContextMask: []bool{false, false, false, true, true, true, true, false},
		SpecialMask: []int{1, 0, 1, 0, 0, 0, 0, 1},
		Context:     context,
		Overflow:    -1,
	}
}

func TestExtractSpansBestSpan(t *testing.T) {
	feature := testFeature()
	start := []float32{0, 0, 0, 1, 8, 0, 0, 0} // peak at "beta"
	end := []float32{0, 0, 0, 0, 2, 9, 0, 0}   // peak at "gamma"

	preds := ExtractSpans(feature, start, end, DefaultSpanConfig())
	require.NotEmpty(t, preds)

	assert.Equal(t, "beta gamma", preds[0].Text)
	assert.InDelta(t, 17.0, float64(preds[0].Score), 1e-5)
	assert.Equal(t, 6, preds[0].Start)
	assert.Equal(t, 16, preds[0].End)
}

func TestExtractSpansSortedAndNormalized(t *testing.T) {
	feature := testFeature()
	start := []float32{0, 0, 0, 3, 2, 1, 0, 0}
	end := []float32{0, 0, 0, 1, 2, 3, 0, 0}

	preds := ExtractSpans(feature, start, end, DefaultSpanConfig())
	require.Greater(t, len(preds), 1)

	var sum float32
	for i, p := range preds {
		if i > 0 {
			assert.GreaterOrEqual(t, preds[i-1].Score, p.Score)
			// Probabilities are monotone with scores.
			assert.GreaterOrEqual(t, preds[i-1].Probability, p.Probability)
		}
		sum += p.Probability
	}
	assert.InDelta(t, 1.0, float64(sum), 1e-4)
}

func TestExtractSpansRespectsMaxAnswerLength(t *testing.T) {
	feature := testFeature()
	start := []float32{0, 0, 0, 10, 0, 0, 0, 0} // "alpha"
	end := []float32{0, 0, 0, 0, 0, 0, 10, 0}   // "delta"

	cfg := DefaultSpanConfig()
	cfg.MaxAnswerLength = 2

	preds := ExtractSpans(feature, start, end, cfg)
	for _, p := range preds {
		assert.NotEqual(t, "alpha beta gamma delta", p.Text)
	}
}

func TestExtractSpansNeverBoundsOnSpecialOrQuestion(t *testing.T) {
	feature := testFeature()
	// Strongest logits sit on [CLS] and the question token.
	start := []float32{10, 9, 0, 1, 0, 0, 0, 0}
	end := []float32{10, 9, 0, 1, 0, 0, 0, 0}

	preds := ExtractSpans(feature, start, end, DefaultSpanConfig())
	require.NotEmpty(t, preds)
	for _, p := range preds {
		assert.NotEmpty(t, p.Text)
		assert.True(t, feature.ContextMask[3]) // sanity: context starts at 3
	}
	// All-negative logits still yield a best span.
	negStart := []float32{-5, -5, -5, -1, -2, -3, -4, -5}
	negEnd := []float32{-5, -5, -5, -4, -3, -2, -1, -5}
	preds = ExtractSpans(feature, negStart, negEnd, DefaultSpanConfig())
	require.NotEmpty(t, preds)
	assert.NotEmpty(t, preds[0].Text)
}

func TestExtractSpansNoContextTokens(t *testing.T) {
	feature := Feature{
		InputIDs:    []int64{2, 10, 3},
		Tokens:      []string{"[CLS]", "what", "[SEP]"},
		Offsets:     [][2]int{{0, 0}, {0, 0}, {0, 0}},
		ContextMask: []bool{false, false, false},
		SpecialMask: []int{1, 0, 1},
	}
	cfg := DefaultSpanConfig()
	cfg.AllowNoAnswer = true

	preds := ExtractSpans(feature, []float32{1, 0, 0}, []float32{1, 0, 0}, cfg)
	require.Len(t, preds, 1)
	assert.Empty(t, preds[0].Text)
}

func TestExtractSpansClampsNBest(t *testing.T) {
	feature := testFeature()
	start := []float32{0, 0, 0, 1, 1, 1, 1, 0}
	end := []float32{0, 0, 0, 1, 1, 1, 1, 0}

	cfg := DefaultSpanConfig()
	cfg.NBest = 1000

	preds := ExtractSpans(feature, start, end, cfg)
	assert.LessOrEqual(t, len(preds), cfg.NBest)
	assert.NotEmpty(t, preds)
}

func TestMergePredictionsDedupes(t *testing.T) {
	preds := []Prediction{
		{Text: "beta gamma", Score: 5, FeatureIndex: 0},
		{Text: "beta gamma", Score: 7, FeatureIndex: 1},
		{Text: "alpha", Score: 6, FeatureIndex: 0},
	}

	merged := MergePredictions(preds, DefaultSpanConfig())
	require.Len(t, merged, 2)
	assert.Equal(t, "beta gamma", merged[0].Text)
	assert.Equal(t, 1, merged[0].FeatureIndex) // best-scoring occurrence wins
	assert.Equal(t, "alpha", merged[1].Text)
}

func TestMergePredictionsNullThreshold(t *testing.T) {
	cfg := DefaultSpanConfig()
	cfg.AllowNoAnswer = true

	preds := []Prediction{
		{Text: "alpha", Score: 4},
		{Text: "", Score: 6},
	}

	// Null clears the threshold: empty answer wins.
	cfg.NullThreshold = 1
	merged := MergePredictions(preds, cfg)
	require.NotEmpty(t, merged)
	assert.Empty(t, merged[0].Text)

	// Threshold too high: the span wins even though null scored higher.
	cfg.NullThreshold = 5
	merged = MergePredictions(preds, cfg)
	require.NotEmpty(t, merged)
	assert.Equal(t, "alpha", merged[0].Text)
}

func TestSpanConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultSpanConfig().Validate())

	bad := DefaultSpanConfig()
	bad.NBest = 0
	assert.Error(t, bad.Validate())

	bad = DefaultSpanConfig()
	bad.DocStride = bad.MaxSeqLength
	assert.Error(t, bad.Validate())

	bad = DefaultSpanConfig()
	bad.MaxAnswerLength = 0
	assert.Error(t, bad.Validate())
}
