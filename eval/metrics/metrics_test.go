package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "The Normans", "normans"},
		{"punctuation", "Rollo, the Viking!", "rollo viking"},
		{"articles", "an apple a day", "apple day"},
		{"whitespace", "  two   words  ", "two words"},
		{"empty", "", ""},
		{"only article", "the", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAnswer(tt.in))
		})
	}
}

func TestExactMatch(t *testing.T) {
	golds := []string{"The Normans", "Normans"}

	assert.Equal(t, 1.0, ExactMatch("the normans", golds))
	assert.Equal(t, 1.0, ExactMatch("Normans.", golds))
	assert.Equal(t, 0.0, ExactMatch("the French", golds))
}

func TestExactMatchNoAnswer(t *testing.T) {
	assert.Equal(t, 1.0, ExactMatch("", nil))
	assert.Equal(t, 1.0, ExactMatch("", []string{""}))
	assert.Equal(t, 0.0, ExactMatch("something", nil))
}

func TestF1(t *testing.T) {
	golds := []string{"the duke of normandy"}

	// Exact match scores 1.
	assert.InDelta(t, 1.0, F1("Duke of Normandy", golds), 1e-9)

	// Partial overlap: pred "duke" vs gold {duke, of, normandy}:
	// precision 1, recall 1/3, F1 = 0.5.
	assert.InDelta(t, 0.5, F1("the duke", golds), 1e-9)

	// No overlap.
	assert.InDelta(t, 0.0, F1("france", golds), 1e-9)
}

func TestF1MaxOverGolds(t *testing.T) {
	golds := []string{"rollo", "the duke of normandy"}
	assert.InDelta(t, 1.0, F1("Rollo", golds), 1e-9)
}

func TestF1RepeatedTokens(t *testing.T) {
	// Overlap counts token multiplicity: "very very" vs "very" overlaps once.
	// precision 1/2, recall 1, F1 = 2/3.
	assert.InDelta(t, 2.0/3.0, F1("very very", []string{"very"}), 1e-9)
}

func TestF1NoAnswerRules(t *testing.T) {
	assert.Equal(t, 1.0, F1("", []string{""}))
	assert.Equal(t, 0.0, F1("something", []string{""}))
	assert.Equal(t, 0.0, F1("", []string{"normans"}))
}

func TestAggregate(t *testing.T) {
	assert.Equal(t, 0.0, Aggregate(nil))
	assert.InDelta(t, 50.0, Aggregate([]float64{1, 0}), 1e-9)
	assert.InDelta(t, 100.0, Aggregate([]float64{1, 1, 1}), 1e-9)
}
