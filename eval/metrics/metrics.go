// Package metrics - SQuAD-style answer scoring.
//
// Scores compare a predicted answer string against the gold answers after
// normalization. Per-example scores are in [0, 1]; Aggregate scales to the
// conventional 0-100 range.
package metrics

import (
	"strings"
	"unicode"
)

// articles are removed during normalization, matching the official SQuAD
// evaluation script.
var articles = map[string]bool{"a": true, "an": true, "the": true}

// NormalizeAnswer lowercases, strips punctuation and articles, and folds
// whitespace.
//
// Arguments:
//   - s: The raw answer text.
//
// Returns:
//   - string: The normalized form used for comparison.
func NormalizeAnswer(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}

	fields := strings.Fields(b.String())
	kept := fields[:0]
	for _, f := range fields {
		if !articles[f] {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// ExactMatch reports 1 when the prediction normalizes to any gold answer.
//
// For no-answer examples the gold set is empty or holds empty strings; an
// empty prediction then matches exactly.
func ExactMatch(prediction string, golds []string) float64 {
	pred := NormalizeAnswer(prediction)

	if noAnswer(golds) {
		if pred == "" {
			return 1
		}
		return 0
	}

	for _, gold := range golds {
		if pred == NormalizeAnswer(gold) {
			return 1
		}
	}
	return 0
}

// F1 returns the token-overlap F1 against the best-matching gold answer.
//
// Precision and recall are computed over bag-of-token overlap after
// normalization; the maximum over all gold answers is returned. When either
// side is empty, F1 equals ExactMatch per the SQuAD v2 rules.
func F1(prediction string, golds []string) float64 {
	pred := NormalizeAnswer(prediction)

	if noAnswer(golds) || pred == "" {
		return ExactMatch(prediction, golds)
	}

	predTokens := strings.Fields(pred)
	best := 0.0
	for _, gold := range golds {
		goldTokens := strings.Fields(NormalizeAnswer(gold))
		if len(goldTokens) == 0 {
			if len(predTokens) == 0 {
				best = 1
			}
			continue
		}
		if score := f1Tokens(predTokens, goldTokens); score > best {
			best = score
		}
	}
	return best
}

// f1Tokens computes the harmonic mean of token precision and recall.
func f1Tokens(pred, gold []string) float64 {
	counts := make(map[string]int, len(gold))
	for _, tok := range gold {
		counts[tok]++
	}

	overlap := 0
	for _, tok := range pred {
		if counts[tok] > 0 {
			counts[tok]--
			overlap++
		}
	}
	if overlap == 0 {
		return 0
	}

	precision := float64(overlap) / float64(len(pred))
	recall := float64(overlap) / float64(len(gold))
	return 2 * precision * recall / (precision + recall)
}

// noAnswer reports whether the gold set marks a no-answer example.
func noAnswer(golds []string) bool {
	for _, gold := range golds {
		if NormalizeAnswer(gold) != "" {
			return false
		}
	}
	return true
}

// Aggregate averages per-example scores and scales to percent.
//
// Returns 0 for an empty slice.
func Aggregate(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return 100 * sum / float64(len(scores))
}
