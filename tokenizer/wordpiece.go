package tokenizer

import "unicode/utf8"

// WordPiece performs greedy longest-match-first subword splitting against a
// loaded vocabulary.
type WordPiece struct {
	Vocab *Vocab
	// MaxWordChars caps the rune length of a word; longer words map to [UNK].
	MaxWordChars int
	// ContinuingPrefix marks non-initial subwords, "##" for BERT vocabularies.
	ContinuingPrefix string
}

// NewWordPiece returns a WordPiece splitter with BERT defaults.
func NewWordPiece(vocab *Vocab) WordPiece {
	return WordPiece{
		Vocab:            vocab,
		MaxWordChars:     100,
		ContinuingPrefix: "##",
	}
}

// SplitWord splits one normalized word into vocabulary subwords.
//
// Words that exceed MaxWordChars, or that contain any span not covered by the
// vocabulary, collapse to a single [UNK].
func (wp WordPiece) SplitWord(word string) []string {
	if word == "" {
		return nil
	}
	runes := []rune(word)
	if len(runes) > wp.MaxWordChars {
		return []string{TokenUNK}
	}

	var pieces []string
	start := 0
	for start < len(runes) {
		end := len(runes)
		var match string
		for end > start {
			candidate := string(runes[start:end])
			if start > 0 {
				candidate = wp.ContinuingPrefix + candidate
			}
			if _, ok := wp.Vocab.ID(candidate); ok {
				match = candidate
				break
			}
			end--
		}
		if match == "" {
			return []string{TokenUNK}
		}
		pieces = append(pieces, match)
		start = end
	}
	return pieces
}

// pieceRuneLen returns the rune length of a subword without its continuation
// prefix, used to map subwords back onto the original word span.
func (wp WordPiece) pieceRuneLen(piece string) int {
	trimmed := piece
	if len(piece) >= len(wp.ContinuingPrefix) && piece[:len(wp.ContinuingPrefix)] == wp.ContinuingPrefix {
		trimmed = piece[len(wp.ContinuingPrefix):]
	}
	return utf8.RuneCountInString(trimmed)
}
