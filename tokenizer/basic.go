package tokenizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Word is one pre-tokenized unit with its byte span in the original text.
type Word struct {
	// Text is the normalized word (lowercased / accent-stripped per config).
	Text string
	// Start and End are byte offsets into the original, unnormalized text.
	Start int
	End   int
}

// BasicTokenizer performs whitespace and punctuation splitting with CJK
// isolation, mirroring the pre-tokenization the pretrained checkpoints were
// trained with.
type BasicTokenizer struct {
	// Lowercase folds words to lower case (uncased checkpoints).
	Lowercase bool
	// StripAccents removes combining marks after NFD decomposition.
	StripAccents bool
}

// Tokenize splits text into words with byte offsets into the original text.
//
// Punctuation and CJK characters become single-rune words. Control characters
// and whitespace separate words and are never emitted.
func (b BasicTokenizer) Tokenize(text string) []Word {
	var words []Word
	wordStart := -1

	flush := func(end int) {
		if wordStart < 0 {
			return
		}
		words = append(words, Word{
			Text:  b.normalize(text[wordStart:end]),
			Start: wordStart,
			End:   end,
		})
		wordStart = -1
	}

	for i, r := range text {
		size := runeLen(r)
		switch {
		case unicode.IsSpace(r) || isControl(r):
			flush(i)
		case isPunctuation(r) || isCJK(r):
			flush(i)
			words = append(words, Word{
				Text:  b.normalize(text[i : i+size]),
				Start: i,
				End:   i + size,
			})
		default:
			if wordStart < 0 {
				wordStart = i
			}
		}
	}
	flush(len(text))

	return words
}

func (b BasicTokenizer) normalize(word string) string {
	if b.StripAccents {
		decomposed := norm.NFD.String(word)
		var sb strings.Builder
		sb.Grow(len(decomposed))
		for _, r := range decomposed {
			if unicode.Is(unicode.Mn, r) {
				continue
			}
			sb.WriteRune(r)
		}
		word = sb.String()
	}
	if b.Lowercase {
		word = strings.ToLower(word)
	}
	return word
}

func runeLen(r rune) int {
	switch {
	case r < 0x80:
		return 1
	case r < 0x800:
		return 2
	case r < 0x10000:
		return 3
	default:
		return 4
	}
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false // treated as whitespace by the caller
	}
	return unicode.IsControl(r)
}

// isPunctuation follows the BERT convention: all non-letter, non-digit ASCII
// characters count as punctuation, plus the Unicode P category.
func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

// isCJK reports whether the rune falls in a CJK ideograph block.
func isCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF,
		r >= 0x3400 && r <= 0x4DBF,
		r >= 0x20000 && r <= 0x2A6DF,
		r >= 0x2A700 && r <= 0x2B73F,
		r >= 0x2B740 && r <= 0x2B81F,
		r >= 0x2B820 && r <= 0x2CEAF,
		r >= 0xF900 && r <= 0xFAFF,
		r >= 0x2F800 && r <= 0x2FA1F:
		return true
	}
	return false
}
