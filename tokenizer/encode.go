package tokenizer

import "fmt"

// SubToken is one WordPiece subword with its byte span in the original text.
//
// Offsets are approximate within a word when normalization changed rune
// counts; they always stay inside the word's span and are non-decreasing.
type SubToken struct {
	Text      string
	WordIndex int
	Start     int
	End       int
}

// Encoding is a fully encoded sequence ready to feed an exported graph.
type Encoding struct {
	IDs           []int64
	TypeIDs       []int64
	AttentionMask []int64
	Tokens        []string
	// Offsets are byte offsets into the original text; special tokens carry
	// {0, 0}.
	Offsets     [][2]int
	SpecialMask []int
}

// Config controls text normalization during encoding.
type Config struct {
	Lowercase    bool `json:"lowercase"    yaml:"lowercase"`
	StripAccents bool `json:"strip_accents" yaml:"strip_accents"`
}

// DefaultConfig matches the uncased BERT-family checkpoints.
func DefaultConfig() Config {
	return Config{Lowercase: true, StripAccents: true}
}

// Tokenizer combines basic splitting and WordPiece against one vocabulary.
type Tokenizer struct {
	Vocab     *Vocab
	basic     BasicTokenizer
	wordpiece WordPiece
}

// NewTokenizer builds a Tokenizer over a loaded vocabulary.
func NewTokenizer(vocab *Vocab, cfg Config) *Tokenizer {
	return &Tokenizer{
		Vocab: vocab,
		basic: BasicTokenizer{
			Lowercase:    cfg.Lowercase,
			StripAccents: cfg.StripAccents,
		},
		wordpiece: NewWordPiece(vocab),
	}
}

// Load reads the vocabulary at path and builds a Tokenizer in one step.
func Load(path string, cfg Config) (*Tokenizer, error) {
	vocab, err := LoadVocab(path)
	if err != nil {
		return nil, err
	}
	return NewTokenizer(vocab, cfg), nil
}

// Tokenize splits text into subword tokens with offsets into the original
// text. Unknown words become a single [UNK] spanning the whole word.
func (t *Tokenizer) Tokenize(text string) []SubToken {
	var tokens []SubToken

	for wordIdx, word := range t.basic.Tokenize(text) {
		pieces := t.wordpiece.SplitWord(word.Text)
		if len(pieces) == 1 {
			tokens = append(tokens, SubToken{
				Text:      pieces[0],
				WordIndex: wordIdx,
				Start:     word.Start,
				End:       word.End,
			})
			continue
		}

		// Distribute subword offsets across the original word span by rune
		// position. Normalization rarely changes rune counts; when it does
		// the spans clamp to the word boundary.
		original := text[word.Start:word.End]
		runeStarts := runeByteStarts(original)
		consumed := 0
		for _, piece := range pieces {
			n := t.wordpiece.pieceRuneLen(piece)
			start := word.Start + byteAt(runeStarts, consumed, len(original))
			end := word.Start + byteAt(runeStarts, consumed+n, len(original))
			tokens = append(tokens, SubToken{
				Text:      piece,
				WordIndex: wordIdx,
				Start:     start,
				End:       end,
			})
			consumed += n
		}
	}

	return tokens
}

// runeByteStarts returns the byte index of each rune in s.
func runeByteStarts(s string) []int {
	starts := make([]int, 0, len(s))
	for i := range s {
		starts = append(starts, i)
	}
	return starts
}

func byteAt(starts []int, runeIdx, total int) int {
	if runeIdx >= len(starts) {
		return total
	}
	return starts[runeIdx]
}

// EncodePair encodes a (question, context) pair as
// [CLS] question [SEP] context [SEP], truncating only the context side.
//
// Arguments:
//   - question: The question text.
//   - context: The paragraph to read.
//   - maxLen: Total sequence length cap including special tokens.
//
// Returns:
//   - Encoding: The encoded pair, unpadded.
//   - error: An error if the question leaves no room for context tokens.
func (t *Tokenizer) EncodePair(question, context string, maxLen int) (Encoding, error) {
	qTokens := t.Tokenize(question)
	cTokens := t.Tokenize(context)

	// [CLS] + question + [SEP] + context + [SEP]
	room := maxLen - len(qTokens) - 3
	if room < 1 {
		return Encoding{}, fmt.Errorf(
			"question occupies %d of %d tokens, no room for context", len(qTokens)+3, maxLen)
	}
	if len(cTokens) > room {
		cTokens = cTokens[:room]
	}

	size := len(qTokens) + len(cTokens) + 3
	enc := Encoding{
		IDs:           make([]int64, 0, size),
		TypeIDs:       make([]int64, 0, size),
		AttentionMask: make([]int64, 0, size),
		Tokens:        make([]string, 0, size),
		Offsets:       make([][2]int, 0, size),
		SpecialMask:   make([]int, 0, size),
	}

	appendToken := func(id int64, token string, typeID int64, offset [2]int, special int) {
		enc.IDs = append(enc.IDs, id)
		enc.TypeIDs = append(enc.TypeIDs, typeID)
		enc.AttentionMask = append(enc.AttentionMask, 1)
		enc.Tokens = append(enc.Tokens, token)
		enc.Offsets = append(enc.Offsets, offset)
		enc.SpecialMask = append(enc.SpecialMask, special)
	}

	appendToken(t.Vocab.CLS, TokenCLS, 0, [2]int{0, 0}, 1)
	for _, tok := range qTokens {
		appendToken(t.idOf(tok.Text), tok.Text, 0, [2]int{tok.Start, tok.End}, 0)
	}
	appendToken(t.Vocab.SEP, TokenSEP, 0, [2]int{0, 0}, 1)
	for _, tok := range cTokens {
		appendToken(t.idOf(tok.Text), tok.Text, 1, [2]int{tok.Start, tok.End}, 0)
	}
	appendToken(t.Vocab.SEP, TokenSEP, 1, [2]int{0, 0}, 1)

	return enc, nil
}

func (t *Tokenizer) idOf(token string) int64 {
	if id, ok := t.Vocab.ID(token); ok {
		return id
	}
	return t.Vocab.UNK
}
