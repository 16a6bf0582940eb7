package tokenizer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testVocabTokens = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]",
	"the", "norman", "##s", "gave", "their", "name", "to",
	"who", "what", "?", ".", ",",
	"norm", "##andy", "people", "were",
}

func writeVocabTxt(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(testVocabTokens, "\n")+"\n"), 0o644))
	return path
}

func newTestTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	tk, err := Load(writeVocabTxt(t), DefaultConfig())
	require.NoError(t, err)
	return tk
}

func TestLoadVocabTxt(t *testing.T) {
	vocab, err := LoadVocab(writeVocabTxt(t))
	require.NoError(t, err)

	assert.Equal(t, len(testVocabTokens), vocab.Size())
	assert.Equal(t, int64(2), vocab.CLS)
	assert.Equal(t, int64(3), vocab.SEP)
	assert.Equal(t, int64(0), vocab.PAD)
	assert.Equal(t, int64(1), vocab.UNK)

	id, ok := vocab.ID("norman")
	require.True(t, ok)
	assert.Equal(t, "norman", vocab.Token(id))
}

func TestLoadTokenizerJSON(t *testing.T) {
	content := `{
	  "model": {
	    "type": "WordPiece",
	    "vocab": {"[PAD]": 0, "[UNK]": 1, "[CLS]": 2, "[SEP]": 3, "hello": 4, "##o": 5}
	  }
	}`
	path := filepath.Join(t.TempDir(), "tokenizer.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	vocab, err := LoadVocab(path)
	require.NoError(t, err)
	assert.Equal(t, 6, vocab.Size())
	assert.Equal(t, "hello", vocab.Token(4))

	format, err := DetectFormat(path)
	require.NoError(t, err)
	assert.Equal(t, FormatTokenizerJSON, format)
}

func TestLoadVocabMissingSpecials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello\nworld\n"), 0o644))

	_, err := LoadVocab(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "special token")
}

func TestBasicTokenizerOffsets(t *testing.T) {
	basic := BasicTokenizer{Lowercase: true}
	words := basic.Tokenize("The Normans, who?")

	require.Len(t, words, 5)
	assert.Equal(t, Word{Text: "the", Start: 0, End: 3}, words[0])
	assert.Equal(t, Word{Text: "normans", Start: 4, End: 11}, words[1])
	assert.Equal(t, Word{Text: ",", Start: 11, End: 12}, words[2])
	assert.Equal(t, Word{Text: "who", Start: 13, End: 16}, words[3])
	assert.Equal(t, Word{Text: "?", Start: 16, End: 17}, words[4])
}

func TestBasicTokenizerStripAccents(t *testing.T) {
	basic := BasicTokenizer{Lowercase: true, StripAccents: true}
	words := basic.Tokenize("Café")

	require.Len(t, words, 1)
	assert.Equal(t, "cafe", words[0].Text)
	// Offsets stay in the original text's byte space.
	assert.Equal(t, 0, words[0].Start)
	assert.Equal(t, len("Café"), words[0].End)
}

func TestBasicTokenizerCJKIsolation(t *testing.T) {
	basic := BasicTokenizer{}
	words := basic.Tokenize("ab世界cd")

	require.Len(t, words, 4)
	assert.Equal(t, "ab", words[0].Text)
	assert.Equal(t, "世", words[1].Text)
	assert.Equal(t, "界", words[2].Text)
	assert.Equal(t, "cd", words[3].Text)
}

func TestWordPieceGreedySplit(t *testing.T) {
	vocab, err := LoadVocab(writeVocabTxt(t))
	require.NoError(t, err)
	wp := NewWordPiece(vocab)

	assert.Equal(t, []string{"norman", "##s"}, wp.SplitWord("normans"))
	assert.Equal(t, []string{"norm", "##andy"}, wp.SplitWord("normandy"))
	assert.Equal(t, []string{"the"}, wp.SplitWord("the"))
	assert.Equal(t, []string{TokenUNK}, wp.SplitWord("zzzzz"))
	assert.Nil(t, wp.SplitWord(""))
}

func TestWordPieceLongWordIsUNK(t *testing.T) {
	vocab, err := LoadVocab(writeVocabTxt(t))
	require.NoError(t, err)
	wp := NewWordPiece(vocab)
	wp.MaxWordChars = 4

	assert.Equal(t, []string{TokenUNK}, wp.SplitWord("norman"))
}

func TestTokenizeOffsetsNonDecreasing(t *testing.T) {
	tk := newTestTokenizer(t)
	text := "The Normans gave their name to Normandy."
	tokens := tk.Tokenize(text)

	require.NotEmpty(t, tokens)
	prev := 0
	for _, tok := range tokens {
		assert.GreaterOrEqual(t, tok.Start, prev)
		assert.GreaterOrEqual(t, tok.End, tok.Start)
		assert.LessOrEqual(t, tok.End, len(text))
		prev = tok.Start
	}

	// Subword spans slice back to the surface form.
	assert.Equal(t, "norman", strings.ToLower(text[tokens[1].Start:tokens[1].End]))
}

func TestEncodePair(t *testing.T) {
	tk := newTestTokenizer(t)
	enc, err := tk.EncodePair("Who gave their name?", "The Normans gave their name to Normandy.", 64)
	require.NoError(t, err)

	n := len(enc.IDs)
	require.Equal(t, n, len(enc.TypeIDs))
	require.Equal(t, n, len(enc.AttentionMask))
	require.Equal(t, n, len(enc.Tokens))
	require.Equal(t, n, len(enc.Offsets))
	require.Equal(t, n, len(enc.SpecialMask))

	assert.Equal(t, TokenCLS, enc.Tokens[0])
	assert.Equal(t, 1, enc.SpecialMask[0])
	assert.Equal(t, [2]int{0, 0}, enc.Offsets[0])
	assert.Equal(t, TokenSEP, enc.Tokens[n-1])
	assert.Equal(t, int64(1), enc.TypeIDs[n-1])

	// Type ids flip from 0 to 1 exactly once, at the context boundary.
	flips := 0
	for i := 1; i < n; i++ {
		if enc.TypeIDs[i] != enc.TypeIDs[i-1] {
			flips++
		}
	}
	assert.Equal(t, 1, flips)

	// Round trip: every id maps back to its token.
	for i, id := range enc.IDs {
		assert.Equal(t, enc.Tokens[i], tk.Vocab.Token(id))
	}
}

func TestEncodePairTruncatesContextOnly(t *testing.T) {
	tk := newTestTokenizer(t)
	question := "Who gave their name?"
	context := strings.Repeat("The Normans gave their name to Normandy. ", 50)

	enc, err := tk.EncodePair(question, context, 32)
	require.NoError(t, err)
	assert.Len(t, enc.IDs, 32)

	// The question survives intact.
	qLen := len(tk.Tokenize(question))
	for i := 1; i <= qLen; i++ {
		assert.Equal(t, int64(0), enc.TypeIDs[i])
	}
}

func TestEncodePairNoRoomForContext(t *testing.T) {
	tk := newTestTokenizer(t)
	_, err := tk.EncodePair("Who gave their name to the Normans and what did the people name?", "ctx", 8)
	require.Error(t, err)
}

func TestEncodePairEmptyText(t *testing.T) {
	tk := newTestTokenizer(t)
	enc, err := tk.EncodePair("", "", 16)
	require.NoError(t, err)

	// Only special tokens remain.
	assert.Equal(t, []string{TokenCLS, TokenSEP, TokenSEP}, enc.Tokens)
}
