// Package tokenizer - WordPiece feature encoding for exported QA graphs.
//
// This is not a general tokenizer library: it is the minimal encoder needed
// to drive an exported extractive-QA graph, reading the pretrained model's
// own shipped vocabulary.
package tokenizer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Special token literals shared by the WordPiece QA families.
const (
	TokenCLS = "[CLS]"
	TokenSEP = "[SEP]"
	TokenPAD = "[PAD]"
	TokenUNK = "[UNK]"
)

// VocabFormat identifies how a vocabulary file is laid out on disk.
type VocabFormat string

const (
	// FormatVocabTxt is the classic one-token-per-line vocab.txt where the
	// id is the line index.
	FormatVocabTxt VocabFormat = "vocab.txt"
	// FormatTokenizerJSON is the Hugging Face tokenizer.json bundle; the
	// WordPiece vocab lives under model.vocab.
	FormatTokenizerJSON VocabFormat = "tokenizer.json"
)

// Vocab maps between tokens and their ids, with the special token ids
// resolved at load time.
type Vocab struct {
	tokens []string
	ids    map[string]int64

	CLS int64
	SEP int64
	PAD int64
	UNK int64
}

// DetectFormat decides whether a vocabulary file is a vocab.txt or a
// tokenizer.json bundle, by extension first and content as a fallback.
func DetectFormat(path string) (VocabFormat, error) {
	switch filepath.Ext(path) {
	case ".json":
		return FormatTokenizerJSON, nil
	case ".txt":
		return FormatVocabTxt, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "opening vocabulary %s", path)
	}
	defer f.Close()

	head := make([]byte, 1)
	if _, err := f.Read(head); err != nil {
		return "", errors.Wrapf(err, "reading vocabulary %s", path)
	}
	if head[0] == '{' {
		return FormatTokenizerJSON, nil
	}
	return FormatVocabTxt, nil
}

// LoadVocab reads a vocabulary in either supported format.
//
// All four special tokens must be present; a vocabulary missing any of them
// cannot drive the exported graph and is rejected.
//
// Arguments:
//   - path: Path to vocab.txt or tokenizer.json.
//
// Returns:
//   - *Vocab: The loaded vocabulary.
//   - error: An error if the file is unreadable or incomplete.
func LoadVocab(path string) (*Vocab, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var v *Vocab
	switch format {
	case FormatTokenizerJSON:
		v, err = loadTokenizerJSON(path)
	default:
		v, err = loadVocabTxt(path)
	}
	if err != nil {
		return nil, err
	}

	if err := v.resolveSpecials(); err != nil {
		return nil, errors.Wrapf(err, "vocabulary %s", path)
	}
	return v, nil
}

func loadVocabTxt(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading vocabulary %s", path)
	}

	v := &Vocab{ids: make(map[string]int64)}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		token := scanner.Text()
		v.ids[token] = int64(len(v.tokens))
		v.tokens = append(v.tokens, token)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "scanning vocabulary %s", path)
	}
	if len(v.tokens) == 0 {
		return nil, fmt.Errorf("vocabulary %s is empty", path)
	}
	return v, nil
}

func loadTokenizerJSON(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading tokenizer bundle %s", path)
	}

	var bundle struct {
		Model struct {
			Type  string           `json:"type"`
			Vocab map[string]int64 `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, errors.Wrapf(err, "parsing tokenizer bundle %s", path)
	}
	if len(bundle.Model.Vocab) == 0 {
		return nil, fmt.Errorf("tokenizer bundle %s has no model.vocab", path)
	}
	if bundle.Model.Type != "" && bundle.Model.Type != "WordPiece" {
		return nil, fmt.Errorf("tokenizer bundle %s uses %s, only WordPiece is supported", path, bundle.Model.Type)
	}

	maxID := int64(-1)
	for _, id := range bundle.Model.Vocab {
		if id > maxID {
			maxID = id
		}
	}

	v := &Vocab{
		tokens: make([]string, maxID+1),
		ids:    make(map[string]int64, len(bundle.Model.Vocab)),
	}
	for token, id := range bundle.Model.Vocab {
		v.tokens[id] = token
		v.ids[token] = id
	}
	return v, nil
}

func (v *Vocab) resolveSpecials() error {
	lookup := func(token string) (int64, error) {
		id, ok := v.ids[token]
		if !ok {
			return 0, fmt.Errorf("missing special token %s", token)
		}
		return id, nil
	}

	var err error
	if v.CLS, err = lookup(TokenCLS); err != nil {
		return err
	}
	if v.SEP, err = lookup(TokenSEP); err != nil {
		return err
	}
	if v.PAD, err = lookup(TokenPAD); err != nil {
		return err
	}
	if v.UNK, err = lookup(TokenUNK); err != nil {
		return err
	}
	return nil
}

// ID returns the id for a token and whether it exists.
func (v *Vocab) ID(token string) (int64, bool) {
	id, ok := v.ids[token]
	return id, ok
}

// Token returns the token for an id, or [UNK] for out-of-range ids.
func (v *Vocab) Token(id int64) string {
	if id < 0 || id >= int64(len(v.tokens)) {
		return TokenUNK
	}
	return v.tokens[id]
}

// Size returns the vocabulary size.
func (v *Vocab) Size() int {
	return len(v.tokens)
}

// Tokens returns the vocabulary contents in id order. Intended for
// diagnostics, not the encode path.
func (v *Vocab) Tokens() []string {
	out := make([]string, len(v.tokens))
	copy(out, v.tokens)
	return out
}
