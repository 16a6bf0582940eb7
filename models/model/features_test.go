package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inferlab/go-qa/models/postprocess"
	"github.com/inferlab/go-qa/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenizer(t *testing.T) *tokenizer.Tokenizer {
	t.Helper()
	tokens := []string{
		"[PAD]", "[UNK]", "[CLS]", "[SEP]",
		"the", "norman", "##s", "gave", "their", "name", "to",
		"who", "what", "?", ".", "norm", "##andy",
	}
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(tokens, "\n")+"\n"), 0o644))
	tk, err := tokenizer.Load(path, tokenizer.DefaultConfig())
	require.NoError(t, err)
	return tk
}

func smallConfig() postprocess.SpanConfig {
	cfg := postprocess.DefaultSpanConfig()
	cfg.MaxSeqLength = 16
	cfg.DocStride = 4
	cfg.MaxQueryLength = 8
	return cfg
}

func TestEncodeFeaturesSingleWindow(t *testing.T) {
	tk := newTestTokenizer(t)
	cfg := smallConfig()

	features, err := EncodeFeatures("Who gave the name?", "The Normans gave the name.", tk, cfg, true)
	require.NoError(t, err)
	require.Len(t, features, 1)

	feature := features[0]
	assert.Equal(t, -1, feature.Overflow)
	assert.Len(t, feature.InputIDs, cfg.MaxSeqLength)
	assert.Len(t, feature.TypeIDs, cfg.MaxSeqLength)
	assert.Len(t, feature.AttentionMask, cfg.MaxSeqLength)
	assert.Len(t, feature.Offsets, cfg.MaxSeqLength)
	assert.Len(t, feature.ContextMask, cfg.MaxSeqLength)

	assert.Equal(t, tokenizer.TokenCLS, feature.Tokens[0])
	assert.Equal(t, int64(1), feature.AttentionMask[0])

	// Padding carries zero attention.
	last := len(feature.InputIDs) - 1
	if feature.Tokens[last] == tokenizer.TokenPAD {
		assert.Equal(t, int64(0), feature.AttentionMask[last])
	}

	// Context token offsets slice back into the original context.
	for i, isCtx := range feature.ContextMask {
		if !isCtx {
			continue
		}
		off := feature.Offsets[i]
		assert.True(t, off[1] > off[0])
		assert.LessOrEqual(t, off[1], len(feature.Context))
	}
}

func TestEncodeFeaturesSlidingWindowsOverlap(t *testing.T) {
	tk := newTestTokenizer(t)
	cfg := smallConfig()

	longContext := strings.Repeat("The Normans gave their name to Normandy. ", 6)
	features, err := EncodeFeatures("Who?", longContext, tk, cfg, true)
	require.NoError(t, err)
	require.Greater(t, len(features), 1)

	for i, feature := range features {
		if i+1 < len(features) {
			assert.Equal(t, i+1, feature.Overflow)
		} else {
			assert.Equal(t, -1, feature.Overflow)
		}
	}

	// Consecutive windows share DocStride context tokens.
	firstCtx := contextOffsets(features[0])
	secondCtx := contextOffsets(features[1])
	shared := 0
	seen := make(map[[2]int]struct{}, len(firstCtx))
	for _, off := range firstCtx {
		seen[off] = struct{}{}
	}
	for _, off := range secondCtx {
		if _, ok := seen[off]; ok {
			shared++
		}
	}
	assert.Equal(t, cfg.DocStride, shared)
}

func contextOffsets(f postprocess.Feature) [][2]int {
	var out [][2]int
	for i, isCtx := range f.ContextMask {
		if isCtx {
			out = append(out, f.Offsets[i])
		}
	}
	return out
}

func TestEncodeFeaturesTruncatesQuestion(t *testing.T) {
	tk := newTestTokenizer(t)
	cfg := smallConfig()
	cfg.MaxQueryLength = 2

	features, err := EncodeFeatures(
		"Who gave their name to the Normans?", "The Normans gave the name.", tk, cfg, true)
	require.NoError(t, err)
	require.NotEmpty(t, features)

	// [CLS] + 2 question tokens + [SEP]; context starts at index 4.
	assert.Equal(t, tokenizer.TokenSEP, features[0].Tokens[3])
	assert.True(t, features[0].ContextMask[4])
}

func TestEncodeFeaturesWithoutTypeIDs(t *testing.T) {
	tk := newTestTokenizer(t)

	features, err := EncodeFeatures("Who?", "The Normans gave the name.", tk, smallConfig(), false)
	require.NoError(t, err)
	require.NotEmpty(t, features)

	for _, typeID := range features[0].TypeIDs {
		assert.Equal(t, int64(0), typeID)
	}
}

func TestEncodeFeaturesEmptyInputs(t *testing.T) {
	tk := newTestTokenizer(t)
	cfg := smallConfig()

	_, err := EncodeFeatures("", "context", tk, cfg, true)
	assert.Error(t, err)

	_, err = EncodeFeatures("question?", "", tk, cfg, true)
	assert.Error(t, err)
}
