package model

import (
	"fmt"

	"github.com/inferlab/go-qa/models/postprocess"
	"github.com/inferlab/go-qa/tokenizer"
)

// EncodeFeatures splits a (question, context) pair into overlapping
// sliding-window features, one per forward pass.
//
// The question is truncated to MaxQueryLength; the context is windowed so
// consecutive windows overlap by DocStride tokens. Every window is padded to
// MaxSeqLength. Families without token type ids pass withTypeIDs false and
// get all-zero TypeIDs they can simply skip at session time.
//
// Arguments:
//   - question: The question text.
//   - context: The paragraph to read.
//   - tk: The tokenizer loaded with the model's own vocabulary.
//   - cfg: Windowing configuration.
//   - withTypeIDs: Whether the family distinguishes segments.
//
// Returns:
//   - []postprocess.Feature: One feature per window, linked via Overflow.
//   - error: An error for empty inputs or an unusable configuration.
func EncodeFeatures(
	question, context string,
	tk *tokenizer.Tokenizer,
	cfg postprocess.SpanConfig,
	withTypeIDs bool,
) ([]postprocess.Feature, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if question == "" {
		return nil, fmt.Errorf("question is empty")
	}
	if context == "" {
		return nil, fmt.Errorf("context is empty")
	}

	qTokens := tk.Tokenize(question)
	if len(qTokens) > cfg.MaxQueryLength {
		qTokens = qTokens[:cfg.MaxQueryLength]
	}
	cTokens := tk.Tokenize(context)
	if len(cTokens) == 0 {
		return nil, fmt.Errorf("context produced no tokens")
	}

	// [CLS] + question + [SEP] + window + [SEP]
	maxCtx := cfg.MaxSeqLength - len(qTokens) - 3
	if maxCtx < 1 {
		return nil, fmt.Errorf(
			"question occupies %d of %d tokens, no room for context",
			len(qTokens)+3, cfg.MaxSeqLength)
	}

	step := maxCtx - cfg.DocStride
	if step < 1 {
		step = 1
	}

	var features []postprocess.Feature
	for start := 0; ; start += step {
		end := start + maxCtx
		if end > len(cTokens) {
			end = len(cTokens)
		}

		feature := buildFeature(
			tk, qTokens, cTokens[start:end], context, len(features), cfg, withTypeIDs)
		features = append(features, feature)

		if end == len(cTokens) {
			break
		}
	}

	for i := range features {
		if i+1 < len(features) {
			features[i].Overflow = i + 1
		} else {
			features[i].Overflow = -1
		}
	}
	return features, nil
}

func buildFeature(
	tk *tokenizer.Tokenizer,
	qTokens, window []tokenizer.SubToken,
	context string,
	index int,
	cfg postprocess.SpanConfig,
	withTypeIDs bool,
) postprocess.Feature {
	size := cfg.MaxSeqLength
	feature := postprocess.Feature{
		Index:         index,
		InputIDs:      make([]int64, 0, size),
		TypeIDs:       make([]int64, 0, size),
		AttentionMask: make([]int64, 0, size),
		Tokens:        make([]string, 0, size),
		Offsets:       make([][2]int, 0, size),
		ContextMask:   make([]bool, 0, size),
		SpecialMask:   make([]int, 0, size),
		Context:       context,
	}

	ctxType := int64(0)
	if withTypeIDs {
		ctxType = 1
	}

	push := func(id int64, token string, typeID, attention int64, offset [2]int, isContext bool, special int) {
		feature.InputIDs = append(feature.InputIDs, id)
		feature.TypeIDs = append(feature.TypeIDs, typeID)
		feature.AttentionMask = append(feature.AttentionMask, attention)
		feature.Tokens = append(feature.Tokens, token)
		feature.Offsets = append(feature.Offsets, offset)
		feature.ContextMask = append(feature.ContextMask, isContext)
		feature.SpecialMask = append(feature.SpecialMask, special)
	}

	vocab := tk.Vocab
	push(vocab.CLS, tokenizer.TokenCLS, 0, 1, [2]int{0, 0}, false, 1)
	for _, tok := range qTokens {
		push(idOf(vocab, tok.Text), tok.Text, 0, 1, [2]int{0, 0}, false, 0)
	}
	push(vocab.SEP, tokenizer.TokenSEP, 0, 1, [2]int{0, 0}, false, 1)
	for _, tok := range window {
		push(idOf(vocab, tok.Text), tok.Text, ctxType, 1, [2]int{tok.Start, tok.End}, true, 0)
	}
	push(vocab.SEP, tokenizer.TokenSEP, ctxType, 1, [2]int{0, 0}, false, 1)

	for len(feature.InputIDs) < cfg.MaxSeqLength {
		push(vocab.PAD, tokenizer.TokenPAD, 0, 0, [2]int{0, 0}, false, 1)
	}

	return feature
}

func idOf(vocab *tokenizer.Vocab, token string) int64 {
	if id, ok := vocab.ID(token); ok {
		return id
	}
	return vocab.UNK
}
