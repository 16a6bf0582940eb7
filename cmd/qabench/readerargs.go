package main

import (
	"github.com/inferlab/go-qa/inference/providers"
	"github.com/inferlab/go-qa/inference/readers"
	"github.com/inferlab/go-qa/models/model"
	"github.com/inferlab/go-qa/tokenizer"
)

// qaReaderArgs assembles reader arguments the way every command loads a
// model: uncased tokenization to match the exported checkpoints, and a
// decode config that starts from the validated defaults.
func qaReaderArgs(
	name model.Name,
	modelPath string,
	vocabPath string,
	config readers.Config,
	optimization providers.OptimizationConfig,
) readers.NewReaderArgs {
	return readers.NewReaderArgs{
		Model: model.NewModelArgs{
			Name: name,
			Path: modelPath,
		},
		VocabPath:    vocabPath,
		Tokenizer:    tokenizer.DefaultConfig(),
		Config:       config,
		Optimization: optimization,
	}
}
