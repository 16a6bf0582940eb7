// Package model - shared contracts for extractive-QA model families.
package model

import (
	"github.com/inferlab/go-qa/models/postprocess"
	"github.com/inferlab/go-qa/tokenizer"
)

// Family is the architecture family of a model.
type Family string

const (
	// FamilyBERT is the BERT encoder family.
	FamilyBERT Family = "bert"
	// FamilyDistilBERT is the distilled BERT family (no token type ids).
	FamilyDistilBERT Family = "distilbert"
	// FamilyELECTRA is the ELECTRA discriminator family.
	FamilyELECTRA Family = "electra"
)

// Name is the unique identifier of a model wiring.
type Name string

const (
	// ModelNameBERT is the name of the BERT QA wiring.
	ModelNameBERT Name = "bert"
	// ModelNameDistilBERT is the name of the DistilBERT QA wiring.
	ModelNameDistilBERT Name = "distilbert"
	// ModelNameELECTRA is the name of the ELECTRA QA wiring.
	ModelNameELECTRA Name = "electra"
)

// BaseModel is the base description every family shares.
type BaseModel struct {
	Name   Name
	Family Family
	Path   string
	// Inputs are the graph's input tensor names, in session order.
	Inputs []string
	// Outputs are the graph's output tensor names: start then end logits.
	Outputs []string
	// MaxSeqLength is the default sequence budget for this wiring.
	MaxSeqLength int
	// HasTokenTypes reports whether the graph takes token_type_ids.
	HasTokenTypes bool
}

// Model is one QA family's input wiring and span decoding.
type Model interface {
	Options() BaseModel
	EncodeFeatures(
		question, context string,
		tk *tokenizer.Tokenizer,
		cfg postprocess.SpanConfig,
	) ([]postprocess.Feature, error)
	DecodeAnswer(
		feature postprocess.Feature,
		startLogits, endLogits []float32,
		cfg postprocess.SpanConfig,
	) []postprocess.Prediction
}

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	Name         Name     `json:"name" yaml:"name"`
	Path         string   `json:"path" yaml:"path"`
	Family       Family   `json:"family" yaml:"family"`
	Inputs       []string `json:"inputs" yaml:"inputs"`
	Outputs      []string `json:"outputs" yaml:"outputs"`
	MaxSeqLength int      `json:"max_seq_length" yaml:"max_seq_length"`
}
