// Package models - registry for QA model families.
package models

import (
	"fmt"

	"github.com/inferlab/go-qa/models/bert"
	"github.com/inferlab/go-qa/models/distilbert"
	"github.com/inferlab/go-qa/models/electra"
	"github.com/inferlab/go-qa/models/model"
)

// NewModel creates a QA model instance for the named family.
//
// This factory is the single entry point for model creation, routing requests
// to the family-specific constructors while keeping a unified interface for
// the session and benchmark layers.
//
// Arguments:
//   - args: Configuration naming the family and the ONNX file location.
//
// Returns:
//   - model.Model: A fully configured model implementing the Model interface.
//   - error: An error if the name is unsupported or validation fails.
//
// Example:
//
// ```go
//
//	qa, err := models.NewModel(model.NewModelArgs{
//	    Name: model.ModelNameDistilBERT,
//	    Path: "models/distilbert-squad/model.onnx",
//	})
//
//	if err != nil {
//	    log.Fatalf("Failed to create QA model: %v", err)
//	}
//
// ```
func NewModel(args model.NewModelArgs) (model.Model, error) {
	switch args.Name {
	case model.ModelNameBERT:
		return bert.NewModel(args)
	case model.ModelNameDistilBERT:
		return distilbert.NewModel(args)
	case model.ModelNameELECTRA:
		return electra.NewModel(args)
	default:
		return nil, fmt.Errorf("unsupported model name: %s", args.Name)
	}
}
