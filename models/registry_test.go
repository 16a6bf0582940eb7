package models

import (
	"testing"

	"github.com/inferlab/go-qa/models/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelFamilies(t *testing.T) {
	tests := []struct {
		name          model.Name
		family        model.Family
		inputs        int
		hasTokenTypes bool
	}{
		{model.ModelNameBERT, model.FamilyBERT, 3, true},
		{model.ModelNameDistilBERT, model.FamilyDistilBERT, 2, false},
		{model.ModelNameELECTRA, model.FamilyELECTRA, 3, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			m, err := NewModel(model.NewModelArgs{Name: tt.name, Path: "model.onnx"})
			require.NoError(t, err)

			opts := m.Options()
			assert.Equal(t, tt.family, opts.Family)
			assert.Len(t, opts.Inputs, tt.inputs)
			assert.Equal(t, tt.hasTokenTypes, opts.HasTokenTypes)
			assert.Equal(t, []string{"start_logits", "end_logits"}, opts.Outputs)
		})
	}
}

func TestNewModelUnknownName(t *testing.T) {
	_, err := NewModel(model.NewModelArgs{Name: "roberta", Path: "model.onnx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported model name")
}

func TestNewModelRequiresPath(t *testing.T) {
	_, err := NewModel(model.NewModelArgs{Name: model.ModelNameBERT})
	require.Error(t, err)
}

func TestNewModelOverrides(t *testing.T) {
	m, err := NewModel(model.NewModelArgs{
		Name:         model.ModelNameBERT,
		Path:         "model.onnx",
		Inputs:       []string{"ids", "mask", "types"},
		MaxSeqLength: 512,
	})
	require.NoError(t, err)

	opts := m.Options()
	assert.Equal(t, []string{"ids", "mask", "types"}, opts.Inputs)
	assert.Equal(t, 512, opts.MaxSeqLength)
}
