// Package inference - model IO introspection.
package inference

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// ModelIOInfo reads the input and output tensor declarations from a model
// file without creating a session.
//
// Arguments:
//   - modelPath: Path to the ONNX model file.
//
// Returns:
//   - []ort.InputOutputInfo: Input tensor declarations.
//   - []ort.InputOutputInfo: Output tensor declarations.
//   - error: An error if runtime init or model parsing fails.
func ModelIOInfo(modelPath string) ([]ort.InputOutputInfo, []ort.InputOutputInfo, error) {
	if err := InitRuntime(); err != nil {
		return nil, nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading model IO info: %w", err)
	}
	return inputs, outputs, nil
}
