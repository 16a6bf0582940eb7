// Package model - Model precision variants.
package model

// Precision represents the numeric precision a model file was produced at.
type Precision string

const (
	// PrecisionFP32 is the exported baseline graph.
	PrecisionFP32 Precision = "FP32"
	// PrecisionFP16 is the fusion-optimized graph converted to half floats.
	PrecisionFP16 Precision = "FP16"
	// PrecisionINT8 is the dynamically quantized graph.
	PrecisionINT8 Precision = "INT8"
)
