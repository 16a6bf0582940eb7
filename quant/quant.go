// Package quant - affine uint8 quantization primitives and precision-loss
// measurement.
//
// The real weight quantization happens offline in the export tooling; this
// package mirrors the arithmetic so precision loss can be measured on live
// logits without a second model file.
package quant

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/x448/float16"
)

// Params holds one affine quantization mapping: real = (q - ZeroPoint) * Scale.
type Params struct {
	Scale     float32 `json:"scale"`
	ZeroPoint uint8   `json:"zero_point"`
}

// scaleFloor keeps degenerate ranges from producing a zero scale.
const scaleFloor = 1e-9

// ComputeParams derives quantization parameters for an observed value range.
//
// Symmetric mode centers the mapping on zero with ZeroPoint 128, which is
// what dynamic weight quantization uses. Asymmetric mode spends the full
// uint8 range on [min, max], widened to include zero so that zero stays
// exactly representable.
//
// Arguments:
//   - min: Smallest observed value.
//   - max: Largest observed value.
//   - symmetric: Selects the zero-centered mapping.
//
// Returns:
//   - Params: The derived mapping, Scale always positive.
func ComputeParams(min, max float32, symmetric bool) Params {
	if symmetric {
		absMax := math32.Max(math32.Abs(min), math32.Abs(max))
		return Params{
			Scale:     math32.Max(absMax/127, scaleFloor),
			ZeroPoint: 128,
		}
	}

	if min > 0 {
		min = 0
	}
	if max < 0 {
		max = 0
	}
	scale := math32.Max((max-min)/255, scaleFloor)
	zeroPoint := math32.Round(-min / scale)
	return Params{
		Scale:     scale,
		ZeroPoint: uint8(math32.Max(0, math32.Min(255, zeroPoint))),
	}
}

// Quantize maps one value into the uint8 grid, saturating at the ends.
func Quantize(value float32, params Params) uint8 {
	q := math32.Round(value/params.Scale) + float32(params.ZeroPoint)
	return uint8(math32.Max(0, math32.Min(255, q)))
}

// Dequantize maps one quantized value back to float32.
func Dequantize(quantized uint8, params Params) float32 {
	return (float32(quantized) - float32(params.ZeroPoint)) * params.Scale
}

// QuantizeBatch quantizes a slice with shared parameters.
func QuantizeBatch(values []float32, params Params) []uint8 {
	quantized := make([]uint8, len(values))
	for i, value := range values {
		quantized[i] = Quantize(value, params)
	}
	return quantized
}

// DequantizeBatch reverses QuantizeBatch.
func DequantizeBatch(quantized []uint8, params Params) []float32 {
	values := make([]float32, len(quantized))
	for i, q := range quantized {
		values[i] = Dequantize(q, params)
	}
	return values
}

// Error summarizes elementwise drift between a reference and a candidate.
type Error struct {
	MaxAbs  float32 `json:"max_abs"`
	MeanAbs float32 `json:"mean_abs"`
	RMSE    float32 `json:"rmse"`
}

// Compare measures elementwise drift of candidate against reference.
//
// Returns:
//   - Error: Max/mean absolute error and root mean squared error.
//   - error: An error when the slices differ in length or are empty.
func Compare(reference, candidate []float32) (Error, error) {
	if len(reference) == 0 {
		return Error{}, fmt.Errorf("no values to compare")
	}
	if len(reference) != len(candidate) {
		return Error{}, fmt.Errorf(
			"length mismatch: %d reference vs %d candidate", len(reference), len(candidate))
	}

	var result Error
	var sumSquares float32
	for i := range reference {
		diff := math32.Abs(reference[i] - candidate[i])
		result.MaxAbs = math32.Max(result.MaxAbs, diff)
		result.MeanAbs += diff
		sumSquares += diff * diff
	}
	n := float32(len(reference))
	result.MeanAbs /= n
	result.RMSE = math32.Sqrt(sumSquares / n)
	return result, nil
}

// RoundTripError measures what one quantize/dequantize pass loses.
//
// The max absolute error of a non-saturating round trip is bounded by half
// the scale step.
func RoundTripError(values []float32, params Params) (Error, error) {
	return Compare(values, DequantizeBatch(QuantizeBatch(values, params), params))
}

// SimulateFloat16 rounds every value through IEEE half precision.
//
// Used to estimate fp16 logit drift without running the converted model.
func SimulateFloat16(values []float32) []float32 {
	rounded := make([]float32, len(values))
	for i, value := range values {
		rounded[i] = float16.Fromfloat32(value).Float32()
	}
	return rounded
}
