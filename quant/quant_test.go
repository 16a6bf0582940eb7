package quant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeParamsSymmetric(t *testing.T) {
	params := ComputeParams(-6.35, 3.1, true)
	assert.Equal(t, uint8(128), params.ZeroPoint)
	assert.InDelta(t, 6.35/127, params.Scale, 1e-6)
}

func TestComputeParamsAsymmetric(t *testing.T) {
	params := ComputeParams(-1.0, 3.0, false)
	assert.InDelta(t, 4.0/255, params.Scale, 1e-6)

	// Zero must map exactly onto the zero point.
	assert.InDelta(t, 0.0, Dequantize(params.ZeroPoint, params), 1e-6)
}

func TestComputeParamsWidensToZero(t *testing.T) {
	// An all-positive range still keeps zero representable.
	params := ComputeParams(2.0, 10.0, false)
	assert.Equal(t, uint8(0), params.ZeroPoint)
	assert.InDelta(t, 10.0/255, params.Scale, 1e-6)
}

func TestComputeParamsDegenerateRange(t *testing.T) {
	params := ComputeParams(0, 0, false)
	assert.Greater(t, params.Scale, float32(0))

	params = ComputeParams(0, 0, true)
	assert.Greater(t, params.Scale, float32(0))
}

func TestQuantizeSaturates(t *testing.T) {
	params := ComputeParams(-1.0, 1.0, true)
	assert.Equal(t, uint8(255), Quantize(100.0, params))
	assert.Equal(t, uint8(0), Quantize(-100.0, params))
}

func TestRoundTripErrorBounded(t *testing.T) {
	values := []float32{-5.2, -1.0, -0.01, 0, 0.5, 1.7, 3.3, 6.0}
	params := ComputeParams(-5.2, 6.0, true)

	result, err := RoundTripError(values, params)
	require.NoError(t, err)

	// No value saturates, so each error stays within half a scale step.
	assert.LessOrEqual(t, result.MaxAbs, params.Scale/2+1e-6)
	assert.LessOrEqual(t, result.MeanAbs, result.MaxAbs)
	assert.LessOrEqual(t, result.RMSE, result.MaxAbs)
}

func TestQuantizeDequantizeBatch(t *testing.T) {
	values := []float32{-2.0, 0, 2.0}
	params := ComputeParams(-2.0, 2.0, true)

	quantized := QuantizeBatch(values, params)
	require.Len(t, quantized, 3)
	assert.Equal(t, uint8(128), quantized[1])

	restored := DequantizeBatch(quantized, params)
	for i := range values {
		assert.InDelta(t, values[i], restored[i], float64(params.Scale)/2+1e-6)
	}
}

func TestCompare(t *testing.T) {
	result, err := Compare([]float32{1, 2, 3}, []float32{1, 2.5, 2})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.MaxAbs, 1e-6)
	assert.InDelta(t, 0.5, result.MeanAbs, 1e-6)

	_, err = Compare([]float32{1}, []float32{1, 2})
	assert.Error(t, err)

	_, err = Compare(nil, nil)
	assert.Error(t, err)
}

func TestSimulateFloat16(t *testing.T) {
	values := []float32{0, 1, -1, 0.333333333, 65504}
	rounded := SimulateFloat16(values)
	require.Len(t, rounded, len(values))

	// Exactly representable values survive unchanged.
	assert.Equal(t, float32(0), rounded[0])
	assert.Equal(t, float32(1), rounded[1])
	assert.Equal(t, float32(-1), rounded[2])
	assert.Equal(t, float32(65504), rounded[4])

	// 1/3 is not representable in half precision, but lands close.
	assert.NotEqual(t, values[3], rounded[3])
	assert.InDelta(t, values[3], rounded[3], 1e-3)
}
