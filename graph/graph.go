// Package graph - static inspection of ONNX model files.
//
// Summaries are computed from the model protobuf alone, without loading the
// model into a runtime, so they work on machines without the native ONNX
// Runtime library. Used to verify what the offline optimization and
// quantization passes actually did to a graph.
package graph

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/zerfoo/zonnx/pkg/importer"
)

// TensorInfo describes one graph input or output.
type TensorInfo struct {
	Name     string   `json:"name"`
	DataType string   `json:"data_type"`
	Shape    []string `json:"shape"`
}

// Summary is the static census of one ONNX file.
type Summary struct {
	Path          string `json:"path"`
	FileSizeBytes int64  `json:"file_size_bytes"`

	IRVersion       int64  `json:"ir_version"`
	OpsetVersion    int64  `json:"opset_version"`
	ProducerName    string `json:"producer_name"`
	ProducerVersion string `json:"producer_version"`

	NodeCount        int   `json:"node_count"`
	InitializerCount int   `json:"initializer_count"`
	InitializerBytes int64 `json:"initializer_bytes"`

	// OpHistogram counts nodes per operator type.
	OpHistogram map[string]int `json:"op_histogram"`

	// DataTypeCensus counts initializers per element type. A quantized
	// graph shows up here as weight tensors moving from float to int8.
	DataTypeCensus map[string]int `json:"data_type_census"`

	Inputs  []TensorInfo `json:"inputs"`
	Outputs []TensorInfo `json:"outputs"`
}

// Summarize loads an ONNX file and computes its static summary.
//
// Arguments:
//   - path: Filesystem path to the .onnx file.
//
// Returns:
//   - *Summary: The computed census.
//   - error: An error if the file cannot be read or holds no graph nodes.
func Summarize(path string) (*Summary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat model %s", path)
	}

	model, err := importer.LoadOnnxModel(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse model %s", path)
	}

	graphProto := model.GetGraph()
	nodes := graphProto.GetNode()
	if len(nodes) == 0 {
		return nil, fmt.Errorf("model %s has no graph nodes", path)
	}

	summary := &Summary{
		Path:            path,
		FileSizeBytes:   info.Size(),
		IRVersion:       model.GetIrVersion(),
		ProducerName:    model.GetProducerName(),
		ProducerVersion: model.GetProducerVersion(),
		NodeCount:       len(nodes),
		OpHistogram:     make(map[string]int),
		DataTypeCensus:  make(map[string]int),
	}
	if opsets := model.GetOpsetImport(); len(opsets) > 0 {
		summary.OpsetVersion = opsets[0].GetVersion()
	}

	for _, node := range nodes {
		summary.OpHistogram[node.GetOpType()]++
	}

	for _, initializer := range graphProto.GetInitializer() {
		summary.InitializerCount++
		summary.InitializerBytes += initializerBytes(
			len(initializer.GetRawData()),
			len(initializer.GetFloatData()),
			len(initializer.GetInt32Data()),
			len(initializer.GetInt64Data()),
		)
		summary.DataTypeCensus[DataTypeName(initializer.GetDataType())]++
	}

	for _, input := range graphProto.GetInput() {
		tensorType := input.GetType().GetTensorType()
		summary.Inputs = append(summary.Inputs, TensorInfo{
			Name:     input.GetName(),
			DataType: DataTypeName(tensorType.GetElemType()),
			Shape:    shapeNames(tensorType.GetShape().GetDim()),
		})
	}
	for _, output := range graphProto.GetOutput() {
		tensorType := output.GetType().GetTensorType()
		summary.Outputs = append(summary.Outputs, TensorInfo{
			Name:     output.GetName(),
			DataType: DataTypeName(tensorType.GetElemType()),
			Shape:    shapeNames(tensorType.GetShape().GetDim()),
		})
	}

	return summary, nil
}

// shapeNames renders tensor dimensions, keeping symbolic names such as
// "batch_size" and "sequence_length" when the exporter left them dynamic.
func shapeNames[D interface {
	GetDimValue() int64
	GetDimParam() string
}](dimensions []D) []string {
	names := make([]string, 0, len(dimensions))
	for _, dimension := range dimensions {
		if param := dimension.GetDimParam(); param != "" {
			names = append(names, param)
			continue
		}
		names = append(names, strconv.FormatInt(dimension.GetDimValue(), 10))
	}
	return names
}

// initializerBytes sizes one weight tensor, preferring the raw encoding.
func initializerBytes(raw, floats, int32s, int64s int) int64 {
	if raw > 0 {
		return int64(raw)
	}
	return int64(floats)*4 + int64(int32s)*4 + int64(int64s)*8
}

// GraphDiff compares two summaries, typically a baseline fp32 graph against
// its optimized or quantized variant.
type GraphDiff struct {
	Base  string `json:"base"`
	Other string `json:"other"`

	NodeDelta int   `json:"node_delta"`
	SizeDelta int64 `json:"size_delta_bytes"`

	// OpsIntroduced lists operator types present only in the other graph,
	// fused and quantized ops for an optimized variant.
	OpsIntroduced []string `json:"ops_introduced"`

	// OpsRemoved lists operator types present only in the base graph.
	OpsRemoved []string `json:"ops_removed"`
}

// Diff computes the structural delta between two summaries.
func Diff(base, other *Summary) GraphDiff {
	diff := GraphDiff{
		Base:      base.Path,
		Other:     other.Path,
		NodeDelta: other.NodeCount - base.NodeCount,
		SizeDelta: other.FileSizeBytes - base.FileSizeBytes,
	}
	for op := range other.OpHistogram {
		if _, ok := base.OpHistogram[op]; !ok {
			diff.OpsIntroduced = append(diff.OpsIntroduced, op)
		}
	}
	for op := range base.OpHistogram {
		if _, ok := other.OpHistogram[op]; !ok {
			diff.OpsRemoved = append(diff.OpsRemoved, op)
		}
	}
	sort.Strings(diff.OpsIntroduced)
	sort.Strings(diff.OpsRemoved)
	return diff
}

// fusedOpTypes are the composite operators the transformer optimizer emits in
// place of primitive subgraphs.
var fusedOpTypes = map[string]bool{
	"Attention":               true,
	"MultiHeadAttention":      true,
	"EmbedLayerNormalization": true,
	"SkipLayerNormalization":  true,
	"FastGelu":                true,
	"Gelu":                    true,
	"BiasGelu":                true,
	"LayerNormalization":      true,
}

// quantOpTypes are the operators dynamic quantization introduces.
var quantOpTypes = map[string]bool{
	"MatMulInteger":            true,
	"DynamicQuantizeLinear":    true,
	"QLinearMatMul":            true,
	"QuantizeLinear":           true,
	"DequantizeLinear":         true,
	"ConvInteger":              true,
	"QAttention":               true,
	"QGemm":                    true,
	"MatMulIntegerToFloat":     true,
	"DynamicQuantizeMatMul":    true,
	"QLinearAdd":               true,
	"QEmbedLayerNormalization": true,
}

// FusedOps returns the fused-operator counts present in the summary.
//
// A non-empty result is the signature of a graph that went through the
// offline transformer fusion pass.
func (s *Summary) FusedOps() map[string]int {
	return s.filterOps(fusedOpTypes)
}

// QuantOps returns the quantization-operator counts present in the summary.
func (s *Summary) QuantOps() map[string]int {
	return s.filterOps(quantOpTypes)
}

func (s *Summary) filterOps(wanted map[string]bool) map[string]int {
	found := make(map[string]int)
	for op, count := range s.OpHistogram {
		if wanted[op] {
			found[op] = count
		}
	}
	return found
}

// onnxDataTypes maps ONNX TensorProto element types to their names.
var onnxDataTypes = map[int32]string{
	1:  "float32",
	2:  "uint8",
	3:  "int8",
	4:  "uint16",
	5:  "int16",
	6:  "int32",
	7:  "int64",
	8:  "string",
	9:  "bool",
	10: "float16",
	11: "float64",
	12: "uint32",
	13: "uint64",
	14: "complex64",
	15: "complex128",
	16: "bfloat16",
}

// DataTypeName names an ONNX element type, or "unknown(n)" for new ones.
func DataTypeName(dataType int32) string {
	if name, ok := onnxDataTypes[dataType]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", dataType)
}
