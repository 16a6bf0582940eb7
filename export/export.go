// Package export - model export, graph optimization, and quantization via
// external Python tooling.
//
// The heavy transforms live in the HuggingFace/ONNX Runtime Python toolkits;
// this package embeds small helper scripts and shells out to them. Nothing
// here runs at inference time.
package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// EnvPython names the environment variable that selects the interpreter.
const EnvPython = "QABENCH_PYTHON"

// Output file names the three stages produce.
const (
	FileModel            = "model.onnx"
	FileModelOptimized   = "model-optimized.onnx"
	FileModelOptimizedFP = "model-optimized-fp16.onnx"
	FileModelINT8        = "model-int8.onnx"
)

// Options carries the shared settings for all export stages.
type Options struct {
	// ModelID is the HuggingFace model identifier, e.g.
	// "distilbert-base-uncased-distilled-squad".
	ModelID string `json:"model_id" yaml:"model_id"`

	// Task is the export head. Defaults to "question-answering".
	Task string `json:"task" yaml:"task"`

	// OutputDir receives the exported files.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Opset is the ONNX opset version, 0 keeps the exporter default.
	Opset int `json:"opset" yaml:"opset"`

	// MaxSeqLength is recorded for tooling that wants a fixed length.
	MaxSeqLength int `json:"max_seq_length" yaml:"max_seq_length"`

	// PythonBin overrides interpreter discovery.
	PythonBin string `json:"python_bin" yaml:"python_bin"`

	// Env entries are appended to the subprocess environment.
	Env []string `json:"-" yaml:"-"`
}

// FindPython locates the interpreter used for export helpers.
//
// Resolution order: the explicit path, $QABENCH_PYTHON, python3 on PATH,
// python on PATH.
//
// Arguments:
//   - explicit: Interpreter path from a flag, may be empty.
//
// Returns:
//   - string: The interpreter to invoke.
//   - error: An error when no interpreter can be found.
func FindPython(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(EnvPython); env != "" {
		return env, nil
	}
	for _, candidate := range []string{"python3", "python"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no python interpreter found, set %s or --python-bin", EnvPython)
}

// ExportONNX exports a HuggingFace QA checkpoint to ONNX.
//
// Runs the optimum exporter, producing model.onnx plus the tokenizer files
// (vocab.txt / tokenizer.json) in OutputDir.
//
// Arguments:
//   - ctx: Cancels the subprocess.
//   - opts: Export settings; ModelID and OutputDir are required.
//
// Returns:
//   - string: Path to the exported model.onnx.
//   - error: An error if the helper fails or the output is missing.
func ExportONNX(ctx context.Context, opts Options) (string, error) {
	if opts.ModelID == "" {
		return "", fmt.Errorf("model id is required")
	}
	if opts.OutputDir == "" {
		return "", fmt.Errorf("output dir is required")
	}
	task := opts.Task
	if task == "" {
		task = "question-answering"
	}

	args := []string{
		"--model-id", opts.ModelID,
		"--task", task,
		"--output-dir", opts.OutputDir,
	}
	if opts.Opset > 0 {
		args = append(args, "--opset", strconv.Itoa(opts.Opset))
	}

	log.Info().Str("model_id", opts.ModelID).Str("output_dir", opts.OutputDir).
		Msg("exporting model to ONNX")
	if err := runHelper(ctx, opts, exportScript, args); err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	modelPath := filepath.Join(opts.OutputDir, FileModel)
	if err := checkOutput(modelPath); err != nil {
		return "", err
	}
	return modelPath, nil
}

// OptimizeOptions controls the offline fusion pass.
type OptimizeOptions struct {
	// NumHeads is the attention head count of the transformer.
	NumHeads int `json:"num_heads" yaml:"num_heads"`

	// HiddenSize is the transformer hidden dimension.
	HiddenSize int `json:"hidden_size" yaml:"hidden_size"`

	// FP16 additionally converts the optimized graph to float16.
	FP16 bool `json:"fp16" yaml:"fp16"`
}

// OptimizeGraph runs the onnxruntime.transformers fusion optimizer offline.
//
// Produces model-optimized.onnx in OutputDir, plus model-optimized-fp16.onnx
// when FP16 is set.
//
// Returns:
//   - string: Path to model-optimized.onnx.
//   - error: An error if the helper fails or outputs are missing.
func OptimizeGraph(ctx context.Context, opts Options, optimize OptimizeOptions) (string, error) {
	input := filepath.Join(opts.OutputDir, FileModel)
	if err := checkOutput(input); err != nil {
		return "", fmt.Errorf("optimize needs an exported model: %w", err)
	}
	if optimize.NumHeads < 1 || optimize.HiddenSize < 1 {
		return "", fmt.Errorf("num heads and hidden size are required, got %d/%d",
			optimize.NumHeads, optimize.HiddenSize)
	}

	output := filepath.Join(opts.OutputDir, FileModelOptimized)
	args := []string{
		"--input", input,
		"--output", output,
		"--num-heads", strconv.Itoa(optimize.NumHeads),
		"--hidden-size", strconv.Itoa(optimize.HiddenSize),
	}
	if optimize.FP16 {
		args = append(args, "--fp16-output", filepath.Join(opts.OutputDir, FileModelOptimizedFP))
	}

	log.Info().Str("input", input).Bool("fp16", optimize.FP16).Msg("optimizing graph")
	if err := runHelper(ctx, opts, optimizeScript, args); err != nil {
		return "", fmt.Errorf("graph optimization failed: %w", err)
	}

	if err := checkOutput(output); err != nil {
		return "", err
	}
	if optimize.FP16 {
		if err := checkOutput(filepath.Join(opts.OutputDir, FileModelOptimizedFP)); err != nil {
			return "", err
		}
	}
	return output, nil
}

// QuantizeOptions controls dynamic quantization.
type QuantizeOptions struct {
	// PerChannel quantizes weights per output channel.
	PerChannel bool `json:"per_channel" yaml:"per_channel"`

	// WeightType is "int8" or "uint8". Defaults to "int8".
	WeightType string `json:"weight_type" yaml:"weight_type"`
}

// QuantizeDynamic runs onnxruntime dynamic quantization.
//
// Produces model-int8.onnx in OutputDir from the exported model.onnx.
//
// Returns:
//   - string: Path to model-int8.onnx.
//   - error: An error if the helper fails or the output is missing.
func QuantizeDynamic(ctx context.Context, opts Options, quantize QuantizeOptions) (string, error) {
	input := filepath.Join(opts.OutputDir, FileModel)
	if err := checkOutput(input); err != nil {
		return "", fmt.Errorf("quantize needs an exported model: %w", err)
	}

	weightType := quantize.WeightType
	if weightType == "" {
		weightType = "int8"
	}
	if weightType != "int8" && weightType != "uint8" {
		return "", fmt.Errorf("unsupported weight type: %q", weightType)
	}

	output := filepath.Join(opts.OutputDir, FileModelINT8)
	args := []string{
		"--input", input,
		"--output", output,
		"--weight-type", weightType,
	}
	if quantize.PerChannel {
		args = append(args, "--per-channel")
	}

	log.Info().Str("input", input).Str("weight_type", weightType).Msg("quantizing model")
	if err := runHelper(ctx, opts, quantizeScript, args); err != nil {
		return "", fmt.Errorf("quantization failed: %w", err)
	}

	if err := checkOutput(output); err != nil {
		return "", err
	}
	return output, nil
}

// runHelper writes one embedded script to a private temp dir and executes it.
//
// The temp dir is 0700 and removed afterwards. The subprocess inherits the
// caller's context and environment plus opts.Env; on failure the error
// carries the stderr tail.
func runHelper(ctx context.Context, opts Options, script string, args []string) error {
	python, err := FindPython(opts.PythonBin)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "qabench-export-*")
	if err != nil {
		return fmt.Errorf("failed to create helper dir: %w", err)
	}
	defer os.RemoveAll(dir)
	if err := os.Chmod(dir, 0o700); err != nil {
		return fmt.Errorf("failed to restrict helper dir: %w", err)
	}

	scriptPath := filepath.Join(dir, "helper.py")
	if err := os.WriteFile(scriptPath, []byte(script), 0o600); err != nil {
		return fmt.Errorf("failed to write helper script: %w", err)
	}

	cmd := exec.CommandContext(ctx, python, append([]string{scriptPath}, args...)...)
	cmd.Env = append(os.Environ(), opts.Env...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = os.Stdout

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w\nstderr: %s", python, err, stderrTail(stderr.String(), 12))
	}
	return nil
}

// stderrTail keeps the last n lines of captured stderr.
func stderrTail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// checkOutput verifies an expected output file exists and is non-empty.
func checkOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("expected output %s missing: %w", path, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("expected output %s is empty", path)
	}
	return nil
}
