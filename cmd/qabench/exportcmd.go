package main

import (
	"fmt"

	"github.com/inferlab/go-qa/export"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var opts export.Options

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a HuggingFace QA checkpoint to ONNX",
		Long: "Export a HuggingFace QA checkpoint to ONNX via optimum.\n\n" +
			"This is a tooling command and requires Python with optimum and onnxruntime installed.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("output-dir") {
				opts.OutputDir = modelsDir
			}
			modelPath, err := export.ExportONNX(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf(
					"export failed: %w\nhint: this command requires Python tooling (optimum, onnxruntime)",
					err,
				)
			}
			fmt.Println(modelPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ModelID, "model-id", "", "HuggingFace model ID to export")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "models/onnx", "Directory for exported files")
	cmd.Flags().StringVar(&opts.Task, "task", "question-answering", "Export task head")
	cmd.Flags().IntVar(&opts.Opset, "opset", 0, "ONNX opset version (0 = exporter default)")
	cmd.Flags().StringVar(&opts.PythonBin, "python-bin", "", "Python interpreter for the export helper")

	return cmd
}

func newOptimizeCmd() *cobra.Command {
	var opts export.Options
	var optimize export.OptimizeOptions

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Run offline transformer graph fusion on an exported model",
		Long: "Run the onnxruntime transformer optimizer on an exported model.\n\n" +
			"Fuses attention, layer normalization, and GELU subgraphs into single kernels;\n" +
			"optionally converts the fused graph to float16.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("output-dir") {
				opts.OutputDir = modelsDir
			}
			outputPath, err := export.OptimizeGraph(cmd.Context(), opts, optimize)
			if err != nil {
				return fmt.Errorf(
					"optimization failed: %w\nhint: this command requires Python tooling (onnxruntime)",
					err,
				)
			}
			fmt.Println(outputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "models/onnx", "Directory holding model.onnx")
	cmd.Flags().IntVar(&optimize.NumHeads, "num-heads", 12, "Attention head count of the model")
	cmd.Flags().IntVar(&optimize.HiddenSize, "hidden-size", 768, "Hidden dimension of the model")
	cmd.Flags().BoolVar(&optimize.FP16, "fp16", false, "Also emit a float16 conversion of the fused graph")
	cmd.Flags().StringVar(&opts.PythonBin, "python-bin", "", "Python interpreter for the optimize helper")

	return cmd
}

func newQuantizeCmd() *cobra.Command {
	var opts export.Options
	var quantize export.QuantizeOptions

	cmd := &cobra.Command{
		Use:   "quantize",
		Short: "Dynamically quantize an exported model to int8 weights",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("output-dir") {
				opts.OutputDir = modelsDir
			}
			outputPath, err := export.QuantizeDynamic(cmd.Context(), opts, quantize)
			if err != nil {
				return fmt.Errorf(
					"quantization failed: %w\nhint: this command requires Python tooling (onnxruntime)",
					err,
				)
			}
			fmt.Println(outputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "models/onnx", "Directory holding model.onnx")
	cmd.Flags().StringVar(&quantize.WeightType, "weight-type", "int8", "Quantized weight type (int8 or uint8)")
	cmd.Flags().BoolVar(&quantize.PerChannel, "per-channel", false, "Quantize weights per output channel")
	cmd.Flags().StringVar(&opts.PythonBin, "python-bin", "", "Python interpreter for the quantize helper")

	return cmd
}
