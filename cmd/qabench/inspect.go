package main

import (
	"encoding/json"
	"fmt"

	"github.com/inferlab/go-qa/graph"
	"github.com/inferlab/go-qa/inference"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var runtimeIO bool

	cmd := &cobra.Command{
		Use:   "inspect <model.onnx> [more.onnx ...]",
		Short: "Print a static census of ONNX model files",
		Long: "Print a static census of ONNX model files: operator histogram, initializer\n" +
			"sizes, element types, and graph inputs/outputs. Works without the native\n" +
			"ONNX Runtime library; pass --runtime-io to also query the runtime's view.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				summary, err := graph.Summarize(path)
				if err != nil {
					return err
				}

				data, err := json.MarshalIndent(summary, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal summary: %w", err)
				}
				fmt.Println(string(data))

				if fused := summary.FusedOps(); len(fused) > 0 {
					fmt.Printf("fused operators: %v\n", fused)
				}
				if quantized := summary.QuantOps(); len(quantized) > 0 {
					fmt.Printf("quantization operators: %v\n", quantized)
				}

				if runtimeIO {
					if err := printRuntimeIO(path); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&runtimeIO, "runtime-io", false,
		"Also query input/output metadata from the native runtime")

	return cmd
}

func printRuntimeIO(path string) error {
	inputs, outputs, err := inference.ModelIOInfo(path)
	if err != nil {
		return fmt.Errorf("runtime inspection failed: %w", err)
	}

	fmt.Println("runtime inputs:")
	for _, info := range inputs {
		fmt.Printf("  %s %v\n", info.Name, info.Dimensions)
	}
	fmt.Println("runtime outputs:")
	for _, info := range outputs {
		fmt.Printf("  %s %v\n", info.Name, info.Dimensions)
	}
	return nil
}
