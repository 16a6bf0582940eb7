package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// modelsDir is the shared default location for exported model variants,
// set by the persistent --models-dir flag.
var modelsDir string

func newRootCmd() *cobra.Command {
	var logLevel string
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "qabench",
		Short: "Extractive QA benchmarking over ONNX models",
		Long: "qabench runs extractive question answering over ONNX models and measures\n" +
			"what graph optimization and quantization buy: latency, accuracy, and the\n" +
			"structural changes in the graph itself.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			zerolog.SetGlobalLevel(level)
			if !logJSON {
				log.Logger = log.Output(zerolog.ConsoleWriter{
					Out:        os.Stderr,
					TimeFormat: time.TimeOnly,
				})
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&logJSON, "log-json", false,
		"Emit structured JSON logs instead of console output")
	cmd.PersistentFlags().StringVar(&modelsDir, "models-dir", "models/onnx",
		"Default directory for exported model variants")

	cmd.AddCommand(
		newDownloadCmd(),
		newExportCmd(),
		newOptimizeCmd(),
		newQuantizeCmd(),
		newInspectCmd(),
		newAskCmd(),
		newBenchmarkCmd(),
		newEvaluateCmd(),
		newCompareCmd(),
	)

	return cmd
}
