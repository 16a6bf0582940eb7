package main

import (
	"fmt"

	"github.com/8ff/prettyTimer"
	"github.com/inferlab/go-qa/inference/providers"
	"github.com/inferlab/go-qa/inference/readers"
	"github.com/inferlab/go-qa/models/model"
	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var modelPath string
	var modelName string
	var vocabPath string
	var question string
	var passage string
	var optLevel string
	var maxSeqLength int
	var allowNoAnswer bool
	var repeat int

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Answer one question against one passage",
		Long: "Answer one question against one passage with a loaded ONNX model.\n\n" +
			"With --repeat the same question runs several times and per-run timing\n" +
			"statistics print at the end, which gives a quick latency read without\n" +
			"setting up a full benchmark.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if modelPath == "" || vocabPath == "" {
				return fmt.Errorf("--model and --vocab are required")
			}
			if question == "" || passage == "" {
				return fmt.Errorf("--question and --context are required")
			}
			if repeat < 1 {
				repeat = 1
			}

			optimization := providers.DefaultOptimizationConfig()
			if optLevel != "" {
				level, err := providers.ParseGraphOptimizationLevel(optLevel)
				if err != nil {
					return err
				}
				optimization.GraphOptimizationLevel = level
			}

			config := readers.DefaultConfig()
			config.MaxSeqLength = maxSeqLength
			config.AllowNoAnswer = allowNoAnswer

			reader, err := readers.NewReader(
				qaReaderArgs(model.Name(modelName), modelPath, vocabPath, config, optimization))
			if err != nil {
				return err
			}
			defer reader.Close()

			timingStats := prettyTimer.NewTimingStats()
			for i := 0; i < repeat; i++ {
				timingStats.Start()
				predictions, err := reader.Answer(cmd.Context(), question, passage)
				if err != nil {
					return err
				}
				timingStats.Finish()

				if i > 0 {
					continue
				}
				for rank, prediction := range predictions {
					fmt.Printf("%d. %q (score %.4f)\n", rank+1, prediction.Text, prediction.Score)
				}
				if len(predictions) == 0 {
					fmt.Println("no answer found")
				}
			}

			if repeat > 1 {
				timingStats.PrintStats()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "Path to the ONNX model file")
	cmd.Flags().StringVar(&modelName, "model-name", "distilbert", "Model family (bert, distilbert, electra)")
	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Path to vocab.txt or tokenizer.json")
	cmd.Flags().StringVar(&question, "question", "", "Question text")
	cmd.Flags().StringVar(&passage, "context", "", "Context passage to read")
	cmd.Flags().StringVar(&optLevel, "opt-level", "", "Graph optimization level (disable_all, basic, extended, all)")
	cmd.Flags().IntVar(&maxSeqLength, "max-seq-length", 0, "Padded sequence length (0 = model family default)")
	cmd.Flags().BoolVar(&allowNoAnswer, "allow-no-answer", false, "Enable the empty-answer candidate")
	cmd.Flags().IntVar(&repeat, "repeat", 1, "Run the question N times and print timing statistics")

	return cmd
}
