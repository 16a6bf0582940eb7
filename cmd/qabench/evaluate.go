package main

import (
	"fmt"

	"github.com/inferlab/go-qa/dataset"
	"github.com/inferlab/go-qa/eval"
	"github.com/inferlab/go-qa/inference/providers"
	"github.com/inferlab/go-qa/inference/readers"
	"github.com/inferlab/go-qa/models/model"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newEvaluateCmd() *cobra.Command {
	var modelPath string
	var modelName string
	var vocabPath string
	var datasetPath string
	var outputDir string
	var workers int
	var limit int
	var maxSeqLength int
	var allowNoAnswer bool
	var nullThreshold float32

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a model's SQuAD accuracy (exact match and F1)",
		Long: "Score a model's SQuAD accuracy.\n\n" +
			"Runs every dataset question through the reader with a worker pool and\n" +
			"reports exact match and token-level F1, broken down by answerability\n" +
			"for SQuAD v2 style datasets.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if modelPath == "" || vocabPath == "" || datasetPath == "" {
				return fmt.Errorf("--model, --vocab, and --dataset are required")
			}

			ds, err := dataset.Load(datasetPath)
			if err != nil {
				return err
			}

			config := readers.DefaultConfig()
			config.MaxSeqLength = maxSeqLength
			config.AllowNoAnswer = allowNoAnswer
			config.NullThreshold = nullThreshold

			reader, err := readers.NewReader(qaReaderArgs(
				model.Name(modelName), modelPath, vocabPath,
				config, providers.DefaultOptimizationConfig()))
			if err != nil {
				return err
			}
			defer reader.Close()

			evaluator := &eval.Evaluator{
				Reader:  reader,
				Dataset: ds,
				Workers: workers,
				Limit:   limit,
			}

			report, predictions, err := evaluator.Run(cmd.Context())
			if err != nil {
				return err
			}

			log.Info().
				Int("examples", report.Examples).
				Float64("exact_match", report.ExactMatch).
				Float64("f1", report.F1).
				Float64("per_example_ms", report.PerExampleMs).
				Msg("evaluation complete")

			fmt.Printf("examples:    %d\n", report.Examples)
			fmt.Printf("exact match: %.2f\n", report.ExactMatch)
			fmt.Printf("f1:          %.2f\n", report.F1)
			if report.NoAnswer.Examples > 0 {
				fmt.Printf("has-answer:  EM %.2f / F1 %.2f over %d\n",
					report.HasAnswer.ExactMatch, report.HasAnswer.F1, report.HasAnswer.Examples)
				fmt.Printf("no-answer:   EM %.2f / F1 %.2f over %d\n",
					report.NoAnswer.ExactMatch, report.NoAnswer.F1, report.NoAnswer.Examples)
			}

			if outputDir != "" {
				if err := eval.WriteReport(outputDir, report, predictions); err != nil {
					return err
				}
				log.Info().Str("dir", outputDir).Msg("report written")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "Path to the ONNX model file")
	cmd.Flags().StringVar(&modelName, "model-name", "distilbert", "Model family (bert, distilbert, electra)")
	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Path to vocab.txt or tokenizer.json")
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "SQuAD dataset file (v1.1 or v2.0)")
	cmd.Flags().StringVar(&outputDir, "output", "", "Directory for predictions.json and report.json")
	cmd.Flags().IntVar(&workers, "workers", 1, "Concurrent questions")
	cmd.Flags().IntVar(&limit, "limit", 0, "Evaluate only the first N examples (0 = all)")
	cmd.Flags().IntVar(&maxSeqLength, "max-seq-length", 0, "Padded sequence length (0 = model family default)")
	cmd.Flags().BoolVar(&allowNoAnswer, "allow-no-answer", false, "Enable the empty-answer candidate (SQuAD v2)")
	cmd.Flags().Float32Var(&nullThreshold, "null-threshold", 0, "No-answer decision bias")

	return cmd
}
