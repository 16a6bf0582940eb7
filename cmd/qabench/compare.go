package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/inferlab/go-qa/benchmark"
	"github.com/inferlab/go-qa/dataset"
	"github.com/inferlab/go-qa/eval"
	"github.com/inferlab/go-qa/export"
	"github.com/inferlab/go-qa/graph"
	"github.com/inferlab/go-qa/inference"
	"github.com/inferlab/go-qa/inference/providers"
	"github.com/inferlab/go-qa/inference/readers"
	"github.com/inferlab/go-qa/models"
	"github.com/inferlab/go-qa/models/model"
	"github.com/inferlab/go-qa/models/postprocess"
	"github.com/inferlab/go-qa/quant"
	"github.com/inferlab/go-qa/tokenizer"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	compareQuestion = "Who gave their name to Normandy in the 10th and 11th centuries?"
	comparePassage  = "The Normans were the people who in the 10th and 11th centuries gave " +
		"their name to Normandy, a region in France. They were descended from Norse " +
		"raiders and pirates from Denmark, Iceland and Norway who, under their leader " +
		"Rollo, agreed to swear fealty to King Charles III of West Francia."
)

// compareVariant is one model file under comparison.
type compareVariant struct {
	name benchmark.Variant
	path string
}

func newCompareCmd() *cobra.Command {
	var dir string
	var fp32Path string
	var optimizedPath string
	var int8Path string
	var modelName string
	var vocabPath string
	var question string
	var passage string
	var repeat int
	var datasetPath string
	var sample int

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare model variants: graph structure, latency, and logit drift",
		Long: "Compare the fp32 baseline against its optimized and quantized variants.\n\n" +
			"Always reports the static graph deltas (node counts, fused and quantized\n" +
			"operators, file sizes). With --vocab it also measures single-question\n" +
			"latency and logit drift against the baseline, and with --dataset it runs\n" +
			"a small accuracy sample per variant.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("dir") {
				dir = modelsDir
			}
			if fp32Path == "" {
				fp32Path = filepath.Join(dir, export.FileModel)
			}
			if optimizedPath == "" {
				optimizedPath = filepath.Join(dir, export.FileModelOptimized)
			}
			if int8Path == "" {
				int8Path = filepath.Join(dir, export.FileModelINT8)
			}

			variants := presentVariants(fp32Path, optimizedPath, int8Path)
			if len(variants) == 0 {
				return fmt.Errorf("no model files found under %s, run export first", dir)
			}
			if variants[0].name != benchmark.VariantFP32 {
				return fmt.Errorf("the fp32 baseline %s is required for comparison", fp32Path)
			}

			summaries := make(map[benchmark.Variant]*graph.Summary, len(variants))
			for _, variant := range variants {
				summary, err := graph.Summarize(variant.path)
				if err != nil {
					return err
				}
				summaries[variant.name] = summary
			}
			printGraphTable(variants, summaries)

			if vocabPath != "" {
				err := compareInference(
					cmd.Context(), variants, model.Name(modelName), vocabPath,
					question, passage, repeat)
				if err != nil {
					return err
				}
			}

			if datasetPath != "" && sample > 0 {
				if vocabPath == "" {
					return fmt.Errorf("--vocab is required for the accuracy sample")
				}
				err := compareAccuracy(
					cmd.Context(), variants, model.Name(modelName), vocabPath, datasetPath, sample)
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "models/onnx", "Directory holding the exported variants")
	cmd.Flags().StringVar(&fp32Path, "fp32", "", "Path to the fp32 baseline (default: <dir>/"+export.FileModel+")")
	cmd.Flags().StringVar(&optimizedPath, "optimized", "", "Path to the optimized variant")
	cmd.Flags().StringVar(&int8Path, "int8", "", "Path to the quantized variant")
	cmd.Flags().StringVar(&modelName, "model-name", "distilbert", "Model family (bert, distilbert, electra)")
	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Path to vocab.txt or tokenizer.json (enables latency and drift)")
	cmd.Flags().StringVar(&question, "question", compareQuestion, "Probe question for latency and drift")
	cmd.Flags().StringVar(&passage, "context", comparePassage, "Probe passage for latency and drift")
	cmd.Flags().IntVar(&repeat, "repeat", 30, "Timed runs per variant")
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "SQuAD dataset for the accuracy sample")
	cmd.Flags().IntVar(&sample, "sample", 0, "Accuracy sample size per variant (0 = skip)")

	return cmd
}

// presentVariants keeps the variants whose files exist, fp32 first.
func presentVariants(fp32Path, optimizedPath, int8Path string) []compareVariant {
	candidates := []compareVariant{
		{benchmark.VariantFP32, fp32Path},
		{benchmark.VariantOptimized, optimizedPath},
		{benchmark.VariantINT8, int8Path},
	}

	var present []compareVariant
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate.path); err == nil {
			present = append(present, candidate)
		}
	}
	return present
}

func printGraphTable(variants []compareVariant, summaries map[benchmark.Variant]*graph.Summary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VARIANT\tFILE\tSIZE (MB)\tNODES\tFUSED OPS\tQUANT OPS")
	for _, variant := range variants {
		summary := summaries[variant.name]
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%d\t%d\t%d\n",
			variant.name, filepath.Base(summary.Path),
			float64(summary.FileSizeBytes)/(1024*1024),
			summary.NodeCount, opTotal(summary.FusedOps()), opTotal(summary.QuantOps()))
	}
	w.Flush()

	base := summaries[benchmark.VariantFP32]
	for _, variant := range variants[1:] {
		diff := graph.Diff(base, summaries[variant.name])
		fmt.Printf("\n%s vs fp32: %+d nodes, %+.1f MB\n",
			variant.name, diff.NodeDelta, float64(diff.SizeDelta)/(1024*1024))
		if len(diff.OpsIntroduced) > 0 {
			fmt.Printf("  introduced: %s\n", strings.Join(diff.OpsIntroduced, ", "))
		}
		if len(diff.OpsRemoved) > 0 {
			fmt.Printf("  removed:    %s\n", strings.Join(diff.OpsRemoved, ", "))
		}
	}
}

func opTotal(counts map[string]int) int {
	total := 0
	for _, count := range counts {
		total += count
	}
	return total
}

// compareInference measures per-variant latency on one probe question and the
// drift of each variant's start logits against the fp32 baseline.
func compareInference(
	ctx context.Context,
	variants []compareVariant,
	name model.Name,
	vocabPath, question, passage string,
	repeat int,
) error {
	tk, err := tokenizer.Load(vocabPath, tokenizer.DefaultConfig())
	if err != nil {
		return err
	}

	var baseline []float32
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nVARIANT\tP50 (ms)\tP95 (ms)\tMAX ABS DRIFT\tRMSE")

	for _, variant := range variants {
		startLogits, stats, err := probeVariant(ctx, variant.path, name, tk, question, passage, repeat)
		if err != nil {
			return fmt.Errorf("%s: %w", variant.name, err)
		}

		drift := "-"
		rmse := "-"
		if variant.name == benchmark.VariantFP32 {
			baseline = startLogits
		} else if baseline != nil {
			measured, err := quant.Compare(baseline, startLogits)
			if err != nil {
				return fmt.Errorf("%s drift: %w", variant.name, err)
			}
			drift = fmt.Sprintf("%.5f", measured.MaxAbs)
			rmse = fmt.Sprintf("%.5f", measured.RMSE)
		}

		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%s\t%s\n", variant.name, stats.P50, stats.P95, drift, rmse)
	}
	w.Flush()

	if baseline != nil {
		printSimulatedDrift(baseline)
	}
	return nil
}

// probeVariant loads one variant, runs the probe question repeat times, and
// returns the last run's start logits with the latency statistics.
func probeVariant(
	ctx context.Context,
	modelPath string,
	name model.Name,
	tk *tokenizer.Tokenizer,
	question, passage string,
	repeat int,
) ([]float32, benchmark.LatencyStats, error) {
	qa, err := models.NewModel(model.NewModelArgs{Name: name, Path: modelPath})
	if err != nil {
		return nil, benchmark.LatencyStats{}, err
	}
	options := qa.Options()

	spanCfg := postprocess.SpanConfig{
		MaxSeqLength:    options.MaxSeqLength,
		DocStride:       128,
		MaxQueryLength:  64,
		MaxAnswerLength: 30,
		NBest:           20,
	}
	features, err := qa.EncodeFeatures(question, passage, tk, spanCfg)
	if err != nil {
		return nil, benchmark.LatencyStats{}, err
	}
	if len(features) == 0 {
		return nil, benchmark.LatencyStats{}, fmt.Errorf("probe question produced no features")
	}

	session, err := inference.NewSession(inference.NewSessionArgs{
		ModelPath:    options.Path,
		InputNames:   options.Inputs,
		OutputNames:  options.Outputs,
		Optimization: providers.DefaultOptimizationConfig(),
	})
	if err != nil {
		return nil, benchmark.LatencyStats{}, err
	}
	defer session.Close()

	// One warmup run absorbs lazy kernel initialization.
	if _, _, err := session.Run(features[0]); err != nil {
		return nil, benchmark.LatencyStats{}, err
	}

	var startLogits []float32
	samples := make([]time.Duration, 0, repeat)
	for i := 0; i < repeat; i++ {
		if err := ctx.Err(); err != nil {
			return nil, benchmark.LatencyStats{}, err
		}
		begin := time.Now()
		start, _, err := session.Run(features[0])
		if err != nil {
			return nil, benchmark.LatencyStats{}, err
		}
		samples = append(samples, time.Since(begin))
		startLogits = start
	}

	return startLogits, benchmark.ComputeLatencyStats(samples), nil
}

// printSimulatedDrift reports what fp16 rounding and a single int8 round trip
// would cost on the baseline logits, independent of any converted model file.
func printSimulatedDrift(baseline []float32) {
	fp16, err := quant.Compare(baseline, quant.SimulateFloat16(baseline))
	if err != nil {
		return
	}

	min, max := baseline[0], baseline[0]
	for _, value := range baseline {
		if value < min {
			min = value
		}
		if value > max {
			max = value
		}
	}
	int8Sim, err := quant.RoundTripError(baseline, quant.ComputeParams(min, max, true))
	if err != nil {
		return
	}

	fmt.Printf("\nsimulated on fp32 logits: fp16 max abs %.5f, int8 round trip max abs %.5f\n",
		fp16.MaxAbs, int8Sim.MaxAbs)
}

// compareAccuracy runs a small EM/F1 sample per variant.
func compareAccuracy(
	ctx context.Context,
	variants []compareVariant,
	name model.Name,
	vocabPath, datasetPath string,
	sample int,
) error {
	ds, err := dataset.Load(datasetPath)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nVARIANT\tEXAMPLES\tEXACT MATCH\tF1")

	for _, variant := range variants {
		reader, err := readers.NewReader(qaReaderArgs(
			name, variant.path, vocabPath,
			readers.DefaultConfig(), providers.DefaultOptimizationConfig()))
		if err != nil {
			return fmt.Errorf("%s: %w", variant.name, err)
		}

		evaluator := &eval.Evaluator{Reader: reader, Dataset: ds, Limit: sample}
		report, _, err := evaluator.Run(ctx)
		closeErr := reader.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", variant.name, err)
		}
		if closeErr != nil {
			log.Warn().Err(closeErr).Str("variant", string(variant.name)).Msg("failed to close reader")
		}

		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\n",
			variant.name, report.Examples, report.ExactMatch, report.F1)
	}
	w.Flush()
	return nil
}
