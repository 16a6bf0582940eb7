package main

import (
	"context"
	"fmt"
	"time"

	"github.com/inferlab/go-qa/benchmark"
	"github.com/inferlab/go-qa/benchmark/engines"
	"github.com/inferlab/go-qa/models/model"
	"github.com/inferlab/go-qa/profiler"
	"github.com/spf13/cobra"
)

func newBenchmarkCmd() *cobra.Command {
	var configPath string
	var scenariosPath string
	var set string
	var datasetPath string
	var vocabPath string
	var modelName string
	var fp32Path string
	var optimizedPath string
	var int8Path string
	var outputDir string
	var sampleSize int
	var timeoutSeconds int
	var sequenceLength int
	var engineName string
	var profile bool

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Run latency benchmark scenarios over model variants",
		Long: "Run latency benchmark scenarios over model variants.\n\n" +
			"Scenarios come from a predefined set (--set), a scenario file\n" +
			"(--scenarios), or both. Results are written as timestamped JSON and\n" +
			"CSV files in the output directory.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config := benchmark.DefaultConfig()
			if configPath != "" {
				loaded, err := benchmark.LoadConfig(configPath)
				if err != nil {
					return err
				}
				config = loaded
			}

			// Flags override file values.
			if datasetPath != "" {
				config.DatasetPath = datasetPath
			}
			if vocabPath != "" {
				config.VocabPath = vocabPath
			}
			if modelName != "" {
				config.ModelName = model.Name(modelName)
			}
			if outputDir != "" {
				config.OutputDir = outputDir
			}
			if sampleSize > 0 {
				config.SampleSize = sampleSize
			}
			if timeoutSeconds > 0 {
				config.TimeoutSeconds = timeoutSeconds
			}
			if fp32Path != "" {
				config.ModelPaths[benchmark.VariantFP32] = fp32Path
			}
			if optimizedPath != "" {
				config.ModelPaths[benchmark.VariantOptimized] = optimizedPath
			}
			if int8Path != "" {
				config.ModelPaths[benchmark.VariantINT8] = int8Path
			}

			if config.DatasetPath == "" {
				return fmt.Errorf("a dataset is required, set --dataset or dataset_path in the config")
			}

			engine, err := newEngine(engineName)
			if err != nil {
				return err
			}

			suite := benchmark.NewSuite(engine, config.OutputDir)
			if err := suite.LoadCorpus(config.DatasetPath, config.SampleSize); err != nil {
				return err
			}

			if scenariosPath != "" {
				scenarioSet, err := benchmark.LoadScenarioSet(scenariosPath)
				if err != nil {
					return err
				}
				suite.AddScenarioSet(scenarioSet)
			}
			if set != "" {
				scenarioSet, err := predefinedSet(set, config, sequenceLength)
				if err != nil {
					return err
				}
				suite.AddScenarioSet(scenarioSet)
			}
			if scenariosPath == "" && set == "" {
				return fmt.Errorf("nothing to run, pass --set or --scenarios")
			}

			ctx := cmd.Context()
			if config.TimeoutSeconds > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(config.TimeoutSeconds)*time.Second)
				defer cancel()
			}

			if profile {
				p := profiler.NewInferenceProfiler(profiler.Options{})
				p.Start()
				defer p.Stop()
			}

			return suite.RunAllScenarios(ctx)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Benchmark configuration file (JSON or YAML)")
	cmd.Flags().StringVar(&scenariosPath, "scenarios", "", "Scenario set file (JSON or YAML)")
	cmd.Flags().StringVar(&set, "set", "",
		"Predefined scenario set (quick, comprehensive, opt-levels, precision)")
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "SQuAD dataset file providing benchmark questions")
	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Path to vocab.txt or tokenizer.json")
	cmd.Flags().StringVar(&modelName, "model-name", "", "Model family (bert, distilbert, electra)")
	cmd.Flags().StringVar(&fp32Path, "fp32", "", "Path to the fp32 baseline model")
	cmd.Flags().StringVar(&optimizedPath, "optimized", "", "Path to the fusion-optimized model")
	cmd.Flags().StringVar(&int8Path, "int8", "", "Path to the quantized model")
	cmd.Flags().StringVar(&outputDir, "output", "", "Results directory")
	cmd.Flags().IntVar(&sampleSize, "sample-size", 0, "Number of dataset questions to cycle through")
	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 0, "Overall run timeout in seconds")
	cmd.Flags().IntVar(&sequenceLength, "seq-length", 384, "Sequence length for the precision set")
	cmd.Flags().StringVar(&engineName, "engine", "onnxruntime", "Inference engine (onnxruntime, gorgonnx)")
	cmd.Flags().BoolVar(&profile, "profile", false, "Sample runtime state and log periodic status reports")

	return cmd
}

func newEngine(name string) (engines.InferenceEngine, error) {
	switch name {
	case "onnxruntime", "ort":
		return engines.NewORTEngine(), nil
	case "gorgonnx":
		return engines.NewGorgonnxEngine(), nil
	default:
		return nil, fmt.Errorf("unknown engine: %q", name)
	}
}

func predefinedSet(name string, config *benchmark.Config, sequenceLength int) (*benchmark.ScenarioSet, error) {
	if config.ModelName == "" {
		return nil, fmt.Errorf("a model family is required, set --model-name or model_name in the config")
	}
	if config.VocabPath == "" {
		return nil, fmt.Errorf("a vocabulary is required, set --vocab or vocab_path in the config")
	}

	var predefined benchmark.PredefinedScenarios
	switch name {
	case "quick":
		return predefined.GetQuickScenarios(config.ModelName, config.ModelPaths, config.VocabPath), nil
	case "comprehensive":
		return predefined.GetComprehensiveScenarios(config.ModelName, config.ModelPaths, config.VocabPath), nil
	case "opt-levels":
		fp32, ok := config.ModelPaths[benchmark.VariantFP32]
		if !ok {
			return nil, fmt.Errorf("the opt-levels set needs the fp32 model, set --fp32")
		}
		return predefined.GetOptimizationLevelScenarios(config.ModelName, fp32, config.VocabPath), nil
	case "precision":
		return predefined.GetPrecisionComparisonScenarios(
			config.ModelName, config.ModelPaths, config.VocabPath, sequenceLength), nil
	default:
		return nil, fmt.Errorf("unknown scenario set: %q", name)
	}
}
