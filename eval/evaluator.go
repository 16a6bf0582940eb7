// Package eval - accuracy evaluation of a reader over a SQuAD dataset.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/inferlab/go-qa/dataset"
	"github.com/inferlab/go-qa/eval/metrics"
	"github.com/inferlab/go-qa/models/postprocess"
	"golang.org/x/sync/errgroup"
)

// Answerer is the reader-shaped dependency the evaluator drives.
type Answerer interface {
	Answer(ctx context.Context, question, passage string) ([]postprocess.Prediction, error)
}

// Prediction is one example's final answer.
type Prediction struct {
	ID     string  `json:"id"`
	Answer string  `json:"answer"`
	Score  float32 `json:"score"`
}

// Report aggregates accuracy over one evaluation run.
type Report struct {
	Examples   int     `json:"examples"`
	ExactMatch float64 `json:"exact_match"`
	F1         float64 `json:"f1"`

	// HasAnswer and NoAnswer break the scores down by answerability.
	HasAnswer SubsetScores `json:"has_answer"`
	NoAnswer  SubsetScores `json:"no_answer"`

	Elapsed      time.Duration `json:"elapsed"`
	PerExampleMs float64       `json:"per_example_ms"`
}

// SubsetScores holds EM/F1 over one answerability subset.
type SubsetScores struct {
	Examples   int     `json:"examples"`
	ExactMatch float64 `json:"exact_match"`
	F1         float64 `json:"f1"`
}

// Evaluator maps a reader over a dataset's examples with a worker pool.
type Evaluator struct {
	// Reader answers the questions.
	Reader Answerer

	// Dataset provides the examples and gold answers.
	Dataset *dataset.Dataset

	// Workers bounds concurrent questions. Values below 1 become 1.
	Workers int

	// Limit caps the number of examples evaluated, zero means all.
	Limit int
}

// Run evaluates the reader and aggregates the scores.
//
// Every example is scored exactly once: a failed or missing prediction
// scores 0 on both metrics rather than being dropped, so aggregate numbers
// stay comparable across runs.
//
// Arguments:
//   - ctx: Cancels outstanding workers.
//
// Returns:
//   - *Report: The aggregate scores.
//   - []Prediction: Per-example final answers in dataset order.
//   - error: An error on cancellation or if no examples are available.
func (e *Evaluator) Run(ctx context.Context) (*Report, []Prediction, error) {
	if e.Dataset == nil || len(e.Dataset.Examples) == 0 {
		return nil, nil, fmt.Errorf("no examples to evaluate")
	}

	examples := e.Dataset.Examples
	if e.Limit > 0 && e.Limit < len(examples) {
		examples = examples[:e.Limit]
	}

	workers := e.Workers
	if workers < 1 {
		workers = 1
	}

	predictions := make([]Prediction, len(examples))
	var mu sync.Mutex
	failures := 0

	start := time.Now()
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for i := range examples {
		example := examples[i]
		idx := i
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			prediction := Prediction{ID: example.ID}
			answers, err := e.Reader.Answer(groupCtx, example.Question, example.Context)
			if err != nil {
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				// Inference failures score 0; the run continues.
				mu.Lock()
				failures++
				predictions[idx] = prediction
				mu.Unlock()
				return nil
			}
			if len(answers) > 0 {
				prediction.Answer = answers[0].Text
				prediction.Score = answers[0].Score
			}

			mu.Lock()
			predictions[idx] = prediction
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, nil, err
	}
	elapsed := time.Since(start)

	report := score(examples, predictions)
	report.Elapsed = elapsed
	report.PerExampleMs = float64(elapsed.Nanoseconds()) / 1e6 / float64(len(examples))
	return report, predictions, nil
}

// score aggregates EM/F1 overall and per answerability subset.
func score(examples []dataset.Example, predictions []Prediction) *Report {
	var emScores, f1Scores []float64
	var hasEM, hasF1, noEM, noF1 []float64

	for i, example := range examples {
		golds := make([]string, 0, len(example.Answers))
		for _, answer := range example.Answers {
			golds = append(golds, answer.Text)
		}

		em := metrics.ExactMatch(predictions[i].Answer, golds)
		f1 := metrics.F1(predictions[i].Answer, golds)
		emScores = append(emScores, em)
		f1Scores = append(f1Scores, f1)

		if example.IsImpossible {
			noEM = append(noEM, em)
			noF1 = append(noF1, f1)
		} else {
			hasEM = append(hasEM, em)
			hasF1 = append(hasF1, f1)
		}
	}

	return &Report{
		Examples:   len(examples),
		ExactMatch: metrics.Aggregate(emScores),
		F1:         metrics.Aggregate(f1Scores),
		HasAnswer: SubsetScores{
			Examples:   len(hasEM),
			ExactMatch: metrics.Aggregate(hasEM),
			F1:         metrics.Aggregate(hasF1),
		},
		NoAnswer: SubsetScores{
			Examples:   len(noEM),
			ExactMatch: metrics.Aggregate(noEM),
			F1:         metrics.Aggregate(noF1),
		},
	}
}

// WriteReport persists the report and per-example predictions under dir.
//
// Two files are written: predictions.json (id to answer map) and
// report.json (the aggregate scores).
func WriteReport(dir string, report *Report, predictions []Prediction) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	byID := make(map[string]string, len(predictions))
	for _, p := range predictions {
		byID[p.ID] = p.Answer
	}
	predData, err := json.MarshalIndent(byID, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal predictions: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "predictions.json"), predData, 0o644); err != nil {
		return fmt.Errorf("failed to write predictions: %w", err)
	}

	reportData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.json"), reportData, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
