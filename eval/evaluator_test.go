package eval

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/inferlab/go-qa/dataset"
	"github.com/inferlab/go-qa/models/postprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedAnswerer replies from a fixed question-to-answer table.
type scriptedAnswerer struct {
	answers map[string]string
	failOn  string
	calls   atomic.Int64
}

func (s *scriptedAnswerer) Answer(
	ctx context.Context, question, passage string,
) ([]postprocess.Prediction, error) {
	s.calls.Add(1)
	if s.failOn != "" && strings.Contains(question, s.failOn) {
		return nil, errors.New("inference failed")
	}
	answer, ok := s.answers[question]
	if !ok {
		return nil, nil
	}
	return []postprocess.Prediction{{Text: answer, Score: 0.9}}, nil
}

func testDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Version: dataset.VersionV2,
		Examples: []dataset.Example{
			{
				ID:       "q1",
				Question: "Who gave their name to Normandy?",
				Context:  "The Normans gave their name to Normandy.",
				Answers:  []dataset.Answer{{Text: "The Normans"}, {Text: "Normans"}},
			},
			{
				ID:       "q2",
				Question: "Who ruled France?",
				Context:  "The Normans gave their name to Normandy.",
				Answers:  []dataset.Answer{{Text: "the king"}},
			},
			{
				ID:           "q3",
				Question:     "What is unanswerable?",
				Context:      "The Normans gave their name to Normandy.",
				IsImpossible: true,
			},
		},
	}
}

func TestEvaluatorRun(t *testing.T) {
	answerer := &scriptedAnswerer{answers: map[string]string{
		"Who gave their name to Normandy?": "the Normans",
		"Who ruled France?":                "the duke",
		// q3 gets no prediction, which is correct for a no-answer example.
	}}

	evaluator := &Evaluator{Reader: answerer, Dataset: testDataset(), Workers: 2}
	report, predictions, err := evaluator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Examples)
	require.Len(t, predictions, 3)
	assert.Equal(t, "q1", predictions[0].ID)
	assert.Equal(t, "the Normans", predictions[0].Answer)

	// q1 exact, q2 wrong, q3 correctly empty: EM = 2/3.
	assert.InDelta(t, 200.0/3.0, report.ExactMatch, 1e-6)
	assert.Equal(t, 2, report.HasAnswer.Examples)
	assert.Equal(t, 1, report.NoAnswer.Examples)
	assert.InDelta(t, 100.0, report.NoAnswer.ExactMatch, 1e-9)
	assert.InDelta(t, 50.0, report.HasAnswer.ExactMatch, 1e-9)

	assert.Greater(t, report.PerExampleMs, 0.0)
	assert.Equal(t, int64(3), answerer.calls.Load())
}

func TestEvaluatorFailedPredictionScoresZero(t *testing.T) {
	answerer := &scriptedAnswerer{
		answers: map[string]string{"Who gave their name to Normandy?": "the Normans"},
		failOn:  "France",
	}

	evaluator := &Evaluator{Reader: answerer, Dataset: testDataset()}
	report, predictions, err := evaluator.Run(context.Background())
	require.NoError(t, err)

	// Every example stays in the report, the failed one with an empty answer.
	assert.Equal(t, 3, report.Examples)
	assert.Equal(t, "", predictions[1].Answer)
}

func TestEvaluatorLimit(t *testing.T) {
	answerer := &scriptedAnswerer{answers: map[string]string{}}
	evaluator := &Evaluator{Reader: answerer, Dataset: testDataset(), Limit: 1}

	report, predictions, err := evaluator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Examples)
	assert.Len(t, predictions, 1)
}

func TestEvaluatorEmptyDataset(t *testing.T) {
	evaluator := &Evaluator{Reader: &scriptedAnswerer{}, Dataset: &dataset.Dataset{}}
	_, _, err := evaluator.Run(context.Background())
	assert.Error(t, err)
}

func TestEvaluatorCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	evaluator := &Evaluator{Reader: &scriptedAnswerer{}, Dataset: testDataset()}
	_, _, err := evaluator.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	report := &Report{Examples: 2, ExactMatch: 50, F1: 75}
	predictions := []Prediction{
		{ID: "q1", Answer: "the Normans"},
		{ID: "q2", Answer: ""},
	}

	require.NoError(t, WriteReport(dir, report, predictions))

	predData, err := os.ReadFile(filepath.Join(dir, "predictions.json"))
	require.NoError(t, err)
	var byID map[string]string
	require.NoError(t, json.Unmarshal(predData, &byID))
	assert.Equal(t, "the Normans", byID["q1"])
	assert.Contains(t, byID, "q2")

	reportData, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)
	var loaded Report
	require.NoError(t, json.Unmarshal(reportData, &loaded))
	assert.Equal(t, report.Examples, loaded.Examples)
	assert.InDelta(t, report.F1, loaded.F1, 1e-9)
}
