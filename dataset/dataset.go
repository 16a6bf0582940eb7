// Package dataset - SQuAD-style corpus loading, sampling, and statistics.
package dataset

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Version identifies the SQuAD schema a file was parsed as.
type Version string

const (
	// VersionV1 is SQuAD v1.1: every question has at least one answer.
	VersionV1 Version = "v1.1"
	// VersionV2 is SQuAD v2.0: questions may be unanswerable.
	VersionV2 Version = "v2.0"
)

// Answer is a gold answer span within a paragraph context.
type Answer struct {
	Text        string `json:"text"`
	AnswerStart int    `json:"answer_start"`
}

// Example is one flattened (question, context) pair with its gold answers.
type Example struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Question     string   `json:"question"`
	Context      string   `json:"context"`
	Answers      []Answer `json:"answers"`
	IsImpossible bool     `json:"is_impossible"`
}

// Dataset is a flattened SQuAD corpus in file order.
type Dataset struct {
	Version  Version   `json:"version"`
	Examples []Example `json:"examples"`
}

// Raw JSON mirror of the SQuAD layout: data[].paragraphs[].qas[].
type squadFile struct {
	Version string `json:"version"`
	Data    []struct {
		Title      string `json:"title"`
		Paragraphs []struct {
			Context string    `json:"context"`
			QAs     []qaEntry `json:"qas"`
		} `json:"paragraphs"`
	} `json:"data"`
}

type qaEntry struct {
	ID           string   `json:"id"`
	Question     string   `json:"question"`
	Answers      []Answer `json:"answers"`
	IsImpossible *bool    `json:"is_impossible"`
}

// Load parses a SQuAD v1.1 or v2.0 JSON file and flattens it to examples.
//
// The schema version is detected from the file's "version" field; files
// without one are treated as v1.1.
//
// Arguments:
//   - path: Path to the SQuAD JSON file.
//
// Returns:
//   - *Dataset: The flattened dataset, preserving file order.
//   - error: An error if the file cannot be read or violates the schema.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading dataset file %s", path)
	}

	var raw squadFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "parsing dataset file %s", path)
	}

	if len(raw.Data) == 0 {
		return nil, fmt.Errorf("dataset %s contains no articles", path)
	}

	version := detectVersion(raw.Version)

	ds := &Dataset{Version: version}
	seen := make(map[string]struct{})

	for _, article := range raw.Data {
		for _, paragraph := range article.Paragraphs {
			for _, qa := range paragraph.QAs {
				example, err := flattenEntry(article.Title, paragraph.Context, qa, version)
				if err != nil {
					return nil, err
				}
				if _, dup := seen[example.ID]; dup {
					return nil, fmt.Errorf("duplicate question id %q in %s", example.ID, path)
				}
				seen[example.ID] = struct{}{}
				ds.Examples = append(ds.Examples, example)
			}
		}
	}

	return ds, nil
}

// flattenEntry converts one qas[] entry, enforcing the per-version answer rules.
func flattenEntry(title, context string, qa qaEntry, version Version) (Example, error) {
	impossible := qa.IsImpossible != nil && *qa.IsImpossible

	if version == VersionV1 && impossible {
		return Example{}, fmt.Errorf("question %q marked is_impossible in a v1.1 dataset", qa.ID)
	}

	if len(qa.Answers) == 0 && !impossible {
		if version == VersionV2 {
			// v2.0 entries with no answers are unanswerable even when the
			// flag was omitted.
			impossible = true
		} else {
			return Example{}, fmt.Errorf("question %q has no answers", qa.ID)
		}
	}

	return Example{
		ID:           qa.ID,
		Title:        title,
		Question:     qa.Question,
		Context:      context,
		Answers:      qa.Answers,
		IsImpossible: impossible,
	}, nil
}

func detectVersion(raw string) Version {
	if strings.Contains(raw, "2.0") || strings.Contains(raw, "v2") {
		return VersionV2
	}
	return VersionV1
}

// LoadDirectory loads and merges every *.json shard in a directory.
//
// Shards are loaded in filename order so the merged corpus is deterministic.
// Question ids must be unique across all shards.
//
// Arguments:
//   - dir: Directory containing SQuAD JSON shards.
//
// Returns:
//   - *Dataset: The merged dataset.
//   - error: An error if no shards are found or any shard fails to load.
func LoadDirectory(dir string) (*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading dataset directory %s", dir)
	}

	var shards []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		shards = append(shards, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(shards)

	if len(shards) == 0 {
		return nil, fmt.Errorf("no JSON shards found in %s", dir)
	}

	merged := &Dataset{}
	seen := make(map[string]struct{})

	for _, shard := range shards {
		ds, err := Load(shard)
		if err != nil {
			return nil, err
		}
		if merged.Version == "" {
			merged.Version = ds.Version
		}
		for _, example := range ds.Examples {
			if _, dup := seen[example.ID]; dup {
				return nil, fmt.Errorf("duplicate question id %q across shards", example.ID)
			}
			seen[example.ID] = struct{}{}
			merged.Examples = append(merged.Examples, example)
		}
	}

	return merged, nil
}

// Sample returns a deterministic subsample of n examples.
//
// The selection is seeded so repeated runs score the same examples, and the
// sampled examples keep their original corpus order.
//
// Arguments:
//   - n: Number of examples to keep. Values >= len(examples) return a copy.
//   - seed: Seed for the selection.
//
// Returns:
//   - *Dataset: A new dataset holding the sampled examples.
func (d *Dataset) Sample(n int, seed int64) *Dataset {
	if n >= len(d.Examples) {
		out := &Dataset{Version: d.Version, Examples: make([]Example, len(d.Examples))}
		copy(out.Examples, d.Examples)
		return out
	}

	rng := rand.New(rand.NewSource(seed))
	picked := rng.Perm(len(d.Examples))[:n]
	sort.Ints(picked)

	out := &Dataset{Version: d.Version, Examples: make([]Example, 0, n)}
	for _, idx := range picked {
		out.Examples = append(out.Examples, d.Examples[idx])
	}
	return out
}

// Stats summarizes corpus composition.
type Stats struct {
	Examples           int     `json:"examples"`
	Impossible         int     `json:"impossible"`
	MeanContextChars   float64 `json:"mean_context_chars"`
	MeanQuestionChars  float64 `json:"mean_question_chars"`
	DistinctParagraphs int     `json:"distinct_paragraphs"`
}

// Stats computes summary statistics over the dataset.
func (d *Dataset) Stats() Stats {
	stats := Stats{Examples: len(d.Examples)}
	if stats.Examples == 0 {
		return stats
	}

	var contextChars, questionChars int
	paragraphs := make(map[string]struct{})

	for _, example := range d.Examples {
		if example.IsImpossible {
			stats.Impossible++
		}
		contextChars += len(example.Context)
		questionChars += len(example.Question)
		paragraphs[example.Context] = struct{}{}
	}

	stats.MeanContextChars = float64(contextChars) / float64(stats.Examples)
	stats.MeanQuestionChars = float64(questionChars) / float64(stats.Examples)
	stats.DistinctParagraphs = len(paragraphs)
	return stats
}
