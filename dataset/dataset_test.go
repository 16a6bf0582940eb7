package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const v1File = `{
  "version": "1.1",
  "data": [
    {
      "title": "Normans",
      "paragraphs": [
        {
          "context": "The Normans were the people who gave their name to Normandy.",
          "qas": [
            {
              "id": "q1",
              "question": "Who gave their name to Normandy?",
              "answers": [{"text": "The Normans", "answer_start": 0}]
            },
            {
              "id": "q2",
              "question": "What did they name?",
              "answers": [
                {"text": "Normandy", "answer_start": 52},
                {"text": "Normandy", "answer_start": 52}
              ]
            }
          ]
        }
      ]
    }
  ]
}`

const v2File = `{
  "version": "v2.0",
  "data": [
    {
      "title": "Normans",
      "paragraphs": [
        {
          "context": "The Normans were the people who gave their name to Normandy.",
          "qas": [
            {
              "id": "q3",
              "question": "Who gave their name to Normandy?",
              "answers": [{"text": "The Normans", "answer_start": 0}]
            },
            {
              "id": "q4",
              "question": "What year did they invade Mars?",
              "answers": [],
              "is_impossible": true
            },
            {
              "id": "q5",
              "question": "What color is the number seven?",
              "answers": []
            }
          ]
        }
      ]
    }
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadV1(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dev-v1.1.json", v1File)

	ds, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, VersionV1, ds.Version)
	require.Len(t, ds.Examples, 2)
	assert.Equal(t, "q1", ds.Examples[0].ID)
	assert.Equal(t, "The Normans", ds.Examples[0].Answers[0].Text)
	assert.False(t, ds.Examples[0].IsImpossible)
	assert.Equal(t, "Normans", ds.Examples[1].Title)
}

func TestLoadV2Impossible(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dev-v2.0.json", v2File)

	ds, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, VersionV2, ds.Version)
	require.Len(t, ds.Examples, 3)
	assert.False(t, ds.Examples[0].IsImpossible)
	assert.True(t, ds.Examples[1].IsImpossible)
	// Answerless entries without the flag are unanswerable under v2.0.
	assert.True(t, ds.Examples[2].IsImpossible)
}

func TestLoadRejectsImpossibleInV1(t *testing.T) {
	content := `{
	  "version": "1.1",
	  "data": [{"title": "t", "paragraphs": [{"context": "c", "qas": [
	    {"id": "q1", "question": "q", "answers": [], "is_impossible": true}
	  ]}]}]
	}`
	path := writeFile(t, t.TempDir(), "bad.json", content)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is_impossible")
}

func TestLoadRejectsAnswerlessV1(t *testing.T) {
	content := `{
	  "version": "1.1",
	  "data": [{"title": "t", "paragraphs": [{"context": "c", "qas": [
	    {"id": "q1", "question": "q", "answers": []}
	  ]}]}]
	}`
	path := writeFile(t, t.TempDir(), "bad.json", content)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no answers")
}

func TestLoadRejectsEmptyData(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.json", `{"version": "1.1", "data": []}`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	content := `{
	  "version": "1.1",
	  "data": [{"title": "t", "paragraphs": [{"context": "c", "qas": [
	    {"id": "q1", "question": "q", "answers": [{"text": "c", "answer_start": 0}]},
	    {"id": "q1", "question": "q again", "answers": [{"text": "c", "answer_start": 0}]}
	  ]}]}]
	}`
	path := writeFile(t, t.TempDir(), "dup.json", content)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoadDirectoryMergesShardsInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "02-second.json", v2File)
	writeFile(t, dir, "01-first.json", v1File)
	writeFile(t, dir, "notes.txt", "not a shard")

	ds, err := LoadDirectory(dir)
	require.NoError(t, err)

	require.Len(t, ds.Examples, 5)
	assert.Equal(t, "q1", ds.Examples[0].ID)
	assert.Equal(t, "q3", ds.Examples[2].ID)
	// Version comes from the first shard.
	assert.Equal(t, VersionV1, ds.Version)
}

func TestLoadDirectoryEmpty(t *testing.T) {
	_, err := LoadDirectory(t.TempDir())
	require.Error(t, err)
}

func TestSampleDeterministic(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dev.json", v2File)
	ds, err := Load(path)
	require.NoError(t, err)

	a := ds.Sample(2, 42)
	b := ds.Sample(2, 42)

	require.Len(t, a.Examples, 2)
	assert.Equal(t, a.Examples, b.Examples)

	// Sampled examples keep corpus order.
	for i := 1; i < len(a.Examples); i++ {
		assert.Less(t, indexOf(ds, a.Examples[i-1].ID), indexOf(ds, a.Examples[i].ID))
	}

	// Oversampling returns everything.
	all := ds.Sample(100, 7)
	assert.Len(t, all.Examples, 3)
}

func indexOf(ds *Dataset, id string) int {
	for i, example := range ds.Examples {
		if example.ID == id {
			return i
		}
	}
	return -1
}

func TestStats(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dev.json", v2File)
	ds, err := Load(path)
	require.NoError(t, err)

	stats := ds.Stats()
	assert.Equal(t, 3, stats.Examples)
	assert.Equal(t, 2, stats.Impossible)
	assert.Equal(t, 1, stats.DistinctParagraphs)
	assert.InDelta(t, 61.0, stats.MeanContextChars, 0.01)
}
