package evaluation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coachrag/internal/domain"
)

const datasetJSON = `{
  "questions": [
    {
      "question": "how should a coach price a premium offer",
      "ground_truth": "anchor the price to the client outcome",
      "relevant_chunks": [
        {"text": "anchor premium pricing to the client outcome not your hours", "metadata": {"transcript_id": "t1"}},
        {"text": "raise prices when demand outpaces your calendar capacity", "metadata": {"transcript_id": "t1"}}
      ]
    },
    {
      "question": "how often should churn be reviewed",
      "ground_truth": "review churn weekly",
      "relevant_chunks": [
        {"text": "review churn numbers weekly and call lapsed clients", "metadata": {"transcript_id": "t2"}}
      ]
    }
  ]
}`

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eval.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDataset(t *testing.T) {
	ds, err := LoadDataset(writeDataset(t, datasetJSON))
	require.NoError(t, err)
	require.Len(t, ds.Questions, 2)
	assert.Equal(t, "how should a coach price a premium offer", ds.Questions[0].Question)
	require.Len(t, ds.Questions[0].RelevantChunks, 2)
	assert.Equal(t, "t1", ds.Questions[0].RelevantChunks[0].Metadata.TranscriptID)
}

func TestLoadDatasetRejectsEmpty(t *testing.T) {
	_, err := LoadDataset(writeDataset(t, `{"questions": []}`))
	assert.Error(t, err)

	_, err = LoadDataset(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

// cannedRetriever returns preset chunk contents per query.
type cannedRetriever struct {
	answers map[string][]string
}

func (r *cannedRetriever) Query(query string, topK int) ([]domain.SearchResult, error) {
	var out []domain.SearchResult
	for i, text := range r.answers[query] {
		if i >= topK {
			break
		}
		out = append(out, domain.SearchResult{Chunk: domain.Chunk{ID: text[:4], Content: text}})
	}
	return out, nil
}

func TestEvaluateRetrieval(t *testing.T) {
	ds, err := LoadDataset(writeDataset(t, datasetJSON))
	require.NoError(t, err)

	retriever := &cannedRetriever{answers: map[string][]string{
		// One hit for the first relevant chunk, one miss.
		"how should a coach price a premium offer": {
			"anchor premium pricing to the client outcome not your hours",
			"morning routines and cold showers build discipline habits",
		},
		// Perfect retrieval.
		"how often should churn be reviewed": {
			"review churn numbers weekly and call lapsed clients",
		},
	}}

	report, err := EvaluateRetrieval(retriever, ds, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, report.K)
	assert.Equal(t, 2, report.Questions)
	// Q1: 1 of 2 retrieved relevant, 1 of 2 relevants found.
	// Q2: 1 of 1 retrieved relevant, 1 of 1 relevants found.
	assert.InDelta(t, 0.75, report.Precision, 1e-9)
	assert.InDelta(t, 0.75, report.Recall, 1e-9)
}

func TestChunksOverlapThreshold(t *testing.T) {
	assert.True(t, chunksOverlap(
		"anchor premium pricing to the client outcome",
		"anchor premium pricing to the client outcome not your hours",
	))
	assert.False(t, chunksOverlap(
		"anchor premium pricing to the client outcome",
		"morning routines and cold showers build discipline",
	))
	assert.False(t, chunksOverlap("", "anything"))
}

func TestLexicalJudge(t *testing.T) {
	scores, err := LexicalJudge{}.Score(
		"how should a coach price a premium offer",
		"anchor the price to the outcome",
		[]string{"anchor premium pricing to the client outcome not your hours"},
	)
	require.NoError(t, err)
	assert.Contains(t, scores, "contextual_relevancy")
	assert.Contains(t, scores, "faithfulness")
	for name, v := range scores {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}
	perfect, err := LexicalJudge{}.Score("premium pricing", "premium pricing", []string{"premium pricing explained"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, perfect["faithfulness"], 1e-9)
}

func TestEvaluateAnswers(t *testing.T) {
	ds, err := LoadDataset(writeDataset(t, datasetJSON))
	require.NoError(t, err)

	retriever := &cannedRetriever{answers: map[string][]string{
		"how should a coach price a premium offer": {
			"anchor premium pricing to the client outcome not your hours",
		},
		"how often should churn be reviewed": {
			"review churn numbers weekly and call lapsed clients",
		},
	}}

	quality, err := EvaluateAnswers(retriever, LexicalJudge{}, ds, 2)
	require.NoError(t, err)
	require.Contains(t, quality, "contextual_relevancy")
	require.Contains(t, quality, "faithfulness")
	for metric, v := range quality {
		assert.GreaterOrEqual(t, v, 0.0, metric)
		assert.LessOrEqual(t, v, 1.0, metric)
	}
	// Q2's ground truth is fully grounded in its retrieved context, so
	// averaged faithfulness stays well above zero.
	assert.Greater(t, quality["faithfulness"], 0.4)
}
