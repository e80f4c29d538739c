package chunking

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// topicEmbedder embeds every text onto one of two fixed axes depending
// on a keyword, so adjacent-group distance is exactly 0 or 1.
type topicEmbedder struct{ keyword string }

func (e *topicEmbedder) Name() string                  { return "topic" }
func (e *topicEmbedder) Prepare(corpus []string) error { return nil }
func (e *topicEmbedder) Dimension() int                { return 2 }
func (e *topicEmbedder) Embed(text string) ([]float64, error) {
	if strings.Contains(strings.ToLower(text), e.keyword) {
		return []float64{1, 0}, nil
	}
	return []float64{0, 1}, nil
}

func (e *topicEmbedder) EmbedBatch(texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

type failingEmbedder struct{}

func (e *failingEmbedder) Name() string                  { return "failing" }
func (e *failingEmbedder) Dimension() int                { return 0 }
func (e *failingEmbedder) Prepare(corpus []string) error { return nil }
func (e *failingEmbedder) Embed(text string) ([]float64, error) {
	return nil, errors.New("no backend")
}

func (e *failingEmbedder) EmbedBatch(texts []string) ([][]float64, error) {
	return nil, errors.New("no backend")
}

func sentencesAbout(topic string, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("this sentence number ")
		b.WriteString(strings.Repeat("i", i+1))
		b.WriteString(" is about ")
		b.WriteString(topic)
		b.WriteString(". ")
	}
	return b.String()
}

func TestRefineCutsAtTopicShift(t *testing.T) {
	r := NewSemanticRefiner(&topicEmbedder{keyword: "pricing"}, 50)
	stream := sentencesAbout("pricing", 6) + sentencesAbout("fitness", 6)

	res := r.Refine([]string{stream})
	require.False(t, res.Degraded)
	require.Len(t, res.Pieces, 2)
	assert.Contains(t, res.Pieces[0], "pricing")
	assert.NotContains(t, res.Pieces[0], "fitness")
	assert.Contains(t, res.Pieces[1], "fitness")
	assert.NotContains(t, res.Pieces[1], "pricing")
	for _, p := range res.Pieces {
		assert.True(t, strings.Contains(stream, p), "refined pieces must stay substrings of the stream")
	}
}

func TestRefineDegradesOnEmbedderFailure(t *testing.T) {
	input := []string{sentencesAbout("pricing", 12)}

	r := NewSemanticRefiner(&failingEmbedder{}, 90)
	res := r.Refine(input)
	assert.True(t, res.Degraded)
	assert.NotEmpty(t, res.Reason)
	assert.Equal(t, input, res.Pieces, "degraded refinement must return the input unchanged")
}

func TestRefineTooFewSentencesIsNoop(t *testing.T) {
	r := NewSemanticRefiner(&failingEmbedder{}, 90)
	input := []string{"one short sentence. and another one."}
	res := r.Refine(input)
	assert.False(t, res.Degraded, "nothing to refine is not a failure")
	assert.Equal(t, input, res.Pieces)
}

func TestRefineEmptyInput(t *testing.T) {
	r := NewSemanticRefiner(&topicEmbedder{keyword: "x"}, 90)
	res := r.Refine(nil)
	assert.False(t, res.Degraded)
	assert.Empty(t, res.Pieces)
}

func TestJoinDedupCollapsesOverlap(t *testing.T) {
	assert.Equal(t, "one two three four five",
		joinDedup([]string{"one two three ", "two three four five"}))
	assert.Equal(t, "abc", joinDedup([]string{"abc"}))
	assert.Equal(t, "no shared text here",
		joinDedup([]string{"no shared ", "text here"}))
}
