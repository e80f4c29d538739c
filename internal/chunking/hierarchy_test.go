package chunking

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coachrag/internal/tokens"
)

// numberedSentence builds a sentence of n unique words tagged with the
// given letter, ending in ". ".
func numberedSentence(tag string, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("%s%d", tag, i)
	}
	return strings.Join(words, " ") + ". "
}

func TestBuildAssignsEveryChildExactlyOnce(t *testing.T) {
	counter := tokens.NewWordCounter()
	h := NewHierarchyBuilder(counter, 50)

	var sentences []string
	for i := 0; i < 10; i++ {
		sentences = append(sentences, numberedSentence(fmt.Sprintf("s%dw", i), 10))
	}
	normalized := strings.TrimSpace(strings.Join(sentences, ""))
	children := make([]string, len(sentences))
	for i, s := range sentences {
		children[i] = strings.TrimSpace(s)
	}

	parents, parentIDs := h.Build(normalized, children)
	require.Len(t, parents, 2)
	require.Len(t, parentIDs, len(children))

	byID := make(map[string]int)
	for i, p := range parents {
		require.NotEmpty(t, p.ID)
		assert.Equal(t, counter.Count(p.Content), p.TokenCount)
		byID[p.ID] = i
	}

	seen := make(map[int]bool)
	for _, p := range parents {
		for _, ci := range p.ChildIndices {
			assert.False(t, seen[ci], "child %d assigned twice", ci)
			seen[ci] = true
		}
	}
	for i := range children {
		assert.True(t, seen[i], "child %d never assigned", i)
		idx, ok := byID[parentIDs[i]]
		require.True(t, ok, "child %d points at an unknown parent", i)
		assert.Contains(t, parents[idx].Content, children[i],
			"child %d not contained in its parent", i)
	}
}

func TestBuildCorrectsPositionalMisassignment(t *testing.T) {
	counter := tokens.NewWordCounter()
	h := NewHierarchyBuilder(counter, 20)

	// One long opening sentence pushes the parent boundaries off the
	// even child spacing the positional mapping assumes.
	sentences := []string{
		numberedSentence("a", 18),
		numberedSentence("b", 8),
		numberedSentence("c", 8),
		numberedSentence("d", 8),
		numberedSentence("e", 8),
	}
	normalized := strings.TrimSpace(strings.Join(sentences, ""))
	children := make([]string, len(sentences))
	for i, s := range sentences {
		children[i] = strings.TrimSpace(s)
	}

	parents, parentIDs := h.Build(normalized, children)
	require.Len(t, parents, 3)
	for i, child := range children {
		var assigned ParentSpan
		for _, p := range parents {
			if p.ID == parentIDs[i] {
				assigned = p
			}
		}
		assert.Contains(t, assigned.Content, child, "child %d landed in the wrong parent", i)
	}
}

func TestBuildNoChildren(t *testing.T) {
	h := NewHierarchyBuilder(tokens.NewWordCounter(), 50)
	parents, parentIDs := h.Build("some text", nil)
	assert.Nil(t, parents)
	assert.Nil(t, parentIDs)
}

func TestBuildSingleParentForShortText(t *testing.T) {
	counter := tokens.NewWordCounter()
	h := NewHierarchyBuilder(counter, 2000)
	normalized := strings.TrimSpace(numberedSentence("w", 30))
	parents, parentIDs := h.Build(normalized, []string{normalized})
	require.Len(t, parents, 1)
	assert.Equal(t, normalized, parents[0].Content)
	assert.Equal(t, []string{parents[0].ID}, parentIDs)
	assert.Equal(t, []int{0}, parents[0].ChildIndices)
}
