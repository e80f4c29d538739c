package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coachrag/internal/tokens"
)

// runeCounter treats every rune as a token. It exercises the enforcer on
// text with no whitespace, which word counting cannot.
type runeCounter struct{}

func (runeCounter) Count(s string) int { return len([]rune(s)) }

func TestEnforceKeepsInBoundsPieces(t *testing.T) {
	counter := tokens.NewWordCounter()
	splitter := NewRecursiveSplitter(counter, 400, 50)
	e := NewSizeEnforcer(counter, splitter, 150, 400, 10)

	piece := distinctWords(200)
	kept, dropped := e.Enforce([]string{piece})
	assert.Equal(t, []string{piece}, kept)
	assert.Zero(t, dropped)
}

func TestEnforceDropsUndersized(t *testing.T) {
	counter := tokens.NewWordCounter()
	splitter := NewRecursiveSplitter(counter, 400, 50)
	e := NewSizeEnforcer(counter, splitter, 150, 400, 10)

	kept, dropped := e.Enforce([]string{distinctWords(80)})
	assert.Empty(t, kept)
	assert.Equal(t, 1, dropped)
}

func TestEnforceResplitsOversized(t *testing.T) {
	counter := tokens.NewWordCounter()
	splitter := NewRecursiveSplitter(counter, 400, 50)
	e := NewSizeEnforcer(counter, splitter, 150, 400, 10)

	kept, dropped := e.Enforce([]string{distinctWords(1000)})
	require.NotEmpty(t, kept)
	assert.Zero(t, dropped)
	for i, p := range kept {
		n := counter.Count(p)
		assert.GreaterOrEqual(t, n, 150, "piece %d too small", i)
		assert.LessOrEqual(t, n, 400, "piece %d too large", i)
	}
}

func TestEnforceMidpointFallback(t *testing.T) {
	counter := runeCounter{}
	// A ladder with no matching separator forces the hard split.
	splitter := NewRecursiveSplitterWithSeparators(counter, 10, 0, []string{"\n\n"})
	e := NewSizeEnforcer(counter, splitter, 2, 10, 10)

	kept, dropped := e.Enforce([]string{strings.Repeat("x", 64)})
	assert.Zero(t, dropped)
	require.Len(t, kept, 8)
	total := 0
	for _, p := range kept {
		n := counter.Count(p)
		assert.GreaterOrEqual(t, n, 2)
		assert.LessOrEqual(t, n, 10)
		total += n
	}
	assert.Equal(t, 64, total, "hard splits must not lose text")
}

func TestEnforceTerminatesAtDepthCap(t *testing.T) {
	counter := runeCounter{}
	splitter := NewRecursiveSplitterWithSeparators(counter, 10, 0, []string{"\n\n"})
	e := NewSizeEnforcer(counter, splitter, 2, 10, 2)

	kept, dropped := e.Enforce([]string{strings.Repeat("x", 64)})
	assert.Empty(t, kept)
	assert.Equal(t, 4, dropped, "pieces still oversized at the cap are dropped")
}
