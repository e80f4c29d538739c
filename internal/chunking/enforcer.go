package chunking

import (
	"coachrag/internal/domain"
)

// DefaultMaxSplitDepth caps the re-split recursion in the enforcer.
const DefaultMaxSplitDepth = 10

// SizeEnforcer is the corrective pass after splitting: every piece it
// returns has a token count in [min, max]. Oversized survivors are
// re-split (with a midpoint hard split as last resort) and undersized
// remainders are discarded, never padded or merged.
type SizeEnforcer struct {
	counter  domain.TokenCounter
	splitter *RecursiveSplitter
	min      int
	max      int
	maxDepth int
}

// NewSizeEnforcer creates an enforcer that re-splits with the given
// splitter. maxDepth bounds the recursion; anything still oversized at
// the cap is dropped so the pass always terminates.
func NewSizeEnforcer(counter domain.TokenCounter, splitter *RecursiveSplitter, min, max, maxDepth int) *SizeEnforcer {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxSplitDepth
	}
	return &SizeEnforcer{
		counter:  counter,
		splitter: splitter,
		min:      min,
		max:      max,
		maxDepth: maxDepth,
	}
}

// Enforce filters and re-splits pieces until every survivor is within
// bounds. It returns the survivors and the number of dropped pieces.
func (e *SizeEnforcer) Enforce(pieces []string) (kept []string, dropped int) {
	for _, p := range pieces {
		k, d := e.enforce(p, 0)
		kept = append(kept, k...)
		dropped += d
	}
	return kept, dropped
}

func (e *SizeEnforcer) enforce(piece string, depth int) (kept []string, dropped int) {
	tokens := e.counter.Count(piece)
	switch {
	case tokens < e.min:
		return nil, 1
	case tokens <= e.max:
		return []string{piece}, 0
	case depth >= e.maxDepth:
		// Pathological input that resisted every split level.
		return nil, 1
	}

	parts := e.splitter.Split(piece)
	if len(parts) == 1 && parts[0] == piece {
		// The splitter made no progress; force a midpoint split.
		parts = midpointSplit(piece)
	}
	for _, p := range parts {
		k, d := e.enforce(p, depth+1)
		kept = append(kept, k...)
		dropped += d
	}
	return kept, dropped
}

// midpointSplit cuts a piece in half at the middle rune offset. Both
// halves are strictly shorter than the input, which guarantees the
// enforcer recursion makes progress on any text.
func midpointSplit(piece string) []string {
	runes := []rune(piece)
	if len(runes) < 2 {
		return []string{piece}
	}
	mid := len(runes) / 2
	return []string{string(runes[:mid]), string(runes[mid:])}
}
