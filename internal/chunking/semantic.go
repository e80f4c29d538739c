package chunking

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"coachrag/internal/domain"
)

// sentenceRe matches one sentence including its terminator.
var sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// RefineResult is the outcome of a refinement attempt. Refinement is a
// best-effort enhancement: when Degraded is set the Pieces are the
// caller's input, returned unchanged, and Reason says why.
type RefineResult struct {
	Pieces   []string
	Degraded bool
	Reason   string
}

// SemanticRefiner re-segments a chunk stream at embedding-distance
// discontinuities instead of fixed separators. Boundaries are cut where
// the cosine distance between adjacent sentence groups exceeds a
// percentile of the distances observed in the same document. Groups are
// embedded in one self-contained batch per document, never through a
// shared prepared model, so concurrent refinements stay isolated.
type SemanticRefiner struct {
	embedder          domain.BatchEmbedder
	percentile        float64
	sentencesPerGroup int
}

// NewSemanticRefiner creates a refiner cutting at the given percentile
// of adjacent-group distances (e.g. 90 cuts at the 90th percentile).
func NewSemanticRefiner(embedder domain.BatchEmbedder, percentile float64) *SemanticRefiner {
	if percentile <= 0 || percentile >= 100 {
		percentile = 90
	}
	return &SemanticRefiner{
		embedder:          embedder,
		percentile:        percentile,
		sentencesPerGroup: 3,
	}
}

// Refine re-joins the pieces into one stream (collapsing the overlap the
// splitter repeated between adjacent pieces) and re-segments it. The
// returned pieces are contiguous substrings of that stream. Any embedder
// failure degrades to the input pieces; refinement never fails the
// pipeline.
func (r *SemanticRefiner) Refine(pieces []string) RefineResult {
	if len(pieces) == 0 {
		return RefineResult{Pieces: pieces}
	}
	stream := joinDedup(pieces)
	spans := r.groupSpans(stream)
	if len(spans) < 3 {
		// Too little signal for a distance distribution.
		return RefineResult{Pieces: pieces}
	}

	groups := make([]string, len(spans))
	for i, sp := range spans {
		groups[i] = stream[sp.start:sp.end]
	}
	vectors, err := r.embedder.EmbedBatch(groups)
	if err != nil {
		return degraded(pieces, fmt.Sprintf("embed groups: %v", err))
	}
	if len(vectors) != len(groups) {
		return degraded(pieces, fmt.Sprintf("embedder returned %d vectors for %d groups", len(vectors), len(groups)))
	}

	distances := make([]float64, len(groups)-1)
	for i := 0; i < len(groups)-1; i++ {
		distances[i] = cosineDistance(vectors[i], vectors[i+1])
	}
	threshold := percentileOf(distances, r.percentile)

	var out []string
	segStart := spans[0].start
	for i, sp := range spans {
		if i < len(distances) && distances[i] > threshold {
			out = append(out, strings.TrimSpace(stream[segStart:sp.end]))
			segStart = spans[i+1].start
		}
	}
	if segStart < spans[len(spans)-1].end {
		out = append(out, strings.TrimSpace(stream[segStart:spans[len(spans)-1].end]))
	}
	if len(out) == 0 {
		return RefineResult{Pieces: pieces}
	}
	return RefineResult{Pieces: out}
}

func degraded(pieces []string, reason string) RefineResult {
	return RefineResult{Pieces: pieces, Degraded: true, Reason: reason}
}

type span struct {
	start, end int
}

// groupSpans partitions the stream into spans of sentencesPerGroup
// sentences. Spans are contiguous and cover the whole stream; text after
// the last sentence terminator belongs to the final span.
func (r *SemanticRefiner) groupSpans(stream string) []span {
	ends := sentenceRe.FindAllStringIndex(stream, -1)
	var cuts []int
	for i, e := range ends {
		if (i+1)%r.sentencesPerGroup == 0 {
			cuts = append(cuts, e[1])
		}
	}
	var spans []span
	start := 0
	for _, c := range cuts {
		if c > start {
			spans = append(spans, span{start, c})
			start = c
		}
	}
	if start < len(stream) && strings.TrimSpace(stream[start:]) != "" {
		spans = append(spans, span{start, len(stream)})
	}
	return spans
}

// joinDedup concatenates pieces, removing the longest suffix of the
// previous piece that the next piece repeats as its prefix. For pieces
// produced by the recursive splitter this reconstructs the original
// contiguous text despite the configured overlap.
func joinDedup(pieces []string) string {
	var b strings.Builder
	prev := ""
	for _, p := range pieces {
		k := overlapLen(prev, p)
		b.WriteString(p[k:])
		prev = p
	}
	return b.String()
}

func overlapLen(prev, next string) int {
	n := len(prev)
	if len(next) < n {
		n = len(next)
	}
	for k := n; k > 0; k-- {
		if strings.HasSuffix(prev, next[:k]) {
			return k
		}
	}
	return 0
}

func cosineDistance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// percentileOf returns the p-th percentile of vals (nearest-rank).
func percentileOf(vals []float64, p float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	rank := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
