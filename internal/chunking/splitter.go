package chunking

import (
	"strings"

	"coachrag/internal/domain"
)

// DefaultSeparators is the separator ladder tried by the recursive
// splitter, largest semantic unit first. The empty string is the
// guaranteed-terminating character-level fallback.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", " ", ""}

// RecursiveSplitter splits text into pieces aiming to stay under a token
// budget, preferring larger separators before falling back to smaller
// ones. It is best effort only: a piece with no usable separator can come
// back oversized, so the size enforcer must always run afterwards.
type RecursiveSplitter struct {
	counter    domain.TokenCounter
	maxTokens  int
	overlap    int
	separators []string
}

// NewRecursiveSplitter creates a splitter with the default separator
// ladder. overlap tokens from the tail of each piece are repeated at the
// head of the next one.
func NewRecursiveSplitter(counter domain.TokenCounter, maxTokens, overlap int) *RecursiveSplitter {
	return NewRecursiveSplitterWithSeparators(counter, maxTokens, overlap, DefaultSeparators)
}

// NewRecursiveSplitterWithSeparators creates a splitter with a custom
// separator ladder.
func NewRecursiveSplitterWithSeparators(counter domain.TokenCounter, maxTokens, overlap int, separators []string) *RecursiveSplitter {
	if maxTokens <= 0 {
		maxTokens = 400
	}
	if overlap < 0 || overlap >= maxTokens {
		overlap = 0
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	return &RecursiveSplitter{
		counter:    counter,
		maxTokens:  maxTokens,
		overlap:    overlap,
		separators: separators,
	}
}

// Split returns an ordered sequence of substrings of text. Ignoring the
// overlap repeated between adjacent pieces, their concatenation
// reconstructs the input.
func (s *RecursiveSplitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	if s.counter.Count(text) <= s.maxTokens {
		return []string{text}
	}
	if len(separators) == 0 {
		// No separator applies; return the oversized piece and let the
		// enforcer hard-split it.
		return []string{text}
	}
	sep, rest := separators[0], separators[1:]
	parts := splitKeep(text, sep)
	if len(parts) <= 1 {
		return s.split(text, rest)
	}
	return s.merge(parts, rest)
}

// merge joins adjacent parts into pieces under the token budget,
// recursing with the remaining separators on any single part that is
// itself over budget.
func (s *RecursiveSplitter) merge(parts []string, rest []string) []string {
	var out []string
	var buf []string
	bufTokens := 0
	newParts := 0

	flush := func() {
		if newParts == 0 {
			// Nothing beyond the seeded overlap; emitting would duplicate
			// the previous piece's tail.
			return
		}
		out = append(out, strings.Join(buf, ""))
		// Seed the next piece with trailing parts within the overlap
		// budget so context carries across the boundary.
		var seed []string
		seedTokens := 0
		for i := len(buf) - 1; i >= 0 && s.overlap > 0; i-- {
			t := s.counter.Count(buf[i])
			if seedTokens+t > s.overlap {
				break
			}
			seed = append([]string{buf[i]}, seed...)
			seedTokens += t
		}
		buf = seed
		bufTokens = seedTokens
		newParts = 0
	}

	for _, part := range parts {
		t := s.counter.Count(part)
		if t > s.maxTokens {
			flush()
			out = append(out, s.split(part, rest)...)
			buf = nil
			bufTokens = 0
			newParts = 0
			continue
		}
		if bufTokens+t > s.maxTokens && len(buf) > 0 {
			flush()
			// The seed alone can already crowd out the next part; drop it
			// rather than emit a duplicate-only piece.
			if bufTokens+t > s.maxTokens {
				buf = nil
				bufTokens = 0
			}
		}
		buf = append(buf, part)
		bufTokens += t
		newParts++
	}
	if newParts > 0 {
		out = append(out, strings.Join(buf, ""))
	}
	return out
}

// splitKeep splits text on sep, keeping the separator attached to the
// preceding part so concatenating the parts reproduces the input. An
// empty sep splits into fixed-width rune windows.
func splitKeep(text, sep string) []string {
	if sep == "" {
		return splitRunes(text, 64)
	}
	parts := strings.SplitAfter(text, sep)
	// SplitAfter can leave a trailing empty part when text ends with sep.
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func splitRunes(text string, width int) []string {
	runes := []rune(text)
	if len(runes) <= width {
		return []string{text}
	}
	out := make([]string, 0, len(runes)/width+1)
	for start := 0; start < len(runes); start += width {
		end := start + width
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
