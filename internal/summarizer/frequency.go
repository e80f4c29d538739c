// Package summarizer produces the short corpus summary shown after
// ingest. It ranks sentences by normalized word frequency.
package summarizer

import (
	"bufio"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"
)

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered).
type FrequencySummarizer struct {
	tokenPattern *regexp.Regexp
	sentenceRe   *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewFrequencySummarizer creates a frequency-based sentence ranker with
// the built-in stopword list.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		sentenceRe:   regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
		stopwords:    defaultStopwords(),
	}
}

// NewFrequencySummarizerFromFile loads stopwords from a file with one
// word per line; blank lines and '#' comments are ignored.
func NewFrequencySummarizerFromFile(path string) (*FrequencySummarizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	words := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words[strings.ToLower(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	s := NewFrequencySummarizer()
	if len(words) > 0 {
		s.stopwords = words
	}
	return s, nil
}

// Summarize returns a short summary by ranking sentences using token frequency.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	sentences := s.sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}
	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, sent := range sentences {
		toks := s.tokens(sent)
		sscore := 0.0
		for _, tok := range toks {
			if v, ok := freq[tok]; ok {
				sscore += v
			}
		}
		// Normalize by sentence length to avoid bias toward long sentences
		if l := float64(len(toks)); l > 0 {
			sscore /= math.Sqrt(l)
		}
		scores[i] = pair{i, sscore}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	// Keep original order among selected
	selected := make([]int, maxSentences)
	for i := 0; i < maxSentences; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	var out []string
	for _, idx := range selected {
		out = append(out, strings.TrimSpace(sentences[idx]))
	}
	return strings.Join(out, " "), nil
}

func (s *FrequencySummarizer) tokens(text string) []string {
	lower := strings.ToLower(text)
	raw := s.tokenPattern.FindAllString(lower, -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := s.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
