// Package tfidf implements the Embedder port with a local TF-IDF
// vectorizer. It needs no network access, which also makes it the
// default boundary scorer for semantic refinement in offline runs.
package tfidf

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Embedder implements a simple TF-IDF vectorizer.
// It builds a vocabulary from the corpus and computes IDF values.
// Safe for concurrent use once constructed.
type Embedder struct {
	mu           sync.RWMutex
	vocabulary   map[string]int
	idf          []float64
	dimension    int
	prepared     bool
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewEmbedder creates an unprepared TF-IDF embedder.
func NewEmbedder() *Embedder {
	return &Embedder{
		vocabulary:   make(map[string]int),
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// model is one fitted vocabulary with its IDF values. Prepare installs
// a model on the embedder; EmbedBatch fits a throwaway one.
type model struct {
	vocabulary map[string]int
	idf        []float64
}

// Prepare builds the vocabulary and IDF values from the provided corpus.
// Preparing again replaces the previous vocabulary.
func (e *Embedder) Prepare(corpus []string) error {
	m, err := e.fit(corpus)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.vocabulary = m.vocabulary
	e.idf = m.idf
	e.dimension = len(m.idf)
	e.prepared = true
	e.mu.Unlock()
	return nil
}

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dimension
}

// Embed computes the L2-normalized TF-IDF embedding for the given text
// against the prepared vocabulary.
func (e *Embedder) Embed(text string) ([]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.prepared {
		return nil, errors.New("tfidf embedder not prepared")
	}
	return e.vectorize(text, model{vocabulary: e.vocabulary, idf: e.idf}), nil
}

// EmbedBatch fits a throwaway model to texts and embeds each text
// against it. The prepared vocabulary is neither read nor replaced, so
// concurrent pipelines can score chunk boundaries while the shared
// corpus model is in use.
func (e *Embedder) EmbedBatch(texts []string) ([][]float64, error) {
	m, err := e.fit(texts)
	if err != nil {
		return nil, err
	}
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = e.vectorize(text, m)
	}
	return vectors, nil
}

func (e *Embedder) fit(corpus []string) (model, error) {
	if len(corpus) == 0 {
		return model{}, errors.New("empty corpus for TF-IDF fit")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return model{}, errors.New("no tokens found in corpus; ensure tokenizer supports your language")
	}
	m := model{
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
	}
	n := float64(len(corpus))
	for i, term := range terms {
		m.vocabulary[term] = i
		// Smoothed IDF
		m.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	return m, nil
}

func (e *Embedder) vectorize(text string, m model) []float64 {
	vec := make([]float64, len(m.idf))
	tf := make(map[int]int)
	total := 0
	for _, tok := range e.tokenize(text) {
		if idx, ok := m.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec
	}
	for idx, count := range tf {
		tfv := float64(count) / float64(total)
		vec[idx] = tfv * m.idf[idx]
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func (e *Embedder) tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := e.tokenPattern.FindAllString(lower, -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
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
