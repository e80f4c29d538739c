// Package memory provides an in-memory vector store using brute-force
// cosine similarity. It is the default store for local runs and tests.
package memory

import (
	"errors"
	"sort"
	"sync"

	"coachrag/internal/domain"
)

// Storage is a simple in-memory vector store.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	chunks    []domain.Chunk
}

// NewStorage creates an empty store.
func NewStorage() *Storage { return &Storage{} }

// Init sets the vector dimension and clears any previous contents.
func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.chunks = nil
	return nil
}

// Upsert appends chunks with their vectors.
func (s *Storage) Upsert(chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	s.chunks = append(s.chunks, chunks...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

// Search returns the topK most similar chunks by cosine similarity.
// Stored vectors are assumed L2-normalized.
func (s *Storage) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(s.vectors))
	for i := range s.vectors {
		scores[i] = scored{i, dot(s.vectors[i], vector)}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if topK > len(scores) {
		topK = len(scores)
	}
	results := make([]domain.SearchResult, 0, topK)
	for i := 0; i < topK; i++ {
		results = append(results, domain.SearchResult{Chunk: s.chunks[scores[i].idx], Score: scores[i].score})
	}
	return results, nil
}

// Clear removes all stored vectors and chunks.
func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.chunks = nil
	return nil
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
