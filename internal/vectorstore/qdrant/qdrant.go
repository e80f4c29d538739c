// Package qdrant is a minimal REST client to a Qdrant collection.
// It assumes cosine distance and creates the collection if missing.
package qdrant

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"coachrag/internal/domain"
)

// Storage implements the VectorStore port over Qdrant's HTTP API.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

// Config holds connection details for a Qdrant instance.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewStorage creates a client; the collection is created on Init.
func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Init creates the collection with the given dimension if it does not exist.
func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 OK if the collection already exists with the
	// same schema; anything else propagates.
	return s.putJSON(fmt.Sprintf("%s/collections/%s", s.url, s.collection), body)
}

// Upsert writes chunks with their vectors. The full chunk metadata goes
// into the payload so retrieved points are self-describing.
func (s *Storage) Upsert(chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	points := make([]map[string]any, len(chunks))
	for i := range chunks {
		points[i] = map[string]any{
			"id":      uuid.NewString(),
			"vector":  vectors[i],
			"payload": chunkPayload(chunks[i]),
		}
	}
	body := map[string]any{"points": points}
	return s.putJSON(fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body)
}

// Search returns the topK nearest chunks.
func (s *Storage) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{Chunk: chunkFromPayload(r.Payload), Score: r.Score})
	}
	return results, nil
}

// Clear drops the collection, best effort.
func (s *Storage) Clear() error {
	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil)
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	_, _ = s.client.Do(req)
	return nil
}

func chunkPayload(c domain.Chunk) map[string]any {
	return map[string]any{
		"chunk_id":      c.ID,
		"content":       c.Content,
		"token_count":   c.TokenCount,
		"index":         c.Index,
		"total_chunks":  c.TotalChunks,
		"chunk_type":    string(c.Type),
		"parent_id":     c.ParentID,
		"transcript_id": c.Source.TranscriptID,
		"title":         c.Source.Title,
		"url":           c.Source.URL,
		"published_at":  c.Source.PublishedAt.Format(time.RFC3339),
	}
}

func chunkFromPayload(p map[string]any) domain.Chunk {
	c := domain.Chunk{}
	c.ID = asString(p["chunk_id"])
	c.Content = asString(p["content"])
	c.TokenCount = asInt(p["token_count"])
	c.Index = asInt(p["index"])
	c.TotalChunks = asInt(p["total_chunks"])
	c.Type = domain.ChunkType(asString(p["chunk_type"]))
	c.ParentID = asString(p["parent_id"])
	c.Source.TranscriptID = asString(p["transcript_id"])
	c.Source.Title = asString(p["title"])
	c.Source.URL = asString(p["url"])
	if ts, err := time.Parse(time.RFC3339, asString(p["published_at"])); err == nil {
		c.Source.PublishedAt = ts
	}
	return c
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	f, _ := v.(float64)
	return int(f)
}

func (s *Storage) putJSON(url string, body any) error {
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPut, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (s *Storage) postJSON(url string, body any, out any) error {
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
