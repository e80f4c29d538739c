// Package service wires the chunking pipeline, embedder and vector
// store into the ingest and retrieval operations of the application.
package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"coachrag/internal/chunking"
	"coachrag/internal/domain"
)

// RAGServiceImpl implements domain.RAGService.
type RAGServiceImpl struct {
	pipeline            *chunking.Pipeline
	embedder            domain.Embedder
	store               domain.VectorStore
	summarizer          domain.Summarizer
	summaryMaxSentences int
	workers             int
	logger              *slog.Logger

	mu       sync.RWMutex
	children []domain.Chunk
	parents  map[string]domain.Chunk
}

// NewRAGService assembles the service from its collaborators.
func NewRAGService(pipeline *chunking.Pipeline, embedder domain.Embedder, store domain.VectorStore, summarizer domain.Summarizer, summaryMaxSentences, workers int, logger *slog.Logger) *RAGServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 1
	}
	return &RAGServiceImpl{
		pipeline:            pipeline,
		embedder:            embedder,
		store:               store,
		summarizer:          summarizer,
		summaryMaxSentences: summaryMaxSentences,
		workers:             workers,
		logger:              logger,
		parents:             make(map[string]domain.Chunk),
	}
}

// Ingest chunks the transcripts, embeds the child chunks and writes them
// to the vector store. Parent chunks are kept aside for expand-on-
// retrieval; they are never embedded or searched directly.
func (s *RAGServiceImpl) Ingest(ctx context.Context, records []domain.TranscriptRecord) (domain.IngestReport, error) {
	chunks, stats := s.pipeline.ProcessBatch(ctx, records, s.workers)

	var children []domain.Chunk
	parents := make(map[string]domain.Chunk)
	for _, c := range chunks {
		if c.Type == domain.ChunkParent {
			parents[c.ID] = c
		} else {
			children = append(children, c)
		}
	}

	report := domain.IngestReport{
		Transcripts:      stats.Transcripts,
		EmptyTranscripts: stats.EmptyTranscripts,
		Chunks:           len(children),
		ParentChunks:     len(parents),
		DroppedChunks:    stats.DroppedChunks,
		RefinerFallbacks: stats.RefinerFallbacks,
	}
	if len(children) == 0 {
		s.logger.Warn("ingest produced no chunks", "transcripts", stats.Transcripts, "dropped", stats.DroppedChunks)
		return report, nil
	}

	texts := make([]string, len(children))
	for i, c := range children {
		texts[i] = c.Content
	}
	if err := s.embedder.Prepare(texts); err != nil {
		return report, fmt.Errorf("prepare embedder: %w", err)
	}
	if err := s.store.Init(s.embedder.Dimension()); err != nil {
		return report, fmt.Errorf("init vector store: %w", err)
	}
	if err := s.store.Clear(); err != nil {
		return report, fmt.Errorf("clear vector store: %w", err)
	}
	vectors := make([][]float64, len(children))
	for i, c := range children {
		vec, err := s.embedder.Embed(c.Content)
		if err != nil {
			return report, fmt.Errorf("embed chunk %s: %w", c.ID, err)
		}
		vectors[i] = vec
	}
	if err := s.store.Upsert(children, vectors); err != nil {
		return report, fmt.Errorf("upsert chunks: %w", err)
	}

	s.mu.Lock()
	s.children = children
	s.parents = parents
	s.mu.Unlock()

	summary, err := s.summarizer.Summarize(strings.Join(texts, " "), s.summaryMaxSentences)
	if err != nil {
		s.logger.Warn("corpus summary failed", "err", err)
	} else {
		report.Summary = summary
	}
	return report, nil
}

// Query embeds the query, searches the store and returns the topK
// results deduplicated by content hash. A query with no vocabulary
// overlap falls back to lexical ranking over the ingested chunks.
func (s *RAGServiceImpl) Query(query string, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	vec, err := s.embedder.Embed(query)
	if err != nil {
		return nil, err
	}
	if isZero(vec) {
		return s.lexicalSearch(query, topK), nil
	}
	// Over-fetch so dedup still fills topK.
	res, err := s.store.Search(vec, topK*2)
	if err != nil {
		return nil, err
	}
	res = dedupeByContent(res)
	if len(res) > topK {
		res = res[:topK]
	}
	allZero := true
	for _, r := range res {
		if r.Score > 1e-9 {
			allZero = false
			break
		}
	}
	if allZero {
		return s.lexicalSearch(query, topK), nil
	}
	return res, nil
}

// BuildContext serializes the retrieval results, plus the parents of any
// child results when hierarchy is enabled, into the grounding context
// handed to an answer generator.
func (s *RAGServiceImpl) BuildContext(query string, topK int) (string, error) {
	results, err := s.Query(query, topK)
	if err != nil {
		return "", err
	}
	var blocks []string
	seenParents := make(map[string]struct{})
	for _, r := range results {
		blocks = append(blocks, contextBlock(r.Chunk))
		if r.Chunk.ParentID == "" {
			continue
		}
		if _, ok := seenParents[r.Chunk.ParentID]; ok {
			continue
		}
		seenParents[r.Chunk.ParentID] = struct{}{}
		s.mu.RLock()
		parent, ok := s.parents[r.Chunk.ParentID]
		s.mu.RUnlock()
		if ok {
			blocks = append(blocks, contextBlock(parent))
		}
	}
	return strings.Join(blocks, "\n\n"), nil
}

func contextBlock(c domain.Chunk) string {
	source := c.Source.Title
	if c.Source.URL != "" {
		source = fmt.Sprintf("%s (%s)", source, c.Source.URL)
	}
	return fmt.Sprintf("Source: %s | Chunk: %s\nContent: %s", source, c.ID, c.Content)
}

func dedupeByContent(results []domain.SearchResult) []domain.SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := results[:0]
	for _, r := range results {
		h := hashString(r.Chunk.Content)
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, r)
	}
	return out
}

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

var unicodeWordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

func (s *RAGServiceImpl) lexicalSearch(query string, topK int) []domain.SearchResult {
	s.mu.RLock()
	chunks := s.children
	s.mu.RUnlock()

	qset := toTokenSet(query)
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(chunks))
	for i, ch := range chunks {
		scores[i] = pair{i, overlapOchiai(qset, ch.Content)}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if topK > len(scores) {
		topK = len(scores)
	}
	out := make([]domain.SearchResult, 0, topK)
	for i := 0; i < topK; i++ {
		p := scores[i]
		out = append(out, domain.SearchResult{Chunk: chunks[p.idx], Score: p.score})
	}
	return out
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// overlapOchiai scores token-set overlap with the Ochiai coefficient:
// |A∩B| / sqrt(|A||B|).
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	stoks := unicodeWordRe.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(stoks))
	inter := 0
	for _, t := range stoks {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	return float64(inter) / (math.Sqrt(float64(len(qset))) * math.Sqrt(float64(len(seen))))
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
