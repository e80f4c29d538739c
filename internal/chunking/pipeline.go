package chunking

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"coachrag/internal/config"
	"coachrag/internal/domain"
)

// Stats counts what a pipeline run produced and what it silently
// discarded, so drop policies stay auditable.
type Stats struct {
	Transcripts      int
	EmptyTranscripts int
	Chunks           int
	ParentChunks     int
	DroppedChunks    int
	RefinerFallbacks int
}

func (s *Stats) add(o Stats) {
	s.Transcripts += o.Transcripts
	s.EmptyTranscripts += o.EmptyTranscripts
	s.Chunks += o.Chunks
	s.ParentChunks += o.ParentChunks
	s.DroppedChunks += o.DroppedChunks
	s.RefinerFallbacks += o.RefinerFallbacks
}

// Pipeline runs the chunking stages for one transcript at a time:
// normalize, split, enforce, optionally refine and build hierarchy, then
// assemble metadata-enriched chunks. A Pipeline is a pure function of
// its inputs plus the injected token counter and embedder; it holds no
// mutable state and is safe for concurrent use across transcripts.
type Pipeline struct {
	cfg        config.ChunkingConfig
	counter    domain.TokenCounter
	normalizer *Normalizer
	splitter   *RecursiveSplitter
	enforcer   *SizeEnforcer
	refiner    *SemanticRefiner
	hierarchy  *HierarchyBuilder
	logger     *slog.Logger
}

// NewPipeline validates cfg and builds the stage chain. embedder may be
// nil unless semantic refinement is enabled.
func NewPipeline(cfg config.ChunkingConfig, counter domain.TokenCounter, embedder domain.Embedder, logger *slog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if counter == nil {
		return nil, fmt.Errorf("chunking pipeline requires a token counter")
	}
	if cfg.UseSemanticRefinement && embedder == nil {
		return nil, fmt.Errorf("semantic refinement enabled but no embedder provided")
	}
	if logger == nil {
		logger = slog.Default()
	}

	splitter := NewRecursiveSplitter(counter, cfg.MaxChunkSize, cfg.ChunkOverlap)
	p := &Pipeline{
		cfg:        cfg,
		counter:    counter,
		normalizer: NewNormalizer(),
		splitter:   splitter,
		enforcer:   NewSizeEnforcer(counter, splitter, cfg.MinChunkSize, cfg.MaxChunkSize, cfg.MaxSplitDepth),
		logger:     logger,
	}
	if cfg.UseSemanticRefinement {
		batch, ok := embedder.(domain.BatchEmbedder)
		if !ok {
			return nil, fmt.Errorf("embedder %s cannot batch-embed boundary groups", embedder.Name())
		}
		p.refiner = NewSemanticRefiner(batch, 90)
	}
	if cfg.UseHierarchy {
		p.hierarchy = NewHierarchyBuilder(counter, cfg.ParentChunkSize)
	}
	return p, nil
}

// Process chunks one transcript. A transcript that is empty after
// normalization, or whose every candidate chunk is dropped, yields zero
// chunks; that is a data-quality outcome, not an error.
func (p *Pipeline) Process(t domain.TranscriptRecord) ([]domain.Chunk, Stats) {
	stats := Stats{Transcripts: 1}

	normalized := p.normalizer.Normalize(t.RawText)
	if normalized == "" {
		stats.EmptyTranscripts++
		return nil, stats
	}

	pieces := p.splitter.Split(normalized)
	pieces, dropped := p.enforcer.Enforce(pieces)
	stats.DroppedChunks += dropped

	chunkType := domain.ChunkRecursive
	if p.refiner != nil && len(pieces) > 0 {
		res := p.refiner.Refine(pieces)
		switch {
		case res.Degraded:
			stats.RefinerFallbacks++
			p.logger.Warn("semantic refinement degraded, keeping recursive chunks",
				"transcript", t.ID, "reason", res.Reason)
		case !slices.Equal(res.Pieces, pieces):
			// Semantic boundaries may violate the size bounds, so the
			// refined pieces go through the enforcer again.
			refined, d := p.enforcer.Enforce(res.Pieces)
			stats.DroppedChunks += d
			if len(refined) > 0 {
				pieces = refined
				chunkType = domain.ChunkSemantic
			}
		}
	}

	if len(pieces) == 0 {
		stats.EmptyTranscripts++
		return nil, stats
	}

	var parents []ParentSpan
	var parentIDs []string
	if p.hierarchy != nil {
		parents, parentIDs = p.hierarchy.Build(normalized, pieces)
		chunkType = domain.ChunkChild
	}

	chunks := p.assemble(t, pieces, chunkType, parents, parentIDs)
	stats.Chunks += len(pieces)
	stats.ParentChunks += len(parents)
	return chunks, stats
}

// assemble attaches the enriched metadata that makes every chunk
// self-describing. Token counts are recomputed here rather than trusted
// from upstream stages.
func (p *Pipeline) assemble(t domain.TranscriptRecord, pieces []string, chunkType domain.ChunkType, parents []ParentSpan, parentIDs []string) []domain.Chunk {
	meta := domain.SourceMetadata{
		TranscriptID: t.ID,
		Title:        t.Title,
		URL:          t.SourceURL,
		PublishedAt:  t.PublishedAt,
	}
	chunks := make([]domain.Chunk, 0, len(pieces)+len(parents))
	for i, content := range pieces {
		c := domain.Chunk{
			ID:          fmt.Sprintf("%s:%d", t.ID, i),
			Content:     content,
			TokenCount:  p.counter.Count(content),
			Index:       i,
			TotalChunks: len(pieces),
			Type:        chunkType,
			Source:      meta,
		}
		if parentIDs != nil {
			c.ParentID = parentIDs[i]
		}
		chunks = append(chunks, c)
	}
	for j, parent := range parents {
		chunks = append(chunks, domain.Chunk{
			ID:           parent.ID,
			Content:      parent.Content,
			TokenCount:   parent.TokenCount,
			Index:        len(pieces) + j,
			TotalChunks:  len(pieces),
			Type:         domain.ChunkParent,
			ChildIndices: parent.ChildIndices,
			Source:       meta,
		})
	}
	return chunks
}

// ProcessBatch chunks many transcripts with bounded parallelism.
// Transcripts share no mutable state, so each runs independently; one
// transcript yielding nothing never blocks the rest.
func (p *Pipeline) ProcessBatch(ctx context.Context, records []domain.TranscriptRecord, workers int) ([]domain.Chunk, Stats) {
	if workers <= 0 {
		workers = 1
	}
	results := make([][]domain.Chunk, len(records))
	var mu sync.Mutex
	var stats Stats

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rec := range records {
		i, rec := i, rec
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			chunks, st := p.Process(rec)
			results[i] = chunks
			mu.Lock()
			stats.add(st)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var all []domain.Chunk
	for _, chunks := range results {
		all = append(all, chunks...)
	}
	return all, stats
}
