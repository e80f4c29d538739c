package domain

import "time"

// TranscriptRecord is a single source transcript as delivered by a
// transcript source. It is immutable input to the chunking pipeline.
type TranscriptRecord struct {
	ID          string
	RawText     string
	Title       string
	SourceURL   string
	PublishedAt time.Time
	Summary     string
	Topics      []string
}

// SourceMetadata is the identifying subset of a TranscriptRecord copied
// onto every chunk so each chunk can cite its provenance without a lookup.
type SourceMetadata struct {
	TranscriptID string
	Title        string
	URL          string
	PublishedAt  time.Time
}

// ChunkType tags how a chunk was produced.
type ChunkType string

const (
	// ChunkRecursive is a chunk from the recursive splitter only.
	ChunkRecursive ChunkType = "recursive"
	// ChunkSemantic is a chunk whose boundaries were moved by the semantic refiner.
	ChunkSemantic ChunkType = "semantic"
	// ChunkParent is a coarse context span; exempt from the min/max bounds.
	ChunkParent ChunkType = "parent"
	// ChunkChild is a retrieval chunk linked to a parent span.
	ChunkChild ChunkType = "child"
)

// Chunk is a bounded, retrievable span of transcript text. Chunks are
// created once during preprocessing and never mutated afterwards.
type Chunk struct {
	ID          string
	Content     string
	TokenCount  int
	Index       int
	TotalChunks int
	Type        ChunkType
	// ParentID links a child chunk to its parent span; empty when
	// hierarchy is disabled or for parents themselves.
	ParentID string
	// ChildIndices is populated on parent chunks only.
	ChildIndices []int
	Source       SourceMetadata
}

// SearchResult is a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// IngestReport summarizes a batch ingest so silent drops stay auditable.
type IngestReport struct {
	Transcripts      int
	EmptyTranscripts int
	Chunks           int
	ParentChunks     int
	DroppedChunks    int
	RefinerFallbacks int
	Summary          string
}
