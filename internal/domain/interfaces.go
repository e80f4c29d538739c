package domain

import "context"

// TokenCounter counts text length in sub-word tokens. All chunk size
// thresholds are expressed in this unit, so a pipeline must use a single
// counter for every size calculation.
type TokenCounter interface {
	Count(text string) int
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(text string) ([]float64, error)
}

// BatchEmbedder embeds a set of related texts in one self-contained
// call. The scoring model is fitted to the batch alone; implementations
// must not touch state shared with Embed, so concurrent callers stay
// isolated from each other and from a prepared corpus model.
type BatchEmbedder interface {
	EmbedBatch(texts []string) ([][]float64, error)
}

// VectorStore persists vectors and supports similarity search.
type VectorStore interface {
	Init(dimension int) error
	Upsert(chunks []Chunk, vectors [][]float64) error
	Search(vector []float64, topK int) ([]SearchResult, error)
	Clear() error
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// TranscriptSource yields transcripts to ingest, newest first.
type TranscriptSource interface {
	Fetch(ctx context.Context, limit int) ([]TranscriptRecord, error)
}

// RAGService defines the operations exposed by the application core.
type RAGService interface {
	Ingest(ctx context.Context, records []TranscriptRecord) (IngestReport, error)
	Query(query string, topK int) ([]SearchResult, error)
	BuildContext(query string, topK int) (string, error)
}
