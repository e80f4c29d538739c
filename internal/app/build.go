// Package app assembles configured components into a runnable service.
package app

import (
	"fmt"
	"log/slog"
	"time"

	"coachrag/internal/chunking"
	"coachrag/internal/config"
	"coachrag/internal/domain"
	"coachrag/internal/embedding/openai"
	"coachrag/internal/embedding/tfidf"
	"coachrag/internal/service"
	"coachrag/internal/summarizer"
	"coachrag/internal/tokens"
	"coachrag/internal/transcripts"
	"coachrag/internal/vectorstore/memory"
	"coachrag/internal/vectorstore/qdrant"
)

// BuildCounter returns the configured token counter. If tiktoken
// initialization fails (it downloads encoding data on first use), it
// falls back to whitespace word counting so offline runs still work.
func BuildCounter(cfg config.TokenizerConfig, logger *slog.Logger) domain.TokenCounter {
	switch cfg.Type {
	case "words":
		return tokens.NewWordCounter()
	default:
		tc, err := tokens.NewTiktokenCounter(cfg.Encoding)
		if err != nil {
			logger.Warn("tiktoken unavailable, falling back to word counting", "encoding", cfg.Encoding, "error", err)
			return tokens.NewWordCounter()
		}
		return tc
	}
}

// BuildEmbedder returns the configured embedder.
func BuildEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		oc := cfg.OpenAI
		if oc == nil {
			oc = &config.OpenAIEmbedderConfig{}
		}
		return openai.NewClient(openai.Config{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
			Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Type)
	}
}

// BuildStore returns the configured vector store.
func BuildStore(cfg config.VectorStoreConfig) (domain.VectorStore, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "qdrant":
		qc := cfg.Qdrant
		if qc == nil {
			return nil, fmt.Errorf("vector_store.qdrant section is required for type qdrant")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        qc.URL,
			APIKey:     qc.APIKey,
			Collection: qc.Collection,
			Timeout:    time.Duration(qc.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store type %q", cfg.Type)
	}
}

// BuildSummarizer returns the configured corpus summarizer.
func BuildSummarizer(cfg config.SummarizerConfig) (domain.Summarizer, error) {
	switch cfg.Type {
	case "frequency", "":
		if cfg.StopwordsPath != "" {
			return summarizer.NewFrequencySummarizerFromFile(cfg.StopwordsPath)
		}
		return summarizer.NewFrequencySummarizer(), nil
	default:
		return nil, fmt.Errorf("unknown summarizer type %q", cfg.Type)
	}
}

// BuildSource returns the configured transcript source. The caller
// must call the returned closer when done (nil-safe for sources that
// hold no resources).
func BuildSource(cfg config.SourceConfig) (domain.TranscriptSource, func() error, error) {
	switch cfg.Type {
	case "file", "":
		return transcripts.NewFileSource(cfg.Path, cfg.MinLength), func() error { return nil }, nil
	case "sqlite":
		cat, err := transcripts.OpenCatalog(cfg.Path, cfg.MinLength)
		if err != nil {
			return nil, nil, err
		}
		return cat, cat.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}

// BuildService wires the full pipeline and service from configuration.
// chunkCfg overrides cfg.Chunking so evaluation runs can sweep
// parameters without mutating the loaded config.
func BuildService(cfg *config.AppConfig, chunkCfg config.ChunkingConfig, logger *slog.Logger) (domain.RAGService, error) {
	counter := BuildCounter(cfg.Tokenizer, logger)
	embedder, err := BuildEmbedder(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("build embedder: %w", err)
	}
	store, err := BuildStore(cfg.VectorStore)
	if err != nil {
		return nil, fmt.Errorf("build vector store: %w", err)
	}
	summ, err := BuildSummarizer(cfg.Summarizer)
	if err != nil {
		return nil, fmt.Errorf("build summarizer: %w", err)
	}
	pipeline, err := chunking.NewPipeline(chunkCfg, counter, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return service.NewRAGService(pipeline, embedder, store, summ, cfg.Summarizer.MaxSentences, cfg.Workers, logger), nil
}
