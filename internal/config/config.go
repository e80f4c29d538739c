package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrInvalidChunkBounds marks chunking size misconfiguration. It is
// fatal for the whole run and surfaces at pipeline construction.
var ErrInvalidChunkBounds = errors.New("invalid chunk bounds")

// ChunkingConfig configures the adaptive chunking pipeline. All sizes
// are in tokens of the configured tokenizer.
type ChunkingConfig struct {
	MaxChunkSize          int  `yaml:"max_chunk_size"`
	MinChunkSize          int  `yaml:"min_chunk_size"`
	ChunkOverlap          int  `yaml:"chunk_overlap"`
	UseSemanticRefinement bool `yaml:"use_semantic_refinement"`
	UseHierarchy          bool `yaml:"use_hierarchy"`
	ParentChunkSize       int  `yaml:"parent_chunk_size"`
	MaxSplitDepth         int  `yaml:"max_split_depth"`
}

// Validate rejects misconfiguration before any processing begins.
func (c ChunkingConfig) Validate() error {
	if c.MinChunkSize <= 0 {
		return fmt.Errorf("%w: min_chunk_size must be positive, got %d", ErrInvalidChunkBounds, c.MinChunkSize)
	}
	if c.MaxChunkSize < c.MinChunkSize {
		return fmt.Errorf("%w: max_chunk_size %d < min_chunk_size %d", ErrInvalidChunkBounds, c.MaxChunkSize, c.MinChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.MaxChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be in [0, max_chunk_size)", ErrInvalidChunkBounds, c.ChunkOverlap)
	}
	if c.UseHierarchy && c.ParentChunkSize <= c.MaxChunkSize {
		return fmt.Errorf("%w: parent_chunk_size %d must exceed max_chunk_size %d", ErrInvalidChunkBounds, c.ParentChunkSize, c.MaxChunkSize)
	}
	return nil
}

// TokenizerConfig selects the token counter implementation.
type TokenizerConfig struct {
	Type     string `yaml:"type"`     // "tiktoken" or "words"
	Encoding string `yaml:"encoding"` // tiktoken encoding name
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// SummarizerConfig configures the corpus summarizer.
type SummarizerConfig struct {
	Type          string `yaml:"type"`
	MaxSentences  int    `yaml:"max_sentences"`
	StopwordsPath string `yaml:"stopwords_path,omitempty"`
}

// SourceConfig selects where transcripts are loaded from.
type SourceConfig struct {
	Type      string `yaml:"type"` // "sqlite" or "file"
	Path      string `yaml:"path"`
	Limit     int    `yaml:"limit"`
	MinLength int    `yaml:"min_length"` // characters; shorter transcripts are skipped
}

// EvalConfig configures the evaluation harness.
type EvalConfig struct {
	DatasetPath string           `yaml:"dataset_path"`
	TopK        int              `yaml:"top_k"`
	Grid        []ChunkingConfig `yaml:"grid,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Tokenizer   TokenizerConfig   `yaml:"tokenizer"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Source      SourceConfig      `yaml:"source"`
	Eval        EvalConfig        `yaml:"eval"`
	Workers     int               `yaml:"workers"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Chunking.Validate(); err != nil {
		return nil, err
	}
	for i, g := range cfg.Eval.Grid {
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("eval grid entry %d: %w", i, err)
		}
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/coachrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/coachrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "coachrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunking.MaxChunkSize == 0 {
		cfg.Chunking.MaxChunkSize = 400
	}
	if cfg.Chunking.MinChunkSize == 0 {
		cfg.Chunking.MinChunkSize = 150
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 50
	}
	if cfg.Chunking.ParentChunkSize == 0 {
		cfg.Chunking.ParentChunkSize = 2000
	}
	if cfg.Chunking.MaxSplitDepth == 0 {
		cfg.Chunking.MaxSplitDepth = 10
	}
	if cfg.Tokenizer.Type == "" {
		cfg.Tokenizer.Type = "tiktoken"
	}
	if cfg.Tokenizer.Encoding == "" {
		cfg.Tokenizer.Encoding = "cl100k_base"
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "tfidf"
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "frequency"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 5
	}
	if cfg.Source.Type == "" {
		cfg.Source.Type = "file"
	}
	if cfg.Source.Limit == 0 {
		cfg.Source.Limit = 50
	}
	if cfg.Source.MinLength == 0 {
		cfg.Source.MinLength = 1000
	}
	if cfg.Eval.TopK == 0 {
		cfg.Eval.TopK = 4
	}
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	// Grid rows usually vary one or two knobs; unset fields inherit
	// the base chunking config instead of failing validation.
	for i := range cfg.Eval.Grid {
		g := &cfg.Eval.Grid[i]
		if g.MaxChunkSize == 0 {
			g.MaxChunkSize = cfg.Chunking.MaxChunkSize
		}
		if g.MinChunkSize == 0 {
			g.MinChunkSize = cfg.Chunking.MinChunkSize
		}
		if g.ChunkOverlap == 0 {
			g.ChunkOverlap = cfg.Chunking.ChunkOverlap
		}
		if g.ParentChunkSize == 0 {
			g.ParentChunkSize = cfg.Chunking.ParentChunkSize
		}
		if g.MaxSplitDepth == 0 {
			g.MaxSplitDepth = cfg.Chunking.MaxSplitDepth
		}
	}
}
