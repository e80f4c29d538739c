package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"coachrag/internal/app"
	"coachrag/internal/config"
	"coachrag/internal/domain"
	"coachrag/internal/evaluation"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to config.yaml")
	datasetPath := flag.String("dataset", "", "override eval dataset path")
	sourcePath := flag.String("source", "", "override transcript source path")
	topK := flag.Int("k", 0, "override retrieval depth")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var (
		cfg *config.AppConfig
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *datasetPath != "" {
		cfg.Eval.DatasetPath = *datasetPath
	}
	if *sourcePath != "" {
		cfg.Source.Path = *sourcePath
	}
	if *topK > 0 {
		cfg.Eval.TopK = *topK
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger *slog.Logger) error {
	ctx := context.Background()

	ds, err := evaluation.LoadDataset(cfg.Eval.DatasetPath)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	source, closeSource, err := app.BuildSource(cfg.Source)
	if err != nil {
		return fmt.Errorf("open transcript source: %w", err)
	}
	defer closeSource()

	records, err := source.Fetch(ctx, cfg.Source.Limit)
	if err != nil {
		return fmt.Errorf("fetch transcripts: %w", err)
	}
	logger.Info("evaluating", "transcripts", len(records), "questions", len(ds.Questions), "k", cfg.Eval.TopK)

	grid := cfg.Eval.Grid
	if len(grid) == 0 {
		grid = []config.ChunkingConfig{cfg.Chunking}
	}

	factory := func(chunkCfg config.ChunkingConfig) (domain.RAGService, error) {
		return app.BuildService(cfg, chunkCfg, logger)
	}
	results, err := evaluation.GridSearch(ctx, records, grid, factory, ds, cfg.Eval.TopK, evaluation.LexicalJudge{})
	if err != nil {
		return err
	}

	fmt.Printf("%-8s %-8s %-8s %-10s %-8s %-10s %-10s %-10s %-10s\n",
		"max", "min", "overlap", "chunks", "dropped", "prec@k", "rec@k", "relev", "faith")
	for _, r := range results {
		fmt.Printf("%-8d %-8d %-8d %-10d %-8d %-10.3f %-10.3f %-10.3f %-10.3f\n",
			r.Params.MaxChunkSize, r.Params.MinChunkSize, r.Params.ChunkOverlap,
			r.Ingest.Chunks, r.Ingest.DroppedChunks,
			r.Report.Precision, r.Report.Recall,
			r.Quality["contextual_relevancy"], r.Quality["faithfulness"])
	}
	return nil
}
