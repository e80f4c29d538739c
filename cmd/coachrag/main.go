package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"coachrag/internal/app"
	"coachrag/internal/config"
	"coachrag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to config.yaml (default: ./config.yaml, then ~/.config/coachrag/config.yaml)")
	sourcePath := flag.String("source", "", "override transcript source path")
	limit := flag.Int("limit", 0, "override max transcripts to ingest")
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
	if *sourcePath != "" {
		cfg.Source.Path = *sourcePath
	}
	if *limit > 0 {
		cfg.Source.Limit = *limit
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger *slog.Logger) error {
	ctx := context.Background()

	source, closeSource, err := app.BuildSource(cfg.Source)
	if err != nil {
		return fmt.Errorf("open transcript source: %w", err)
	}
	defer closeSource()

	records, err := source.Fetch(ctx, cfg.Source.Limit)
	if err != nil {
		return fmt.Errorf("fetch transcripts: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no transcripts found at %s", cfg.Source.Path)
	}
	logger.Info("loaded transcripts", "count", len(records))

	svc, err := app.BuildService(cfg, cfg.Chunking, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Indexing %d transcripts...\n", len(records))
	report, err := svc.Ingest(ctx, records)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	logger.Info("ingest complete",
		"transcripts", report.Transcripts,
		"empty", report.EmptyTranscripts,
		"chunks", report.Chunks,
		"parents", report.ParentChunks,
		"dropped", report.DroppedChunks,
		"refiner_fallbacks", report.RefinerFallbacks,
	)

	model := tui.New(svc, report.Summary)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
