package evaluation

import (
	"context"
	"fmt"

	"coachrag/internal/config"
	"coachrag/internal/domain"
)

// ServiceFactory builds a fresh RAG service for one set of chunking
// parameters. The grid search re-ingests the corpus through each.
type ServiceFactory func(cfg config.ChunkingConfig) (domain.RAGService, error)

// GridResult is the outcome of evaluating one parameter set. Quality
// holds the judge's averaged metrics and is nil when no judge is set.
type GridResult struct {
	Params  config.ChunkingConfig
	Ingest  domain.IngestReport
	Report  RetrievalReport
	Quality map[string]float64
}

// GridSearch evaluates retrieval quality for every parameter set in the
// grid, plus answer quality when a judge is provided. A parameter set
// that fails to build or ingest aborts the search; an invalid set would
// invalidate any comparison across the grid.
func GridSearch(ctx context.Context, records []domain.TranscriptRecord, grid []config.ChunkingConfig, factory ServiceFactory, ds *Dataset, k int, judge Judge) ([]GridResult, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("empty parameter grid")
	}
	results := make([]GridResult, 0, len(grid))
	for _, params := range grid {
		svc, err := factory(params)
		if err != nil {
			return results, fmt.Errorf("build service for max=%d min=%d overlap=%d: %w",
				params.MaxChunkSize, params.MinChunkSize, params.ChunkOverlap, err)
		}
		ingest, err := svc.Ingest(ctx, records)
		if err != nil {
			return results, fmt.Errorf("ingest for max=%d min=%d overlap=%d: %w",
				params.MaxChunkSize, params.MinChunkSize, params.ChunkOverlap, err)
		}
		report, err := EvaluateRetrieval(svc, ds, k)
		if err != nil {
			return results, err
		}
		res := GridResult{Params: params, Ingest: ingest, Report: report}
		if judge != nil {
			res.Quality, err = EvaluateAnswers(svc, judge, ds, k)
			if err != nil {
				return results, err
			}
		}
		results = append(results, res)
	}
	return results, nil
}
