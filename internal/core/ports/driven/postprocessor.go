package driven

import (
	"context"

	"github.com/custodia-labs/anchor/internal/core/domain"
)

// PostProcessor turns source text into chunks.
// PostProcessors are chained in a pipeline (e.g., chunking, deduplication).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes source text and returns chunks.
	// A creating processor (chunker) receives nil and returns new chunks;
	// later processors receive and may filter or modify chunks.
	Process(ctx context.Context, src *domain.SourceText, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the source through all processors in order.
	Process(ctx context.Context, src *domain.SourceText) ([]domain.Chunk, error)
}

// PipelineBuilder constructs a processing pipeline from configuration.
type PipelineBuilder interface {
	// BuildPipeline creates a pipeline with the processors named in cfg.
	BuildPipeline(cfg domain.PipelineConfig) (PostProcessorPipeline, error)
}
