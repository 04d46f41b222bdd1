package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/core/ports/driven"
	"github.com/custodia-labs/anchor/internal/core/ports/driving"
	"github.com/custodia-labs/anchor/internal/logger"
)

// Ensure EmbeddingPipeline implements the interface.
var _ driving.IndexService = (*EmbeddingPipeline)(nil)

var pipelineLog = logger.For("pipeline")

// EmbeddingPipeline chunks text, embeds the chunks in one batch and writes
// them to the knowledge store. It either returns a complete, index-aligned
// result or fails. It never retries and never writes a partial batch.
type EmbeddingPipeline struct {
	builder  driven.PipelineBuilder
	chunking domain.ChunkSettings
	embedder driven.EmbeddingService
	store    driven.KnowledgeStore
	now      func() time.Time
}

// NewEmbeddingPipeline creates an embedding pipeline.
// embedder and store may be nil; operations needing them then fail with
// ErrEmbeddingUnavailable or ErrKnowledgeStoreUnavailable.
func NewEmbeddingPipeline(
	builder driven.PipelineBuilder,
	chunking domain.ChunkSettings,
	embedder driven.EmbeddingService,
	store driven.KnowledgeStore,
) *EmbeddingPipeline {
	return &EmbeddingPipeline{
		builder:  builder,
		chunking: chunking,
		embedder: embedder,
		store:    store,
		now:      time.Now,
	}
}

// Embed chunks text and embeds every chunk without writing anything.
// Text without content yields no chunks and no error.
func (p *EmbeddingPipeline) Embed(
	ctx context.Context, text string, opts driving.EmbedOptions,
) ([]domain.EmbeddedChunk, error) {
	chunks, err := p.chunk(ctx, &domain.SourceText{Content: text}, opts)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []domain.EmbeddedChunk{}, nil
	}

	if err := p.checkEmbedder(opts.Model); err != nil {
		return nil, err
	}
	return p.embed(ctx, chunks)
}

// Index makes the stored records of one source match its current text.
// Chunks whose hash is already stored in the scope under the configured
// model reuse that vector; only the rest are embedded, in one batch. The
// source's records are then replaced in a single write, so chunks that
// moved keep a row at their new index and chunks that disappeared are
// removed. Text without content removes the source's records.
func (p *EmbeddingPipeline) Index(ctx context.Context, req driving.IndexRequest) (driving.IndexReport, error) {
	var report driving.IndexReport

	if p.store == nil {
		return report, domain.ErrKnowledgeStoreUnavailable
	}
	if req.ScopeID == "" || req.SourceID == "" {
		return report, fmt.Errorf("%w: scope and source id are required", domain.ErrInvalidInput)
	}

	src := &domain.SourceText{
		ScopeID:    req.ScopeID,
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		Content:    req.Text,
	}
	chunks, err := p.chunk(ctx, src, driving.EmbedOptions{})
	if err != nil {
		return report, err
	}
	if len(chunks) == 0 {
		if err := p.store.DeleteSource(ctx, src.Ref()); err != nil {
			return report, fmt.Errorf("clear source: %w", err)
		}
		return report, nil
	}

	if err := p.checkEmbedder(""); err != nil {
		return report, err
	}
	report.Sources = 1
	report.Chunks = len(chunks)

	model := p.embedder.ModelName()
	records := make([]domain.KnowledgeRecord, len(chunks))
	fresh := make([]int, 0, len(chunks))
	for i, c := range chunks {
		stored, found, err := p.store.FindByHash(ctx, c.ScopeID, c.Hash, model)
		if err != nil {
			return report, fmt.Errorf("check chunk %d: %w", c.ChunkIndex, err)
		}
		if !found || !p.reusable(stored) {
			fresh = append(fresh, i)
			continue
		}
		records[i] = domain.KnowledgeRecord{
			Chunk:     c,
			Model:     stored.Model,
			Dimension: stored.Dimension,
			Vector:    stored.Vector,
		}
		report.Skipped++
	}

	if len(fresh) > 0 {
		pending := make([]domain.Chunk, len(fresh))
		for j, i := range fresh {
			pending[j] = chunks[i]
		}
		embedded, err := p.embed(ctx, pending)
		if err != nil {
			return report, err
		}
		for j, i := range fresh {
			records[i] = domain.NewKnowledgeRecord(embedded[j])
		}
	}

	now := p.now()
	for i := range records {
		records[i].UpdatedAt = now
	}
	if err := p.store.ReplaceSource(ctx, src.Ref(), records); err != nil {
		return report, fmt.Errorf("write chunks: %w", err)
	}

	report.Written = len(fresh)
	pipelineLog.Debug("%s/%s: %d chunks, %d embedded, %d reused",
		req.SourceType, req.SourceID, report.Chunks, report.Written, report.Skipped)
	return report, nil
}

// reusable reports whether a stored vector fits the configured embedder.
func (p *EmbeddingPipeline) reusable(stored domain.KnowledgeRecord) bool {
	if len(stored.Vector) == 0 {
		return false
	}
	dim := p.embedder.Dimensions()
	return dim == 0 || len(stored.Vector) == dim
}

// IndexTree indexes every entity in the tree that has text, then removes
// the records of sources in the scope that the tree no longer holds with
// text. It stops at the first failing entity without removing anything.
func (p *EmbeddingPipeline) IndexTree(ctx context.Context, tree *domain.EntityTree) (driving.IndexReport, error) {
	var total driving.IndexReport
	if tree == nil {
		return total, nil
	}
	if p.store == nil {
		return total, domain.ErrKnowledgeStoreUnavailable
	}

	logger.Section("Indexing")
	current := make(map[domain.SourceRef]struct{})
	var walkErr error
	tree.Walk(func(e *domain.Entity) bool {
		if e.ID == "" || !e.Kind.IsValid() || e.Content() == "" {
			return true
		}
		report, err := p.Index(ctx, driving.IndexRequest{
			ScopeID:    tree.ScopeID,
			SourceType: e.Kind,
			SourceID:   e.ID,
			Text:       e.Content(),
		})
		if err != nil {
			walkErr = fmt.Errorf("index %s %s: %w", e.Kind, e.ID, err)
			return false
		}
		if report.Chunks > 0 {
			current[domain.SourceRef{ScopeID: tree.ScopeID, SourceType: e.Kind, SourceID: e.ID}] = struct{}{}
		}
		total.Add(report)
		return true
	})
	if walkErr != nil {
		return total, walkErr
	}

	removed, err := p.prune(ctx, tree.ScopeID, current)
	total.Removed += removed
	if err != nil {
		return total, err
	}

	logger.Info("Indexed %d sources: %d chunks, %d embedded, %d unchanged, %d removed",
		total.Sources, total.Chunks, total.Written, total.Skipped, total.Removed)
	return total, nil
}

// prune deletes every stored source of the scope not in keep.
func (p *EmbeddingPipeline) prune(ctx context.Context, scopeID string, keep map[domain.SourceRef]struct{}) (int, error) {
	stored, err := p.store.Sources(ctx, scopeID)
	if err != nil {
		return 0, fmt.Errorf("list sources: %w", err)
	}

	removed := 0
	for _, ref := range stored {
		if _, ok := keep[ref]; ok {
			continue
		}
		if err := p.store.DeleteSource(ctx, ref); err != nil {
			return removed, fmt.Errorf("remove %s %s: %w", ref.SourceType, ref.SourceID, err)
		}
		pipelineLog.Debug("removed stale source %s/%s", ref.SourceType, ref.SourceID)
		removed++
	}
	return removed, nil
}

func (p *EmbeddingPipeline) checkEmbedder(model string) error {
	if p.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}
	if model != "" && model != p.embedder.ModelName() {
		return fmt.Errorf("%w: requested %q, configured %q", domain.ErrModelMismatch, model, p.embedder.ModelName())
	}
	return nil
}

// chunk runs the post-processing pipeline with per-call chunk overrides.
func (p *EmbeddingPipeline) chunk(
	ctx context.Context, src *domain.SourceText, opts driving.EmbedOptions,
) ([]domain.Chunk, error) {
	settings := p.chunking
	if opts.ChunkSize > 0 {
		settings.Size = opts.ChunkSize
		settings.Overlap = opts.Overlap
	}

	pipeline, err := p.builder.BuildPipeline(domain.PipelineConfigFor(settings))
	if err != nil {
		return nil, fmt.Errorf("build chunk pipeline: %w", err)
	}
	chunks, err := pipeline.Process(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("chunk source: %w", err)
	}
	return chunks, nil
}

// embed sends all chunks in one batch and validates the response.
func (p *EmbeddingPipeline) embed(ctx context.Context, chunks []domain.Chunk) ([]domain.EmbeddedChunk, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	pipelineLog.Debug("embedding %d chunks with %s", len(texts), p.embedder.ModelName())
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	dim, err := validateEmbeddings(vectors, len(chunks), p.embedder.Dimensions())
	if err != nil {
		return nil, err
	}

	model := p.embedder.ModelName()
	out := make([]domain.EmbeddedChunk, len(chunks))
	for i, c := range chunks {
		out[i] = domain.EmbeddedChunk{
			Chunk: c,
			Embedding: domain.EmbeddingRecord{
				ChunkID:   c.ID,
				Model:     model,
				Dimension: dim,
				Vector:    vectors[i],
			},
		}
	}
	return out, nil
}

// validateEmbeddings checks a batch response against the request and the
// declared model dimension. A declared dimension of 0 means unknown, in which
// case every vector must match the first. It returns the vector dimension.
func validateEmbeddings(vectors [][]float32, want, declared int) (int, error) {
	if len(vectors) != want {
		return 0, fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbeddingCountMismatch, len(vectors), want)
	}

	dim := declared
	for i, v := range vectors {
		if len(v) == 0 {
			return 0, fmt.Errorf("%w: vector %d is empty", domain.ErrEmbeddingCountMismatch, i)
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				domain.ErrEmbeddingDimensionMismatch, i, len(v), dim)
		}
	}
	return dim, nil
}
