package driving

import (
	"context"

	"github.com/custodia-labs/anchor/internal/core/domain"
)

// EmbedOptions configures a single embedding run.
type EmbedOptions struct {
	// Model must match the configured embedding model when set.
	Model string

	// ChunkSize overrides the configured chunk size when positive.
	ChunkSize int

	// Overlap overrides the configured overlap when ChunkSize is set.
	Overlap int
}

// IndexRequest identifies one source text to index.
type IndexRequest struct {
	ScopeID    string
	SourceType domain.EntityKind
	SourceID   string
	Text       string
}

// IndexReport summarises an indexing run.
type IndexReport struct {
	// Sources is the number of entities with text.
	Sources int

	// Chunks is the number of chunks produced.
	Chunks int

	// Skipped is the number of chunks that reused a stored vector with the
	// same hash instead of being embedded again.
	Skipped int

	// Written is the number of chunks embedded and written.
	Written int

	// Removed is the number of stale sources whose records were deleted.
	Removed int
}

// Add accumulates another report.
func (r *IndexReport) Add(other IndexReport) {
	r.Sources += other.Sources
	r.Chunks += other.Chunks
	r.Skipped += other.Skipped
	r.Written += other.Written
	r.Removed += other.Removed
}

// IndexService chunks, embeds and stores entity text.
type IndexService interface {
	// Embed chunks text and embeds every chunk, without writing.
	Embed(ctx context.Context, text string, opts EmbedOptions) ([]domain.EmbeddedChunk, error)

	// Index brings the stored records of one source in line with its text,
	// embedding only chunks whose hash is not stored yet.
	Index(ctx context.Context, req IndexRequest) (IndexReport, error)

	// IndexTree indexes every entity with text in the tree and removes
	// records of sources the tree no longer holds.
	IndexTree(ctx context.Context, tree *domain.EntityTree) (IndexReport, error)
}
