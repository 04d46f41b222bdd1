// Package chunker provides paragraph-aware text chunking with overlap.
package chunker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// chunkNamespace seeds deterministic chunk IDs.
var chunkNamespace = uuid.MustParse("6f1c2a43-5b0e-4d7a-9a39-1f4e8b2c7d10")

// Processor splits source text into chunks.
// It implements the PostProcessor interface.
type Processor struct {
	opts Options
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.opts.ChunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.opts.Overlap = overlap
		}
	}
}

// WithNormalizeWhitespace enables or disables whitespace collapsing.
func WithNormalizeWhitespace(enabled bool) Option {
	return func(p *Processor) {
		p.opts.NormalizeWhitespace = enabled
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{opts: DefaultOptions()}

	for _, opt := range opts {
		opt(p)
	}

	p.opts = p.opts.Clamped()
	return p
}

// Options returns the effective (clamped) options.
func (p *Processor) Options() Options {
	return p.opts
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the source content into chunks.
// Input chunks are ignored; this processor creates new chunks from source content.
func (p *Processor) Process(_ context.Context, src *domain.SourceText, _ []domain.Chunk) ([]domain.Chunk, error) {
	contents := Split(src.Content, p.opts)
	if len(contents) == 0 {
		// Empty content produces no chunks
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, len(contents))
	for i, content := range contents {
		hash := Hash(content)
		chunks = append(chunks, domain.Chunk{
			ID:         ChunkID(src, i, hash),
			ScopeID:    src.ScopeID,
			SourceType: src.SourceType,
			SourceID:   src.SourceID,
			Content:    content,
			ChunkIndex: i,
			Hash:       hash,
		})
	}

	return chunks, nil
}

// ChunkID derives a stable chunk ID, so re-chunking identical text yields identical IDs.
func ChunkID(src *domain.SourceText, index int, hash string) string {
	name := fmt.Sprintf("%s/%s/%s/%d/%s", src.ScopeID, src.SourceType, src.SourceID, index, hash)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}
