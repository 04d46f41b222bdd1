// Package dedupe drops chunks whose content repeats earlier in the same source.
package dedupe

import (
	"context"

	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Processor removes chunks with a hash already seen in the current source.
// Surviving chunks keep their original ChunkIndex, so indices may have gaps.
type Processor struct{}

// New creates a dedupe processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "dedupe"
}

// Process keeps the first chunk for each hash, in order.
func (p *Processor) Process(_ context.Context, _ *domain.SourceText, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	seen := make(map[string]struct{}, len(chunks))
	out := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if _, dup := seen[c.Hash]; dup {
			continue
		}
		seen[c.Hash] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}
