package driven

import (
	"context"

	"github.com/custodia-labs/anchor/internal/core/domain"
)

// KnowledgeStore persists embedded chunks scoped per content tree.
// It is queryable by vector similarity and by keyword.
type KnowledgeStore interface {
	// ReplaceSource atomically makes records the complete set stored for one
	// source: each record is upserted at its chunk index and every other
	// record of the source is removed. Every record must belong to the source.
	ReplaceSource(ctx context.Context, src domain.SourceRef, records []domain.KnowledgeRecord) error

	// FindByHash returns a record in the scope with the given content hash
	// embedded by model. The boolean is false when there is none.
	FindByHash(ctx context.Context, scopeID, hash, model string) (domain.KnowledgeRecord, bool, error)

	// SearchSimilar returns the records nearest to the query vector.
	SearchSimilar(ctx context.Context, scopeID string, query []float32, q domain.KnowledgeQuery) ([]domain.KnowledgeHit, error)

	// SearchKeyword returns records whose content matches the query terms.
	SearchKeyword(ctx context.Context, scopeID, query string, q domain.KnowledgeQuery) ([]domain.KnowledgeHit, error)

	// Sources lists the distinct sources with records in the scope.
	Sources(ctx context.Context, scopeID string) ([]domain.SourceRef, error)

	// DeleteSource removes all records of one source entity.
	DeleteSource(ctx context.Context, src domain.SourceRef) error

	// Count returns the number of records in the scope.
	Count(ctx context.Context, scopeID string) (int, error)

	// Close releases resources.
	Close() error
}
