package driving

import (
	"context"

	"github.com/custodia-labs/anchor/internal/core/domain"
)

// RetrievalService finds indexed chunks relevant to a query.
type RetrievalService interface {
	// Retrieve searches one scope. mapping is optional; when given,
	// results carry the source entity's short ID.
	Retrieve(ctx context.Context, scopeID, query string, mapping *domain.IDMapping, opts domain.RetrievalOptions) ([]domain.RetrievalResult, error)
}
