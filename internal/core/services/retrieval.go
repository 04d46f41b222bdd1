package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/core/ports/driven"
	"github.com/custodia-labs/anchor/internal/core/ports/driving"
	"github.com/custodia-labs/anchor/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

const (
	defaultRetrievalLimit = 10
	rrfK                  = 60
)

// Result origins.
const (
	OriginKeyword = "keyword"
	OriginVector  = "vector"
	OriginMerged  = "merged"
)

// scoredHit holds an intermediate hit before fusion.
type scoredHit struct {
	record domain.KnowledgeRecord
	score  float64
	origin string
}

// RetrievalService provides hybrid retrieval over the knowledge store.
type RetrievalService struct {
	store    driven.KnowledgeStore
	embedder driven.EmbeddingService
}

// NewRetrievalService creates a retrieval service.
// embedder is optional; without it retrieval is keyword-only.
func NewRetrievalService(store driven.KnowledgeStore, embedder driven.EmbeddingService) *RetrievalService {
	return &RetrievalService{
		store:    store,
		embedder: embedder,
	}
}

// Retrieve returns the chunks of one scope most relevant to query.
// Vector and keyword hits are merged with reciprocal rank fusion; if either
// search fails the other's results are used alone.
func (s *RetrievalService) Retrieve(
	ctx context.Context, scopeID, query string, mapping *domain.IDMapping, opts domain.RetrievalOptions,
) ([]domain.RetrievalResult, error) {
	logger.Section("Retrieval")

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.RetrievalResult{}, nil
	}
	if s.store == nil {
		return nil, domain.ErrKnowledgeStoreUnavailable
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultRetrievalLimit
	}
	q := domain.KnowledgeQuery{Limit: limit * 2, SourceTypes: opts.SourceTypes}

	useVector := s.embedder != nil && !opts.KeywordOnly
	logger.Debug("Query: %q, scope: %s, limit: %d, vector: %t", query, scopeID, limit, useVector)

	var hits []scoredHit
	var err error
	if useVector {
		hits, err = s.hybrid(ctx, scopeID, query, q)
	} else {
		hits, err = s.keyword(ctx, scopeID, query, q)
	}
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]domain.RetrievalResult, len(hits))
	for i, h := range hits {
		results[i] = domain.RetrievalResult{
			Chunk:  h.record.Chunk,
			Score:  h.score,
			Origin: h.origin,
		}
		if mapping != nil {
			results[i].ShortID = mapping.Forward[h.record.SourceID]
		}
	}

	logger.Info("Retrieved %d chunks", len(results))
	return results, nil
}

func (s *RetrievalService) keyword(
	ctx context.Context, scopeID, query string, q domain.KnowledgeQuery,
) ([]scoredHit, error) {
	hits, err := s.store.SearchKeyword(ctx, scopeID, query, q)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	logger.Debug("Keyword search: %d hits", len(hits))
	return toScored(hits, OriginKeyword), nil
}

func (s *RetrievalService) vector(
	ctx context.Context, scopeID, query string, q domain.KnowledgeQuery,
) ([]scoredHit, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrEmbeddingCountMismatch)
	}

	hits, err := s.store.SearchSimilar(ctx, scopeID, embedding, q)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Vector search: %d hits", len(hits))
	return toScored(hits, OriginVector), nil
}

// hybrid runs keyword and vector searches in parallel and fuses them.
func (s *RetrievalService) hybrid(
	ctx context.Context, scopeID, query string, q domain.KnowledgeQuery,
) ([]scoredHit, error) {
	var keywordHits, vectorHits []scoredHit
	var keywordErr, vectorErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		keywordHits, keywordErr = s.keyword(ctx, scopeID, query, q)
	}()
	go func() {
		defer wg.Done()
		vectorHits, vectorErr = s.vector(ctx, scopeID, query, q)
	}()
	wg.Wait()

	switch {
	case keywordErr != nil && vectorErr != nil:
		return nil, errors.Join(keywordErr, vectorErr)
	case keywordErr != nil:
		logger.Warn("Keyword search failed, using vector results only: %v", keywordErr)
		return vectorHits, nil
	case vectorErr != nil:
		logger.Warn("Vector search failed, using keyword results only: %v", vectorErr)
		return keywordHits, nil
	}

	return reciprocalRankFusion(keywordHits, vectorHits, rrfK), nil
}

func toScored(hits []domain.KnowledgeHit, origin string) []scoredHit {
	out := make([]scoredHit, len(hits))
	for i, h := range hits {
		out[i] = scoredHit{record: h.Record, score: h.Score, origin: origin}
	}
	return out
}

// reciprocalRankFusion merges ranked lists. k damps the weight of top ranks.
// Ties are broken by chunk ID so results are deterministic.
func reciprocalRankFusion(keywordHits, vectorHits []scoredHit, k int) []scoredHit {
	merged := make(map[string]*scoredHit)
	var order []string

	for _, list := range [][]scoredHit{keywordHits, vectorHits} {
		for rank, h := range list {
			rrf := 1.0 / float64(k+rank+1)
			id := h.record.ID
			if existing, ok := merged[id]; ok {
				existing.score += rrf
				if existing.origin != h.origin {
					existing.origin = OriginMerged
				}
				continue
			}
			merged[id] = &scoredHit{record: h.record, score: rrf, origin: h.origin}
			order = append(order, id)
		}
	}

	results := make([]scoredHit, 0, len(order))
	for _, id := range order {
		results = append(results, *merged[id])
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].record.ID < results[j].record.ID
	})
	return results
}
