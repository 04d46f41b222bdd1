package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/anchor/internal/adapters/driven/storage/ranking"
	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/core/ports/driven"
)

// Ensure KnowledgeStore implements the interface.
var _ driven.KnowledgeStore = (*KnowledgeStore)(nil)

// recordKey identifies a record slot: one chunk position of one source.
type recordKey struct {
	scopeID    string
	sourceType domain.EntityKind
	sourceID   string
	chunkIndex int
}

func keyOf(r *domain.KnowledgeRecord) recordKey {
	return recordKey{r.ScopeID, r.SourceType, r.SourceID, r.ChunkIndex}
}

// KnowledgeStore is an in-memory implementation of driven.KnowledgeStore.
// Similarity search is a brute-force cosine scan.
type KnowledgeStore struct {
	mu      sync.RWMutex
	records map[recordKey]domain.KnowledgeRecord
}

// NewKnowledgeStore creates a new in-memory knowledge store.
func NewKnowledgeStore() *KnowledgeStore {
	return &KnowledgeStore{
		records: make(map[recordKey]domain.KnowledgeRecord),
	}
}

// UpsertBatch writes all records or none.
func (s *KnowledgeStore) UpsertBatch(_ context.Context, records []domain.KnowledgeRecord) error {
	if err := validateRecords(records); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(records)
	return nil
}

// ReplaceSource swaps the records of one source for the given set.
func (s *KnowledgeStore) ReplaceSource(_ context.Context, src domain.SourceRef, records []domain.KnowledgeRecord) error {
	if src.ScopeID == "" || src.SourceID == "" {
		return fmt.Errorf("%w: source has no scope or id", domain.ErrInvalidInput)
	}
	if err := validateRecords(records); err != nil {
		return err
	}
	for i := range records {
		if records[i].Ref() != src {
			return fmt.Errorf("%w: record %d belongs to another source", domain.ErrInvalidInput, i)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(src)
	s.putLocked(records)
	return nil
}

func validateRecords(records []domain.KnowledgeRecord) error {
	for i := range records {
		if records[i].ScopeID == "" || records[i].SourceID == "" {
			return fmt.Errorf("%w: record %d has no scope or source", domain.ErrInvalidInput, i)
		}
	}
	return nil
}

func (s *KnowledgeStore) putLocked(records []domain.KnowledgeRecord) {
	for i := range records {
		rec := records[i]
		rec.Vector = append([]float32(nil), rec.Vector...)
		s.records[keyOf(&rec)] = rec
	}
}

func (s *KnowledgeStore) deleteLocked(src domain.SourceRef) {
	for k := range s.records {
		if k.scopeID == src.ScopeID && k.sourceType == src.SourceType && k.sourceID == src.SourceID {
			delete(s.records, k)
		}
	}
}

// FindByHash returns a record in the scope with the hash and model.
func (s *KnowledgeStore) FindByHash(_ context.Context, scopeID, hash, model string) (domain.KnowledgeRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, r := range s.records {
		if k.scopeID == scopeID && r.Hash == hash && r.Model == model {
			r.Vector = append([]float32(nil), r.Vector...)
			return r, true, nil
		}
	}
	return domain.KnowledgeRecord{}, false, nil
}

// SearchSimilar returns the records with the highest cosine similarity.
func (s *KnowledgeStore) SearchSimilar(
	_ context.Context, scopeID string, query []float32, q domain.KnowledgeQuery,
) ([]domain.KnowledgeHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []domain.KnowledgeHit
	for k, r := range s.records {
		if k.scopeID != scopeID || !q.Matches(r.SourceType) || len(r.Vector) != len(query) {
			continue
		}
		hits = append(hits, domain.KnowledgeHit{Record: r, Score: ranking.Cosine(query, r.Vector)})
	}
	return ranking.Top(hits, q.Limit), nil
}

// SearchKeyword returns records containing any query term, scored by the
// fraction of terms matched.
func (s *KnowledgeStore) SearchKeyword(
	_ context.Context, scopeID, query string, q domain.KnowledgeQuery,
) ([]domain.KnowledgeHit, error) {
	terms := ranking.Terms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []domain.KnowledgeHit
	for k, r := range s.records {
		if k.scopeID != scopeID || !q.Matches(r.SourceType) {
			continue
		}
		if score := ranking.KeywordScore(terms, r.Content); score > 0 {
			hits = append(hits, domain.KnowledgeHit{Record: r, Score: score})
		}
	}
	return ranking.Top(hits, q.Limit), nil
}

// Sources lists the distinct sources with records in the scope, sorted.
func (s *KnowledgeStore) Sources(_ context.Context, scopeID string) ([]domain.SourceRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[domain.SourceRef]struct{})
	for k := range s.records {
		if k.scopeID == scopeID {
			seen[domain.SourceRef{ScopeID: k.scopeID, SourceType: k.sourceType, SourceID: k.sourceID}] = struct{}{}
		}
	}

	refs := make([]domain.SourceRef, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].SourceType != refs[j].SourceType {
			return refs[i].SourceType < refs[j].SourceType
		}
		return refs[i].SourceID < refs[j].SourceID
	})
	return refs, nil
}

// DeleteSource removes all records of one source entity.
func (s *KnowledgeStore) DeleteSource(_ context.Context, src domain.SourceRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(src)
	return nil
}

// Count returns the number of records in the scope.
func (s *KnowledgeStore) Count(_ context.Context, scopeID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.records {
		if k.scopeID == scopeID {
			n++
		}
	}
	return n, nil
}

// Close is a no-op for the memory store.
func (s *KnowledgeStore) Close() error {
	return nil
}
