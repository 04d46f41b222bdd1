package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/core/ports/driven"
)

// stubEmbedder implements driven.EmbeddingService for testing.
// By default it returns one vector per text, derived from the text length.
type stubEmbedder struct {
	mu       sync.Mutex
	dims     int
	model    string
	drop     int
	emptyAt  int
	wrongAt  int
	embedErr error
	calls    int
	texts    [][]string
}

var _ driven.EmbeddingService = (*stubEmbedder)(nil)

func newStubEmbedder(dims int) *stubEmbedder {
	return &stubEmbedder{dims: dims, model: "stub-embed", emptyAt: -1, wrongAt: -1}
}

func (s *stubEmbedder) vector(text string) []float32 {
	v := make([]float32, s.dims)
	for i := range v {
		v[i] = float32(len(text)%7+i) + 1
	}
	return v
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	return s.vector(text), nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	s.calls++
	s.texts = append(s.texts, texts)
	s.mu.Unlock()

	if s.embedErr != nil {
		return nil, s.embedErr
	}

	out := make([][]float32, 0, len(texts))
	for i, t := range texts {
		switch i {
		case s.emptyAt:
			out = append(out, []float32{})
		case s.wrongAt:
			out = append(out, make([]float32, s.dims+1))
		default:
			out = append(out, s.vector(t))
		}
	}
	if s.drop > 0 && len(out) >= s.drop {
		out = out[:len(out)-s.drop]
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int              { return s.dims }
func (s *stubEmbedder) ModelName() string            { return s.model }
func (s *stubEmbedder) Ping(_ context.Context) error { return nil }
func (s *stubEmbedder) Close() error                 { return nil }

// failingStore wraps a KnowledgeStore and fails selected operations.
type failingStore struct {
	driven.KnowledgeStore
	writeErr   error
	keywordErr error
	vectorErr  error
	writes     int
}

func (f *failingStore) ReplaceSource(ctx context.Context, src domain.SourceRef, records []domain.KnowledgeRecord) error {
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.KnowledgeStore.ReplaceSource(ctx, src, records)
}

func (f *failingStore) SearchKeyword(
	ctx context.Context, scopeID, query string, q domain.KnowledgeQuery,
) ([]domain.KnowledgeHit, error) {
	if f.keywordErr != nil {
		return nil, f.keywordErr
	}
	return f.KnowledgeStore.SearchKeyword(ctx, scopeID, query, q)
}

func (f *failingStore) SearchSimilar(
	ctx context.Context, scopeID string, query []float32, q domain.KnowledgeQuery,
) ([]domain.KnowledgeHit, error) {
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}
	return f.KnowledgeStore.SearchSimilar(ctx, scopeID, query, q)
}
