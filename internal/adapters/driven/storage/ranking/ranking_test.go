package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/anchor/internal/core/domain"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"go", "kubernetes", "2024"}, Terms("Go, Kubernetes; go! 2024"))
	assert.Empty(t, Terms("  ,; "))
}

func TestKeywordScore(t *testing.T) {
	terms := Terms("latency cache")

	assert.Equal(t, 1.0, KeywordScore(terms, "Cut LATENCY with a cache"))
	assert.Equal(t, 0.5, KeywordScore(terms, "Cut latency"))
	assert.Equal(t, 0.0, KeywordScore(terms, "unrelated"))
	assert.Equal(t, 0.0, KeywordScore(nil, "anything"))
}

func TestTop(t *testing.T) {
	hit := func(id string, score float64) domain.KnowledgeHit {
		return domain.KnowledgeHit{Record: domain.KnowledgeRecord{Chunk: domain.Chunk{ID: id}}, Score: score}
	}
	hits := []domain.KnowledgeHit{hit("b", 0.5), hit("a", 0.5), hit("c", 0.9), hit("d", 0.1)}

	top := Top(hits, 3)

	assert.Len(t, top, 3)
	assert.Equal(t, "c", top[0].Record.ID)
	assert.Equal(t, "a", top[1].Record.ID)
	assert.Equal(t, "b", top[2].Record.ID)
}
