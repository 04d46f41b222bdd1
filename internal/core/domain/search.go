package domain

// KnowledgeQuery filters a knowledge store lookup.
type KnowledgeQuery struct {
	// Limit is the maximum number of hits.
	Limit int

	// SourceTypes filters to specific entity kinds. Empty means all.
	SourceTypes []EntityKind
}

// Matches reports whether a source type passes the filter.
func (q KnowledgeQuery) Matches(kind EntityKind) bool {
	if len(q.SourceTypes) == 0 {
		return true
	}
	for _, k := range q.SourceTypes {
		if k == kind {
			return true
		}
	}
	return false
}

// KnowledgeHit is one scored record from the knowledge store.
type KnowledgeHit struct {
	// Record is the matched record.
	Record KnowledgeRecord

	// Score is the similarity (cosine) or keyword relevance score.
	Score float64
}

// RetrievalOptions configures a retrieval query.
type RetrievalOptions struct {
	// Limit is the maximum number of results.
	Limit int

	// SourceTypes filters to specific entity kinds.
	SourceTypes []EntityKind

	// KeywordOnly disables vector similarity search.
	KeywordOnly bool
}

// RetrievalResult is a single retrieved chunk.
type RetrievalResult struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the fused relevance score.
	Score float64

	// ShortID is the source entity's short ID for this turn, empty if unknown.
	ShortID string

	// Origin is "keyword", "vector" or "merged".
	Origin string
}
