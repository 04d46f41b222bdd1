package domain

import "time"

// SourceText is one entity's text queued for chunking.
// It is the canonical input of the post-processing pipeline.
type SourceText struct {
	// ScopeID identifies the top-level content tree (e.g. one resume).
	ScopeID string

	// SourceType is the entity kind that produced the text.
	SourceType EntityKind

	// SourceID is the persistent ID of the entity.
	SourceID string

	// Content is the full text before chunking.
	Content string
}

// SourceRef identifies one source entity within a scope.
type SourceRef struct {
	ScopeID    string
	SourceType EntityKind
	SourceID   string
}

// Ref returns the source the text belongs to.
func (s *SourceText) Ref() SourceRef {
	return SourceRef{ScopeID: s.ScopeID, SourceType: s.SourceType, SourceID: s.SourceID}
}

// Chunk is a bounded slice of normalised text prepared for embedding.
type Chunk struct {
	// ID is deterministic for a given scope, source, index and hash.
	ID string

	// ScopeID identifies the content tree.
	ScopeID string

	// SourceType is the entity kind of the source.
	SourceType EntityKind

	// SourceID is the persistent ID of the source entity.
	SourceID string

	// Content is the chunk text.
	Content string

	// ChunkIndex is the 0-based order within the source text.
	ChunkIndex int

	// Hash is the content fingerprint used for change detection.
	Hash string
}

// Ref returns the source the chunk belongs to.
func (c *Chunk) Ref() SourceRef {
	return SourceRef{ScopeID: c.ScopeID, SourceType: c.SourceType, SourceID: c.SourceID}
}

// EmbeddingRecord is one vector for one chunk under one model.
type EmbeddingRecord struct {
	// ChunkID links to the embedded chunk.
	ChunkID string

	// Model is the embedding model name.
	Model string

	// Dimension is the vector length declared by the model.
	Dimension int

	// Vector is the embedding.
	Vector []float32
}

// EmbeddedChunk pairs a chunk with its embedding.
type EmbeddedChunk struct {
	Chunk
	Embedding EmbeddingRecord
}

// KnowledgeRecord is a persisted chunk with its vector, as stored in the knowledge store.
type KnowledgeRecord struct {
	Chunk

	// Model is the embedding model name.
	Model string

	// Dimension is the vector length.
	Dimension int

	// Vector is the embedding.
	Vector []float32

	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time
}

// NewKnowledgeRecord builds a record from an embedded chunk.
func NewKnowledgeRecord(ec EmbeddedChunk) KnowledgeRecord {
	return KnowledgeRecord{
		Chunk:     ec.Chunk,
		Model:     ec.Embedding.Model,
		Dimension: ec.Embedding.Dimension,
		Vector:    ec.Embedding.Vector,
	}
}
