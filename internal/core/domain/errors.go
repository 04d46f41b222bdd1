package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or backend type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Vector retrieval and indexing are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrKnowledgeStoreUnavailable indicates the knowledge store is not configured.
	ErrKnowledgeStoreUnavailable = errors.New("knowledge store unavailable")

	// Embedding contract violations. These are fatal and never retried.

	// ErrEmbeddingCountMismatch indicates the provider returned a different number
	// of vectors than chunks submitted, or an empty vector.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")

	// ErrEmbeddingDimensionMismatch indicates a vector length differs from the
	// declared model dimension.
	ErrEmbeddingDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrModelMismatch indicates the requested embedding model is not the configured one.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
