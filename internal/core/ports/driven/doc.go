// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EntitySource: Supplies the entity tree snapshot for one scope
//   - KnowledgeStore: Chunk + vector persistence (SQLite or in-memory)
//   - ConfigStore: Application configuration
//   - PostProcessor: Chunking pipeline stages
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, indexing is
//     disabled and retrieval falls back to keyword matching.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or postprocessor package
package driven
