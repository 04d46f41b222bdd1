// Package domain defines the core business entities for Anchor.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Entity / EntityTree: user content supplied by the entity source
//   - IDMapping: per-turn short ID <-> persistent ID lookup
//   - Chunk / KnowledgeRecord: embedding-backed slices of entity text
//   - Citation / ParseResult: references parsed out of assistant output
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
