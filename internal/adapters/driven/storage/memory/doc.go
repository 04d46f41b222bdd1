// Package memory provides in-memory implementations of the driven storage
// ports. They are used in tests and by the "memory" storage backend.
package memory
