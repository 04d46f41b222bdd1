package chunker

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Hash returns a fast, non-cryptographic fingerprint of chunk content.
// It is used only to detect unchanged content and skip re-embedding.
func Hash(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// Hashes returns the fingerprint of each chunk, index-aligned.
func Hashes(chunks []string) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = Hash(c)
	}
	return out
}
