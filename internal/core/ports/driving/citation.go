package driving

import "github.com/custodia-labs/anchor/internal/core/domain"

// CitationService extracts citation markers from assistant output.
// Implementations never fail: malformed markers are left as text.
type CitationService interface {
	// Parse processes complete text.
	Parse(text string, mapping *domain.IDMapping) domain.ParseResult

	// ParsePartial processes a growing prefix of streamed text, holding back
	// a trailing fragment that may still become a citation.
	ParsePartial(text string, mapping *domain.IDMapping) domain.ParseResult

	// StripToolMarkers removes bracketed tool-call markers from text.
	StripToolMarkers(text string) string
}
