package mcp

import (
	"github.com/custodia-labs/anchor/internal/core/ports/driven"
	"github.com/custodia-labs/anchor/internal/core/ports/driving"
)

// Ports aggregates the services required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Citations parses and resolves citation markers.
	Citations driving.CitationService

	// Retrieval finds indexed chunks. Optional; without it retrieve fails.
	Retrieval driving.RetrievalService

	// Entities supplies the entity tree short IDs are assigned from. Optional.
	Entities driven.EntitySource

	// Prompts supplies the citation system prompt template. Optional.
	Prompts driven.PromptStore
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Citations == nil {
		return ErrMissingCitationService
	}
	return nil
}
