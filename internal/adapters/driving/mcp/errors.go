// Package mcp provides an MCP (Model Context Protocol) server adapter for anchor.
// It lets an assistant fetch its citation context, retrieve citable excerpts
// and validate the citations it emits.
package mcp

import "errors"

// ErrMissingCitationService is returned when the citation service is not provided.
var ErrMissingCitationService = errors.New("mcp: citation service is required")

// ErrNoEntitySource is returned by tools that need the entity tree when none is configured.
var ErrNoEntitySource = errors.New("mcp: entity source not configured")

// ErrNoRetrieval is returned by the retrieve tool when retrieval is not configured.
var ErrNoRetrieval = errors.New("mcp: retrieval service not configured")
