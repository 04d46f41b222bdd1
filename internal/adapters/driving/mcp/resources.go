package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for anchor resources.
	uriScheme = "anchor://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the citable entity context.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "context",
		Name:        "context",
		Description: "The entity tree with the short ID to cite for each entity",
		MIMEType:    "text/plain",
	}, s.handleContextResource)

	// Static resource for the short ID mapping.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "ids",
		Name:        "ids",
		Description: "Short ID to persistent ID mapping for the current entity tree",
		MIMEType:    "application/json",
	}, s.handleIDsResource)

	// Template for one entity's content.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "entities/{shortId}",
		Name:        "entity-content",
		Description: "Full text of the entity with the given short ID",
		MIMEType:    "text/plain",
	}, s.handleEntityResource)
}

// handleContextResource returns the rendered entity context.
func (s *Server) handleContextResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	_, reg, err := s.registry(ctx)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     reg.RenderContext(),
		}},
	}, nil
}

// handleIDsResource returns the short ID mapping as JSON.
func (s *Server) handleIDsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Entities == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "{}",
			}},
		}, nil
	}

	_, reg, err := s.registry(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(reg.Mapping().Reverse, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling ids: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleEntityResource returns the content of one entity.
func (s *Server) handleEntityResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Entities == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract shortId from URI: anchor://entities/{shortId}
	shortID := extractShortID(req.Params.URI)
	if shortID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	_, reg, err := s.registry(ctx)
	if err != nil {
		return nil, err
	}
	entity, ok := reg.Entity(shortID)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     entity.Content(),
		}},
	}, nil
}

// extractShortID extracts the short ID from a URI like anchor://entities/{shortId}.
func extractShortID(uri string) string {
	const prefix = uriScheme + "entities/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
