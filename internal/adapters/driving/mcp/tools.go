package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/core/services"
)

const defaultRetrieveLimit = 10

// BuildIDsInput is the input schema for the build_ids tool.
type BuildIDsInput struct {
	WithPrompt bool `json:"with_prompt,omitempty" jsonschema:"also return the full citation system prompt"`
}

// BuildIDsOutput is the output schema for the build_ids tool.
type BuildIDsOutput struct {
	ScopeID string            `json:"scope_id"`
	IDs     map[string]string `json:"ids"`
	Count   int               `json:"count"`
	Context string            `json:"context"`
	Prompt  string            `json:"prompt,omitempty"`
}

// ParseInput is the input schema for the parse_citations tool.
type ParseInput struct {
	Text       string            `json:"text" jsonschema:"assistant output containing citation markers"`
	Partial    bool              `json:"partial,omitempty" jsonschema:"text is an incomplete stream prefix"`
	IDs        map[string]string `json:"ids,omitempty" jsonschema:"short ID to persistent ID mapping; defaults to the current entity tree"`
	StripTools bool              `json:"strip_tools,omitempty" jsonschema:"remove tool-call markers before parsing"`
}

// ParseOutput is the output schema for the parse_citations tool.
type ParseOutput struct {
	NormalizedText string                  `json:"normalized_text"`
	Citations      []domain.CitationRecord `json:"citations"`
	Pending        string                  `json:"pending,omitempty"`
	Stats          domain.MonitorSnapshot  `json:"stats"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query       string   `json:"query" jsonschema:"what to look for"`
	ScopeID     string   `json:"scope_id,omitempty" jsonschema:"scope to search; defaults to the current entity tree"`
	Limit       int      `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	KeywordOnly bool     `json:"keyword_only,omitempty" jsonschema:"skip vector search"`
	Kinds       []string `json:"kinds,omitempty" jsonschema:"entity kinds to include"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Results []RetrieveResultOutput `json:"results"`
	Count   int                    `json:"count"`
}

// RetrieveResultOutput represents a single retrieved chunk.
type RetrieveResultOutput struct {
	ShortID    string  `json:"short_id,omitempty"`
	SourceType string  `json:"source_type"`
	SourceID   string  `json:"source_id"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Origin     string  `json:"origin"`
	Content    string  `json:"content"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "build_ids",
		Description: "Assign short citation IDs to the current entity tree and return the citable context",
	}, s.handleBuildIDs)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "parse_citations",
		Description: "Extract and resolve citation markers from assistant output",
	}, s.handleParse)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve indexed excerpts relevant to a query, tagged with citable short IDs",
	}, s.handleRetrieve)
}

// handleBuildIDs handles the build_ids tool invocation.
func (s *Server) handleBuildIDs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input BuildIDsInput,
) (*mcp.CallToolResult, BuildIDsOutput, error) {
	tree, reg, err := s.registry(ctx)
	if err != nil {
		return nil, BuildIDsOutput{}, err
	}

	output := BuildIDsOutput{
		ScopeID: tree.ScopeID,
		IDs:     reg.Mapping().Reverse,
		Count:   reg.Len(),
		Context: reg.RenderContext(),
	}

	if input.WithPrompt && s.ports.Prompts != nil {
		prompt, err := services.SystemPrompt(s.ports.Prompts, reg)
		if err != nil {
			return nil, BuildIDsOutput{}, err
		}
		output.Prompt = prompt
	}

	return nil, output, nil
}

// handleParse handles the parse_citations tool invocation.
func (s *Server) handleParse(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ParseInput,
) (*mcp.CallToolResult, ParseOutput, error) {
	mapping, err := s.parseMapping(ctx, input.IDs)
	if err != nil {
		return nil, ParseOutput{}, err
	}

	text := input.Text
	if input.StripTools {
		text = s.ports.Citations.StripToolMarkers(text)
	}

	var result domain.ParseResult
	if input.Partial {
		result = s.ports.Citations.ParsePartial(text, mapping)
	} else {
		result = s.ports.Citations.Parse(text, mapping)
	}

	monitor := services.NewCitationMonitor(mapping)
	monitor.Observe(text)

	return nil, ParseOutput{
		NormalizedText: result.NormalizedText,
		Citations:      result.Records(),
		Pending:        result.Pending,
		Stats:          monitor.Snapshot(),
	}, nil
}

// parseMapping uses the caller's mapping when given, else the current tree.
// Without either, citations are returned unresolved.
func (s *Server) parseMapping(ctx context.Context, ids map[string]string) (*domain.IDMapping, error) {
	if len(ids) > 0 {
		return mappingFromReverse(ids), nil
	}
	_, reg, err := s.registry(ctx)
	if errors.Is(err, ErrNoEntitySource) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reg.Mapping(), nil
}

// mappingFromReverse builds a two-way mapping from short to persistent IDs.
// Every short ID resolves; a persistent ID listed under several short IDs
// maps forward to the first of them in sorted order.
func mappingFromReverse(ids map[string]string) *domain.IDMapping {
	m := domain.NewIDMapping()
	for sid, pid := range ids {
		m.Reverse[sid] = pid
		if prev, ok := m.Forward[pid]; ok && prev < sid {
			continue
		}
		m.Forward[pid] = sid
	}
	return m
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if s.ports.Retrieval == nil {
		return nil, RetrieveOutput{}, ErrNoRetrieval
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultRetrieveLimit
	}

	kinds := make([]domain.EntityKind, 0, len(input.Kinds))
	for _, k := range input.Kinds {
		kind := domain.EntityKind(k)
		if !kind.IsValid() {
			return nil, RetrieveOutput{}, fmt.Errorf("%w: unknown entity kind %q", domain.ErrInvalidInput, k)
		}
		kinds = append(kinds, kind)
	}

	scopeID := input.ScopeID
	var mapping *domain.IDMapping
	if tree, reg, err := s.registry(ctx); err == nil {
		mapping = reg.Mapping()
		if scopeID == "" {
			scopeID = tree.ScopeID
		}
	} else if !errors.Is(err, ErrNoEntitySource) {
		return nil, RetrieveOutput{}, err
	}
	if scopeID == "" {
		return nil, RetrieveOutput{}, fmt.Errorf("%w: scope_id is required", domain.ErrInvalidInput)
	}

	opts := domain.RetrievalOptions{
		Limit:       limit,
		SourceTypes: kinds,
		KeywordOnly: input.KeywordOnly,
	}
	results, err := s.ports.Retrieval.Retrieve(ctx, scopeID, input.Query, mapping, opts)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Results: make([]RetrieveResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = RetrieveResultOutput{
			ShortID:    results[i].ShortID,
			SourceType: results[i].Chunk.SourceType.String(),
			SourceID:   results[i].Chunk.SourceID,
			ChunkIndex: results[i].Chunk.ChunkIndex,
			Score:      results[i].Score,
			Origin:     results[i].Origin,
			Content:    results[i].Chunk.Content,
		}
	}

	return nil, output, nil
}
