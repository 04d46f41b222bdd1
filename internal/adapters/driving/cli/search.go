package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/core/services"
	"github.com/custodia-labs/anchor/internal/logger"
)

var (
	searchLimit       int
	searchJSON        bool
	searchKeywordOnly bool
	searchPrompt      bool
	searchScope       string
	searchKinds       string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed content",
	Long: `Retrieves indexed chunks relevant to a query.

Combines keyword and semantic (vector) search when an embedding provider is
configured, and falls back to keyword search otherwise. Results carry the
short ID of their source entity so they can be cited.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVar(&searchKeywordOnly, "keyword-only", false, "skip vector search")
	searchCmd.Flags().BoolVar(&searchPrompt, "prompt", false, "print results as a citable prompt block")
	searchCmd.Flags().StringVar(&searchScope, "scope", "", "scope to search (default from the entity tree)")
	searchCmd.Flags().StringVar(&searchKinds, "kind", "", "comma-separated entity kinds to include")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	s, err := requireServices()
	if err != nil {
		return err
	}
	if s.Retrieval == nil {
		return errors.New("retrieval service not configured")
	}

	kinds, err := parseKinds(searchKinds)
	if err != nil {
		return err
	}

	scopeID := searchScope
	var mapping *domain.IDMapping
	if tree, reg, err := loadRegistry(cmd, s); err == nil {
		mapping = reg.Mapping()
		if scopeID == "" {
			scopeID = tree.ScopeID
		}
	} else {
		logger.Warn("results will carry no short IDs: %v", err)
	}
	if scopeID == "" {
		return errors.New("no scope: pass --scope or configure an entity file")
	}

	opts := domain.RetrievalOptions{
		Limit:       searchLimit,
		SourceTypes: kinds,
		KeywordOnly: searchKeywordOnly,
	}
	results, err := s.Retrieval.Retrieve(cmd.Context(), scopeID, query, mapping, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	switch {
	case searchJSON:
		return outputSearchJSON(cmd, results)
	case searchPrompt:
		if s.Prompts == nil {
			return errors.New("prompt store not configured")
		}
		prompt, err := services.RetrievalPrompt(s.Prompts, results)
		if err != nil {
			return err
		}
		cmd.Println(prompt)
		return nil
	}

	return outputSearchTable(cmd, results)
}

func parseKinds(s string) ([]domain.EntityKind, error) {
	if s == "" {
		return nil, nil
	}
	var kinds []domain.EntityKind
	for _, part := range strings.Split(s, ",") {
		kind := domain.EntityKind(strings.TrimSpace(part))
		if !kind.IsValid() {
			return nil, fmt.Errorf("%w: unknown entity kind %q", domain.ErrInvalidInput, part)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

type searchOutput struct {
	ShortID    string  `json:"short_id,omitempty"`
	SourceType string  `json:"source_type"`
	SourceID   string  `json:"source_id"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Origin     string  `json:"origin"`
	Content    string  `json:"content"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.RetrievalResult) error {
	out := make([]searchOutput, len(results))
	for i := range results {
		r := &results[i]
		out[i] = searchOutput{
			ShortID:    r.ShortID,
			SourceType: r.Chunk.SourceType.String(),
			SourceID:   r.Chunk.SourceID,
			ChunkIndex: r.Chunk.ChunkIndex,
			Score:      r.Score,
			Origin:     r.Origin,
			Content:    r.Chunk.Content,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.RetrievalResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		r := &results[i]
		id := r.ShortID
		if id == "" {
			id = r.Chunk.SourceID
		}
		cmd.Printf("  [%d] %s %s (%.3f, %s)\n", i+1, id, r.Chunk.SourceType, r.Score, r.Origin)
		cmd.Printf("      %s\n", preview(r.Chunk.Content, 100))
		cmd.Println()
	}
	return nil
}
