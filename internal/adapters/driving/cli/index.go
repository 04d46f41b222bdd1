package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/core/ports/driven"
	"github.com/custodia-labs/anchor/internal/core/ports/driving"
	"github.com/custodia-labs/anchor/internal/logger"
)

var (
	indexWatch bool
	embedModel string
	embedJSON  bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the entity tree",
	Long: `Chunks and embeds the text of every entity in the tree and writes the
results to the knowledge store.

Chunks whose content hash is already stored are skipped, so re-running the
command only embeds what changed. Use --watch to keep running and re-index
each time the entity file changes.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

var embedCmd = &cobra.Command{
	Use:   "embed [file]",
	Short: "Chunk and embed text without storing it",
	Long: `Chunks text and embeds every chunk with the configured provider, then
prints what would be stored. Nothing is written.

Reads the file, or stdin when the file is omitted or "-".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEmbed,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexWatch, "watch", "w", false, "re-index when the entity file changes")
	embedCmd.Flags().StringVar(&embedModel, "model", "", "fail unless this is the configured model")
	embedCmd.Flags().BoolVar(&embedJSON, "json", false, "output embeddings as JSON")
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(embedCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	if s.Index == nil {
		return errors.New("index service not configured")
	}
	if s.Entities == nil {
		return errors.New("entity source not configured")
	}

	if err := indexOnce(cmd, s); err != nil {
		return err
	}
	if !indexWatch {
		return nil
	}

	watchable, ok := s.Entities.(driven.WatchableEntitySource)
	if !ok {
		return errors.New("entity source does not support watching")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	changes, err := watchable.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watching entities: %w", err)
	}
	cmd.Println("Watching for changes (Ctrl+C to stop)...")

	for range changes {
		if err := indexOnce(cmd, s); err != nil {
			// A half-written file fails to parse; the next write retries.
			logger.Warn("re-index failed: %v", err)
		}
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		cmd.Println("Stopped.")
	}
	return nil
}

func indexOnce(cmd *cobra.Command, s *Services) error {
	ctx := cmd.Context()

	tree, err := s.Entities.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("loading entities: %w", err)
	}

	report, err := s.Index.IndexTree(ctx, tree)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return fmt.Errorf("%w (run 'anchor settings embedding <provider>')", err)
		}
		return fmt.Errorf("indexing failed: %w", err)
	}

	printIndexReport(cmd, tree.ScopeID, report)
	if s.Knowledge != nil {
		if n, err := s.Knowledge.Count(ctx, tree.ScopeID); err == nil {
			cmd.Printf("  Stored:    %d\n", n)
		}
	}
	return nil
}

func printIndexReport(cmd *cobra.Command, scopeID string, r driving.IndexReport) {
	cmd.Printf("Indexed scope %s\n", scopeID)
	cmd.Printf("  Sources:   %d\n", r.Sources)
	cmd.Printf("  Chunks:    %d\n", r.Chunks)
	cmd.Printf("  Written:   %d\n", r.Written)
	cmd.Printf("  Unchanged: %d\n", r.Skipped)
	cmd.Printf("  Removed:   %d\n", r.Removed)
}

type embedOutput struct {
	Index     int       `json:"index"`
	Hash      string    `json:"hash"`
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Content   string    `json:"content"`
	Vector    []float32 `json:"vector"`
}

func runEmbed(cmd *cobra.Command, args []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	if s.Index == nil {
		return errors.New("index service not configured")
	}

	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	embedded, err := s.Index.Embed(cmd.Context(), text, driving.EmbedOptions{Model: embedModel})
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	if embedJSON {
		out := make([]embedOutput, len(embedded))
		for i, ec := range embedded {
			out[i] = embedOutput{
				Index:     ec.ChunkIndex,
				Hash:      ec.Hash,
				Model:     ec.Embedding.Model,
				Dimension: ec.Embedding.Dimension,
				Content:   ec.Content,
				Vector:    ec.Embedding.Vector,
			}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal embeddings: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(embedded) == 0 {
		cmd.Println("No chunks.")
		return nil
	}

	cmd.Printf("%d chunks embedded with %s (%d dimensions)\n\n",
		len(embedded), embedded[0].Embedding.Model, embedded[0].Embedding.Dimension)
	for _, ec := range embedded {
		cmd.Printf("  [%d] %s  %s\n", ec.ChunkIndex, ec.Hash, preview(ec.Content, 60))
	}
	return nil
}
