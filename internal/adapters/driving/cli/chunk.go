package cli

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/postprocessors/chunker"
)

var (
	chunkSize    int
	chunkOverlap int
	chunkJSON    bool
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [file]",
	Short: "Split text into chunks",
	Long: `Splits text into the chunks the indexer would embed, without embedding.

Reads the file, or stdin when the file is omitted or "-". Chunk size and
overlap default to the configured chunking settings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChunk,
}

func init() {
	chunkCmd.Flags().IntVar(&chunkSize, "size", 0, "chunk size in characters (default from settings)")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap", -1, "overlap in characters (default from settings)")
	chunkCmd.Flags().BoolVar(&chunkJSON, "json", false, "output chunks as JSON")
	rootCmd.AddCommand(chunkCmd)
}

type chunkOutput struct {
	Index     int    `json:"index"`
	Paragraph int    `json:"paragraph"`
	Offset    int    `json:"offset"`
	Length    int    `json:"length"`
	Hash      string `json:"hash"`
	Content   string `json:"content"`
}

func runChunk(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	cs := domain.DefaultAppSettings().Chunking
	if s, err := requireServices(); err == nil && s.Settings != nil {
		if settings, err := s.Settings.Get(); err == nil {
			cs = settings.Chunking
		}
	}
	if chunkSize > 0 {
		cs.Size = chunkSize
	}
	if chunkOverlap >= 0 {
		cs.Overlap = chunkOverlap
	}

	opts := chunker.Options{
		ChunkSize:           cs.Size,
		Overlap:             cs.Overlap,
		NormalizeWhitespace: cs.NormalizeWhitespace,
	}
	pieces := chunker.Pieces(text, opts)

	out := make([]chunkOutput, len(pieces))
	for i, p := range pieces {
		out[i] = chunkOutput{
			Index:     i,
			Paragraph: p.Paragraph,
			Offset:    p.Offset,
			Length:    utf8.RuneCountInString(p.Content),
			Hash:      chunker.Hash(p.Content),
			Content:   p.Content,
		}
	}

	if chunkJSON {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal chunks: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(out) == 0 {
		cmd.Println("No chunks.")
		return nil
	}

	effective := opts.Clamped()
	cmd.Printf("%d chunks (size %d, overlap %d)\n\n", len(out), effective.ChunkSize, effective.Overlap)
	for _, c := range out {
		cmd.Printf("  [%d] paragraph %d, offset %d, %d chars, %s\n", c.Index, c.Paragraph, c.Offset, c.Length, c.Hash)
		cmd.Printf("      %s\n", preview(c.Content, 80))
	}
	return nil
}

// preview returns the first n runes of s on one line.
func preview(s string, n int) string {
	runes := []rune(s)
	for i, r := range runes {
		if r == '\n' || r == '\r' || r == '\t' {
			runes[i] = ' '
		}
	}
	if len(runes) > n {
		return string(runes[:n-1]) + "…"
	}
	return string(runes)
}
