package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/anchor/internal/core/services"
)

var (
	idsPrompt bool
	idsJSON   bool
)

var idsCmd = &cobra.Command{
	Use:   "ids",
	Short: "Show the short IDs assigned to the entity tree",
	Long: `Assigns short IDs to every entity in the current tree and prints them.

Short IDs are assigned fresh each turn in tree order, so the same tree always
yields the same IDs. Use --prompt to print the full citation system prompt an
assistant would receive.`,
	Args: cobra.NoArgs,
	RunE: runIDs,
}

func init() {
	idsCmd.Flags().BoolVar(&idsPrompt, "prompt", false, "print the citation system prompt")
	idsCmd.Flags().BoolVar(&idsJSON, "json", false, "output the ID mapping as JSON")
	rootCmd.AddCommand(idsCmd)
}

func runIDs(cmd *cobra.Command, _ []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}

	tree, reg, err := loadRegistry(cmd, s)
	if err != nil {
		return err
	}

	switch {
	case idsJSON:
		data, err := json.MarshalIndent(reg.Mapping(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal mapping: %w", err)
		}
		cmd.Println(string(data))
		return nil

	case idsPrompt:
		if s.Prompts == nil {
			return errors.New("prompt store not configured")
		}
		prompt, err := services.SystemPrompt(s.Prompts, reg)
		if err != nil {
			return err
		}
		cmd.Println(prompt)
		return nil
	}

	if reg.Len() == 0 {
		cmd.Println("No entities found.")
		return nil
	}

	cmd.Printf("Scope: %s (%d entities)\n\n", tree.ScopeID, reg.Len())
	for _, sid := range reg.ShortIDs() {
		pid, _ := reg.PersistentID(sid)
		e, _ := reg.Entity(sid)
		cmd.Printf("  %-8s %-10s %s\n", sid, e.Kind, pid)
	}
	return nil
}
