package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/core/ports/driven"
)

// SystemPrompt renders the registry's entity context into the citation
// system prompt, so the assistant sees exactly the short IDs the parser
// will resolve this turn.
func SystemPrompt(prompts driven.PromptStore, reg *Registry) (string, error) {
	tmpl, err := prompts.Load(driven.PromptCitationSystem)
	if err != nil {
		return "", fmt.Errorf("load citation prompt: %w", err)
	}
	return fmt.Sprintf(tmpl, reg.RenderContext()), nil
}

// RetrievalPrompt formats retrieved chunks as citable excerpts. Results
// without a short ID are left out, since the assistant could not cite them.
func RetrievalPrompt(prompts driven.PromptStore, results []domain.RetrievalResult) (string, error) {
	var b strings.Builder
	for _, r := range results {
		if r.ShortID == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s\n", r.ShortID, strings.Join(strings.Fields(r.Chunk.Content), " "))
	}
	if b.Len() == 0 {
		return "", nil
	}

	tmpl, err := prompts.Load(driven.PromptRetrievalContext)
	if err != nil {
		return "", fmt.Errorf("load retrieval prompt: %w", err)
	}
	return fmt.Sprintf(tmpl, strings.TrimRight(b.String(), "\n")), nil
}
