package driven

// Prompt names understood by PromptStore.
const (
	// PromptCitationSystem instructs the assistant how to cite. Its single
	// %s placeholder receives the rendered entity context.
	PromptCitationSystem = "citation_system"

	// PromptRetrievalContext introduces retrieved excerpts. Its single %s
	// placeholder receives the excerpt lines.
	PromptRetrievalContext = "retrieval_context"
)

// PromptStore loads prompt templates.
type PromptStore interface {
	// Load returns the template for name.
	Load(name string) (string, error)
}
