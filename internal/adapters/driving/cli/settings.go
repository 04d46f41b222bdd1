package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/anchor/internal/core/domain"
)

var (
	embeddingModel  string
	embeddingAPIKey string
	chunkingSize    int
	chunkingOverlap int
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the embedding provider, chunking and storage.

Settings are stored in config.toml under the configuration directory.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding [provider]",
	Short: "Configure embedding provider",
	Long: `Configure the embedding provider used for indexing and vector search.

Available providers:
  ollama - local Ollama instance (default model nomic-embed-text)
  openai - OpenAI or a compatible API (default model text-embedding-3-small)

When the provider needs an API key and --api-key is not given, the key is
read from the terminal without echo.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsEmbedding,
}

var settingsChunkingCmd = &cobra.Command{
	Use:   "chunking",
	Short: "Configure chunk size and overlap",
	Long: `Configure how entity text is split before embedding.

Sizes are counted in characters. An overlap at or above the size is clamped
to size-1 when chunking.`,
	Args: cobra.NoArgs,
	RunE: runSettingsChunking,
}

func init() {
	settingsEmbeddingCmd.Flags().StringVar(&embeddingModel, "model", "", "embedding model (default per provider)")
	settingsEmbeddingCmd.Flags().StringVar(&embeddingAPIKey, "api-key", "", "API key for cloud providers")
	settingsChunkingCmd.Flags().IntVar(&chunkingSize, "size", 0, "maximum chunk length in characters")
	settingsChunkingCmd.Flags().IntVar(&chunkingOverlap, "overlap", 0, "characters shared by consecutive chunks")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsChunkingCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	if s.Settings == nil {
		return errors.New("settings service not configured")
	}

	settings, err := s.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	if settings.Embedding.Provider == "" {
		cmd.Println("  Provider: (not set)")
	} else {
		cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
		cmd.Printf("  Model: %s\n", settings.Embedding.Model)
		if settings.Embedding.BaseURL != "" {
			cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
		}
		if settings.Embedding.Provider.RequiresAPIKey() {
			if settings.Embedding.APIKey != "" {
				cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
			} else {
				cmd.Printf("  API Key: (not set)\n")
			}
		}
		if settings.Embedding.Dimensions > 0 {
			cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
		}
		if settings.Embedding.RequestsPerSecond > 0 {
			cmd.Printf("  Rate limit: %.1f req/s\n", settings.Embedding.RequestsPerSecond)
		}
	}
	status := "configured"
	if !settings.Embedding.IsConfigured() {
		status = "not configured (keyword search only)"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Size: %d\n", settings.Chunking.Size)
	cmd.Printf("  Overlap: %d\n", settings.Chunking.Overlap)
	cmd.Printf("  Normalise whitespace: %t\n", settings.Chunking.NormalizeWhitespace)
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Storage.Backend)
	if settings.Storage.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.Storage.DataDir)
	}
	cmd.Println()

	if err := settings.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, args []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	if s.Settings == nil {
		return errors.New("settings service not configured")
	}

	provider := domain.AIProvider(strings.ToLower(args[0]))
	if !provider.IsValid() {
		return fmt.Errorf("unknown provider %q (available: %s)", args[0], providerNames())
	}

	model := embeddingModel
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}

	apiKey := embeddingAPIKey
	if provider.RequiresAPIKey() && apiKey == "" {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd.InOrStdin())
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := s.Settings.SetEmbeddingProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

func runSettingsChunking(cmd *cobra.Command, _ []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	if s.Settings == nil {
		return errors.New("settings service not configured")
	}

	if err := s.Settings.SetChunking(chunkingSize, chunkingOverlap); err != nil {
		return fmt.Errorf("failed to configure chunking: %w", err)
	}

	cmd.Printf("Chunking configured: size %d, overlap %d\n", chunkingSize, chunkingOverlap)
	return nil
}

func providerNames() string {
	providers := domain.AllEmbeddingProviders()
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.String()
	}
	return strings.Join(names, ", ")
}

// readPassword reads without echo from a terminal, or a plain line otherwise.
func readPassword(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	reader := bufio.NewReader(in)
	input, _ := reader.ReadString('\n') //nolint:errcheck // a short read yields an empty key
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
