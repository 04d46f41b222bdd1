// Package cli provides the anchor command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/core/ports/driven"
	"github.com/custodia-labs/anchor/internal/core/ports/driving"
	"github.com/custodia-labs/anchor/internal/core/services"
	"github.com/custodia-labs/anchor/internal/logger"
)

var version = "dev"

// Services holds the wired application services the commands run against.
type Services struct {
	Settings  driving.SettingsService
	Index     driving.IndexService
	Retrieval driving.RetrievalService
	Citations driving.CitationService
	Prompts   driven.PromptStore
	Entities  driven.EntitySource
	Knowledge driven.KnowledgeStore

	// Close releases resources held by the services. May be nil.
	Close func() error
}

// Options are the global flag values passed to the Factory.
type Options struct {
	ConfigDir    string
	DataDir      string
	EntitiesPath string
	Verbose      bool
}

// Factory builds the services once global flags are parsed.
type Factory func(opts Options) (*Services, error)

var (
	opts    Options
	factory Factory
	svc     *Services
)

var rootCmd = &cobra.Command{
	Use:   "anchor",
	Short: "Ground assistant answers in your own content",
	Long: `anchor indexes a tree of user content into embedded chunks and resolves
the compact citation markers an assistant emits back to the exact entities
they refer to.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(opts.Verbose)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&opts.ConfigDir, "config-dir", "", "configuration directory (default ~/.anchor)")
	flags.StringVar(&opts.DataDir, "data-dir", "", "data directory (default from settings or ~/.anchor/data)")
	flags.StringVar(&opts.EntitiesPath, "entities", "", "entity tree file (default ~/.anchor/entities.json)")
}

// Execute runs the root command. f builds the services on first use, so
// commands that need none (version, help) never touch disk.
func Execute(v string, f Factory) error {
	version = v
	factory = f
	defer closeServices()
	return rootCmd.Execute()
}

// requireServices returns the wired services, building them on first call.
func requireServices() (*Services, error) {
	if svc != nil {
		return svc, nil
	}
	if factory == nil {
		return nil, errors.New("services not configured")
	}
	built, err := factory(opts)
	if err != nil {
		return nil, fmt.Errorf("initialising services: %w", err)
	}
	svc = built
	return svc, nil
}

func closeServices() {
	if svc == nil || svc.Close == nil {
		return
	}
	if err := svc.Close(); err != nil {
		logger.Warn("closing services: %v", err)
	}
	svc = nil
}

// loadRegistry snapshots the entity tree and assigns this turn's short IDs.
func loadRegistry(cmd *cobra.Command, s *Services) (*domain.EntityTree, *services.Registry, error) {
	if s.Entities == nil {
		return nil, nil, errors.New("entity source not configured")
	}
	tree, err := s.Entities.Snapshot(cmd.Context())
	if err != nil {
		return nil, nil, fmt.Errorf("loading entities: %w", err)
	}
	return tree, services.BuildRegistry(tree), nil
}

// readInput reads the named file, or stdin when the name is empty or "-".
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return string(data), nil
}
