package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	configfile "github.com/custodia-labs/anchor/internal/adapters/driven/config/file"
	"github.com/custodia-labs/anchor/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/anchor/internal/adapters/driven/embedding/openai"
	entityfile "github.com/custodia-labs/anchor/internal/adapters/driven/entitysource/file"
	"github.com/custodia-labs/anchor/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/anchor/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/anchor/internal/adapters/driving/cli"
	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/core/ports/driven"
	"github.com/custodia-labs/anchor/internal/core/services"
	"github.com/custodia-labs/anchor/internal/logger"
	"github.com/custodia-labs/anchor/internal/postprocessors"
)

var wireLog = logger.For("wire")

// buildServices is the composition root: it reads settings and wires the
// adapters they select into the core services.
func buildServices(opts cli.Options) (*cli.Services, error) {
	configDir, err := resolveConfigDir(opts.ConfigDir)
	if err != nil {
		return nil, err
	}

	configStore, err := configfile.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = settings.Storage.DataDir
	}
	store, err := openKnowledgeStore(settings.Storage.Backend, dataDir)
	if err != nil {
		return nil, err
	}

	embedder, err := openEmbedder(settings.Embedding)
	if err != nil {
		// Keyword retrieval and citation parsing still work without one.
		wireLog.Warn("embedding disabled: %v", err)
	}

	prompts, err := configfile.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	entitiesPath := opts.EntitiesPath
	if entitiesPath == "" {
		entitiesPath = filepath.Join(configDir, "entities.json")
	}

	return &cli.Services{
		Settings:  settingsService,
		Index:     services.NewEmbeddingPipeline(postprocessors.NewDefaultRegistry(), settings.Chunking, embedder, store),
		Retrieval: services.NewRetrievalService(store, embedder),
		Citations: services.NewCitationParser(),
		Prompts:   prompts,
		Entities:  entityfile.NewSource(entitiesPath),
		Knowledge: store,
		Close: func() error {
			var errs []error
			if embedder != nil {
				errs = append(errs, embedder.Close())
			}
			errs = append(errs, store.Close())
			return errors.Join(errs...)
		},
	}, nil
}

// resolveConfigDir returns dir, or ~/.anchor when dir is empty.
func resolveConfigDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".anchor"), nil
}

// openKnowledgeStore opens the store for the configured backend.
func openKnowledgeStore(backend domain.StorageBackend, dataDir string) (driven.KnowledgeStore, error) {
	switch backend {
	case domain.StorageMemory:
		wireLog.Debug("using in-memory knowledge store")
		return memory.NewKnowledgeStore(), nil
	case domain.StorageSQLite, "":
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("opening knowledge store: %w", err)
		}
		wireLog.Debug("using sqlite knowledge store at %s", store.Path())
		return store, nil
	default:
		return nil, fmt.Errorf("%w: storage backend %q", domain.ErrUnsupportedType, backend)
	}
}

// openEmbedder builds the embedding adapter for the configured provider.
// An unconfigured provider yields a nil service and no error.
func openEmbedder(cfg domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !cfg.IsConfigured() {
		return nil, nil
	}

	switch cfg.Provider {
	case domain.AIProviderOllama:
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			Dimensions:        cfg.Dimensions,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}), nil
	case domain.AIProviderOpenAI:
		svc, err := openai.NewEmbeddingService(openai.Config{
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			Dimensions:        cfg.Dimensions,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, cfg.Provider)
	}
}
