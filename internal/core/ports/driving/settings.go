package driving

import "github.com/custodia-labs/anchor/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetChunking configures the chunker.
	SetChunking(size, overlap int) error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
