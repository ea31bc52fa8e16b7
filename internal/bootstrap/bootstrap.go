// Package bootstrap builds the runtime collaborators shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"mediastudio/internal/adapter/repo"
	"mediastudio/internal/domain"
	"mediastudio/internal/infra"
	"mediastudio/internal/infra/credentials"
	"mediastudio/internal/providers/genai"
	"mediastudio/internal/providers/image"
	"mediastudio/internal/providers/speech"
	"mediastudio/internal/providers/text"
	"mediastudio/internal/storage"
)

// Data holds the opened persistence layer. Credentials is nil unless the
// driver is postgres.
type Data struct {
	Jobs        domain.JobRepository
	Saved       domain.SavedPodcastRepository
	Credentials *credentials.Store
	close       []func()
}

func (d *Data) Close() {
	for i := len(d.close) - 1; i >= 0; i-- {
		d.close[i]()
	}
}

// OpenData connects the configured database driver.
func OpenData(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*Data, error) {
	d := &Data{}
	switch cfg.DatabaseDriver {
	case infra.DriverPostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		runner := infra.NewSQLRunner(pool, logger)
		d.close = append(d.close, pool.Close)
		d.Jobs = repo.NewJobRepository(runner)
		d.Saved = repo.NewSavedPodcastRepository(runner)
		d.Credentials = credentials.NewStore(runner)
	case infra.DriverSQLite:
		db, err := infra.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		d.close = append(d.close, func() { _ = db.Close() })
		d.Jobs = repo.NewJobRepositorySQLite(db, logger)
		d.Saved = repo.NewSavedPodcastRepositorySQLite(db, logger)
	case infra.DriverMemory:
		logger.Warn().Msg("memory job store: records are lost on restart")
		d.Jobs = repo.NewMemoryJobRepository()
		d.Saved = repo.NewMemorySavedPodcastRepository()
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	return d, nil
}

// OpenStore builds the object store for the configured storage driver.
func OpenStore(ctx context.Context, cfg *infra.Config, creds *credentials.Store) (storage.Store, error) {
	switch cfg.StorageDriver {
	case "cloudinary":
		url, err := creds.Resolve(ctx, credentials.ProviderCloudinary, cfg.CloudinaryURL)
		if err != nil {
			return nil, fmt.Errorf("resolve cloudinary url: %w", err)
		}
		return storage.NewCloudinaryStore(storage.CloudinaryOptions{URL: url})
	default:
		return storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	}
}

// Adapters are the provider implementations used by the orchestrator.
type Adapters struct {
	Text   text.Generator
	Images image.Generator
	Speech speech.Synthesizer
}

// OpenAdapters picks the configured providers. A provider without a key is
// replaced by its synthetic implementation at wiring time.
func OpenAdapters(ctx context.Context, cfg *infra.Config, creds *credentials.Store, logger infra.Logger) (Adapters, error) {
	httpClient := &http.Client{Timeout: cfg.ProviderTimeout}
	keys := map[string]string{}
	for provider, configured := range map[string]string{
		credentials.ProviderOpenAI:     cfg.OpenAIAPIKey,
		credentials.ProviderGemini:     cfg.GeminiAPIKey,
		credentials.ProviderElevenLabs: cfg.ElevenLabsAPIKey,
	} {
		key, err := creds.Resolve(ctx, provider, configured)
		if err != nil {
			return Adapters{}, fmt.Errorf("resolve %s key: %w", provider, err)
		}
		keys[provider] = key
	}

	var gemini *genai.Client
	if keys[credentials.ProviderGemini] != "" {
		client, err := genai.NewClient(genai.Options{
			APIKey:     keys[credentials.ProviderGemini],
			BaseURL:    cfg.GeminiBaseURL,
			Model:      cfg.GeminiModel,
			HTTPClient: httpClient,
			Logger:     &logger,
		})
		if err != nil {
			return Adapters{}, err
		}
		gemini = client
	}

	var out Adapters
	synthetic := func(class, provider string) {
		logger.Warn().Str("adapter", class).Str("provider", provider).Msg("no api key configured, using synthetic adapter")
	}

	switch {
	case cfg.TextProvider == "gemini" && gemini != nil:
		out.Text = text.NewGeminiGenerator(gemini)
	case cfg.TextProvider == "openai" && keys[credentials.ProviderOpenAI] != "":
		gen, err := text.NewOpenAIGenerator(text.OpenAIOptions{
			APIKey:       keys[credentials.ProviderOpenAI],
			Model:        cfg.OpenAIModel,
			BaseURL:      cfg.OpenAIBaseURL,
			Organization: cfg.OpenAIOrg,
			HTTPClient:   httpClient,
			OnWarning: func(reason, detail string) {
				logger.Warn().Str("reason", reason).Str("detail", detail).Msg("openai text")
			},
		})
		if err != nil {
			return Adapters{}, err
		}
		out.Text = gen
	default:
		synthetic("text", cfg.TextProvider)
		out.Text = text.NewSyntheticGenerator()
	}

	switch {
	case cfg.ImageProvider == "gemini" && gemini != nil:
		out.Images = image.NewGeminiGenerator(gemini)
	case cfg.ImageProvider == "openai" && keys[credentials.ProviderOpenAI] != "":
		gen, err := image.NewOpenAIGenerator(image.OpenAIOptions{
			APIKey:       keys[credentials.ProviderOpenAI],
			Model:        cfg.OpenAIImageModel,
			BaseURL:      cfg.OpenAIBaseURL,
			Organization: cfg.OpenAIOrg,
			HTTPClient:   httpClient,
		})
		if err != nil {
			return Adapters{}, err
		}
		out.Images = gen
	default:
		synthetic("image", cfg.ImageProvider)
		out.Images = image.NewSyntheticGenerator()
	}

	if key := keys[credentials.ProviderElevenLabs]; key != "" {
		syn, err := speech.NewElevenLabsSynthesizer(speech.ElevenLabsOptions{
			APIKey:         key,
			BaseURL:        cfg.ElevenLabsBaseURL,
			Model:          cfg.ElevenLabsModel,
			DefaultVoiceID: cfg.ElevenLabsVoice,
			HTTPClient:     httpClient,
		})
		if err != nil {
			return Adapters{}, err
		}
		out.Speech = syn
	} else {
		synthetic("speech", credentials.ProviderElevenLabs)
		out.Speech = speech.NewSyntheticSynthesizer()
	}
	return out, nil
}
