package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"studio/internal/adapter/memory"
	"studio/internal/adapter/repo"
	"studio/internal/assetcache"
	"studio/internal/credits"
	"studio/internal/domain"
	"studio/internal/generation"
	"studio/internal/infra"
	"studio/internal/infra/credentials"
	"studio/internal/jobs"
	"studio/internal/pipeline"
	"studio/internal/providers/audio"
	"studio/internal/providers/gemini"
	"studio/internal/providers/image"
	"studio/internal/providers/prompt"
	"studio/internal/providers/qwen"
	"studio/internal/providers/text"
	"studio/internal/storage"
	"studio/internal/usage"
)

type repositories struct {
	jobs    domain.JobRepository
	credits domain.CreditRepository
	cache   domain.CacheRepository
	usage   domain.UsageRepository
	scenes  domain.SceneRepository
	keys    credentials.Source
	ready   func(context.Context) error
}

type services struct {
	credits  *credits.Ledger
	jobs     *jobs.Ledger
	pipeline *pipeline.Service
	scenes   domain.SceneRepository
	usage    *usage.Accountant
	ready    func(context.Context) error
}

// buildServices wires repositories, providers and services for cfg. The
// returned cleanup releases the database pool when one was opened.
func buildServices(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*services, func(), error) {
	repos, cleanup, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	pricing := usage.DefaultPricing()
	if cfg.PricingFile != "" {
		pricing, err = usage.LoadPricing(cfg.PricingFile)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("load pricing: %w", err)
		}
	}

	store, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("artifact storage: %w", err)
	}

	accountant := usage.NewAccountant(pricing, repos.usage, logger)
	orchestrator := generation.NewOrchestrator(generation.Options{
		Providers: buildProviders(cfg, logger),
		Store:     store,
		Usage:     accountant,
		Enhancer:  buildEnhancer(cfg, logger),
		Logger:    logger,
	})
	for _, kind := range []domain.GenerationKind{domain.KindText, domain.KindImage, domain.KindAudio} {
		logger.Info().Str("kind", string(kind)).Strs("providers", orchestrator.Chain(kind)).Msg("provider chain")
	}

	ledger := credits.NewLedger(repos.credits, logger)
	tracker := jobs.NewLedger(repos.jobs, logger)
	keys := credentials.NewResolver(repos.keys, credentials.Static{
		credentials.ProviderGemini:     cfg.GeminiAPIKey,
		credentials.ProviderOpenAI:     cfg.OpenAIAPIKey,
		credentials.ProviderQwen:       cfg.QwenAPIKey,
		credentials.ProviderElevenLabs: cfg.ElevenLabsAPIKey,
	}, logger)

	svc := pipeline.NewService(pipeline.Options{
		Scenes:    repos.scenes,
		Credits:   ledger,
		Jobs:      tracker,
		Cache:     assetcache.New(repos.cache, logger),
		Generator: orchestrator,
		Keys:      keys,
		Prices: pipeline.Prices{
			Image:  cfg.CreditsPerImage,
			Audio:  cfg.CreditsPerAudio,
			Script: cfg.CreditsPerScript,
		},
		Logger: logger,
	})

	return &services{
		credits:  ledger,
		jobs:     tracker,
		pipeline: svc,
		scenes:   repos.scenes,
		usage:    accountant,
		ready:    repos.ready,
	}, cleanup, nil
}

func openRepositories(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*repositories, func(), error) {
	if cfg.Store != infra.StorePostgres {
		logger.Warn().Msg("using in-memory store; state is lost on restart")
		return &repositories{
			jobs:    memory.NewJobRepository(),
			credits: memory.NewCreditRepository(),
			cache:   memory.NewCacheRepository(),
			usage:   memory.NewUsageRepository(),
			scenes:  memory.NewSceneRepository(),
		}, func() {}, nil
	}

	pool, err := infra.OpenPool(ctx, cfg.DatabaseURL, infra.PoolOptions{MaxConns: cfg.DBMaxConns})
	if err != nil {
		return nil, nil, err
	}
	runner := infra.NewSQLRunner(pool, logger)
	return &repositories{
		jobs:    repo.NewJobRepository(runner),
		credits: repo.NewCreditRepository(runner),
		cache:   repo.NewCacheRepository(runner),
		usage:   repo.NewUsageRepository(runner),
		scenes:  repo.NewSceneRepository(runner),
		keys:    credentials.NewStore(runner),
		ready:   runner.Ping,
	}, pool.Close, nil
}

// buildProviders registers every provider in priority order per kind. A
// provider without a key is skipped per request, so all are registered.
func buildProviders(cfg *infra.Config, logger infra.Logger) []generation.Provider {
	client := &http.Client{Timeout: 90 * time.Second}

	geminiImages := gemini.NewClient(gemini.Options{
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiImageModel,
		HTTPClient: client,
		Logger:     logger,
	})
	qwenImages := qwen.NewClient(qwen.Options{
		BaseURL:    cfg.QwenBaseURL,
		Model:      cfg.QwenModel,
		HTTPClient: client,
		Logger:     logger,
	})

	return []generation.Provider{
		text.NewGeminiWriter(cfg.GeminiTextModel),
		text.NewOpenAIWriter(text.OpenAIOptions{
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			HTTPClient: client,
		}),

		image.NewGeminiImage(geminiImages),
		image.NewQwenImage(qwenImages),
		image.NewFreeImage(image.FreeOptions{
			BaseURL:    cfg.FreeImageBaseURL,
			HTTPClient: client,
		}),

		audio.NewOpenAISpeech(audio.OpenAIOptions{
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAITTSModel,
			HTTPClient: client,
		}),
		audio.NewElevenLabs(audio.ElevenLabsOptions{
			VoiceID:    cfg.ElevenLabsVoice,
			HTTPClient: client,
		}),
	}
}

// buildEnhancer returns nil when prompts are passed through untouched.
// Remote enhancers fall back to the static one on any failure.
func buildEnhancer(cfg *infra.Config, logger infra.Logger) prompt.Enhancer {
	static := prompt.NewStaticEnhancer()
	onFallback := func(reason string, err error) {
		logger.Warn().Err(err).Str("reason", reason).Msg("prompt enhancer fell back")
	}

	switch cfg.PromptEnhancer {
	case infra.EnhancerStatic:
		return static
	case infra.EnhancerOpenAI:
		enh, err := prompt.NewOpenAIEnhancer(prompt.OpenAIOptions{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			BaseURL:    cfg.OpenAIBaseURL,
			Fallback:   static,
			OnFallback: onFallback,
			OnWarning: func(reason, detail string) {
				logger.Debug().Str("reason", reason).Str("detail", detail).Msg("prompt enhancer warning")
			},
		})
		if err != nil {
			logger.Warn().Err(err).Msg("openai prompt enhancer unavailable, using static")
			return static
		}
		return enh
	case infra.EnhancerGemini:
		enh, err := prompt.NewGeminiEnhancer(prompt.GeminiOptions{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.GeminiTextModel,
			BaseURL:    cfg.GeminiBaseURL,
			Fallback:   static,
			OnFallback: onFallback,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("gemini prompt enhancer unavailable, using static")
			return static
		}
		return enh
	default:
		return nil
	}
}
