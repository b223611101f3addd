package app

import (
	"fmt"
	"strings"

	"github.com/niyahq/niya-backend/internal/cache"
	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/providers/embedding"
	"github.com/niyahq/niya-backend/internal/providers/llm"
	"github.com/niyahq/niya-backend/internal/services"
)

type Clients struct {
	Bucket             services.BucketService
	EmbeddingCache     *cache.EmbeddingCache
	EmbeddingProviders []embedding.Provider
	LLMProviders       map[string]llm.Provider
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	bucket, err := services.NewBucketService(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init bucket client: %w", err)
	}

	// Nil when REDIS_ADDR is unset; the embedding service treats that as
	// cache-off.
	embCache := cache.NewEmbeddingCache(log)

	embedders, err := wireEmbeddingProviders(log, cfg)
	if err != nil {
		return Clients{}, err
	}
	llms, err := wireLLMProviders(log, cfg)
	if err != nil {
		return Clients{}, err
	}

	return Clients{
		Bucket:             bucket,
		EmbeddingCache:     embCache,
		EmbeddingProviders: embedders,
		LLMProviders:       llms,
	}, nil
}

// wireEmbeddingProviders builds every provider with a configured key, with
// the preferred one first so the orchestrator tries it before failing over.
func wireEmbeddingProviders(log *logger.Logger, cfg Config) ([]embedding.Provider, error) {
	var providers []embedding.Provider

	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		p, err := embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel, cfg.EmbeddingDimension, log)
		if err != nil {
			return nil, fmt.Errorf("init openai embedding provider: %w", err)
		}
		providers = append(providers, p)
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		p, err := embedding.NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiEmbeddingModel, cfg.EmbeddingDimension, log)
		if err != nil {
			return nil, fmt.Errorf("init gemini embedding provider: %w", err)
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no embedding provider configured: set OPENAI_API_KEY or GEMINI_API_KEY")
	}

	preferred := strings.ToLower(strings.TrimSpace(cfg.EmbeddingPreferred))
	for i, p := range providers {
		if p.Name() == preferred && i != 0 {
			providers[0], providers[i] = providers[i], providers[0]
			break
		}
	}
	return providers, nil
}

func wireLLMProviders(log *logger.Logger, cfg Config) (map[string]llm.Provider, error) {
	providers := map[string]llm.Provider{}

	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		p, err := llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIChatModel, log)
		if err != nil {
			return nil, fmt.Errorf("init openai llm provider: %w", err)
		}
		providers["openai"] = p
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		p, err := llm.NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiChatModel, log)
		if err != nil {
			return nil, fmt.Errorf("init gemini llm provider: %w", err)
		}
		providers["gemini"] = p
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no llm provider configured: set OPENAI_API_KEY or GEMINI_API_KEY")
	}
	return providers, nil
}
