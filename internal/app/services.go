package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/niyahq/niya-backend/internal/chunker"
	"github.com/niyahq/niya-backend/internal/crawler"
	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/services"
)

type Services struct {
	Auth        services.AuthService
	Bot         services.BotService
	Source      services.SourceService
	Ingestion   services.IngestionService
	Embedding   services.EmbeddingService
	Prompt      services.PromptService
	RAG         services.RAGService
	WidgetToken services.WidgetTokenService
	RateLimit   services.RateLimitService
	Analytics   services.AnalyticsService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	authService, err := services.NewAuthService(repos.User, cfg.JWTSecretKey, cfg.AccessTokenTTL, log)
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}

	botService := services.NewBotService(repos.Bot, log)
	sourceService := services.NewSourceService(db, repos.Source, repos.Chunk, clients.Bucket, log)

	embeddingService, err := services.NewEmbeddingService(
		clients.EmbeddingProviders,
		cfg.EmbeddingBatchSize,
		cfg.EmbeddingDimension,
		clients.EmbeddingCache,
		log,
	)
	if err != nil {
		return Services{}, fmt.Errorf("init embedding service: %w", err)
	}

	webCrawler := crawler.New(crawler.Config{
		UserAgent:        cfg.CrawlerUserAgent,
		Timeout:          cfg.CrawlerTimeout,
		MinTextChars:     cfg.CrawlerMinTextChars,
		EnableJSFallback: cfg.CrawlerJSFallback,
	}, log)
	chunkSplitter := chunker.New(chunker.DefaultConfig())

	ingestionService := services.NewIngestionService(
		db,
		repos.Source,
		repos.Chunk,
		clients.Bucket,
		webCrawler,
		chunkSplitter,
		embeddingService,
		log,
	)

	promptService := services.NewPromptService(cfg.PromptSafetyMargin, log)
	ragService := services.NewRAGService(
		repos.Chunk,
		repos.Source,
		repos.QueryLog,
		embeddingService,
		promptService,
		clients.LLMProviders,
		log,
	)

	widgetTokenService := services.NewWidgetTokenService(repos.WidgetToken, log)
	rateLimitService := services.NewRateLimitService(repos.RateCounter, cfg.RateLimitPerMinute, log)
	analyticsService := services.NewAnalyticsService(repos.QueryLog, log)

	return Services{
		Auth:        authService,
		Bot:         botService,
		Source:      sourceService,
		Ingestion:   ingestionService,
		Embedding:   embeddingService,
		Prompt:      promptService,
		RAG:         ragService,
		WidgetToken: widgetTokenService,
		RateLimit:   rateLimitService,
		Analytics:   analyticsService,
	}, nil
}
