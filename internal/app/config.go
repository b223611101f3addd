package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/niyahq/niya-backend/internal/platform/envutil"
	"github.com/niyahq/niya-backend/internal/platform/logger"
)

// Config is built from the environment, with an optional YAML overlay via
// CONFIG_FILE for values that are awkward to pass as env vars (origin lists,
// model names per deploy).
type Config struct {
	Port             string   `yaml:"port"`
	DashboardOrigins []string `yaml:"dashboard_origins"`

	JWTSecretKey   string        `yaml:"jwt_secret_key"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`

	OpenAIAPIKey string `yaml:"openai_api_key"`
	GeminiAPIKey string `yaml:"gemini_api_key"`

	EmbeddingPreferred   string `yaml:"embedding_preferred"`
	EmbeddingDimension   int    `yaml:"embedding_dimension"`
	EmbeddingBatchSize   int    `yaml:"embedding_batch_size"`
	OpenAIEmbeddingModel string `yaml:"openai_embedding_model"`
	GeminiEmbeddingModel string `yaml:"gemini_embedding_model"`

	OpenAIChatModel string `yaml:"openai_chat_model"`
	GeminiChatModel string `yaml:"gemini_chat_model"`

	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
	PromptSafetyMargin int `yaml:"prompt_safety_margin"`

	CrawlerUserAgent    string        `yaml:"crawler_user_agent"`
	CrawlerTimeout      time.Duration `yaml:"crawler_timeout"`
	CrawlerMinTextChars int           `yaml:"crawler_min_text_chars"`
	CrawlerJSFallback   bool          `yaml:"crawler_js_fallback"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Port:             envutil.GetEnv("PORT", "8080", log),
		DashboardOrigins: splitCSV(envutil.GetEnv("DASHBOARD_ORIGINS", "http://localhost:3000,http://localhost:5173", log)),

		JWTSecretKey:   os.Getenv("JWT_SECRET_KEY"),
		AccessTokenTTL: envutil.GetEnvAsDuration("ACCESS_TOKEN_TTL", 24*time.Hour, log),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),

		EmbeddingPreferred:   envutil.GetEnv("EMBEDDING_PREFERRED", "openai", log),
		EmbeddingDimension:   envutil.GetEnvAsInt("EMBEDDING_DIMENSION", 1536, log),
		EmbeddingBatchSize:   envutil.GetEnvAsInt("EMBEDDING_BATCH_SIZE", 64, log),
		OpenAIEmbeddingModel: envutil.GetEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small", log),
		GeminiEmbeddingModel: envutil.GetEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004", log),

		OpenAIChatModel: envutil.GetEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini", log),
		GeminiChatModel: envutil.GetEnv("GEMINI_CHAT_MODEL", "gemini-1.5-flash", log),

		RateLimitPerMinute: envutil.GetEnvAsInt("RATE_LIMIT_PER_MINUTE", 60, log),
		PromptSafetyMargin: envutil.GetEnvAsInt("PROMPT_SAFETY_MARGIN", 256, log),

		CrawlerUserAgent:    envutil.GetEnv("CRAWLER_USER_AGENT", "", log),
		CrawlerTimeout:      envutil.GetEnvAsDuration("CRAWLER_TIMEOUT", 20*time.Second, log),
		CrawlerMinTextChars: envutil.GetEnvAsInt("CRAWLER_MIN_TEXT_CHARS", 200, log),
		CrawlerJSFallback:   !strings.EqualFold(envutil.GetEnv("CRAWLER_JS_FALLBACK", "true", log), "false"),
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading CONFIG_FILE %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing CONFIG_FILE %s: %w", path, err)
		}
		log.Info("Applied config file overlay", "path", path)
	}

	if strings.TrimSpace(cfg.JWTSecretKey) == "" {
		return Config{}, fmt.Errorf("JWT_SECRET_KEY is required")
	}
	return cfg, nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
