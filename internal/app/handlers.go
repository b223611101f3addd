package app

import (
	"gorm.io/gorm"

	"github.com/niyahq/niya-backend/internal/handlers"
	"github.com/niyahq/niya-backend/internal/platform/logger"
)

type Handlers struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Bot         *handlers.BotHandler
	Source      *handlers.SourceHandler
	WidgetToken *handlers.WidgetTokenHandler
	Query       *handlers.QueryHandler
	Analytics   *handlers.AnalyticsHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      handlers.NewHealthHandler(db),
		Auth:        handlers.NewAuthHandler(services.Auth),
		Bot:         handlers.NewBotHandler(services.Bot),
		Source:      handlers.NewSourceHandler(services.Bot, services.Source),
		WidgetToken: handlers.NewWidgetTokenHandler(services.Bot, services.WidgetToken),
		Query:       handlers.NewQueryHandler(services.Bot, services.RAG, services.Analytics, services.RateLimit),
		Analytics:   handlers.NewAnalyticsHandler(services.Bot, services.Analytics),
	}
}
