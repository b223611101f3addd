package app

import (
	"github.com/gin-gonic/gin"

	"github.com/niyahq/niya-backend/internal/server"
)

func wireRouter(cfg Config, handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		DashboardOrigins: cfg.DashboardOrigins,

		HealthHandler:      handlers.Health,
		AuthHandler:        handlers.Auth,
		BotHandler:         handlers.Bot,
		SourceHandler:      handlers.Source,
		WidgetTokenHandler: handlers.WidgetToken,
		QueryHandler:       handlers.Query,
		AnalyticsHandler:   handlers.Analytics,

		AuthMiddleware:       middleware.Auth,
		WidgetAuthMiddleware: middleware.WidgetAuth,
		RateLimitMiddleware:  middleware.RateLimit,
	})
}
