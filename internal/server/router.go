package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/niyahq/niya-backend/internal/handlers"
	"github.com/niyahq/niya-backend/internal/middleware"
)

type RouterConfig struct {
	DashboardOrigins []string

	HealthHandler      *handlers.HealthHandler
	AuthHandler        *handlers.AuthHandler
	BotHandler         *handlers.BotHandler
	SourceHandler      *handlers.SourceHandler
	WidgetTokenHandler *handlers.WidgetTokenHandler
	QueryHandler       *handlers.QueryHandler
	AnalyticsHandler   *handlers.AnalyticsHandler

	AuthMiddleware       *middleware.AuthMiddleware
	WidgetAuthMiddleware *middleware.WidgetAuthMiddleware
	RateLimitMiddleware  *middleware.RateLimitMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)

	// ===============
	// || Dashboard ||
	// ===============
	api := router.Group("/api/v1")
	api.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.DashboardOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	api.POST("/auth/register", cfg.AuthHandler.Register)
	api.POST("/auth/login", cfg.AuthHandler.Login)

	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	{
		protected.POST("/bots", cfg.BotHandler.Create)
		protected.GET("/bots", cfg.BotHandler.List)
		protected.GET("/bots/:botID", cfg.BotHandler.Get)
		protected.PATCH("/bots/:botID", cfg.BotHandler.Update)
		protected.DELETE("/bots/:botID", cfg.BotHandler.Delete)

		protected.POST("/bots/:botID/sources/upload", cfg.SourceHandler.Upload)
		protected.POST("/bots/:botID/sources/url", cfg.SourceHandler.AddURL)
		protected.GET("/bots/:botID/sources", cfg.SourceHandler.List)
		protected.GET("/bots/:botID/sources/:sourceID", cfg.SourceHandler.Get)
		protected.DELETE("/bots/:botID/sources/:sourceID", cfg.SourceHandler.Delete)
		protected.POST("/bots/:botID/sources/:sourceID/reingest", cfg.SourceHandler.Reingest)
		protected.GET("/bots/:botID/sources/:sourceID/chunks", cfg.SourceHandler.ListChunks)
		protected.GET("/bots/:botID/chunks", cfg.SourceHandler.ListBotChunks)
		protected.GET("/bots/:botID/chunks/:chunkID", cfg.SourceHandler.GetChunk)

		protected.POST("/bots/:botID/widget-tokens", cfg.WidgetTokenHandler.Issue)
		protected.GET("/bots/:botID/widget-tokens", cfg.WidgetTokenHandler.List)
		protected.DELETE("/bots/:botID/widget-tokens/:tokenID", cfg.WidgetTokenHandler.Revoke)

		protected.POST("/bots/:botID/query", cfg.QueryHandler.OwnerQuery)
		protected.POST("/bots/:botID/queries/:queryID/feedback", cfg.QueryHandler.OwnerFeedback)
		protected.GET("/bots/:botID/rate-limit", cfg.QueryHandler.OwnerRateLimitStatus)

		protected.GET("/bots/:botID/analytics/summary", cfg.AnalyticsHandler.Summary)
		protected.GET("/bots/:botID/analytics/top-queries", cfg.AnalyticsHandler.TopQueries)
		protected.GET("/bots/:botID/analytics/unanswered", cfg.AnalyticsHandler.Unanswered)
		protected.GET("/bots/:botID/analytics/usage", cfg.AnalyticsHandler.DailyUsage)
		protected.GET("/bots/:botID/queries", cfg.AnalyticsHandler.ListQueries)
	}

	// ===============
	// || Widget    ||
	// ===============
	// The widget script is embedded on arbitrary operator sites, so CORS is
	// open here; the token's domain allowlist is the real gate.
	widget := router.Group("/api/v1/widget")
	widget.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type", "X-Widget-Token"},
		ExposeHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
	}))
	widget.Use(cfg.WidgetAuthMiddleware.RequireWidgetToken())
	{
		widget.POST("/query", cfg.RateLimitMiddleware.LimitWidgetQueries(), cfg.QueryHandler.WidgetQuery)
		widget.POST("/queries/:queryID/feedback", cfg.QueryHandler.WidgetFeedback)
		widget.GET("/rate-limit", cfg.QueryHandler.WidgetRateLimitStatus)
	}

	return router
}
