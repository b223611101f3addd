package app

import (
	"github.com/niyahq/niya-backend/internal/middleware"
	"github.com/niyahq/niya-backend/internal/platform/logger"
)

type Middleware struct {
	Auth       *middleware.AuthMiddleware
	WidgetAuth *middleware.WidgetAuthMiddleware
	RateLimit  *middleware.RateLimitMiddleware
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:       middleware.NewAuthMiddleware(log, services.Auth),
		WidgetAuth: middleware.NewWidgetAuthMiddleware(log, services.WidgetToken, services.Bot),
		RateLimit:  middleware.NewRateLimitMiddleware(log, services.RateLimit),
	}
}
