package middleware

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/niyahq/niya-backend/internal/http/response"
	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/services"
)

type RateLimitMiddleware struct {
	log       *logger.Logger
	rateLimit services.RateLimitService
}

func NewRateLimitMiddleware(log *logger.Logger, rateLimit services.RateLimitService) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		log:       log.With("middleware", "RateLimitMiddleware"),
		rateLimit: rateLimit,
	}
}

// LimitWidgetQueries enforces the bot's per-minute query budget. Must run
// after RequireWidgetToken so the bot is already resolved. Every response
// carries the X-RateLimit headers; rejections add Retry-After.
func (rm *RateLimitMiddleware) LimitWidgetQueries() gin.HandlerFunc {
	return func(c *gin.Context) {
		bot := WidgetBot(c)
		if bot == nil {
			response.RespondError(c, apierr.Unauthorized(fmt.Errorf("missing widget token")))
			c.Abort()
			return
		}

		result := rm.rateLimit.CheckAndIncrement(c.Request.Context(), bot)
		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(result.RetryAfterS))
			response.RespondError(c, apierr.RateLimited(fmt.Errorf("rate limit exceeded, retry in %ds", result.RetryAfterS)))
			c.Abort()
			return
		}
		c.Next()
	}
}
