package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/niyahq/niya-backend/internal/http/response"
	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/requestdata"
	"github.com/niyahq/niya-backend/internal/services"
	"github.com/niyahq/niya-backend/internal/types"
)

const widgetBotContextKey = "widget_bot"

type WidgetAuthMiddleware struct {
	log          *logger.Logger
	tokenService services.WidgetTokenService
	botService   services.BotService
}

func NewWidgetAuthMiddleware(log *logger.Logger, tokenService services.WidgetTokenService, botService services.BotService) *WidgetAuthMiddleware {
	return &WidgetAuthMiddleware{
		log:          log.With("middleware", "WidgetAuthMiddleware"),
		tokenService: tokenService,
		botService:   botService,
	}
}

// RequireWidgetToken validates the presented widget token against the request
// Origin and resolves the bot it belongs to. The bot lands in the gin context
// so the query handlers never re-resolve it.
func (wm *WidgetAuthMiddleware) RequireWidgetToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		plaintext := extractWidgetToken(c)
		if plaintext == "" {
			response.RespondError(c, apierr.Unauthorized(fmt.Errorf("missing widget token")))
			c.Abort()
			return
		}
		record, err := wm.tokenService.Validate(c.Request.Context(), plaintext, c.GetHeader("Origin"))
		if err != nil {
			response.RespondError(c, err)
			c.Abort()
			return
		}
		bot, err := wm.botService.GetByID(c.Request.Context(), record.BotID)
		if err != nil {
			wm.log.Warn("widget token points at missing bot", "token_prefix", record.TokenPrefix, "bot_id", record.BotID)
			response.RespondError(c, apierr.Unauthorized(fmt.Errorf("invalid widget token")))
			c.Abort()
			return
		}

		ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{
			WidgetBotID:   bot.ID,
			WidgetTokenID: record.ID,
		})
		c.Request = c.Request.WithContext(ctx)
		SetWidgetBot(c, bot)
		c.Next()
	}
}

// SetWidgetBot stores the resolved bot on the gin context under the key
// WidgetBot reads.
func SetWidgetBot(c *gin.Context, bot *types.Bot) {
	c.Set(widgetBotContextKey, bot)
}

// WidgetBot returns the bot resolved by RequireWidgetToken, or nil when the
// middleware has not run on this route.
func WidgetBot(c *gin.Context) *types.Bot {
	val, ok := c.Get(widgetBotContextKey)
	if !ok {
		return nil
	}
	bot, ok := val.(*types.Bot)
	if !ok {
		return nil
	}
	return bot
}

func extractWidgetToken(c *gin.Context) string {
	if header := strings.TrimSpace(c.GetHeader("X-Widget-Token")); header != "" {
		return header
	}
	return extractBearerToken(c)
}
