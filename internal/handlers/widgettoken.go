package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/niyahq/niya-backend/internal/http/response"
	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/services"
)

type WidgetTokenHandler struct {
	botService   services.BotService
	tokenService services.WidgetTokenService
}

func NewWidgetTokenHandler(botService services.BotService, tokenService services.WidgetTokenService) *WidgetTokenHandler {
	return &WidgetTokenHandler{botService: botService, tokenService: tokenService}
}

// Issue mints a widget token for an owned bot. The plaintext appears in this
// response only.
func (wh *WidgetTokenHandler) Issue(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	botID, err := parseUUIDParam(c, "botID")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	bot, err := wh.botService.GetOwned(c.Request.Context(), userID, botID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	var req struct {
		Label          string     `json:"label"`
		AllowedDomains []string   `json:"allowed_domains"`
		ExpiresAt      *time.Time `json:"expires_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation(fmt.Errorf("invalid request body")))
		return
	}
	issued, err := wh.tokenService.Issue(c.Request.Context(), bot.ID, req.Label, req.AllowedDomains, req.ExpiresAt)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, issued)
}

func (wh *WidgetTokenHandler) List(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	botID, err := parseUUIDParam(c, "botID")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	bot, err := wh.botService.GetOwned(c.Request.Context(), userID, botID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	tokens, err := wh.tokenService.List(c.Request.Context(), bot.ID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, tokens)
}

func (wh *WidgetTokenHandler) Revoke(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	botID, err := parseUUIDParam(c, "botID")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	tokenID, err := parseUUIDParam(c, "tokenID")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	bot, err := wh.botService.GetOwned(c.Request.Context(), userID, botID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if err := wh.tokenService.Revoke(c.Request.Context(), bot.ID, tokenID); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}
