package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/niyahq/niya-backend/internal/http/response"
	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/services"
)

type BotHandler struct {
	botService services.BotService
}

func NewBotHandler(botService services.BotService) *BotHandler {
	return &BotHandler{botService: botService}
}

func (bh *BotHandler) Create(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation(fmt.Errorf("invalid request body")))
		return
	}
	bot, err := bh.botService.Create(c.Request.Context(), userID, req.Name, req.Description)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, bot)
}

func (bh *BotHandler) List(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	bots, err := bh.botService.List(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, bots)
}

func (bh *BotHandler) Get(c *gin.Context) {
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
	bot, err := bh.botService.GetOwned(c.Request.Context(), userID, botID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, bot)
}

func (bh *BotHandler) Update(c *gin.Context) {
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
	var update services.BotUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.RespondError(c, apierr.Validation(fmt.Errorf("invalid request body")))
		return
	}
	bot, err := bh.botService.Update(c.Request.Context(), userID, botID, update)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, bot)
}

func (bh *BotHandler) Delete(c *gin.Context) {
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
	if err := bh.botService.Delete(c.Request.Context(), userID, botID); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}
