package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/niyahq/niya-backend/internal/http/response"
	"github.com/niyahq/niya-backend/internal/services"
	"github.com/niyahq/niya-backend/internal/types"
)

type AnalyticsHandler struct {
	botService       services.BotService
	analyticsService services.AnalyticsService
}

func NewAnalyticsHandler(botService services.BotService, analyticsService services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{botService: botService, analyticsService: analyticsService}
}

func (ah *AnalyticsHandler) ownedBot(c *gin.Context) (*types.Bot, error) {
	userID, err := currentUserID(c)
	if err != nil {
		return nil, err
	}
	botID, err := parseUUIDParam(c, "botID")
	if err != nil {
		return nil, err
	}
	return ah.botService.GetOwned(c.Request.Context(), userID, botID)
}

func (ah *AnalyticsHandler) Summary(c *gin.Context) {
	bot, err := ah.ownedBot(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	summary, err := ah.analyticsService.Summary(c.Request.Context(), bot, queryInt(c, "days", 0))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, summary)
}

func (ah *AnalyticsHandler) TopQueries(c *gin.Context) {
	bot, err := ah.ownedBot(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	results, err := ah.analyticsService.TopQueries(c.Request.Context(), bot, queryInt(c, "days", 0), queryInt(c, "limit", 0))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, results)
}

func (ah *AnalyticsHandler) Unanswered(c *gin.Context) {
	bot, err := ah.ownedBot(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	results, err := ah.analyticsService.Unanswered(c.Request.Context(), bot, queryInt(c, "days", 0), queryInt(c, "limit", 0))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, results)
}

func (ah *AnalyticsHandler) DailyUsage(c *gin.Context) {
	bot, err := ah.ownedBot(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	results, err := ah.analyticsService.DailyUsage(c.Request.Context(), bot, queryInt(c, "days", 0))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, results)
}

func (ah *AnalyticsHandler) ListQueries(c *gin.Context) {
	bot, err := ah.ownedBot(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	results, err := ah.analyticsService.ListQueries(c.Request.Context(), bot, queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, results)
}
