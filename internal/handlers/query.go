package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/niyahq/niya-backend/internal/http/response"
	"github.com/niyahq/niya-backend/internal/middleware"
	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/services"
)

type QueryHandler struct {
	botService       services.BotService
	ragService       services.RAGService
	analyticsService services.AnalyticsService
	rateLimitService services.RateLimitService
}

func NewQueryHandler(
	botService services.BotService,
	ragService services.RAGService,
	analyticsService services.AnalyticsService,
	rateLimitService services.RateLimitService,
) *QueryHandler {
	return &QueryHandler{
		botService:       botService,
		ragService:       ragService,
		analyticsService: analyticsService,
		rateLimitService: rateLimitService,
	}
}

// OwnerQuery lets the bot owner exercise the query engine from the dashboard
// without a widget token. Not rate limited.
func (qh *QueryHandler) OwnerQuery(c *gin.Context) {
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
	bot, err := qh.botService.GetOwned(c.Request.Context(), userID, botID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	var req services.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation(fmt.Errorf("invalid request body")))
		return
	}
	resp, err := qh.ragService.Answer(c.Request.Context(), bot, req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, resp)
}

// OwnerFeedback lets the operator correct or confirm an answer from the
// dashboard, e.g. while reviewing the unanswered-queries report.
func (qh *QueryHandler) OwnerFeedback(c *gin.Context) {
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
	bot, err := qh.botService.GetOwned(c.Request.Context(), userID, botID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	queryLogID, err := parseUUIDParam(c, "queryID")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	var req struct {
		Feedback string `json:"feedback"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation(fmt.Errorf("invalid request body")))
		return
	}
	if err := qh.analyticsService.SubmitFeedback(c.Request.Context(), bot.ID, queryLogID, req.Feedback); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

// OwnerRateLimitStatus shows the bot's current widget query window.
func (qh *QueryHandler) OwnerRateLimitStatus(c *gin.Context) {
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
	bot, err := qh.botService.GetOwned(c.Request.Context(), userID, botID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	status, err := qh.rateLimitService.Status(c.Request.Context(), bot)
	if err != nil {
		response.RespondError(c, apierr.Internal(err))
		return
	}
	response.RespondOK(c, status)
}

// WidgetQuery answers an end-user question. The bot comes from the widget
// token middleware and the rate limiter has already admitted the request.
func (qh *QueryHandler) WidgetQuery(c *gin.Context) {
	bot := middleware.WidgetBot(c)
	if bot == nil {
		response.RespondError(c, apierr.Unauthorized(fmt.Errorf("missing widget token")))
		return
	}
	var req services.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation(fmt.Errorf("invalid request body")))
		return
	}
	// Source storage paths and URLs are owner-only; public widget callers
	// never get citation metadata no matter what they send.
	req.IncludeMetadata = false
	resp, err := qh.ragService.Answer(c.Request.Context(), bot, req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, resp)
}

// WidgetFeedback records a thumbs up/down on a previous answer.
func (qh *QueryHandler) WidgetFeedback(c *gin.Context) {
	bot := middleware.WidgetBot(c)
	if bot == nil {
		response.RespondError(c, apierr.Unauthorized(fmt.Errorf("missing widget token")))
		return
	}
	queryLogID, err := parseUUIDParam(c, "queryID")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	var req struct {
		Feedback string `json:"feedback"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation(fmt.Errorf("invalid request body")))
		return
	}
	if err := qh.analyticsService.SubmitFeedback(c.Request.Context(), bot.ID, queryLogID, req.Feedback); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

// WidgetRateLimitStatus reports the current window without consuming a slot.
func (qh *QueryHandler) WidgetRateLimitStatus(c *gin.Context) {
	bot := middleware.WidgetBot(c)
	if bot == nil {
		response.RespondError(c, apierr.Unauthorized(fmt.Errorf("missing widget token")))
		return
	}
	status, err := qh.rateLimitService.Status(c.Request.Context(), bot)
	if err != nil {
		response.RespondError(c, apierr.Internal(err))
		return
	}
	response.RespondOK(c, status)
}
