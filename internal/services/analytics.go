package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/repos"
	"github.com/niyahq/niya-backend/internal/types"
)

const (
	analyticsDefaultDays       = 30
	analyticsMaxDays           = 365
	unansweredConfidenceCutoff = 0.3
)

type AnalyticsService interface {
	Summary(ctx context.Context, bot *types.Bot, days int) (*repos.AnalyticsSummary, error)
	TopQueries(ctx context.Context, bot *types.Bot, days, limit int) ([]*repos.TopQuery, error)
	Unanswered(ctx context.Context, bot *types.Bot, days, limit int) ([]*types.QueryLog, error)
	DailyUsage(ctx context.Context, bot *types.Bot, days int) ([]*repos.DailyUsage, error)
	ListQueries(ctx context.Context, bot *types.Bot, limit, offset int) ([]*types.QueryLog, error)
	SubmitFeedback(ctx context.Context, botID, queryLogID uuid.UUID, feedback string) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type analyticsService struct {
	queryLogRepo repos.QueryLogRepo
	log          *logger.Logger
}

func NewAnalyticsService(queryLogRepo repos.QueryLogRepo, baseLog *logger.Logger) AnalyticsService {
	return &analyticsService{
		queryLogRepo: queryLogRepo,
		log:          baseLog.With("service", "AnalyticsService"),
	}
}

func sinceDays(days int) time.Time {
	if days <= 0 {
		days = analyticsDefaultDays
	}
	if days > analyticsMaxDays {
		days = analyticsMaxDays
	}
	return time.Now().UTC().AddDate(0, 0, -days)
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func (s *analyticsService) Summary(ctx context.Context, bot *types.Bot, days int) (*repos.AnalyticsSummary, error) {
	summary, err := s.queryLogRepo.Summary(ctx, nil, bot.ID, sinceDays(days))
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return summary, nil
}

func (s *analyticsService) TopQueries(ctx context.Context, bot *types.Bot, days, limit int) ([]*repos.TopQuery, error) {
	results, err := s.queryLogRepo.TopQueries(ctx, nil, bot.ID, sinceDays(days), clampLimit(limit, 10, 100))
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return results, nil
}

func (s *analyticsService) Unanswered(ctx context.Context, bot *types.Bot, days, limit int) ([]*types.QueryLog, error) {
	results, err := s.queryLogRepo.Unanswered(ctx, nil, bot.ID, sinceDays(days), unansweredConfidenceCutoff, clampLimit(limit, 20, 200))
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return results, nil
}

func (s *analyticsService) DailyUsage(ctx context.Context, bot *types.Bot, days int) ([]*repos.DailyUsage, error) {
	results, err := s.queryLogRepo.DailyUsage(ctx, nil, bot.ID, sinceDays(days))
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return results, nil
}

func (s *analyticsService) ListQueries(ctx context.Context, bot *types.Bot, limit, offset int) ([]*types.QueryLog, error) {
	results, err := s.queryLogRepo.ListByBot(ctx, nil, bot.ID, clampLimit(limit, 50, 500), offset)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return results, nil
}

// SubmitFeedback records a thumbs up/down on a logged answer. The entry must
// belong to the given bot; widget callers only ever see their own bot's ids.
func (s *analyticsService) SubmitFeedback(ctx context.Context, botID, queryLogID uuid.UUID, feedback string) error {
	if feedback != types.FeedbackUp && feedback != types.FeedbackDown {
		return apierr.Validation(fmt.Errorf("feedback must be %q or %q", types.FeedbackUp, types.FeedbackDown))
	}
	entry, err := s.queryLogRepo.GetByID(ctx, nil, queryLogID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound(fmt.Errorf("query not found"))
		}
		return apierr.Internal(err)
	}
	if entry.BotID != botID {
		return apierr.NotFound(fmt.Errorf("query not found"))
	}
	if err := s.queryLogRepo.UpdateFeedback(ctx, nil, queryLogID, feedback); err != nil {
		return apierr.Internal(err)
	}
	return nil
}

func (s *analyticsService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.queryLogRepo.PurgeExpired(ctx, nil)
}
