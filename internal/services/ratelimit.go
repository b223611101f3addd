package services

import (
	"context"
	"time"

	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/repos"
	"github.com/niyahq/niya-backend/internal/types"
)

// RateLimitResult is one admission decision for a widget query.
type RateLimitResult struct {
	Allowed     bool      `json:"allowed"`
	Limit       int       `json:"limit"`
	Remaining   int       `json:"remaining"`
	RetryAfterS int       `json:"retry_after_s"`
	ResetAt     time.Time `json:"reset_at"`
}

type RateLimitService interface {
	CheckAndIncrement(ctx context.Context, bot *types.Bot) RateLimitResult
	Status(ctx context.Context, bot *types.Bot) (RateLimitResult, error)
	Sweep(ctx context.Context) (int64, error)
}

type rateLimitService struct {
	counterRepo  repos.RateCounterRepo
	defaultLimit int
	now          func() time.Time
	log          *logger.Logger
}

func NewRateLimitService(counterRepo repos.RateCounterRepo, defaultLimit int, baseLog *logger.Logger) RateLimitService {
	if defaultLimit <= 0 {
		defaultLimit = 60
	}
	return &rateLimitService{
		counterRepo:  counterRepo,
		defaultLimit: defaultLimit,
		now:          time.Now,
		log:          baseLog.With("service", "RateLimitService"),
	}
}

// CheckAndIncrement admits or rejects one query against the bot's
// per-minute window. Counter errors fail open: a broken limiter should
// degrade to unlimited, not take the widget down.
func (s *rateLimitService) CheckAndIncrement(ctx context.Context, bot *types.Bot) RateLimitResult {
	limit := s.limitFor(bot)
	now := s.now().UTC()
	window := now.Truncate(time.Minute)
	result := RateLimitResult{
		Allowed:     true,
		Limit:       limit,
		Remaining:   limit,
		RetryAfterS: 60 - now.Second(),
		ResetAt:     window.Add(time.Minute),
	}

	count, allowed, err := s.counterRepo.IncrementWithLimit(ctx, nil, bot.ID, window, limit)
	if err != nil {
		s.log.Error("rate counter increment failed, failing open", "bot_id", bot.ID, "error", err)
		return result
	}
	result.Allowed = allowed
	result.Remaining = limit - count
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	return result
}

func (s *rateLimitService) Status(ctx context.Context, bot *types.Bot) (RateLimitResult, error) {
	limit := s.limitFor(bot)
	now := s.now().UTC()
	window := now.Truncate(time.Minute)

	count, err := s.counterRepo.GetCount(ctx, nil, bot.ID, window)
	if err != nil {
		return RateLimitResult{}, err
	}
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:     count < limit,
		Limit:       limit,
		Remaining:   remaining,
		RetryAfterS: 60 - now.Second(),
		ResetAt:     window.Add(time.Minute),
	}, nil
}

// Sweep removes counter rows for windows older than an hour.
func (s *rateLimitService) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-time.Hour)
	return s.counterRepo.DeleteOlderThan(ctx, nil, cutoff)
}

func (s *rateLimitService) limitFor(bot *types.Bot) int {
	if bot.RateLimitPerMinute > 0 {
		return bot.RateLimitPerMinute
	}
	return s.defaultLimit
}
