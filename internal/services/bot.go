package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/repos"
	"github.com/niyahq/niya-backend/internal/types"
)

// BotUpdate carries the patchable bot fields; nil means "leave unchanged".
type BotUpdate struct {
	Name               *string  `json:"name,omitempty"`
	Description        *string  `json:"description,omitempty"`
	SystemPrompt       *string  `json:"system_prompt,omitempty"`
	ModelProvider      *string  `json:"model_provider,omitempty"`
	ModelName          *string  `json:"model_name,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
	MaxTokens          *int     `json:"max_tokens,omitempty"`
	TopK               *int     `json:"top_k,omitempty"`
	MinScore           *float64 `json:"min_score,omitempty"`
	RateLimitPerMinute *int     `json:"rate_limit_per_minute,omitempty"`
	RetentionDays      *int     `json:"retention_days,omitempty"`
}

// BotService owns bot CRUD and the ownership gate every other owner-facing
// service goes through.
type BotService interface {
	Create(ctx context.Context, ownerID uuid.UUID, name, description string) (*types.Bot, error)
	GetOwned(ctx context.Context, ownerID, botID uuid.UUID) (*types.Bot, error)
	GetByID(ctx context.Context, botID uuid.UUID) (*types.Bot, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]*types.Bot, error)
	Update(ctx context.Context, ownerID, botID uuid.UUID, update BotUpdate) (*types.Bot, error)
	Delete(ctx context.Context, ownerID, botID uuid.UUID) error
}

type botService struct {
	botRepo repos.BotRepo
	log     *logger.Logger
}

func NewBotService(botRepo repos.BotRepo, baseLog *logger.Logger) BotService {
	return &botService{
		botRepo: botRepo,
		log:     baseLog.With("service", "BotService"),
	}
}

func (s *botService) Create(ctx context.Context, ownerID uuid.UUID, name, description string) (*types.Bot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierr.Validation(fmt.Errorf("bot name must not be empty"))
	}
	bot := &types.Bot{
		OwnerID:            ownerID,
		Name:               name,
		Description:        strings.TrimSpace(description),
		ModelProvider:      "openai",
		ModelName:          "gpt-4o-mini",
		Temperature:        0.2,
		MaxTokens:          1024,
		TopK:               5,
		MinScore:           0.25,
		RateLimitPerMinute: 60,
		RetentionDays:      90,
	}
	created, err := s.botRepo.Create(ctx, nil, bot)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("creating bot: %w", err))
	}
	s.log.Info("bot created", "bot_id", created.ID, "owner_id", ownerID)
	return created, nil
}

// GetOwned resolves a bot and verifies ownership. A bot that exists but
// belongs to someone else reads as not found, so the API never confirms
// other tenants' bot ids.
func (s *botService) GetOwned(ctx context.Context, ownerID, botID uuid.UUID) (*types.Bot, error) {
	bot, err := s.botRepo.GetByID(ctx, nil, botID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(fmt.Errorf("bot not found"))
		}
		return nil, apierr.Internal(err)
	}
	if bot.OwnerID != ownerID {
		return nil, apierr.NotFound(fmt.Errorf("bot not found"))
	}
	return bot, nil
}

func (s *botService) GetByID(ctx context.Context, botID uuid.UUID) (*types.Bot, error) {
	bot, err := s.botRepo.GetByID(ctx, nil, botID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(fmt.Errorf("bot not found"))
		}
		return nil, apierr.Internal(err)
	}
	return bot, nil
}

func (s *botService) List(ctx context.Context, ownerID uuid.UUID) ([]*types.Bot, error) {
	bots, err := s.botRepo.ListByOwner(ctx, nil, ownerID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return bots, nil
}

func (s *botService) Update(ctx context.Context, ownerID, botID uuid.UUID, update BotUpdate) (*types.Bot, error) {
	bot, err := s.GetOwned(ctx, ownerID, botID)
	if err != nil {
		return nil, err
	}
	if err := applyBotUpdate(bot, update); err != nil {
		return nil, apierr.Validation(err)
	}
	saved, err := s.botRepo.Update(ctx, nil, bot)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("updating bot: %w", err))
	}
	return saved, nil
}

func (s *botService) Delete(ctx context.Context, ownerID, botID uuid.UUID) error {
	if _, err := s.GetOwned(ctx, ownerID, botID); err != nil {
		return err
	}
	if err := s.botRepo.Delete(ctx, nil, botID); err != nil {
		return apierr.Internal(fmt.Errorf("deleting bot: %w", err))
	}
	s.log.Info("bot deleted", "bot_id", botID, "owner_id", ownerID)
	return nil
}

func applyBotUpdate(bot *types.Bot, update BotUpdate) error {
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return fmt.Errorf("bot name must not be empty")
		}
		bot.Name = name
	}
	if update.Description != nil {
		bot.Description = strings.TrimSpace(*update.Description)
	}
	if update.SystemPrompt != nil {
		bot.SystemPrompt = *update.SystemPrompt
	}
	if update.ModelProvider != nil {
		provider := strings.ToLower(strings.TrimSpace(*update.ModelProvider))
		if provider != "openai" && provider != "gemini" {
			return fmt.Errorf("unknown model provider %q", provider)
		}
		bot.ModelProvider = provider
	}
	if update.ModelName != nil {
		if strings.TrimSpace(*update.ModelName) == "" {
			return fmt.Errorf("model name must not be empty")
		}
		bot.ModelName = strings.TrimSpace(*update.ModelName)
	}
	if update.Temperature != nil {
		if *update.Temperature < 0 || *update.Temperature > 2 {
			return fmt.Errorf("temperature must be between 0 and 2")
		}
		bot.Temperature = *update.Temperature
	}
	if update.MaxTokens != nil {
		if *update.MaxTokens <= 0 {
			return fmt.Errorf("max_tokens must be positive")
		}
		bot.MaxTokens = *update.MaxTokens
	}
	if update.TopK != nil {
		if *update.TopK <= 0 || *update.TopK > 50 {
			return fmt.Errorf("top_k must be between 1 and 50")
		}
		bot.TopK = *update.TopK
	}
	if update.MinScore != nil {
		if *update.MinScore < 0 || *update.MinScore > 1 {
			return fmt.Errorf("min_score must be between 0 and 1")
		}
		bot.MinScore = *update.MinScore
	}
	if update.RateLimitPerMinute != nil {
		if *update.RateLimitPerMinute <= 0 {
			return fmt.Errorf("rate_limit_per_minute must be positive")
		}
		bot.RateLimitPerMinute = *update.RateLimitPerMinute
	}
	if update.RetentionDays != nil {
		if *update.RetentionDays < 1 || *update.RetentionDays > 3650 {
			return fmt.Errorf("retention_days must be between 1 and 3650")
		}
		bot.RetentionDays = *update.RetentionDays
	}
	return nil
}
