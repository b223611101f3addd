package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/types"
)

type BotRepo interface {
	Create(ctx context.Context, tx *gorm.DB, bot *types.Bot) (*types.Bot, error)
	GetByID(ctx context.Context, tx *gorm.DB, botID uuid.UUID) (*types.Bot, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*types.Bot, error)
	Update(ctx context.Context, tx *gorm.DB, bot *types.Bot) (*types.Bot, error)
	Delete(ctx context.Context, tx *gorm.DB, botID uuid.UUID) error
}

type botRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBotRepo(db *gorm.DB, baseLog *logger.Logger) BotRepo {
	repoLog := baseLog.With("repo", "BotRepo")
	return &botRepo{db: db, log: repoLog}
}

func (r *botRepo) Create(ctx context.Context, tx *gorm.DB, bot *types.Bot) (*types.Bot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(bot).Error; err != nil {
		return nil, err
	}
	return bot, nil
}

func (r *botRepo) GetByID(ctx context.Context, tx *gorm.DB, botID uuid.UUID) (*types.Bot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.Bot
	if err := transaction.WithContext(ctx).
		Where("id = ?", botID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *botRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*types.Bot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Bot
	if err := transaction.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *botRepo) Update(ctx context.Context, tx *gorm.DB, bot *types.Bot) (*types.Bot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Save(bot).Error; err != nil {
		return nil, err
	}
	return bot, nil
}

func (r *botRepo) Delete(ctx context.Context, tx *gorm.DB, botID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", botID).
		Delete(&types.Bot{}).Error
}
