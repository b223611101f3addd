package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/types"
)

type WidgetTokenRepo interface {
	Create(ctx context.Context, tx *gorm.DB, token *types.WidgetToken) (*types.WidgetToken, error)
	GetByID(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID) (*types.WidgetToken, error)
	GetByHash(ctx context.Context, tx *gorm.DB, tokenHash string) (*types.WidgetToken, error)
	ListByBot(ctx context.Context, tx *gorm.DB, botID uuid.UUID) ([]*types.WidgetToken, error)
	TouchLastUsed(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID) error
	Delete(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID) error
}

type widgetTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWidgetTokenRepo(db *gorm.DB, baseLog *logger.Logger) WidgetTokenRepo {
	repoLog := baseLog.With("repo", "WidgetTokenRepo")
	return &widgetTokenRepo{db: db, log: repoLog}
}

func (r *widgetTokenRepo) Create(ctx context.Context, tx *gorm.DB, token *types.WidgetToken) (*types.WidgetToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

func (r *widgetTokenRepo) GetByID(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID) (*types.WidgetToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.WidgetToken
	if err := transaction.WithContext(ctx).
		Where("id = ?", tokenID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *widgetTokenRepo) GetByHash(ctx context.Context, tx *gorm.DB, tokenHash string) (*types.WidgetToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.WidgetToken
	if err := transaction.WithContext(ctx).
		Where("lower(token_hash) = lower(?)", tokenHash).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *widgetTokenRepo) ListByBot(ctx context.Context, tx *gorm.DB, botID uuid.UUID) ([]*types.WidgetToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.WidgetToken
	if err := transaction.WithContext(ctx).
		Where("bot_id = ?", botID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *widgetTokenRepo) TouchLastUsed(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.WidgetToken{}).
		Where("id = ?", tokenID).
		Update("last_used_at", time.Now().UTC()).Error
}

func (r *widgetTokenRepo) Delete(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", tokenID).
		Delete(&types.WidgetToken{}).Error
}
