package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/types"
)

type SourceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, source *types.Source) (*types.Source, error)
	GetByID(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID) (*types.Source, error)
	ListByBot(ctx context.Context, tx *gorm.DB, botID uuid.UUID) ([]*types.Source, error)
	ClaimNextUploaded(ctx context.Context, tx *gorm.DB) (*types.Source, error)
	MarkIndexed(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID, chunkCount int, checksum string) error
	MarkFailed(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID, message string) error
	ResetForReingest(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID) (bool, error)
	Update(ctx context.Context, tx *gorm.DB, source *types.Source) (*types.Source, error)
	Delete(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID) error
}

type sourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceRepo(db *gorm.DB, baseLog *logger.Logger) SourceRepo {
	repoLog := baseLog.With("repo", "SourceRepo")
	return &sourceRepo{db: db, log: repoLog}
}

func (r *sourceRepo) Create(ctx context.Context, tx *gorm.DB, source *types.Source) (*types.Source, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(source).Error; err != nil {
		return nil, err
	}
	return source, nil
}

func (r *sourceRepo) GetByID(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID) (*types.Source, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.Source
	if err := transaction.WithContext(ctx).
		Where("id = ?", sourceID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *sourceRepo) ListByBot(ctx context.Context, tx *gorm.DB, botID uuid.UUID) ([]*types.Source, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Source
	if err := transaction.WithContext(ctx).
		Where("bot_id = ?", botID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ClaimNextUploaded flips the oldest uploaded source to parsing and returns
// it. SKIP LOCKED keeps concurrent workers from claiming the same row.
// Returns (nil, nil) when the queue is empty.
func (r *sourceRepo) ClaimNextUploaded(ctx context.Context, tx *gorm.DB) (*types.Source, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var claimed []*types.Source
	err := transaction.WithContext(ctx).Raw(`
		UPDATE "sources"
		SET status = ?, updated_at = now()
		WHERE id = (
			SELECT id FROM "sources"
			WHERE status = ?
			ORDER BY created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING *
	`, types.SourceStatusParsing, types.SourceStatusUploaded).Scan(&claimed).Error
	if err != nil {
		return nil, err
	}
	if len(claimed) == 0 {
		return nil, nil
	}
	return claimed[0], nil
}

func (r *sourceRepo) MarkIndexed(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID, chunkCount int, checksum string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	return transaction.WithContext(ctx).
		Model(&types.Source{}).
		Where("id = ?", sourceID).
		Updates(map[string]interface{}{
			"status":           types.SourceStatusIndexed,
			"error_message":    "",
			"chunk_count":      chunkCount,
			"checksum":         checksum,
			"last_ingested_at": now,
			"updated_at":       now,
		}).Error
}

func (r *sourceRepo) MarkFailed(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID, message string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Source{}).
		Where("id = ?", sourceID).
		Updates(map[string]interface{}{
			"status":        types.SourceStatusFailed,
			"error_message": message,
			"updated_at":    time.Now().UTC(),
		}).Error
}

// ResetForReingest re-enqueues a failed or indexed source. Returns false when
// the source is currently being processed.
func (r *sourceRepo) ResetForReingest(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	result := transaction.WithContext(ctx).
		Model(&types.Source{}).
		Where("id = ? AND status IN ?", sourceID, []string{types.SourceStatusFailed, types.SourceStatusIndexed}).
		Updates(map[string]interface{}{
			"status":        types.SourceStatusUploaded,
			"error_message": "",
			"chunk_count":   0,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *sourceRepo) Update(ctx context.Context, tx *gorm.DB, source *types.Source) (*types.Source, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Save(source).Error; err != nil {
		return nil, err
	}
	return source, nil
}

func (r *sourceRepo) Delete(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", sourceID).
		Delete(&types.Source{}).Error
}
