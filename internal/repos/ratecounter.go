package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/types"
)

type RateCounterRepo interface {
	IncrementWithLimit(ctx context.Context, tx *gorm.DB, botID uuid.UUID, windowStart time.Time, limit int) (count int, allowed bool, err error)
	GetCount(ctx context.Context, tx *gorm.DB, botID uuid.UUID, windowStart time.Time) (int, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type rateCounterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRateCounterRepo(db *gorm.DB, baseLog *logger.Logger) RateCounterRepo {
	repoLog := baseLog.With("repo", "RateCounterRepo")
	return &rateCounterRepo{db: db, log: repoLog}
}

// IncrementWithLimit bumps the per-minute counter in a single atomic upsert.
// The conditional DO UPDATE leaves the row untouched once the limit is hit,
// so the RETURNING count never overshoots and concurrent callers see a
// consistent decision.
func (r *rateCounterRepo) IncrementWithLimit(ctx context.Context, tx *gorm.DB, botID uuid.UUID, windowStart time.Time, limit int) (int, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var counts []int
	err := transaction.WithContext(ctx).Raw(`
		INSERT INTO "rate_counters" (bot_id, window_start, count)
		VALUES (?, ?, 1)
		ON CONFLICT (bot_id, window_start)
		DO UPDATE SET count = "rate_counters".count + 1
		WHERE "rate_counters".count < ?
		RETURNING count
	`, botID, windowStart, limit).Scan(&counts).Error
	if err != nil {
		return 0, false, err
	}
	if len(counts) == 0 {
		// DO UPDATE skipped: the window is already at the limit.
		return limit, false, nil
	}
	return counts[0], counts[0] <= limit, nil
}

func (r *rateCounterRepo) GetCount(ctx context.Context, tx *gorm.DB, botID uuid.UUID, windowStart time.Time) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var counter types.RateCounter
	err := transaction.WithContext(ctx).
		Where("bot_id = ? AND window_start = ?", botID, windowStart).
		First(&counter).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return counter.Count, nil
}

func (r *rateCounterRepo) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	result := transaction.WithContext(ctx).
		Where("window_start < ?", cutoff).
		Delete(&types.RateCounter{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
