package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/types"
)

// AnalyticsSummary aggregates a bot's query log over a trailing window.
type AnalyticsSummary struct {
	TotalQueries   int64    `json:"total_queries"`
	UniqueSessions int64    `json:"unique_sessions"`
	AvgConfidence  *float64 `json:"avg_confidence"`
	AvgLatencyMs   *float64 `json:"avg_latency_ms"`
	FeedbackUp     int64    `json:"feedback_up"`
	FeedbackDown   int64    `json:"feedback_down"`
}

type TopQuery struct {
	QueryText string `json:"query_text"`
	Count     int64  `json:"count"`
}

type DailyUsage struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

type QueryLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entry *types.QueryLog) (*types.QueryLog, error)
	GetByID(ctx context.Context, tx *gorm.DB, entryID uuid.UUID) (*types.QueryLog, error)
	ListByBot(ctx context.Context, tx *gorm.DB, botID uuid.UUID, limit, offset int) ([]*types.QueryLog, error)
	GetRecentBySession(ctx context.Context, tx *gorm.DB, botID uuid.UUID, sessionID string, limit int) ([]*types.QueryLog, error)
	UpdateFeedback(ctx context.Context, tx *gorm.DB, entryID uuid.UUID, feedback string) error
	Summary(ctx context.Context, tx *gorm.DB, botID uuid.UUID, since time.Time) (*AnalyticsSummary, error)
	TopQueries(ctx context.Context, tx *gorm.DB, botID uuid.UUID, since time.Time, limit int) ([]*TopQuery, error)
	Unanswered(ctx context.Context, tx *gorm.DB, botID uuid.UUID, since time.Time, threshold float64, limit int) ([]*types.QueryLog, error)
	DailyUsage(ctx context.Context, tx *gorm.DB, botID uuid.UUID, since time.Time) ([]*DailyUsage, error)
	PurgeExpired(ctx context.Context, tx *gorm.DB) (int64, error)
}

type queryLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQueryLogRepo(db *gorm.DB, baseLog *logger.Logger) QueryLogRepo {
	repoLog := baseLog.With("repo", "QueryLogRepo")
	return &queryLogRepo{db: db, log: repoLog}
}

func (r *queryLogRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.QueryLog) (*types.QueryLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *queryLogRepo) GetByID(ctx context.Context, tx *gorm.DB, entryID uuid.UUID) (*types.QueryLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.QueryLog
	if err := transaction.WithContext(ctx).
		Where("id = ?", entryID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *queryLogRepo) ListByBot(ctx context.Context, tx *gorm.DB, botID uuid.UUID, limit, offset int) ([]*types.QueryLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.QueryLog
	q := transaction.WithContext(ctx).
		Where("bot_id = ?", botID).
		Order("created_at DESC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetRecentBySession returns the latest entries for a widget session, newest
// first. Callers reverse the slice when building chat history.
func (r *queryLogRepo) GetRecentBySession(ctx context.Context, tx *gorm.DB, botID uuid.UUID, sessionID string, limit int) ([]*types.QueryLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.QueryLog
	if sessionID == "" {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("bot_id = ? AND session_id = ?", botID, sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *queryLogRepo) UpdateFeedback(ctx context.Context, tx *gorm.DB, entryID uuid.UUID, feedback string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.QueryLog{}).
		Where("id = ?", entryID).
		Update("user_feedback", feedback).Error
}

func (r *queryLogRepo) Summary(ctx context.Context, tx *gorm.DB, botID uuid.UUID, since time.Time) (*AnalyticsSummary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var summary AnalyticsSummary
	err := transaction.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_queries,
			COUNT(DISTINCT session_id) FILTER (WHERE session_id <> '') AS unique_sessions,
			AVG(confidence) AS avg_confidence,
			AVG(latency_ms) AS avg_latency_ms,
			COUNT(*) FILTER (WHERE user_feedback = ?) AS feedback_up,
			COUNT(*) FILTER (WHERE user_feedback = ?) AS feedback_down
		FROM "query_logs"
		WHERE bot_id = ? AND created_at >= ?
	`, types.FeedbackUp, types.FeedbackDown, botID, since).Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *queryLogRepo) TopQueries(ctx context.Context, tx *gorm.DB, botID uuid.UUID, since time.Time, limit int) ([]*TopQuery, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*TopQuery
	err := transaction.WithContext(ctx).Raw(`
		SELECT lower(trim(query_text)) AS query_text, COUNT(*) AS count
		FROM "query_logs"
		WHERE bot_id = ? AND created_at >= ?
		GROUP BY lower(trim(query_text))
		ORDER BY count DESC, query_text ASC
		LIMIT ?
	`, botID, since, limit).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *queryLogRepo) Unanswered(ctx context.Context, tx *gorm.DB, botID uuid.UUID, since time.Time, threshold float64, limit int) ([]*types.QueryLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.QueryLog
	if err := transaction.WithContext(ctx).
		Where("bot_id = ? AND created_at >= ?", botID, since).
		Where("confidence IS NULL OR confidence < ? OR citations IS NULL OR citations::text = '[]'", threshold).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *queryLogRepo) DailyUsage(ctx context.Context, tx *gorm.DB, botID uuid.UUID, since time.Time) ([]*DailyUsage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*DailyUsage
	err := transaction.WithContext(ctx).Raw(`
		SELECT date_trunc('day', created_at) AS day, COUNT(*) AS count
		FROM "query_logs"
		WHERE bot_id = ? AND created_at >= ?
		GROUP BY date_trunc('day', created_at)
		ORDER BY day ASC
	`, botID, since).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// PurgeExpired drops query log rows older than each bot's retention window.
func (r *queryLogRepo) PurgeExpired(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	result := transaction.WithContext(ctx).Exec(`
		DELETE FROM "query_logs" ql
		USING "bots" b
		WHERE ql.bot_id = b.id
		  AND b.retention_days > 0
		  AND ql.created_at < now() - (b.retention_days * interval '1 day')
	`)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
