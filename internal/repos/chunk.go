package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/types"
)

// ChunkHit is one vector search result. Score is cosine similarity in [0, 1].
type ChunkHit struct {
	ID         uuid.UUID `json:"id"`
	BotID      uuid.UUID `json:"bot_id"`
	SourceID   uuid.UUID `json:"source_id"`
	Index      int       `json:"index"`
	Text       string    `json:"text"`
	TokenCount int       `json:"token_count"`
	CharStart  int       `json:"char_start"`
	CharEnd    int       `json:"char_end"`
	Heading    string    `json:"heading,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Score      float64   `json:"score"`
}

type ChunkRepo interface {
	Create(ctx context.Context, tx *gorm.DB, chunks []*types.Chunk) ([]*types.Chunk, error)
	GetByID(ctx context.Context, tx *gorm.DB, chunkID uuid.UUID) (*types.Chunk, error)
	GetBySource(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID, limit, offset int) ([]*types.Chunk, error)
	ListByBot(ctx context.Context, tx *gorm.DB, botID uuid.UUID, limit int) ([]*types.Chunk, error)
	CountByBot(ctx context.Context, tx *gorm.DB, botID uuid.UUID) (int64, error)
	DeleteBySource(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID) error
	SearchSimilar(ctx context.Context, tx *gorm.DB, botID uuid.UUID, embedding pgvector.Vector, topK int, minScore float64) ([]*ChunkHit, error)
}

type chunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
	repoLog := baseLog.With("repo", "ChunkRepo")
	return &chunkRepo{db: db, log: repoLog}
}

func (r *chunkRepo) Create(ctx context.Context, tx *gorm.DB, chunks []*types.Chunk) ([]*types.Chunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(chunks) == 0 {
		return []*types.Chunk{}, nil
	}

	// Keep batches small because Text and Embedding are large
	const batchSize = 100

	if err := transaction.WithContext(ctx).CreateInBatches(chunks, batchSize).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

func (r *chunkRepo) GetByID(ctx context.Context, tx *gorm.DB, chunkID uuid.UUID) (*types.Chunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.Chunk
	if err := transaction.WithContext(ctx).
		Where("id = ?", chunkID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *chunkRepo) GetBySource(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID, limit, offset int) ([]*types.Chunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Chunk
	q := transaction.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Order("index ASC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chunkRepo) ListByBot(ctx context.Context, tx *gorm.DB, botID uuid.UUID, limit int) ([]*types.Chunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Chunk
	q := transaction.WithContext(ctx).
		Where("bot_id = ?", botID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chunkRepo) CountByBot(ctx context.Context, tx *gorm.DB, botID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Chunk{}).
		Where("bot_id = ?", botID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *chunkRepo) DeleteBySource(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Delete(&types.Chunk{}).Error
}

// SearchSimilar runs bot-scoped cosine search over the ivfflat index.
// Results below minScore are dropped; equal distances tie-break on chunk id
// so repeated queries return a stable order.
func (r *chunkRepo) SearchSimilar(ctx context.Context, tx *gorm.DB, botID uuid.UUID, embedding pgvector.Vector, topK int, minScore float64) ([]*ChunkHit, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if topK <= 0 {
		return []*ChunkHit{}, nil
	}
	var hits []*ChunkHit
	err := transaction.WithContext(ctx).Raw(`
		SELECT c.id, c.bot_id, c.source_id, c.index, c.text, c.token_count,
		       c.char_start, c.char_end, c.heading, c.created_at,
		       1 - (c.embedding <=> ?) AS score
		FROM "chunks" c
		WHERE c.bot_id = ?
		  AND 1 - (c.embedding <=> ?) >= ?
		ORDER BY c.embedding <=> ? ASC, c.id ASC
		LIMIT ?
	`, embedding, botID, embedding, minScore, embedding, topK).Scan(&hits).Error
	if err != nil {
		return nil, err
	}
	return hits, nil
}
