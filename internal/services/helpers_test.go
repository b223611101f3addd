package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/repos"
	"github.com/niyahq/niya-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init test logger: %v", err)
	}
	return log
}

func testBot() *types.Bot {
	bot := &types.Bot{
		OwnerID:            uuid.New(),
		Name:               "support-bot",
		ModelProvider:      "openai",
		ModelName:          "gpt-4o-mini",
		Temperature:        0.2,
		MaxTokens:          1024,
		TopK:               5,
		MinScore:           0.25,
		RateLimitPerMinute: 60,
		RetentionDays:      90,
	}
	bot.ID = uuid.New()
	return bot
}

// fakeWidgetTokenRepo is an in-memory WidgetTokenRepo.
type fakeWidgetTokenRepo struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*types.WidgetToken
}

func newFakeWidgetTokenRepo() *fakeWidgetTokenRepo {
	return &fakeWidgetTokenRepo{tokens: map[uuid.UUID]*types.WidgetToken{}}
}

func (f *fakeWidgetTokenRepo) Create(ctx context.Context, tx *gorm.DB, token *types.WidgetToken) (*types.WidgetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()
	f.tokens[token.ID] = token
	return token, nil
}

func (f *fakeWidgetTokenRepo) GetByID(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID) (*types.WidgetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[tokenID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return token, nil
}

func (f *fakeWidgetTokenRepo) GetByHash(ctx context.Context, tx *gorm.DB, tokenHash string) (*types.WidgetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, token := range f.tokens {
		if token.TokenHash == tokenHash {
			return token, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeWidgetTokenRepo) ListByBot(ctx context.Context, tx *gorm.DB, botID uuid.UUID) ([]*types.WidgetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.WidgetToken
	for _, token := range f.tokens {
		if token.BotID == botID {
			out = append(out, token)
		}
	}
	return out, nil
}

func (f *fakeWidgetTokenRepo) TouchLastUsed(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token, ok := f.tokens[tokenID]; ok {
		now := time.Now()
		token.LastUsedAt = &now
	}
	return nil
}

func (f *fakeWidgetTokenRepo) Delete(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, tokenID)
	return nil
}

// fakeRateCounterRepo is an in-memory RateCounterRepo keyed by window start.
type fakeRateCounterRepo struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newFakeRateCounterRepo() *fakeRateCounterRepo {
	return &fakeRateCounterRepo{counts: map[string]int{}}
}

func counterKey(botID uuid.UUID, window time.Time) string {
	return botID.String() + "|" + window.UTC().Format(time.RFC3339)
}

func (f *fakeRateCounterRepo) IncrementWithLimit(ctx context.Context, tx *gorm.DB, botID uuid.UUID, windowStart time.Time, limit int) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, false, f.err
	}
	key := counterKey(botID, windowStart)
	if f.counts[key] >= limit {
		return limit, false, nil
	}
	f.counts[key]++
	return f.counts[key], true, nil
}

func (f *fakeRateCounterRepo) GetCount(ctx context.Context, tx *gorm.DB, botID uuid.UUID, windowStart time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[counterKey(botID, windowStart)], nil
}

func (f *fakeRateCounterRepo) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for key := range f.counts {
		delete(f.counts, key)
		removed++
	}
	return removed, nil
}

// fakeChunkRepo serves canned vector search hits.
type fakeChunkRepo struct {
	hits      []*repos.ChunkHit
	searchErr error
}

func (f *fakeChunkRepo) Create(ctx context.Context, tx *gorm.DB, chunks []*types.Chunk) ([]*types.Chunk, error) {
	return chunks, nil
}

func (f *fakeChunkRepo) GetByID(ctx context.Context, tx *gorm.DB, chunkID uuid.UUID) (*types.Chunk, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeChunkRepo) GetBySource(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID, limit, offset int) ([]*types.Chunk, error) {
	return nil, nil
}

func (f *fakeChunkRepo) ListByBot(ctx context.Context, tx *gorm.DB, botID uuid.UUID, limit int) ([]*types.Chunk, error) {
	return nil, nil
}

func (f *fakeChunkRepo) CountByBot(ctx context.Context, tx *gorm.DB, botID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeChunkRepo) DeleteBySource(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID) error {
	return nil
}

func (f *fakeChunkRepo) SearchSimilar(ctx context.Context, tx *gorm.DB, botID uuid.UUID, embedding pgvector.Vector, topK int, minScore float64) ([]*repos.ChunkHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

// fakeSourceRepo resolves sources for citation metadata.
type fakeSourceRepo struct {
	sources map[uuid.UUID]*types.Source
}

func (f *fakeSourceRepo) Create(ctx context.Context, tx *gorm.DB, source *types.Source) (*types.Source, error) {
	return source, nil
}

func (f *fakeSourceRepo) GetByID(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID) (*types.Source, error) {
	if src, ok := f.sources[sourceID]; ok {
		return src, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSourceRepo) ListByBot(ctx context.Context, tx *gorm.DB, botID uuid.UUID) ([]*types.Source, error) {
	return nil, nil
}

func (f *fakeSourceRepo) ClaimNextUploaded(ctx context.Context, tx *gorm.DB) (*types.Source, error) {
	return nil, nil
}

func (f *fakeSourceRepo) MarkIndexed(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID, chunkCount int, checksum string) error {
	return nil
}

func (f *fakeSourceRepo) MarkFailed(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID, message string) error {
	return nil
}

func (f *fakeSourceRepo) ResetForReingest(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fakeSourceRepo) Update(ctx context.Context, tx *gorm.DB, source *types.Source) (*types.Source, error) {
	return source, nil
}

func (f *fakeSourceRepo) Delete(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID) error {
	return nil
}

// fakeQueryLogRepo records created entries in memory.
type fakeQueryLogRepo struct {
	mu      sync.Mutex
	entries []*types.QueryLog
	session []*types.QueryLog
}

func (f *fakeQueryLogRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.QueryLog) (*types.QueryLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeQueryLogRepo) GetByID(ctx context.Context, tx *gorm.DB, entryID uuid.UUID) (*types.QueryLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.entries {
		if entry.ID == entryID {
			return entry, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeQueryLogRepo) ListByBot(ctx context.Context, tx *gorm.DB, botID uuid.UUID, limit, offset int) ([]*types.QueryLog, error) {
	return f.entries, nil
}

func (f *fakeQueryLogRepo) GetRecentBySession(ctx context.Context, tx *gorm.DB, botID uuid.UUID, sessionID string, limit int) ([]*types.QueryLog, error) {
	return f.session, nil
}

func (f *fakeQueryLogRepo) UpdateFeedback(ctx context.Context, tx *gorm.DB, entryID uuid.UUID, feedback string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.entries {
		if entry.ID == entryID {
			entry.UserFeedback = &feedback
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeQueryLogRepo) Summary(ctx context.Context, tx *gorm.DB, botID uuid.UUID, since time.Time) (*repos.AnalyticsSummary, error) {
	return &repos.AnalyticsSummary{}, nil
}

func (f *fakeQueryLogRepo) TopQueries(ctx context.Context, tx *gorm.DB, botID uuid.UUID, since time.Time, limit int) ([]*repos.TopQuery, error) {
	return nil, nil
}

func (f *fakeQueryLogRepo) Unanswered(ctx context.Context, tx *gorm.DB, botID uuid.UUID, since time.Time, threshold float64, limit int) ([]*types.QueryLog, error) {
	return nil, nil
}

func (f *fakeQueryLogRepo) DailyUsage(ctx context.Context, tx *gorm.DB, botID uuid.UUID, since time.Time) ([]*repos.DailyUsage, error) {
	return nil, nil
}

func (f *fakeQueryLogRepo) PurgeExpired(ctx context.Context, tx *gorm.DB) (int64, error) {
	return 0, nil
}
