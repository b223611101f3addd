package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/niyahq/niya-backend/internal/crawler"
	"github.com/niyahq/niya-backend/internal/parsers"
	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/repos"
	"github.com/niyahq/niya-backend/internal/types"
)

const maxUploadBytes = 50 << 20

// SourceService owns the source lifecycle on the API side: creating rows
// (which enqueues them), listing, deleting, re-enqueueing, and chunk
// inspection. The worker does the actual ingestion.
type SourceService interface {
	CreateFromUpload(ctx context.Context, bot *types.Bot, filename, mimeType string, size int64, file io.Reader) (*types.Source, error)
	CreateFromURL(ctx context.Context, bot *types.Bot, rawURL, name string) (*types.Source, error)
	List(ctx context.Context, bot *types.Bot) ([]*types.Source, error)
	Get(ctx context.Context, bot *types.Bot, sourceID uuid.UUID) (*types.Source, error)
	Delete(ctx context.Context, bot *types.Bot, sourceID uuid.UUID) error
	Reingest(ctx context.Context, bot *types.Bot, sourceID uuid.UUID) (*types.Source, error)
	ListChunks(ctx context.Context, bot *types.Bot, sourceID uuid.UUID, limit, offset int) ([]*types.Chunk, error)
	ListBotChunks(ctx context.Context, bot *types.Bot, limit int) ([]*types.Chunk, error)
	GetChunk(ctx context.Context, bot *types.Bot, chunkID uuid.UUID) (*types.Chunk, error)
}

type sourceService struct {
	db         *gorm.DB
	sourceRepo repos.SourceRepo
	chunkRepo  repos.ChunkRepo
	bucket     BucketService
	log        *logger.Logger
}

func NewSourceService(db *gorm.DB, sourceRepo repos.SourceRepo, chunkRepo repos.ChunkRepo, bucket BucketService, baseLog *logger.Logger) SourceService {
	return &sourceService{
		db:         db,
		sourceRepo: sourceRepo,
		chunkRepo:  chunkRepo,
		bucket:     bucket,
		log:        baseLog.With("service", "SourceService"),
	}
}

// CreateFromUpload stores the file and enqueues the source. The row lands
// in "uploaded"; everything after that happens in the background and errors
// surface on the source record, not to this caller.
func (s *sourceService) CreateFromUpload(ctx context.Context, bot *types.Bot, filename, mimeType string, size int64, file io.Reader) (*types.Source, error) {
	filename = sanitizeFilename(filename)
	if filename == "" {
		return nil, apierr.Validation(fmt.Errorf("missing filename"))
	}
	if size == 0 {
		return nil, apierr.Validation(fmt.Errorf("file is empty"))
	}
	if size > maxUploadBytes {
		return nil, apierr.PayloadTooLarge(fmt.Errorf("file exceeds %d MiB limit", maxUploadBytes>>20))
	}
	format, err := parsers.FormatForFile(mimeType, filename)
	if err != nil {
		return nil, apierr.Validation(err)
	}

	source := &types.Source{
		BotID:     bot.ID,
		Type:      format,
		Name:      filename,
		MimeType:  mimeType,
		SizeBytes: size,
		Status:    types.SourceStatusUploaded,
	}
	source.ID = uuid.New()
	source.StoragePath = fmt.Sprintf("bots/%s/sources/%s/%s", bot.ID, source.ID, filename)

	if err := s.bucket.UploadFile(ctx, source.StoragePath, io.LimitReader(file, maxUploadBytes)); err != nil {
		return nil, apierr.Internal(fmt.Errorf("storing upload: %w", err))
	}

	created, err := s.sourceRepo.Create(ctx, nil, source)
	if err != nil {
		// Don't leave an orphan object behind.
		if delErr := s.bucket.DeleteFile(ctx, source.StoragePath); delErr != nil {
			s.log.Warn("cleaning up orphaned upload failed", "storage_path", source.StoragePath, "error", delErr)
		}
		return nil, apierr.Internal(fmt.Errorf("creating source: %w", err))
	}
	s.log.Info("file source enqueued", "source_id", created.ID, "bot_id", bot.ID, "size_bytes", size)
	return created, nil
}

func (s *sourceService) CreateFromURL(ctx context.Context, bot *types.Bot, rawURL, name string) (*types.Source, error) {
	canonical, err := crawler.Canonicalize(rawURL)
	if err != nil {
		return nil, apierr.Validation(err)
	}

	// One canonical URL per bot; re-adding it means re-crawling.
	existing, err := s.sourceRepo.ListByBot(ctx, nil, bot.ID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	for _, src := range existing {
		if src.Type == types.SourceTypeHTML && src.URL == canonical {
			return nil, apierr.Conflict(fmt.Errorf("url already added as source %s", src.ID))
		}
	}

	source := &types.Source{
		BotID:  bot.ID,
		Type:   types.SourceTypeHTML,
		Name:   strings.TrimSpace(name),
		URL:    canonical,
		Status: types.SourceStatusUploaded,
	}
	created, err := s.sourceRepo.Create(ctx, nil, source)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("creating source: %w", err))
	}
	s.log.Info("url source enqueued", "source_id", created.ID, "bot_id", bot.ID, "url", canonical)
	return created, nil
}

func (s *sourceService) List(ctx context.Context, bot *types.Bot) ([]*types.Source, error) {
	sources, err := s.sourceRepo.ListByBot(ctx, nil, bot.ID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return sources, nil
}

func (s *sourceService) Get(ctx context.Context, bot *types.Bot, sourceID uuid.UUID) (*types.Source, error) {
	source, err := s.sourceRepo.GetByID(ctx, nil, sourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(fmt.Errorf("source not found"))
		}
		return nil, apierr.Internal(err)
	}
	if source.BotID != bot.ID {
		return nil, apierr.NotFound(fmt.Errorf("source not found"))
	}
	return source, nil
}

func (s *sourceService) Delete(ctx context.Context, bot *types.Bot, sourceID uuid.UUID) error {
	source, err := s.Get(ctx, bot, sourceID)
	if err != nil {
		return err
	}
	if source.Status == types.SourceStatusParsing {
		return apierr.Conflict(fmt.Errorf("source is being processed"))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.chunkRepo.DeleteBySource(ctx, tx, source.ID); err != nil {
			return err
		}
		return s.sourceRepo.Delete(ctx, tx, source.ID)
	})
	if err != nil {
		return apierr.Internal(fmt.Errorf("deleting source: %w", err))
	}

	if source.StoragePath != "" {
		if err := s.bucket.DeleteFile(ctx, source.StoragePath); err != nil {
			s.log.Warn("deleting stored file failed", "storage_path", source.StoragePath, "error", err)
		}
	}
	s.log.Info("source deleted", "source_id", source.ID, "bot_id", bot.ID)
	return nil
}

// Reingest re-enqueues a failed or indexed source and clears its chunks so
// the worker rebuilds the index from scratch.
func (s *sourceService) Reingest(ctx context.Context, bot *types.Bot, sourceID uuid.UUID) (*types.Source, error) {
	source, err := s.Get(ctx, bot, sourceID)
	if err != nil {
		return nil, err
	}

	var reset bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.sourceRepo.ResetForReingest(ctx, tx, source.ID)
		if err != nil {
			return err
		}
		reset = ok
		if !ok {
			return nil
		}
		return s.chunkRepo.DeleteBySource(ctx, tx, source.ID)
	})
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("resetting source: %w", err))
	}
	if !reset {
		return nil, apierr.Conflict(fmt.Errorf("source is %s and cannot be re-ingested now", source.Status))
	}
	return s.Get(ctx, bot, sourceID)
}

func (s *sourceService) ListChunks(ctx context.Context, bot *types.Bot, sourceID uuid.UUID, limit, offset int) ([]*types.Chunk, error) {
	if _, err := s.Get(ctx, bot, sourceID); err != nil {
		return nil, err
	}
	chunks, err := s.chunkRepo.GetBySource(ctx, nil, sourceID, limit, offset)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return chunks, nil
}

func (s *sourceService) ListBotChunks(ctx context.Context, bot *types.Bot, limit int) ([]*types.Chunk, error) {
	chunks, err := s.chunkRepo.ListByBot(ctx, nil, bot.ID, limit)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return chunks, nil
}

func (s *sourceService) GetChunk(ctx context.Context, bot *types.Bot, chunkID uuid.UUID) (*types.Chunk, error) {
	chunk, err := s.chunkRepo.GetByID(ctx, nil, chunkID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(fmt.Errorf("chunk not found"))
		}
		return nil, apierr.Internal(err)
	}
	if chunk.BotID != bot.ID {
		return nil, apierr.NotFound(fmt.Errorf("chunk not found"))
	}
	return chunk, nil
}

func sanitizeFilename(filename string) string {
	filename = strings.TrimSpace(filepath.Base(filename))
	if filename == "." || filename == "/" {
		return ""
	}
	return filename
}
