package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/niyahq/niya-backend/internal/chunker"
	"github.com/niyahq/niya-backend/internal/crawler"
	"github.com/niyahq/niya-backend/internal/parsers"
	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/repos"
	"github.com/niyahq/niya-backend/internal/types"
)

// IngestionService runs the pipeline for one claimed source: fetch or
// download, parse, chunk, embed, and swap the chunk set in a single
// transaction. The worker owns claiming and failure bookkeeping.
type IngestionService interface {
	ProcessSource(ctx context.Context, source *types.Source) error
}

type ingestionService struct {
	db         *gorm.DB
	sourceRepo repos.SourceRepo
	chunkRepo  repos.ChunkRepo
	bucket     BucketService
	crawler    *crawler.Crawler
	chunks     *chunker.Chunker
	embedder   EmbeddingService
	log        *logger.Logger
}

func NewIngestionService(
	db *gorm.DB,
	sourceRepo repos.SourceRepo,
	chunkRepo repos.ChunkRepo,
	bucket BucketService,
	webCrawler *crawler.Crawler,
	chunkSplitter *chunker.Chunker,
	embedder EmbeddingService,
	baseLog *logger.Logger,
) IngestionService {
	return &ingestionService{
		db:         db,
		sourceRepo: sourceRepo,
		chunkRepo:  chunkRepo,
		bucket:     bucket,
		crawler:    webCrawler,
		chunks:     chunkSplitter,
		embedder:   embedder,
		log:        baseLog.With("service", "IngestionService"),
	}
}

func (s *ingestionService) ProcessSource(ctx context.Context, source *types.Source) error {
	log := s.log.With("source_id", source.ID, "bot_id", source.BotID, "type", source.Type)

	doc, err := s.loadDocument(ctx, source)
	if err != nil {
		return err
	}

	pieces, canonical := s.chunks.Chunk(doc)
	if len(pieces) == 0 {
		return fmt.Errorf("document produced no chunks")
	}
	checksum := contentChecksum(canonical)

	// Unchanged content with chunks already in place: nothing to re-embed.
	if checksum == source.Checksum && source.ChunkCount > 0 {
		log.Info("content unchanged, skipping re-embedding", "checksum", checksum)
		return s.sourceRepo.MarkIndexed(ctx, nil, source.ID, source.ChunkCount, checksum)
	}

	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		texts[i] = piece.Text
	}
	vectors, providerName, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(texts), err)
	}
	log.Info("chunks embedded", "chunks", len(pieces), "provider", providerName)

	rows := make([]*types.Chunk, len(pieces))
	for i, piece := range pieces {
		rows[i] = &types.Chunk{
			BotID:      source.BotID,
			SourceID:   source.ID,
			Index:      piece.Index,
			Text:       piece.Text,
			TokenCount: piece.TokenCount,
			CharStart:  piece.CharStart,
			CharEnd:    piece.CharEnd,
			Heading:    piece.Heading,
			Embedding:  pgvector.NewVector(vectors[i]),
		}
	}

	// All-or-nothing: the old chunk set disappears only if the new one
	// lands and the source flips to indexed in the same transaction.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.chunkRepo.DeleteBySource(ctx, tx, source.ID); err != nil {
			return fmt.Errorf("deleting previous chunks: %w", err)
		}
		if _, err := s.chunkRepo.Create(ctx, tx, rows); err != nil {
			return fmt.Errorf("persisting chunks: %w", err)
		}
		return s.sourceRepo.MarkIndexed(ctx, tx, source.ID, len(rows), checksum)
	})
	if err != nil {
		return err
	}
	log.Info("source indexed", "chunks", len(rows))
	return nil
}

func (s *ingestionService) loadDocument(ctx context.Context, source *types.Source) (*parsers.Document, error) {
	switch source.Type {
	case types.SourceTypeHTML:
		result, err := s.crawler.Fetch(ctx, source.URL)
		if err != nil {
			return nil, fmt.Errorf("crawling %s: %w", source.URL, err)
		}
		dirty := false
		if source.Name == "" && result.Title != "" {
			source.Name = result.Title
			dirty = true
		}
		// Validator headers feed conditional re-crawls.
		if result.ETag != source.Etag || result.LastModified != source.LastModified {
			source.Etag = result.ETag
			source.LastModified = result.LastModified
			dirty = true
		}
		if dirty {
			if _, err := s.sourceRepo.Update(ctx, nil, source); err != nil {
				s.log.Warn("updating crawled source metadata failed", "source_id", source.ID, "error", err)
			}
		}
		return result.Document, nil

	case types.SourceTypePDF, types.SourceTypeDOCX, types.SourceTypeText:
		parser, err := parsers.ForFile(source.MimeType, source.Name)
		if err != nil {
			return nil, err
		}
		reader, err := s.bucket.DownloadFile(ctx, source.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("downloading %s: %w", source.StoragePath, err)
		}
		defer reader.Close()
		doc, err := parser.Parse(ctx, reader)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", source.Name, err)
		}
		return doc, nil

	default:
		return nil, fmt.Errorf("unknown source type %q", source.Type)
	}
}

func contentChecksum(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
