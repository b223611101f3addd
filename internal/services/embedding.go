package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/niyahq/niya-backend/internal/cache"
	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/providers/embedding"
)

// EmbeddingService fans document and query text out to the configured
// providers, preferred provider first. A provider failure of any kind moves
// on to the next provider; only when every provider fails does the caller
// see an error.
type EmbeddingService interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, string, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	Dimension() int
}

type embeddingService struct {
	providers []embedding.Provider
	batchSize int
	dim       int
	cache     *cache.EmbeddingCache
	log       *logger.Logger
}

func NewEmbeddingService(providers []embedding.Provider, batchSize, dim int, embCache *cache.EmbeddingCache, baseLog *logger.Logger) (EmbeddingService, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("no embedding providers configured")
	}
	if batchSize <= 0 {
		batchSize = 64
	}
	return &embeddingService{
		providers: providers,
		batchSize: batchSize,
		dim:       dim,
		cache:     embCache,
		log:       baseLog.With("service", "EmbeddingService"),
	}, nil
}

func (s *embeddingService) Dimension() int { return s.dim }

// EmbedBatch returns one vector per input, in input order, plus the name of
// the provider that produced them. A provider either embeds the full set or
// is abandoned; partial results are never mixed across providers.
func (s *embeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, string, error) {
	if len(texts) == 0 {
		return [][]float32{}, "", nil
	}

	var failures []string
	for _, provider := range s.providers {
		vectors, err := s.embedWithProvider(ctx, provider, texts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			s.log.Warn("embedding provider failed, trying next",
				"provider", provider.Name(), "inputs", len(texts), "error", err)
			failures = append(failures, fmt.Sprintf("%s: %v", provider.Name(), err))
			continue
		}
		return vectors, provider.Name(), nil
	}
	return nil, "", fmt.Errorf("all embedding providers failed: %s", strings.Join(failures, "; "))
}

func (s *embeddingService) embedWithProvider(ctx context.Context, provider embedding.Provider, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := provider.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("provider returned %d vectors for %d inputs", len(vectors), end-start)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (s *embeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if vec, ok := s.cache.Get(ctx, query); ok {
		return vec, nil
	}
	vectors, _, err := s.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, query, vectors[0])
	return vectors[0], nil
}
