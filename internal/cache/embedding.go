// Package cache holds the optional Redis-backed query embedding cache.
// Widget traffic repeats the same questions often enough that skipping the
// embedding call is worth a small cache.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/niyahq/niya-backend/internal/platform/envutil"
	"github.com/niyahq/niya-backend/internal/platform/logger"
)

type EmbeddingCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewEmbeddingCache returns nil when REDIS_ADDR is unset. All methods are
// nil-safe, so callers never branch on cache availability.
func NewEmbeddingCache(baseLog *logger.Logger) *EmbeddingCache {
	addr := strings.TrimSpace(envutil.GetEnv("REDIS_ADDR", "", baseLog))
	if addr == "" {
		baseLog.Info("REDIS_ADDR not set, query embedding cache disabled")
		return nil
	}
	ttl := envutil.GetEnvAsDuration("EMBEDDING_CACHE_TTL", 24*time.Hour, baseLog)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: envutil.GetEnv("REDIS_PASSWORD", "", nil),
		DB:       envutil.GetEnvAsInt("REDIS_DB", 0, nil),
	})
	return &EmbeddingCache{
		client: client,
		ttl:    ttl,
		log:    baseLog.With("service", "EmbeddingCache"),
	}
}

func cacheKey(query string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(strings.ToLower(query))))
	return "emb:" + hex.EncodeToString(sum[:])
}

func (c *EmbeddingCache) Get(ctx context.Context, query string) ([]float32, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, cacheKey(query)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("embedding cache read failed", "error", err)
		}
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

// Set is best-effort; a cache write failure never fails the query.
func (c *EmbeddingCache) Set(ctx context.Context, query string, vec []float32) {
	if c == nil || len(vec) == 0 {
		return
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(query), raw, c.ttl).Err(); err != nil {
		c.log.Warn("embedding cache write failed", "error", err)
	}
}
