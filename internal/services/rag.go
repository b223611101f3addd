package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"

	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/providers/llm"
	"github.com/niyahq/niya-backend/internal/repos"
	"github.com/niyahq/niya-backend/internal/types"
)

const (
	responseSummaryMaxLen = 2000
	historyPairsFromLog   = 5
)

type HistoryPair struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

type QueryRequest struct {
	Query           string        `json:"query"`
	SessionID       string        `json:"session_id,omitempty"`
	PageURL         string        `json:"page_url,omitempty"`
	History         []HistoryPair `json:"history,omitempty"`
	IncludeMetadata bool          `json:"include_metadata,omitempty"`
}

// Citation points an answer marker back at the retrieved chunk. The source
// join (type, filename, storage path, URL) is filled only for owner queries
// that ask for metadata.
type Citation struct {
	Marker      string    `json:"marker"`
	ChunkID     uuid.UUID `json:"chunk_id"`
	SourceID    uuid.UUID `json:"source_id"`
	SourceName  string    `json:"source_name,omitempty"`
	SourceType  string    `json:"source_type,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	StoragePath string    `json:"storage_path,omitempty"`
	Filename    string    `json:"filename,omitempty"`
	Heading     string    `json:"heading,omitempty"`
	Score       float64   `json:"score"`
	CharStart   int       `json:"char_start"`
	CharEnd     int       `json:"char_end"`
}

type QueryResponse struct {
	Answer     string     `json:"answer"`
	Confidence *float64   `json:"confidence"`
	Citations  []Citation `json:"citations"`
	QueryLogID uuid.UUID  `json:"query_log_id"`
	SessionID  string     `json:"session_id,omitempty"`
	LatencyMs  int        `json:"latency_ms"`
	Provider   string     `json:"provider,omitempty"`
	Model      string     `json:"model,omitempty"`
	Usage      llm.Usage  `json:"usage"`
}

// RAGService is the query engine: embed, retrieve, compose, generate, log.
type RAGService interface {
	Answer(ctx context.Context, bot *types.Bot, req QueryRequest) (*QueryResponse, error)
}

type ragService struct {
	chunkRepo    repos.ChunkRepo
	sourceRepo   repos.SourceRepo
	queryLogRepo repos.QueryLogRepo
	embedder     EmbeddingService
	prompter     PromptService
	llmProviders map[string]llm.Provider
	log          *logger.Logger
}

func NewRAGService(
	chunkRepo repos.ChunkRepo,
	sourceRepo repos.SourceRepo,
	queryLogRepo repos.QueryLogRepo,
	embedder EmbeddingService,
	prompter PromptService,
	llmProviders map[string]llm.Provider,
	baseLog *logger.Logger,
) RAGService {
	return &ragService{
		chunkRepo:    chunkRepo,
		sourceRepo:   sourceRepo,
		queryLogRepo: queryLogRepo,
		embedder:     embedder,
		prompter:     prompter,
		llmProviders: llmProviders,
		log:          baseLog.With("service", "RAGService"),
	}
}

func (s *ragService) Answer(ctx context.Context, bot *types.Bot, req QueryRequest) (*QueryResponse, error) {
	started := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apierr.Validation(fmt.Errorf("query must not be empty"))
	}

	// Embed the query and load session history in parallel; neither depends
	// on the other.
	var queryVec []float32
	history := pairsToMessages(req.History)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		vec, err := s.embedder.EmbedQuery(groupCtx, query)
		if err != nil {
			return err
		}
		queryVec = vec
		return nil
	})
	if len(req.History) == 0 && req.SessionID != "" {
		group.Go(func() error {
			entries, err := s.queryLogRepo.GetRecentBySession(groupCtx, nil, bot.ID, req.SessionID, historyPairsFromLog)
			if err != nil {
				s.log.Warn("loading session history failed", "session_id", req.SessionID, "error", err)
				return nil
			}
			history = logEntriesToMessages(entries)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, apierr.Provider(fmt.Errorf("embedding query: %w", err))
	}

	hits, err := s.chunkRepo.SearchSimilar(ctx, nil, bot.ID, pgvector.NewVector(queryVec), bot.TopK, bot.MinScore)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("vector search: %w", err))
	}

	// Empty retrieval still goes to the model: the system prompt tells it to
	// admit when the context has nothing relevant.
	composed, err := s.prompter.Compose(PromptInput{
		SystemPrompt: bot.SystemPrompt,
		Model:        bot.ModelName,
		MaxTokens:    bot.MaxTokens,
		Query:        query,
		Chunks:       hits,
		History:      history,
	})
	if err != nil {
		var apiErr *apierr.Error
		if errors.As(err, &apiErr) {
			return nil, err
		}
		return nil, apierr.Internal(fmt.Errorf("composing prompt: %w", err))
	}

	provider, ok := s.llmProviders[bot.ModelProvider]
	if !ok {
		return nil, apierr.Internal(fmt.Errorf("no llm provider registered for %q", bot.ModelProvider))
	}

	genResp, err := provider.Generate(ctx, llm.Request{
		Model:       bot.ModelName,
		System:      composed.System,
		Messages:    composed.Messages,
		Temperature: bot.Temperature,
		MaxTokens:   bot.MaxTokens,
	})
	if err != nil {
		return nil, apierr.Provider(fmt.Errorf("llm generation: %w", err))
	}

	// Confidence is null when nothing from the knowledge base made it into
	// the prompt.
	var confidence *float64
	if len(composed.UsedChunks) > 0 {
		mean := meanScore(composed.UsedChunks)
		confidence = &mean
	}
	citations := s.buildCitations(ctx, composed.UsedChunks, req.IncludeMetadata)
	latency := int(time.Since(started).Milliseconds())

	entry := s.logQuery(ctx, bot, req, query, genResp.Text, confidence, citations, latency, genResp)

	resp := &QueryResponse{
		Answer:     genResp.Text,
		Confidence: confidence,
		Citations:  citations,
		SessionID:  req.SessionID,
		LatencyMs:  latency,
		Provider:   genResp.Provider,
		Model:      genResp.Model,
		Usage:      genResp.Usage,
	}
	if entry != nil {
		resp.QueryLogID = entry.ID
	}
	return resp, nil
}

func (s *ragService) buildCitations(ctx context.Context, used []*repos.ChunkHit, includeMetadata bool) []Citation {
	citations := make([]Citation, 0, len(used))
	sourceNames := map[uuid.UUID]*types.Source{}
	if includeMetadata {
		for _, hit := range used {
			if _, seen := sourceNames[hit.SourceID]; seen {
				continue
			}
			src, err := s.sourceRepo.GetByID(ctx, nil, hit.SourceID)
			if err != nil {
				s.log.Warn("loading citation source failed", "source_id", hit.SourceID, "error", err)
				continue
			}
			sourceNames[hit.SourceID] = src
		}
	}
	for i, hit := range used {
		citation := Citation{
			Marker:    fmt.Sprintf("C%d", i+1),
			ChunkID:   hit.ID,
			SourceID:  hit.SourceID,
			Heading:   hit.Heading,
			Score:     hit.Score,
			CharStart: hit.CharStart,
			CharEnd:   hit.CharEnd,
		}
		if src, ok := sourceNames[hit.SourceID]; ok {
			citation.SourceName = src.Name
			citation.SourceType = src.Type
			citation.SourceURL = src.URL
			citation.StoragePath = src.StoragePath
			if src.Type != types.SourceTypeHTML {
				citation.Filename = src.Name
			}
		}
		citations = append(citations, citation)
	}
	return citations
}

// logQuery persists the query log entry. Logging failures are reported but
// never fail the answer.
func (s *ragService) logQuery(ctx context.Context, bot *types.Bot, req QueryRequest, query, answer string, confidence *float64, citations []Citation, latencyMs int, genResp *llm.Response) *types.QueryLog {
	summary := answer
	if len(summary) > responseSummaryMaxLen {
		summary = summary[:responseSummaryMaxLen]
	}
	entry := &types.QueryLog{
		BotID:           bot.ID,
		SessionID:       req.SessionID,
		PageURL:         req.PageURL,
		QueryText:       query,
		ResponseSummary: summary,
		Confidence:      confidence,
		LatencyMs:       latencyMs,
	}
	if citations != nil {
		if raw, err := json.Marshal(citations); err == nil {
			entry.Citations = raw
		}
	}
	if genResp != nil {
		entry.Provider = genResp.Provider
		entry.ModelName = genResp.Model
		entry.PromptTokens = genResp.Usage.PromptTokens
		entry.CompletionTokens = genResp.Usage.CompletionTokens
		entry.TotalTokens = genResp.Usage.TotalTokens
	}
	saved, err := s.queryLogRepo.Create(ctx, nil, entry)
	if err != nil {
		s.log.Error("persisting query log failed", "bot_id", bot.ID, "error", err)
		return nil
	}
	return saved
}

// meanScore is the answer confidence: the average similarity of the chunks
// actually used in the prompt, capped at 1.0.
func meanScore(used []*repos.ChunkHit) float64 {
	if len(used) == 0 {
		return 0
	}
	total := 0.0
	for _, hit := range used {
		total += hit.Score
	}
	mean := total / float64(len(used))
	if mean > 1.0 {
		mean = 1.0
	}
	return mean
}

func pairsToMessages(pairs []HistoryPair) []llm.Message {
	var out []llm.Message
	for _, p := range pairs {
		if strings.TrimSpace(p.User) != "" {
			out = append(out, llm.Message{Role: llm.RoleUser, Content: p.User})
		}
		if strings.TrimSpace(p.Assistant) != "" {
			out = append(out, llm.Message{Role: llm.RoleAssistant, Content: p.Assistant})
		}
	}
	return out
}

// logEntriesToMessages converts newest-first log rows into oldest-first
// user/assistant turns.
func logEntriesToMessages(entries []*types.QueryLog) []llm.Message {
	var out []llm.Message
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		out = append(out, llm.Message{Role: llm.RoleUser, Content: entry.QueryText})
		if entry.ResponseSummary != "" {
			out = append(out, llm.Message{Role: llm.RoleAssistant, Content: entry.ResponseSummary})
		}
	}
	return out
}
