package services

import (
	"fmt"
	"strings"

	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/providers/llm"
	"github.com/niyahq/niya-backend/internal/repos"
	"github.com/niyahq/niya-backend/internal/tokenizer"
)

const defaultSystemPrompt = `You are a helpful support assistant. Answer using only the provided context passages. If the context does not contain the answer, say you don't know rather than guessing. Cite the passages you used with their markers, e.g. [C1].`

// PromptInput carries everything the composer needs for one query.
type PromptInput struct {
	SystemPrompt string
	Model        string
	MaxTokens    int
	Query        string
	Chunks       []*repos.ChunkHit
	History      []llm.Message
}

// ComposedPrompt is the final provider request material. UsedChunks holds
// the chunks that made it into the context block, in [C1..Cn] order.
type ComposedPrompt struct {
	System     string
	Messages   []llm.Message
	UsedChunks []*repos.ChunkHit
}

type PromptService interface {
	Compose(in PromptInput) (*ComposedPrompt, error)
}

type promptService struct {
	safetyMargin int
	log          *logger.Logger
}

func NewPromptService(safetyMargin int, baseLog *logger.Logger) PromptService {
	if safetyMargin <= 0 {
		safetyMargin = 256
	}
	return &promptService{
		safetyMargin: safetyMargin,
		log:          baseLog.With("service", "PromptService"),
	}
}

// Compose builds the prompt under the model's context budget. The budget is
// the context window minus the completion reservation and a safety margin;
// retrieved chunks may take at most half of it, history fills what remains
// after the system prompt and query, dropping oldest turns first. When the
// budget cannot hold the fixed parts, or retrieval returned chunks and not
// one of them fits, Compose fails with CONTEXT_OVERFLOW.
func (s *promptService) Compose(in PromptInput) (*ComposedPrompt, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}

	system := strings.TrimSpace(in.SystemPrompt)
	if system == "" {
		system = defaultSystemPrompt
	}

	budget := llm.ContextWindow(in.Model) - in.MaxTokens - s.safetyMargin
	if budget <= 0 {
		return nil, apierr.ContextOverflow(fmt.Errorf("model %q leaves no prompt budget (max_tokens=%d)", in.Model, in.MaxTokens))
	}

	chunkBudget := budget / 2
	var contextBlock strings.Builder
	var used []*repos.ChunkHit
	chunkTokens := 0
	for _, hit := range in.Chunks {
		entry := formatContextEntry(len(used)+1, hit)
		entryTokens := tokenizer.EstimateForModel(entry, in.Model)
		if chunkTokens+entryTokens > chunkBudget {
			break
		}
		contextBlock.WriteString(entry)
		chunkTokens += entryTokens
		used = append(used, hit)
	}
	// Retrieval found context but none of it fits: answering without it
	// would silently ignore the knowledge base.
	if len(in.Chunks) > 0 && len(used) == 0 {
		return nil, apierr.ContextOverflow(fmt.Errorf("no retrieved chunk fits the %d-token context budget of %q", chunkBudget, in.Model))
	}

	userMsg := buildUserMessage(contextBlock.String(), query)
	fixedTokens := tokenizer.EstimateForModel(system, in.Model) + chunkTokens + tokenizer.EstimateForModel(query, in.Model) + 32
	if fixedTokens > budget {
		return nil, apierr.ContextOverflow(fmt.Errorf("system prompt and query exceed the %d-token budget of %q", budget, in.Model))
	}

	historyBudget := budget - fixedTokens
	history := trimHistory(in.History, historyBudget, in.Model)

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMsg})

	return &ComposedPrompt{
		System:     system,
		Messages:   messages,
		UsedChunks: used,
	}, nil
}

func formatContextEntry(index int, hit *repos.ChunkHit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[C%d]", index)
	if hit.Heading != "" {
		fmt.Fprintf(&b, " (%s)", hit.Heading)
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(hit.Text))
	b.WriteString("\n\n")
	return b.String()
}

func buildUserMessage(contextBlock, query string) string {
	if strings.TrimSpace(contextBlock) == "" {
		return query
	}
	var b strings.Builder
	b.WriteString("Context passages:\n\n")
	b.WriteString(contextBlock)
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}

// trimHistory keeps the most recent messages that fit the budget, dropping
// whole user/assistant pairs from the front.
func trimHistory(history []llm.Message, budget int, model string) []llm.Message {
	if budget <= 0 || len(history) == 0 {
		return nil
	}
	total := 0
	tokensPerMsg := make([]int, len(history))
	for i, m := range history {
		tokensPerMsg[i] = tokenizer.EstimateForModel(m.Content, model) + 8
		total += tokensPerMsg[i]
	}
	start := 0
	for total > budget && start < len(history) {
		total -= tokensPerMsg[start]
		start++
	}
	// Never start history on an assistant turn.
	for start < len(history) && history[start].Role == llm.RoleAssistant {
		start++
	}
	if start >= len(history) {
		return nil
	}
	return history[start:]
}
