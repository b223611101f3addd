package services

import (
	"strings"
	"testing"

	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/providers/llm"
	"github.com/niyahq/niya-backend/internal/repos"
	"github.com/niyahq/niya-backend/internal/tokenizer"
)

func hit(text, heading string, score float64) *repos.ChunkHit {
	return &repos.ChunkHit{Text: text, Heading: heading, Score: score}
}

func TestComposeRejectsExhaustedBudget(t *testing.T) {
	svc := NewPromptService(256, testLogger(t))
	_, err := svc.Compose(PromptInput{
		Model:     "gpt-3.5-turbo",
		MaxTokens: 20000,
		Query:     "hello",
	})
	if err == nil {
		t.Fatal("expected error when max_tokens eats the whole context window")
	}
	if code := errorCode(t, err); code != apierr.CodeContextOverflow {
		t.Fatalf("code: want=%q got=%q", apierr.CodeContextOverflow, code)
	}
}

func TestComposeOverflowsWhenNoChunkFits(t *testing.T) {
	svc := NewPromptService(256, testLogger(t))
	// One ~39k-token chunk against gpt-3.5's 16385-token window: retrieval
	// produced context but none of it can be used.
	_, err := svc.Compose(PromptInput{
		Model:     "gpt-3.5-turbo",
		MaxTokens: 500,
		Query:     "q",
		Chunks:    []*repos.ChunkHit{hit(strings.Repeat("word ", 30000), "", 0.9)},
	})
	if err == nil {
		t.Fatal("expected overflow when the only chunk cannot fit")
	}
	if code := errorCode(t, err); code != apierr.CodeContextOverflow {
		t.Fatalf("code: want=%q got=%q", apierr.CodeContextOverflow, code)
	}
}

func TestComposeRejectsEmptyQuery(t *testing.T) {
	svc := NewPromptService(256, testLogger(t))
	if _, err := svc.Compose(PromptInput{Model: "gpt-4o-mini", MaxTokens: 512, Query: "   "}); err == nil {
		t.Fatal("expected error for blank query")
	}
}

func TestComposeUsesDefaultSystemPrompt(t *testing.T) {
	svc := NewPromptService(256, testLogger(t))
	out, err := svc.Compose(PromptInput{Model: "gpt-4o-mini", MaxTokens: 512, Query: "what is the refund window?"})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.Contains(out.System, "support assistant") {
		t.Fatalf("default system prompt not applied: %q", out.System)
	}

	out, err = svc.Compose(PromptInput{
		SystemPrompt: "You are Captain Refund.",
		Model:        "gpt-4o-mini",
		MaxTokens:    512,
		Query:        "what is the refund window?",
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if out.System != "You are Captain Refund." {
		t.Fatalf("operator system prompt not honored: %q", out.System)
	}
}

func TestComposeFormatsContextMarkers(t *testing.T) {
	svc := NewPromptService(256, testLogger(t))
	out, err := svc.Compose(PromptInput{
		Model:     "gpt-4o-mini",
		MaxTokens: 512,
		Query:     "how long is the refund window?",
		Chunks: []*repos.ChunkHit{
			hit("Refunds are accepted for thirty days.", "Returns", 0.9),
			hit("Shipping takes five business days.", "", 0.7),
		},
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(out.UsedChunks) != 2 {
		t.Fatalf("used chunks: want=2 got=%d", len(out.UsedChunks))
	}
	userMsg := out.Messages[len(out.Messages)-1]
	if userMsg.Role != llm.RoleUser {
		t.Fatalf("final message role: want=%q got=%q", llm.RoleUser, userMsg.Role)
	}
	if !strings.Contains(userMsg.Content, "[C1] (Returns)") {
		t.Fatalf("first marker missing heading: %q", userMsg.Content)
	}
	if !strings.Contains(userMsg.Content, "[C2]\nShipping takes") {
		t.Fatalf("second marker malformed: %q", userMsg.Content)
	}
	if !strings.HasSuffix(userMsg.Content, "Question: how long is the refund window?") {
		t.Fatalf("question not appended: %q", userMsg.Content)
	}
}

func TestComposeWithoutChunksSendsBareQuery(t *testing.T) {
	svc := NewPromptService(256, testLogger(t))
	out, err := svc.Compose(PromptInput{Model: "gpt-4o-mini", MaxTokens: 512, Query: "hi there"})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := out.Messages[len(out.Messages)-1].Content; got != "hi there" {
		t.Fatalf("bare query expected, got %q", got)
	}
}

func TestComposeCapsChunksAtHalfBudget(t *testing.T) {
	svc := NewPromptService(256, testLogger(t))
	// gpt-3.5 window 16385 - 2000 completion - 256 margin = 14129 budget,
	// chunk budget 7064. Each 2000-word chunk is ~2600 tokens, so only the
	// first two fit.
	big := strings.Repeat("word ", 2000)
	out, err := svc.Compose(PromptInput{
		Model:     "gpt-3.5-turbo",
		MaxTokens: 2000,
		Query:     "q",
		Chunks: []*repos.ChunkHit{
			hit(big, "", 0.9),
			hit(big, "", 0.8),
			hit(big, "", 0.7),
			hit(big, "", 0.6),
		},
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(out.UsedChunks) != 2 {
		t.Fatalf("used chunks: want=2 got=%d", len(out.UsedChunks))
	}
	if out.UsedChunks[0].Score != 0.9 || out.UsedChunks[1].Score != 0.8 {
		t.Fatal("chunk order not preserved")
	}
}

func TestTrimHistoryDropsOldestAndNeverStartsOnAssistant(t *testing.T) {
	turn := func(role, content string) llm.Message { return llm.Message{Role: role, Content: content} }
	history := []llm.Message{
		turn(llm.RoleUser, "first question with a fair number of words in it"),
		turn(llm.RoleAssistant, "first answer with a fair number of words in it"),
		turn(llm.RoleUser, "second question"),
		turn(llm.RoleAssistant, "second answer"),
	}

	perTurn := tokenizer.Estimate(history[0].Content) + 8
	// Budget for roughly the last three turns: the trim lands on the first
	// assistant answer and must skip forward to the next user turn.
	budget := perTurn + tokenizer.Estimate("second question") + tokenizer.Estimate("second answer") + 24

	trimmed := trimHistory(history, budget, "gpt-4o-mini")
	if len(trimmed) == 0 {
		t.Fatal("history fully dropped")
	}
	if trimmed[0].Role != llm.RoleUser {
		t.Fatalf("trimmed history starts on %q", trimmed[0].Role)
	}
	if trimmed[0].Content != "second question" {
		t.Fatalf("wrong starting turn: %q", trimmed[0].Content)
	}

	if got := trimHistory(history, 0, "gpt-4o-mini"); got != nil {
		t.Fatal("zero budget should drop all history")
	}
	if got := trimHistory(history, 1_000_000, "gpt-4o-mini"); len(got) != len(history) {
		t.Fatal("ample budget should keep all history")
	}
}
