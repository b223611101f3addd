package llm

import (
	"context"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

type Request struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Response struct {
	Text     string
	Usage    Usage
	Provider string
	Model    string
}

// Provider generates one chat completion.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
}

// ContextWindow returns the usable context size for known model families.
// Unknown models get a conservative default so prompt budgeting still works.
func ContextWindow(model string) int {
	switch {
	case contains(model, "gpt-4o"), contains(model, "gpt-4.1"), contains(model, "gpt-4-turbo"):
		return 128000
	case contains(model, "gpt-3.5"):
		return 16385
	case contains(model, "gemini-1.5"), contains(model, "gemini-2"):
		return 128000
	default:
		return 16000
	}
}

func contains(model, fragment string) bool {
	return strings.Contains(strings.ToLower(model), fragment)
}
