package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/niyahq/niya-backend/internal/platform/logger"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider calls the Generative Language REST API directly. The
// official SDK drags in a large client surface for two endpoints, so the
// provider keeps its own thin HTTP layer.
type GeminiProvider struct {
	apiKey     string
	model      string
	dim        int
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

func NewGeminiProvider(apiKey, model string, dim int, baseLog *logger.Logger) (*GeminiProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	if model == "" {
		model = "text-embedding-004"
	}
	return &GeminiProvider{
		apiKey:     apiKey,
		model:      model,
		dim:        dim,
		baseURL:    geminiBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        baseLog.With("provider", "gemini-embedding"),
	}, nil
}

func (p *GeminiProvider) Name() string   { return "gemini" }
func (p *GeminiProvider) Dimension() int { return p.dim }

type geminiEmbedRequest struct {
	Requests []geminiEmbedItem `json:"requests"`
}

type geminiEmbedItem struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	reqBody := geminiEmbedRequest{Requests: make([]geminiEmbedItem, 0, len(texts))}
	for _, text := range texts {
		reqBody.Requests = append(reqBody.Requests, geminiEmbedItem{
			Model:   "models/" + p.model,
			Content: geminiContent{Parts: []geminiPart{{Text: text}}},
		})
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:batchEmbedContents?key=%s", p.baseURL, p.model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini embeddings: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("gemini embeddings: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini embeddings: status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var parsed geminiEmbedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("gemini embeddings: decoding response: %w", err)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embeddings: got %d vectors for %d inputs", len(parsed.Embeddings), len(texts))
	}
	out := make([][]float32, len(texts))
	for i, emb := range parsed.Embeddings {
		if len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini embeddings: empty vector at index %d", i)
		}
		out[i] = conformDimension(emb.Values, p.dim)
	}
	return out, nil
}

func truncateBody(body []byte) string {
	s := string(body)
	if len(s) > 512 {
		return s[:512] + "..."
	}
	return s
}
