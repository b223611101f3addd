package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/providers/embedding"
	"github.com/niyahq/niya-backend/internal/providers/llm"
	"github.com/niyahq/niya-backend/internal/repos"
	"github.com/niyahq/niya-backend/internal/types"
)

type fakeLLMProvider struct {
	name    string
	resp    *llm.Response
	err     error
	calls   int
	lastReq llm.Request
}

func (f *fakeLLMProvider) Name() string { return f.name }

func (f *fakeLLMProvider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type ragFixture struct {
	svc      RAGService
	chunks   *fakeChunkRepo
	sources  *fakeSourceRepo
	queryLog *fakeQueryLogRepo
	llm      *fakeLLMProvider
}

func newRAGFixture(t *testing.T, hits []*repos.ChunkHit) *ragFixture {
	t.Helper()
	log := testLogger(t)

	embedder, err := NewEmbeddingService(
		[]embedding.Provider{&fakeEmbedProvider{name: "openai", dim: 4, fill: 0.1}},
		64, 4, nil, log)
	if err != nil {
		t.Fatalf("NewEmbeddingService: %v", err)
	}

	fx := &ragFixture{
		chunks:   &fakeChunkRepo{hits: hits},
		sources:  &fakeSourceRepo{sources: map[uuid.UUID]*types.Source{}},
		queryLog: &fakeQueryLogRepo{},
		llm: &fakeLLMProvider{
			name: "openai",
			resp: &llm.Response{
				Text:     "Refunds are accepted for thirty days. [C1]",
				Provider: "openai",
				Model:    "gpt-4o-mini",
				Usage:    llm.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
			},
		},
	}
	fx.svc = NewRAGService(
		fx.chunks,
		fx.sources,
		fx.queryLog,
		embedder,
		NewPromptService(256, log),
		map[string]llm.Provider{"openai": fx.llm},
		log,
	)
	return fx
}

func ragHit(sourceID uuid.UUID, text, heading string, score float64) *repos.ChunkHit {
	return &repos.ChunkHit{
		ID:       uuid.New(),
		SourceID: sourceID,
		Text:     text,
		Heading:  heading,
		Score:    score,
		CharEnd:  len(text),
	}
}

func TestAnswerEmptyRetrievalStillGenerates(t *testing.T) {
	fx := newRAGFixture(t, nil)
	fx.llm.resp.Text = "I don't have anything on that in the knowledge base."

	resp, err := fx.svc.Answer(context.Background(), testBot(), QueryRequest{Query: "do you ship to mars?"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if fx.llm.calls != 1 {
		t.Fatalf("llm calls: want=1 got=%d", fx.llm.calls)
	}
	if resp.Answer != fx.llm.resp.Text {
		t.Fatalf("answer: got %q", resp.Answer)
	}
	if resp.Confidence != nil {
		t.Fatalf("confidence: want nil with no chunks, got %v", *resp.Confidence)
	}
	if len(resp.Citations) != 0 {
		t.Fatalf("citations: want none, got %d", len(resp.Citations))
	}
	if len(fx.queryLog.entries) != 1 {
		t.Fatalf("query log entries: want=1 got=%d", len(fx.queryLog.entries))
	}
	if fx.queryLog.entries[0].Confidence != nil {
		t.Fatal("logged confidence should be nil with no chunks")
	}
	if resp.QueryLogID != fx.queryLog.entries[0].ID {
		t.Fatal("response does not reference the persisted log entry")
	}
}

func TestAnswerPersistsSessionAndPage(t *testing.T) {
	fx := newRAGFixture(t, []*repos.ChunkHit{
		ragHit(uuid.New(), "Shipping takes three days.", "Shipping", 0.9),
	})

	resp, err := fx.svc.Answer(context.Background(), testBot(), QueryRequest{
		Query:     "how fast is shipping?",
		SessionID: "sess-42",
		PageURL:   "https://shop.example.com/checkout",
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.SessionID != "sess-42" {
		t.Fatalf("session id not echoed: got %q", resp.SessionID)
	}
	entry := fx.queryLog.entries[0]
	if entry.SessionID != "sess-42" || entry.PageURL != "https://shop.example.com/checkout" {
		t.Fatalf("log entry: session=%q page=%q", entry.SessionID, entry.PageURL)
	}
}

func TestAnswerGeneratesWithCitations(t *testing.T) {
	srcID := uuid.New()
	hits := []*repos.ChunkHit{
		ragHit(srcID, "Refunds are accepted for thirty days.", "Returns", 0.75),
		ragHit(srcID, "Refunds require the original receipt.", "Returns", 0.25),
	}
	fx := newRAGFixture(t, hits)
	bot := testBot()

	resp, err := fx.svc.Answer(context.Background(), bot, QueryRequest{Query: "how long is the refund window?"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.Answer != fx.llm.resp.Text {
		t.Fatalf("answer: got %q", resp.Answer)
	}
	if resp.Confidence == nil || *resp.Confidence != 0.5 {
		t.Fatalf("confidence: want mean 0.5, got %v", resp.Confidence)
	}
	if len(resp.Citations) != 2 {
		t.Fatalf("citations: want=2 got=%d", len(resp.Citations))
	}
	if resp.Citations[0].Marker != "C1" || resp.Citations[1].Marker != "C2" {
		t.Fatalf("citation markers: got %q %q", resp.Citations[0].Marker, resp.Citations[1].Marker)
	}
	if resp.Citations[0].ChunkID != hits[0].ID {
		t.Fatal("citation chunk id mismatch")
	}
	if resp.Citations[0].SourceName != "" {
		t.Fatal("source metadata included without include_metadata")
	}
	if resp.Provider != "openai" || resp.Model != "gpt-4o-mini" {
		t.Fatalf("provenance: got provider=%q model=%q", resp.Provider, resp.Model)
	}

	if fx.llm.lastReq.Model != bot.ModelName {
		t.Fatalf("llm request model: want=%q got=%q", bot.ModelName, fx.llm.lastReq.Model)
	}
	if fx.llm.lastReq.Temperature != bot.Temperature {
		t.Fatal("bot temperature not forwarded")
	}

	if len(fx.queryLog.entries) != 1 {
		t.Fatalf("query log entries: want=1 got=%d", len(fx.queryLog.entries))
	}
	entry := fx.queryLog.entries[0]
	if entry.Provider != "openai" || entry.TotalTokens != 120 {
		t.Fatalf("log provenance: provider=%q tokens=%d", entry.Provider, entry.TotalTokens)
	}
	if len(entry.Citations) == 0 {
		t.Fatal("citations not persisted in the log entry")
	}
}

func TestAnswerIncludeMetadataResolvesSources(t *testing.T) {
	pageID := uuid.New()
	fileID := uuid.New()
	fx := newRAGFixture(t, []*repos.ChunkHit{
		ragHit(pageID, "Refunds are accepted for thirty days.", "Returns", 0.9),
		ragHit(fileID, "Warranty claims need a receipt.", "Warranty", 0.8),
	})
	fx.sources.sources[pageID] = &types.Source{
		Name: "Store Policy",
		Type: types.SourceTypeHTML,
		URL:  "https://shop.example.com/policy",
	}
	fx.sources.sources[fileID] = &types.Source{
		Name:        "warranty.pdf",
		Type:        types.SourceTypePDF,
		StoragePath: "bots/b1/sources/s2/warranty.pdf",
	}

	resp, err := fx.svc.Answer(context.Background(), testBot(), QueryRequest{
		Query:           "refund window?",
		IncludeMetadata: true,
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	pageCit := resp.Citations[0]
	if pageCit.SourceName != "Store Policy" || pageCit.SourceType != types.SourceTypeHTML {
		t.Fatalf("page citation: name=%q type=%q", pageCit.SourceName, pageCit.SourceType)
	}
	if pageCit.SourceURL != "https://shop.example.com/policy" {
		t.Fatalf("source url: got %q", pageCit.SourceURL)
	}
	if pageCit.Filename != "" {
		t.Fatalf("crawled source must not report a filename, got %q", pageCit.Filename)
	}
	fileCit := resp.Citations[1]
	if fileCit.SourceType != types.SourceTypePDF || fileCit.Filename != "warranty.pdf" {
		t.Fatalf("file citation: type=%q filename=%q", fileCit.SourceType, fileCit.Filename)
	}
	if fileCit.StoragePath != "bots/b1/sources/s2/warranty.pdf" {
		t.Fatalf("storage path: got %q", fileCit.StoragePath)
	}
}

func TestAnswerRejectsEmptyQuery(t *testing.T) {
	fx := newRAGFixture(t, nil)
	_, err := fx.svc.Answer(context.Background(), testBot(), QueryRequest{Query: "  "})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestAnswerUnknownModelProvider(t *testing.T) {
	fx := newRAGFixture(t, []*repos.ChunkHit{
		ragHit(uuid.New(), "some passage", "", 0.9),
	})
	bot := testBot()
	bot.ModelProvider = "anthropic"

	_, err := fx.svc.Answer(context.Background(), bot, QueryRequest{Query: "hello"})
	if err == nil {
		t.Fatal("expected error for unregistered provider")
	}
}

func TestAnswerSurfacesGenerationFailure(t *testing.T) {
	fx := newRAGFixture(t, []*repos.ChunkHit{
		ragHit(uuid.New(), "some passage", "", 0.9),
	})
	fx.llm.err = errors.New("upstream 500")

	_, err := fx.svc.Answer(context.Background(), testBot(), QueryRequest{Query: "hello"})
	if err == nil {
		t.Fatal("expected provider error")
	}
	if code := errorCode(t, err); code != apierr.CodeProviderUnavailable {
		t.Fatalf("code: want=%q got=%q", apierr.CodeProviderUnavailable, code)
	}
}

func TestAnswerSurfacesSearchFailure(t *testing.T) {
	fx := newRAGFixture(t, nil)
	fx.chunks.searchErr = errors.New("index offline")

	_, err := fx.svc.Answer(context.Background(), testBot(), QueryRequest{Query: "hello"})
	if err == nil {
		t.Fatal("expected error when search fails")
	}
}
