package chunker

import (
	"strings"
	"testing"

	"github.com/niyahq/niya-backend/internal/parsers"
)

// sentence builds an n-word sentence ending in a period.
func sentence(word string, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = word
	}
	return strings.Join(words, " ") + "."
}

func sectionOf(heading string, sentences ...string) parsers.Section {
	return parsers.Section{Heading: heading, Content: strings.Join(sentences, " ")}
}

func TestChunkSpansMatchCanonical(t *testing.T) {
	doc := &parsers.Document{
		Title: "Handbook",
		Sections: []parsers.Section{
			sectionOf("Returns", sentence("alpha", 12), sentence("beta", 12), sentence("gamma", 12), sentence("delta", 12)),
			sectionOf("Shipping", sentence("epsilon", 12), sentence("zeta", 12)),
		},
	}
	c := New(Config{TargetTokens: 20, MinTokens: 8, MaxTokens: 40, OverlapTokens: 6})

	chunks, canonical := c.Chunk(doc)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if canonical != doc.Text() {
		t.Fatal("canonical text must match the parsed document rendering")
	}
	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Fatalf("chunk %d has index %d", i, chunk.Index)
		}
		if got := canonical[chunk.CharStart:chunk.CharEnd]; got != chunk.Text {
			t.Fatalf("chunk %d span mismatch:\nspan=%q\ntext=%q", i, got, chunk.Text)
		}
		if chunk.TokenCount <= 0 {
			t.Fatalf("chunk %d has no token count", i)
		}
	}
}

func TestChunksDoNotCrossSections(t *testing.T) {
	doc := &parsers.Document{
		Sections: []parsers.Section{
			sectionOf("One", sentence("aa", 10), sentence("bb", 10)),
			sectionOf("Two", sentence("cc", 10), sentence("dd", 10)),
		},
	}
	c := New(Config{TargetTokens: 15, MinTokens: 5, MaxTokens: 30, OverlapTokens: 0})

	chunks, canonical := c.Chunk(doc)
	for i, chunk := range chunks {
		if chunk.Heading != "One" && chunk.Heading != "Two" {
			t.Fatalf("chunk %d has unexpected heading %q", i, chunk.Heading)
		}
		if strings.Contains(chunk.Text, "aa") && strings.Contains(chunk.Text, "cc") {
			t.Fatalf("chunk %d spans two sections: %q", i, chunk.Text)
		}
	}
	if !strings.Contains(canonical, "One\n\n") || !strings.Contains(canonical, "Two\n\n") {
		t.Fatal("canonical text should carry section headings")
	}
}

func TestOverlapBetweenConsecutiveChunks(t *testing.T) {
	doc := &parsers.Document{
		Sections: []parsers.Section{
			sectionOf("", sentence("aa", 10), sentence("bb", 10), sentence("cc", 10), sentence("dd", 10), sentence("ee", 10)),
		},
	}
	c := New(Config{TargetTokens: 25, MinTokens: 5, MaxTokens: 60, OverlapTokens: 15})

	chunks, _ := c.Chunk(doc)
	if len(chunks) < 2 {
		t.Fatalf("expected at least two chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].CharStart >= chunks[i-1].CharEnd {
			t.Fatalf("chunk %d does not overlap its predecessor: prev end=%d start=%d", i, chunks[i-1].CharEnd, chunks[i].CharStart)
		}
		if chunks[i].CharStart <= chunks[i-1].CharStart {
			t.Fatalf("chunk %d does not advance past predecessor start", i)
		}
	}
}

func TestTrailingRemainderMergesIntoPreviousChunk(t *testing.T) {
	// Two full sentences then a tiny one: the tiny remainder should fold
	// into the previous chunk instead of becoming an undersized chunk.
	doc := &parsers.Document{
		Sections: []parsers.Section{
			sectionOf("", sentence("aa", 12), sentence("bb", 12), sentence("cc", 2)),
		},
	}
	c := New(Config{TargetTokens: 16, MinTokens: 10, MaxTokens: 60, OverlapTokens: 0})

	chunks, canonical := c.Chunk(doc)
	for i, chunk := range chunks {
		if chunk.TokenCount < 10 && len(chunks) > 1 {
			t.Fatalf("chunk %d is below the minimum: %d tokens", i, chunk.TokenCount)
		}
		if got := canonical[chunk.CharStart:chunk.CharEnd]; got != chunk.Text {
			t.Fatalf("merged chunk %d span mismatch", i)
		}
	}
	last := chunks[len(chunks)-1]
	if !strings.Contains(last.Text, "cc") {
		t.Fatal("trailing sentence lost during merge")
	}
}

func TestOversizedSentenceIsOwnChunk(t *testing.T) {
	// One giant unpunctuated "sentence" far beyond MaxTokens must come out
	// as a single chunk, never split mid-sentence.
	words := make([]string, 200)
	for i := range words {
		words[i] = "blob"
	}
	doc := &parsers.Document{
		Sections: []parsers.Section{
			{Content: strings.Join(words, " ")},
		},
	}
	c := New(Config{TargetTokens: 30, MinTokens: 5, MaxTokens: 40, OverlapTokens: 0})

	chunks, canonical := c.Chunk(doc)
	if len(chunks) != 1 {
		t.Fatalf("oversized sentence must be one chunk, got %d", len(chunks))
	}
	if chunks[0].TokenCount <= 40 {
		t.Fatalf("chunk should carry the full oversized sentence, got %d tokens", chunks[0].TokenCount)
	}
	if got := canonical[chunks[0].CharStart:chunks[0].CharEnd]; got != chunks[0].Text {
		t.Fatal("oversized chunk span mismatch")
	}
}

func TestOversizedSentenceUnderDefaultConfig(t *testing.T) {
	// Roughly 2000 estimated tokens in one sentence against the default
	// 1200-token ceiling.
	words := make([]string, 1540)
	for i := range words {
		words[i] = "blob"
	}
	doc := &parsers.Document{
		Sections: []parsers.Section{
			{Content: strings.Join(words, " ")},
		},
	}
	chunks, _ := New(DefaultConfig()).Chunk(doc)
	if len(chunks) != 1 {
		t.Fatalf("oversized sentence must be one chunk, got %d", len(chunks))
	}
}

func TestOversizedSentenceDoesNotAbsorbNeighbors(t *testing.T) {
	giant := sentence("giant", 60) // ~78 tokens, above the 40-token ceiling
	doc := &parsers.Document{
		Sections: []parsers.Section{
			sectionOf("", sentence("aa", 12), giant, sentence("bb", 12)),
		},
	}
	c := New(Config{TargetTokens: 30, MinTokens: 5, MaxTokens: 40, OverlapTokens: 0})

	chunks, _ := c.Chunk(doc)
	var giantChunks int
	for i, chunk := range chunks {
		if !strings.Contains(chunk.Text, "giant") {
			continue
		}
		giantChunks++
		if strings.Contains(chunk.Text, "aa") || strings.Contains(chunk.Text, "bb") {
			t.Fatalf("chunk %d packs neighbors around the oversized sentence: %q", i, chunk.Text)
		}
	}
	if giantChunks != 1 {
		t.Fatalf("oversized sentence must land in exactly one chunk, got %d", giantChunks)
	}
}

func TestEmptyDocumentYieldsNoChunks(t *testing.T) {
	doc := &parsers.Document{Sections: []parsers.Section{{Heading: "Empty", Content: "   "}}}
	c := New(DefaultConfig())
	chunks, _ := c.Chunk(doc)
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}
