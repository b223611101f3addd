// Package chunker splits parsed documents into retrieval-sized pieces.
// Chunk boundaries respect sentences, chunks never cross section
// boundaries, and every chunk records its byte span in the canonical
// document text so citations can point back at the exact passage.
package chunker

import (
	"strings"
	"unicode"

	"github.com/niyahq/niya-backend/internal/parsers"
	"github.com/niyahq/niya-backend/internal/tokenizer"
)

type Config struct {
	TargetTokens  int // preferred chunk size
	MinTokens     int // trailing chunks below this merge into the previous one
	MaxTokens     int // packing ceiling; a single longer sentence stands alone
	OverlapTokens int // sentence overlap carried between consecutive chunks
}

func DefaultConfig() Config {
	return Config{
		TargetTokens:  800,
		MinTokens:     100,
		MaxTokens:     1200,
		OverlapTokens: 100,
	}
}

type Chunk struct {
	Index      int
	Text       string
	TokenCount int
	CharStart  int
	CharEnd    int
	Heading    string
}

type Chunker struct {
	cfg Config
}

func New(cfg Config) *Chunker {
	def := DefaultConfig()
	if cfg.TargetTokens <= 0 {
		cfg.TargetTokens = def.TargetTokens
	}
	if cfg.MinTokens <= 0 {
		cfg.MinTokens = def.MinTokens
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = def.OverlapTokens
	}
	if cfg.MaxTokens < cfg.TargetTokens {
		cfg.MaxTokens = cfg.TargetTokens
	}
	return &Chunker{cfg: cfg}
}

// Chunk splits the document and returns the chunks together with the
// canonical text their CharStart/CharEnd offsets index into. For every chunk
// canonical[CharStart:CharEnd] == Text.
func (c *Chunker) Chunk(doc *parsers.Document) ([]Chunk, string) {
	canonical, spans := buildCanonical(doc)

	var chunks []Chunk
	for si, span := range spans {
		units := splitUnits(canonical, span.contentStart, span.contentEnd)
		chunks = c.packSection(canonical, units, doc.Sections[si].Heading, chunks)
	}
	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks, canonical
}

type sectionSpan struct {
	contentStart int
	contentEnd   int
}

// buildCanonical renders the document the same way parsers.Document.Text
// does, recording where each section's content lands.
func buildCanonical(doc *parsers.Document) (string, []sectionSpan) {
	var b strings.Builder
	spans := make([]sectionSpan, 0, len(doc.Sections))
	for i, sec := range doc.Sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if sec.Heading != "" {
			b.WriteString(sec.Heading)
			b.WriteString("\n\n")
		}
		start := b.Len()
		b.WriteString(sec.Content)
		spans = append(spans, sectionSpan{contentStart: start, contentEnd: b.Len()})
	}
	return b.String(), spans
}

// unit is one sentence with its byte span in the canonical text.
type unit struct {
	start  int
	end    int
	tokens int
}

// splitUnits breaks canonical[start:end] into trimmed sentence spans.
// Newlines always end a sentence; terminal punctuation ends one when
// followed by whitespace.
func splitUnits(canonical string, start, end int) []unit {
	var units []unit
	segStart := start
	text := canonical[start:end]

	flush := func(absEnd int) {
		s, e := trimSpan(canonical, segStart, absEnd)
		if s < e {
			units = append(units, unit{start: s, end: e, tokens: tokenizer.Estimate(canonical[s:e])})
		}
		segStart = absEnd
	}

	for i, r := range text {
		abs := start + i
		switch r {
		case '\n':
			flush(abs + 1)
		case '.', '?', '!':
			next := abs + 1
			if next >= end || isBoundaryFollower(canonical[next]) {
				flush(next)
			}
		}
	}
	flush(end)
	return units
}

func isBoundaryFollower(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t'
}

func trimSpan(canonical string, s, e int) (int, int) {
	for s < e && unicode.IsSpace(rune(canonical[s])) {
		s++
	}
	for e > s && unicode.IsSpace(rune(canonical[e-1])) {
		e--
	}
	return s, e
}

// packSection greedily packs a section's units into chunks, carrying
// sentence overlap between consecutive chunks and merging an undersized
// trailing chunk back into its predecessor. A single sentence above
// MaxTokens is never split mid-sentence; it becomes a chunk of its own.
func (c *Chunker) packSection(canonical string, units []unit, heading string, chunks []Chunk) []Chunk {
	if len(units) == 0 {
		return chunks
	}

	emitted := 0 // chunks emitted for this section
	cur := 0     // first unit of the current chunk
	curTokens := 0

	emit := func(firstUnit, lastUnit int) {
		s := units[firstUnit].start
		e := units[lastUnit].end
		text := canonical[s:e]
		chunks = append(chunks, Chunk{
			Text:       text,
			TokenCount: tokenizer.Estimate(text),
			CharStart:  s,
			CharEnd:    e,
			Heading:    heading,
		})
		emitted++
	}

	i := 0
	for i < len(units) {
		u := units[i]
		if u.tokens > c.cfg.MaxTokens {
			if curTokens > 0 {
				emit(cur, i-1)
			}
			emit(i, i)
			i++
			cur = i
			curTokens = 0
			continue
		}
		if curTokens > 0 && curTokens+u.tokens > c.cfg.MaxTokens {
			emit(cur, i-1)
			cur = c.overlapStart(units, cur, i)
			curTokens = sumTokens(units, cur, i)
			continue
		}
		curTokens += u.tokens
		i++
		if curTokens >= c.cfg.TargetTokens && i < len(units) {
			emit(cur, i-1)
			cur = c.overlapStart(units, cur, i)
			curTokens = sumTokens(units, cur, i)
		}
	}

	if cur < len(units) && curTokens > 0 {
		remainder := sumTokens(units, cur, len(units))
		last := len(chunks) - 1
		if remainder < c.cfg.MinTokens && emitted > 0 {
			merged := canonical[chunks[last].CharStart:units[len(units)-1].end]
			if tokenizer.Estimate(merged) <= c.cfg.MaxTokens {
				chunks[last].Text = merged
				chunks[last].CharEnd = units[len(units)-1].end
				chunks[last].TokenCount = tokenizer.Estimate(merged)
				return chunks
			}
		}
		emit(cur, len(units)-1)
	}
	return chunks
}

// overlapStart walks back from the unit after the emitted chunk, collecting
// whole sentences until OverlapTokens is covered. The next chunk must start
// after the previous chunk's first unit so packing always advances.
func (c *Chunker) overlapStart(units []unit, prevStart, next int) int {
	if c.cfg.OverlapTokens <= 0 {
		return next
	}
	start := next
	covered := 0
	for start > prevStart+1 {
		covered += units[start-1].tokens
		if covered > c.cfg.OverlapTokens {
			break
		}
		start--
	}
	if start == next && next > prevStart+1 && units[next-1].tokens <= c.cfg.OverlapTokens {
		start = next - 1
	}
	return start
}

func sumTokens(units []unit, from, to int) int {
	total := 0
	for i := from; i < to; i++ {
		total += units[i].tokens
	}
	return total
}
