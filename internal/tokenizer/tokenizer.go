// Package tokenizer approximates provider token counts without shipping a
// model vocabulary. Counts only steer chunk sizing and prompt budgeting, so
// a stable overestimate is preferred over an exact one.
package tokenizer

import (
	"math"
	"strings"
	"unicode"
)

// Tokens-per-word ratios observed for English text, keyed by vocabulary
// family. cl100k covers the gpt models and is the default; the SentencePiece
// vocabularies behind the gemini models pack slightly tighter.
const (
	cl100kTokensPerWord        = 1.3
	sentencePieceTokensPerWord = 1.25
)

func ratioFor(model string) float64 {
	if strings.HasPrefix(strings.ToLower(model), "gemini") {
		return sentencePieceTokensPerWord
	}
	return cl100kTokensPerWord
}

// EstimateForModel returns the approximate token count of text under the
// vocabulary family of model. Whitespace-delimited words are scaled by the
// family's tokens-per-word ratio; runs of CJK characters count one token per
// rune since those scripts rarely use spaces.
func EstimateForModel(text, model string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	words := 0
	cjk := 0
	inWord := false
	for _, r := range text {
		if isCJK(r) {
			cjk++
			inWord = false
			continue
		}
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			words++
			inWord = true
		}
	}
	return int(math.Ceil(float64(words)*ratioFor(model))) + cjk
}

// Estimate counts under the default cl100k ratio. Chunk sizing at ingestion
// uses it: a source is indexed once but queried by whichever model the bot
// is configured with at the time.
func Estimate(text string) int {
	return EstimateForModel(text, "")
}

// Tail returns the trailing portion of text whose estimated token count is
// at most maxTokens, cut at word boundaries.
func Tail(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	maxWords := int(float64(maxTokens) / cl100kTokensPerWord)
	if maxWords >= len(words) {
		return strings.Join(words, " ")
	}
	if maxWords == 0 {
		return ""
	}
	return strings.Join(words[len(words)-maxWords:], " ")
}

// Truncate returns the leading portion of text whose estimated token count
// is at most maxTokens, cut at word boundaries.
func Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if Estimate(text) <= maxTokens {
		return text
	}
	words := strings.Fields(text)
	maxWords := int(float64(maxTokens) / cl100kTokensPerWord)
	if maxWords == 0 {
		maxWords = 1
	}
	if maxWords > len(words) {
		maxWords = len(words)
	}
	return strings.Join(words[:maxWords], " ")
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
