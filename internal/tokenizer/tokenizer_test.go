package tokenizer

import (
	"strings"
	"testing"
)

func TestEstimate(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "whitespace only", text: "   \n\t ", want: 0},
		{name: "single word", text: "hello", want: 2},
		{name: "ten words", text: "one two three four five six seven eight nine ten", want: 13},
		{name: "collapsed whitespace", text: "a   b\n\nc", want: 4},
		{name: "cjk runes count individually", text: "日本語", want: 3},
		{name: "mixed latin and cjk", text: "hello 世界", want: 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Estimate(tc.text); got != tc.want {
				t.Fatalf("Estimate(%q): want=%d got=%d", tc.text, tc.want, got)
			}
		})
	}
}

func TestEstimateForModelFamilies(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 100))
	cases := []struct {
		name  string
		model string
		want  int
	}{
		{name: "gpt uses cl100k ratio", model: "gpt-4o-mini", want: 130},
		{name: "gemini packs tighter", model: "gemini-1.5-flash", want: 125},
		{name: "unknown model falls back to cl100k", model: "llama-3-8b", want: 130},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EstimateForModel(text, tc.model); got != tc.want {
				t.Fatalf("EstimateForModel(%q): want=%d got=%d", tc.model, tc.want, got)
			}
		})
	}
	if Estimate(text) != EstimateForModel(text, "gpt-4o-mini") {
		t.Fatal("default estimate should match the gpt family")
	}
}

func TestEstimateMonotonic(t *testing.T) {
	short := "the quick brown fox"
	long := short + " jumps over the lazy dog"
	if Estimate(long) <= Estimate(short) {
		t.Fatalf("longer text should estimate more tokens: short=%d long=%d", Estimate(short), Estimate(long))
	}
}

func TestTruncate(t *testing.T) {
	text := "one two three four five six seven eight"
	got := Truncate(text, 4)
	want := "one two three"
	if got != want {
		t.Fatalf("Truncate: want=%q got=%q", want, got)
	}
	if Estimate(got) > 4 {
		t.Fatalf("truncated text exceeds budget: %d", Estimate(got))
	}
	if Truncate(text, 0) != "" {
		t.Fatal("zero budget should return empty string")
	}
	if Truncate("short", 100) != "short" {
		t.Fatal("text under budget should be unchanged")
	}
}

func TestTail(t *testing.T) {
	text := "one two three four five six seven eight"
	got := Tail(text, 4)
	want := "six seven eight"
	if got != want {
		t.Fatalf("Tail: want=%q got=%q", want, got)
	}
	if Tail(text, 1000) != text {
		t.Fatal("large budget should return full text")
	}
	if Tail("", 10) != "" {
		t.Fatal("empty text should return empty string")
	}
}
