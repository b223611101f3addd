package llm

import "testing"

func TestContextWindow(t *testing.T) {
	cases := []struct {
		model string
		want  int
	}{
		{model: "gpt-4o-mini", want: 128000},
		{model: "GPT-4o", want: 128000},
		{model: "gpt-4.1-nano", want: 128000},
		{model: "gpt-4-turbo-preview", want: 128000},
		{model: "gpt-3.5-turbo", want: 16385},
		{model: "gemini-1.5-flash", want: 128000},
		{model: "gemini-2.0-flash", want: 128000},
		{model: "some-house-model", want: 16000},
		{model: "", want: 16000},
	}
	for _, tc := range cases {
		if got := ContextWindow(tc.model); got != tc.want {
			t.Fatalf("ContextWindow(%q): want=%d got=%d", tc.model, tc.want, got)
		}
	}
}
