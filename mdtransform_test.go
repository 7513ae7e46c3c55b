package boltpage

import (
	"strings"
	"testing"
)

func TestPreprocessMarkdown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		input        string
		want         string
		wantContains []string
	}{
		{
			name:  "normalizes CRLF",
			input: "line one\r\nline two\rline three",
			want:  "line one\nline two\nline three",
		},
		{
			name:  "converts highlight syntax",
			input: "this is ==important== text",
			want:  "this is <mark>important</mark> text",
		},
		{
			name:  "highlight syntax untouched inside fence",
			input: "```\n==not a mark==\n```",
			want:  "```\n==not a mark==\n```",
		},
		{
			name:  "pretty prints json fence",
			input: "```json\n{\"b\":2,\"a\":1}\n```",
			wantContains: []string{
				"\"a\": 1",
				"\"b\": 2",
				"```json",
			},
		},
		{
			name:  "invalid json fence preserved exactly",
			input: "```json\n{not json}\n```",
			want:  "```json\n{not json}\n```",
		},
		{
			name:  "non-json fence preserved exactly",
			input: "```go\nfunc main() {}\n```",
			want:  "```go\nfunc main() {}\n```",
		},
		{
			name:  "unterminated fence preserved",
			input: "```json\n{\"a\":1}",
			want:  "```json\n{\"a\":1}",
		},
		{
			name:  "tilde fence",
			input: "~~~\n==x==\n~~~",
			want:  "~~~\n==x==\n~~~",
		},
		{
			name:  "longer closing fence",
			input: "```\n==x==\n`````",
			want:  "```\n==x==\n`````",
		},
		{
			name:  "shorter run stays inside the fence",
			input: "````\n```\n==x==\n````",
			want:  "````\n```\n==x==\n````",
		},
		{
			name:  "indented fence",
			input: "   ```\n==x==\n   ```",
			want:  "   ```\n==x==\n   ```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := preprocessMarkdown(tt.input)
			if tt.want != "" || len(tt.wantContains) == 0 {
				if got != tt.want {
					t.Errorf("preprocessMarkdown(%q) = %q, want %q", tt.input, got, tt.want)
				}
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("preprocessMarkdown(%q) = %q, missing %q", tt.input, got, want)
				}
			}
		})
	}
}

func TestPrettyJSONFenceKeysSorted(t *testing.T) {
	t.Parallel()

	got := preprocessMarkdown("```json\n{\"zebra\":1,\"apple\":2}\n```")
	if strings.Index(got, "apple") > strings.Index(got, "zebra") {
		t.Errorf("keys not sorted deterministically: %q", got)
	}
}
