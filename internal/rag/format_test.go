package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"protocol-navigator/internal/store"
)

func TestFormatChunk(t *testing.T) {
	chunk := store.Chunk{
		DocName:        "protocol.pdf",
		Page:           3,
		ParagraphStart: 2,
		ParagraphEnd:   4,
		Ordinal:        7,
		Text:           "dosing guidance",
	}

	got := FormatChunk(chunk)
	want := "[protocol.pdf|3|¶2-4|chunk:7] dosing guidance"
	if got != want {
		t.Errorf("FormatChunk() = %q, want %q", got, want)
	}
}

func TestJoinBlocks(t *testing.T) {
	chunks := []store.Chunk{
		makeChunk("a.txt", 1, 0, "first"),
		makeChunk("a.txt", 1, 1, "second"),
	}

	got := joinBlocks(chunks)
	if strings.Count(got, "\n\n") != 1 {
		t.Errorf("joinBlocks() = %q, want blocks separated by one blank line", got)
	}
	if !strings.Contains(got, "first") || !strings.Contains(got, "second") {
		t.Errorf("joinBlocks() dropped content: %q", got)
	}
}

func TestExtractiveAnswer(t *testing.T) {
	chunks := []store.Chunk{
		makeChunk("a.txt", 1, 0, strings.Repeat("x", 300)),
		makeChunk("a.txt", 2, 1, "short text"),
		makeChunk("b.txt", 1, 0, "third text"),
		makeChunk("b.txt", 2, 1, "never included"),
	}

	got := extractiveAnswer("what is the dose?", chunks)

	if !strings.HasPrefix(got, "Question: what is the dose?") {
		t.Errorf("extractiveAnswer() missing question line:\n%s", got)
	}
	if !strings.Contains(got, "Summary from strongest matches:") {
		t.Errorf("extractiveAnswer() missing summary header:\n%s", got)
	}
	// At most three excerpts, each capped at 240 chars.
	if strings.Count(got, "- [") != 3 {
		t.Errorf("extractiveAnswer() excerpt count = %d, want 3:\n%s", strings.Count(got, "- ["), got)
	}
	if strings.Contains(got, "never included") {
		t.Errorf("extractiveAnswer() included a fourth excerpt:\n%s", got)
	}
	if strings.Contains(got, strings.Repeat("x", 241)) {
		t.Error("extractiveAnswer() excerpt not truncated to 240 chars")
	}
}

func TestExtractiveAnswer_MultibyteExcerpt(t *testing.T) {
	chunks := []store.Chunk{makeChunk("a.txt", 1, 0, strings.Repeat("é", 300))}

	got := extractiveAnswer("what is the dose?", chunks)

	if !utf8.ValidString(got) {
		t.Fatalf("extractiveAnswer() produced invalid UTF-8:\n%s", got)
	}
	if strings.Contains(got, strings.Repeat("é", 241)) {
		t.Error("extractiveAnswer() excerpt not truncated to 240 runes")
	}
	if !strings.Contains(got, strings.Repeat("é", 240)) {
		t.Error("extractiveAnswer() excerpt truncated short of 240 runes")
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{name: "short text untouched", text: "abc", n: 5, want: "abc"},
		{name: "ascii cut", text: "abcdef", n: 3, want: "abc"},
		{name: "multibyte cut on rune boundary", text: "µµµµ", n: 2, want: "µµ"},
		{name: "exact length untouched", text: "€€", n: 2, want: "€€"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateRunes(tt.text, tt.n); got != tt.want {
				t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.text, tt.n, got, tt.want)
			}
		})
	}
}

func TestExtractiveAnswer_NoChunks(t *testing.T) {
	got := extractiveAnswer("anything", nil)
	if got != "No relevant content was found in uploaded documents." {
		t.Errorf("extractiveAnswer() = %q", got)
	}
}
