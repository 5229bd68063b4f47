package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"protocol-navigator/internal/store"
)

// truncateRunes cuts text to at most n characters at a rune boundary.
func truncateRunes(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
}

// FormatChunk renders the context block for a chunk. Citation parsing and
// token budgeting depend on this exact framing.
func FormatChunk(c store.Chunk) string {
	return fmt.Sprintf("[%s|%d|¶%d-%d|chunk:%d] %s",
		c.DocName, c.Page, c.ParagraphStart, c.ParagraphEnd, c.Ordinal, c.Text)
}

// joinBlocks concatenates formatted chunk blocks, separated by blank lines.
func joinBlocks(chunks []store.Chunk) string {
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		blocks[i] = FormatChunk(c)
	}
	return strings.Join(blocks, "\n\n")
}

// extractiveAnswer builds the deterministic fallback answer from the
// strongest matches when the answer service is unavailable.
func extractiveAnswer(question string, chunks []store.Chunk) string {
	if len(chunks) == 0 {
		return "No relevant content was found in uploaded documents."
	}

	lines := []string{
		fmt.Sprintf("Question: %s", question),
		"Summary from strongest matches:",
	}
	for _, c := range chunks {
		if len(lines) >= 5 {
			break
		}
		excerpt := truncateRunes(c.Text, 240)
		lines = append(lines, fmt.Sprintf("- [%s|%d|¶%d-%d] %s",
			c.DocName, c.Page, c.ParagraphStart, c.ParagraphEnd, excerpt))
	}
	return strings.Join(lines, "\n")
}
