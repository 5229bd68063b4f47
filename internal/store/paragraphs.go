package store

import (
	"regexp"
	"strings"
)

var (
	blankLineSplitter = regexp.MustCompile(`\n\s*\n`)
	paragraphSplitter = regexp.MustCompile(`\n\s*\n+`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
)

// splitPageParagraphs segments a page into whitespace-normalized paragraphs.
// Pages are split on blank lines; a densely line-wrapped page that yields at
// most one block falls back to stitching consecutive lines into sentences,
// emitting a paragraph whenever the buffer ends in '.', ';' or ':' and has
// reached stitchMinChars.
func splitPageParagraphs(pageText string, stitchMinChars int) []string {
	if pageText == "" {
		return nil
	}

	raw := strings.ReplaceAll(pageText, "\r", "\n")
	var blocks []string
	for _, block := range paragraphSplitter.Split(raw, -1) {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			blocks = append(blocks, trimmed)
		}
	}

	if len(blocks) <= 1 {
		blocks = stitchLines(raw, stitchMinChars)
	}

	paragraphs := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if normalized := normalizeSpaces(block); normalized != "" {
			paragraphs = append(paragraphs, normalized)
		}
	}
	return paragraphs
}

// stitchLines accumulates non-empty lines into a sentence buffer, flushing on
// terminal punctuation once the joined text is long enough.
func stitchLines(raw string, minChars int) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) == 0 {
		return nil
	}

	var stitched []string
	var bucket []string
	for _, line := range lines {
		bucket = append(bucket, line)
		joined := strings.Join(bucket, " ")
		if endsInTerminator(joined) && len(joined) >= minChars {
			stitched = append(stitched, joined)
			bucket = nil
		}
	}
	if len(bucket) > 0 {
		stitched = append(stitched, strings.Join(bucket, " "))
	}
	return stitched
}

func endsInTerminator(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, ";") || strings.HasSuffix(s, ":")
}

// normalizeSpaces collapses whitespace runs to single spaces and trims.
func normalizeSpaces(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}
