package store

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var sentenceSplitter = regexp.MustCompile(`(?s)(.*?[.!?])\s+`)

// packedChunk is a chunk of text with its 1-based paragraph span.
type packedChunk struct {
	text      string
	paraStart int
	paraEnd   int
}

// packParagraphs packs page paragraphs into chunks of at most chunkSize
// characters. Size is measured in runes, not bytes, so multibyte text packs
// the same as ASCII. Consecutive paragraphs accumulate into a buffer joined
// by a blank line; the buffer flushes when the next paragraph would push it
// past chunkSize. A paragraph longer than chunkSize*oversizeFactor is split
// independently and never merged with its neighbors.
func packParagraphs(paragraphs []string, chunkSize int, oversizeFactor float64) []packedChunk {
	var chunks []packedChunk

	var buffer []string
	bufferStart := 0
	bufferEnd := 0
	currentLen := 0

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		chunks = append(chunks, packedChunk{
			text:      strings.Join(buffer, "\n\n"),
			paraStart: bufferStart,
			paraEnd:   bufferEnd,
		})
		buffer = nil
		bufferStart = 0
		bufferEnd = 0
		currentLen = 0
	}

	oversizeLimit := int(float64(chunkSize) * oversizeFactor)
	for i, paragraph := range paragraphs {
		idx := i + 1
		if paragraph == "" {
			continue
		}

		paragraphLen := utf8.RuneCountInString(paragraph)
		if paragraphLen > oversizeLimit {
			flush()
			for _, piece := range splitLongParagraph(paragraph, chunkSize) {
				chunks = append(chunks, packedChunk{text: piece, paraStart: idx, paraEnd: idx})
			}
			continue
		}

		additional := paragraphLen
		if len(buffer) > 0 {
			additional += 2 // separator
		}
		if len(buffer) > 0 && currentLen+additional > chunkSize {
			flush()
			additional = paragraphLen
		}

		if len(buffer) == 0 {
			bufferStart = idx
		}
		buffer = append(buffer, paragraph)
		bufferEnd = idx
		currentLen += additional
	}

	flush()
	return chunks
}

// splitLongParagraph splits an oversized paragraph on sentence boundaries,
// accumulating sentences up to chunkSize runes. Pieces still longer than
// chunkSize are hard-sliced into chunkSize-rune windows so a cut never lands
// mid-rune.
func splitLongParagraph(paragraph string, chunkSize int) []string {
	sentences := splitSentences(paragraph)

	var pieces []string
	current := ""
	for _, sentence := range sentences {
		candidate := sentence
		if current != "" {
			candidate = strings.TrimSpace(current + " " + sentence)
		}
		if current != "" && utf8.RuneCountInString(candidate) > chunkSize {
			pieces = append(pieces, strings.TrimSpace(current))
			current = sentence
		} else {
			current = candidate
		}
	}
	if current != "" {
		pieces = append(pieces, strings.TrimSpace(current))
	}

	var final []string
	for _, piece := range pieces {
		if utf8.RuneCountInString(piece) <= chunkSize {
			if piece != "" {
				final = append(final, piece)
			}
			continue
		}
		runes := []rune(piece)
		for start := 0; start < len(runes); start += chunkSize {
			end := start + chunkSize
			if end > len(runes) {
				end = len(runes)
			}
			if window := strings.TrimSpace(string(runes[start:end])); window != "" {
				final = append(final, window)
			}
		}
	}
	return final
}

// splitSentences breaks text after '.', '!' or '?' followed by whitespace.
func splitSentences(text string) []string {
	var sentences []string
	rest := text
	for {
		loc := sentenceSplitter.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		sentences = append(sentences, rest[loc[2]:loc[3]])
		rest = rest[loc[1]:]
	}
	if rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
