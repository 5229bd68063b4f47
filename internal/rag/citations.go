package rag

import (
	"regexp"
	"strings"

	"protocol-navigator/internal/store"
)

const (
	defaultMaxCitations = 5
	snippetLength       = 220
)

var snippetWhitespace = regexp.MustCompile(`\s+`)

// Citation is a deduplicated provenance record surfaced alongside an answer.
type Citation struct {
	DocName        string `json:"doc_name"`
	Page           int    `json:"page"`
	ParagraphStart int    `json:"paragraph_start"`
	ParagraphEnd   int    `json:"paragraph_end"`
	Snippet        string `json:"snippet"`
}

type citationKey struct {
	docName    string
	page       int
	paraStart  int
	paraEnd    int
}

// BuildCitations formats the provenance of a chunk sequence into at most
// maxItems citations, deduplicated by (doc, page, paragraph span) in first
// occurrence order.
func BuildCitations(chunks []store.Chunk, maxItems int) []Citation {
	if maxItems <= 0 {
		maxItems = defaultMaxCitations
	}

	citations := make([]Citation, 0, maxItems)
	seen := make(map[citationKey]struct{})
	for _, c := range chunks {
		key := citationKey{docName: c.DocName, page: c.Page, paraStart: c.ParagraphStart, paraEnd: c.ParagraphEnd}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		snippet := strings.TrimSpace(snippetWhitespace.ReplaceAllString(c.Text, " "))
		snippet = truncateRunes(snippet, snippetLength)
		citations = append(citations, Citation{
			DocName:        c.DocName,
			Page:           c.Page,
			ParagraphStart: c.ParagraphStart,
			ParagraphEnd:   c.ParagraphEnd,
			Snippet:        snippet,
		})
		if len(citations) >= maxItems {
			break
		}
	}
	return citations
}
