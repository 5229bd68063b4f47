package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPages turns a source file into page-level text. PDF files yield one
// entry per physical page (empty string for pages with no extractable text).
// Markdown is flattened to plain text first; everything else is read as plain
// text. Non-PDF content is split into pseudo-pages so downstream chunking
// inputs stay bounded regardless of file size.
func (s *Store) extractPages(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDFPages(path)
	case ".md":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return splitTextPages(markdownToText(raw), s.opts.PageCharLimit), nil
	default:
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return splitTextPages(string(raw), s.opts.PageCharLimit), nil
	}
}

// extractPDFPages reads one text block per physical PDF page. Pages whose text
// cannot be extracted contribute an empty string so page numbering stays
// aligned with the source document.
func extractPDFPages(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	if len(pages) == 0 {
		pages = append(pages, "")
	}
	return pages, nil
}

// splitTextPages accumulates blank-line-delimited sections into pseudo-pages,
// starting a new page once a running character count would exceed limit. Text
// with no split points comes back as a single page.
func splitTextPages(raw string, limit int) []string {
	sections := blankLineSplitter.Split(raw, -1)

	var pages []string
	var current []string
	charCount := 0
	for _, section := range sections {
		size := len(section)
		if charCount+size > limit && len(current) > 0 {
			pages = append(pages, strings.Join(current, "\n\n"))
			current = []string{section}
			charCount = size
		} else {
			current = append(current, section)
			charCount += size
		}
	}
	if len(current) > 0 {
		pages = append(pages, strings.Join(current, "\n\n"))
	}
	if len(pages) == 0 {
		pages = []string{raw}
	}
	return pages
}
