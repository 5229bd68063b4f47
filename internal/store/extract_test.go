package store

import (
	"strings"
	"testing"
)

func TestSplitTextPages(t *testing.T) {
	section := strings.Repeat("s", 1000)

	tests := []struct {
		name      string
		raw       string
		limit     int
		wantPages int
	}{
		{
			name:      "small text is a single page",
			raw:       "one section\n\nanother section",
			limit:     3500,
			wantPages: 1,
		},
		{
			name:      "sections roll into pseudo-pages at the limit",
			raw:       strings.Join([]string{section, section, section, section}, "\n\n"),
			limit:     2500,
			wantPages: 2,
		},
		{
			name:      "oversized single section stays one page",
			raw:       strings.Repeat("x", 5000),
			limit:     3500,
			wantPages: 1,
		},
		{
			name:      "empty input yields one empty page",
			raw:       "",
			limit:     3500,
			wantPages: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := splitTextPages(tt.raw, tt.limit)
			if len(pages) != tt.wantPages {
				t.Fatalf("splitTextPages() = %d pages, want %d", len(pages), tt.wantPages)
			}
		})
	}
}

func TestSplitTextPages_ContentPreserved(t *testing.T) {
	a := strings.Repeat("a", 2000)
	b := strings.Repeat("b", 2000)
	c := strings.Repeat("c", 2000)

	pages := splitTextPages(strings.Join([]string{a, b, c}, "\n\n"), 3500)
	if len(pages) != 3 {
		t.Fatalf("splitTextPages() = %d pages, want 3", len(pages))
	}
	joined := strings.Join(pages, "\n\n")
	for _, want := range []string{a, b, c} {
		if !strings.Contains(joined, want) {
			t.Error("splitTextPages() dropped section content")
		}
	}
}
