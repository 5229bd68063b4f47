package store

import (
	"strings"
	"testing"
)

func TestMarkdownToText(t *testing.T) {
	input := `# Dosing Protocol

Adults receive **500mg** twice daily with food.

- First line therapy
- Second line therapy

## Monitoring

Check renal function every *two weeks*.

` + "```\ndose = weight * 10\n```\n"

	got := markdownToText([]byte(input))

	wantBlocks := []string{
		"Dosing Protocol",
		"Adults receive 500mg twice daily with food.",
		"First line therapy",
		"Second line therapy",
		"Monitoring",
		"Check renal function every two weeks.",
		"dose = weight * 10",
	}
	for _, block := range wantBlocks {
		if !strings.Contains(got, block) {
			t.Errorf("markdownToText() missing block %q in:\n%s", block, got)
		}
	}
	if strings.Contains(got, "#") || strings.Contains(got, "**") {
		t.Errorf("markdownToText() leaked markdown syntax:\n%s", got)
	}

	// Blocks must be blank-line separated so paragraph segmentation applies.
	if !strings.Contains(got, "Dosing Protocol\n\n") {
		t.Errorf("markdownToText() blocks not blank-line separated:\n%s", got)
	}
}

func TestMarkdownToText_Empty(t *testing.T) {
	if got := markdownToText(nil); got != "" {
		t.Errorf("markdownToText(nil) = %q, want empty", got)
	}
}
