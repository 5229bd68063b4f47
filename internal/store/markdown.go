package store

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

// markdownToText flattens a markdown document into plain text by walking the
// goldmark AST. Block elements (headings, paragraphs, list items, code blocks)
// are separated by blank lines so the result feeds the same paragraph
// segmentation as plain-text sources.
func markdownToText(content []byte) string {
	if len(content) == 0 {
		return ""
	}

	reader := text.NewReader(content)
	doc := markdownParser.Parser().Parse(reader)

	var blocks []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.ListItem:
			block := nodeText(n, content)
			if block != "" {
				blocks = append(blocks, block)
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			blocks = appendLines(blocks, node.Lines(), content)
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			blocks = appendLines(blocks, node.Lines(), content)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	if len(blocks) == 0 {
		return string(content)
	}
	return strings.Join(blocks, "\n\n")
}

// nodeText collects the text content of a node and its children.
func nodeText(n ast.Node, content []byte) string {
	var builder strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.Text:
			builder.Write(v.Segment.Value(content))
			if v.SoftLineBreak() || v.HardLineBreak() {
				builder.WriteByte(' ')
			}
		case *ast.String:
			builder.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(builder.String())
}

func appendLines(blocks []string, lines *text.Segments, content []byte) []string {
	var builder strings.Builder
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		builder.Write(line.Value(content))
	}
	block := strings.TrimSpace(builder.String())
	if block == "" {
		return blocks
	}
	return append(blocks, block)
}
