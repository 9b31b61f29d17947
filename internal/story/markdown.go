package story

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ParseMarkdown uses the first heading as the title. Every other text block
// becomes a body paragraph; code, HTML and images are not narrated.
func ParseMarkdown(data []byte) Story {
	reader := text.NewReader(data)
	doc := goldmark.New().Parser().Parse(reader)
	source := reader.Source()

	var (
		s          Story
		haveTitle  bool
		paragraphs []string
	)

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if h, ok := node.(*ast.Heading); ok && !haveTitle {
			s.Title = inlineText(h, source)
			haveTitle = true
			continue
		}
		collectBlocks(node, source, &paragraphs)
	}

	s.Body = strings.Join(paragraphs, "\n\n")
	return s
}

// collectBlocks appends the text of every paragraph-like block under node.
func collectBlocks(node ast.Node, source []byte, out *[]string) {
	switch n := node.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.ThematicBreak:
		return

	case *ast.Paragraph, *ast.TextBlock, *ast.Heading:
		if t := inlineText(n, source); t != "" {
			*out = append(*out, t)
		}
		return
	}

	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		collectBlocks(c, source, out)
	}
}

// inlineText flattens the inline children of a block into one line.
func inlineText(node ast.Node, source []byte) string {
	var buf strings.Builder
	walkInline(node, source, &buf)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func walkInline(node ast.Node, source []byte, buf *strings.Builder) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch n := c.(type) {
		case *ast.Text:
			buf.Write(n.Segment.Value(source))
			if n.SoftLineBreak() || n.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(n.Value)
		case *ast.Image, *ast.RawHTML:
			// not narrated
		default:
			// Links, emphasis and code spans contribute their text.
			walkInline(n, source, buf)
		}
	}
}
