package pages

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// chapterLevel is the deepest heading that starts a new chapter.
const chapterLevel = 2

var markdown = goldmark.New(
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// parseMarkdown turns markdown into narratable blocks grouped into
// chapters. Code and raw HTML are not read aloud.
func parseMarkdown(src []byte) []Chapter {
	reader := text.NewReader(src)
	doc := markdown.Parser().Parse(reader)
	source := reader.Source()

	var chapters []Chapter
	current := Chapter{ID: "#start"}

	flush := func() {
		if len(current.Blocks) > 0 || current.Title != "" {
			chapters = append(chapters, current)
		}
	}

	var visit func(n ast.Node)
	visit = func(n ast.Node) {
		switch n := n.(type) {
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock:
			return

		case *ast.Heading:
			title := inlineText(n, source)
			if title == "" {
				return
			}
			if n.Level <= chapterLevel {
				flush()
				current = Chapter{ID: "#" + headingID(n, title), Title: title, Level: n.Level}
			}
			current.Blocks = append(current.Blocks, Block{Text: terminate(title), Heading: true})
			return

		case *ast.Paragraph, *ast.TextBlock:
			if s := inlineText(n, source); s != "" {
				current.Blocks = append(current.Blocks, Block{Text: s})
			}
			return

		case *ast.ListItem:
			// Items read as separate sentences even without punctuation.
			start := len(current.Blocks)
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				visit(c)
			}
			for i := start; i < len(current.Blocks); i++ {
				current.Blocks[i].Text = terminate(current.Blocks[i].Text)
			}
			return
		}

		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			visit(c)
		}
	}
	visit(doc)
	flush()

	return chapters
}

// inlineText collects the visible text of n's inline children: link text
// without URLs, image alt text, code spans verbatim.
func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder

	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		switch n := n.(type) {
		case *ast.Text:
			b.Write(n.Segment.Value(source))
			if n.SoftLineBreak() || n.HardLineBreak() {
				b.WriteByte(' ')
			}
			return
		case *ast.String:
			b.Write(n.Value)
			return
		case *ast.RawHTML, *ast.AutoLink:
			return
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(n)

	return strings.Join(strings.Fields(b.String()), " ")
}

func headingID(n *ast.Heading, title string) string {
	if v, ok := n.AttributeString("id"); ok {
		if id, ok := v.([]byte); ok && len(id) > 0 {
			return string(id)
		}
	}
	return strings.ToLower(strings.ReplaceAll(title, " ", "-"))
}

// terminate ends s with a period unless it already ends a sentence, so a
// heading or list item is never merged with the next block.
func terminate(s string) string {
	if s == "" {
		return s
	}
	switch s[len(s)-1] {
	case '.', '!', '?', ':', ';':
		return s
	}
	return s + "."
}
