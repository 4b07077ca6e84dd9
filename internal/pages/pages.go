// Package pages loads plain-text and markdown files for narration. A file
// is split into fixed pages for the reader and into chapters, following
// its headings, for audiobook export.
package pages

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/dgnsrekt/readalong/internal/document"
)

// PageWidth is the column width pages are measured at.
const PageWidth = 80

// ErrEmptyDocument is returned for files without any readable text.
var ErrEmptyDocument = errors.New("document has no readable text")

// Block is one paragraph, heading or list item.
type Block struct {
	Text    string
	Heading bool
}

// Chapter is a run of blocks under one heading.
type Chapter struct {
	ID     string
	Title  string
	Level  int
	Blocks []Block
}

// Text returns the chapter's narratable text.
func (c Chapter) Text() string {
	return joinBlocks(c.Blocks)
}

// Document is a loaded file.
type Document struct {
	Title    string
	Path     string
	Markdown bool

	chapters []Chapter
	pages    [][]Block
}

// Load reads and paginates the file at path.
func Load(path string, pageLines int) (*Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return Parse(abs, src, IsMarkdown(path), pageLines)
}

// IsMarkdown reports whether path has a markdown extension.
func IsMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdown", ".mkdn", ".mkd":
		return true
	}
	return false
}

// Parse builds a Document from src. name is used as the document path and
// for the fallback title.
func Parse(name string, src []byte, isMarkdown bool, pageLines int) (*Document, error) {
	var chapters []Chapter
	if isMarkdown {
		chapters = parseMarkdown(src)
	} else {
		chapters = []Chapter{{ID: "#start", Blocks: parsePlain(string(src))}}
	}

	d := &Document{
		Path:     name,
		Markdown: isMarkdown,
		chapters: chapters,
	}
	for _, c := range chapters {
		if d.Title == "" && c.Level == 1 {
			d.Title = c.Title
		}
	}
	if d.Title == "" {
		d.Title = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}

	d.pages = paginate(chapters, pageLines)
	if len(d.pages) == 0 {
		return nil, ErrEmptyDocument
	}
	return d, nil
}

// parsePlain splits text into paragraphs at blank lines.
func parsePlain(s string) []Block {
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var blocks []Block
	for _, para := range strings.Split(s, "\n\n") {
		if t := strings.Join(strings.Fields(para), " "); t != "" {
			blocks = append(blocks, Block{Text: t})
		}
	}
	return blocks
}

// paginate fills pages with whole blocks up to pageLines wrapped lines.
// A block taller than a page gets a page of its own.
func paginate(chapters []Chapter, pageLines int) [][]Block {
	if pageLines < 1 {
		pageLines = 1
	}

	var (
		pages [][]Block
		page  []Block
		used  int
	)
	for _, c := range chapters {
		for _, b := range c.Blocks {
			h := blockHeight(b)
			if len(page) > 0 && used+1+h > pageLines {
				pages = append(pages, page)
				page, used = nil, 0
			}
			if len(page) > 0 {
				used++ // blank separator line
			}
			page = append(page, b)
			used += h
		}
	}
	if len(page) > 0 {
		pages = append(pages, page)
	}
	return pages
}

func blockHeight(b Block) int {
	return strings.Count(wordwrap.String(b.Text, PageWidth), "\n") + 1
}

func joinBlocks(blocks []Block) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Text
	}
	return strings.Join(parts, "\n\n")
}

// ID identifies the document in the position store.
func (d *Document) ID() string {
	return d.Path
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.pages)
}

// Page returns the blocks of 1-based page n.
func (d *Document) Page(n int) ([]Block, bool) {
	if n < 1 || n > len(d.pages) {
		return nil, false
	}
	return d.pages[n-1], true
}

// PageText returns the narratable text of 1-based page n.
func (d *Document) PageText(n int) (string, bool) {
	blocks, ok := d.Page(n)
	if !ok {
		return "", false
	}
	return joinBlocks(blocks), true
}

// Chapters returns the document's chapters in order.
func (d *Document) Chapters() []Chapter {
	return d.chapters
}

// Chapter returns the chapter with the given ID and its index.
func (d *Document) Chapter(id string) (Chapter, int, bool) {
	for i, c := range d.chapters {
		if c.ID == id {
			return c, i, true
		}
	}
	return Chapter{}, -1, false
}

// Sections implements audiobook.Extractor. Markdown with headings exports
// one section per chapter; anything else exports one section per page.
func (d *Document) Sections(ctx context.Context) ([]document.Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if d.hasChapters() {
		sections := make([]document.Section, 0, len(d.chapters))
		for _, c := range d.chapters {
			sections = append(sections, document.Section{ID: c.ID, Text: c.Text()})
		}
		return sections, nil
	}

	sections := make([]document.Section, 0, len(d.pages))
	for i, p := range d.pages {
		sections = append(sections, document.Section{ID: strconv.Itoa(i + 1), Text: joinBlocks(p)})
	}
	return sections, nil
}

// TOC implements audiobook.Extractor.
func (d *Document) TOC(ctx context.Context) ([]document.TOCEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var toc []document.TOCEntry
	for _, c := range d.chapters {
		if c.Title == "" {
			continue
		}
		toc = append(toc, document.TOCEntry{Title: c.Title, Href: c.ID, Level: c.Level})
	}
	return toc, nil
}

func (d *Document) hasChapters() bool {
	for _, c := range d.chapters {
		if c.Title != "" {
			return true
		}
	}
	return false
}
