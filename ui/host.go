package ui

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readalong/internal/document"
	"github.com/dgnsrekt/readalong/internal/pages"
	"github.com/dgnsrekt/readalong/internal/playback"
)

// TextLoader receives the text of the section the host shows.
type TextLoader interface {
	LoadText(pos document.Position, text string) error
}

// Host shows one section of a document at a time and hands its text to the
// playback session. It serves as the session's Pager when reading by page
// and as its Navigator when reading by chapter.
type Host struct {
	byChapter bool

	mu     sync.Mutex
	doc    *pages.Document
	pos    document.Position
	loader TextLoader
}

var (
	_ playback.Pager     = (*Host)(nil)
	_ playback.Navigator = (*Host)(nil)
)

// NewHost creates a host showing the start of doc.
func NewHost(doc *pages.Document, byChapter bool) *Host {
	h := &Host{doc: doc, byChapter: byChapter}
	h.pos = h.start()
	return h
}

// Bind connects the host to the session it feeds.
func (h *Host) Bind(loader TextLoader) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loader = loader
}

// Document returns the document being shown.
func (h *Host) Document() *pages.Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc
}

// SetDocument replaces the document, for example after the file changed on
// disk. The shown position is kept when it still exists.
func (h *Host) SetDocument(doc *pages.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.doc = doc
	if _, err := h.blocks(h.pos); err != nil {
		h.pos = h.start()
	}
}

// Position returns the shown position.
func (h *Host) Position() document.Position {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pos
}

// Blocks returns the blocks of the shown section.
func (h *Host) Blocks() []pages.Block {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, _ := h.blocks(h.pos)
	return b
}

// Resolve returns pos if the host can show it, else the start of the
// document. Stored positions may predate an edit or another reading mode.
func (h *Host) Resolve(pos document.Position) document.Position {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.blocks(pos); err != nil {
		return h.start()
	}
	return pos
}

// Label describes the shown position for the status bar.
func (h *Host) Label() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.pos.Kind() {
	case document.KindPage:
		n, _ := h.pos.PageNumber()
		return fmt.Sprintf("p. %d/%d", n, h.doc.PageCount())
	case document.KindLocation:
		id, _ := h.pos.LocationString()
		c, i, _ := h.doc.Chapter(id)
		title := c.Title
		if title == "" {
			title = "Untitled"
		}
		return fmt.Sprintf("%s (%d/%d)", title, i+1, len(h.doc.Chapters()))
	default:
		return ""
	}
}

// Deliver shows pos and loads its text into the session.
func (h *Host) Deliver(ctx context.Context, pos document.Position) error {
	if err := h.Display(ctx, pos); err != nil {
		return err
	}
	return h.load(pos)
}

// PageCount implements playback.Pager.
func (h *Host) PageCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc.PageCount()
}

// ShowPage implements playback.Pager. The session announces the page with
// a NeedText event, which the reader answers with Deliver.
func (h *Host) ShowPage(ctx context.Context, n int) error {
	return h.Display(ctx, document.Page(n))
}

// Next implements playback.Navigator.
func (h *Host) Next(ctx context.Context) (bool, error) {
	return h.step(ctx, 1)
}

// Prev implements playback.Navigator.
func (h *Host) Prev(ctx context.Context) (bool, error) {
	return h.step(ctx, -1)
}

// Display shows the section at pos without loading its text.
func (h *Host) Display(ctx context.Context, pos document.Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.blocks(pos); err != nil {
		return err
	}
	h.pos = pos
	return nil
}

// AtStart implements playback.Navigator.
func (h *Host) AtStart(pos document.Position) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch pos.Kind() {
	case document.KindPage:
		n, _ := pos.PageNumber()
		return n <= 1
	case document.KindLocation:
		id, _ := pos.LocationString()
		_, i, _ := h.doc.Chapter(id)
		return i <= 0
	default:
		return true
	}
}

func (h *Host) step(ctx context.Context, delta int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	h.mu.Lock()
	id, ok := h.pos.LocationString()
	if !ok {
		h.mu.Unlock()
		return false, fmt.Errorf("cannot move by chapter from %s", h.pos)
	}
	chapters := h.doc.Chapters()
	_, i, _ := h.doc.Chapter(id)
	target := i + delta
	if i < 0 || target < 0 || target >= len(chapters) {
		h.mu.Unlock()
		return false, nil
	}
	pos := document.Location(chapters[target].ID)
	h.pos = pos
	h.mu.Unlock()

	log.Debug("moved chapter", "from", id, "to", chapters[target].ID)
	return true, h.load(pos)
}

func (h *Host) load(pos document.Position) error {
	h.mu.Lock()
	loader := h.loader
	blocks, err := h.blocks(pos)
	h.mu.Unlock()

	if err != nil {
		return err
	}
	if loader == nil {
		return fmt.Errorf("no session bound to the reader")
	}
	return loader.LoadText(pos, joinBlocks(blocks))
}

// start is the first position in the host's reading mode.
func (h *Host) start() document.Position {
	if h.byChapter {
		return document.Location(h.doc.Chapters()[0].ID)
	}
	return document.Page(1)
}

// blocks returns the blocks at pos, or an error if pos does not fit the
// document or the reading mode.
func (h *Host) blocks(pos document.Position) ([]pages.Block, error) {
	switch pos.Kind() {
	case document.KindPage:
		if h.byChapter {
			break
		}
		n, _ := pos.PageNumber()
		if b, ok := h.doc.Page(n); ok {
			return b, nil
		}
	case document.KindLocation:
		if !h.byChapter {
			break
		}
		id, _ := pos.LocationString()
		if c, _, ok := h.doc.Chapter(id); ok {
			return c.Blocks, nil
		}
	}
	return nil, fmt.Errorf("%s is not in %s", pos, h.doc.Title)
}

func joinBlocks(blocks []pages.Block) string {
	var text string
	for i, b := range blocks {
		if i > 0 {
			text += "\n\n"
		}
		text += b.Text
	}
	return text
}
