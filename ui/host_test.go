package ui

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/dgnsrekt/readalong/internal/document"
	"github.com/dgnsrekt/readalong/internal/pages"
)

type loadCall struct {
	pos  document.Position
	text string
}

type recordingLoader struct {
	mu    sync.Mutex
	calls []loadCall
}

func (r *recordingLoader) LoadText(pos document.Position, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, loadCall{pos, text})
	return nil
}

func (r *recordingLoader) last() (loadCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return loadCall{}, false
	}
	return r.calls[len(r.calls)-1], true
}

const bookSource = `# Book

Intro text.

## One

First chapter text.

## Two

Second chapter text.
`

func testDoc(t *testing.T, markdown bool, pageLines int) *pages.Document {
	t.Helper()
	src := bookSource
	if !markdown {
		src = "Page one words.\n\nPage two words.\n\nPage three words."
	}
	doc, err := pages.Parse("/docs/book.md", []byte(src), markdown, pageLines)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	return doc
}

func TestHost_Pages(t *testing.T) {
	ctx := context.Background()
	h := NewHost(testDoc(t, false, 1), false)
	loader := &recordingLoader{}
	h.Bind(loader)

	if !h.Position().Equal(document.Page(1)) {
		t.Fatalf("start = %s, want page 1", h.Position())
	}
	if h.PageCount() != 3 {
		t.Fatalf("PageCount() = %d, want 3", h.PageCount())
	}

	if err := h.ShowPage(ctx, 2); err != nil {
		t.Fatalf("ShowPage(2) failed: %v", err)
	}
	if !h.Position().Equal(document.Page(2)) || h.Label() != "p. 2/3" {
		t.Errorf("after ShowPage: %s %q", h.Position(), h.Label())
	}
	if _, ok := loader.last(); ok {
		t.Error("ShowPage should not load text by itself")
	}

	if err := h.ShowPage(ctx, 4); err == nil {
		t.Error("expected error for missing page")
	}

	if err := h.Deliver(ctx, document.Page(3)); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	call, _ := loader.last()
	if !call.pos.Equal(document.Page(3)) || call.text != "Page three words." {
		t.Errorf("loaded %s %q", call.pos, call.text)
	}

	if !h.AtStart(document.Page(1)) || h.AtStart(document.Page(2)) {
		t.Error("AtStart wrong for pages")
	}
}

func TestHost_Chapters(t *testing.T) {
	ctx := context.Background()
	h := NewHost(testDoc(t, true, 40), true)
	loader := &recordingLoader{}
	h.Bind(loader)

	if !h.Position().Equal(document.Location("#book")) {
		t.Fatalf("start = %s", h.Position())
	}
	if !h.AtStart(h.Position()) {
		t.Error("first chapter should be at start")
	}

	moved, err := h.Next(ctx)
	if err != nil || !moved {
		t.Fatalf("Next() = %v, %v", moved, err)
	}
	call, _ := loader.last()
	if !call.pos.Equal(document.Location("#one")) || !strings.Contains(call.text, "First chapter text.") {
		t.Errorf("loaded %s %q", call.pos, call.text)
	}
	if h.Label() != "One (2/3)" {
		t.Errorf("Label() = %q", h.Label())
	}

	if moved, _ := h.Next(ctx); !moved {
		t.Fatal("expected to reach the last chapter")
	}
	if moved, err := h.Next(ctx); moved || err != nil {
		t.Errorf("Next() at end = %v, %v", moved, err)
	}

	if moved, _ := h.Prev(ctx); !moved {
		t.Error("Prev() should move back")
	}
	if !h.Position().Equal(document.Location("#one")) {
		t.Errorf("after Prev: %s", h.Position())
	}
}

func TestHost_Resolve(t *testing.T) {
	h := NewHost(testDoc(t, true, 40), true)

	if got := h.Resolve(document.Page(2)); !got.Equal(document.Location("#book")) {
		t.Errorf("page position in chapter mode resolved to %s", got)
	}
	if got := h.Resolve(document.Location("#two")); !got.Equal(document.Location("#two")) {
		t.Errorf("Resolve(#two) = %s", got)
	}
	if got := h.Resolve(document.Location("#gone")); !got.Equal(document.Location("#book")) {
		t.Errorf("Resolve(#gone) = %s", got)
	}
}

func TestHost_SetDocumentKeepsPosition(t *testing.T) {
	ctx := context.Background()
	h := NewHost(testDoc(t, false, 1), false)
	_ = h.Display(ctx, document.Page(3))

	h.SetDocument(testDoc(t, false, 1))
	if !h.Position().Equal(document.Page(3)) {
		t.Errorf("position = %s, want page 3", h.Position())
	}

	// One page only: page 3 no longer exists.
	h.SetDocument(testDoc(t, false, 100))
	if !h.Position().Equal(document.Page(1)) {
		t.Errorf("position = %s, want page 1", h.Position())
	}
}

func TestHost_Unbound(t *testing.T) {
	h := NewHost(testDoc(t, false, 1), false)
	if err := h.Deliver(context.Background(), document.Page(1)); err == nil {
		t.Error("expected error without a session")
	}
}
