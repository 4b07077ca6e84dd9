package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/dgnsrekt/readalong/internal/pages"
)

func TestLayoutBlocks(t *testing.T) {
	blocks := []pages.Block{
		{Text: "Title.", Heading: true},
		{Text: "The quick brown fox jumps over the lazy dog and keeps running far away."},
	}
	l := layoutBlocks(blocks, 30)

	if l.lines[0] != "Title." || !l.heading[0] {
		t.Errorf("first line = %q heading=%v", l.lines[0], l.heading[0])
	}
	if l.lines[1] != "" {
		t.Errorf("expected a blank separator, got %q", l.lines[1])
	}
	if len(l.nodes) < 3 {
		t.Fatalf("expected the paragraph to wrap, got %d nodes", len(l.nodes))
	}
	for i, n := range l.nodes {
		if len(n.Text) > 30 {
			t.Errorf("node %d is wider than the layout: %q", i, n.Text)
		}
		if int(n.Top) != l.nodeLine[i] {
			t.Errorf("node %d top = %v, line = %d", i, n.Top, l.nodeLine[i])
		}
	}

	if l.nodeAt(1) != -1 {
		t.Error("blank line should have no node")
	}
	if l.nodeAt(2) != 1 {
		t.Errorf("nodeAt(2) = %d, want 1", l.nodeAt(2))
	}
}

func TestLayoutHighlight(t *testing.T) {
	blocks := []pages.Block{
		{Text: "First sentence here."},
		{Text: "The quick brown fox jumps over the lazy dog and keeps running far away."},
	}
	l := layoutBlocks(blocks, 30)

	first, last, ok := l.highlight("The quick brown fox jumps over the lazy dog and keeps running far away.", 0, 20)
	if !ok {
		t.Fatal("sentence not found")
	}
	if first != 2 || last != len(l.lines)-1 {
		t.Errorf("highlight = %d..%d, want 2..%d", first, last, len(l.lines)-1)
	}

	if _, _, ok := l.highlight("", 0, 20); ok {
		t.Error("empty sentence should not highlight")
	}
}

func TestLayoutRender(t *testing.T) {
	l := layoutBlocks([]pages.Block{{Text: "One."}, {Text: "Two."}}, 40)
	out := l.render(2, 2, true, lipgloss.NewStyle())

	if got := strings.Split(out, "\n"); len(got) != 3 || got[0] != "One." || got[2] != "Two." {
		t.Errorf("render = %q", out)
	}
}
