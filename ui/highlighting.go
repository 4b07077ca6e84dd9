package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/dgnsrekt/readalong/internal/align"
	"github.com/dgnsrekt/readalong/internal/pages"
)

// layout is a section wrapped to the terminal width. Every non-empty line
// is an alignment node; nodeLine maps nodes back to lines.
type layout struct {
	lines    []string
	heading  []bool
	nodes    []align.Node
	nodeLine []int
}

func layoutBlocks(blocks []pages.Block, width int) layout {
	width = max(width, 20)

	var l layout
	for i, b := range blocks {
		if i > 0 {
			l.lines = append(l.lines, "")
			l.heading = append(l.heading, false)
		}
		for _, line := range strings.Split(wordwrap.String(b.Text, width), "\n") {
			line = strings.TrimRight(line, " ")
			l.nodes = append(l.nodes, align.Node{Text: line, Top: float64(len(l.lines)), Height: 1})
			l.nodeLine = append(l.nodeLine, len(l.lines))
			l.lines = append(l.lines, line)
			l.heading = append(l.heading, b.Heading)
		}
	}
	return l
}

// nodeAt returns the node on line, or -1 for blank lines.
func (l layout) nodeAt(line int) int {
	for i, n := range l.nodeLine {
		if n == line {
			return i
		}
	}
	return -1
}

// highlight locates sentence among the lines near the viewport. It returns
// the line range [first, last] that holds it.
func (l layout) highlight(sentence string, top, height int) (int, int, bool) {
	if sentence == "" || len(l.nodes) == 0 {
		return 0, 0, false
	}
	m, ok := align.Highlight(l.nodes, sentence, align.Viewport{Top: float64(top), Height: float64(height)})
	if !ok {
		return 0, 0, false
	}
	return l.nodeLine[m.Start], l.nodeLine[m.End-1], true
}

// render joins the lines, styling headings and the highlighted range.
func (l layout) render(first, last int, lit bool, hl lipgloss.Style) string {
	var b strings.Builder
	for i, line := range l.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch {
		case lit && i >= first && i <= last && line != "":
			b.WriteString(hl.Render(line))
		case l.heading[i]:
			b.WriteString(headingStyle.Render(line))
		default:
			b.WriteString(line)
		}
	}
	return b.String()
}

var headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#89F0CB"})

func highlightStyle(color string) lipgloss.Style {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(color)).
		Foreground(lipgloss.Color("#1B1B1B"))
}
