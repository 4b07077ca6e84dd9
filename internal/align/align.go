// Package align maps on-screen text nodes to sentences. It drives
// click-to-seek (which sentence did the reader point at) and read-along
// highlighting (which nodes hold the sentence being spoken).
package align

import (
	"math"
	"strings"
)

const (
	// MaxWindow is the largest number of consecutive nodes joined into one
	// candidate.
	MaxWindow = 10

	// ClickContext is the number of nodes taken on each side of a clicked
	// node when resolving it to a sentence.
	ClickContext = 3

	// CloseThreshold applies when candidate and target lengths differ by
	// less than CloseLengthRatio of the target length.
	CloseThreshold = 0.3
	// FarThreshold applies to larger length mismatches.
	FarThreshold = 0.5
	// CloseLengthRatio separates close from far length matches.
	CloseLengthRatio = 0.3
)

// Node is one rendered run of text.
type Node struct {
	Text string
	// Top and Height are in the host's vertical units (rows, pixels).
	Top    float64
	Height float64
}

// Viewport is the visible vertical band.
type Viewport struct {
	Top    float64
	Height float64
}

// Match is the best window found for a target. Nodes [Start, End) form the
// window.
type Match struct {
	Start int
	End   int
	Score float64
}

// Len returns the number of nodes in the window.
func (m Match) Len() int { return m.End - m.Start }

// Covers reports whether node i is inside the window.
func (m Match) Covers(i int) bool { return i >= m.Start && i < m.End }

// Best slides windows of 1 to MaxWindow nodes over nodes and returns the
// highest scoring one for target. Ties keep the window found first, i.e.
// the smallest start and then the smallest size. The bool is false when no
// window clears its threshold.
func Best(nodes []Node, target string) (Match, bool) {
	t := normalize(target)
	lt := len([]rune(t))
	if lt == 0 || len(nodes) == 0 {
		return Match{}, false
	}
	tb := bigrams(t)

	best := Match{Score: -1}
	var bestLC int
	for start := range nodes {
		var sb strings.Builder
		for end := start; end < len(nodes) && end-start < MaxWindow; end++ {
			if end > start {
				sb.WriteByte(' ')
			}
			sb.WriteString(nodes[end].Text)

			c := normalize(sb.String())
			lc := len([]rune(c))
			score := adjusted(dice(bigrams(c), tb, c == t), lc, lt)
			if score > best.Score {
				best = Match{Start: start, End: end + 1, Score: score}
				bestLC = lc
			}
		}
	}

	if best.Score < threshold(bestLC, lt) {
		return best, false
	}
	return best, true
}

// Highlight finds the nodes holding sentence. Nodes within one screen height
// of the viewport are searched first; the full list is searched only when
// that band has no confident match.
func Highlight(nodes []Node, sentence string, vp Viewport) (Match, bool) {
	lo, hi := band(nodes, vp)
	if lo < hi && (lo > 0 || hi < len(nodes)) {
		if m, ok := Best(nodes[lo:hi], sentence); ok {
			m.Start += lo
			m.End += lo
			return m, true
		}
	}
	return Best(nodes, sentence)
}

// SentenceAt resolves a click on nodes[clicked] to a sentence index. The
// clicked node and ClickContext neighbours on each side are matched against
// every sentence; the best scoring sentence whose window contains the
// clicked node wins.
func SentenceAt(nodes []Node, clicked int, sentences []string) (int, bool) {
	if clicked < 0 || clicked >= len(nodes) {
		return -1, false
	}

	lo := max(0, clicked-ClickContext)
	hi := min(len(nodes), clicked+ClickContext+1)
	window := nodes[lo:hi]
	at := clicked - lo

	found, bestScore := -1, -1.0
	for i, s := range sentences {
		m, ok := Best(window, s)
		if !ok || !m.Covers(at) {
			continue
		}
		if m.Score > bestScore {
			found, bestScore = i, m.Score
		}
	}
	return found, found >= 0
}

// band returns the index range of nodes lying within one screen height
// above or below the viewport.
func band(nodes []Node, vp Viewport) (int, int) {
	top := vp.Top - vp.Height
	bottom := vp.Top + 2*vp.Height

	lo, hi := -1, -1
	for i, n := range nodes {
		if n.Top+n.Height < top || n.Top > bottom {
			continue
		}
		if lo < 0 {
			lo = i
		}
		hi = i + 1
	}
	if lo < 0 {
		return 0, 0
	}
	return lo, hi
}

func adjusted(sim float64, lc, lt int) float64 {
	diff := math.Abs(float64(lc - lt))
	return sim * (1 - 0.5*diff/float64(lt))
}

func threshold(lc, lt int) float64 {
	if math.Abs(float64(lc-lt)) < CloseLengthRatio*float64(lt) {
		return CloseThreshold
	}
	return FarThreshold
}
