package audiobook

import (
	"fmt"
	"path"
	"strings"

	"github.com/dgnsrekt/readalong/internal/document"
)

// ChapterTitle names section id (the n-th section, 1-based) from the table
// of contents: an exact href match wins, then a match ignoring fragments
// and directories or by prefix, else a numbered placeholder.
func ChapterTitle(id string, toc []document.TOCEntry, n int) string {
	for _, e := range toc {
		if e.Href == id && e.Title != "" {
			return e.Title
		}
	}

	base := stripFragment(id)
	if base != "" {
		for _, e := range toc {
			href := stripFragment(e.Href)
			if href == "" || e.Title == "" {
				continue
			}
			if href == base || path.Base(href) == path.Base(base) ||
				strings.HasPrefix(href, base) || strings.HasPrefix(base, href) {
				return e.Title
			}
		}
	}

	return fmt.Sprintf("Unknown Section — %d", n)
}

func stripFragment(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i]
	}
	return href
}
