package segment

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Splitter is the local rule-based sentence splitter. It is used when no
// segmentation service is configured and by the audiobook assembler to cut
// long sections below the synthesis input limit.
type Splitter struct {
	// MinLength drops fragments shorter than this many characters.
	MinLength int

	abbreviations map[string]bool
}

// NewSplitter creates a splitter with the default abbreviation table.
func NewSplitter() *Splitter {
	return &Splitter{
		MinLength:     1,
		abbreviations: makeAbbreviationMap(),
	}
}

// Segment implements Segmenter. It never fails.
func (s *Splitter) Segment(_ context.Context, text string) ([]string, error) {
	return s.Split(text), nil
}

// Split returns the sentences of text with whitespace collapsed.
func (s *Splitter) Split(text string) []string {
	plain := strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
	if plain == "" {
		return []string{}
	}

	runes := []rune(plain)
	sentences := make([]string, 0, 8)
	lastStart := 0

	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}

		punctEnd := i + 1
		for punctEnd < len(runes) && (runes[punctEnd] == '!' || runes[punctEnd] == '?' || runes[punctEnd] == '.') {
			punctEnd++
		}
		for punctEnd < len(runes) && isCloser(runes[punctEnd]) {
			punctEnd++
		}

		if !s.isSentenceEnd(runes, i, punctEnd) {
			i = punctEnd - 1
			continue
		}

		sentences = s.appendSentence(sentences, string(runes[lastStart:punctEnd]))
		for punctEnd < len(runes) && unicode.IsSpace(runes[punctEnd]) {
			punctEnd++
		}
		lastStart = punctEnd
		i = punctEnd - 1
	}

	if lastStart < len(runes) {
		sentences = s.appendSentence(sentences, string(runes[lastStart:]))
	}

	return sentences
}

func (s *Splitter) appendSentence(sentences []string, text string) []string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < s.MinLength {
		return sentences
	}
	return append(sentences, text)
}

// isSentenceEnd decides whether the punctuation run starting at pos and
// ending before end closes a sentence.
func (s *Splitter) isSentenceEnd(runes []rune, pos, end int) bool {
	punct := runes[pos]

	if end >= len(runes) {
		return true
	}
	// Punctuation glued to the next word ("3.14", "example.com").
	if !unicode.IsSpace(runes[end]) {
		return false
	}

	if punct == '.' && end == pos+1 {
		start := pos - 1
		for start >= 0 && !unicode.IsSpace(runes[start]) {
			start--
		}
		word := strings.ToLower(string(runes[start+1 : pos]))
		word = strings.TrimLeft(word, "\"'([")
		if s.abbreviations[word] {
			return false
		}
		// Multi-part abbreviations like "U.S." or "Ph.D.".
		if strings.Count(word, ".") >= 1 && utf8.RuneCountInString(word) <= 5 {
			return false
		}
		// Initials such as "J. R. R. Tolkien".
		if utf8.RuneCountInString(word) == 1 && unicode.IsUpper([]rune(word)[0]) {
			return false
		}
	}

	next := end
	for next < len(runes) && unicode.IsSpace(runes[next]) {
		next++
	}
	if next >= len(runes) {
		return true
	}

	r := runes[next]
	if unicode.IsUpper(r) || unicode.IsDigit(r) || isOpener(r) {
		return true
	}

	// Exclamation and question marks are trusted even before lowercase.
	return punct == '!' || punct == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}

func isOpener(r rune) bool {
	switch r {
	case '"', '\'', '(', '[', '“', '‘':
		return true
	}
	return false
}

// Chunk groups sentences into pieces of at most maxChars characters. A single
// sentence longer than maxChars is cut at word boundaries.
func (s *Splitter) Chunk(text string, maxChars int) []string {
	sentences := s.Split(text)
	if maxChars <= 0 {
		return sentences
	}

	var (
		chunks  []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}
	}

	for _, sentence := range sentences {
		for _, piece := range cutWords(sentence, maxChars) {
			n := utf8.RuneCountInString(piece)
			if size > 0 && size+1+n > maxChars {
				flush()
			}
			if size > 0 {
				current.WriteByte(' ')
				size++
			}
			current.WriteString(piece)
			size += n
		}
	}
	flush()

	return chunks
}

// cutWords splits text into pieces of at most maxChars characters on word
// boundaries. Words longer than maxChars are hard-cut.
func cutWords(text string, maxChars int) []string {
	if utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	var (
		pieces  []string
		current []rune
	)
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > maxChars {
			if len(current) > 0 {
				pieces = append(pieces, string(current))
				current = current[:0]
			}
			pieces = append(pieces, string(w[:maxChars]))
			w = w[maxChars:]
		}
		if len(current) > 0 && len(current)+1+len(w) > maxChars {
			pieces = append(pieces, string(current))
			current = current[:0]
		}
		if len(current) > 0 {
			current = append(current, ' ')
		}
		current = append(current, w...)
	}
	if len(current) > 0 {
		pieces = append(pieces, string(current))
	}
	return pieces
}

func makeAbbreviationMap() map[string]bool {
	abbrevs := []string{
		"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st", "mt",
		"llc", "inc", "ltd", "co", "corp",
		"etc", "vs", "cf", "al", "approx", "fig", "vol", "pp",
		"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
		"rd", "ave", "blvd",
	}

	m := make(map[string]bool, len(abbrevs))
	for _, abbrev := range abbrevs {
		m[abbrev] = true
	}
	return m
}
