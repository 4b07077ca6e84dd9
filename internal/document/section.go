package document

import "unicode/utf8"

// Section is a unit of a document whose full text can be extracted at once:
// a page of a fixed-layout document or a spine item of a reflowable one.
type Section struct {
	// ID is the section identifier (page number as text, or spine href).
	ID   string
	Text string
}

// Chars returns the number of characters in the section text.
func (s Section) Chars() int {
	return utf8.RuneCountInString(s.Text)
}

// TOCEntry is one entry of a document's table of contents.
type TOCEntry struct {
	Title string
	Href  string
	Level int
}
