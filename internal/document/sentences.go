package document

// SentenceList is an ordered, immutable list of sentences scoped to a single
// position. Indices are meaningless across positions.
type SentenceList struct {
	items []string
}

// NewSentenceList copies sentences into a new list.
func NewSentenceList(sentences []string) SentenceList {
	items := make([]string, len(sentences))
	copy(items, sentences)
	return SentenceList{items: items}
}

// Len returns the number of sentences.
func (l SentenceList) Len() int { return len(l.items) }

// At returns the sentence at i. It panics if i is out of range.
func (l SentenceList) At(i int) string { return l.items[i] }

// Valid reports whether i addresses a sentence.
func (l SentenceList) Valid(i int) bool { return i >= 0 && i < len(l.items) }

// Slice returns a copy of the sentences.
func (l SentenceList) Slice() []string {
	out := make([]string, len(l.items))
	copy(out, l.items)
	return out
}

// Cursor points at a sentence within the current position. Index may equal
// the list length only transiently, while the engine is advancing.
type Cursor struct {
	Position Position
	Index    int
}

// Direction is the step used by Advance.
type Direction int

const (
	// Backward moves one sentence towards the start of the document.
	Backward Direction = -1
	// Forward moves one sentence towards the end of the document.
	Forward Direction = 1
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	if d < 0 {
		return "backward"
	}
	return "forward"
}
