package playback

import (
	"github.com/dgnsrekt/readalong/internal/document"
)

// Event is delivered on Session.Events.
type Event interface {
	event()
}

// StateChanged reports a state transition.
type StateChanged struct {
	From State
	To   State
}

// SentenceChanged reports that the cursor settled on a sentence. Text is
// the sentence to highlight.
type SentenceChanged struct {
	Cursor document.Cursor
	Text   string
	Total  int
}

// NeedText asks the host to extract and deliver, through LoadText, the text
// at Position.
type NeedText struct {
	Position document.Position
}

// Severity grades a Notice.
type Severity int

const (
	// SeverityWarning is a skipped sentence or similar non-fatal problem.
	SeverityWarning Severity = iota
	// SeverityError is a failure that halted playback.
	SeverityError
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Notice is a dismissible user-facing message.
type Notice struct {
	Err      error
	Severity Severity
}

// Exhausted reports that narration reached the end of the document.
type Exhausted struct {
	Cursor document.Cursor
}

func (StateChanged) event()    {}
func (SentenceChanged) event() {}
func (NeedText) event()        {}
func (Notice) event()          {}
func (Exhausted) event()       {}
