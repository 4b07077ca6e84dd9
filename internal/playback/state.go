package playback

// State is the narration state of a Session.
type State int

const (
	// StateIdle means nothing is loaded or playback was stopped.
	StateIdle State = iota
	// StatePlaying means the current sentence is audible.
	StatePlaying
	// StatePaused means playback is halted at the cursor.
	StatePaused
	// StateProcessing means playback is active but waiting for synthesis,
	// segmentation or navigation before the next sentence can be heard.
	StateProcessing
	// StateExhausted means the end of the document was reached.
	StateExhausted
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateProcessing:
		return "processing"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Active reports whether the reader wants to hear narration.
func (s State) Active() bool {
	return s == StatePlaying || s == StateProcessing
}
