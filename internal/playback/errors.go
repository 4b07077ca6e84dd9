package playback

import "errors"

var (
	// ErrClosed is returned by operations on a session whose loop exited.
	ErrClosed = errors.New("playback session closed")

	// ErrNoText is returned when playback is requested before any text or
	// position was provided.
	ErrNoText = errors.New("no text loaded")

	// ErrInvalidIndex is returned by Seek for an index outside the
	// current sentence list.
	ErrInvalidIndex = errors.New("sentence index out of range")

	// ErrAwaitingText is returned by Seek while the session waits for the
	// text of the section it navigated to.
	ErrAwaitingText = errors.New("waiting for the next section's text")

	// ErrInvalidSpeed is returned by SetSpeed outside MinSpeed..MaxSpeed.
	ErrInvalidSpeed = errors.New("speed out of range")

	// ErrNoNarratableContent is noticed when the end of the document is
	// reached after skipping only blank sections.
	ErrNoNarratableContent = errors.New("no narratable content until the end of the document")

	// ErrBlankSection is noticed when active playback lands on a section
	// with no sentences and blank skipping is off.
	ErrBlankSection = errors.New("section has no sentences")

	// ErrNoNavigator is returned when the document needs a navigator or
	// pager that was not configured.
	ErrNoNavigator = errors.New("no navigator configured for this document kind")
)
