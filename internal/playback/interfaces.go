package playback

import (
	"context"

	"github.com/dgnsrekt/readalong/internal/document"
)

// Player makes audio audible. Play blocks until the audio has finished or
// ctx is canceled, in which case playback stops immediately and Play
// returns ctx's error.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// PlayerFunc adapts a function to the Player interface.
type PlayerFunc func(ctx context.Context, audio []byte) error

// Play calls f.
func (f PlayerFunc) Play(ctx context.Context, audio []byte) error {
	return f(ctx, audio)
}

// Navigator moves through a reflowable document whose locations are
// opaque. After a successful move the host delivers the new section's
// text through LoadText.
type Navigator interface {
	// Next moves to the following section. moved is false at the end.
	Next(ctx context.Context) (moved bool, err error)
	// Prev moves to the previous section. moved is false at the start.
	Prev(ctx context.Context) (moved bool, err error)
	// AtStart reports whether pos is in the first section.
	AtStart(pos document.Position) bool
}

// Pager moves through a fixed-layout document of numbered pages.
type Pager interface {
	PageCount() int
	// ShowPage displays page n (1-based). The host delivers its text
	// through LoadText.
	ShowPage(ctx context.Context, n int) error
}
