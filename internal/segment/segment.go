// Package segment turns blocks of document text into ordered sentence lists,
// either through the remote segmentation service or with the local
// rule-based splitter.
package segment

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyText is returned by strict callers that refuse blank input. The
// segmenters themselves return an empty list for blank text.
var ErrEmptyText = errors.New("empty text provided")

// Segmenter splits text into sentences.
type Segmenter interface {
	Segment(ctx context.Context, text string) ([]string, error)
}

// Func adapts a plain function to the Segmenter interface.
type Func func(ctx context.Context, text string) ([]string, error)

// Segment calls f.
func (f Func) Segment(ctx context.Context, text string) ([]string, error) {
	return f(ctx, text)
}

// Error reports a failed segmentation. Playback does not advance into the
// affected section while it stands.
type Error struct {
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("segmentation failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsSegmentationError reports whether err is, or wraps, an *Error.
func IsSegmentationError(err error) bool {
	var segErr *Error
	return errors.As(err, &segErr)
}
