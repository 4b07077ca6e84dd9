// Package synth turns sentences into audio through an OpenAI-compatible
// speech endpoint, with a retry policy, cooperative cancellation and a voice
// catalog with a built-in fallback.
package synth

import (
	"context"
	"errors"
	"fmt"
)

// Format is the audio encoding requested from the speech service.
type Format string

const (
	// FormatMP3 requests MPEG-1 layer III audio.
	FormatMP3 Format = "mp3"
	// FormatPCM requests raw signed 16-bit little-endian mono samples.
	FormatPCM Format = "pcm"
	// FormatWAV requests a RIFF/WAVE file.
	FormatWAV Format = "wav"
)

// Request describes one synthesis call.
type Request struct {
	Text         string
	Voice        string
	Speed        float64
	Model        string
	Instructions string
	Format       Format
}

// Client synthesizes a single request into audio bytes.
type Client interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req Request) ([]byte, error)

// Synthesize calls f.
func (f ClientFunc) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

var (
	// ErrEmptyAudio is returned when the service answers with a zero-length
	// payload. It is permanent and never retried.
	ErrEmptyAudio = errors.New("synthesis returned empty audio")

	// ErrAborted is returned when a call was canceled by its caller. It is
	// not a failure and must not be surfaced to the user.
	ErrAborted = errors.New("synthesis aborted")

	// ErrAudioTooLarge is returned when a response exceeds the size limit.
	// Asking again would fetch the same body, so it is not retried.
	ErrAudioTooLarge = errors.New("audio response too large")
)

// NetworkError is a transport-level failure (connection refused, reset,
// client timeout). It is retried.
type NetworkError struct {
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError is a non-2xx answer from the speech service. It is retried.
type ServerError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("speech service returned status %d", e.Status)
	}
	return fmt.Sprintf("speech service returned status %d: %s", e.Status, e.Body)
}

// IsAborted reports whether err represents a cancellation rather than a
// failure.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled)
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var netErr *NetworkError
	var srvErr *ServerError
	return errors.As(err, &netErr) || errors.As(err, &srvErr)
}

// aborted wraps the context's cause so callers can tell what stopped them.
func aborted(ctx context.Context) error {
	if cause := context.Cause(ctx); cause != nil {
		return fmt.Errorf("%w: %v", ErrAborted, cause)
	}
	return ErrAborted
}
