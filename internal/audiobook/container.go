package audiobook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dgnsrekt/readalong/internal/audio"
	"github.com/dgnsrekt/readalong/internal/synth"
)

// ContainerFormat is an output file type.
type ContainerFormat string

const (
	// FormatWAV is PCM WAV with cue-point chapter labels. It needs no
	// external tools.
	FormatWAV ContainerFormat = "wav"
	// FormatMP3 is plain concatenated MP3 frames without chapters.
	FormatMP3 ContainerFormat = "mp3"
	// FormatM4B is an AAC audiobook with chapter metadata, built by
	// ffmpeg.
	FormatM4B ContainerFormat = "m4b"
)

// ParseFormat parses a container name, case-insensitively.
func ParseFormat(s string) (ContainerFormat, error) {
	switch f := ContainerFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatWAV, FormatMP3, FormatM4B:
		return f, nil
	default:
		return "", fmt.Errorf("unknown audiobook format %q (want wav, mp3 or m4b)", s)
	}
}

// Ext returns the file extension including the dot.
func (f ContainerFormat) Ext() string {
	return "." + string(f)
}

// Book is what a container writes.
type Book struct {
	Title   string
	Chunks  []Chunk
	Silence []byte
}

// Container encodes chunks into one file.
type Container interface {
	// Request is the synthesis format the container consumes.
	Request() synth.Format
	Duration(ctx context.Context, audio []byte) (time.Duration, error)
	Silence(ctx context.Context, d time.Duration) ([]byte, error)
	Write(ctx context.Context, w io.Writer, book Book) error
}

func (a *Assembler) container(f ContainerFormat) (Container, error) {
	switch f {
	case FormatWAV:
		return wavContainer{format: audio.DefaultFormat}, nil
	case FormatMP3:
		return &mp3Container{runner: a.runner, format: audio.DefaultFormat}, nil
	case FormatM4B:
		return &m4bContainer{mp3Container{runner: a.runner, format: audio.DefaultFormat}}, nil
	default:
		return nil, fmt.Errorf("unknown audiobook format %q", f)
	}
}

// wavContainer joins raw PCM and labels each chunk start with a cue point.
type wavContainer struct {
	format audio.Format
}

func (c wavContainer) Request() synth.Format { return synth.FormatPCM }

func (c wavContainer) pcm(data []byte) []byte {
	if audio.IsWAV(data) {
		if pcm, _, err := audio.DecodeWAV(data); err == nil {
			return pcm
		}
	}
	return data
}

func (c wavContainer) Duration(_ context.Context, data []byte) (time.Duration, error) {
	return c.format.Duration(len(c.pcm(data))), nil
}

func (c wavContainer) Silence(_ context.Context, d time.Duration) ([]byte, error) {
	return c.format.Silence(d), nil
}

func (c wavContainer) Write(_ context.Context, w io.Writer, book Book) error {
	var pcm bytes.Buffer
	markers := make([]audio.Marker, 0, len(book.Chunks))
	for i, chunk := range book.Chunks {
		if i > 0 {
			pcm.Write(book.Silence)
		}
		markers = append(markers, audio.Marker{
			Offset: c.format.Duration(pcm.Len()),
			Label:  chunk.Title,
		})
		data := c.pcm(chunk.Audio)
		// Keep samples frame aligned.
		if frame := c.format.Channels * 2; len(data)%frame != 0 {
			data = data[:len(data)-len(data)%frame]
		}
		pcm.Write(data)
	}
	return audio.EncodeWAV(w, pcm.Bytes(), c.format, markers)
}
