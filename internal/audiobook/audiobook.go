// Package audiobook narrates a whole document into one chaptered audio
// file. It drives synthesis directly, section by section, and always
// produces a best-effort result: a canceled run yields the sections
// finished so far.
package audiobook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readalong/internal/document"
	"github.com/dgnsrekt/readalong/internal/segment"
	"github.com/dgnsrekt/readalong/internal/synth"
)

const (
	// DefaultSilence separates consecutive sections.
	DefaultSilence = 750 * time.Millisecond

	// DefaultMaxInputChars is the longest text sent in one synthesis call.
	DefaultMaxInputChars = 4000
)

// ErrNothingToExport is returned when a run produced no audio at all.
var ErrNothingToExport = errors.New("no audio was produced, nothing to export")

// Extractor yields the full text of every section of a document.
type Extractor interface {
	// Sections returns all sections in document order.
	Sections(ctx context.Context) ([]document.Section, error)
	TOC(ctx context.Context) ([]document.TOCEntry, error)
}

// Chunk is one section's audio in the output.
type Chunk struct {
	Audio    []byte
	Title    string
	Start    time.Duration
	Duration time.Duration
}

// Progress reports characters processed out of the document total.
type Progress struct {
	Processed int
	Total     int
	Section   int
	Sections  int
}

// Fraction returns progress in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Processed) / float64(p.Total)
}

// Options configures one run.
type Options struct {
	Title        string
	Voice        string
	Speed        float64
	Model        string
	Instructions string

	Format        ContainerFormat
	Silence       time.Duration
	MaxInputChars int

	// OnProgress is called after each section, on the calling goroutine.
	OnProgress func(Progress)
}

// Result describes a finished run.
type Result struct {
	Chunks   []Chunk
	Partial  bool
	Skipped  int
	Bytes    int64
	Duration time.Duration
}

// Assembler builds audiobooks.
type Assembler struct {
	client   synth.Client
	splitter *segment.Splitter
	runner   Runner
	logger   *log.Logger
}

// NewAssembler returns an assembler synthesizing through client. runner
// executes ffmpeg for the MP3 and M4B containers.
func NewAssembler(client synth.Client, runner Runner) *Assembler {
	return &Assembler{
		client:   client,
		splitter: segment.NewSplitter(),
		runner:   runner,
		logger:   log.WithPrefix("audiobook"),
	}
}

// Build narrates every section of ex and writes the container to w. When
// ctx is canceled the sections completed so far are still written.
func (a *Assembler) Build(ctx context.Context, ex Extractor, w io.Writer, opts Options) (Result, error) {
	opts = withDefaults(opts)

	container, err := a.container(opts.Format)
	if err != nil {
		return Result{}, err
	}

	sections, err := ex.Sections(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to extract sections: %w", err)
	}
	toc, err := ex.TOC(ctx)
	if err != nil {
		a.logger.Warn("table of contents unavailable", "error", err)
	}

	total := 0
	for _, s := range sections {
		total += s.Chars()
	}

	// Work that must survive cancellation of the run.
	keep := context.WithoutCancel(ctx)

	silence, err := container.Silence(keep, opts.Silence)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create silence: %w", err)
	}
	gap, err := container.Duration(keep, silence)
	if err != nil {
		return Result{}, fmt.Errorf("failed to measure silence: %w", err)
	}

	var (
		res       Result
		offset    time.Duration
		processed int
	)

	a.logger.Info("building audiobook", "sections", len(sections), "chars", total, "format", opts.Format)

	for i, section := range sections {
		if ctx.Err() != nil {
			res.Partial = true
			break
		}

		if strings.TrimSpace(section.Text) != "" {
			audio, err := a.narrate(ctx, section.Text, opts, container.Request())
			switch {
			case err == nil:
				d, err := container.Duration(keep, audio)
				if err != nil {
					a.logger.Error("failed to measure section", "section", section.ID, "error", err)
					res.Skipped++
					break
				}
				res.Chunks = append(res.Chunks, Chunk{
					Audio:    audio,
					Title:    ChapterTitle(section.ID, toc, i+1),
					Start:    offset,
					Duration: d,
				})
				offset += d + gap
			case synth.IsAborted(err) && ctx.Err() != nil:
				res.Partial = true
			default:
				a.logger.Error("skipping section", "section", section.ID, "error", err)
				res.Skipped++
			}
			if res.Partial {
				break
			}
		}

		processed += section.Chars()
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Processed: processed, Total: total, Section: i + 1, Sections: len(sections)})
		}
	}

	if len(res.Chunks) == 0 {
		return res, ErrNothingToExport
	}

	last := res.Chunks[len(res.Chunks)-1]
	res.Duration = last.Start + last.Duration

	cw := &countingWriter{w: w}
	book := Book{Title: opts.Title, Chunks: res.Chunks, Silence: silence}
	if err := container.Write(keep, cw, book); err != nil {
		return res, fmt.Errorf("failed to write %s: %w", opts.Format, err)
	}
	res.Bytes = cw.n

	a.logger.Info("audiobook written",
		"chapters", len(res.Chunks),
		"skipped", res.Skipped,
		"partial", res.Partial,
		"bytes", res.Bytes,
	)
	return res, nil
}

// narrate synthesizes text, splitting it at sentence boundaries when it is
// longer than one request allows.
func (a *Assembler) narrate(ctx context.Context, text string, opts Options, format synth.Format) ([]byte, error) {
	var out []byte
	for _, piece := range a.splitter.Chunk(text, opts.MaxInputChars) {
		audio, err := a.client.Synthesize(ctx, synth.Request{
			Text:         piece,
			Voice:        opts.Voice,
			Speed:        opts.Speed,
			Model:        opts.Model,
			Instructions: opts.Instructions,
			Format:       format,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, audio...)
	}
	if len(out) == 0 {
		return nil, synth.ErrEmptyAudio
	}
	return out, nil
}

func withDefaults(opts Options) Options {
	if opts.Format == "" {
		opts.Format = FormatWAV
	}
	if opts.Silence <= 0 {
		opts.Silence = DefaultSilence
	}
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = DefaultMaxInputChars
	}
	return opts
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
