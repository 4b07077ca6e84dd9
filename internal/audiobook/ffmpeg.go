package audiobook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/readalong/internal/audio"
	"github.com/dgnsrekt/readalong/internal/synth"
)

// Runner executes an external tool and returns its standard output.
type Runner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}

// Exec runs tools as subprocesses.
type Exec struct {
	// Timeout bounds each run when ctx has no deadline.
	Timeout time.Duration
}

// Run implements Runner. Stdin is wired before the process starts.
func (e Exec) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok && e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s timed out", name)
		}
		return nil, fmt.Errorf("%s cancelled: %w", name, ctx.Err())
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s failed: %w\nstderr: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// CheckTools reports whether ffmpeg and ffprobe are installed.
func CheckTools() error {
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("%s not found in PATH: %w", tool, err)
		}
	}
	return nil
}

// mp3Container concatenates MP3 frames. MP3 has no chapter support, so
// titles are dropped.
type mp3Container struct {
	runner Runner
	format audio.Format
}

func (c *mp3Container) Request() synth.Format { return synth.FormatMP3 }

func (c *mp3Container) Duration(ctx context.Context, data []byte) (time.Duration, error) {
	out, err := c.runner.Run(ctx, data, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"-i", "pipe:0",
	)
	if err != nil {
		return 0, err
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe duration %q: %w", out, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func (c *mp3Container) Silence(ctx context.Context, d time.Duration) ([]byte, error) {
	layout := "mono"
	if c.format.Channels == 2 {
		layout = "stereo"
	}
	return c.runner.Run(ctx, nil, "ffmpeg",
		"-v", "error",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=%s", c.format.SampleRate, layout),
		"-t", strconv.FormatFloat(d.Seconds(), 'f', 3, 64),
		"-c:a", "libmp3lame", "-b:a", "64k",
		"-f", "mp3", "pipe:1",
	)
}

func (c *mp3Container) Write(_ context.Context, w io.Writer, book Book) error {
	for i, chunk := range book.Chunks {
		if i > 0 {
			if _, err := w.Write(book.Silence); err != nil {
				return err
			}
		}
		if _, err := w.Write(chunk.Audio); err != nil {
			return err
		}
	}
	return nil
}

// m4bContainer re-encodes the MP3 pieces to AAC in an MP4 container with a
// chapter per chunk.
type m4bContainer struct {
	mp3Container
}

func (c *m4bContainer) Write(ctx context.Context, w io.Writer, book Book) error {
	dir, err := os.MkdirTemp("", "readalong-m4b-")
	if err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	silence := filepath.Join(dir, "silence.mp3")
	if err := os.WriteFile(silence, book.Silence, 0o600); err != nil {
		return err
	}

	var list strings.Builder
	for i, chunk := range book.Chunks {
		name := filepath.Join(dir, fmt.Sprintf("%04d.mp3", i))
		if err := os.WriteFile(name, chunk.Audio, 0o600); err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintf(&list, "file '%s'\n", silence)
		}
		fmt.Fprintf(&list, "file '%s'\n", name)
	}

	listFile := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(listFile, []byte(list.String()), 0o600); err != nil {
		return err
	}
	metaFile := filepath.Join(dir, "chapters.txt")
	if err := os.WriteFile(metaFile, []byte(ffmetadata(book)), 0o600); err != nil {
		return err
	}

	out := filepath.Join(dir, "book.m4b")
	if _, err := c.runner.Run(ctx, nil, "ffmpeg",
		"-v", "error", "-y",
		"-f", "concat", "-safe", "0", "-i", listFile,
		"-i", metaFile,
		"-map", "0:a", "-map_metadata", "1", "-map_chapters", "1",
		"-c:a", "aac", "-b:a", "64k",
		"-f", "mp4", out,
	); err != nil {
		return err
	}

	f, err := os.Open(out)
	if err != nil {
		return fmt.Errorf("ffmpeg produced no output: %w", err)
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}

// ffmetadata renders chapters in ffmpeg's FFMETADATA1 format.
func ffmetadata(book Book) string {
	var b strings.Builder
	b.WriteString(";FFMETADATA1\n")
	if book.Title != "" {
		fmt.Fprintf(&b, "title=%s\n", escapeMeta(book.Title))
	}
	for _, c := range book.Chunks {
		b.WriteString("[CHAPTER]\nTIMEBASE=1/1000\n")
		fmt.Fprintf(&b, "START=%d\n", c.Start.Milliseconds())
		fmt.Fprintf(&b, "END=%d\n", (c.Start + c.Duration).Milliseconds())
		fmt.Fprintf(&b, "title=%s\n", escapeMeta(c.Title))
	}
	return b.String()
}

var metaEscaper = strings.NewReplacer(
	`\`, `\\`,
	`=`, `\=`,
	`;`, `\;`,
	`#`, `\#`,
	"\n", "\\\n",
)

func escapeMeta(s string) string {
	return metaEscaper.Replace(s)
}
