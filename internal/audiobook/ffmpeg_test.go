package audiobook

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/readalong/internal/document"
	"github.com/dgnsrekt/readalong/internal/synth"
)

// fakeRunner stands in for ffmpeg and ffprobe.
type fakeRunner struct {
	calls    []string
	metadata string
	list     string
}

func (f *fakeRunner) Run(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, name)
	switch name {
	case "ffprobe":
		// One second per 10 bytes.
		return []byte(fmt.Sprintf("%d.000000\n", len(stdin)/10)), nil
	case "ffmpeg":
		if containsArg(args, "lavfi") {
			return []byte("SIL"), nil
		}
		for i, a := range args {
			if a == "-i" && strings.HasSuffix(args[i+1], "chapters.txt") {
				data, _ := os.ReadFile(args[i+1])
				f.metadata = string(data)
			}
			if a == "-i" && strings.HasSuffix(args[i+1], "list.txt") {
				data, _ := os.ReadFile(args[i+1])
				f.list = string(data)
			}
		}
		out := args[len(args)-1]
		return nil, os.WriteFile(out, []byte("M4B"), 0o600)
	}
	return nil, nil
}

func containsArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

type mp3Client struct{}

func (mp3Client) Synthesize(_ context.Context, req synth.Request) ([]byte, error) {
	if req.Format != synth.FormatMP3 {
		return nil, &synth.ServerError{Status: 400, Body: "wrong format"}
	}
	return bytes.Repeat([]byte("x"), 20), nil
}

func TestBuild_MP3Concatenates(t *testing.T) {
	runner := &fakeRunner{}
	a := NewAssembler(mp3Client{}, runner)
	ex := &fakeExtractor{sections: []document.Section{
		{ID: "1", Text: "One."},
		{ID: "2", Text: "Two."},
	}}

	var out bytes.Buffer
	res, err := a.Build(context.Background(), ex, &out, Options{Format: FormatMP3})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := strings.Repeat("x", 20) + "SIL" + strings.Repeat("x", 20)
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
	if res.Chunks[0].Duration != 2*time.Second {
		t.Errorf("duration = %v, want 2s from ffprobe", res.Chunks[0].Duration)
	}
	if res.Chunks[1].Start != res.Chunks[0].Duration {
		// "SIL" is 3 bytes, which the fake measures as 0s.
		t.Errorf("second chunk starts at %v", res.Chunks[1].Start)
	}
}

func TestBuild_M4BChapters(t *testing.T) {
	runner := &fakeRunner{}
	a := NewAssembler(mp3Client{}, runner)
	ex := &fakeExtractor{
		sections: []document.Section{{ID: "a", Text: "One."}, {ID: "b", Text: "Two."}},
		toc:      []document.TOCEntry{{Title: "First; part", Href: "a"}, {Title: "Second", Href: "b"}},
	}

	var out bytes.Buffer
	if _, err := a.Build(context.Background(), ex, &out, Options{Format: FormatM4B, Title: "Book"}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if out.String() != "M4B" {
		t.Errorf("output = %q, want ffmpeg's file", out.String())
	}
	for _, want := range []string{";FFMETADATA1", "title=Book", "START=0\nEND=2000", `title=First\; part`, "START=2000\nEND=4000", "title=Second"} {
		if !strings.Contains(runner.metadata, want) {
			t.Errorf("metadata missing %q:\n%s", want, runner.metadata)
		}
	}
	if strings.Count(runner.list, "file ") != 3 {
		t.Errorf("concat list should hold two chunks and one silence:\n%s", runner.list)
	}
}
