package audiobook

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/readalong/internal/audio"
	"github.com/dgnsrekt/readalong/internal/document"
	"github.com/dgnsrekt/readalong/internal/synth"
)

type fakeExtractor struct {
	sections []document.Section
	toc      []document.TOCEntry
	tocErr   error
}

func (f *fakeExtractor) Sections(context.Context) ([]document.Section, error) {
	return f.sections, nil
}

func (f *fakeExtractor) TOC(context.Context) ([]document.TOCEntry, error) {
	return f.toc, f.tocErr
}

func numbered(n int) *fakeExtractor {
	ex := &fakeExtractor{}
	for i := 1; i <= n; i++ {
		ex.sections = append(ex.sections, document.Section{
			ID:   "ch" + string(rune('0'+i)) + ".xhtml",
			Text: "Section " + string(rune('0'+i)) + ".",
		})
	}
	return ex
}

// pcmClient returns 100 bytes of PCM filled with the section's digit.
type pcmClient struct {
	mu    sync.Mutex
	texts []string
	fail  map[string]error
}

func (c *pcmClient) Synthesize(ctx context.Context, req synth.Request) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, synth.ErrAborted
	}
	c.mu.Lock()
	c.texts = append(c.texts, req.Text)
	err := c.fail[req.Text]
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return bytes.Repeat([]byte{req.Text[len(req.Text)-2]}, 100), nil
}

func (c *pcmClient) Texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

func decode(t *testing.T, data []byte) []byte {
	t.Helper()
	pcm, _, err := audio.DecodeWAV(data)
	if err != nil {
		t.Fatalf("output is not a WAV file: %v", err)
	}
	return pcm
}

func TestBuild_FullRun(t *testing.T) {
	ex := numbered(3)
	ex.toc = []document.TOCEntry{
		{Title: "Opening", Href: "ch1.xhtml"},
		{Title: "Middle", Href: "ch2.xhtml#start"},
	}
	client := &pcmClient{}
	a := NewAssembler(client, nil)

	var progress []Progress
	var out bytes.Buffer
	res, err := a.Build(context.Background(), ex, &out, Options{
		Silence:    time.Millisecond,
		OnProgress: func(p Progress) { progress = append(progress, p) },
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if res.Partial || len(res.Chunks) != 3 {
		t.Fatalf("result = %d chunks, partial %v", len(res.Chunks), res.Partial)
	}

	wantTitles := []string{"Opening", "Middle", "Unknown Section — 3"}
	for i, c := range res.Chunks {
		if c.Title != wantTitles[i] {
			t.Errorf("chunk %d title = %q, want %q", i, c.Title, wantTitles[i])
		}
		if i > 0 && c.Start < res.Chunks[i-1].Start+res.Chunks[i-1].Duration {
			t.Errorf("chunk %d starts at %v, before previous ends", i, c.Start)
		}
	}

	if len(progress) != 3 {
		t.Fatalf("progress reports = %d, want 3", len(progress))
	}
	last := progress[2]
	if last.Processed != last.Total || last.Fraction() != 1 {
		t.Errorf("final progress = %+v", last)
	}

	silence := audio.DefaultFormat.Silence(time.Millisecond)
	pcm := decode(t, out.Bytes())
	if want := 3*100 + 2*len(silence); len(pcm) != want {
		t.Errorf("pcm length = %d, want %d", len(pcm), want)
	}
	if res.Bytes != int64(out.Len()) {
		t.Errorf("Bytes = %d, written %d", res.Bytes, out.Len())
	}
}

func TestBuild_CanceledAfterTwoOfFive(t *testing.T) {
	ex := numbered(5)
	client := &pcmClient{}
	a := NewAssembler(client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	res, err := a.Build(ctx, ex, &out, Options{
		Silence: 10 * time.Millisecond,
		OnProgress: func(p Progress) {
			if p.Section == 2 {
				cancel()
			}
		},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !res.Partial {
		t.Error("result should be partial")
	}
	if len(res.Chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(res.Chunks))
	}

	silence := audio.DefaultFormat.Silence(10 * time.Millisecond)
	pcm := decode(t, out.Bytes())
	if want := 2*100 + len(silence); len(pcm) != want {
		t.Fatalf("pcm length = %d, want %d", len(pcm), want)
	}
	if pcm[0] != '1' || pcm[len(pcm)-1] != '2' {
		t.Errorf("output does not hold sections 1 and 2")
	}
	if n := len(client.Texts()); n != 2 {
		t.Errorf("synthesis calls = %d, want 2", n)
	}
}

func TestBuild_NothingToExport(t *testing.T) {
	ex := numbered(2)
	client := &pcmClient{fail: map[string]error{
		"Section 1.": &synth.ServerError{Status: 500},
		"Section 2.": synth.ErrEmptyAudio,
	}}
	a := NewAssembler(client, nil)

	var out bytes.Buffer
	_, err := a.Build(context.Background(), ex, &out, Options{})
	if !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("Build = %v, want ErrNothingToExport", err)
	}
	if out.Len() != 0 {
		t.Errorf("wrote %d bytes for an empty book", out.Len())
	}

	blank := &fakeExtractor{sections: []document.Section{{ID: "1", Text: "  \n"}}}
	if _, err := a.Build(context.Background(), blank, &out, Options{}); !errors.Is(err, ErrNothingToExport) {
		t.Errorf("blank document: %v, want ErrNothingToExport", err)
	}
}

func TestBuild_FailedSectionIsSkipped(t *testing.T) {
	ex := numbered(3)
	ex.tocErr = errors.New("no toc")
	client := &pcmClient{fail: map[string]error{"Section 2.": &synth.ServerError{Status: 502}}}
	a := NewAssembler(client, nil)

	var out bytes.Buffer
	res, err := a.Build(context.Background(), ex, &out, Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(res.Chunks) != 2 || res.Skipped != 1 {
		t.Errorf("chunks = %d skipped = %d, want 2 and 1", len(res.Chunks), res.Skipped)
	}
	if res.Chunks[1].Title != "Unknown Section — 3" {
		t.Errorf("title = %q, keeps section number", res.Chunks[1].Title)
	}
}

func TestBuild_LongSectionIsSplit(t *testing.T) {
	text := strings.Repeat("This sentence is here. ", 10)
	ex := &fakeExtractor{sections: []document.Section{{ID: "long", Text: text}}}
	client := &pcmClient{}
	a := NewAssembler(client, nil)

	var out bytes.Buffer
	if _, err := a.Build(context.Background(), ex, &out, Options{MaxInputChars: 50}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	texts := client.Texts()
	if len(texts) < 2 {
		t.Fatalf("calls = %d, want the section split", len(texts))
	}
	for _, s := range texts {
		if len([]rune(s)) > 50 {
			t.Errorf("piece of %d chars exceeds limit", len([]rune(s)))
		}
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"wav", "MP3", " m4b "} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseFormat("ogg"); err == nil {
		t.Error("expected error for ogg")
	}
}
