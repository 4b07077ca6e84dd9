package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

func TestFormat_Duration(t *testing.T) {
	f := Format{SampleRate: 24000, Channels: 1}

	if got := f.Duration(48000); got != time.Second {
		t.Errorf("Duration = %v, want 1s", got)
	}
	if got := len(f.Silence(500 * time.Millisecond)); got != 24000 {
		t.Errorf("Silence length = %d, want 24000", got)
	}

	stereo := Format{SampleRate: 44100, Channels: 2}
	if got := len(stereo.Silence(time.Millisecond)); got%4 != 0 {
		t.Errorf("stereo silence length %d is not frame aligned", got)
	}
}

func TestWAV_RoundTrip(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	f := Format{SampleRate: 24000, Channels: 1}

	var buf bytes.Buffer
	if err := EncodeWAV(&buf, pcm, f, nil); err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	data := buf.Bytes()
	if !IsWAV(data) {
		t.Fatal("output is not a WAV file")
	}
	if riff := binary.LittleEndian.Uint32(data[4:8]); int(riff) != len(data)-8 {
		t.Errorf("RIFF size = %d, want %d", riff, len(data)-8)
	}

	got, gotFormat, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if !bytes.Equal(got, pcm) {
		t.Errorf("pcm = %v, want %v", got, pcm)
	}
	if gotFormat != f {
		t.Errorf("format = %+v, want %+v", gotFormat, f)
	}
}

func TestWAV_Markers(t *testing.T) {
	f := Format{SampleRate: 8000, Channels: 1}
	pcm := make([]byte, 16000)
	markers := []Marker{
		{Offset: 0, Label: "Chapter 1"},
		{Offset: 500 * time.Millisecond, Label: "Two"},
	}

	var buf bytes.Buffer
	if err := EncodeWAV(&buf, pcm, f, markers); err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	data := buf.Bytes()

	if riff := binary.LittleEndian.Uint32(data[4:8]); int(riff) != len(data)-8 {
		t.Errorf("RIFF size = %d, want %d", riff, len(data)-8)
	}

	cue := bytes.Index(data, []byte("cue "))
	if cue < 0 {
		t.Fatal("no cue chunk")
	}
	if n := binary.LittleEndian.Uint32(data[cue+8:]); n != 2 {
		t.Errorf("cue points = %d, want 2", n)
	}
	// Second cue point: id, position.
	second := cue + 12 + 24
	if pos := binary.LittleEndian.Uint32(data[second+4:]); pos != 4000 {
		t.Errorf("second cue position = %d samples, want 4000", pos)
	}

	for _, label := range []string{"Chapter 1\x00", "Two\x00"} {
		if !bytes.Contains(data, []byte(label)) {
			t.Errorf("label %q missing", label)
		}
	}

	// Markers must not disturb decoding.
	got, _, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if len(got) != len(pcm) {
		t.Errorf("decoded %d bytes, want %d", len(got), len(pcm))
	}
}

func TestDecodeWAV_Errors(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("not audio at all")); err != ErrNotWAV {
		t.Errorf("DecodeWAV = %v, want ErrNotWAV", err)
	}

	truncated := []byte("RIFF\x00\x00\x00\x00WAVE")
	if _, _, err := DecodeWAV(truncated); err == nil {
		t.Error("expected error for WAV without data chunk")
	}
}

func TestDecodeWAV_StreamingSize(t *testing.T) {
	var buf bytes.Buffer
	EncodeWAV(&buf, []byte{1, 2, 3, 4}, DefaultFormat, nil)
	data := buf.Bytes()

	// Streaming encoders write 0xFFFFFFFF as the data size.
	dataAt := bytes.Index(data, []byte("data"))
	binary.LittleEndian.PutUint32(data[dataAt+4:], 0xFFFFFFFF)

	got, _, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("decoded %d bytes, want 4", len(got))
	}
}
