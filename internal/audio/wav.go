package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// Format describes interleaved signed 16-bit little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat is what the speech service produces for raw PCM: 24kHz mono.
var DefaultFormat = Format{SampleRate: 24000, Channels: 1}

// BytesPerSecond returns the PCM data rate.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * 2
}

// Duration returns the play time of n bytes of PCM.
func (f Format) Duration(n int) time.Duration {
	bps := f.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bps)
}

// Silence returns d of digital silence.
func (f Format) Silence(d time.Duration) []byte {
	n := int(d * time.Duration(f.BytesPerSecond()) / time.Second)
	n -= n % (f.Channels * 2)
	return make([]byte, n)
}

// ErrNotWAV is returned by DecodeWAV for data without a RIFF/WAVE header.
var ErrNotWAV = errors.New("not a RIFF/WAVE file")

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// DecodeWAV returns the PCM payload and format of a 16-bit PCM WAV file.
// A data chunk with a streaming placeholder size runs to the end of input.
func DecodeWAV(data []byte) ([]byte, Format, error) {
	if !IsWAV(data) {
		return nil, Format{}, ErrNotWAV
	}

	var (
		format    Format
		haveFmt   bool
		bitsPerSm uint16
	)
	r := bytes.NewReader(data[12:])
	for {
		var hdr struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, Format{}, errors.New("wav has no data chunk")
			}
			return nil, Format{}, fmt.Errorf("failed to read wav chunk: %w", err)
		}

		switch string(hdr.ID[:]) {
		case "fmt ":
			var fc struct {
				AudioFormat   uint16
				Channels      uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if err := binary.Read(r, binary.LittleEndian, &fc); err != nil {
				return nil, Format{}, fmt.Errorf("failed to read wav format: %w", err)
			}
			if fc.AudioFormat != 1 {
				return nil, Format{}, fmt.Errorf("unsupported wav encoding %d", fc.AudioFormat)
			}
			format = Format{SampleRate: int(fc.SampleRate), Channels: int(fc.Channels)}
			bitsPerSm = fc.BitsPerSample
			haveFmt = true
			if extra := int64(hdr.Size) - 16; extra > 0 {
				if _, err := r.Seek(extra+int64(hdr.Size%2), io.SeekCurrent); err != nil {
					return nil, Format{}, err
				}
			}
		case "data":
			if !haveFmt {
				return nil, Format{}, errors.New("wav data before format chunk")
			}
			if bitsPerSm != 16 {
				return nil, Format{}, fmt.Errorf("unsupported wav bit depth %d", bitsPerSm)
			}
			start := len(data) - r.Len()
			end := start + int(hdr.Size)
			if hdr.Size == 0xFFFFFFFF || end > len(data) || end < start {
				end = len(data)
			}
			return data[start:end], format, nil
		default:
			skip := int64(hdr.Size) + int64(hdr.Size%2)
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return nil, Format{}, err
			}
		}
	}
}

// Marker is a labeled cue point in a WAV file.
type Marker struct {
	Offset time.Duration
	Label  string
}

// EncodeWAV writes pcm as a WAV file. Markers are stored as cue points with
// LIST/adtl labels, which media players show as chapters.
func EncodeWAV(w io.Writer, pcm []byte, f Format, markers []Marker) error {
	var cue, list bytes.Buffer
	if len(markers) > 0 {
		le := binary.LittleEndian
		binary.Write(&cue, le, uint32(len(markers)))

		var adtl bytes.Buffer
		adtl.WriteString("adtl")
		for i, m := range markers {
			id := uint32(i + 1)
			sample := uint32(m.Offset * time.Duration(f.SampleRate) / time.Second)
			binary.Write(&cue, le, id)
			binary.Write(&cue, le, sample) // position
			cue.WriteString("data")
			binary.Write(&cue, le, uint32(0)) // chunk start
			binary.Write(&cue, le, uint32(0)) // block start
			binary.Write(&cue, le, sample)    // sample offset

			label := append([]byte(m.Label), 0)
			adtl.WriteString("labl")
			binary.Write(&adtl, le, uint32(4+len(label)))
			binary.Write(&adtl, le, id)
			adtl.Write(label)
			if len(label)%2 == 1 {
				adtl.WriteByte(0)
			}
		}
		list.Write(adtl.Bytes())
	}

	size := 4 + 8 + 16 + 8 + len(pcm) + len(pcm)%2
	if cue.Len() > 0 {
		size += 8 + cue.Len() + 8 + list.Len()
	}

	le := binary.LittleEndian
	var hdr bytes.Buffer
	hdr.WriteString("RIFF")
	binary.Write(&hdr, le, uint32(size))
	hdr.WriteString("WAVE")
	hdr.WriteString("fmt ")
	binary.Write(&hdr, le, uint32(16))
	binary.Write(&hdr, le, uint16(1))
	binary.Write(&hdr, le, uint16(f.Channels))
	binary.Write(&hdr, le, uint32(f.SampleRate))
	binary.Write(&hdr, le, uint32(f.BytesPerSecond()))
	binary.Write(&hdr, le, uint16(f.Channels*2))
	binary.Write(&hdr, le, uint16(16))
	hdr.WriteString("data")
	binary.Write(&hdr, le, uint32(len(pcm)))

	if _, err := w.Write(hdr.Bytes()); err != nil {
		return err
	}
	if _, err := w.Write(pcm); err != nil {
		return err
	}
	if len(pcm)%2 == 1 {
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
	}
	if cue.Len() == 0 {
		return nil
	}

	var tail bytes.Buffer
	tail.WriteString("cue ")
	binary.Write(&tail, le, uint32(cue.Len()))
	tail.Write(cue.Bytes())
	tail.WriteString("LIST")
	binary.Write(&tail, le, uint32(list.Len()))
	tail.Write(list.Bytes())
	_, err := w.Write(tail.Bytes())
	return err
}
