package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int // must match the PCM the speech service returns
	Channels   int // 1 = mono, 2 = stereo
	// BufferSize is the device buffer in bytes.
	BufferSize int
}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: DefaultFormat.SampleRate,
		Channels:   DefaultFormat.Channels,
		BufferSize: 4096,
	}
}

// pollInterval is how often Play checks whether the device drained.
const pollInterval = 10 * time.Millisecond

// Player plays one sentence at a time through oto. The oto context is
// created once per process and reused.
type Player struct {
	context *oto.Context
	format  Format

	volume atomic.Uint64 // float64 as millionths

	// Only one sentence is audible; a new Play waits for the previous one.
	playMu sync.Mutex

	logger *log.Logger
}

// NewPlayer opens the audio device.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := ValidatePlayerConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: config.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(config.BufferSize) * time.Second / time.Duration(config.SampleRate*config.Channels*2),
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	p := &Player{
		context: ctx,
		format:  Format{SampleRate: config.SampleRate, Channels: config.Channels},
		logger:  log.WithPrefix("audio"),
	}
	p.SetVolume(1.0)
	return p, nil
}

// ValidatePlayerConfig checks that config describes a device oto can open.
func ValidatePlayerConfig(config PlayerConfig) error {
	switch config.SampleRate {
	case 22050, 24000, 44100, 48000:
	default:
		return fmt.Errorf("sample rate must be 22050, 24000, 44100 or 48000 Hz, got %d", config.SampleRate)
	}

	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}

	if config.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}

	return nil
}

// Play makes audio audible and blocks until it has played or ctx is
// canceled. audio is raw PCM in the player's format or a WAV file with the
// same format.
func (p *Player) Play(ctx context.Context, audio []byte) error {
	pcm, err := p.pcm(audio)
	if err != nil {
		return err
	}

	p.playMu.Lock()
	defer p.playMu.Unlock()

	// oto reads from the slice while playing; it must stay referenced
	// until the player is closed.
	data := make([]byte, len(pcm))
	copy(data, pcm)

	player := p.context.NewPlayer(bytes.NewReader(data))
	defer player.Close()

	player.SetVolume(p.Volume())
	player.Play()
	p.logger.Debug("playing", "duration", p.format.Duration(len(data)))

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
			if !player.IsPlaying() {
				if err := player.Err(); err != nil {
					return fmt.Errorf("audio device error: %w", err)
				}
				return nil
			}
		}
	}
}

// pcm unwraps WAV input and checks it matches the device format.
func (p *Player) pcm(audio []byte) ([]byte, error) {
	if len(audio) == 0 {
		return nil, errors.New("audio data is empty")
	}
	if !IsWAV(audio) {
		return audio, nil
	}

	pcm, f, err := DecodeWAV(audio)
	if err != nil {
		return nil, err
	}
	if f != p.format {
		return nil, fmt.Errorf("audio is %d Hz/%d ch, device is %d Hz/%d ch",
			f.SampleRate, f.Channels, p.format.SampleRate, p.format.Channels)
	}
	return pcm, nil
}

// SetVolume sets the playback volume (0.0 to 1.0) for subsequent sentences.
func (p *Player) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", volume)
	}
	p.volume.Store(uint64(volume * 1000000))
	return nil
}

// Volume returns the current volume.
func (p *Player) Volume() float64 {
	return float64(p.volume.Load()) / 1000000.0
}

// Format returns the device PCM format.
func (p *Player) Format() Format {
	return p.format
}
