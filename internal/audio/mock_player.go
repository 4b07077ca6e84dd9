package audio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// MockPlayer simulates playback without a sound device. It waits for the
// time the audio would take to play, scaled by DelayFactor, so narration
// advances at a realistic pace in mute mode and in tests.
type MockPlayer struct {
	format Format

	// DelayFactor scales simulated durations; 0 finishes immediately.
	DelayFactor float64

	callbacks MockCallbacks

	mu     sync.Mutex
	last   []byte
	failOn func([]byte) error

	playCount   atomic.Int64
	cancelCount atomic.Int64
	playing     atomic.Bool
}

// MockCallbacks provides hooks for testing.
type MockCallbacks struct {
	OnPlay   func(audio []byte)
	OnCancel func()
	OnFinish func()
}

// NewMockPlayer returns a mock playing in real time.
func NewMockPlayer(format Format) *MockPlayer {
	return &MockPlayer{format: format, DelayFactor: 1.0}
}

// SetCallbacks installs test hooks.
func (m *MockPlayer) SetCallbacks(cb MockCallbacks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = cb
}

// FailWith makes Play return the error fn reports for a given buffer.
func (m *MockPlayer) FailWith(fn func([]byte) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn = fn
}

// Play implements the blocking player contract.
func (m *MockPlayer) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return errors.New("audio data is empty")
	}

	m.mu.Lock()
	m.last = audio
	cb := m.callbacks
	failOn := m.failOn
	m.mu.Unlock()

	m.playCount.Add(1)
	if cb.OnPlay != nil {
		cb.OnPlay(audio)
	}
	if failOn != nil {
		if err := failOn(audio); err != nil {
			return err
		}
	}

	pcm := audio
	if IsWAV(audio) {
		if data, _, err := DecodeWAV(audio); err == nil {
			pcm = data
		}
	}
	d := time.Duration(float64(m.format.Duration(len(pcm))) * m.DelayFactor)

	m.playing.Store(true)
	defer m.playing.Store(false)

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		m.cancelCount.Add(1)
		if cb.OnCancel != nil {
			cb.OnCancel()
		}
		return ctx.Err()
	case <-timer.C:
		if cb.OnFinish != nil {
			cb.OnFinish()
		}
		return nil
	}
}

// IsPlaying reports whether a Play call is in progress.
func (m *MockPlayer) IsPlaying() bool { return m.playing.Load() }

// PlayCount returns the number of Play calls.
func (m *MockPlayer) PlayCount() int64 { return m.playCount.Load() }

// CancelCount returns the number of Play calls cut short by cancellation.
func (m *MockPlayer) CancelCount() int64 { return m.cancelCount.Load() }

// LastPlayed returns the most recent audio.
func (m *MockPlayer) LastPlayed() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
