package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMockPlayer_PlaysForAudioDuration(t *testing.T) {
	m := NewMockPlayer(Format{SampleRate: 1000, Channels: 1})

	start := time.Now()
	// 100 bytes = 50 samples = 50ms
	if err := m.Play(context.Background(), make([]byte, 100)); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Play returned after %v, want about 50ms", elapsed)
	}
	if m.PlayCount() != 1 {
		t.Errorf("PlayCount = %d, want 1", m.PlayCount())
	}
}

func TestMockPlayer_Cancel(t *testing.T) {
	m := NewMockPlayer(Format{SampleRate: 1000, Channels: 1})

	canceled := make(chan struct{})
	m.SetCallbacks(MockCallbacks{OnCancel: func() { close(canceled) }})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Play(ctx, make([]byte, 20000)) // 10s
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Play = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Play did not return after cancel")
	}
	<-canceled
	if m.CancelCount() != 1 {
		t.Errorf("CancelCount = %d, want 1", m.CancelCount())
	}
}

func TestMockPlayer_Failure(t *testing.T) {
	m := NewMockPlayer(DefaultFormat)
	m.DelayFactor = 0

	boom := errors.New("device lost")
	m.FailWith(func(b []byte) error { return boom })

	if err := m.Play(context.Background(), []byte{1, 2}); !errors.Is(err, boom) {
		t.Errorf("Play = %v, want %v", err, boom)
	}
	if err := m.Play(context.Background(), nil); err == nil {
		t.Error("expected error for empty audio")
	}
}

func TestValidateConfig(t *testing.T) {
	if err := ValidatePlayerConfig(DefaultPlayerConfig()); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	bad := []PlayerConfig{
		{SampleRate: 16000, Channels: 1, BufferSize: 1},
		{SampleRate: 24000, Channels: 3, BufferSize: 1},
		{SampleRate: 24000, Channels: 1, BufferSize: 0},
	}
	for _, c := range bad {
		if err := ValidatePlayerConfig(c); err == nil {
			t.Errorf("ValidatePlayerConfig(%+v) = nil, want error", c)
		}
	}
}
