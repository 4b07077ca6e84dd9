package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/dgnsrekt/readalong/internal/synth"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
	if cfg.Speech.Voice != "alloy" {
		t.Errorf("Default voice should be alloy, got %s", cfg.Speech.Voice)
	}
	if cfg.Cache.Capacity != 50 {
		t.Errorf("Default cache capacity should be 50, got %d", cfg.Cache.Capacity)
	}
	if !cfg.Playback.SkipBlank {
		t.Error("Blank sections should be skipped by default")
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:    "speed too low",
			modify:  func(c *Config) { c.Speech.Speed = 0.1 },
			wantErr: true,
			errMsg:  "speed must be between",
		},
		{
			name:    "speed too high",
			modify:  func(c *Config) { c.Speech.Speed = 4.5 },
			wantErr: true,
			errMsg:  "speed must be between",
		},
		{
			name:   "speed at limits",
			modify: func(c *Config) { c.Speech.Speed = 4.0 },
		},
		{
			name:    "mp3 cannot be played",
			modify:  func(c *Config) { c.Speech.Format = "mp3" },
			wantErr: true,
			errMsg:  "must be pcm or wav",
		},
		{
			name:    "empty voice",
			modify:  func(c *Config) { c.Speech.Voice = "" },
			wantErr: true,
			errMsg:  "voice cannot be empty",
		},
		{
			name:    "zero cache",
			modify:  func(c *Config) { c.Cache.Capacity = 0 },
			wantErr: true,
			errMsg:  "cache capacity",
		},
		{
			name:    "backoff below one",
			modify:  func(c *Config) { c.Retry.BackoffFactor = 0.5 },
			wantErr: true,
			errMsg:  "backoff_factor",
		},
		{
			name:    "max delay below initial",
			modify:  func(c *Config) { c.Retry.MaxDelay = time.Millisecond },
			wantErr: true,
			errMsg:  "max_delay",
		},
		{
			name:    "unsupported sample rate",
			modify:  func(c *Config) { c.Playback.SampleRate = 12345 },
			wantErr: true,
			errMsg:  "sample rate",
		},
		{
			name: "mute ignores device settings",
			modify: func(c *Config) {
				c.Playback.Mute = true
				c.Playback.SampleRate = 12345
			},
		},
		{
			name:    "unknown export format",
			modify:  func(c *Config) { c.Export.Format = "ogg" },
			wantErr: true,
			errMsg:  "export config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestConfigValidation_NormalizesCase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Speech.Format = "WAV"
	cfg.Export.Format = "MP3"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if cfg.Speech.Format != "wav" || cfg.Export.Format != "mp3" {
		t.Errorf("formats not normalized: %q %q", cfg.Speech.Format, cfg.Export.Format)
	}
}

func TestFromViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("speech.voice", "nova")
	v.Set("speech.speed", 1.5)
	v.Set("retry.max_retries", 4)
	v.Set("retry.initial_delay", "250ms")
	v.Set("segmentation.url", "http://localhost:3003/api/nlp")
	v.Set("export.silence", "1s")

	cfg, err := FromViper(v)
	if err != nil {
		t.Fatalf("FromViper() failed: %v", err)
	}

	if cfg.Speech.Voice != "nova" || cfg.Speech.Speed != 1.5 {
		t.Errorf("speech = %+v", cfg.Speech)
	}

	policy := cfg.RetryPolicy()
	if policy.MaxRetries != 4 || policy.InitialDelay != 250*time.Millisecond {
		t.Errorf("policy = %+v", policy)
	}

	remote, ok := cfg.RemoteConfig()
	if !ok || remote.URL != "http://localhost:3003/api/nlp" {
		t.Errorf("RemoteConfig() = %+v, %v", remote, ok)
	}

	if opts := cfg.ExportOptions("Book"); opts.Silence != time.Second || opts.Voice != "nova" {
		t.Errorf("ExportOptions() = %+v", opts)
	}

	params := cfg.Params()
	if params.Voice != "nova" || params.Format != synth.FormatPCM {
		t.Errorf("Params() = %+v", params)
	}
}

func TestFromViper_Invalid(t *testing.T) {
	v := viper.New()
	v.Set("speech.speed", 9)

	if _, err := FromViper(v); err == nil {
		t.Error("expected error for out of range speed")
	}
}

func TestRemoteConfig_Unset(t *testing.T) {
	cfg := DefaultConfig()
	if _, ok := cfg.RemoteConfig(); ok {
		t.Error("no segmentation URL should select the local splitter")
	}
}

func TestEnv(t *testing.T) {
	t.Setenv("READALONG_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")
	t.Setenv("READALONG_DEBUG", "true")

	e, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv() failed: %v", err)
	}
	if e.Key() != "sk-fallback" {
		t.Errorf("Key() = %q, want fallback key", e.Key())
	}
	if !e.Debug {
		t.Error("Debug should be set")
	}

	t.Setenv("READALONG_API_KEY", "sk-own")
	e, _ = LoadEnv()
	if e.Key() != "sk-own" {
		t.Errorf("Key() = %q, want own key", e.Key())
	}

	cfg := DefaultConfig()
	if got := cfg.HTTPConfig(e).APIKey; got != "sk-own" {
		t.Errorf("HTTPConfig().APIKey = %q", got)
	}
}

func TestEnv_DotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("READALONG_API_KEY=sk-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// Registered for restore, then removed so the file can supply it.
	t.Setenv("READALONG_API_KEY", "")
	_ = os.Unsetenv("READALONG_API_KEY")

	e, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv() failed: %v", err)
	}
	if e.Key() != "sk-dotenv" {
		t.Errorf("Key() = %q, want key from .env", e.Key())
	}

	t.Setenv("READALONG_API_KEY", "sk-env")
	e, _ = LoadEnv()
	if e.Key() != "sk-env" {
		t.Errorf("Key() = %q, environment should win over .env", e.Key())
	}
}
