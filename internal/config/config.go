// Package config holds the typed readalong configuration: speech service,
// segmentation, retry, cache, playback and export settings.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/dgnsrekt/readalong/internal/audio"
	"github.com/dgnsrekt/readalong/internal/audiobook"
	"github.com/dgnsrekt/readalong/internal/cache"
	"github.com/dgnsrekt/readalong/internal/playback"
	"github.com/dgnsrekt/readalong/internal/segment"
	"github.com/dgnsrekt/readalong/internal/synth"
)

// Config contains all readalong configuration options.
type Config struct {
	Speech       SpeechConfig       `yaml:"speech"`
	Segmentation SegmentationConfig `yaml:"segmentation"`
	Retry        RetryConfig        `yaml:"retry"`
	Cache        CacheConfig        `yaml:"cache"`
	Playback     PlaybackConfig     `yaml:"playback"`
	Export       ExportConfig       `yaml:"export"`

	// StateFile stores the last read position of each document.
	StateFile string `yaml:"state_file"`
}

// SpeechConfig configures the OpenAI-compatible speech service.
type SpeechConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Model             string        `yaml:"model"`
	Voice             string        `yaml:"voice"`
	Speed             float64       `yaml:"speed"`
	Instructions      string        `yaml:"instructions"`
	Format            string        `yaml:"format"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
}

// SegmentationConfig configures the sentence segmentation service. An
// empty URL selects the built-in splitter.
type SegmentationConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// RetryConfig mirrors synth.RetryPolicy.
type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

// CacheConfig bounds the in-memory audio cache.
type CacheConfig struct {
	Capacity int `yaml:"capacity"`
}

// PlaybackConfig contains reader settings.
type PlaybackConfig struct {
	SkipBlank  bool    `yaml:"skip_blank"`
	PageLines  int     `yaml:"page_lines"`
	Mute       bool    `yaml:"mute"`
	Volume     float64 `yaml:"volume"`
	SampleRate int     `yaml:"sample_rate"`
	Channels   int     `yaml:"channels"`
	BufferSize int     `yaml:"buffer_size"`
}

// ExportConfig contains audiobook export settings.
type ExportConfig struct {
	Format        string        `yaml:"format"`
	Silence       time.Duration `yaml:"silence"`
	MaxInputChars int           `yaml:"max_input_chars"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	policy := synth.DefaultRetryPolicy()
	player := audio.DefaultPlayerConfig()

	return Config{
		Speech: SpeechConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini-tts",
			Voice:   "alloy",
			Speed:   1.0,
			Format:  string(synth.FormatPCM),
			Timeout: 60 * time.Second,
		},
		Segmentation: SegmentationConfig{
			Timeout: 30 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries:    policy.MaxRetries,
			InitialDelay:  policy.InitialDelay,
			MaxDelay:      policy.MaxDelay,
			BackoffFactor: policy.BackoffFactor,
		},
		Cache: CacheConfig{
			Capacity: cache.DefaultCapacity,
		},
		Playback: PlaybackConfig{
			SkipBlank:  true,
			PageLines:  40,
			Volume:     1.0,
			SampleRate: player.SampleRate,
			Channels:   player.Channels,
			BufferSize: player.BufferSize,
		},
		Export: ExportConfig{
			Format:        string(audiobook.FormatM4B),
			Silence:       audiobook.DefaultSilence,
			MaxInputChars: audiobook.DefaultMaxInputChars,
		},
	}
}

// Validate checks if the configuration is valid and normalizes case and
// paths in place.
func (c *Config) Validate() error {
	if err := c.Speech.Validate(); err != nil {
		return fmt.Errorf("speech config: %w", err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry config: %w", err)
	}
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("cache capacity must be positive, got %d", c.Cache.Capacity)
	}
	if err := c.Playback.Validate(); err != nil {
		return fmt.Errorf("playback config: %w", err)
	}
	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export config: %w", err)
	}

	if c.StateFile != "" {
		p, err := homedir.Expand(c.StateFile)
		if err != nil {
			return fmt.Errorf("state file: %w", err)
		}
		c.StateFile = p
	}
	return nil
}

// Validate checks the speech settings.
func (c *SpeechConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}
	if c.Voice == "" {
		return fmt.Errorf("voice cannot be empty")
	}
	if c.Speed < playback.MinSpeed || c.Speed > playback.MaxSpeed {
		return fmt.Errorf("speed must be between %.2f and %.2f, got %f", playback.MinSpeed, playback.MaxSpeed, c.Speed)
	}

	// The reader plays raw samples; mp3 is only useful for export.
	switch f := synth.Format(strings.ToLower(c.Format)); f {
	case synth.FormatPCM, synth.FormatWAV:
		c.Format = string(f)
	default:
		return fmt.Errorf("invalid format '%s': must be pcm or wav", c.Format)
	}

	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute cannot be negative, got %d", c.RequestsPerMinute)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	return nil
}

// Validate checks the retry settings.
func (c *RetryConfig) Validate() error {
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("max_retries must be between 0 and 10, got %d", c.MaxRetries)
	}
	if c.InitialDelay < 0 || c.MaxDelay < 0 {
		return fmt.Errorf("delays cannot be negative")
	}
	if c.MaxDelay > 0 && c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("max_delay %v is shorter than initial_delay %v", c.MaxDelay, c.InitialDelay)
	}
	if c.BackoffFactor < 1 {
		return fmt.Errorf("backoff_factor must be at least 1, got %f", c.BackoffFactor)
	}
	return nil
}

// Validate checks the playback settings.
func (c *PlaybackConfig) Validate() error {
	if c.PageLines < 5 {
		return fmt.Errorf("page_lines must be at least 5, got %d", c.PageLines)
	}
	if c.Volume < 0.0 || c.Volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", c.Volume)
	}
	if c.Mute {
		return nil
	}
	return audio.ValidatePlayerConfig(c.PlayerConfig())
}

// Validate checks the export settings.
func (c *ExportConfig) Validate() error {
	f, err := audiobook.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	c.Format = string(f)

	if c.Silence < 0 {
		return fmt.Errorf("silence cannot be negative, got %v", c.Silence)
	}
	if c.MaxInputChars < 100 {
		return fmt.Errorf("max_input_chars must be at least 100, got %d", c.MaxInputChars)
	}
	return nil
}

// HTTPConfig converts the speech settings into a synth client config.
func (c *Config) HTTPConfig(env Env) synth.HTTPConfig {
	return synth.HTTPConfig{
		BaseURL:           c.Speech.BaseURL,
		APIKey:            env.Key(),
		RequestsPerMinute: c.Speech.RequestsPerMinute,
		Timeout:           c.Speech.Timeout,
	}
}

// RemoteConfig converts the segmentation settings. ok is false when no
// service is configured.
func (c *Config) RemoteConfig() (segment.RemoteConfig, bool) {
	if c.Segmentation.URL == "" {
		return segment.RemoteConfig{}, false
	}
	return segment.RemoteConfig{
		URL:     c.Segmentation.URL,
		Timeout: c.Segmentation.Timeout,
	}, true
}

// RetryPolicy converts the retry settings.
func (c *Config) RetryPolicy() synth.RetryPolicy {
	return synth.RetryPolicy{
		MaxRetries:    c.Retry.MaxRetries,
		InitialDelay:  c.Retry.InitialDelay,
		MaxDelay:      c.Retry.MaxDelay,
		BackoffFactor: c.Retry.BackoffFactor,
	}
}

// Params returns the initial speech parameters for a reading session.
func (c *Config) Params() cache.Params {
	return cache.Params{
		Voice:        c.Speech.Voice,
		Speed:        c.Speech.Speed,
		Model:        c.Speech.Model,
		Instructions: c.Speech.Instructions,
		Format:       synth.Format(c.Speech.Format),
	}
}

// PlayerConfig returns the audio device settings.
func (c *PlaybackConfig) PlayerConfig() audio.PlayerConfig {
	return audio.PlayerConfig{
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
		BufferSize: c.BufferSize,
	}
}

// ExportOptions returns audiobook options for a document titled title.
func (c *Config) ExportOptions(title string) audiobook.Options {
	return audiobook.Options{
		Title:         title,
		Voice:         c.Speech.Voice,
		Speed:         c.Speech.Speed,
		Model:         c.Speech.Model,
		Instructions:  c.Speech.Instructions,
		Format:        audiobook.ContainerFormat(c.Export.Format),
		Silence:       c.Export.Silence,
		MaxInputChars: c.Export.MaxInputChars,
	}
}
