package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Env holds settings read only from the environment. Secrets never live in
// the config file.
type Env struct {
	APIKey       string `env:"READALONG_API_KEY"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	Debug        bool   `env:"READALONG_DEBUG" envDefault:"false"`
	Editor       string `env:"EDITOR"`
}

// Key returns the API key to send to the speech service.
func (e Env) Key() string {
	if e.APIKey != "" {
		return e.APIKey
	}
	return e.OpenAIAPIKey
}

// LoadEnv parses Env from the process environment. A .env file in the
// working directory is read first; variables already set win.
func LoadEnv() (Env, error) {
	_ = godotenv.Load()

	e, err := env.ParseAs[Env]()
	if err != nil {
		return Env{}, fmt.Errorf("error parsing environment: %w", err)
	}
	return e, nil
}

// Load reads the configuration from the global viper instance.
func Load() (Config, error) {
	return FromViper(viper.GetViper())
}

// FromViper reads the configuration from v, falling back to defaults for
// unset keys, and validates it.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	str("speech.base_url", &cfg.Speech.BaseURL)
	str("speech.model", &cfg.Speech.Model)
	str("speech.voice", &cfg.Speech.Voice)
	str("speech.instructions", &cfg.Speech.Instructions)
	str("speech.format", &cfg.Speech.Format)
	if v.IsSet("speech.speed") {
		cfg.Speech.Speed = v.GetFloat64("speech.speed")
	}
	if v.IsSet("speech.requests_per_minute") {
		cfg.Speech.RequestsPerMinute = v.GetInt("speech.requests_per_minute")
	}
	if v.IsSet("speech.timeout") {
		cfg.Speech.Timeout = v.GetDuration("speech.timeout")
	}

	str("segmentation.url", &cfg.Segmentation.URL)
	if v.IsSet("segmentation.timeout") {
		cfg.Segmentation.Timeout = v.GetDuration("segmentation.timeout")
	}

	if v.IsSet("retry.max_retries") {
		cfg.Retry.MaxRetries = v.GetInt("retry.max_retries")
	}
	if v.IsSet("retry.initial_delay") {
		cfg.Retry.InitialDelay = v.GetDuration("retry.initial_delay")
	}
	if v.IsSet("retry.max_delay") {
		cfg.Retry.MaxDelay = v.GetDuration("retry.max_delay")
	}
	if v.IsSet("retry.backoff_factor") {
		cfg.Retry.BackoffFactor = v.GetFloat64("retry.backoff_factor")
	}

	if v.IsSet("cache.capacity") {
		cfg.Cache.Capacity = v.GetInt("cache.capacity")
	}

	if v.IsSet("playback.skip_blank") {
		cfg.Playback.SkipBlank = v.GetBool("playback.skip_blank")
	}
	if v.IsSet("playback.page_lines") {
		cfg.Playback.PageLines = v.GetInt("playback.page_lines")
	}
	if v.IsSet("playback.mute") {
		cfg.Playback.Mute = v.GetBool("playback.mute")
	}
	if v.IsSet("playback.volume") {
		cfg.Playback.Volume = v.GetFloat64("playback.volume")
	}
	if v.IsSet("playback.sample_rate") {
		cfg.Playback.SampleRate = v.GetInt("playback.sample_rate")
	}
	if v.IsSet("playback.channels") {
		cfg.Playback.Channels = v.GetInt("playback.channels")
	}
	if v.IsSet("playback.buffer_size") {
		cfg.Playback.BufferSize = v.GetInt("playback.buffer_size")
	}

	str("export.format", &cfg.Export.Format)
	if v.IsSet("export.silence") {
		cfg.Export.Silence = v.GetDuration("export.silence")
	}
	if v.IsSet("export.max_input_chars") {
		cfg.Export.MaxInputChars = v.GetInt("export.max_input_chars")
	}

	str("state_file", &cfg.StateFile)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SetDefaults registers default values in v so they show up in
// v.AllSettings and bound flags have something to fall back to.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("speech.base_url", d.Speech.BaseURL)
	v.SetDefault("speech.model", d.Speech.Model)
	v.SetDefault("speech.voice", d.Speech.Voice)
	v.SetDefault("speech.speed", d.Speech.Speed)
	v.SetDefault("speech.format", d.Speech.Format)
	v.SetDefault("speech.timeout", d.Speech.Timeout.String())

	v.SetDefault("segmentation.timeout", d.Segmentation.Timeout.String())

	v.SetDefault("retry.max_retries", d.Retry.MaxRetries)
	v.SetDefault("retry.initial_delay", d.Retry.InitialDelay.String())
	v.SetDefault("retry.max_delay", d.Retry.MaxDelay.String())
	v.SetDefault("retry.backoff_factor", d.Retry.BackoffFactor)

	v.SetDefault("cache.capacity", d.Cache.Capacity)

	v.SetDefault("playback.skip_blank", d.Playback.SkipBlank)
	v.SetDefault("playback.page_lines", d.Playback.PageLines)
	v.SetDefault("playback.volume", d.Playback.Volume)
	v.SetDefault("playback.sample_rate", d.Playback.SampleRate)
	v.SetDefault("playback.channels", d.Playback.Channels)
	v.SetDefault("playback.buffer_size", d.Playback.BufferSize)

	v.SetDefault("export.format", d.Export.Format)
	v.SetDefault("export.silence", d.Export.Silence.String())
	v.SetDefault("export.max_input_chars", d.Export.MaxInputChars)
}
