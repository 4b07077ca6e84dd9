package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/dgnsrekt/readalong/internal/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(defaultConfig)); err != nil {
		t.Fatalf("default config does not parse: %v", err)
	}

	got, err := config.FromViper(v)
	if err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}

	want := config.DefaultConfig()
	if got.Speech != want.Speech || got.Retry != want.Retry || got.Playback != want.Playback || got.Export != want.Export {
		t.Errorf("default config file differs from built-in defaults:\n got %+v\nwant %+v", got, want)
	}
}

func TestEnsureConfigFile(t *testing.T) {
	old := configFile
	t.Cleanup(func() { configFile = old })

	configFile = filepath.Join(t.TempDir(), "nested", "readalong.yml")
	if err := ensureConfigFile(); err != nil {
		t.Fatalf("ensureConfigFile() failed: %v", err)
	}
	b, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != defaultConfig {
		t.Error("config file does not hold the default config")
	}

	configFile = filepath.Join(t.TempDir(), "readalong.toml")
	if err := ensureConfigFile(); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestFilterVoices(t *testing.T) {
	voices := []string{"alloy", "echo", "nova", "shimmer"}

	if got := filterVoices(voices, ""); len(got) != 4 {
		t.Errorf("empty filter = %v", got)
	}
	if got := filterVoices(voices, "shm"); len(got) != 1 || got[0] != "shimmer" {
		t.Errorf("filter shm = %v", got)
	}
	if got := filterVoices(voices, "xyz"); len(got) != 0 {
		t.Errorf("filter xyz = %v", got)
	}
}

func TestPrintVoices(t *testing.T) {
	var buf bytes.Buffer
	if err := printVoices(&buf, []string{"alloy", "nova"}, "nova"); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[0] != "  alloy" || !strings.HasPrefix(lines[1], "* ") {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	_ = printVoices(&buf, nil, "nova")
	if !strings.Contains(buf.String(), "No matching voices") {
		t.Errorf("output = %q", buf.String())
	}
}
