package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# Speech service (OpenAI-compatible /audio/speech endpoint).
# The API key is read from READALONG_API_KEY or OPENAI_API_KEY.
speech:
  base_url: "https://api.openai.com/v1"
  model: "gpt-4o-mini-tts"
  voice: "alloy"
  # 0.25 to 4
  speed: 1.0
  # instructions: "Read calmly, like an audiobook narrator."
  # pcm or wav
  format: "pcm"
  # 0 disables throttling
  requests_per_minute: 0
  timeout: "60s"

# Sentence segmentation service. Leave url empty for the built-in splitter.
segmentation:
  url: ""
  timeout: "30s"

# Retries for failed synthesis requests.
retry:
  max_retries: 2
  initial_delay: "500ms"
  max_delay: "5s"
  backoff_factor: 2.0

# Number of synthesized sentences kept in memory.
cache:
  capacity: 50

playback:
  # skip pages or chapters without text
  skip_blank: true
  # wrapped lines per page for text files
  page_lines: 40
  # do not open the audio device
  mute: false
  volume: 1.0
  sample_rate: 24000
  channels: 1
  buffer_size: 4096

export:
  # wav, mp3 or m4b (mp3 and m4b need ffmpeg)
  format: "m4b"
  # pause between chapters
  silence: "750ms"
  # longest text sent in one request
  max_input_chars: 4000

# Where reading positions are stored (default: user data dir).
# state_file: "~/.local/share/readalong/positions.json"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the readalong config file",
	Long:    paragraph(fmt.Sprintf("\n%s the readalong config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("readalong config\nreadalong config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("readalong", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
