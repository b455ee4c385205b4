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

const defaultConfig = `# Pacing between and after lines
sequencer:
  pacing_pause: "600ms"
  # how long a finished intro, tour or scouting script stays on screen
  auto_close_delay: "2500ms"
  # how long the quota notice stays up before the panel closes
  notice_delay: "3s"
  ready_line: "Ready for your next request."
  quota_notice: "The guide needs a short break. Try again in a minute."

# Amplitude and viseme sampling while speech plays
playback:
  frame_interval: "16ms"
  analysis_window: 1024
  volume: 1.0

# Typed reveal used when speech is unavailable
fallback:
  reveal_interval: "35ms"
  tick_interval: "80ms"
  tick_volume: 0.3
  ticks: true

# Audio output: auto, oto, or mock
audio:
  device: "auto"
  sample_rate: 24000
  buffer_size: "50ms"

# Dialogue and speech backend: mock or http
service:
  kind: "mock"
  # endpoint: "https://guide.example.com/v1"
  # api_key: ""
  voice: "guide"
  requests_per_minute: 60

# Offline backend used when service.kind is mock
mock:
  generation_delay: "400ms"
  words_per_minute: 170
  failure_rate: 0.0
  quota_after: 0
  sample_rate: 24000

# Synthesized speech cache
cache:
  enabled: true
  # dir defaults to the user cache directory
  memory_capacity: 33554432
  disk_capacity: 268435456
  compression_level: 3
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the narrator config file",
	Long:    paragraph(fmt.Sprintf("\n%s the narrator config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("narrator config\nnarrator config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Narrator", configFile)
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
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}
		if err := os.WriteFile(configFile, []byte(defaultConfig), 0o600); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
