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

const defaultConfig = `# storyreel configuration. Secrets (ELEVENLABS_API_KEY, OPENAI_API_KEY,
# SUPABASE_SERVICE_KEY, STORYREEL_DATABASE_URL) are read from the environment
# or a .env file, never from here.

# scratch space for runs (default: system temp dir)
work_dir: ""
debug: false

synth:
  # elevenlabs, openai or mock
  provider: "elevenlabs"
  voice_id: "21m00Tcm4TlvDq8ikWAM"
  model_id: "eleven_turbo_v2"
  stability: 1.0
  similarity: 1.0
  requests_per_minute: 30
  timeout: "60s"

cache:
  enabled: true
  # dir: "~/.cache/storyreel/clips"
  # disk size in MB
  max_size: 512
  ttl: "168h"

narration:
  # seconds of silence between title and body
  gap: 0.5

media:
  ffmpeg: "ffmpeg"
  timeout: "10m"
  background_video: "background_video.mp4"
  # cue_sound: "whoosh.mp3"
  cue_volume: 0.3
  title_seconds: 4
  subtitle:
    font_file: "Bangers-Regular.ttf"
    font_size: 60
    font_color: "0xFAE54D"
    border_width: 4
    border_color: "black"

titlecard:
  # browser (headless Chrome) or static
  renderer: "browser"
  # template: "~/storyreel/card.html"
  # image: "~/storyreel/card.png"
  width: 400
  height: 300
  crop_top: 0
  crop_bottom: 0
  timeout: "30s"

storage:
  # supabase or local
  provider: "local"
  # url: "https://<project>.supabase.co"
  bucket: "videos"
  dir: "output"
  timeout: "5m"

server:
  addr: ":9000"
  # upload limit in MB
  max_upload: 200
  request_timeout: "15m"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the storyreel config file",
	Long:    paragraph(fmt.Sprintf("\n%s the storyreel config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("storyreel config\nstoryreel config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil
	},
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("storyreel", configFile)
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
