// Package config holds the single configuration object handed to every
// pipeline stage. Settings come from defaults, the yaml config file,
// STORYREEL_* environment variables and flags (through viper); secrets come
// only from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the whole storyreel configuration.
type Config struct {
	WorkDir string `mapstructure:"work_dir"`
	Debug   bool   `mapstructure:"debug"`

	Synth     SynthConfig     `mapstructure:"synth"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Narration NarrationConfig `mapstructure:"narration"`
	Media     MediaConfig     `mapstructure:"media"`
	TitleCard TitleCardConfig `mapstructure:"titlecard"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Server    ServerConfig    `mapstructure:"server"`

	Secrets Secrets `mapstructure:"-"`
}

// SynthConfig selects and tunes the speech synthesis provider.
type SynthConfig struct {
	Provider          string        `mapstructure:"provider"` // elevenlabs, openai or mock
	VoiceID           string        `mapstructure:"voice_id"`
	ModelID           string        `mapstructure:"model_id"`
	Stability         float64       `mapstructure:"stability"`
	Similarity        float64       `mapstructure:"similarity"`
	BaseURL           string        `mapstructure:"base_url"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// CacheConfig controls the synthesized clip cache.
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Dir       string        `mapstructure:"dir"`
	MaxSizeMB int           `mapstructure:"max_size"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// NarrationConfig controls how clips are stitched.
type NarrationConfig struct {
	Gap float64 `mapstructure:"gap"`
}

// MediaConfig configures the ffmpeg composition stages.
type MediaConfig struct {
	FFmpeg          string        `mapstructure:"ffmpeg"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BackgroundVideo string        `mapstructure:"background_video"`
	CueSound        string        `mapstructure:"cue_sound"`
	CueVolume       float64       `mapstructure:"cue_volume"`
	TitleSeconds    float64       `mapstructure:"title_seconds"`
	Subtitle        SubtitleStyle `mapstructure:"subtitle"`
}

// SubtitleStyle is the drawtext styling used for burned-in words.
type SubtitleStyle struct {
	FontFile    string `mapstructure:"font_file"`
	FontSize    int    `mapstructure:"font_size"`
	FontColor   string `mapstructure:"font_color"`
	BorderWidth int    `mapstructure:"border_width"`
	BorderColor string `mapstructure:"border_color"`
}

// TitleCardConfig configures title card rendering.
type TitleCardConfig struct {
	Renderer   string        `mapstructure:"renderer"` // browser or static
	Template   string        `mapstructure:"template"`
	Image      string        `mapstructure:"image"`
	Width      int           `mapstructure:"width"`
	Height     int           `mapstructure:"height"`
	CropTop    int           `mapstructure:"crop_top"`
	CropBottom int           `mapstructure:"crop_bottom"`
	ChromePath string        `mapstructure:"chrome_path"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// StorageConfig selects where finished videos are published.
type StorageConfig struct {
	Provider string        `mapstructure:"provider"` // supabase or local
	URL      string        `mapstructure:"url"`
	Bucket   string        `mapstructure:"bucket"`
	Dir      string        `mapstructure:"dir"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	MaxUploadMB    int64         `mapstructure:"max_upload"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Secrets are never read from the config file.
type Secrets struct {
	ElevenLabsAPIKey string `env:"ELEVENLABS_API_KEY"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	SupabaseKey      string `env:"SUPABASE_SERVICE_KEY"`
	DatabaseURL      string `env:"STORYREEL_DATABASE_URL"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("work_dir", "")
	v.SetDefault("debug", false)

	v.SetDefault("synth.provider", "elevenlabs")
	v.SetDefault("synth.voice_id", "21m00Tcm4TlvDq8ikWAM")
	v.SetDefault("synth.model_id", "eleven_turbo_v2")
	v.SetDefault("synth.stability", 1.0)
	v.SetDefault("synth.similarity", 1.0)
	v.SetDefault("synth.base_url", "https://api.elevenlabs.io")
	v.SetDefault("synth.requests_per_minute", 30)
	v.SetDefault("synth.timeout", "60s")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.max_size", 512)
	v.SetDefault("cache.ttl", "168h")

	v.SetDefault("narration.gap", 0.5)

	v.SetDefault("media.ffmpeg", "ffmpeg")
	v.SetDefault("media.timeout", "10m")
	v.SetDefault("media.background_video", "background_video.mp4")
	v.SetDefault("media.cue_sound", "")
	v.SetDefault("media.cue_volume", 0.3)
	v.SetDefault("media.title_seconds", 4.0)
	v.SetDefault("media.subtitle.font_file", "Bangers-Regular.ttf")
	v.SetDefault("media.subtitle.font_size", 60)
	v.SetDefault("media.subtitle.font_color", "0xFAE54D")
	v.SetDefault("media.subtitle.border_width", 4)
	v.SetDefault("media.subtitle.border_color", "black")

	v.SetDefault("titlecard.renderer", "browser")
	v.SetDefault("titlecard.template", "")
	v.SetDefault("titlecard.image", "")
	v.SetDefault("titlecard.width", 400)
	v.SetDefault("titlecard.height", 300)
	v.SetDefault("titlecard.crop_top", 0)
	v.SetDefault("titlecard.crop_bottom", 0)
	v.SetDefault("titlecard.chrome_path", "")
	v.SetDefault("titlecard.timeout", "30s")

	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.url", "")
	v.SetDefault("storage.bucket", "videos")
	v.SetDefault("storage.dir", "output")
	v.SetDefault("storage.timeout", "5m")

	v.SetDefault("server.addr", ":9000")
	v.SetDefault("server.max_upload", 200)
	v.SetDefault("server.request_timeout", "15m")
}

// Load builds a Config from v and the environment. Secrets are read from
// the process environment after loading an optional .env file.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	secrets, err := LoadSecrets()
	if err != nil {
		return nil, err
	}
	cfg.Secrets = secrets

	cfg.expandPaths()
	return &cfg, nil
}

// LoadSecrets reads API keys and the database DSN from the environment.
// A .env file in the working directory is loaded first when present; it
// never overrides variables that are already set.
func LoadSecrets() (Secrets, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Secrets{}, fmt.Errorf("unable to load .env: %w", err)
	}
	secrets, err := env.ParseAs[Secrets]()
	if err != nil {
		return Secrets{}, fmt.Errorf("error parsing secrets: %w", err)
	}
	return secrets, nil
}

// Validate checks the values the pipeline depends on.
func (c *Config) Validate() error {
	var problems []string

	switch c.Synth.Provider {
	case "elevenlabs":
		if c.Secrets.ElevenLabsAPIKey == "" {
			problems = append(problems, "ELEVENLABS_API_KEY is required for the elevenlabs provider")
		}
		if c.Synth.VoiceID == "" {
			problems = append(problems, "synth.voice_id is required")
		}
	case "openai":
		if c.Secrets.OpenAIAPIKey == "" {
			problems = append(problems, "OPENAI_API_KEY is required for the openai provider")
		}
	case "mock":
	default:
		problems = append(problems, fmt.Sprintf("unknown synth.provider %q", c.Synth.Provider))
	}

	if c.Synth.Stability < 0 || c.Synth.Stability > 1 {
		problems = append(problems, fmt.Sprintf("synth.stability must be between 0 and 1, got %.2f", c.Synth.Stability))
	}
	if c.Synth.Similarity < 0 || c.Synth.Similarity > 1 {
		problems = append(problems, fmt.Sprintf("synth.similarity must be between 0 and 1, got %.2f", c.Synth.Similarity))
	}
	if c.Narration.Gap < 0 {
		problems = append(problems, "narration.gap cannot be negative")
	}
	if c.Media.TitleSeconds < 0 {
		problems = append(problems, "media.title_seconds cannot be negative")
	}
	if c.TitleCard.CropTop < 0 || c.TitleCard.CropBottom < 0 {
		problems = append(problems, "titlecard crop values cannot be negative")
	}

	switch c.TitleCard.Renderer {
	case "browser":
	case "static":
		if c.TitleCard.Image == "" {
			problems = append(problems, "titlecard.image is required for the static renderer")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown titlecard.renderer %q", c.TitleCard.Renderer))
	}

	switch c.Storage.Provider {
	case "supabase":
		if c.Storage.URL == "" || c.Storage.Bucket == "" {
			problems = append(problems, "storage.url and storage.bucket are required for supabase")
		}
		if c.Secrets.SupabaseKey == "" {
			problems = append(problems, "SUPABASE_SERVICE_KEY is required for supabase")
		}
	case "local":
		if c.Storage.Dir == "" {
			problems = append(problems, "storage.dir is required for local storage")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage.provider %q", c.Storage.Provider))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// CacheDir returns the clip cache directory, defaulting to the user cache.
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "storyreel", "clips")
	}
	return filepath.Join(dir, "storyreel", "clips")
}

func (c *Config) expandPaths() {
	for _, p := range []*string{
		&c.WorkDir,
		&c.Cache.Dir,
		&c.Media.BackgroundVideo,
		&c.Media.CueSound,
		&c.Media.Subtitle.FontFile,
		&c.TitleCard.Template,
		&c.TitleCard.Image,
		&c.Storage.Dir,
	} {
		*p = ExpandPath(*p)
	}
}

// ExpandPath expands a leading ~ and environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if expanded, err := homedir.Expand(path); err == nil {
		path = expanded
	}
	return os.ExpandEnv(path)
}
