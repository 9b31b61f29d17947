package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func loadDefaults(t *testing.T) *Config {
	t.Helper()
	t.Chdir(t.TempDir()) // keep a stray .env out of the test

	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadDefaults(t)

	if cfg.Synth.Provider != "elevenlabs" || cfg.Synth.ModelID != "eleven_turbo_v2" {
		t.Errorf("Unexpected synth defaults %+v", cfg.Synth)
	}
	if cfg.Synth.Timeout != time.Minute {
		t.Errorf("Synth timeout = %v", cfg.Synth.Timeout)
	}
	if cfg.Narration.Gap != 0.5 {
		t.Errorf("Gap = %v", cfg.Narration.Gap)
	}
	if cfg.Media.Subtitle.FontSize != 60 || cfg.Media.Subtitle.FontColor != "0xFAE54D" {
		t.Errorf("Unexpected subtitle style %+v", cfg.Media.Subtitle)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.MaxUploadMB != 200 {
		t.Errorf("Unexpected server defaults %+v", cfg.Server)
	}
	if cfg.Cache.TTL != 7*24*time.Hour {
		t.Errorf("Cache TTL = %v", cfg.Cache.TTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	err := v.ReadConfig(strings.NewReader(`
synth:
  provider: mock
narration:
  gap: 0.25
storage:
  provider: supabase
  url: https://example.supabase.co
`))
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Synth.Provider != "mock" || cfg.Narration.Gap != 0.25 {
		t.Errorf("Overrides not applied: %+v %+v", cfg.Synth, cfg.Narration)
	}
	if cfg.Storage.Bucket != "videos" {
		t.Errorf("Default bucket lost: %q", cfg.Storage.Bucket)
	}
}

func TestLoadSecrets(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ELEVENLABS_API_KEY", "from-env")

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("ELEVENLABS_API_KEY=from-file\nSUPABASE_SERVICE_KEY=service\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// Registers a restore of the variable godotenv is about to set.
	t.Setenv("SUPABASE_SERVICE_KEY", "")
	os.Unsetenv("SUPABASE_SERVICE_KEY") //nolint:errcheck

	s, err := LoadSecrets()
	if err != nil {
		t.Fatalf("LoadSecrets failed: %v", err)
	}
	if s.ElevenLabsAPIKey != "from-env" {
		t.Errorf(".env overrode the environment: %q", s.ElevenLabsAPIKey)
	}
	if s.SupabaseKey != "service" {
		t.Errorf("SupabaseKey = %q", s.SupabaseKey)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Synth:     SynthConfig{Provider: "mock", Stability: 1, Similarity: 1},
			Narration: NarrationConfig{Gap: 0.5},
			TitleCard: TitleCardConfig{Renderer: "browser"},
			Storage:   StorageConfig{Provider: "local", Dir: "out"},
		}
	}

	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing elevenlabs key", func(c *Config) { c.Synth.Provider = "elevenlabs"; c.Synth.VoiceID = "v" }, "ELEVENLABS_API_KEY"},
		{"missing openai key", func(c *Config) { c.Synth.Provider = "openai" }, "OPENAI_API_KEY"},
		{"unknown provider", func(c *Config) { c.Synth.Provider = "espeak" }, "unknown synth.provider"},
		{"stability range", func(c *Config) { c.Synth.Stability = 1.5 }, "synth.stability"},
		{"negative gap", func(c *Config) { c.Narration.Gap = -1 }, "narration.gap"},
		{"negative crop", func(c *Config) { c.TitleCard.CropTop = -5 }, "crop"},
		{"static without image", func(c *Config) { c.TitleCard.Renderer = "static" }, "titlecard.image"},
		{"supabase without key", func(c *Config) {
			c.Storage = StorageConfig{Provider: "supabase", URL: "https://x", Bucket: "b"}
		}, "SUPABASE_SERVICE_KEY"},
		{"unknown storage", func(c *Config) { c.Storage.Provider = "s3" }, "unknown storage.provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	t.Setenv("STORYREEL_TEST_DIR", "/srv/reels")

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain.mp4", "plain.mp4"},
		{"~/videos", filepath.Join(home, "videos")},
		{"$STORYREEL_TEST_DIR/bg.mp4", "/srv/reels/bg.mp4"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCacheDir(t *testing.T) {
	cfg := &Config{Cache: CacheConfig{Dir: "/tmp/clips"}}
	if cfg.CacheDir() != "/tmp/clips" {
		t.Errorf("CacheDir = %q", cfg.CacheDir())
	}
	cfg.Cache.Dir = ""
	if !strings.HasSuffix(cfg.CacheDir(), filepath.Join("storyreel", "clips")) {
		t.Errorf("Default CacheDir = %q", cfg.CacheDir())
	}
}
