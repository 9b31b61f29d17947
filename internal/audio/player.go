package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// ErrEmptyAudio is returned when there is nothing to play.
var ErrEmptyAudio = errors.New("audio data is empty")

// PlayerConfig describes the PCM stream handed to Play.
type PlayerConfig struct {
	SampleRate int // 44100 or 48000 Hz only
	Channels   int // 1 = mono, 2 = stereo
	BufferSize time.Duration
}

// DefaultPlayerConfig matches what Editor.DecodePCM produces by default.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 44100,
		Channels:   1,
		BufferSize: 100 * time.Millisecond,
	}
}

func (c PlayerConfig) validate() error {
	if c.SampleRate != 44100 && c.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", c.Channels)
	}
	if c.BufferSize < 0 {
		return errors.New("buffer size cannot be negative")
	}
	return nil
}

// Duration is the playing time of pcm at this configuration.
func (c PlayerConfig) Duration(pcm []byte) time.Duration {
	frame := c.Channels * 2
	if frame <= 0 || c.SampleRate <= 0 {
		return 0
	}
	frames := len(pcm) / frame
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// Player owns the oto context. oto allows one context per process, so a
// Player should be created once and reused.
type Player struct {
	cfg PlayerConfig
	ctx *oto.Context
	mu  sync.Mutex
}

// NewPlayer opens the audio device.
func NewPlayer(cfg PlayerConfig) (*Player, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   cfg.BufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	return &Player{cfg: cfg, ctx: ctx}, nil
}

// Play blocks until pcm has been played or ctx is done. The buffer is held
// until playback ends so the device never reads freed memory.
func (p *Player) Play(ctx context.Context, pcm []byte, progress func(elapsed, total time.Duration)) error {
	if len(pcm) == 0 {
		return ErrEmptyAudio
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	data := make([]byte, len(pcm))
	copy(data, pcm)

	player := p.ctx.NewPlayer(bytes.NewReader(data))
	defer player.Close() //nolint:errcheck
	player.Play()

	total := p.cfg.Duration(data)
	start := time.Now()
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
			if progress != nil {
				progress(min(time.Since(start), total), total)
			}
		}
	}
	if progress != nil {
		progress(total, total)
	}
	return player.Err()
}
