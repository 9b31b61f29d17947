// Package synth adapts speech synthesis services that return audio together
// with character-level timing. Providers are selected by name from
// configuration and may be wrapped with a clip cache.
package synth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgnsrekt/storyreel/internal/cache"
	"github.com/dgnsrekt/storyreel/internal/config"
	"github.com/dgnsrekt/storyreel/internal/timing"
)

// Common synthesis errors
var (
	// ErrUnknownProvider is returned by New for an unrecognized provider name.
	ErrUnknownProvider = errors.New("unknown synthesis provider")

	// ErrEmptyText is returned when a request carries no text.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrEmptyAudio is returned when a provider answers without audio.
	ErrEmptyAudio = errors.New("provider returned no audio")
)

// Request is one piece of text to narrate.
type Request struct {
	Text       string
	VoiceID    string
	ModelID    string
	Stability  float64
	Similarity float64
}

// Result is the synthesized audio and its character alignment.
type Result struct {
	Audio     []byte
	Alignment timing.Alignment
	Format    string // file extension of Audio, e.g. "mp3"
}

// Words reduces the alignment to word timestamps.
func (r *Result) Words() []timing.WordTimestamp {
	return timing.Reduce(r.Alignment)
}

// Synthesizer turns text into audio with timing.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (*Result, error)
	Name() string
}

// APIError is a non-success response from a synthesis service.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.Status, e.Body)
}

// New builds the provider named by cfg.Synth.Provider. When caching is
// enabled the provider is wrapped with a Cached synthesizer backed by store.
func New(cfg *config.Config, store *cache.Store) (Synthesizer, error) {
	var (
		s   Synthesizer
		err error
	)

	switch cfg.Synth.Provider {
	case "elevenlabs":
		s, err = NewElevenLabs(ElevenLabsConfig{
			APIKey:            cfg.Secrets.ElevenLabsAPIKey,
			BaseURL:           cfg.Synth.BaseURL,
			RequestsPerMinute: cfg.Synth.RequestsPerMinute,
			Timeout:           cfg.Synth.Timeout,
		})
	case "openai":
		s, err = NewOpenAI(OpenAIConfig{
			APIKey:  cfg.Secrets.OpenAIAPIKey,
			Timeout: cfg.Synth.Timeout,
		})
	case "mock":
		s = NewMock(0)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Synth.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Cache.Enabled && store != nil {
		s = NewCached(s, store)
	}
	return s, nil
}

// RequestFromConfig fills the voice settings of a request for text.
func RequestFromConfig(cfg config.SynthConfig, text string) Request {
	return Request{
		Text:       text,
		VoiceID:    cfg.VoiceID,
		ModelID:    cfg.ModelID,
		Stability:  cfg.Stability,
		Similarity: cfg.Similarity,
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
