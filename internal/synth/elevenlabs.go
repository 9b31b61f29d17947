package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storyreel/internal/timing"
	"golang.org/x/time/rate"
)

const (
	defaultElevenLabsURL   = "https://api.elevenlabs.io"
	defaultElevenLabsModel = "eleven_turbo_v2"

	// maxTextSize keeps a single request within the service's character limit.
	maxTextSize = 5000

	maxErrorBody = 4096
)

// ElevenLabsConfig holds configuration for the ElevenLabs provider.
type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string

	// RequestsPerMinute defaults to 30.
	RequestsPerMinute int

	// Timeout bounds each request; defaults to 60s.
	Timeout time.Duration

	// HTTPClient is optional.
	HTTPClient *http.Client
}

// ElevenLabs synthesizes through the text-to-speech "with-timestamps"
// endpoint, which returns base64 audio and a character alignment.
type ElevenLabs struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *http.Client
	limiter *rate.Limiter
}

type elevenLabsRequest struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id"`
	VoiceSettings elevenLabsSettings `json:"voice_settings"`
}

type elevenLabsSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type elevenLabsResponse struct {
	AudioBase64 string            `json:"audio_base64"`
	Alignment   *timing.Alignment `json:"alignment"`
}

// NewElevenLabs creates an ElevenLabs provider.
func NewElevenLabs(cfg ElevenLabsConfig) (*ElevenLabs, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("elevenlabs: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultElevenLabsURL
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 30
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	return &ElevenLabs{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		client:  cfg.HTTPClient,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
	}, nil
}

// Name implements Synthesizer.
func (e *ElevenLabs) Name() string { return "elevenlabs" }

// Synthesize implements Synthesizer.
func (e *ElevenLabs) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	if len(req.Text) > maxTextSize {
		return nil, fmt.Errorf("text too long: %d characters (max %d)", len(req.Text), maxTextSize)
	}
	if req.VoiceID == "" {
		return nil, fmt.Errorf("elevenlabs: voice ID is required")
	}
	if req.ModelID == "" {
		req.ModelID = defaultElevenLabsModel
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	body, err := json.Marshal(elevenLabsRequest{
		Text:    req.Text,
		ModelID: req.ModelID,
		VoiceSettings: elevenLabsSettings{
			Stability:       req.Stability,
			SimilarityBoost: req.Similarity,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/with-timestamps", e.baseURL, url.PathEscape(req.VoiceID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	start := time.Now()
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{Provider: e.Name(), Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var out elevenLabsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode elevenlabs response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(out.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	result := &Result{Audio: audio, Format: "mp3"}
	if out.Alignment != nil {
		result.Alignment = *out.Alignment
	}
	if err := result.Alignment.Validate(); err != nil {
		// The reducer tolerates this; note it for debugging.
		log.Warn("elevenlabs returned a malformed alignment", "err", err)
	}

	log.Debug("elevenlabs synthesis complete",
		"chars", len(req.Text), "audio", len(audio), "took", time.Since(start))
	return result, nil
}
