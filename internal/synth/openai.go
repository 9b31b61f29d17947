package synth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storyreel/internal/timing"
	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIVoice = openai.VoiceAlloy
	defaultOpenAIModel = openai.TTSModel1
)

var openAIVoices = map[string]bool{
	string(openai.VoiceAlloy):   true,
	string(openai.VoiceEcho):    true,
	string(openai.VoiceFable):   true,
	string(openai.VoiceOnyx):    true,
	string(openai.VoiceNova):    true,
	string(openai.VoiceShimmer): true,
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey string

	// BaseURL overrides the API root, e.g. for a compatible gateway.
	BaseURL string

	// Timeout bounds the speech and transcription calls together.
	Timeout time.Duration
}

// OpenAI synthesizes with the speech endpoint. The speech API returns no
// timing, so the produced audio is transcribed with word timestamps and the
// word spans are spread over their characters.
type OpenAI struct {
	client  *openai.Client
	timeout time.Duration
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client:  openai.NewClientWithConfig(clientConfig),
		timeout: cfg.Timeout,
	}, nil
}

// Name implements Synthesizer.
func (o *OpenAI) Name() string { return "openai" }

// Synthesize implements Synthesizer.
func (o *OpenAI) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	voice := defaultOpenAIVoice
	if openAIVoices[req.VoiceID] {
		voice = openai.SpeechVoice(req.VoiceID)
	}
	model := defaultOpenAIModel
	if strings.HasPrefix(req.ModelID, "tts-") || strings.HasPrefix(req.ModelID, "gpt-") {
		model = openai.SpeechModel(req.ModelID)
	}

	speech, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          model,
		Input:          req.Text,
		Voice:          voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech failed: %w", err)
	}
	defer speech.Close() //nolint:errcheck

	audio, err := io.ReadAll(speech)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	transcript, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "speech.mp3",
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai transcription failed: %w", err)
	}

	spans := make([]wordSpan, 0, len(transcript.Words))
	for _, w := range transcript.Words {
		spans = append(spans, wordSpan{Text: w.Word, Start: w.Start, End: w.End})
	}

	// Prefer the source tokens so punctuation survives, when the
	// transcription heard the same number of words.
	if tokens := strings.Fields(req.Text); len(tokens) == len(spans) {
		for i := range spans {
			spans[i].Text = tokens[i]
		}
	} else {
		log.Debug("transcript word count differs from text",
			"text", len(tokens), "transcript", len(spans))
	}

	return &Result{
		Audio:     audio,
		Alignment: expandAlignment(spans),
		Format:    "mp3",
	}, nil
}

type wordSpan struct {
	Text       string
	Start, End float64
}

// expandAlignment spreads each word's span evenly over its characters and
// gives the space between two words the silence that separates them.
func expandAlignment(words []wordSpan) timing.Alignment {
	var a timing.Alignment
	for i, w := range words {
		if i > 0 {
			prevEnd := words[i-1].End
			gapEnd := w.Start
			if gapEnd < prevEnd {
				gapEnd = prevEnd
			}
			a.Characters = append(a.Characters, " ")
			a.StartTimes = append(a.StartTimes, prevEnd)
			a.EndTimes = append(a.EndTimes, gapEnd)
		}

		runes := []rune(w.Text)
		if len(runes) == 0 {
			continue
		}
		end := w.End
		if end < w.Start {
			end = w.Start
		}
		step := (end - w.Start) / float64(len(runes))
		for j, r := range runes {
			a.Characters = append(a.Characters, string(r))
			a.StartTimes = append(a.StartTimes, w.Start+float64(j)*step)
			if j == len(runes)-1 {
				a.EndTimes = append(a.EndTimes, end)
			} else {
				a.EndTimes = append(a.EndTimes, w.Start+float64(j+1)*step)
			}
		}
	}
	return a
}
