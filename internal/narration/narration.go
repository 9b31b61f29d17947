// Package narration synthesizes a story part by part and stitches the clips
// into one narration track with a matching word timeline.
package narration

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/dgnsrekt/storyreel/internal/config"
	"github.com/dgnsrekt/storyreel/internal/story"
	"github.com/dgnsrekt/storyreel/internal/synth"
	"github.com/dgnsrekt/storyreel/internal/timing"
	"github.com/dgnsrekt/storyreel/internal/workspace"
)

// Tools are the audio operations the narrator needs. *media.Editor
// implements them.
type Tools interface {
	Probe(ctx context.Context, path string) (float64, error)
	Silence(ctx context.Context, out string, duration float64) error
	Concat(ctx context.Context, inputs []string, out string) error
}

// Narration is a stitched narration track.
type Narration struct {
	AudioPath string
	Timeline  timing.Timeline
	Duration  float64
	Clips     int
}

// Narrator turns stories into narrations.
type Narrator struct {
	synth synth.Synthesizer
	tools Tools
	voice config.SynthConfig
	gap   float64

	onClip func(index, total int)
}

// New creates a narrator. Clips are separated by gap seconds of silence.
func New(s synth.Synthesizer, tools Tools, voice config.SynthConfig, gap float64) *Narrator {
	if gap < 0 {
		gap = 0
	}
	return &Narrator{synth: s, tools: tools, voice: voice, gap: gap}
}

// OnClip registers fn to be called before each clip is synthesized.
func (n *Narrator) OnClip(fn func(index, total int)) { n.onClip = fn }

// Narrate synthesizes the title and body of st.
func (n *Narrator) Narrate(ctx context.Context, st story.Story, ws *workspace.Workspace) (*Narration, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return n.NarrateTexts(ctx, st.Parts(), ws)
}

// NarrateTexts synthesizes each text in order, writes the clips into ws and
// joins them with silence. Clips are synthesized one at a time.
func (n *Narrator) NarrateTexts(ctx context.Context, texts []string, ws *workspace.Workspace) (*Narration, error) {
	if len(texts) == 0 {
		return nil, story.ErrEmptyStory
	}

	var (
		segments = make([]timing.Segment, 0, len(texts))
		clips    = make([]string, 0, len(texts))
		format   string
		start    = time.Now()
	)

	for i, text := range texts {
		if n.onClip != nil {
			n.onClip(i, len(texts))
		}

		res, err := n.synth.Synthesize(ctx, synth.RequestFromConfig(n.voice, text))
		if err != nil {
			return nil, fmt.Errorf("synthesize clip %d: %w", i, err)
		}
		if format == "" {
			format = res.Format
		}

		path, err := ws.Write(fmt.Sprintf("clip-%02d.%s", i, res.Format), res.Audio)
		if err != nil {
			return nil, err
		}

		duration, err := n.tools.Probe(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("probe clip %d: %w", i, err)
		}

		words := res.Words()
		log.Debug("clip synthesized",
			"clip", i, "words", len(words), "duration", duration, "size", humanize.Bytes(uint64(len(res.Audio))))

		segments = append(segments, timing.Segment{Words: words, Duration: duration})
		clips = append(clips, path)
	}

	audioPath := clips[0]
	if len(clips) > 1 {
		inputs := clips
		if n.gap > 0 {
			silence := ws.Path("gap." + format)
			if err := n.tools.Silence(ctx, silence, n.gap); err != nil {
				return nil, err
			}
			inputs = interleave(clips, silence)
		}

		audioPath = ws.Path("narration." + format)
		if err := n.tools.Concat(ctx, inputs, audioPath); err != nil {
			return nil, err
		}
	}

	duration, err := n.tools.Probe(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("probe narration: %w", err)
	}

	timeline := timing.Merge(segments, n.gap)
	log.Info("narration ready",
		"clips", len(clips), "words", len(timeline), "duration", fmt.Sprintf("%.2fs", duration),
		"took", time.Since(start).Round(time.Millisecond))

	return &Narration{
		AudioPath: audioPath,
		Timeline:  timeline,
		Duration:  duration,
		Clips:     len(clips),
	}, nil
}

// interleave puts sep between every pair of clips.
func interleave(clips []string, sep string) []string {
	out := make([]string, 0, len(clips)*2-1)
	for i, c := range clips {
		if i > 0 {
			out = append(out, sep)
		}
		out = append(out, c)
	}
	return out
}
