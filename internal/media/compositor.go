package media

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storyreel/internal/config"
	"github.com/dgnsrekt/storyreel/internal/timing"
)

// ErrMissingInput is returned when a composition job lacks a required file.
var ErrMissingInput = errors.New("missing composition input")

// Operations is the set of ffmpeg operations a Compositor sequences.
// *Editor implements it.
type Operations interface {
	Probe(ctx context.Context, path string) (float64, error)
	Trim(ctx context.Context, in, out string, duration float64) error
	StripAudio(ctx context.Context, in, out string) error
	BurnWords(ctx context.Context, in, out string, words timing.Timeline, scratch string) error
	OverlayImage(ctx context.Context, in, image, out string, from, to float64) error
	ReplaceAudio(ctx context.Context, video, audio, out string) error
	MixAudio(ctx context.Context, video, narration, cue, out string, volume float64) error
}

// Job describes one composition.
type Job struct {
	Background string // background video
	Narration  string // narration audio
	Image      string // title card, optional
	Timeline   timing.Timeline

	// Dir receives the intermediate files and the output.
	Dir string
}

// StageFunc is notified as each composition stage starts.
type StageFunc func(stage string)

// Compositor runs the fixed composition order: probe the narration, trim
// the background to it, strip the background audio, burn the subtitles,
// overlay the title card and finally apply the narration.
type Compositor struct {
	ops          Operations
	titleSeconds float64
	cue          string
	cueVolume    float64
	onStage      StageFunc
}

// NewCompositor creates a compositor using ops.
func NewCompositor(ops Operations, cfg config.MediaConfig) *Compositor {
	title := cfg.TitleSeconds
	if title <= 0 {
		title = 4
	}
	return &Compositor{
		ops:          ops,
		titleSeconds: title,
		cue:          cfg.CueSound,
		cueVolume:    cfg.CueVolume,
	}
}

// OnStage registers fn to be called before each stage.
func (c *Compositor) OnStage(fn StageFunc) { c.onStage = fn }

// Compose produces the final video and returns its path inside job.Dir.
func (c *Compositor) Compose(ctx context.Context, job Job) (string, error) {
	if job.Background == "" || job.Narration == "" {
		return "", fmt.Errorf("%w: background and narration are required", ErrMissingInput)
	}
	if job.Dir == "" {
		return "", fmt.Errorf("%w: no working directory", ErrMissingInput)
	}

	start := time.Now()
	path := func(name string) string { return filepath.Join(job.Dir, name) }

	c.stage("probe")
	duration, err := c.ops.Probe(ctx, job.Narration)
	if err != nil {
		return "", fmt.Errorf("probe narration: %w", err)
	}
	log.Debug("narration probed", "duration", duration)

	c.stage("trim")
	current := path("trimmed.mp4")
	if err := c.ops.Trim(ctx, job.Background, current, duration); err != nil {
		return "", err
	}

	c.stage("strip")
	next := path("silent.mp4")
	if err := c.ops.StripAudio(ctx, current, next); err != nil {
		return "", err
	}
	current = next

	if len(job.Timeline) > 0 {
		c.stage("subtitles")
		next = path("subtitled.mp4")
		if err := c.ops.BurnWords(ctx, current, next, job.Timeline, job.Dir); err != nil {
			return "", err
		}
		current = next
	}

	if job.Image != "" {
		c.stage("overlay")
		next = path("titled.mp4")
		if err := c.ops.OverlayImage(ctx, current, job.Image, next, 0, c.titleSeconds); err != nil {
			return "", err
		}
		current = next
	}

	c.stage("audio")
	final := path("final.mp4")
	if c.cue != "" {
		err = c.ops.MixAudio(ctx, current, job.Narration, c.cue, final, c.cueVolume)
	} else {
		err = c.ops.ReplaceAudio(ctx, current, job.Narration, final)
	}
	if err != nil {
		return "", err
	}

	log.Info("composition complete",
		"words", len(job.Timeline),
		"duration", fmt.Sprintf("%.2fs", duration),
		"took", time.Since(start).Round(time.Millisecond))
	return final, nil
}

func (c *Compositor) stage(name string) {
	if c.onStage != nil {
		c.onStage(name)
	}
}
