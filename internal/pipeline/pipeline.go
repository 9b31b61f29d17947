// Package pipeline sequences a run: narrate the story, render the title
// card, compose the video and publish it. The collaborators are chosen by
// configuration and handed in as a capability set, so the CLI and the HTTP
// server share one pipeline.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storyreel/internal/config"
	"github.com/dgnsrekt/storyreel/internal/journal"
	"github.com/dgnsrekt/storyreel/internal/media"
	"github.com/dgnsrekt/storyreel/internal/narration"
	"github.com/dgnsrekt/storyreel/internal/storage"
	"github.com/dgnsrekt/storyreel/internal/story"
	"github.com/dgnsrekt/storyreel/internal/synth"
	"github.com/dgnsrekt/storyreel/internal/timing"
	"github.com/dgnsrekt/storyreel/internal/titlecard"
	"github.com/dgnsrekt/storyreel/internal/workspace"
	"github.com/google/uuid"
)

// ErrMissingCapability is returned when a run needs a collaborator that was
// not provided.
var ErrMissingCapability = errors.New("missing pipeline capability")

// Tools are the media operations used by narration and composition.
// *media.Editor implements them.
type Tools interface {
	media.Operations
	narration.Tools
}

// Capabilities are the collaborators a pipeline runs with.
type Capabilities struct {
	Synthesizer synth.Synthesizer
	Renderer    titlecard.Renderer
	Publisher   storage.Publisher
	Tools       Tools
	Journal     journal.Journal
}

// Pipeline runs stories through the capabilities. It holds no per-run
// state and is safe for concurrent use.
type Pipeline struct {
	cfg  *config.Config
	caps Capabilities
}

// New creates a pipeline.
func New(cfg *config.Config, caps Capabilities) (*Pipeline, error) {
	if caps.Tools == nil || caps.Publisher == nil {
		return nil, fmt.Errorf("%w: media tools and a publisher are required", ErrMissingCapability)
	}
	if caps.Journal == nil {
		caps.Journal = journal.Nop{}
	}
	return &Pipeline{cfg: cfg, caps: caps}, nil
}

// Result is the outcome of a run.
type Result struct {
	RunID     string          `json:"runId"`
	Object    *storage.Object `json:"object"`
	Timeline  timing.Timeline `json:"timeline,omitempty"`
	Duration  float64         `json:"duration,omitempty"`
	StartedAt time.Time       `json:"startedAt"`
	Took      time.Duration   `json:"took"`
}

// Option adjusts a single run.
type Option func(*Options)

// Options are the per-run settings.
type Options struct {
	Observer Observer
	Source   string
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) Options {
	o := Options{Source: "cli"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithObserver delivers the run's events to o.
func WithObserver(o Observer) Option {
	return func(r *Options) { r.Observer = o }
}

// WithSource tags the run in the journal (cli, http, ws).
func WithSource(source string) Option {
	return func(r *Options) { r.Source = source }
}

// run is the state of one execution.
type run struct {
	id       string
	started  time.Time
	ws       *workspace.Workspace
	observer Observer
}

func (r *run) emit(stage, status, msg string) {
	if r.observer == nil {
		return
	}
	r.observer.Observe(Event{RunID: r.id, Stage: stage, Status: status, Message: msg, Time: time.Now()})
}

// begin opens the run's workspace and journal entry. The returned finish
// function must be deferred with the run's error.
func (p *Pipeline) begin(ctx context.Context, title string, opts []Option) (*run, func(*Result, error), error) {
	o := NewOptions(opts...)

	id := uuid.NewString()
	ws, err := workspace.Open(p.cfg.WorkDir, "storyreel-"+id[:8]+"-")
	if err != nil {
		return nil, nil, err
	}

	r := &run{id: id, started: time.Now(), ws: ws, observer: o.Observer}
	if err := p.caps.Journal.Start(ctx, journal.Run{ID: id, Source: o.Source, Title: title, Started: r.started}); err != nil {
		log.Warn("unable to journal run start", "run", id, "err", err)
	}
	log.Info("run started", "run", id, "source", o.Source)

	finish := func(res *Result, runErr error) {
		url := ""
		if res != nil && res.Object != nil {
			url = res.Object.URL
		}
		// The journal outlives a cancelled request.
		jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := p.caps.Journal.Finish(jctx, id, url, runErr); err != nil {
			log.Warn("unable to journal run finish", "run", id, "err", err)
		}

		if err := ws.Close(); err != nil {
			log.Warn("unable to remove workspace", "run", id, "err", err)
		}

		if runErr != nil {
			log.Error("run failed", "run", id, "err", runErr)
			return
		}
		r.emit(StageDone, StatusCompleted, url)
		log.Info("run complete", "run", id, "url", url, "took", time.Since(r.started).Round(time.Millisecond))
	}
	return r, finish, nil
}

// Generate runs the whole pipeline for st.
func (p *Pipeline) Generate(ctx context.Context, st story.Story, opts ...Option) (res *Result, err error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	if p.caps.Synthesizer == nil {
		return nil, fmt.Errorf("%w: no synthesizer", ErrMissingCapability)
	}

	r, finish, err := p.begin(ctx, st.Title, opts)
	if err != nil {
		return nil, err
	}
	defer func() { finish(res, err) }()

	r.emit(StageNarrate, StatusStarted, "")
	narrator := narration.New(p.caps.Synthesizer, p.caps.Tools, p.cfg.Synth, p.cfg.Narration.Gap)
	narrator.OnClip(func(i, total int) {
		r.emit(StageNarrate, StatusProgress, fmt.Sprintf("clip %d of %d", i+1, total))
	})
	narr, err := narrator.Narrate(ctx, st, r.ws)
	if err != nil {
		r.emit(StageNarrate, StatusFailed, err.Error())
		return nil, fmt.Errorf("narrate: %w", err)
	}
	r.emit(StageNarrate, StatusCompleted, fmt.Sprintf("%d words", len(narr.Timeline)))

	image, err := p.titleCard(ctx, r, st.Title)
	if err != nil {
		return nil, err
	}

	res, err = p.composeAndPublish(ctx, r, media.Job{
		Background: p.cfg.Media.BackgroundVideo,
		Narration:  narr.AudioPath,
		Image:      image,
		Timeline:   narr.Timeline,
		Dir:        r.ws.Dir(),
	})
	if err != nil {
		return nil, err
	}
	res.Duration = narr.Duration
	return res, nil
}

// ComposeInput is caller-supplied media for a composition-only run.
type ComposeInput struct {
	Image    io.Reader // title card, optional
	Audio    io.Reader
	AudioExt string // e.g. ".mp3"
	Timeline timing.Timeline
}

// Compose composes and publishes caller-supplied narration, title card and
// timeline over the configured background video.
func (p *Pipeline) Compose(ctx context.Context, in ComposeInput, opts ...Option) (res *Result, err error) {
	if in.Audio == nil {
		return nil, fmt.Errorf("%w: audio is required", media.ErrMissingInput)
	}

	r, finish, err := p.begin(ctx, "", opts)
	if err != nil {
		return nil, err
	}
	defer func() { finish(res, err) }()

	ext := in.AudioExt
	if ext == "" {
		ext = ".mp3"
	}
	audio, err := copyInto(r.ws, "narration"+ext, in.Audio)
	if err != nil {
		return nil, err
	}

	var image string
	if in.Image != nil {
		if image, err = copyInto(r.ws, "titlecard.png", in.Image); err != nil {
			return nil, err
		}
	}

	return p.composeAndPublish(ctx, r, media.Job{
		Background: p.cfg.Media.BackgroundVideo,
		Narration:  audio,
		Image:      image,
		Timeline:   in.Timeline,
		Dir:        r.ws.Dir(),
	})
}

func (p *Pipeline) titleCard(ctx context.Context, r *run, title string) (string, error) {
	if p.caps.Renderer == nil || title == "" {
		return "", nil
	}

	r.emit(StageTitleCard, StatusStarted, "")
	png, err := p.caps.Renderer.Render(ctx, title, p.cfg.TitleCard.CropTop, p.cfg.TitleCard.CropBottom)
	if err != nil {
		r.emit(StageTitleCard, StatusFailed, err.Error())
		return "", fmt.Errorf("title card: %w", err)
	}
	path, err := r.ws.Write("titlecard.png", png)
	if err != nil {
		return "", err
	}
	r.emit(StageTitleCard, StatusCompleted, "")
	return path, nil
}

func (p *Pipeline) composeAndPublish(ctx context.Context, r *run, job media.Job) (*Result, error) {
	r.emit(StageCompose, StatusStarted, "")
	compositor := media.NewCompositor(p.caps.Tools, p.cfg.Media)
	compositor.OnStage(func(stage string) {
		r.emit(StageCompose, StatusProgress, stage)
	})
	out, err := compositor.Compose(ctx, job)
	if err != nil {
		r.emit(StageCompose, StatusFailed, err.Error())
		return nil, fmt.Errorf("compose: %w", err)
	}
	r.emit(StageCompose, StatusCompleted, "")

	r.emit(StagePublish, StatusStarted, "")
	obj, err := storage.PublishFile(ctx, p.caps.Publisher, out)
	if err != nil {
		r.emit(StagePublish, StatusFailed, err.Error())
		return nil, fmt.Errorf("publish: %w", err)
	}
	r.emit(StagePublish, StatusCompleted, obj.URL)

	return &Result{
		RunID:     r.id,
		Object:    obj,
		Timeline:  job.Timeline,
		StartedAt: r.started,
		Took:      time.Since(r.started),
	}, nil
}

func copyInto(ws *workspace.Workspace, name string, src io.Reader) (string, error) {
	f, err := ws.Create(name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close() //nolint:errcheck
		return "", fmt.Errorf("failed to store %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return ws.Path(name), nil
}

// Observers combines several observers into one.
func Observers(obs ...Observer) Observer {
	return multiObserver(obs)
}
