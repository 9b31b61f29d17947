package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dgnsrekt/storyreel/internal/config"
	"github.com/dgnsrekt/storyreel/internal/journal"
	"github.com/dgnsrekt/storyreel/internal/storage"
	"github.com/dgnsrekt/storyreel/internal/story"
	"github.com/dgnsrekt/storyreel/internal/synth"
	"github.com/dgnsrekt/storyreel/internal/timing"
)

// fakeTools writes a small file for every operation.
type fakeTools struct {
	mu       sync.Mutex
	burned   timing.Timeline
	overlaid string
	failAt   string
}

func (f *fakeTools) touch(op, out string) error {
	if op == f.failAt {
		return errors.New(op + " failed")
	}
	return os.WriteFile(out, []byte(op), 0o644)
}

func (f *fakeTools) Probe(ctx context.Context, path string) (float64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	return 2.5, nil
}
func (f *fakeTools) Silence(ctx context.Context, out string, d float64) error {
	return f.touch("silence", out)
}
func (f *fakeTools) Concat(ctx context.Context, in []string, out string) error {
	return f.touch("concat", out)
}
func (f *fakeTools) Trim(ctx context.Context, in, out string, d float64) error {
	return f.touch("trim", out)
}
func (f *fakeTools) StripAudio(ctx context.Context, in, out string) error {
	return f.touch("strip", out)
}
func (f *fakeTools) BurnWords(ctx context.Context, in, out string, w timing.Timeline, s string) error {
	f.mu.Lock()
	f.burned = w
	f.mu.Unlock()
	return f.touch("burn", out)
}
func (f *fakeTools) OverlayImage(ctx context.Context, in, img, out string, from, to float64) error {
	f.mu.Lock()
	f.overlaid = img
	f.mu.Unlock()
	return f.touch("overlay", out)
}
func (f *fakeTools) ReplaceAudio(ctx context.Context, v, a, out string) error {
	return f.touch("replace", out)
}
func (f *fakeTools) MixAudio(ctx context.Context, v, n, c, out string, vol float64) error {
	return f.touch("mix", out)
}

type fakeRenderer struct{ err error }

func (r fakeRenderer) Render(ctx context.Context, title string, top, bottom int) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("png:" + title), nil
}

type fakeJournal struct {
	journal.Nop
	mu       sync.Mutex
	started  []journal.Run
	finished map[string]error
}

func (j *fakeJournal) Start(ctx context.Context, r journal.Run) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.started = append(j.started, r)
	return nil
}

func (j *fakeJournal) Finish(ctx context.Context, id, url string, err error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finished == nil {
		j.finished = map[string]error{}
	}
	j.finished[id] = err
	return nil
}

func setup(t *testing.T, tools *fakeTools, renderer fakeRenderer) (*Pipeline, *config.Config, *fakeJournal) {
	t.Helper()

	cfg := &config.Config{WorkDir: t.TempDir()}
	cfg.Narration.Gap = 0.5
	cfg.Media.BackgroundVideo = "background.mp4"
	cfg.Media.TitleSeconds = 4

	pub, err := storage.NewLocal(filepath.Join(t.TempDir(), "videos"))
	if err != nil {
		t.Fatal(err)
	}
	j := &fakeJournal{}

	p, err := New(cfg, Capabilities{
		Synthesizer: synth.NewMock(10),
		Renderer:    renderer,
		Publisher:   pub,
		Tools:       tools,
		Journal:     j,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p, cfg, j
}

func assertWorkDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Workspace left behind: %v", entries)
	}
}

func TestPipeline_Generate(t *testing.T) {
	tools := &fakeTools{}
	p, cfg, j := setup(t, tools, fakeRenderer{})
	rec := &Recorder{}

	res, err := p.Generate(context.Background(), story.Story{Title: "hi", Body: "you all"}, WithObserver(rec), WithSource("cli"))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if res.Object == nil || !strings.HasPrefix(res.Object.Path, "video_") {
		t.Fatalf("Unexpected object %+v", res.Object)
	}
	data, err := os.ReadFile(strings.TrimPrefix(res.Object.URL, "file://"))
	if err != nil || string(data) != "replace" {
		t.Errorf("Published file = %q, %v", data, err)
	}

	if got := tools.burned.Text(); got != "hi you all" {
		t.Errorf("Burned words = %q", got)
	}
	if tools.burned[1].StartTime != 0.7 {
		t.Errorf("Body was not offset by the first clip plus gap: %+v", tools.burned[1])
	}
	if filepath.Base(tools.overlaid) != "titlecard.png" {
		t.Errorf("Title card not overlaid: %q", tools.overlaid)
	}

	events := rec.Events()
	if len(events) == 0 || events[len(events)-1].Stage != StageDone {
		t.Fatalf("Expected a final done event, got %+v", events)
	}
	var stages []string
	for _, e := range events {
		if e.RunID != res.RunID {
			t.Errorf("Event for another run: %+v", e)
		}
		if e.Status == StatusStarted {
			stages = append(stages, e.Stage)
		}
	}
	if want := []string{StageNarrate, StageTitleCard, StageCompose, StagePublish}; strings.Join(stages, ",") != strings.Join(want, ",") {
		t.Errorf("Stages = %v, want %v", stages, want)
	}

	if len(j.started) != 1 || j.started[0].Title != "hi" || j.started[0].Source != "cli" {
		t.Errorf("Unexpected journal start %+v", j.started)
	}
	if err, ok := j.finished[res.RunID]; !ok || err != nil {
		t.Errorf("Run not journaled as finished: %v", j.finished)
	}

	assertWorkDirEmpty(t, cfg.WorkDir)
}

func TestPipeline_FailureCleansUp(t *testing.T) {
	tests := []struct {
		name     string
		tools    *fakeTools
		renderer fakeRenderer
		stage    string
	}{
		{"render fails", &fakeTools{}, fakeRenderer{err: errors.New("no chrome")}, StageTitleCard},
		{"compose fails", &fakeTools{failAt: "burn"}, fakeRenderer{}, StageCompose},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, cfg, j := setup(t, tt.tools, tt.renderer)
			rec := &Recorder{}

			_, err := p.Generate(context.Background(), story.Story{Title: "t", Body: "b"}, WithObserver(rec))
			if err == nil {
				t.Fatal("Expected failure")
			}

			var failed []string
			for _, e := range rec.Events() {
				if e.Status == StatusFailed {
					failed = append(failed, e.Stage)
				}
			}
			if len(failed) != 1 || failed[0] != tt.stage {
				t.Errorf("Failed stages = %v, want [%s]", failed, tt.stage)
			}

			for _, runErr := range j.finished {
				if runErr == nil {
					t.Error("Failed run journaled as success")
				}
			}
			assertWorkDirEmpty(t, cfg.WorkDir)
		})
	}
}

func TestPipeline_Compose(t *testing.T) {
	tools := &fakeTools{}
	p, cfg, _ := setup(t, tools, fakeRenderer{})

	timeline := timing.Timeline{{Word: "hello", StartTime: 0, EndTime: 0.4}}
	res, err := p.Compose(context.Background(), ComposeInput{
		Image:    strings.NewReader("png"),
		Audio:    strings.NewReader("mp3"),
		AudioExt: ".mp3",
		Timeline: timeline,
	}, WithSource("http"))
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if res.Object == nil {
		t.Fatal("Expected a published object")
	}
	if tools.burned.Text() != "hello" || tools.overlaid == "" {
		t.Error("Compose skipped subtitles or overlay")
	}
	assertWorkDirEmpty(t, cfg.WorkDir)

	if _, err := p.Compose(context.Background(), ComposeInput{}); err == nil {
		t.Error("Expected error without audio")
	}
}

func TestPipeline_ConcurrentRunsAreIsolated(t *testing.T) {
	p, cfg, _ := setup(t, &fakeTools{}, fakeRenderer{})

	var wg sync.WaitGroup
	keys := make([]string, 4)
	errs := make([]error, 4)
	for i := range keys {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := p.Generate(context.Background(), story.Story{Title: "t", Body: "b"})
			errs[i] = err
			if err == nil {
				keys[i] = res.Object.Path
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, k := range keys {
		if errs[i] != nil {
			t.Fatalf("Run %d failed: %v", i, errs[i])
		}
		if seen[k] {
			t.Errorf("Key %s published twice", k)
		}
		seen[k] = true
	}
	assertWorkDirEmpty(t, cfg.WorkDir)
}

func TestNew_RequiresCapabilities(t *testing.T) {
	if _, err := New(&config.Config{}, Capabilities{}); !errors.Is(err, ErrMissingCapability) {
		t.Errorf("Expected ErrMissingCapability, got %v", err)
	}
}
