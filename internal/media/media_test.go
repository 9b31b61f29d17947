package media

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/storyreel/internal/config"
	"github.com/dgnsrekt/storyreel/internal/timing"
)

func TestEscapeValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain.txt", "plain.txt"},
		{"/tmp/a:b.txt", `/tmp/a\\:b.txt`},
		{"it's", `it\\\'s`},
		{"between(t,0.000,4.000)", `between(t\,0.000\,4.000)`},
		{"[x];y", `\[x\]\;y`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := EscapeValue(tt.in); got != tt.want {
				t.Errorf("EscapeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSubtitleFilter_NeverEmbedsWordText(t *testing.T) {
	words := timing.Timeline{
		{Word: "'; rm -rf / #", StartTime: 0, EndTime: 0.5},
		{Word: "drawtext=evil:", StartTime: 0.5, EndTime: 1.25},
		{Word: "%{pts}", StartTime: 1.25, EndTime: 2},
	}
	files := []string{"/w/00000.txt", "/w/00001.txt", "/w/00002.txt"}

	graph, err := SubtitleFilter(words, files, DefaultStyle)
	if err != nil {
		t.Fatalf("SubtitleFilter failed: %v", err)
	}

	for _, w := range words {
		if strings.Contains(graph, w.Word) {
			t.Errorf("Filter graph contains word text %q", w.Word)
		}
	}
	if n := strings.Count(graph, "drawtext="); n != len(words) {
		t.Errorf("Expected %d drawtext filters, got %d", len(words), n)
	}
	if n := strings.Count(graph, "expansion=none"); n != len(words) {
		t.Errorf("Expected expansion disabled on every filter, got %d", n)
	}
	if !strings.Contains(graph, `enable=between(t\,0.500\,1.250)`) {
		t.Errorf("Missing enable window for the second word:\n%s", graph)
	}
	for _, want := range []string{"fontsize=60", "fontcolor=0xFAE54D", "borderw=4", "bordercolor=black", "fontfile=Bangers-Regular.ttf"} {
		if !strings.Contains(graph, want) {
			t.Errorf("Expected %q in filter", want)
		}
	}
}

func TestSubtitleFilter_LengthMismatch(t *testing.T) {
	if _, err := SubtitleFilter(timing.Timeline{{Word: "a"}}, nil, DefaultStyle); err == nil {
		t.Error("Expected error when text files do not match words")
	}
}

func TestOverlayAndMixFilters(t *testing.T) {
	if got, want := OverlayFilter(0, 4), `[0:v][1:v]overlay=(W-w)/2:(H-h)/2:enable=between(t\,0.000\,4.000)[v]`; got != want {
		t.Errorf("OverlayFilter = %q, want %q", got, want)
	}
	if got := MixFilter(0.3); !strings.Contains(got, "volume=0.300") || !strings.Contains(got, "amix=inputs=2:duration=longest") {
		t.Errorf("Unexpected mix filter %q", got)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    float64
		wantErr bool
	}{
		{"format duration", `{"format":{"duration":"12.345"}}`, 12.345, false},
		{"stream fallback", `{"streams":[{"duration":"1.5"},{"duration":"2.25"}],"format":{}}`, 2.25, false},
		{"no duration", `{"streams":[],"format":{}}`, 0, true},
		{"invalid", `not json`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.json)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDuration error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDuration = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConcatList(t *testing.T) {
	got := ConcatList([]string{"/a/prompt.mp3", "/a/it's.mp3"})
	want := "file '/a/prompt.mp3'\nfile '/a/it'\\''s.mp3'\n"
	if got != want {
		t.Errorf("ConcatList = %q, want %q", got, want)
	}
}

func TestRunner_CommandError(t *testing.T) {
	r := NewRunner("storyreel-no-such-tool", time.Second)
	err := r.Run(context.Background(), "-version")

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("Expected *CommandError, got %v", err)
	}
	if cmdErr.Tool != "storyreel-no-such-tool" || !reflect.DeepEqual(cmdErr.Args, []string{"-version"}) {
		t.Errorf("Unexpected command error fields: %+v", cmdErr)
	}
}

func TestRunner_Timeout(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	r := NewRunner("sleep", 50*time.Millisecond)
	start := time.Now()
	err := r.Run(context.Background(), "5")
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Error("Runner did not stop the process promptly")
	}
}

type fakeOps struct {
	calls    []string
	duration float64
	failAt   string
}

func (f *fakeOps) record(name string) error {
	f.calls = append(f.calls, name)
	if name == f.failAt {
		return errors.New(name + " exploded")
	}
	return nil
}

func (f *fakeOps) Probe(ctx context.Context, path string) (float64, error) {
	return f.duration, f.record("probe")
}
func (f *fakeOps) Trim(ctx context.Context, in, out string, d float64) error {
	if d != f.duration {
		return errors.New("trim used the wrong duration")
	}
	return f.record("trim")
}
func (f *fakeOps) StripAudio(ctx context.Context, in, out string) error { return f.record("strip") }
func (f *fakeOps) BurnWords(ctx context.Context, in, out string, w timing.Timeline, s string) error {
	return f.record("burn")
}
func (f *fakeOps) OverlayImage(ctx context.Context, in, img, out string, from, to float64) error {
	if from != 0 || to != 4 {
		return errors.New("unexpected overlay window")
	}
	return f.record("overlay")
}
func (f *fakeOps) ReplaceAudio(ctx context.Context, v, a, out string) error { return f.record("replace") }
func (f *fakeOps) MixAudio(ctx context.Context, v, n, c, out string, vol float64) error {
	return f.record("mix")
}

func TestCompositor_Order(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MediaConfig
		job  Job
		want []string
	}{
		{
			name: "full",
			job: Job{
				Background: "bg.mp4", Narration: "n.mp3", Image: "card.png",
				Timeline: timing.Timeline{{Word: "hi", StartTime: 0, EndTime: 0.2}},
			},
			want: []string{"probe", "trim", "strip", "burn", "overlay", "replace"},
		},
		{
			name: "empty timeline skips subtitles",
			job:  Job{Background: "bg.mp4", Narration: "n.mp3", Image: "card.png"},
			want: []string{"probe", "trim", "strip", "overlay", "replace"},
		},
		{
			name: "cue sound mixes",
			cfg:  config.MediaConfig{CueSound: "cue.mp3", CueVolume: 0.3},
			job:  Job{Background: "bg.mp4", Narration: "n.mp3"},
			want: []string{"probe", "trim", "strip", "mix"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := &fakeOps{duration: 7.5}
			c := NewCompositor(ops, tt.cfg)

			var stages []string
			c.OnStage(func(s string) { stages = append(stages, s) })

			tt.job.Dir = t.TempDir()
			out, err := c.Compose(context.Background(), tt.job)
			if err != nil {
				t.Fatalf("Compose failed: %v", err)
			}
			if out != filepath.Join(tt.job.Dir, "final.mp4") {
				t.Errorf("Unexpected output %s", out)
			}
			if !reflect.DeepEqual(ops.calls, tt.want) {
				t.Errorf("Calls = %v, want %v", ops.calls, tt.want)
			}
			if len(stages) != len(tt.want) {
				t.Errorf("Expected %d stage notifications, got %v", len(tt.want), stages)
			}
		})
	}
}

func TestCompositor_StopsOnFailure(t *testing.T) {
	ops := &fakeOps{duration: 3, failAt: "strip"}
	c := NewCompositor(ops, config.MediaConfig{})

	_, err := c.Compose(context.Background(), Job{Background: "bg.mp4", Narration: "n.mp3", Dir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "strip exploded") {
		t.Fatalf("Expected strip failure, got %v", err)
	}
	if got := ops.calls[len(ops.calls)-1]; got != "strip" {
		t.Errorf("Pipeline continued after failure: %v", ops.calls)
	}
}

func TestCompositor_MissingInput(t *testing.T) {
	c := NewCompositor(&fakeOps{}, config.MediaConfig{})
	if _, err := c.Compose(context.Background(), Job{Narration: "n.mp3", Dir: t.TempDir()}); !errors.Is(err, ErrMissingInput) {
		t.Errorf("Expected ErrMissingInput, got %v", err)
	}
}

func TestEditor_SilenceConcatProbe(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not available")
	}

	ctx := context.Background()
	dir := t.TempDir()
	e := NewEditor(config.MediaConfig{Timeout: time.Minute})

	a, b := filepath.Join(dir, "a.wav"), filepath.Join(dir, "b.wav")
	if err := e.Silence(ctx, a, 0.5); err != nil {
		t.Fatalf("Silence failed: %v", err)
	}
	if err := e.Silence(ctx, b, 1.0); err != nil {
		t.Fatalf("Silence failed: %v", err)
	}

	out := filepath.Join(dir, "joined.wav")
	if err := e.Concat(ctx, []string{a, b}, out); err != nil {
		t.Fatalf("Concat failed: %v", err)
	}

	d, err := e.Probe(ctx, out)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if d < 1.45 || d > 1.55 {
		t.Errorf("Expected about 1.5s, got %.3f", d)
	}
}
