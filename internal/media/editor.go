package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgnsrekt/storyreel/internal/config"
	"github.com/dgnsrekt/storyreel/internal/timing"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Editor performs the individual ffmpeg operations. Every operation reads
// its inputs and writes a new output file; nothing is modified in place.
type Editor struct {
	runner *Runner
	style  config.SubtitleStyle
}

// NewEditor creates an editor from the media configuration.
func NewEditor(cfg config.MediaConfig) *Editor {
	binary := cfg.FFmpeg
	if binary == "" {
		binary = "ffmpeg"
	}
	style := cfg.Subtitle
	if style == (config.SubtitleStyle{}) {
		style = DefaultStyle
	}
	return &Editor{
		runner: NewRunner(binary, cfg.Timeout),
		style:  style,
	}
}

// Runner returns the underlying ffmpeg runner.
func (e *Editor) Runner() *Runner { return e.runner }

// Probe returns the duration of path in seconds.
func (e *Editor) Probe(ctx context.Context, path string) (float64, error) {
	return Probe(ctx, path)
}

func (e *Editor) ffmpeg(ctx context.Context, args ...string) error {
	base := []string{"-hide_banner", "-nostdin", "-loglevel", "error", "-y"}
	return e.runner.Run(ctx, append(base, args...)...)
}

// Trim cuts in to its first duration seconds.
func (e *Editor) Trim(ctx context.Context, in, out string, duration float64) error {
	args := ffmpeg.Input(in).
		Output(out, ffmpeg.KwArgs{"t": seconds(duration), "c": "copy"}).
		OverWriteOutput().
		GetArgs()
	if err := e.ffmpeg(ctx, args...); err != nil {
		return fmt.Errorf("trim: %w", err)
	}
	return nil
}

// StripAudio copies the video stream of in without any audio.
func (e *Editor) StripAudio(ctx context.Context, in, out string) error {
	args := ffmpeg.Input(in).
		Output(out, ffmpeg.KwArgs{"an": "", "c:v": "copy"}).
		OverWriteOutput().
		GetArgs()
	if err := e.ffmpeg(ctx, args...); err != nil {
		return fmt.Errorf("strip audio: %w", err)
	}
	return nil
}

// BurnWords draws each word centered on the video while it is spoken. Word
// text goes to per-word files under scratch and the filter graph to a script
// file, so no story text is ever part of an argument.
func (e *Editor) BurnWords(ctx context.Context, in, out string, words timing.Timeline, scratch string) error {
	dir := filepath.Join(scratch, "words")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("burn words: %w", err)
	}

	files := make([]string, len(words))
	for i, w := range words {
		files[i] = filepath.Join(dir, fmt.Sprintf("%05d.txt", i))
		if err := os.WriteFile(files[i], []byte(w.Word), 0o644); err != nil {
			return fmt.Errorf("burn words: %w", err)
		}
	}

	graph, err := SubtitleFilter(words, files, e.style)
	if err != nil {
		return fmt.Errorf("burn words: %w", err)
	}
	script := filepath.Join(scratch, "subtitles.filter")
	if err := os.WriteFile(script, []byte(graph), 0o644); err != nil {
		return fmt.Errorf("burn words: %w", err)
	}

	err = e.ffmpeg(ctx,
		"-i", in,
		"-filter_script:v", script,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		out,
	)
	if err != nil {
		return fmt.Errorf("burn words: %w", err)
	}
	return nil
}

// OverlayImage centers image over the video between from and to seconds.
func (e *Editor) OverlayImage(ctx context.Context, in, image, out string, from, to float64) error {
	err := e.ffmpeg(ctx,
		"-i", in,
		"-i", image,
		"-filter_complex", OverlayFilter(from, to),
		"-map", "[v]",
		"-map", "0:a?",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		out,
	)
	if err != nil {
		return fmt.Errorf("overlay image: %w", err)
	}
	return nil
}

// ReplaceAudio muxes audio as the only audio track of the video.
func (e *Editor) ReplaceAudio(ctx context.Context, video, audio, out string) error {
	err := e.ffmpeg(ctx,
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		out,
	)
	if err != nil {
		return fmt.Errorf("replace audio: %w", err)
	}
	return nil
}

// MixAudio mixes the narration with a cue sound at volume and uses the mix
// as the video's audio track.
func (e *Editor) MixAudio(ctx context.Context, video, narration, cue, out string, volume float64) error {
	err := e.ffmpeg(ctx,
		"-i", video,
		"-i", narration,
		"-i", cue,
		"-filter_complex", MixFilter(volume),
		"-map", "0:v:0",
		"-map", "[a]",
		"-c:v", "copy",
		"-c:a", "aac",
		out,
	)
	if err != nil {
		return fmt.Errorf("mix audio: %w", err)
	}
	return nil
}

// Silence writes duration seconds of mono 44.1kHz silence. The codec
// follows the extension of out.
func (e *Editor) Silence(ctx context.Context, out string, duration float64) error {
	err := e.ffmpeg(ctx,
		"-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=mono",
		"-t", seconds(duration),
		out,
	)
	if err != nil {
		return fmt.Errorf("silence: %w", err)
	}
	return nil
}

// Concat joins inputs end to end with the concat demuxer. The list file is
// written next to out.
func (e *Editor) Concat(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("concat: no inputs")
	}

	list := out + ".txt"
	if err := os.WriteFile(list, []byte(ConcatList(inputs)), 0o644); err != nil {
		return fmt.Errorf("concat: %w", err)
	}
	defer os.Remove(list) //nolint:errcheck

	err := e.ffmpeg(ctx,
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		out,
	)
	if err != nil {
		return fmt.Errorf("concat: %w", err)
	}
	return nil
}

// ConcatList renders a concat demuxer script for paths.
func ConcatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

// DecodePCM decodes path to 16-bit little-endian PCM at rate Hz with the
// given channel count and returns the samples.
func (e *Editor) DecodePCM(ctx context.Context, path string, rate, channels int) ([]byte, error) {
	pcm, err := e.runner.Output(ctx,
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-i", path,
		"-f", "s16le",
		"-ar", fmt.Sprint(rate),
		"-ac", fmt.Sprint(channels),
		"-",
	)
	if err != nil {
		return nil, fmt.Errorf("decode pcm: %w", err)
	}
	return pcm, nil
}
