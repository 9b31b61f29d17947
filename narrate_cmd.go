package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storyreel/internal/media"
	"github.com/dgnsrekt/storyreel/internal/narration"
	"github.com/dgnsrekt/storyreel/internal/story"
	"github.com/dgnsrekt/storyreel/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	narrateOut string
	narrateSRT bool

	narrateCmd = &cobra.Command{
		Use:   "narrate STORY",
		Short: "Synthesize a story's narration and word timestamps",
		Long: paragraph(fmt.Sprintf("\n%s the title and body of a story, stitch the clips with a gap and write the audio together with merged word timestamps.",
			keyword("Narrate"))),
		Example: paragraph("storyreel narrate story.md -o out/\nstoryreel narrate story.md --srt"),
		Args:    cobra.ExactArgs(1),
		RunE:    runNarrate,
	}
)

func init() {
	narrateCmd.Flags().StringVarP(&narrateOut, "output", "o", ".", "output directory")
	narrateCmd.Flags().BoolVar(&narrateSRT, "srt", false, "also write subtitles.srt")
}

func runNarrate(cmd *cobra.Command, args []string) error {
	st, err := story.Load(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	store, s, err := openSynth(cfg)
	if err != nil {
		return err
	}
	defer closeCache(store)

	ws, err := workspace.Open(cfg.WorkDir, "storyreel-narrate-")
	if err != nil {
		return err
	}
	defer ws.Close() //nolint:errcheck

	narrator := narration.New(s, media.NewEditor(cfg.Media), cfg.Synth, cfg.Narration.Gap)
	narrator.OnClip(func(i, total int) {
		log.Info("synthesizing", "clip", i+1, "of", total)
	})
	n, err := narrator.Narrate(ctx, *st, ws)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(narrateOut, 0o755); err != nil { //nolint:gosec
		return err
	}

	audio := filepath.Join(narrateOut, "narration"+filepath.Ext(n.AudioPath))
	if err := copyFile(n.AudioPath, audio); err != nil {
		return err
	}

	timestamps := filepath.Join(narrateOut, "timestamps.json")
	if err := n.Timeline.Save(timestamps); err != nil {
		return err
	}

	if narrateSRT {
		f, err := os.Create(filepath.Join(narrateOut, "subtitles.srt"))
		if err != nil {
			return err
		}
		if err := n.Timeline.WriteSRT(f); err != nil {
			f.Close() //nolint:errcheck
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	log.Info("narration written",
		"audio", audio,
		"timestamps", timestamps,
		"words", len(n.Timeline),
		"duration", fmt.Sprintf("%.2fs", n.Duration))
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck
		return fmt.Errorf("unable to copy %s: %w", src, err)
	}
	return out.Close()
}
