package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storyreel/internal/audio"
	"github.com/dgnsrekt/storyreel/internal/media"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:     "preview AUDIO",
	Short:   "Play narration audio",
	Long:    paragraph(fmt.Sprintf("\n%s narration audio on the local audio device. Any format ffmpeg can decode is accepted.", keyword("Play"))),
	Example: paragraph("storyreel narrate story.md -o out/\nstoryreel preview out/narration.mp3"),
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		pc := audio.DefaultPlayerConfig()
		pcm, err := media.NewEditor(cfg.Media).DecodePCM(ctx, args[0], pc.SampleRate, pc.Channels)
		if err != nil {
			return err
		}

		player, err := audio.NewPlayer(pc)
		if err != nil {
			return err
		}

		log.Info("playing", "file", args[0], "duration", pc.Duration(pcm).Round(time.Millisecond))
		err = player.Play(ctx, pcm, func(elapsed, total time.Duration) {
			log.Debug("playback", "elapsed", elapsed.Round(time.Second), "total", total.Round(time.Second))
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
