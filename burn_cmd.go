package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storyreel/internal/media"
	"github.com/dgnsrekt/storyreel/internal/timing"
	"github.com/dgnsrekt/storyreel/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	burnOut string

	burnCmd = &cobra.Command{
		Use:     "burn VIDEO TIMESTAMPS",
		Short:   "Burn word-level subtitles onto a video",
		Long:    paragraph(fmt.Sprintf("\n%s each word of a timestamps JSON file onto a video, centered, for exactly its time range.", keyword("Burn"))),
		Example: paragraph("storyreel burn video.mp4 timestamps.json -o subtitled.mp4"),
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeline, err := timing.Load(args[1])
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			ws, err := workspace.Open(cfg.WorkDir, "storyreel-burn-")
			if err != nil {
				return err
			}
			defer ws.Close() //nolint:errcheck

			editor := media.NewEditor(cfg.Media)
			if err := editor.BurnWords(ctx, args[0], burnOut, timeline, ws.Dir()); err != nil {
				return err
			}
			log.Info("subtitles burned", "words", len(timeline), "output", burnOut)
			return nil
		},
	}
)

func init() {
	burnCmd.Flags().StringVarP(&burnOut, "output", "o", "output.mp4", "output video")
}
