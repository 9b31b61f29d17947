package main

import (
	"context"
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storyreel/internal/pipeline"
	"github.com/dgnsrekt/storyreel/internal/story"
	"github.com/dgnsrekt/storyreel/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	renderTUI  bool
	renderCopy bool

	renderCmd = &cobra.Command{
		Use:   "render STORY",
		Short: "Narrate, compose and publish a story video",
		Long: paragraph(fmt.Sprintf("\n%s a story file (markdown, yaml or text): narrate it, render the title card, burn word-level subtitles onto the background video and publish the result.",
			keyword("Render"))),
		Example: paragraph("storyreel render story.md\nstoryreel render story.yaml --tui --copy\nstoryreel render story.txt --provider mock --storage local"),
		Args:    cobra.ExactArgs(1),
		RunE:    runRender,
	}
)

func init() {
	renderCmd.Flags().BoolVarP(&renderTUI, "tui", "t", false, "show a progress view (when stdout is a terminal)")
	renderCmd.Flags().BoolVarP(&renderCopy, "copy", "c", false, "copy the published URL to the clipboard")
	renderCmd.Flags().String("background", "", "background video")
	renderCmd.Flags().String("storage", "", "storage provider (supabase, local)")
	renderCmd.Flags().Float64("gap", 0, "seconds of silence between title and body")

	_ = viper.BindPFlag("media.background_video", renderCmd.Flags().Lookup("background"))
	_ = viper.BindPFlag("storage.provider", renderCmd.Flags().Lookup("storage"))
	_ = viper.BindPFlag("narration.gap", renderCmd.Flags().Lookup("gap"))
}

func runRender(cmd *cobra.Command, args []string) error {
	st, err := story.Load(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	d, err := openDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	var res *pipeline.Result
	if renderTUI && term.IsTerminal(int(os.Stdout.Fd())) {
		closer, err := logToFile("")
		if err != nil {
			return err
		}
		defer closer() //nolint:errcheck

		res, err = ui.RunProgress(ctx, st.Title, func(ctx context.Context, obs pipeline.Observer) (*pipeline.Result, error) {
			return d.pipeline.Generate(ctx, *st, pipeline.WithObserver(obs), pipeline.WithSource("cli"))
		})
		if err != nil {
			return err
		}
	} else {
		res, err = d.pipeline.Generate(ctx, *st, pipeline.WithObserver(logObserver()), pipeline.WithSource("cli"))
		if err != nil {
			return err
		}
	}

	url := res.Object.URL
	fmt.Fprintln(cmd.OutOrStdout(), url)

	if renderCopy {
		if err := clipboard.WriteAll(url); err != nil {
			log.Warn("unable to copy URL to clipboard", "err", err)
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), success("Copied to clipboard"))
		}
	}
	return nil
}

// logObserver reports stage transitions through the logger.
func logObserver() pipeline.Observer {
	return pipeline.ObserverFunc(func(e pipeline.Event) {
		switch e.Status {
		case pipeline.StatusFailed:
			log.Error(e.Stage, "status", e.Status, "err", e.Message)
		case pipeline.StatusProgress:
			log.Debug(e.Stage, "status", e.Status, "detail", e.Message)
		default:
			if e.Message != "" {
				log.Info(e.Stage, "status", e.Status, "detail", e.Message)
				return
			}
			log.Info(e.Stage, "status", e.Status)
		}
	})
}
