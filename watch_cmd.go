package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storyreel/internal/pipeline"
	"github.com/dgnsrekt/storyreel/internal/story"
	"github.com/dgnsrekt/storyreel/internal/watch"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch DIR",
	Short:   "Render every story dropped into a directory",
	Long:    paragraph(fmt.Sprintf("\n%s a directory and render each story file written to it, one at a time.", keyword("Watch"))),
	Example: paragraph("storyreel watch ~/stories"),
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		d, err := openDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		w := watch.New(args[0], story.Supported, func(ctx context.Context, path string) error {
			st, err := story.Load(path)
			if err != nil {
				return err
			}
			res, err := d.pipeline.Generate(ctx, *st, pipeline.WithObserver(logObserver()), pipeline.WithSource("watch"))
			if err != nil {
				return err
			}
			log.Info("published", "file", path, "url", res.Object.URL)
			return nil
		})
		return w.Run(ctx)
	},
}
