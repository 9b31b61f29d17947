package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storyreel/internal/titlecard"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	titlecardOut string

	titlecardCmd = &cobra.Command{
		Use:     "titlecard TITLE",
		Short:   "Render a title card image",
		Long:    paragraph(fmt.Sprintf("\n%s the title card for a story title as a PNG, cropped as configured.", keyword("Render"))),
		Example: paragraph("storyreel titlecard \"What's the worst thing you've seen?\" -o card.png --crop-top 20"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := titlecard.New(cfg.TitleCard)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			png, err := r.Render(ctx, args[0], cfg.TitleCard.CropTop, cfg.TitleCard.CropBottom)
			if err != nil {
				return err
			}
			if err := os.WriteFile(titlecardOut, png, 0o644); err != nil { //nolint:gosec
				return fmt.Errorf("unable to write %s: %w", titlecardOut, err)
			}
			log.Info("title card written", "path", titlecardOut, "size", humanize.Bytes(uint64(len(png))))
			return nil
		},
	}
)

func init() {
	titlecardCmd.Flags().StringVarP(&titlecardOut, "output", "o", "titlecard.png", "output image")
	titlecardCmd.Flags().Int("crop-top", 0, "pixels to remove from the top")
	titlecardCmd.Flags().Int("crop-bottom", 0, "pixels to remove from the bottom")
	titlecardCmd.Flags().String("renderer", "", "title card renderer (browser, static)")

	_ = viper.BindPFlag("titlecard.crop_top", titlecardCmd.Flags().Lookup("crop-top"))
	_ = viper.BindPFlag("titlecard.crop_bottom", titlecardCmd.Flags().Lookup("crop-bottom"))
	_ = viper.BindPFlag("titlecard.renderer", titlecardCmd.Flags().Lookup("renderer"))
}
