package main

import (
	"fmt"

	"github.com/dgnsrekt/storyreel/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Serve the pipeline over HTTP",
	Long:    paragraph(fmt.Sprintf("\n%s the HTTP API: compose uploads, render title cards, run stories and stream progress over a websocket.", keyword("Serve"))),
	Example: paragraph("storyreel serve\nstoryreel serve --addr :8080"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		d, err := openDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		return server.New(cfg.Server, d.pipeline, d.renderer).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}
