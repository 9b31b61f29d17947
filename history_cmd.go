package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dgnsrekt/storyreel/internal/journal"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	historyLimit int

	historyCmd = &cobra.Command{
		Use:     "history",
		Short:   "List recent runs from the run journal",
		Long:    paragraph(fmt.Sprintf("\n%s recent pipeline runs. Requires STORYREEL_DATABASE_URL.", keyword("List"))),
		Example: paragraph("storyreel history -n 20"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Secrets.DatabaseURL == "" {
				return errors.New("no run journal configured: set STORYREEL_DATABASE_URL")
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			j, err := journal.Open(ctx, cfg.Secrets.DatabaseURL)
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.Recent(ctx, historyLimit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tSOURCE\tSTATUS\tTOOK\tTITLE\tRESULT")
			for _, r := range runs {
				took := "-"
				if !r.Finished.IsZero() {
					took = r.Finished.Sub(r.Started).Round(time.Second).String()
				}
				result := r.URL
				if r.Error != "" {
					result = r.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					humanize.Time(r.Started), r.Source, r.Status, took, r.Title, result)
			}
			return tw.Flush()
		},
	}
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show")
}
