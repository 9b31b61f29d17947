package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/dgnsrekt/storyreel/internal/story"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var storyCmd = &cobra.Command{
	Use:     "story STORY",
	Short:   "Show a story as it will be narrated",
	Long:    paragraph(fmt.Sprintf("\n%s a story file after parsing and normalization, the way the narrator will read it.", keyword("Show"))),
	Example: paragraph("storyreel story story.md"),
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := story.Load(args[0])
		if err != nil {
			return err
		}

		style := "notty"
		width := 80
		if term.IsTerminal(int(os.Stdout.Fd())) {
			style = "auto"
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w < 120 {
				width = w
			} else {
				width = 120
			}
		}

		opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
		if style == "auto" {
			opts = append(opts, glamour.WithAutoStyle())
		} else {
			opts = append(opts, glamour.WithStandardStyle(style))
		}
		r, err := glamour.NewTermRenderer(opts...)
		if err != nil {
			return fmt.Errorf("unable to create renderer: %w", err)
		}

		out, err := r.Render(st.Markdown())
		if err != nil {
			return fmt.Errorf("unable to render markdown: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		fmt.Fprintf(cmd.ErrOrStderr(), "  %d narrated part(s)\n", len(st.Parts()))
		return nil
	},
}
