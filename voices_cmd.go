package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/dgnsrekt/storycast/internal/story"
	"github.com/spf13/cobra"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the available voices",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(terminalWidth()),
		)
		if err != nil {
			return fmt.Errorf("unable to create renderer: %w", err)
		}
		out, err := r.Render(voicesMarkdown())
		if err != nil {
			return fmt.Errorf("unable to render voices: %w", err)
		}
		fmt.Print(out)
		return nil
	},
}

func voicesMarkdown() string {
	var b strings.Builder
	b.WriteString("# Voices\n\n| Voice | Character | Suited for |\n|---|---|---|\n")
	for _, v := range story.Voices {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", v, v.Description(), v.Guidance())
	}
	return b.String()
}
