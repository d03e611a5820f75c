package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var analyzeVoices []string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [SOURCE]",
	Short: "Split a story into speakers and show the cast",
	Long: paragraph(fmt.Sprintf("\n%s a story into speaker segments and show the voice assigned to each speaker. SOURCE is a file, a URL, or - for stdin.",
		keyword("Split"))),
	Example: paragraph("storycast analyze story.txt\ncat story.txt | storycast analyze\nstorycast analyze story.txt --voice Narrator=Zephyr"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides, err := parseVoiceOverrides(analyzeVoices)
		if err != nil {
			return err
		}
		text, _, err := readStory(args)
		if err != nil {
			return err
		}

		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.Close() //nolint:errcheck

		if err := sess.Analyze(cmd.Context(), text); err != nil {
			return err
		}
		if err := applyVoiceOverrides(sess, overrides); err != nil {
			return err
		}

		printScript(os.Stdout, sess, terminalWidth())
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringArrayVar(&analyzeVoices, "voice", nil, "assign a voice to a speaker (Speaker=Voice, repeatable)")
}
