package main

import (
	"fmt"
	"time"

	"github.com/dgnsrekt/storycast/internal/export"
	"github.com/dgnsrekt/storycast/internal/pcm"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	exportSegment string
	exportVoices  []string
	exportVerify  bool
)

var exportCmd = &cobra.Command{
	Use:   "export [SOURCE]",
	Short: "Save a story reading as a WAVE file",
	Long: paragraph(fmt.Sprintf("\n%s the whole story, or a single segment, as a 24 kHz mono WAVE file.",
		keyword("Export"))),
	Example: paragraph("storycast export story.txt\nstorycast export story.txt --segment seg-3 --out ~/Music"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides, err := parseVoiceOverrides(exportVoices)
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

		ctx := cmd.Context()
		if err := sess.Analyze(ctx, text); err != nil {
			return err
		}
		if err := applyVoiceOverrides(sess, overrides); err != nil {
			return err
		}

		var f export.File
		if exportSegment != "" {
			i, err := pickSegment(sess.Segments(), exportSegment)
			if err != nil {
				return err
			}
			f, err = sess.ExportSegment(ctx, sess.Segments()[i].ID)
			if err != nil {
				return err
			}
		} else {
			f, err = sess.ExportAll(ctx)
			if err != nil {
				return err
			}
		}

		if exportVerify {
			h, err := pcm.ParseWAVHeader(f.Data)
			if err != nil {
				return fmt.Errorf("exported file failed verification: %w", err)
			}
			fmt.Println(faint(fmt.Sprintf("verified: %d Hz, %d ch, %d-bit, %s of audio data",
				h.SampleRate, h.Channels, h.BitsPerSample, humanize.Bytes(uint64(h.DataSize)))))
		}

		path, err := export.Save(afero.NewOsFs(), cfg.Export.Dir, f)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s (%s, %s)\n", keyword(path), humanize.Bytes(uint64(len(f.Data))), f.Duration.Round(time.Millisecond))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportSegment, "segment", "", "export one segment (id, index, or fuzzy text match)")
	exportCmd.Flags().StringArrayVar(&exportVoices, "voice", nil, "assign a voice to a speaker (Speaker=Voice, repeatable)")
	exportCmd.Flags().BoolVar(&exportVerify, "verify", false, "check the encoded header before saving")
	exportCmd.Flags().StringP("out", "o", ".", "directory to write the file to")

	_ = viper.BindPFlag("export.dir", exportCmd.Flags().Lookup("out"))
}
